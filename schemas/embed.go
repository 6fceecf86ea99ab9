// Package schemas embeds the JSON Schemas for the files the agent reads back from disk.
package schemas

import (
	"embed"
	"fmt"
)

// Schema file names
const (
	SessionCookies = "session_cookies.schema.json"
	Config         = "config.schema.json"
)

//go:embed *.schema.json
var files embed.FS

// Get returns the content of a schema by file name.
func Get(name string) (string, error) {
	data, err := files.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("schema %s not found: %w", name, err)
	}
	return string(data), nil
}

// Names lists the embedded schema files.
func Names() []string {
	return []string{SessionCookies, Config}
}
