package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeenSet(t *testing.T) {
	s := NewSeenSet()

	assert.True(t, s.Add("101"))
	assert.True(t, s.Add("102"))
	assert.False(t, s.Add("101"), "second add of the same id is not new")

	assert.True(t, s.Has("102"))
	assert.False(t, s.Has("103"))
	assert.Equal(t, 2, s.Len())
}
