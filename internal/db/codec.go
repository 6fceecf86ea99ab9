package db

import (
	"encoding/json"
	"fmt"

	"github.com/jonathan/apply-agent/internal/types"
)

func encodeHistory(h []types.StepKind) ([]byte, error) {
	if h == nil {
		h = []types.StepKind{}
	}
	b, err := json.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal step history: %w", err)
	}
	return b, nil
}

func decodeHistory(b []byte) ([]types.StepKind, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var h []types.StepKind
	if err := json.Unmarshal(b, &h); err != nil {
		return nil, fmt.Errorf("failed to unmarshal step history: %w", err)
	}
	if len(h) == 0 {
		return nil, nil
	}
	return h, nil
}
