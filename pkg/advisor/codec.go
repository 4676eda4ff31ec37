package advisor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"service-advisor/internal/models"
)

var errEmptyPayload = errors.New("empty advisory payload")

// EncodeResult serializes a result into the cache payload format.
func EncodeResult(result *models.AdvisoryResult) (string, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("failed to marshal advisory result: %w", err)
	}
	return string(data), nil
}

// DecodeResult parses a cache payload. Unknown fields are ignored and missing
// ones are left empty. A blank or null payload is an error.
func DecodeResult(payload string) (*models.AdvisoryResult, error) {
	trimmed := bytes.TrimSpace([]byte(payload))
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, errEmptyPayload
	}

	var result models.AdvisoryResult
	if err := json.Unmarshal(trimmed, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal advisory result: %w", err)
	}
	return &result, nil
}
