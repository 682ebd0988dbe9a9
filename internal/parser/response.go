package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"imgconform/internal/domain"
)

// ResponseParser turns raw service mappings into typed responses
type ResponseParser struct{}

// NewResponseParser creates a new ResponseParser
func NewResponseParser() *ResponseParser {
	return &ResponseParser{}
}

// ParseResponse extracts the produced artifact locator and the optional
// size metadata. A missing or non-string "file" is an error; malformed
// sizes are ignored because they only feed reporting.
func (p *ResponseParser) ParseResponse(raw map[string]any) (domain.TransformResponse, error) {
	if raw == nil {
		return domain.TransformResponse{}, errors.New("empty transform response")
	}
	file, ok := raw["file"].(string)
	if !ok || file == "" {
		return domain.TransformResponse{}, fmt.Errorf(`transform response has no "file" locator: %v`, raw["file"])
	}

	return domain.TransformResponse{
		File:       file,
		Width:      toInt(raw["width"]),
		Height:     toInt(raw["height"]),
		OrigWidth:  toInt(raw["orig_width"]),
		OrigHeight: toInt(raw["orig_height"]),
		Raw:        raw,
	}, nil
}

// ParseServiceError builds a TransformError from an error payload.
// Both {"code","message"} and the older {"error","verboseError"} shapes
// are understood.
func (p *ResponseParser) ParseServiceError(raw map[string]any) *domain.TransformError {
	te := &domain.TransformError{}
	if s, ok := raw["code"].(string); ok {
		te.Code = s
	} else if s, ok := raw["error"].(string); ok {
		te.Code = s
	}
	if s, ok := raw["message"].(string); ok {
		te.Message = s
	} else if s, ok := raw["verboseError"].(string); ok {
		te.Message = s
	}
	if te.Code == "" && te.Message == "" {
		te.Message = "unknown"
	}
	return te
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		if n != math.Trunc(n) {
			return 0
		}
		return int(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
	}
	return 0
}
