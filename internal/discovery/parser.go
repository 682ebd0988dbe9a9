package discovery

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"imgconform/internal/domain"
)

// Parser parses case descriptor files
type Parser struct{}

// NewParser creates a new Parser
func NewParser() *Parser {
	return &Parser{}
}

// ParseDescriptor reads a descriptor and returns its typed view.
// Every failure is a *domain.MalformedCaseError.
func (p *Parser) ParseDescriptor(filePath string) (domain.Descriptor, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return domain.Descriptor{}, &domain.MalformedCaseError{Path: filePath, Err: err}
	}

	d, err := p.Parse(content)
	if err != nil {
		return domain.Descriptor{}, &domain.MalformedCaseError{Path: filePath, Err: err}
	}
	return d, nil
}

// Parse decodes descriptor content
func (p *Parser) Parse(content []byte) (domain.Descriptor, error) {
	dec := json.NewDecoder(bytes.NewReader(content))
	// Keep integers as written so they reach the service untouched
	dec.UseNumber()

	var params map[string]any
	if err := dec.Decode(&params); err != nil {
		return domain.Descriptor{}, fmt.Errorf("invalid JSON: %w", err)
	}
	if params == nil {
		return domain.Descriptor{}, errors.New("descriptor must be a JSON object")
	}
	if dec.More() {
		return domain.Descriptor{}, errors.New("trailing data after descriptor object")
	}

	raw, ok := params["file"]
	if !ok {
		return domain.Descriptor{}, errors.New(`missing "file" key`)
	}
	file, ok := raw.(string)
	if !ok || file == "" {
		return domain.Descriptor{}, fmt.Errorf(`"file" must be a non-empty string, got %v`, raw)
	}

	return domain.Descriptor{File: file, Params: params}, nil
}
