package domain

import (
	"maps"
	"path/filepath"
	"strings"
)

const (
	// DescriptorExt is the extension of test case descriptor files
	DescriptorExt = ".json"
	// ExpectedExt is the extension of golden artifacts
	ExpectedExt = ".out"
	// DiagnosticExt is the extension of saved mismatched output
	DiagnosticExt = ".got"
)

// Descriptor is the parsed content of a case descriptor.
// Only File is inspected by the harness; Params holds every key verbatim
// (including "file") and is passed through to the service.
type Descriptor struct {
	File   string
	Params map[string]any
}

// TestCase represents a single conformance case discovered on disk
type TestCase struct {
	Name           string // Descriptor file stem
	DescriptorPath string // Absolute path to the descriptor
	Descriptor     Descriptor
}

// NewTestCase builds a TestCase for the descriptor at path.
func NewTestCase(path string, d Descriptor) TestCase {
	return TestCase{
		Name:           CaseName(path),
		DescriptorPath: path,
		Descriptor:     d,
	}
}

// CaseName returns the descriptor file stem.
func CaseName(descriptorPath string) string {
	return strings.TrimSuffix(filepath.Base(descriptorPath), filepath.Ext(descriptorPath))
}

// ExpectedPath returns the golden artifact path (same stem, .out).
func (tc TestCase) ExpectedPath() string {
	return tc.sibling(ExpectedExt)
}

// DiagnosticPath returns where mismatched output is saved (same stem, .got).
func (tc TestCase) DiagnosticPath() string {
	return tc.sibling(DiagnosticExt)
}

func (tc TestCase) sibling(ext string) string {
	return filepath.Join(filepath.Dir(tc.DescriptorPath), tc.Name+ext)
}

// TransformRequest is the parameter mapping submitted to the service
type TransformRequest map[string]any

// NewTransformRequest copies the descriptor params and sets file to locator.
// A fresh map is built on every call so nothing leaks between runs.
func NewTransformRequest(d Descriptor, locator string) TransformRequest {
	req := make(TransformRequest, len(d.Params)+1)
	maps.Copy(req, d.Params)
	req["file"] = locator
	return req
}

// TransformResponse is what the service returns for a successful transform
type TransformResponse struct {
	File       string         // Locator of the produced artifact
	Width      int            // Result width, reporting only
	Height     int            // Result height, reporting only
	OrigWidth  int            // Source width, reporting only
	OrigHeight int            // Source height, reporting only
	Raw        map[string]any // Full response mapping
}

// HasDimensions reports whether the service returned size metadata
func (r TransformResponse) HasDimensions() bool {
	return r.Width > 0 || r.Height > 0 || r.OrigWidth > 0 || r.OrigHeight > 0
}
