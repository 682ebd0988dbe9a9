package discovery

import (
	"fmt"
	"iter"
	"path/filepath"

	"imgconform/internal/domain"
	"imgconform/internal/locator"
)

// Selection narrows which descriptors a run executes
type Selection struct {
	Pattern string              // Substring of the descriptor file name
	Only    map[string]struct{} // When non-nil, only these case names
}

// Loader discovers test cases in a cases directory
type Loader struct {
	dir     string
	scanner *Scanner
	filter  *Filter
	parser  *Parser
}

// NewLoader creates a new Loader for dir
func NewLoader(dir string, scanner *Scanner, filter *Filter, parser *Parser) *Loader {
	return &Loader{
		dir:     dir,
		scanner: scanner,
		filter:  filter,
		parser:  parser,
	}
}

// List returns the descriptor paths selected by sel
func (l *Loader) List(sel Selection) ([]string, error) {
	paths, err := l.scanner.Scan(l.dir)
	if err != nil {
		return nil, err
	}
	paths = l.filter.FilterByName(paths, sel.Pattern)
	if sel.Only != nil {
		paths = l.filter.FilterByCaseNames(paths, sel.Only)
	}
	return paths, nil
}

// Discover lists the selected descriptors and parses them one at a time
// as the sequence is consumed. Each ranging re-lists the directory.
//
// A malformed descriptor yields its bare TestCase with a
// *domain.MalformedCaseError and iteration continues. A listing failure
// yields a single error.
func (l *Loader) Discover(sel Selection) iter.Seq2[domain.TestCase, error] {
	return func(yield func(domain.TestCase, error) bool) {
		paths, err := l.List(sel)
		if err != nil {
			yield(domain.TestCase{}, err)
			return
		}
		for _, p := range paths {
			d, err := l.parser.ParseDescriptor(p)
			if !yield(domain.NewTestCase(p, d), err) {
				return
			}
		}
	}
}

// Resolver rewrites a case's file parameter into a locator
type Resolver struct {
	assetsRoot string
	scheme     locator.Scheme
}

// NewResolver creates a Resolver for assets under assetsRoot
func NewResolver(assetsRoot string, scheme locator.Scheme) *Resolver {
	return &Resolver{assetsRoot: assetsRoot, scheme: scheme}
}

// Locate joins an asset name with the assets root and encodes it
func (r *Resolver) Locate(asset string) (string, error) {
	abs, err := filepath.Abs(filepath.Join(r.assetsRoot, asset))
	if err != nil {
		return "", fmt.Errorf("resolve asset %s: %w", asset, err)
	}
	return locator.Encode(abs, r.scheme)
}

// Request builds a fresh transform request for tc
func (r *Resolver) Request(tc domain.TestCase) (domain.TransformRequest, error) {
	loc, err := r.Locate(tc.Descriptor.File)
	if err != nil {
		return nil, &domain.MalformedCaseError{Path: tc.DescriptorPath, Err: err}
	}
	return domain.NewTransformRequest(tc.Descriptor, loc), nil
}
