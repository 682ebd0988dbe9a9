package discovery

import (
	"path/filepath"
	"strings"
)

// Filter filters descriptor files by name
type Filter struct{}

// NewFilter creates a new Filter
func NewFilter() *Filter {
	return &Filter{}
}

// FilterByName keeps descriptors whose file name contains pattern.
// This is a plain substring match: no globbing, no regular expressions.
func (f *Filter) FilterByName(paths []string, pattern string) []string {
	if pattern == "" {
		return paths
	}

	var filtered []string
	for _, p := range paths {
		if strings.Contains(filepath.Base(p), pattern) {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// FilterByCaseNames keeps descriptors whose case name is in names
func (f *Filter) FilterByCaseNames(paths []string, names map[string]struct{}) []string {
	var filtered []string
	for _, p := range paths {
		base := filepath.Base(p)
		if _, ok := names[strings.TrimSuffix(base, filepath.Ext(base))]; ok {
			filtered = append(filtered, p)
		}
	}
	return filtered
}
