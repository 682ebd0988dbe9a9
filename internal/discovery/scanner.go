package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"imgconform/internal/domain"
)

// Scanner lists case descriptors in a directory
type Scanner struct {
	ext string
}

// NewScanner creates a new Scanner for *.json descriptors
func NewScanner() *Scanner {
	return &Scanner{ext: domain.DescriptorExt}
}

// Scan finds all descriptor files directly inside root, sorted by name
func (s *Scanner) Scan(root string) ([]string, error) {
	// Clean and validate the root path
	root = filepath.Clean(root)
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("cases path does not exist: %s", root)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("cases path is not a directory: %s", root)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read cases dir: %w", err)
	}

	var descriptors []string
	for _, e := range entries {
		name := e.Name()
		// Skip hidden files and editor droppings
		if e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if strings.HasSuffix(name, s.ext) {
			descriptors = append(descriptors, filepath.Join(root, name))
		}
	}

	sort.Strings(descriptors)
	return descriptors, nil
}
