package errorpages

import (
	"fmt"
	"os"
)

// FileSpec maps a status code to an on-disk error body, as configured
// per virtual host (§3/§6's {status -> path} error-file map).
type FileSpec struct {
	Status      int
	Path        string
	ContentType string
}

// LoadCache reads each configured file once and returns an immutable
// Cache, matching os.ReadFile's one-shot config-time loading pattern
// used for the teacher's config and schema files.
func LoadCache(specs []FileSpec) (*Cache, error) {
	pages := make([]Page, 0, len(specs))
	for _, s := range specs {
		data, err := os.ReadFile(s.Path)
		if err != nil {
			return nil, fmt.Errorf("errorpages: load %d from %s: %w", s.Status, s.Path, err)
		}
		pages = append(pages, Page{Status: s.Status, ContentType: s.ContentType, Body: data})
	}
	return NewCache(pages), nil
}
