package cli

import (
	"github.com/roach88/matter/internal/content"
)

// loadMatter loads the catalog named by --content, or the built-in one.
func loadMatter(opts *RootOptions) (*content.MatterData, error) {
	if opts.Content == "" {
		return content.Default()
	}
	return content.LoadDir(opts.Content)
}
