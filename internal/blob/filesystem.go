package blob

import (
	"ontosim/internal/infra/blob/fs"
)

// NewFilesystem constructs a filesystem-backed blob.Store rooted at root.
func NewFilesystem(root string) (Store, error) {
	return fs.New(root)
}
