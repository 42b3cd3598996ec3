// Package scratch manages intermediate clip files. Names are unique
// per job and per segment so concurrent jobs never collide; cleanup of
// aged files is the retention collaborator's concern, not ours.
package scratch

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

type Workspace struct {
	root string
}

// New makes sure root exists and returns a workspace over it.
func New(root string) (*Workspace, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	return &Workspace{root: root}, nil
}

// Root returns the workspace directory.
func (w *Workspace) Root() string {
	return w.root
}

// Clip returns a fresh, collision-free path for an intermediate clip.
// The file is not created.
func (w *Workspace) Clip(prefix, ext string) string {
	return filepath.Join(w.root, fmt.Sprintf("%s-%s%s", prefix, uuid.NewString(), ext))
}

// Remove deletes intermediate files, ignoring ones already gone.
func (w *Workspace) Remove(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		os.Remove(p)
	}
}
