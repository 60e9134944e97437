// Package mux implements C10 (muxer driver), C14 (subprocess progress
// driver), and C15 (scratch-directory manager): the boundary between
// loukai and its external collaborators (the audio encoder, and the
// ML stem-separation/pitch-detection/transcription subprocesses).
package mux

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ScratchManager implements C15: it owns <root>/tmp/<uuid>/ directories,
// one per mux invocation, created under KAI_CACHE_DIR (or the OS default
// cache dir if unset).
type ScratchManager struct {
	root string
}

// NewScratchManager resolves the scratch root: KAI_CACHE_DIR if set,
// otherwise os.UserCacheDir()/loukai.
func NewScratchManager() (*ScratchManager, error) {
	root := os.Getenv("KAI_CACHE_DIR")
	if root == "" {
		cacheDir, err := os.UserCacheDir()
		if err != nil {
			return nil, err
		}
		root = filepath.Join(cacheDir, "loukai")
	}
	return &ScratchManager{root: root}, nil
}

// New allocates a fresh <root>/tmp/<uuid>/ directory and returns its path.
// Callers remove it (via Remove) once the mux operation succeeds or fails.
func (m *ScratchManager) New() (string, error) {
	dir := filepath.Join(m.root, "tmp", uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// Remove deletes a scratch directory previously returned by New.
func (m *ScratchManager) Remove(dir string) error {
	return os.RemoveAll(dir)
}
