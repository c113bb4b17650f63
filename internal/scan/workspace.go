package scan

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
)

// workspace is a per-scan temp directory for path-based engines. Close
// removes it with everything inside.
type workspace struct {
	dir string
}

func newWorkspace(parent string) (*workspace, error) {
	dir, err := os.MkdirTemp(parent, "mrzgate-*")
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &workspace{dir: dir}, nil
}

func (w *workspace) writePNG(name string, img image.Image) (string, error) {
	path := filepath.Join(w.dir, name)
	if err := savePNG(path, img); err != nil {
		return "", err
	}
	return path, nil
}

func (w *workspace) Close() error {
	return os.RemoveAll(w.dir)
}

func savePNG(path string, img image.Image) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", filepath.Base(path), cerr)
		}
	}()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return nil
}
