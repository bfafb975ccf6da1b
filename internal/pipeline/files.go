package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// sanitize keeps an id usable as a file name component.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, s)
}

// outputName returns the artifact base name: name, or the template's base
// name without extension when name is empty. Names that are not a single
// path element are rejected.
func outputName(name, template string) (string, error) {
	if name == "" {
		return strings.TrimSuffix(filepath.Base(template), filepath.Ext(template)), nil
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`+"\x00") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return name, nil
}

// deliver moves src into dir, replacing any file of the same name, and
// returns the new path.
func deliver(src, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	dst := filepath.Join(dir, filepath.Base(src))
	if err := os.Rename(src, dst); err == nil {
		return dst, nil
	}
	// rename fails across filesystems
	if err := copyFile(src, dst); err != nil {
		return "", fmt.Errorf("deliver %s: %w", filepath.Base(src), err)
	}
	return dst, os.Remove(src)
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	_, err = io.Copy(out, in)
	return err
}
