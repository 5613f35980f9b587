// Package security guards the file names the CLI derives from trace names
// before anything is written to disk.
package security

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrPathEscape is returned when a path resolves outside its output directory.
var ErrPathEscape = errors.New("path escapes output directory")

const maxStemLen = 96

// SanitizeFilename turns a trace name such as "../recordings/my swipe.csv"
// into a file name stem ("my_swipe"). Directory components and the
// extension are dropped, anything outside [A-Za-z0-9_-] becomes a single
// underscore and the result is capped in length. An empty result becomes
// "trace".
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	var b strings.Builder
	lastUnderscore := false
	for _, r := range base {
		if b.Len() >= maxStemLen {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "trace"
	}
	return out
}

// ValidatePathWithinDirectory reports ErrPathEscape when path, once cleaned
// and made absolute, is not dir itself or below it. Symlinks in existing
// parents are resolved first.
func ValidatePathWithinDirectory(path, dir string) error {
	absDir, err := canonical(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve output directory: %w", err)
	}
	absPath, err := canonical(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrPathEscape, path)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("%w: %s is outside %s", ErrPathEscape, path, dir)
	}
	return nil
}

// OutputPath builds dir/<sanitized name><suffix> and checks that the result
// stays inside dir.
func OutputPath(dir, name, suffix string) (string, error) {
	path := filepath.Join(dir, SanitizeFilename(name)+suffix)
	if err := ValidatePathWithinDirectory(path, dir); err != nil {
		return "", err
	}
	return path, nil
}

// canonical returns the absolute form of p with symlinks resolved on the
// longest existing prefix. Missing trailing components are kept as given.
func canonical(p string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(p))
	if err != nil {
		return "", err
	}
	rest := ""
	cur := abs
	for {
		if resolved, err := filepath.EvalSymlinks(cur); err == nil {
			return filepath.Join(resolved, rest), nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return abs, nil
		}
		rest = filepath.Join(filepath.Base(cur), rest)
		cur = parent
	}
}
