package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"circle":                "circle",
		"my trace.csv":          "my_trace",
		"../../etc/x":           "x",
		`..\windows\swipe.json`: "swipe",
		"":                      "trace",
		"...":                   "trace",
		"swipe-2_fast.json":     "swipe-2_fast",
		"a  //  b":              "b",
		"gen:zigzag":            "gen_zigzag",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeFilename(in), in)
	}
}

func TestSanitizeFilenameCapsLength(t *testing.T) {
	t.Parallel()

	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	assert.Len(t, SanitizeFilename(string(long)), maxStemLen)
}

func TestValidatePathWithinDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "plots"), 0o755))

	t.Run("inside", func(t *testing.T) {
		assert.NoError(t, ValidatePathWithinDirectory(filepath.Join(dir, "a.png"), dir))
		assert.NoError(t, ValidatePathWithinDirectory(filepath.Join(dir, "plots", "new", "b.png"), dir))
		assert.NoError(t, ValidatePathWithinDirectory(dir, dir))
	})

	t.Run("traversal", func(t *testing.T) {
		err := ValidatePathWithinDirectory(filepath.Join(dir, "..", "x.png"), dir)
		assert.ErrorIs(t, err, ErrPathEscape)
	})

	t.Run("symlink out", func(t *testing.T) {
		outside := t.TempDir()
		link := filepath.Join(dir, "link")
		if err := os.Symlink(outside, link); err != nil {
			t.Skipf("symlinks unavailable: %v", err)
		}
		err := ValidatePathWithinDirectory(filepath.Join(link, "x.png"), dir)
		assert.ErrorIs(t, err, ErrPathEscape)
	})
}

func TestOutputPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	got, err := OutputPath(dir, "../../my swipe.csv", "-errors.png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "my_swipe-errors.png"), got)
}
