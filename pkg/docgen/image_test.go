package docgen

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sistemadual/docgen/internal/docxtest"
)

func writeFile(path string, content []byte) error {
	return os.WriteFile(path, content, 0o644)
}

func TestNewImageKeepsAspectRatio(t *testing.T) {
	img, err := NewImage(docxtest.PNG(30, 60), "tall.png", 40)
	require.NoError(t, err)
	assert.Equal(t, int64(40*EMUPerMM), img.WidthEMU)
	assert.Equal(t, int64(80*EMUPerMM), img.HeightEMU)
	assert.Equal(t, "image/png", img.MIME)
	assert.Equal(t, "png", img.Extension())
}

func TestNewImageRejectsNonImages(t *testing.T) {
	_, err := NewImage([]byte("plain text"), "x.txt", 40)
	assert.Error(t, err)
}

func TestNewImageFromFile(t *testing.T) {
	path := docxtest.WritePNG(t, t.TempDir(), "chart.png", 10, 10)
	img, err := NewImageFromFile(path, 40)
	require.NoError(t, err)
	assert.Equal(t, "chart.png", img.Name)
	assert.Equal(t, img.WidthEMU, img.HeightEMU)

	_, err = NewImageFromFile(filepath.Join(t.TempDir(), "missing.png"), 40)
	assert.True(t, os.IsNotExist(err))
}
