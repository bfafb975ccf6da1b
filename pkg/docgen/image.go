package docgen

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// EMUPerMM is the number of English Metric Units in a millimetre.
const EMUPerMM = 36000

// Image is an inline picture placed into the document where a tag evaluates
// to it. Height follows the picture's aspect ratio.
type Image struct {
	Data      []byte
	Name      string
	MIME      string
	WidthEMU  int64
	HeightEMU int64
}

// NewImage builds an Image of the given width in millimetres.
func NewImage(data []byte, name string, widthMM float64) (*Image, error) {
	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return nil, fmt.Errorf("unsupported image content %s", mtype.String())
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", name, err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, fmt.Errorf("image %s has no pixels", name)
	}
	width := int64(widthMM * EMUPerMM)
	return &Image{
		Data:      data,
		Name:      name,
		MIME:      mtype.String(),
		WidthEMU:  width,
		HeightEMU: width * int64(cfg.Height) / int64(cfg.Width),
	}, nil
}

// NewImageFromFile reads an image file and sizes it to widthMM.
func NewImageFromFile(path string, widthMM float64) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewImage(data, filepath.Base(path), widthMM)
}

// Extension returns the file extension for the image content, without dot.
func (img *Image) Extension() string {
	switch img.MIME {
	case "image/png":
		return "png"
	case "image/jpeg":
		return "jpeg"
	case "image/gif":
		return "gif"
	}
	if m := mimetype.Lookup(img.MIME); m != nil && m.Extension() != "" {
		return strings.TrimPrefix(m.Extension(), ".")
	}
	return "bin"
}

func (img *Image) String() string {
	return fmt.Sprintf("Image(%s)", img.Name)
}
