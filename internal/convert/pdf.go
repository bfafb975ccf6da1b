package convert

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

func init() {
	api.DisableConfigDir()
}

// PageCount returns the number of pages of a PDF file.
func PageCount(path string) (int, error) {
	ctx, err := api.ReadContextFile(path)
	if err != nil {
		return 0, fmt.Errorf("read pdf %s: %w", path, err)
	}
	return ctx.PageCount, nil
}
