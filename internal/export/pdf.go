package export

import (
	"bytes"
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
)

const boardImage = "board"

// PDF writes a single page sized to the board, one point per pixel, with the
// PNG placed edge to edge.
func PDF(w io.Writer, png []byte, widthPx, heightPx int) error {
	if widthPx <= 0 || heightPx <= 0 {
		return fmt.Errorf("invalid page size %dx%d", widthPx, heightPx)
	}
	wd, ht := float64(widthPx), float64(heightPx)

	p := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: wd, Ht: ht},
	})
	p.SetMargins(0, 0, 0)
	p.SetAutoPageBreak(false, 0)
	p.AddPage()

	opt := gofpdf.ImageOptions{ImageType: "PNG"}
	p.RegisterImageOptionsReader(boardImage, opt, bytes.NewReader(png))
	p.ImageOptions(boardImage, 0, 0, wd, ht, false, opt, 0, "")
	if err := p.Error(); err != nil {
		return fmt.Errorf("failed to lay out pdf: %w", err)
	}
	if err := p.Output(w); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return nil
}
