package snapshot

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/nfnt/resize"
)

// DefaultMaxWidth bounds saved screenshots; a 1080p capture is scaled down
const DefaultMaxWidth = 1280

// Writer saves failure screenshots into a directory
type Writer struct {
	Dir      string
	MaxWidth uint
}

// New returns a Writer for dir using the default width
func New(dir string) *Writer {
	return &Writer{Dir: dir, MaxWidth: DefaultMaxWidth}
}

// Save writes the PNG capture of a failed record and returns its path
func (w *Writer) Save(record int, data []byte) (string, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode screenshot: %w", err)
	}

	img = Scale(img, w.maxWidth())

	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(w.Dir, Name(record))

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return "", fmt.Errorf("encode screenshot: %w", err)
	}
	return path, f.Close()
}

// Name is the file name used for record's screenshot
func Name(record int) string {
	return fmt.Sprintf("record-%03d-failed.png", record)
}

// Scale shrinks img to maxWidth keeping the aspect ratio. Narrower images are
// returned unchanged.
func Scale(img image.Image, maxWidth uint) image.Image {
	if maxWidth == 0 || uint(img.Bounds().Dx()) <= maxWidth {
		return img
	}
	// Height 0 lets resize keep the aspect ratio
	return resize.Resize(maxWidth, 0, img, resize.Lanczos3)
}

func (w *Writer) maxWidth() uint {
	if w.MaxWidth == 0 {
		return DefaultMaxWidth
	}
	return w.MaxWidth
}
