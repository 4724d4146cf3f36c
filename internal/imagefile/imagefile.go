// Package imagefile inspects survey scans before upload.
package imagefile

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrNotImage is returned when a file is not a decodable image.
var ErrNotImage = errors.New("file is not a supported image")

// Info describes an image file.
type Info struct {
	Path        string
	Size        int64
	ContentType string // sniffed from the first bytes
	Format      string // decoder name: png, jpeg, gif, bmp, tiff, webp
	Width       int
	Height      int
}

// String renders a one-line description, e.g. "scan.png: png 1240x1754, 312 kB".
func (i Info) String() string {
	return fmt.Sprintf("%s: %s %dx%d, %s", i.Path, i.Format, i.Width, i.Height, humanize.Bytes(uint64(i.Size)))
}

// Inspect reads the header of path and decodes its dimensions.
func Inspect(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return Info{}, err
	}
	if st.IsDir() {
		return Info{}, fmt.Errorf("%s is a directory", path)
	}

	info, err := InspectReader(f)
	info.Path = path
	info.Size = st.Size()
	return info, err
}

// InspectReader sniffs and decodes the image configuration from r.
// Only the header is consumed.
func InspectReader(r io.Reader) (Info, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Info{}, fmt.Errorf("failed to read image header: %w", err)
	}
	head = head[:n]

	info := Info{ContentType: http.DetectContentType(head)}
	cfg, format, err := image.DecodeConfig(io.MultiReader(bytes.NewReader(head), r))
	if err != nil {
		return info, fmt.Errorf("%w (%s): %v", ErrNotImage, info.ContentType, err)
	}
	info.Format = format
	info.Width = cfg.Width
	info.Height = cfg.Height
	if !strings.HasPrefix(info.ContentType, "image/") {
		// tiff and some bmp variants are not recognised by DetectContentType
		info.ContentType = "image/" + format
	}
	return info, nil
}
