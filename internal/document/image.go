package document

import (
	"bytes"
	"fmt"
	"image"
	"io"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"docforge/internal/common"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// SniffImage reports the decoded image format of data and whether it is one
// the page embedder accepts. Unsupported inputs are the caller's cue to skip,
// not to fail.
func SniffImage(data []byte) (string, bool) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", false
	}
	switch format {
	case "jpeg", "png", "tiff", "webp":
		return format, true
	default:
		return "", false
	}
}

// FromImages builds a document with one page per image, each page sized to
// the image's native pixel dimensions. Inputs must already be filtered
// through SniffImage.
func FromImages(images [][]byte) (*Document, error) {
	if len(images) == 0 {
		return nil, common.ErrNoFilesProvided
	}

	readers := make([]io.Reader, len(images))
	for i, img := range images {
		readers[i] = bytes.NewReader(img)
	}

	var buf bytes.Buffer
	if err := api.ImportImages(nil, &buf, readers, nil, relaxedConf()); err != nil {
		return nil, fmt.Errorf("image import failed: %w", err)
	}
	return Load(buf.Bytes())
}
