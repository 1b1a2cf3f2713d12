package document

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"docforge/internal/common"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 32), G: uint8(y * 32), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

// testPDF builds an n-page document from generated raster pages.
func testPDF(t *testing.T, pages int) *Document {
	t.Helper()
	images := make([][]byte, pages)
	for i := range images {
		images[i] = testPNG(t)
	}
	doc, err := FromImages(images)
	if err != nil {
		t.Fatalf("failed to build %d-page test document: %v", pages, err)
	}
	if doc.PageCount() != pages {
		t.Fatalf("test document has %d pages, expected %d", doc.PageCount(), pages)
	}
	return doc
}

func TestLoad_InvalidBytes(t *testing.T) {
	_, err := Load([]byte("this is not a pdf"))
	if err == nil {
		t.Fatal("expected error loading garbage bytes")
	}

	var loadErr *common.DocumentLoadError
	if !errors.As(err, &loadErr) {
		t.Errorf("expected DocumentLoadError, got %T: %v", err, err)
	}
}

func TestLoad_ValidDocument(t *testing.T) {
	doc := testPDF(t, 2)

	reloaded, err := Load(doc.Bytes())
	if err != nil {
		t.Fatalf("expected no error reloading document, got %v", err)
	}
	if reloaded.PageCount() != 2 {
		t.Errorf("expected 2 pages, got %d", reloaded.PageCount())
	}
	if reloaded.IsEncrypted() {
		t.Error("expected document to not be encrypted")
	}
	if reloaded.Size() != int64(len(doc.Bytes())) {
		t.Errorf("expected size %d, got %d", len(doc.Bytes()), reloaded.Size())
	}
}

func TestMerge_PageOrder(t *testing.T) {
	a := testPDF(t, 2)
	b := testPDF(t, 3)

	merged, err := Merge([]*Document{a, b})
	if err != nil {
		t.Fatalf("expected no error merging, got %v", err)
	}
	if merged.PageCount() != 5 {
		t.Errorf("expected merged page count 5, got %d", merged.PageCount())
	}
}

func TestMerge_NoInput(t *testing.T) {
	_, err := Merge(nil)
	if !errors.Is(err, common.ErrNoFilesProvided) {
		t.Errorf("expected ErrNoFilesProvided, got %v", err)
	}
}

func TestExtractPages(t *testing.T) {
	doc := testPDF(t, 4)

	tests := []struct {
		name          string
		indices       []int
		expectedPages int
	}{
		{name: "subset", indices: []int{0, 2}, expectedPages: 2},
		{name: "all pages original order", indices: []int{0, 1, 2, 3}, expectedPages: 4},
		{name: "duplicates allowed", indices: []int{1, 1}, expectedPages: 2},
		{name: "reorder", indices: []int{3, 0, 2}, expectedPages: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extracted, err := doc.ExtractPages(tt.indices)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if extracted.PageCount() != tt.expectedPages {
				t.Errorf("expected %d pages, got %d", tt.expectedPages, extracted.PageCount())
			}
		})
	}
}

func TestExtractPages_EmptySelection(t *testing.T) {
	doc := testPDF(t, 2)

	_, err := doc.ExtractPages(nil)
	if err == nil {
		t.Fatal("expected error for empty selection")
	}
	var reqErr *common.RequestError
	if !errors.As(err, &reqErr) {
		t.Errorf("expected RequestError, got %T: %v", err, err)
	}
}

func TestExtractPages_OutOfRange(t *testing.T) {
	doc := testPDF(t, 2)

	_, err := doc.ExtractPages([]int{5})
	var reqErr *common.RequestError
	if !errors.As(err, &reqErr) {
		t.Errorf("expected RequestError for out-of-range index, got %v", err)
	}
}

func TestRotate_Normalization(t *testing.T) {
	doc := testPDF(t, 2)

	if err := doc.Rotate(map[int]int{1: 270}); err != nil {
		t.Fatalf("first rotation failed: %v", err)
	}
	if err := doc.Rotate(map[int]int{1: 180}); err != nil {
		t.Fatalf("second rotation failed: %v", err)
	}

	// 270 + 180 = 450, normalized to 90
	rotation, err := doc.PageRotation(1)
	if err != nil {
		t.Fatalf("failed to read rotation: %v", err)
	}
	if rotation != 90 {
		t.Errorf("expected rotation 90, got %d", rotation)
	}

	// Untouched page keeps its rotation.
	rotation, err = doc.PageRotation(2)
	if err != nil {
		t.Fatalf("failed to read rotation: %v", err)
	}
	if rotation != 0 {
		t.Errorf("expected page 2 rotation 0, got %d", rotation)
	}
}

func TestRotate_SkipsOutOfRangePages(t *testing.T) {
	doc := testPDF(t, 1)

	if err := doc.Rotate(map[int]int{1: 90, 9: 90}); err != nil {
		t.Fatalf("expected out-of-range page to be skipped, got %v", err)
	}
	rotation, err := doc.PageRotation(1)
	if err != nil {
		t.Fatalf("failed to read rotation: %v", err)
	}
	if rotation != 90 {
		t.Errorf("expected rotation 90, got %d", rotation)
	}
}

func TestSetMetadata(t *testing.T) {
	doc := testPDF(t, 1)

	title := "Quarterly Report"
	author := "Archives"
	if err := doc.SetMetadata(Metadata{Title: &title, Author: &author}); err != nil {
		t.Fatalf("expected no error setting metadata, got %v", err)
	}

	if doc.PageCount() != 1 {
		t.Errorf("expected page count unchanged, got %d", doc.PageCount())
	}

	if got := infoEntry(t, doc, "Title"); got != title {
		t.Errorf("expected title %q, got %q", title, got)
	}
	if got := infoEntry(t, doc, "Author"); got != author {
		t.Errorf("expected author %q, got %q", author, got)
	}
}

func TestSetMetadata_PartialUpdate(t *testing.T) {
	doc := testPDF(t, 1)

	title := "First"
	if err := doc.SetMetadata(Metadata{Title: &title}); err != nil {
		t.Fatalf("failed to set title: %v", err)
	}

	subject := "Second"
	if err := doc.SetMetadata(Metadata{Subject: &subject}); err != nil {
		t.Fatalf("failed to set subject: %v", err)
	}

	// Title from the first pass survives the second.
	if got := infoEntry(t, doc, "Title"); got != title {
		t.Errorf("expected title %q preserved, got %q", title, got)
	}
	if got := infoEntry(t, doc, "Subject"); got != subject {
		t.Errorf("expected subject %q, got %q", subject, got)
	}
}

func infoEntry(t *testing.T, doc *Document, key string) string {
	t.Helper()
	ctx, err := readContext(doc.Bytes())
	if err != nil {
		t.Fatalf("failed to re-read document: %v", err)
	}
	if ctx.Info == nil {
		t.Fatal("document has no info dict")
	}
	infoDict, err := ctx.DereferenceDict(*ctx.Info)
	if err != nil {
		t.Fatalf("failed to dereference info dict: %v", err)
	}
	obj, ok := infoDict[key]
	if !ok {
		return ""
	}
	sl, ok := obj.(types.StringLiteral)
	if !ok {
		t.Fatalf("info entry %s has unexpected type %T", key, obj)
	}
	return string(sl)
}

func TestResave(t *testing.T) {
	doc := testPDF(t, 3)

	resaved, err := doc.Resave()
	if err != nil {
		t.Fatalf("expected no error resaving, got %v", err)
	}
	if resaved.PageCount() != 3 {
		t.Errorf("expected page count preserved, got %d", resaved.PageCount())
	}
}

func TestSniffImage(t *testing.T) {
	format, ok := SniffImage(testPNG(t))
	if !ok || format != "png" {
		t.Errorf("expected png to be supported, got (%q, %v)", format, ok)
	}

	if _, ok := SniffImage([]byte("definitely not an image")); ok {
		t.Error("expected garbage bytes to be unsupported")
	}
}

func TestFromImages_PageCount(t *testing.T) {
	doc := testPDF(t, 3)
	if doc.PageCount() != 3 {
		t.Errorf("expected 3 pages, got %d", doc.PageCount())
	}
}
