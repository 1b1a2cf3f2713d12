// Package document provides in-process load/mutate/save of PDF structure on
// top of pdfcpu. Loading is fail-fast on malformed input; mutating operations
// round-trip through a validated context.
package document

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"docforge/internal/common"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Document is an immutable-by-convention handle on parsed PDF bytes.
// Mutating operations return or replace the full byte slice.
type Document struct {
	data      []byte
	pageCount int
	encrypted bool
}

func relaxedConf() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

func readContext(data []byte) (*model.Context, error) {
	ctx, err := api.ReadContext(bytes.NewReader(data), relaxedConf())
	if err != nil {
		return nil, err
	}
	if err := api.ValidateContext(ctx); err != nil {
		return nil, err
	}
	return ctx, nil
}

func writeContext(ctx *model.Context) ([]byte, error) {
	if err := api.OptimizeContext(ctx); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := api.WriteContext(ctx, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Load parses and validates raw PDF bytes.
func Load(data []byte) (*Document, error) {
	ctx, err := readContext(data)
	if err != nil {
		return nil, common.NewDocumentLoadError(err)
	}
	return &Document{
		data:      data,
		pageCount: ctx.PageCount,
		encrypted: ctx.Encrypt != nil,
	}, nil
}

// Bytes returns the serialized document.
func (d *Document) Bytes() []byte {
	return d.data
}

// Size returns the serialized size in bytes.
func (d *Document) Size() int64 {
	return int64(len(d.data))
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	return d.pageCount
}

// IsEncrypted reports whether the document carries an encryption dictionary.
func (d *Document) IsEncrypted() bool {
	return d.encrypted
}

// Merge appends the pages of docs in exact input order into a new document.
func Merge(docs []*Document) (*Document, error) {
	if len(docs) == 0 {
		return nil, common.ErrNoFilesProvided
	}

	readers := make([]io.ReadSeeker, len(docs))
	for i, doc := range docs {
		readers[i] = bytes.NewReader(doc.data)
	}

	var buf bytes.Buffer
	if err := api.MergeRaw(readers, &buf, false, relaxedConf()); err != nil {
		return nil, fmt.Errorf("merge failed: %w", err)
	}
	return Load(buf.Bytes())
}

// ExtractPages builds a new document containing copies of the referenced
// pages, 0-based, in the given order. Duplicates are honored, which lets one
// primitive back both page selection and reordering.
func (d *Document) ExtractPages(indices []int) (*Document, error) {
	if len(indices) == 0 {
		return nil, common.NewRequestError("page selection resolves to no pages")
	}

	selected := make([]string, len(indices))
	for i, idx := range indices {
		if idx < 0 || idx >= d.pageCount {
			return nil, common.NewRequestError("page index %d out of range", idx+1)
		}
		selected[i] = strconv.Itoa(idx + 1)
	}

	var buf bytes.Buffer
	if err := api.Collect(bytes.NewReader(d.data), &buf, selected, relaxedConf()); err != nil {
		return nil, fmt.Errorf("page extraction failed: %w", err)
	}
	return Load(buf.Bytes())
}

// Rotate adds the given degree delta to each referenced page's current
// rotation, 1-based, normalized to [0,360). Pages outside the document are
// skipped.
func (d *Document) Rotate(rotations map[int]int) error {
	ctx, err := readContext(d.data)
	if err != nil {
		return common.NewDocumentLoadError(err)
	}

	for page, delta := range rotations {
		if page < 1 || page > ctx.PageCount {
			continue
		}
		pageDict, _, inhPAttrs, err := ctx.PageDict(page, false)
		if err != nil {
			return fmt.Errorf("page %d lookup failed: %w", page, err)
		}
		normalized := ((inhPAttrs.Rotate+delta)%360 + 360) % 360
		pageDict["Rotate"] = types.Integer(normalized)
	}

	data, err := writeContext(ctx)
	if err != nil {
		return fmt.Errorf("rotate failed: %w", err)
	}

	updated, err := Load(data)
	if err != nil {
		return err
	}
	*d = *updated
	return nil
}

// PageRotation returns the effective rotation of a 1-based page.
func (d *Document) PageRotation(page int) (int, error) {
	ctx, err := readContext(d.data)
	if err != nil {
		return 0, common.NewDocumentLoadError(err)
	}
	if page < 1 || page > ctx.PageCount {
		return 0, fmt.Errorf("page %d out of range", page)
	}
	_, _, inhPAttrs, err := ctx.PageDict(page, false)
	if err != nil {
		return 0, fmt.Errorf("page %d lookup failed: %w", page, err)
	}
	return ((inhPAttrs.Rotate % 360) + 360) % 360, nil
}

// Metadata carries document info fields; nil fields are left untouched.
type Metadata struct {
	Title    *string
	Author   *string
	Subject  *string
	Keywords *string
}

// SetMetadata overwrites only the supplied info fields. pdfcpu stamps its
// producer tag on every write, so the producer entry is always refreshed last.
func (d *Document) SetMetadata(meta Metadata) error {
	ctx, err := readContext(d.data)
	if err != nil {
		return common.NewDocumentLoadError(err)
	}

	var infoDict types.Dict
	if ctx.Info != nil {
		infoDict, err = ctx.DereferenceDict(*ctx.Info)
		if err != nil {
			return fmt.Errorf("info dict lookup failed: %w", err)
		}
	}
	if infoDict == nil {
		infoDict = types.NewDict()
		ir, err := ctx.IndRefForNewObject(infoDict)
		if err != nil {
			return fmt.Errorf("info dict creation failed: %w", err)
		}
		ctx.Info = ir
	}

	if meta.Title != nil {
		infoDict["Title"] = types.StringLiteral(*meta.Title)
	}
	if meta.Author != nil {
		infoDict["Author"] = types.StringLiteral(*meta.Author)
	}
	if meta.Subject != nil {
		infoDict["Subject"] = types.StringLiteral(*meta.Subject)
	}
	if meta.Keywords != nil {
		infoDict["Keywords"] = types.StringLiteral(*meta.Keywords)
	}

	data, err := writeContext(ctx)
	if err != nil {
		return fmt.Errorf("metadata update failed: %w", err)
	}

	updated, err := Load(data)
	if err != nil {
		return err
	}
	*d = *updated
	return nil
}

// Resave rewrites the document through a structural optimization pass,
// dropping unused objects without resampling images. This is the compression
// fallback when no external tool is available.
func (d *Document) Resave() (*Document, error) {
	ctx, err := readContext(d.data)
	if err != nil {
		return nil, common.NewDocumentLoadError(err)
	}
	data, err := writeContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("resave failed: %w", err)
	}
	return Load(data)
}
