// Package engine routes requested operations to the processing components,
// validating inputs up front and normalizing outcomes into artifact
// descriptors.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"docforge/internal/common"
	"docforge/internal/compression"
	"docforge/internal/database"
	"docforge/internal/document"
	"docforge/internal/pages"
	"docforge/internal/store"
	"docforge/internal/tools"
)

// Operation identifies one of the supported document transformations.
type Operation string

const (
	OpCompress   Operation = "compress"
	OpMerge      Operation = "merge"
	OpSplit      Operation = "split"
	OpOrganise   Operation = "organise"
	OpRotate     Operation = "rotate"
	OpImageToPDF Operation = "image-to-pdf"
	OpMetadata   Operation = "metadata"
	OpValidate   Operation = "validate"
)

// Input is one uploaded file, owned by the dispatcher for a single request.
type Input struct {
	Filename string
	Data     []byte
}

// Params carries the operation-specific request parameters. Nil pointer
// fields were not supplied.
type Params struct {
	TargetSize *int64
	Pages      string
	PageOrder  string
	Rotations  string
	Title      *string
	Author     *string
	Subject    *string
	Keywords   *string
}

// ValidationStatus classifies a document inspected by the validate operation.
type ValidationStatus string

const (
	StatusReady   ValidationStatus = "READY"
	StatusRisky   ValidationStatus = "RISKY"
	StatusInvalid ValidationStatus = "INVALID"
)

// ValidationReport is derived once per validate call, never persisted.
type ValidationReport struct {
	Status    ValidationStatus `json:"status"`
	PageCount int              `json:"pageCount"`
	Size      int64            `json:"size"`
}

// Result describes a completed operation. Artifact fields are empty for
// validate, which produces a report instead of a file.
type Result struct {
	ArtifactName string            `json:"artifactName,omitempty"`
	Filename     string            `json:"filename,omitempty"`
	Size         int64             `json:"size"`
	OriginalSize *int64            `json:"originalSize,omitempty"`
	PageCount    *int              `json:"pageCount,omitempty"`
	Warning      string            `json:"warning,omitempty"`
	Validation   *ValidationReport `json:"validation,omitempty"`
}

// Engine is the operation dispatcher. It owns no state beyond its wired
// components, so one instance serves all concurrent requests.
type Engine struct {
	compressor *compression.Engine
	artifacts  *store.Store
	db         *database.Database
	riskySize  int64
	logger     *slog.Logger
}

// New wires a dispatcher. db may be nil, in which case preferences fall back
// to defaults and statistics recording is disabled.
func New(compressor *compression.Engine, artifacts *store.Store, db *database.Database, riskySize int64, logger *slog.Logger) *Engine {
	return &Engine{
		compressor: compressor,
		artifacts:  artifacts,
		db:         db,
		riskySize:  riskySize,
		logger:     logger,
	}
}

// Dispatch validates the request, executes the operation and stores its
// output. Failure terminates the request; there is no retry.
func (e *Engine) Dispatch(ctx context.Context, op Operation, inputs []Input, params Params) (*Result, error) {
	logger := e.logger.With("request_id", common.GenerateUUID(), "operation", string(op), "input_count", len(inputs))

	if len(inputs) == 0 {
		return nil, common.ErrNoFilesProvided
	}
	if op == OpMerge && len(inputs) < 2 {
		return nil, common.NewRequestError("merge requires at least two files")
	}

	started := time.Now()
	result, err := e.execute(ctx, op, inputs, params, logger)
	if err != nil {
		logger.Warn("Operation failed", "error", err, "duration", time.Since(started))
		return nil, err
	}

	logger.Info("Operation completed", "artifact", result.ArtifactName, "size", result.Size, "duration", time.Since(started))
	return result, nil
}

func (e *Engine) execute(ctx context.Context, op Operation, inputs []Input, params Params, logger *slog.Logger) (*Result, error) {
	switch op {
	case OpCompress:
		return e.compress(ctx, inputs[0], params)
	case OpMerge:
		return e.merge(ctx, inputs)
	case OpSplit:
		return e.split(ctx, inputs[0], params.Pages)
	case OpOrganise:
		return e.organise(ctx, inputs[0], params.PageOrder)
	case OpRotate:
		return e.rotate(ctx, inputs[0], params.Rotations)
	case OpImageToPDF:
		return e.imageToPDF(inputs, logger)
	case OpMetadata:
		return e.metadata(ctx, inputs[0], params)
	case OpValidate:
		return e.validate(inputs[0]), nil
	default:
		return nil, common.NewRequestError("unknown operation %q", op)
	}
}

func (e *Engine) compress(ctx context.Context, input Input, params Params) (*Result, error) {
	doc, err := document.Load(input.Data)
	if err != nil {
		return nil, err
	}

	preset, options := e.compressionSettings()
	compressed, err := e.compressor.Compress(ctx, doc, params.TargetSize, preset, options)
	if err != nil {
		return nil, err
	}

	original := compressed.OriginalSize
	result, err := e.store(OpCompress, compressed.Data, outputName(input.Filename, "compressed"), doc.Size())
	if err != nil {
		return nil, err
	}
	result.OriginalSize = &original
	result.Warning = compressed.Warning
	return result, nil
}

func (e *Engine) merge(ctx context.Context, inputs []Input) (*Result, error) {
	docs, err := e.loadAll(ctx, inputs)
	if err != nil {
		return nil, err
	}

	merged, err := document.Merge(docs)
	if err != nil {
		return nil, common.NewOperationError(string(OpMerge), err)
	}

	var bytesIn int64
	for _, in := range inputs {
		bytesIn += int64(len(in.Data))
	}

	result, err := e.store(OpMerge, merged.Bytes(), outputName(inputs[0].Filename, "merged"), bytesIn)
	if err != nil {
		return nil, err
	}
	pageCount := merged.PageCount()
	result.PageCount = &pageCount
	return result, nil
}

func (e *Engine) split(ctx context.Context, input Input, spec string) (*Result, error) {
	return e.extract(OpSplit, input, pages.ParseSelection, spec, "extracted", "page selection resolves to no pages")
}

func (e *Engine) organise(ctx context.Context, input Input, spec string) (*Result, error) {
	return e.extract(OpOrganise, input, pages.ParseOrder, spec, "reordered", "page order resolves to no pages")
}

// extract backs both split and organise; the two differ only in how the
// range spec resolves.
func (e *Engine) extract(op Operation, input Input, parse func(string, int) []int, spec, suffix, emptyReason string) (*Result, error) {
	doc, err := document.Load(input.Data)
	if err != nil {
		return nil, err
	}

	selected := parse(spec, doc.PageCount())
	if len(selected) == 0 {
		return nil, common.NewRequestError("%s", emptyReason)
	}

	extracted, err := doc.ExtractPages(pages.ZeroBased(selected))
	if err != nil {
		return nil, err
	}

	result, err := e.store(op, extracted.Bytes(), outputName(input.Filename, suffix), doc.Size())
	if err != nil {
		return nil, err
	}
	pageCount := extracted.PageCount()
	result.PageCount = &pageCount
	return result, nil
}

func (e *Engine) rotate(ctx context.Context, input Input, spec string) (*Result, error) {
	doc, err := document.Load(input.Data)
	if err != nil {
		return nil, err
	}

	rotations := pages.ParseRotations(spec, doc.PageCount())
	if len(rotations) == 0 {
		return nil, common.NewRequestError("rotation spec resolves to no pages")
	}

	if err := doc.Rotate(rotations); err != nil {
		return nil, common.NewOperationError(string(OpRotate), err)
	}

	result, err := e.store(OpRotate, doc.Bytes(), outputName(input.Filename, "rotated"), int64(len(input.Data)))
	if err != nil {
		return nil, err
	}
	pageCount := doc.PageCount()
	result.PageCount = &pageCount
	return result, nil
}

func (e *Engine) imageToPDF(inputs []Input, logger *slog.Logger) (*Result, error) {
	var images [][]byte
	var bytesIn int64
	for _, in := range inputs {
		bytesIn += int64(len(in.Data))
		if _, ok := document.SniffImage(in.Data); !ok {
			// Unsupported inputs are skipped, not fatal.
			logger.Debug("Skipping unsupported image", "filename", in.Filename)
			continue
		}
		images = append(images, in.Data)
	}
	if len(images) == 0 {
		return nil, common.NewRequestError("no supported image files provided")
	}

	doc, err := document.FromImages(images)
	if err != nil {
		return nil, common.NewOperationError(string(OpImageToPDF), err)
	}

	result, err := e.store(OpImageToPDF, doc.Bytes(), outputName(inputs[0].Filename, "converted"), bytesIn)
	if err != nil {
		return nil, err
	}
	pageCount := doc.PageCount()
	result.PageCount = &pageCount
	return result, nil
}

func (e *Engine) metadata(ctx context.Context, input Input, params Params) (*Result, error) {
	doc, err := document.Load(input.Data)
	if err != nil {
		return nil, err
	}

	meta := document.Metadata{
		Title:    params.Title,
		Author:   params.Author,
		Subject:  params.Subject,
		Keywords: params.Keywords,
	}
	if err := doc.SetMetadata(meta); err != nil {
		return nil, common.NewOperationError(string(OpMetadata), err)
	}

	return e.store(OpMetadata, doc.Bytes(), outputName(input.Filename, "metadata"), int64(len(input.Data)))
}

// validate never fails the request: unreadable or encrypted input yields an
// INVALID report rather than an error.
func (e *Engine) validate(input Input) *Result {
	size := int64(len(input.Data))
	report := &ValidationReport{Size: size}

	doc, err := document.Load(input.Data)
	switch {
	case err != nil:
		report.Status = StatusInvalid
	case doc.IsEncrypted():
		report.Status = StatusInvalid
		report.PageCount = doc.PageCount()
	case size > e.riskySize:
		report.Status = StatusRisky
		report.PageCount = doc.PageCount()
	default:
		report.Status = StatusReady
		report.PageCount = doc.PageCount()
	}

	return &Result{Size: size, Validation: report}
}

// store writes the output artifact and folds the operation into the
// lifetime statistics.
func (e *Engine) store(op Operation, data []byte, filename string, bytesIn int64) (*Result, error) {
	artifact, err := e.artifacts.Put(data, filename)
	if err != nil {
		return nil, common.NewOperationError(string(op), err)
	}

	e.recordStats(bytesIn, artifact.Size)

	return &Result{
		ArtifactName: artifact.Name,
		Filename:     filename,
		Size:         artifact.Size,
	}, nil
}

// loadAll parses inputs concurrently with bounded parallelism, preserving
// input order in the result.
func (e *Engine) loadAll(ctx context.Context, inputs []Input) ([]*document.Document, error) {
	docs := make([]*document.Document, len(inputs))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(common.MaxIntakeConcurrency)
	for i, in := range inputs {
		g.Go(func() error {
			doc, err := document.Load(in.Data)
			if err != nil {
				return fmt.Errorf("%s: %w", in.Filename, err)
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

// compressionSettings resolves the stored preferences into tool options and
// the default preset. Without a database the engine runs on built-in defaults.
func (e *Engine) compressionSettings() (string, *tools.Options) {
	if e.db == nil {
		return "", nil
	}
	prefs, err := e.db.GetPreferences()
	if err != nil {
		e.logger.Warn("Failed to load preferences, using defaults", "error", err)
		return "", nil
	}
	return prefs.DefaultPreset, &tools.Options{
		ImageDPI:           prefs.ImageDPI,
		ImageQuality:       prefs.ImageQuality,
		PDFVersion:         prefs.PDFVersion,
		EmbedFonts:         prefs.EmbedFonts,
		RemoveMetadata:     prefs.RemoveMetadata,
		ConvertToGrayscale: prefs.ConvertToGrayscale,
	}
}

func (e *Engine) recordStats(bytesIn, bytesOut int64) {
	if e.db == nil {
		return
	}
	if err := e.db.RecordOperation(bytesIn, bytesOut); err != nil {
		e.logger.Warn("Failed to record operation statistics", "error", err)
	}
}

// outputName derives a download filename from the first input, suffixed with
// the operation and a UTC timestamp.
func outputName(inputName, suffix string) string {
	base := strings.TrimSuffix(filepath.Base(inputName), filepath.Ext(inputName))
	if base == "" || base == "." {
		base = "document"
	}
	return fmt.Sprintf("%s_%s_%s.pdf", base, suffix, time.Now().UTC().Format("20060102_150405"))
}
