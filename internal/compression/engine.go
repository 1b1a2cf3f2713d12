// Package compression searches a descending-quality preset ladder for the
// smallest artifact meeting a target size, falling back to an in-process
// structural resave when no external tool is available.
package compression

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"docforge/internal/common"
	"docforge/internal/document"
	"docforge/internal/tools"
)

// Tool abstracts the external quality-reduction binary so tests can assert
// on chosen presets without a real installation.
type Tool interface {
	Available() bool
	Compress(ctx context.Context, inputPath, outputPath, preset string, options *tools.Options) error
}

// FallbackWarning is attached to degraded results produced without the
// external tool. It is informational, never an error.
const FallbackWarning = "quality reduction tool unavailable, applied structural resave only"

// Result is the outcome of one compression call. Exactly one candidate is
// promoted into it; all others are deleted before returning.
type Result struct {
	Data         []byte
	Size         int64
	OriginalSize int64
	Preset       string
	Warning      string
	Skipped      bool
}

// Engine drives the preset search.
type Engine struct {
	tool    Tool
	workDir string
	logger  *slog.Logger
}

// NewEngine creates a new compression engine
func NewEngine(tool Tool, workDir string, logger *slog.Logger) *Engine {
	return &Engine{
		tool:    tool,
		workDir: workDir,
		logger:  logger,
	}
}

type candidate struct {
	path   string
	size   int64
	preset string
}

// Compress reduces doc according to target. A nil target runs only preset
// (or the default when empty). A target <= 0 is never satisfied early: the
// search runs the full ladder and the smallest candidate wins. The first
// candidate at or under a positive target is promoted greedily.
func (e *Engine) Compress(ctx context.Context, doc *document.Document, target *int64, preset string, options *tools.Options) (*Result, error) {
	originalSize := doc.Size()

	// Already small enough: return a verbatim copy, preserving quality.
	if target != nil && *target > 0 && originalSize <= *target {
		e.logger.Info("Skipping compression, input meets target size", "size", originalSize, "target", *target)
		return &Result{
			Data:         doc.Bytes(),
			Size:         originalSize,
			OriginalSize: originalSize,
			Preset:       "none",
			Skipped:      true,
		}, nil
	}

	if !e.tool.Available() {
		return e.fallback(doc)
	}

	tempDir := filepath.Join(e.workDir, common.GenerateUUID())
	if err := os.MkdirAll(tempDir, common.DefaultFilePermissions); err != nil {
		return nil, common.NewOperationError("compress", err)
	}
	defer os.RemoveAll(tempDir)

	inputPath := filepath.Join(tempDir, "source.pdf")
	if err := os.WriteFile(inputPath, doc.Bytes(), 0o644); err != nil {
		return nil, common.NewOperationError("compress", err)
	}

	if preset == "" {
		preset = common.DefaultPreset
	}
	ladder := []string{preset}
	if target != nil {
		ladder = common.PresetLadder()
	}

	var best *candidate
	var lastErr error
	for _, preset := range ladder {
		outputPath := filepath.Join(tempDir, "candidate_"+preset+".pdf")
		if err := e.tool.Compress(ctx, inputPath, outputPath, preset, options); err != nil {
			e.logger.Warn("Preset invocation failed", "preset", preset, "error", err)
			lastErr = err
			continue
		}

		info, err := os.Stat(outputPath)
		if err != nil {
			lastErr = err
			continue
		}
		size := info.Size()

		// Greedy: the first candidate meeting a positive target wins.
		if target != nil && *target > 0 && size <= *target {
			if best != nil {
				os.Remove(best.path)
			}
			return e.promote(&candidate{path: outputPath, size: size, preset: preset}, originalSize)
		}

		// Track the smallest candidate seen, discarding superseded files
		// immediately to bound temp disk usage.
		if best == nil || size < best.size {
			if best != nil {
				os.Remove(best.path)
			}
			best = &candidate{path: outputPath, size: size, preset: preset}
		} else {
			os.Remove(outputPath)
		}
	}

	if best == nil {
		return nil, &common.CompressionFailure{Err: lastErr}
	}
	return e.promote(best, originalSize)
}

func (e *Engine) promote(c *candidate, originalSize int64) (*Result, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, common.NewOperationError("compress", err)
	}
	e.logger.Info("Promoting compression candidate", "preset", c.preset, "size", c.size, "original_size", originalSize)
	return &Result{
		Data:         data,
		Size:         c.size,
		OriginalSize: originalSize,
		Preset:       c.preset,
	}, nil
}

// fallback performs an in-process structural resave. It strips unused objects
// but never resamples images, so the result is flagged with a warning.
func (e *Engine) fallback(doc *document.Document) (*Result, error) {
	e.logger.Warn("Quality reduction tool unavailable, using structural resave")

	resaved, err := doc.Resave()
	if err != nil {
		return nil, &common.CompressionFailure{Err: err}
	}

	// A resave can come out larger than a well-packed source; keep whichever
	// is smaller.
	data := resaved.Bytes()
	if resaved.Size() >= doc.Size() {
		data = doc.Bytes()
	}

	return &Result{
		Data:         data,
		Size:         int64(len(data)),
		OriginalSize: doc.Size(),
		Preset:       "resave",
		Warning:      FallbackWarning,
	}, nil
}
