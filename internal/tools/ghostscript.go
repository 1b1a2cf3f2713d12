// Package tools invokes external document-processing binaries in isolated
// subprocesses. The command runner is injectable so tests can substitute a
// fake binary.
package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"docforge/internal/common"
)

// Runner executes an external command and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

// Options holds advanced quality-reduction options
type Options struct {
	ImageDPI           int    `json:"image_dpi"`
	ImageQuality       int    `json:"image_quality"`
	PDFVersion         string `json:"pdf_version"`
	EmbedFonts         bool   `json:"embed_fonts"`
	RemoveMetadata     bool   `json:"remove_metadata"`
	ConvertToGrayscale bool   `json:"convert_to_grayscale"`
}

// DefaultOptions returns default quality-reduction options
func DefaultOptions() Options {
	return Options{
		ImageDPI:     150,
		ImageQuality: 85,
		PDFVersion:   "1.4",
		EmbedFonts:   true,
	}
}

// Ghostscript adapts the platform quality-reduction binary. A zero binPath
// means the tool is unavailable and every invocation returns
// common.ErrToolUnavailable.
type Ghostscript struct {
	binPath string
	timeout time.Duration
	runner  Runner
	logger  *slog.Logger
}

// NewGhostscript creates a new ghostscript adapter. A nil runner selects the
// real subprocess runner.
func NewGhostscript(binPath string, timeout time.Duration, runner Runner, logger *slog.Logger) *Ghostscript {
	if runner == nil {
		runner = execRunner{}
	}
	return &Ghostscript{
		binPath: binPath,
		timeout: timeout,
		runner:  runner,
		logger:  logger,
	}
}

// Available reports whether a quality-reduction binary was found.
func (g *Ghostscript) Available() bool {
	return g.binPath != ""
}

// Compress reduces inputPath into outputPath using the named preset.
func (g *Ghostscript) Compress(ctx context.Context, inputPath, outputPath, preset string, options *Options) error {
	if !g.Available() {
		return common.ErrToolUnavailable
	}

	if options == nil {
		defaultOptions := DefaultOptions()
		options = &defaultOptions
	}

	// Validate and set defaults for required fields if they are empty
	if options.PDFVersion == "" {
		options.PDFVersion = "1.4"
	}
	if options.ImageDPI <= 0 {
		options.ImageDPI = 150
	}
	if options.ImageQuality <= 0 {
		options.ImageQuality = 85
	}

	// Handle grayscale conversion if needed
	actualInputPath := inputPath
	if options.ConvertToGrayscale {
		tempGrayscalePath := strings.Replace(inputPath, ".pdf", "_grayscale_temp.pdf", 1)

		if err := g.convertToGrayscale(ctx, inputPath, tempGrayscalePath); err != nil {
			return fmt.Errorf("grayscale conversion failed: %w", err)
		}

		actualInputPath = tempGrayscalePath
		defer os.Remove(tempGrayscalePath)
	}

	args := []string{
		"-sDEVICE=pdfwrite",
		"-dPDFSETTINGS=" + pdfSettings(preset),
		"-dCompatibilityLevel=" + options.PDFVersion,
		"-dNOPAUSE",
		"-dQUIET",
		"-dBATCH",
		"-dAutoRotatePages=/None",
		"-dColorImageDownsampleType=/Bicubic",
		fmt.Sprintf("-dColorImageResolution=%d", options.ImageDPI),
		"-dGrayImageDownsampleType=/Bicubic",
		fmt.Sprintf("-dGrayImageResolution=%d", options.ImageDPI),
		"-dMonoImageDownsampleType=/Bicubic",
		fmt.Sprintf("-dMonoImageResolution=%d", options.ImageDPI),
		"-dColorConversionStrategy=/sRGB",
		fmt.Sprintf("-dEmbedAllFonts=%t", options.EmbedFonts),
		"-dSubsetFonts=true",
		"-dOptimize=true",
		"-dDownsampleColorImages=true",
		"-dDownsampleGrayImages=true",
		"-dDownsampleMonoImages=true",
	}

	if preset == common.PresetUltra {
		args = append(args, "-dCompressFonts=true", "-dCompressStreams=true")
	}

	if options.RemoveMetadata {
		args = append(args, "-dPDFX", "-dUseCIEColor")
	}

	args = append(args, "-sOutputFile="+outputPath, actualInputPath)

	if err := g.run(ctx, args); err != nil {
		return err
	}

	// A zero exit without an output file is still a failure.
	if _, err := os.Stat(outputPath); os.IsNotExist(err) {
		return &common.ToolError{Tool: "ghostscript", Err: errors.New("no output file produced")}
	}

	return nil
}

// convertToGrayscale rewrites a PDF with a grayscale process color model.
func (g *Ghostscript) convertToGrayscale(ctx context.Context, inputPath, outputPath string) error {
	args := []string{
		"-sDEVICE=pdfwrite",
		"-sProcessColorModel=DeviceGray",
		"-dOverrideICC",
		"-dUseCIEColor",
		"-dCompatibilityLevel=1.4",
		"-dNOPAUSE",
		"-dQUIET",
		"-dBATCH",
		"-sOutputFile=" + outputPath,
		inputPath,
	}
	return g.run(ctx, args)
}

func (g *Ghostscript) run(ctx context.Context, args []string) error {
	runCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	g.logger.Debug("Invoking ghostscript", "bin", g.binPath, "timeout", g.timeout)
	output, err := g.runner.Run(runCtx, g.binPath, args...)
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return &common.ToolError{Tool: "ghostscript", Timeout: true, Output: string(output), Err: runCtx.Err()}
		}
		return &common.ToolError{Tool: "ghostscript", Output: string(output), Err: err}
	}
	return nil
}

func pdfSettings(preset string) string {
	switch preset {
	case common.PresetUltra:
		return "/screen"
	case common.PresetAggressive:
		return "/ebook"
	default: // good_enough
		return "/printer"
	}
}
