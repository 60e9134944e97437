package mux

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// mux.go implements C10: drives the external audio encoder (via C14) to
// produce the initial multi-track container from N per-stem WAV files
// plus a WebVTT lyric file, using a C15 scratch directory for any
// intermediate files the encoder itself requires.

// StemInput is one encoded-or-raw stem audio file destined for a single
// output track.
type StemInput struct {
	Path string
	Role string // mirrors karaoke.Role as a string to avoid an import cycle
}

// MetadataTag is one iTunes tag passed through to the encoder (©nam etc).
type MetadataTag struct {
	Key   string
	Value string
}

// MuxRequest bundles everything the external encoder needs to produce one
// stem-karaoke container.
type MuxRequest struct {
	OutputPath string
	Stems      []StemInput // mixdown first, order fixed per profile
	VTTPath    string
	Metadata   []MetadataTag
}

// Mux invokes KAI_ENCODER_BIN with the documented command surface,
// streaming progress to onProgress, and returns once the encoder reports
// success. Scratch files live under a C15-managed directory that is
// always removed before Mux returns, success or failure.
func Mux(ctx context.Context, logger *slog.Logger, scratch *ScratchManager, req MuxRequest, onProgress func(Progress)) error {
	if err := validateOutputDir(req.OutputPath); err != nil {
		return err
	}

	bin := os.Getenv("KAI_ENCODER_BIN")
	if bin == "" {
		bin = "kai-encoder"
	}

	dir, err := scratch.New()
	if err != nil {
		return fmt.Errorf("mux: allocating scratch dir: %w", err)
	}
	defer scratch.Remove(dir)

	args := buildEncoderArgs(req, dir)

	if _, err := Run(ctx, logger, bin, args, onProgress); err != nil {
		return fmt.Errorf("mux: %w", err)
	}
	return nil
}

func buildEncoderArgs(req MuxRequest, scratchDir string) []string {
	args := []string{"--out", req.OutputPath, "--scratch", scratchDir, "--vtt", req.VTTPath}
	for _, s := range req.Stems {
		args = append(args, "--stem", fmt.Sprintf("%s=%s", s.Role, s.Path))
	}
	for _, m := range req.Metadata {
		args = append(args, "--meta", fmt.Sprintf("%s=%s", m.Key, m.Value))
	}
	return args
}

// validateOutputDir ensures the encoder's output directory exists before
// invocation, since the encoder itself does not create intermediate
// directories.
func validateOutputDir(path string) error {
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("mux: output directory %s: %w", dir, err)
	}
	return nil
}
