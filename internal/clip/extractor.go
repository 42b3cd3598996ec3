// Package clip implements the stream-level media operations: cutting
// time ranges out of a source, lossless concatenation, and silence
// generation. Everything is delegated to ffmpeg processes.
package clip

import (
	"context"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/imosed/vodub/internal/domain"
	"github.com/imosed/vodub/internal/ffmpeg"
	"github.com/imosed/vodub/internal/scratch"
)

type Extractor struct {
	runner ffmpeg.Runner
	ws     *scratch.Workspace
	log    *zap.Logger
}

func NewExtractor(runner ffmpeg.Runner, ws *scratch.Workspace, log *zap.Logger) *Extractor {
	return &Extractor{runner: runner, ws: ws, log: log}
}

// Extract cuts [start, end) out of source into a standalone clip via
// stream copy. Requires end > start >= 0; an end past the source
// duration is truncated by ffmpeg.
func (e *Extractor) Extract(ctx context.Context, source string, start, end float64) (string, error) {
	if start < 0 || end <= start {
		return "", domain.Fail(domain.OpExtract, "invalid range", nil)
	}

	out := e.ws.Clip("cut", outputExt(source))

	res, err := e.runner.Run(ctx, "ffmpeg", ffmpeg.ExtractArgs(source, start, end, out)...)
	if err != nil {
		e.ws.Remove(out)
		return "", domain.Fail(domain.OpExtract, res.Tail(), err)
	}

	e.log.Debug("extracted clip",
		zap.String("source", source),
		zap.Float64("start", start),
		zap.Float64("end", end),
	)

	return out, nil
}

func outputExt(source string) string {
	if ext := filepath.Ext(source); ext != "" {
		return ext
	}
	return ".m4a"
}
