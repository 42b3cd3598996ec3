// Package timing fits clips to target durations. Short clips are
// padded with silence, which preserves intelligibility exactly; long
// clips are tempo-compressed with a bounded factor, which preserves it
// approximately. This is what keeps dubbed speech synchronized to the
// original video without prosody-aware synthesis.
package timing

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/imosed/vodub/internal/domain"
	"github.com/imosed/vodub/internal/ffmpeg"
	"github.com/imosed/vodub/internal/scratch"
)

const (
	// SegmentTolerance is the match tolerance for per-segment fits.
	SegmentTolerance = 0.05
	// TrackTolerance is the tighter tolerance for the final track.
	TrackTolerance = 0.01

	// atempo accepts 0.5..2.0 in a single stage; a needed factor past
	// the bound leaves the clip longer than the target, an accepted
	// approximation rather than an error.
	minTempo = 0.5
	maxTempo = 2.0
)

type Normalizer struct {
	runner ffmpeg.Runner
	prober domain.Prober
	ws     *scratch.Workspace
	log    *zap.Logger
}

func NewNormalizer(runner ffmpeg.Runner, prober domain.Prober, ws *scratch.Workspace, log *zap.Logger) *Normalizer {
	return &Normalizer{runner: runner, prober: prober, ws: ws, log: log}
}

// Normalize fits clip to target using the segment-level tolerance.
func (n *Normalizer) Normalize(ctx context.Context, clip string, target float64) (string, error) {
	return n.normalize(ctx, clip, target, SegmentTolerance)
}

// NormalizeTrack fits clip to target using the track-level tolerance.
func (n *Normalizer) NormalizeTrack(ctx context.Context, clip string, target float64) (string, error) {
	return n.normalize(ctx, clip, target, TrackTolerance)
}

func (n *Normalizer) normalize(ctx context.Context, clip string, target, tolerance float64) (string, error) {
	d, err := n.prober.Duration(ctx, clip)
	if err != nil {
		return "", domain.Fail(domain.OpNormalize, "probe input clip", err)
	}

	diff := d - target
	if math.Abs(diff) < tolerance {
		return clip, nil
	}

	out := n.ws.Clip("fitted", ".mp3")

	var args []string
	if diff < 0 {
		args = ffmpeg.PadArgs(clip, target-d, out)
		n.log.Debug("padding clip",
			zap.Float64("duration", d),
			zap.Float64("target", target),
		)
	} else {
		factor := clamp(d/target, minTempo, maxTempo)
		args = ffmpeg.TempoArgs(clip, factor, out)
		n.log.Debug("compressing clip",
			zap.Float64("duration", d),
			zap.Float64("target", target),
			zap.Float64("factor", factor),
		)
	}

	res, err := n.runner.Run(ctx, "ffmpeg", args...)
	if err != nil {
		n.ws.Remove(out)
		return "", domain.Fail(domain.OpNormalize, res.Tail(), err)
	}

	return out, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
