package clip

import (
	"context"

	"go.uber.org/zap"

	"github.com/imosed/vodub/internal/domain"
	"github.com/imosed/vodub/internal/ffmpeg"
	"github.com/imosed/vodub/internal/scratch"
)

type Silencer struct {
	runner ffmpeg.Runner
	ws     *scratch.Workspace
	log    *zap.Logger
}

func NewSilencer(runner ffmpeg.Runner, ws *scratch.Workspace, log *zap.Logger) *Silencer {
	return &Silencer{runner: runner, ws: ws, log: log}
}

// Silence writes a clip of digital silence at the pipeline's fixed
// sample configuration, so it concatenates losslessly with synthesized
// speech.
func (s *Silencer) Silence(ctx context.Context, seconds float64) (string, error) {
	if seconds <= 0 {
		return "", domain.Fail(domain.OpSilence, "non-positive duration", nil)
	}

	out := s.ws.Clip("silence", ".mp3")

	res, err := s.runner.Run(ctx, "ffmpeg", ffmpeg.SilenceArgs(seconds, out)...)
	if err != nil {
		s.ws.Remove(out)
		return "", domain.Fail(domain.OpSilence, res.Tail(), err)
	}

	s.log.Debug("generated silence", zap.Float64("seconds", seconds))

	return out, nil
}
