package probe

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/imosed/vodub/internal/domain"
	"github.com/imosed/vodub/internal/ffmpeg"
)

// DefaultTimeout bounds how long one probe may take.
const DefaultTimeout = 10 * time.Second

type Prober struct {
	runner  ffmpeg.Runner
	timeout time.Duration
}

func NewProber(runner ffmpeg.Runner, timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Prober{runner: runner, timeout: timeout}
}

type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Duration reads the clip's container duration in seconds. A missing
// file and a timed-out probe are reported distinctly from generic
// probe failures.
func (p *Prober) Duration(ctx context.Context, clip string) (float64, error) {
	if _, err := os.Stat(clip); err != nil {
		return 0, domain.Fail(domain.OpProbe, "clip not found", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	res, err := p.runner.Run(ctx, "ffprobe", ffmpeg.ProbeArgs(clip)...)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, domain.Fail(domain.OpProbe, clip, domain.ErrProbeTimeout)
		}
		return 0, domain.Fail(domain.OpProbe, res.Tail(), err)
	}

	var out ffprobeOutput
	if err := json.Unmarshal([]byte(res.Stdout), &out); err != nil {
		return 0, domain.Fail(domain.OpProbe, "unparseable ffprobe output", err)
	}

	dur, err := strconv.ParseFloat(out.Format.Duration, 64)
	if err != nil {
		return 0, domain.Fail(domain.OpProbe, "no duration in container metadata", err)
	}

	return dur, nil
}
