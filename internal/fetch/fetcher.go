// Package fetch extracts a video's audio track with yt-dlp. Attempts
// are a declarative ordered list tried until one succeeds, and a
// bounded gate caps how many extractions run at once system-wide.
package fetch

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/imosed/vodub/internal/domain"
	"github.com/imosed/vodub/internal/ffmpeg"
	"github.com/imosed/vodub/internal/scratch"
)

// Attempt is one extraction configuration. Attempts run in order; the
// first one that produces a file wins.
type Attempt struct {
	Name   string
	Format string
	// PlayerClient selects an alternate extractor client, used to work
	// around throttled or gated formats.
	PlayerClient string
}

func (a Attempt) args(videoID, out string) []string {
	args := []string{
		"--no-playlist",
		"--no-progress",
		"-f", a.Format,
		"-o", out,
	}
	if a.PlayerClient != "" {
		args = append(args, "--extractor-args", "youtube:player_client="+a.PlayerClient)
	}
	return append(args, "https://www.youtube.com/watch?v="+videoID)
}

// DefaultAttempts mirrors the fallback ladder observed in practice:
// prefer a clean m4a, then any best audio, then retry via the android
// client.
var DefaultAttempts = []Attempt{
	{Name: "m4a", Format: "bestaudio[ext=m4a]"},
	{Name: "bestaudio", Format: "bestaudio"},
	{Name: "android", Format: "bestaudio", PlayerClient: "android"},
}

type Fetcher struct {
	runner   ffmpeg.Runner
	ws       *scratch.Workspace
	attempts []Attempt
	gate     chan struct{}
	log      *zap.Logger
}

func NewFetcher(runner ffmpeg.Runner, ws *scratch.Workspace, maxConcurrent int, log *zap.Logger) *Fetcher {
	if maxConcurrent <= 0 {
		maxConcurrent = 2
	}
	return &Fetcher{
		runner:   runner,
		ws:       ws,
		attempts: DefaultAttempts,
		gate:     make(chan struct{}, maxConcurrent),
		log:      log,
	}
}

// Audio downloads videoID's audio to scratch storage and returns its
// path. Blocks while the extraction gate is full.
func (f *Fetcher) Audio(ctx context.Context, videoID string) (string, error) {
	select {
	case f.gate <- struct{}{}:
		defer func() { <-f.gate }()
	case <-ctx.Done():
		return "", domain.Fail(domain.OpFetch, "waiting for extraction slot", ctx.Err())
	}

	var lastErr error
	for _, attempt := range f.attempts {
		out := f.ws.Clip("source", ".m4a")

		res, err := f.runner.Run(ctx, "yt-dlp", attempt.args(videoID, out)...)
		if err == nil {
			if _, statErr := os.Stat(out); statErr == nil {
				f.log.Info("audio extracted",
					zap.String("videoID", videoID),
					zap.String("attempt", attempt.Name),
				)
				return out, nil
			}
			err = domain.Fail(domain.OpFetch, "extractor produced no file", nil)
		}

		f.log.Warn("extraction attempt failed",
			zap.String("videoID", videoID),
			zap.String("attempt", attempt.Name),
			zap.String("stderr", res.Tail()),
			zap.Error(err),
		)
		lastErr = err
		f.ws.Remove(out)

		if ctx.Err() != nil {
			return "", domain.Fail(domain.OpFetch, "extraction aborted", ctx.Err())
		}
	}

	return "", domain.Fail(domain.OpFetch, "all extraction attempts exhausted", lastErr)
}
