package clip

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/imosed/vodub/internal/domain"
	"github.com/imosed/vodub/internal/ffmpeg"
	"github.com/imosed/vodub/internal/scratch"
)

type Concatenator struct {
	runner ffmpeg.Runner
	ws     *scratch.Workspace
	log    *zap.Logger
}

func NewConcatenator(runner ffmpeg.Runner, ws *scratch.Workspace, log *zap.Logger) *Concatenator {
	return &Concatenator{runner: runner, ws: ws, log: log}
}

// Concat joins clips in the given order into one file via the concat
// demuxer, stream copy only. All clips must share codec parameters.
func (c *Concatenator) Concat(ctx context.Context, clips []string) (string, error) {
	if len(clips) == 0 {
		return "", domain.Fail(domain.OpConcat, "no clips to concatenate", nil)
	}

	listFile, err := c.writeList(clips)
	if err != nil {
		return "", domain.Fail(domain.OpConcat, "write concat list", err)
	}
	defer c.ws.Remove(listFile)

	out := c.ws.Clip("joined", outputExt(clips[0]))

	res, err := c.runner.Run(ctx, "ffmpeg", ffmpeg.ConcatArgs(listFile, out)...)
	if err != nil {
		c.ws.Remove(out)
		return "", domain.Fail(domain.OpConcat, res.Tail(), err)
	}

	c.log.Debug("concatenated clips", zap.Int("count", len(clips)))

	return out, nil
}

// writeList builds the concat demuxer input. Single quotes in paths
// need the '\'' escape the demuxer expects.
func (c *Concatenator) writeList(clips []string) (string, error) {
	var b strings.Builder
	for _, clip := range clips {
		escaped := strings.ReplaceAll(clip, "'", `'\''`)
		fmt.Fprintf(&b, "file '%s'\n", escaped)
	}

	listFile := c.ws.Clip("list", ".txt")
	if err := os.WriteFile(listFile, []byte(b.String()), 0o644); err != nil {
		return "", err
	}
	return listFile, nil
}
