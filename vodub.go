// Package vodub implements the dubbing pipeline for translated video
// audio: per-speaker voice assignment, speech synthesis, duration
// fitting, and assembly of a single dubbed track matched to the
// original audio's length.
//
// # Architecture
//
// The pipeline is assembled from small collaborators, each backed by
// either an ffmpeg process or an external speech service:
//
//   - Segment extraction, concatenation, silence, probing, and
//     duration normalization run as blocking ffmpeg/ffprobe processes.
//   - Synthesis and voice cloning go through the Synthesizer and
//     VoiceCloner interfaces; the elevenlabs package provides the
//     production implementation.
//
// # Basic Usage
//
//	engine, err := vodub.New(vodub.Options{
//	    Synthesizer: speech,
//	    Cloner:      speech,
//	    ScratchDir:  "/var/tmp/vodub",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := engine.Dub(ctx, vodub.DubRequest{
//	    Transcript:  transcript,
//	    Translated:  translated,
//	    SourceAudio: "/var/tmp/vodub/source.m4a",
//	})
//
// One call to Dub is one sequential job. Jobs may run concurrently;
// scratch files are uniquely named so they never collide.
package vodub

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/imosed/vodub/internal/clip"
	"github.com/imosed/vodub/internal/domain"
	"github.com/imosed/vodub/internal/dub"
	"github.com/imosed/vodub/internal/ffmpeg"
	"github.com/imosed/vodub/internal/probe"
	"github.com/imosed/vodub/internal/scratch"
	"github.com/imosed/vodub/internal/timing"
	"github.com/imosed/vodub/internal/voice"
)

type (
	// TranscriptSegment is one diarized utterance with its time slot.
	TranscriptSegment = domain.TranscriptSegment

	// VoiceAssignment binds a speaker to a synthesis voice.
	VoiceAssignment = domain.VoiceAssignment

	// DubResult is the terminal output of a dubbing job.
	DubResult = domain.DubResult

	// Synthesizer turns text plus a voice into an audio clip.
	Synthesizer = domain.Synthesizer

	// VoiceCloner registers a reference clip as a new persistent voice.
	VoiceCloner = domain.VoiceCloner
)

// DefaultVoicePool is the fixed set of stock voices shared round-robin
// by speakers who do not qualify for cloning.
var DefaultVoicePool = []string{
	"21m00Tcm4TlvDq8ikWAM",
	"AZnzlk1XvdvUeBnXmlld",
	"EXAVITQu4vr4xnSDxMaL",
	"ErXwobaYiN019PkySvjV",
	"MF3mGyEYCl7XYWbV9V6O",
	"TxGEqnHWrfWFTfGW9XjX",
}

// Options configures an Engine.
type Options struct {
	// Synthesizer is required. Produces per-segment speech clips.
	Synthesizer Synthesizer

	// Cloner is required. Clones voices for dominant speakers.
	Cloner VoiceCloner

	// ScratchDir holds intermediate clips. Default: os temp dir under
	// "vodub".
	ScratchDir string

	// VoicePool are the default voice IDs for non-cloned speakers.
	// Default: DefaultVoicePool.
	VoicePool []string

	// CloneThreshold is the speaking time, in seconds, at which a
	// speaker's voice is cloned instead of pooled. Default: 60.
	CloneThreshold float64

	// ProbeTimeout bounds each duration probe. Default: 10s.
	ProbeTimeout time.Duration

	// Runner executes ffmpeg/ffprobe. Default: ExecRunner.
	Runner ffmpeg.Runner

	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

func (o *Options) setDefaults() {
	if o.ScratchDir == "" {
		o.ScratchDir = "/tmp/vodub"
	}
	if len(o.VoicePool) == 0 {
		o.VoicePool = DefaultVoicePool
	}
	if o.CloneThreshold == 0 {
		o.CloneThreshold = voice.DefaultCloneThreshold
	}
	if o.ProbeTimeout == 0 {
		o.ProbeTimeout = probe.DefaultTimeout
	}
	if o.Runner == nil {
		o.Runner = ffmpeg.ExecRunner{}
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

// Engine runs dubbing jobs.
type Engine struct {
	pipeline *dub.Pipeline
	ws       *scratch.Workspace
}

// New assembles an Engine from options.
func New(opts Options) (*Engine, error) {
	if opts.Synthesizer == nil {
		return nil, fmt.Errorf("vodub: Synthesizer is required")
	}
	if opts.Cloner == nil {
		return nil, fmt.Errorf("vodub: Cloner is required")
	}
	opts.setDefaults()

	ws, err := scratch.New(opts.ScratchDir)
	if err != nil {
		return nil, fmt.Errorf("vodub: %w", err)
	}

	log := opts.Logger
	prober := probe.NewProber(opts.Runner, opts.ProbeTimeout)
	extractor := clip.NewExtractor(opts.Runner, ws, log)
	concat := clip.NewConcatenator(opts.Runner, ws, log)
	silencer := clip.NewSilencer(opts.Runner, ws, log)
	normalizer := timing.NewNormalizer(opts.Runner, prober, ws, log)
	assigner := voice.NewAssigner(extractor, concat, opts.Cloner, opts.VoicePool, opts.CloneThreshold, log)

	return &Engine{
		pipeline: dub.NewPipeline(assigner, opts.Synthesizer, normalizer, concat, prober, silencer, log),
		ws:       ws,
	}, nil
}

// DubRequest carries one job's inputs. Transcript and Translated must
// be the same sequence, the latter annotated with translations.
type DubRequest struct {
	Transcript  []TranscriptSegment
	Translated  []TranscriptSegment
	SourceAudio string
}

// Dub runs one dubbing job to completion and returns the result or a
// single descriptive failure.
func (e *Engine) Dub(ctx context.Context, req DubRequest) (*DubResult, error) {
	if len(req.Transcript) == 0 {
		return nil, fmt.Errorf("vodub: missing transcript")
	}
	if len(req.Translated) == 0 {
		return nil, fmt.Errorf("vodub: missing translated transcript")
	}
	if req.SourceAudio == "" {
		return nil, fmt.Errorf("vodub: missing source audio")
	}

	return e.pipeline.Dub(ctx, req.Transcript, req.Translated, req.SourceAudio)
}

// ScratchDir exposes the workspace root so callers can place the
// fetched source audio next to the intermediates.
func (e *Engine) ScratchDir() string {
	return e.ws.Root()
}
