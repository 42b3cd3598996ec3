// Package dub conducts the dubbing pipeline: voice assignment,
// per-segment synthesis and duration fitting, concatenation, and the
// final global duration correction against the original audio.
package dub

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/imosed/vodub/internal/domain"
	"github.com/imosed/vodub/internal/timing"
)

// Stage names the orchestrator's linear states. There is no branching
// back; Errored is reachable from any stage on a job-fatal failure.
type Stage string

const (
	StageStart               Stage = "start"
	StageVoicesAssigned      Stage = "voices-assigned"
	StageSegmentsSynthesized Stage = "segments-synthesized"
	StageConcatenated        Stage = "concatenated"
	StageGloballyNormalized  Stage = "globally-normalized"
	StageDone                Stage = "done"
)

type Pipeline struct {
	assigner domain.VoiceAssigner
	synth    domain.Synthesizer
	norm     domain.Normalizer
	concat   domain.Concatenator
	probe    domain.Prober
	silence  domain.SilenceGenerator
	log      *zap.Logger
}

func NewPipeline(
	assigner domain.VoiceAssigner,
	synth domain.Synthesizer,
	norm domain.Normalizer,
	concat domain.Concatenator,
	probe domain.Prober,
	silence domain.SilenceGenerator,
	log *zap.Logger,
) *Pipeline {
	return &Pipeline{
		assigner: assigner,
		synth:    synth,
		norm:     norm,
		concat:   concat,
		probe:    probe,
		silence:  silence,
		log:      log,
	}
}

// Dub turns a transcript and its translation into one dubbed track
// duration-matched to sourceAudio. Segment-level failures degrade to
// silence placeholders; only final concatenation and the global
// duration check can fail the job.
func (p *Pipeline) Dub(ctx context.Context, transcript, translated []domain.TranscriptSegment, sourceAudio string) (*domain.DubResult, error) {
	if len(transcript) == 0 || sourceAudio == "" {
		return nil, fmt.Errorf("stage %s: missing transcript or source audio", StageStart)
	}
	if len(translated) != len(transcript) {
		return nil, fmt.Errorf("stage %s: translated transcript has %d segments, transcript has %d",
			StageStart, len(translated), len(transcript))
	}

	assignments, profiles := p.assigner.Assign(ctx, transcript, sourceAudio)
	p.logStage(StageVoicesAssigned, zap.Int("speakers", len(profiles)))

	clips, skipped := p.synthesizeSegments(ctx, transcript, translated, assignments)
	p.logStage(StageSegmentsSynthesized,
		zap.Int("segments", len(transcript)),
		zap.Int("skipped", len(skipped)),
	)

	if len(clips) == 0 {
		return nil, fmt.Errorf("stage %s: %w", StageConcatenated,
			domain.Fail(domain.OpConcat, "no segments produced", nil))
	}

	track, err := p.concat.Concat(ctx, clips)
	if err != nil {
		return nil, fmt.Errorf("stage %s: %w", StageConcatenated, err)
	}
	p.logStage(StageConcatenated, zap.Int("clips", len(clips)))

	final, err := p.matchSourceDuration(ctx, track, sourceAudio)
	if err != nil {
		return nil, err
	}
	p.logStage(StageGloballyNormalized, zap.String("asset", final))

	durations := make(map[string]float64, len(profiles))
	for _, prof := range profiles {
		durations[prof.Speaker] = prof.TotalSeconds
	}

	result := &domain.DubResult{
		SpeakerDurations: durations,
		Assignments:      assignments,
		AudioPath:        final,
		SkippedSegments:  skipped,
		StatusMessage:    statusMessage(len(transcript), skipped, assignments),
	}
	p.logStage(StageDone, zap.String("status", result.StatusMessage))

	return result, nil
}

// synthesizeSegments produces exactly one clip per transcript segment,
// in original order. Voiceless speakers and per-segment synthesis or
// normalization failures yield a silence placeholder of the segment's
// time slot so later segments stay aligned.
func (p *Pipeline) synthesizeSegments(ctx context.Context, transcript, translated []domain.TranscriptSegment, assignments map[string]domain.VoiceAssignment) ([]string, []int) {
	var clips []string
	var skipped []int

	for i, seg := range translated {
		slot := transcript[i].Duration()

		clip, err := p.segmentClip(ctx, seg, slot, assignments)
		if err != nil {
			skipped = append(skipped, i)
			p.log.Warn("segment skipped",
				zap.Int("segment", i),
				zap.String("speaker", seg.Speaker),
				zap.Error(err),
			)

			placeholder, serr := p.silence.Silence(ctx, slot)
			if serr != nil {
				// Even the placeholder failed; the track loses this
				// slot and the global correction absorbs the drift.
				p.log.Error("silence placeholder failed",
					zap.Int("segment", i),
					zap.Error(serr),
				)
				continue
			}
			clips = append(clips, placeholder)
			continue
		}

		clips = append(clips, clip)
	}

	return clips, skipped
}

func (p *Pipeline) segmentClip(ctx context.Context, seg domain.TranscriptSegment, slot float64, assignments map[string]domain.VoiceAssignment) (string, error) {
	assignment, ok := assignments[seg.Speaker]
	if !ok || assignment.Voiceless() {
		return "", domain.Fail(domain.OpSynthesize, "speaker has no voice", nil)
	}

	text := seg.Translation
	if text == "" {
		text = seg.Text
	}

	raw, err := p.synth.Synthesize(ctx, text, assignment.VoiceID)
	if err != nil {
		return "", err
	}

	return p.norm.Normalize(ctx, raw, slot)
}

// matchSourceDuration applies the mandatory global correction: the
// final asset's duration must match the original source within the
// track tolerance, and a probe failure here is job-fatal because the
// match cannot be verified.
func (p *Pipeline) matchSourceDuration(ctx context.Context, track, sourceAudio string) (string, error) {
	trackDur, err := p.probe.Duration(ctx, track)
	if err != nil {
		return "", fmt.Errorf("stage %s: probe dubbed track: %w", StageGloballyNormalized, err)
	}

	sourceDur, err := p.probe.Duration(ctx, sourceAudio)
	if err != nil {
		return "", fmt.Errorf("stage %s: probe source audio: %w", StageGloballyNormalized, err)
	}

	if math.Abs(trackDur-sourceDur) <= timing.TrackTolerance {
		return track, nil
	}

	final, err := p.norm.NormalizeTrack(ctx, track, sourceDur)
	if err != nil {
		return "", fmt.Errorf("stage %s: %w", StageGloballyNormalized, err)
	}
	return final, nil
}

func statusMessage(total int, skipped []int, assignments map[string]domain.VoiceAssignment) string {
	voiceless := 0
	for _, a := range assignments {
		if a.Voiceless() {
			voiceless++
		}
	}

	msg := fmt.Sprintf("dubbed %d of %d segments", total-len(skipped), total)
	if len(skipped) > 0 {
		msg += fmt.Sprintf(", %d replaced with silence", len(skipped))
	}
	if voiceless > 0 {
		msg += fmt.Sprintf(", %d speakers voiceless", voiceless)
	}
	return msg
}

func (p *Pipeline) logStage(stage Stage, fields ...zap.Field) {
	p.log.Info("pipeline stage", append([]zap.Field{zap.String("stage", string(stage))}, fields...)...)
}
