// Package voice decides which synthetic voice speaks for each person
// in the source video. Speakers with enough material get a voice
// cloned from their own audio; everyone else shares a fixed pool of
// default voices.
package voice

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/imosed/vodub/internal/domain"
)

// DefaultCloneThreshold is the accumulated speaking time, in seconds,
// at which a speaker qualifies for voice cloning. It doubles as the
// reference-clip length target, which keeps the reference within what
// the cloning service accepts.
const DefaultCloneThreshold = 60.0

type Assigner struct {
	extractor domain.Extractor
	concat    domain.Concatenator
	cloner    domain.VoiceCloner
	pool      []string
	threshold float64
	log       *zap.Logger
}

func NewAssigner(extractor domain.Extractor, concat domain.Concatenator, cloner domain.VoiceCloner, pool []string, threshold float64, log *zap.Logger) *Assigner {
	if threshold <= 0 {
		threshold = DefaultCloneThreshold
	}
	return &Assigner{
		extractor: extractor,
		concat:    concat,
		cloner:    cloner,
		pool:      pool,
		threshold: threshold,
		log:       log,
	}
}

// Profiles aggregates the transcript by speaker, preserving the order
// in which speakers are first encountered.
func Profiles(transcript []domain.TranscriptSegment) []domain.SpeakerProfile {
	index := make(map[string]int)
	var profiles []domain.SpeakerProfile

	for _, seg := range transcript {
		i, ok := index[seg.Speaker]
		if !ok {
			i = len(profiles)
			index[seg.Speaker] = i
			profiles = append(profiles, domain.SpeakerProfile{Speaker: seg.Speaker})
		}
		profiles[i].TotalSeconds += seg.Duration()
		profiles[i].Segments = append(profiles[i].Segments, seg)
	}

	return profiles
}

// Assign builds one VoiceAssignment per distinct speaker. Cloning
// failures degrade the speaker to a voiceless cloned assignment; they
// are logged, never escalated. The pooled round-robin counter is owned
// by this single invocation, so assignment is a pure function of the
// transcript.
func (a *Assigner) Assign(ctx context.Context, transcript []domain.TranscriptSegment, sourceAudio string) (map[string]domain.VoiceAssignment, []domain.SpeakerProfile) {
	profiles := Profiles(transcript)
	assignments := make(map[string]domain.VoiceAssignment, len(profiles))

	pooled := 0
	for _, p := range profiles {
		if p.TotalSeconds >= a.threshold {
			assignments[p.Speaker] = a.cloneVoice(ctx, p, sourceAudio)
			continue
		}

		voiceID := ""
		if len(a.pool) > 0 {
			voiceID = a.pool[pooled%len(a.pool)]
		}
		pooled++

		assignments[p.Speaker] = domain.VoiceAssignment{
			Speaker: p.Speaker,
			Mode:    domain.VoicePooled,
			VoiceID: voiceID,
		}
		a.log.Info("assigned pooled voice",
			zap.String("speaker", p.Speaker),
			zap.String("voice", voiceID),
			zap.Float64("speakingSeconds", p.TotalSeconds),
		)
	}

	return assignments, profiles
}

func (a *Assigner) cloneVoice(ctx context.Context, p domain.SpeakerProfile, sourceAudio string) domain.VoiceAssignment {
	degraded := domain.VoiceAssignment{Speaker: p.Speaker, Mode: domain.VoiceCloned}

	ref, err := a.buildReference(ctx, p, sourceAudio)
	if err != nil {
		a.log.Warn("cloning reference assembly failed, speaker degraded",
			zap.String("speaker", p.Speaker),
			zap.Error(err),
		)
		return degraded
	}

	label := fmt.Sprintf("vodub-%s-%s", p.Speaker, uuid.NewString()[:8])
	voiceID, err := a.cloner.Clone(ctx, ref, label)
	if err != nil {
		a.log.Warn("voice cloning failed, speaker degraded",
			zap.String("speaker", p.Speaker),
			zap.Error(err),
		)
		return degraded
	}

	a.log.Info("cloned voice",
		zap.String("speaker", p.Speaker),
		zap.String("voice", voiceID),
		zap.Float64("speakingSeconds", p.TotalSeconds),
	)

	return domain.VoiceAssignment{
		Speaker:       p.Speaker,
		Mode:          domain.VoiceCloned,
		VoiceID:       voiceID,
		ReferenceClip: ref,
	}
}

// buildReference extracts the speaker's own segments in order until
// roughly the threshold of audio is accumulated, then joins them into
// one reference clip. A failed extraction skips that one segment.
func (a *Assigner) buildReference(ctx context.Context, p domain.SpeakerProfile, sourceAudio string) (string, error) {
	var clips []string
	var accumulated float64

	for i, seg := range p.Segments {
		if accumulated >= a.threshold {
			break
		}

		clip, err := a.extractor.Extract(ctx, sourceAudio, seg.Start, seg.End)
		if err != nil {
			a.log.Warn("reference segment extraction failed",
				zap.String("speaker", p.Speaker),
				zap.Int("segment", i),
				zap.Error(err),
			)
			continue
		}

		clips = append(clips, clip)
		accumulated += seg.Duration()
	}

	if len(clips) == 0 {
		return "", domain.Fail(domain.OpExtract, "no reference segments extracted", nil)
	}

	return a.concat.Concat(ctx, clips)
}
