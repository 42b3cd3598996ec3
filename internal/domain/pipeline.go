package domain

import "context"

// An AudioClip is referenced by its path on scratch storage. The
// producing stage owns a clip until the next stage consumes it.

// Extractor cuts a time range out of a source audio file into a
// standalone clip. End past the source duration is truncated by the
// underlying tool, not validated here.
type Extractor interface {
	Extract(ctx context.Context, source string, start, end float64) (string, error)
}

// Concatenator joins clips into one continuous file via stream copy.
// All clips must share codec parameters; order is preserved exactly.
type Concatenator interface {
	Concat(ctx context.Context, clips []string) (string, error)
}

// Prober reads a clip's container duration in seconds.
type Prober interface {
	Duration(ctx context.Context, clip string) (float64, error)
}

// Normalizer produces a clip of the target duration by padding with
// silence or applying bounded tempo scaling. Normalize uses the
// segment-level tolerance, NormalizeTrack the tighter track-level one.
type Normalizer interface {
	Normalize(ctx context.Context, clip string, target float64) (string, error)
	NormalizeTrack(ctx context.Context, clip string, target float64) (string, error)
}

// SilenceGenerator writes a clip of digital silence matching the
// pipeline's fixed sample configuration.
type SilenceGenerator interface {
	Silence(ctx context.Context, seconds float64) (string, error)
}

// Synthesizer turns translated text and a voice into a clip at the
// fixed sample configuration. VoiceID must be non-empty; callers skip
// synthesis entirely for voiceless speakers.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) (string, error)
}

// VoiceCloner turns a short reference clip into a persistent voice
// identifier usable by the Synthesizer.
type VoiceCloner interface {
	Clone(ctx context.Context, referenceClip, label string) (string, error)
}

// VoiceAssigner decides per speaker whether to clone or pool, and
// assigns a voice to each. It has no job-fatal path: every speaker
// gets at least a pooled or degraded cloned entry.
type VoiceAssigner interface {
	Assign(ctx context.Context, transcript []TranscriptSegment, sourceAudio string) (map[string]VoiceAssignment, []SpeakerProfile)
}
