package domain

// TranscriptSegment is one diarized utterance of the source video.
// Segments are ordered chronologically and are never reordered; the
// translator annotates Translation, nothing else mutates them.
type TranscriptSegment struct {
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Text        string  `json:"text"`
	Speaker     string  `json:"speaker"`
	Translation string  `json:"translation,omitempty"`
}

// Duration returns the segment's time slot in seconds.
func (s TranscriptSegment) Duration() float64 {
	return s.End - s.Start
}

// SpeakerProfile aggregates one speaker's segments for a single job.
// Built at the start of a dubbing job, discarded at job end.
type SpeakerProfile struct {
	Speaker      string
	TotalSeconds float64
	Segments     []TranscriptSegment
}

// VoiceMode says how a speaker's synthetic voice was obtained.
type VoiceMode int

const (
	// VoicePooled reuses one of the fixed default voices.
	VoicePooled VoiceMode = iota
	// VoiceCloned uses a voice cloned from the speaker's own audio.
	VoiceCloned
)

func (m VoiceMode) String() string {
	switch m {
	case VoicePooled:
		return "pooled"
	case VoiceCloned:
		return "cloned"
	default:
		return "unknown"
	}
}

// VoiceAssignment binds a speaker to a synthesis voice for one job.
// Immutable after creation. An empty VoiceID on a cloned assignment
// means cloning failed and the speaker is voiceless for this job.
type VoiceAssignment struct {
	Speaker       string
	Mode          VoiceMode
	VoiceID       string
	ReferenceClip string
}

// Voiceless reports whether the speaker has no usable voice.
func (a VoiceAssignment) Voiceless() bool {
	return a.VoiceID == ""
}

// DubResult is the terminal output of a dubbing job.
type DubResult struct {
	SpeakerDurations map[string]float64
	Assignments      map[string]VoiceAssignment
	AudioPath        string
	SkippedSegments  []int
	StatusMessage    string
}
