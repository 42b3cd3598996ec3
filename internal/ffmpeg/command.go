package ffmpeg

import "fmt"

// Fixed sample configuration for every clip the pipeline produces.
// Synthesized speech, generated silence, and normalized output all use
// the same codec parameters so stream-copy concatenation always works.
const (
	SampleRate    = 44100
	ChannelLayout = "mono"
	Bitrate       = "128k"
	Codec         = "libmp3lame"
)

var baseArgs = []string{"-nostats", "-hide_banner", "-loglevel", "error", "-y"}

// ExtractArgs cuts [start, end) out of source via stream copy. An end
// past the source duration is truncated by ffmpeg itself.
func ExtractArgs(source string, start, end float64, out string) []string {
	args := append([]string{}, baseArgs...)
	return append(args,
		"-ss", fmt.Sprintf("%.6f", start),
		"-to", fmt.Sprintf("%.6f", end),
		"-i", source,
		"-c", "copy",
		out,
	)
}

// ConcatArgs joins the clips listed in listFile without re-encoding.
func ConcatArgs(listFile, out string) []string {
	args := append([]string{}, baseArgs...)
	return append(args,
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c", "copy",
		out,
	)
}

// SilenceArgs generates seconds of digital silence at the fixed sample
// configuration.
func SilenceArgs(seconds float64, out string) []string {
	args := append([]string{}, baseArgs...)
	return append(args,
		"-f", "lavfi",
		"-i", fmt.Sprintf("anullsrc=r=%d:cl=%s:d=%.3f", SampleRate, ChannelLayout, seconds),
		"-c:a", Codec,
		"-b:a", Bitrate,
		out,
	)
}

// PadArgs appends seconds of silence to the end of in. Padding never
// distorts pitch or speed.
func PadArgs(in string, seconds float64, out string) []string {
	args := append([]string{}, baseArgs...)
	return append(args,
		"-i", in,
		"-af", fmt.Sprintf("apad=pad_dur=%.3f", seconds),
		"-c:a", Codec,
		"-b:a", Bitrate,
		out,
	)
}

// TempoArgs speeds up in by factor. Callers clamp factor to the range
// atempo accepts in a single stage (0.5 to 2.0).
func TempoArgs(in string, factor float64, out string) []string {
	args := append([]string{}, baseArgs...)
	return append(args,
		"-i", in,
		"-filter:a", fmt.Sprintf("atempo=%.6f", factor),
		"-c:a", Codec,
		"-b:a", Bitrate,
		out,
	)
}

// ProbeArgs asks ffprobe for the container duration as JSON.
func ProbeArgs(path string) []string {
	return []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		path,
	}
}
