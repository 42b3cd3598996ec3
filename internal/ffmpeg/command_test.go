package ffmpeg

import (
	"strings"
	"testing"
)

func argsContain(t *testing.T, args []string, want ...string) {
	t.Helper()
	joined := strings.Join(args, " ")
	for _, w := range want {
		if !strings.Contains(joined, w) {
			t.Errorf("args %q missing %q", joined, w)
		}
	}
}

func TestExtractArgs_StreamCopyCut(t *testing.T) {
	args := ExtractArgs("/src/audio.m4a", 1.5, 12.25, "/tmp/out.m4a")

	argsContain(t, args,
		"-ss 1.500000",
		"-to 12.250000",
		"-i /src/audio.m4a",
		"-c copy",
	)
	if args[len(args)-1] != "/tmp/out.m4a" {
		t.Errorf("output not last arg: %v", args)
	}
}

func TestConcatArgs_NoReencode(t *testing.T) {
	args := ConcatArgs("/tmp/list.txt", "/tmp/joined.mp3")

	argsContain(t, args, "-f concat", "-safe 0", "-i /tmp/list.txt", "-c copy")
}

func TestSilenceArgs_FixedSampleConfig(t *testing.T) {
	args := SilenceArgs(2.5, "/tmp/sil.mp3")

	argsContain(t, args, "anullsrc=r=44100:cl=mono:d=2.500", "-c:a libmp3lame", "-b:a 128k")
}

func TestPadArgs(t *testing.T) {
	args := PadArgs("/tmp/in.mp3", 0.75, "/tmp/out.mp3")

	argsContain(t, args, "apad=pad_dur=0.750")
}

func TestTempoArgs(t *testing.T) {
	args := TempoArgs("/tmp/in.mp3", 1.25, "/tmp/out.mp3")

	argsContain(t, args, "atempo=1.250000")
}

func TestProbeArgs(t *testing.T) {
	args := ProbeArgs("/tmp/in.mp3")

	argsContain(t, args, "-show_entries format=duration", "-of json")
	if args[len(args)-1] != "/tmp/in.mp3" {
		t.Errorf("input not last arg: %v", args)
	}
}
