package elevenlabs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/imosed/vodub/internal/domain"
	"github.com/imosed/vodub/internal/scratch"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	ws, err := scratch.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return NewClient("test-key", ws, zap.NewNop(), WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
}

func TestSynthesize_WritesClip(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/text-to-speech/voice-1" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("output_format") != "mp3_44100_128" {
			t.Errorf("output_format = %q", r.URL.Query().Get("output_format"))
		}
		if r.Header.Get("xi-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}

		var req synthesizeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Text != "Hello" || req.ModelID != "eleven_multilingual_v2" {
			t.Errorf("request = %+v", req)
		}

		w.Write([]byte("mp3-bytes"))
	})

	clip, err := c.Synthesize(context.Background(), "Hello", "voice-1")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	data, err := os.ReadFile(clip)
	if err != nil {
		t.Fatalf("read clip: %v", err)
	}
	if string(data) != "mp3-bytes" {
		t.Errorf("clip content = %q", data)
	}
	if !strings.HasSuffix(clip, ".mp3") {
		t.Errorf("clip name = %q", clip)
	}
}

func TestSynthesize_EmptyVoiceRejected(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := c.Synthesize(context.Background(), "Hello", "")
	if domain.OpOf(err) != domain.OpSynthesize {
		t.Fatalf("want synthesis failure, got %v", err)
	}
}

func TestSynthesize_MissingKeyFailsWithoutCall(t *testing.T) {
	ws, err := scratch.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	c := NewClient("", ws, zap.NewNop())

	if _, err := c.Synthesize(context.Background(), "Hello", "v"); err == nil {
		t.Fatal("expected missing-credentials failure")
	}
}

func TestSynthesize_RemoteRejection(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusPaymentRequired)
	})

	_, err := c.Synthesize(context.Background(), "Hello", "voice-1")
	if err == nil || !strings.Contains(err.Error(), "402") {
		t.Fatalf("want remote status in error, got %v", err)
	}
}

func TestClone_ReturnsVoiceID(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/voices/add" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("name"); got != "vodub-A" {
			t.Errorf("name = %q", got)
		}
		if _, _, err := r.FormFile("files"); err != nil {
			t.Errorf("missing reference file: %v", err)
		}

		json.NewEncoder(w).Encode(cloneResponse{VoiceID: "new-voice"})
	})

	ref := filepath.Join(t.TempDir(), "ref.m4a")
	if err := os.WriteFile(ref, []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	voiceID, err := c.Clone(context.Background(), ref, "vodub-A")
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	if voiceID != "new-voice" {
		t.Errorf("voiceID = %q", voiceID)
	}
}

func TestClone_EmptyVoiceIDIsFailure(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(cloneResponse{})
	})

	ref := filepath.Join(t.TempDir(), "ref.m4a")
	if err := os.WriteFile(ref, []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := c.Clone(context.Background(), ref, "x"); domain.OpOf(err) != domain.OpClone {
		t.Fatalf("want cloning failure, got %v", err)
	}
}
