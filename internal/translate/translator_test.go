package translate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/imosed/vodub/internal/domain"
)

func fakeOpenAI(t *testing.T, reply string) *Translator {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Role: "assistant", Content: reply}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	return NewWithClient(openai.NewClientWithConfig(cfg), zap.NewNop())
}

func segments(texts ...string) []domain.TranscriptSegment {
	out := make([]domain.TranscriptSegment, len(texts))
	for i, text := range texts {
		out[i] = domain.TranscriptSegment{Start: float64(i), End: float64(i + 1), Text: text, Speaker: "A"}
	}
	return out
}

func TestTranslate_AnnotatesInOrder(t *testing.T) {
	tr := fakeOpenAI(t, "1. Hello\n2. World\n")

	got, err := tr.Translate(context.Background(), segments("Hola", "Mundo"), "English")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}

	var translations []string
	for _, seg := range got {
		translations = append(translations, seg.Translation)
	}
	if !reflect.DeepEqual(translations, []string{"Hello", "World"}) {
		t.Errorf("translations = %v", translations)
	}
	// Originals untouched.
	if got[0].Text != "Hola" || got[0].Start != 0 {
		t.Errorf("segment mutated: %+v", got[0])
	}
}

func TestTranslate_MissingLineFails(t *testing.T) {
	tr := fakeOpenAI(t, "1. Hello\n")

	_, err := tr.Translate(context.Background(), segments("Hola", "Mundo"), "English")
	if domain.OpOf(err) != domain.OpTranslate {
		t.Fatalf("want translate failure, got %v", err)
	}
}

func TestParseNumbered(t *testing.T) {
	cases := []struct {
		name    string
		reply   string
		want    []string
		wantErr bool
	}{
		{"dot style", "1. a\n2. b", []string{"a", "b"}, false},
		{"paren style", "1) a\n2) b", []string{"a", "b"}, false},
		{"chatter ignored", "Sure!\n1. a\n2. b\nDone.", []string{"a", "b"}, false},
		{"duplicate", "1. a\n1. b", nil, true},
		{"out of range", "1. a\n3. b", nil, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseNumbered(tc.reply, 2)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseNumbered: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}
