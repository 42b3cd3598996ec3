// Package translate annotates a transcript with translations using a
// chat-completion model. Segments are sent as numbered lines and the
// reply is parsed strictly, so segment count and order are preserved.
package translate

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/imosed/vodub/internal/domain"
)

const (
	// batchSize bounds how many segments go into one completion, so a
	// long video never overruns the model's context window.
	batchSize = 40

	defaultModel = openai.GPT4oMini
)

type Translator struct {
	client *openai.Client
	model  string
	log    *zap.Logger
}

func New(apiKey string, log *zap.Logger) *Translator {
	return NewWithClient(openai.NewClient(apiKey), log)
}

// NewWithClient exists so tests can point the SDK at a fake server.
func NewWithClient(client *openai.Client, log *zap.Logger) *Translator {
	return &Translator{client: client, model: defaultModel, log: log}
}

// Translate returns a copy of the transcript with Translation set on
// every segment. Order and cardinality are never changed.
func (t *Translator) Translate(ctx context.Context, transcript []domain.TranscriptSegment, targetLang string) ([]domain.TranscriptSegment, error) {
	out := make([]domain.TranscriptSegment, len(transcript))
	copy(out, transcript)

	for start := 0; start < len(out); start += batchSize {
		end := start + batchSize
		if end > len(out) {
			end = len(out)
		}

		if err := t.translateBatch(ctx, out[start:end], targetLang); err != nil {
			return nil, domain.Fail(domain.OpTranslate,
				fmt.Sprintf("segments %d-%d", start, end-1), err)
		}
	}

	t.log.Info("transcript translated",
		zap.Int("segments", len(out)),
		zap.String("targetLang", targetLang),
	)

	return out, nil
}

var lineRe = regexp.MustCompile(`^\s*(\d+)[.)]\s*(.*)$`)

func (t *Translator) translateBatch(ctx context.Context, batch []domain.TranscriptSegment, targetLang string) error {
	var b strings.Builder
	for i, seg := range batch {
		fmt.Fprintf(&b, "%d. %s\n", i+1, strings.ReplaceAll(seg.Text, "\n", " "))
	}

	system := fmt.Sprintf(
		"You are a professional translator for video dubbing. Translate each numbered line into %s. "+
			"Reply with the same numbered lines, one translation per line, nothing else. "+
			"Keep translations natural to speak aloud and close to the original length.",
		targetLang,
	)

	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: t.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: b.String()},
		},
	})
	if err != nil {
		return err
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("empty completion")
	}

	translations, err := parseNumbered(resp.Choices[0].Message.Content, len(batch))
	if err != nil {
		return err
	}

	for i := range batch {
		batch[i].Translation = translations[i]
	}
	return nil
}

// parseNumbered maps "N. text" reply lines back onto 0-based indexes,
// requiring every segment to be covered exactly once.
func parseNumbered(reply string, want int) ([]string, error) {
	out := make([]string, want)
	seen := make([]bool, want)

	for _, line := range strings.Split(reply, "\n") {
		m := lineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > want {
			return nil, fmt.Errorf("unexpected line number %q", m[1])
		}
		if seen[n-1] {
			return nil, fmt.Errorf("duplicate line %d", n)
		}
		seen[n-1] = true
		out[n-1] = strings.TrimSpace(m[2])
	}

	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("line %d missing from reply", i+1)
		}
	}
	return out, nil
}
