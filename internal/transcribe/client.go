// Package transcribe turns source audio into a diarized transcript by
// driving an AssemblyAI-style REST service: upload the audio, create a
// transcript with speaker labels, poll until it completes.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/imosed/vodub/internal/domain"
)

const (
	defaultBaseURL      = "https://api.assemblyai.com"
	defaultPollInterval = 3 * time.Second
)

type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	poll    time.Duration
	log     *zap.Logger
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.poll = d }
}

func NewClient(apiKey string, log *zap.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: time.Minute},
		poll:    defaultPollInterval,
		log:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type createRequest struct {
	AudioURL      string `json:"audio_url"`
	SpeakerLabels bool   `json:"speaker_labels"`
	LanguageCode  string `json:"language_code,omitempty"`
}

type utterance struct {
	Start   int    `json:"start"`
	End     int    `json:"end"`
	Text    string `json:"text"`
	Speaker string `json:"speaker"`
}

type transcriptResponse struct {
	ID         string      `json:"id"`
	Status     string      `json:"status"`
	Error      string      `json:"error"`
	Utterances []utterance `json:"utterances"`
}

// Transcribe uploads the audio and returns the ordered, speaker-
// attributed transcript. Timestamps arrive in milliseconds and are
// converted to seconds.
func (c *Client) Transcribe(ctx context.Context, audioPath, languageCode string) ([]domain.TranscriptSegment, error) {
	audioURL, err := c.upload(ctx, audioPath)
	if err != nil {
		return nil, domain.Fail(domain.OpTranscribe, "upload audio", err)
	}

	id, err := c.create(ctx, audioURL, languageCode)
	if err != nil {
		return nil, domain.Fail(domain.OpTranscribe, "create transcript", err)
	}

	final, err := c.await(ctx, id)
	if err != nil {
		return nil, domain.Fail(domain.OpTranscribe, "await transcript", err)
	}

	segments := make([]domain.TranscriptSegment, 0, len(final.Utterances))
	for _, u := range final.Utterances {
		segments = append(segments, domain.TranscriptSegment{
			Start:   float64(u.Start) / 1000,
			End:     float64(u.End) / 1000,
			Text:    u.Text,
			Speaker: u.Speaker,
		})
	}

	c.log.Info("transcription complete",
		zap.String("transcript", id),
		zap.Int("segments", len(segments)),
	)

	return segments, nil
}

func (c *Client) upload(ctx context.Context, audioPath string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/upload", f)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	var out uploadResponse
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	if out.UploadURL == "" {
		return "", fmt.Errorf("service returned no upload url")
	}
	return out.UploadURL, nil
}

func (c *Client) create(ctx context.Context, audioURL, languageCode string) (string, error) {
	body, err := json.Marshal(createRequest{
		AudioURL:      audioURL,
		SpeakerLabels: true,
		LanguageCode:  languageCode,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/transcript", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	var out transcriptResponse
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("service returned no transcript id")
	}
	return out.ID, nil
}

func (c *Client) await(ctx context.Context, id string) (*transcriptResponse, error) {
	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/transcript/"+id, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", c.apiKey)

		var out transcriptResponse
		if err := c.do(req, &out); err != nil {
			return nil, err
		}

		switch out.Status {
		case "completed":
			return &out, nil
		case "error":
			return nil, fmt.Errorf("transcription failed: %s", out.Error)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("service returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
