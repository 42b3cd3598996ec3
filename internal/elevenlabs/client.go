// Package elevenlabs adapts the ElevenLabs speech API to the pipeline:
// text-to-speech synthesis and instant voice cloning. Every synthesis
// call uses the same multilingual model and encode settings so the
// resulting clips are directly concatenation-compatible.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/imosed/vodub/internal/domain"
	"github.com/imosed/vodub/internal/scratch"
)

const (
	defaultBaseURL = "https://api.elevenlabs.io"

	// Fixed model and encode configuration for all calls in a job.
	modelID      = "eleven_multilingual_v2"
	outputFormat = "mp3_44100_128"
)

type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	ws      *scratch.Workspace
	log     *zap.Logger
}

// Option tweaks a Client. Used by tests to point at a fake server.
type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpc = h }
}

func NewClient(apiKey string, ws *scratch.Workspace, log *zap.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: 2 * time.Minute},
		ws:      ws,
		log:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type synthesizeRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

// Synthesize turns text into a clip spoken by voiceID, written to
// scratch storage.
func (c *Client) Synthesize(ctx context.Context, text, voiceID string) (string, error) {
	if voiceID == "" {
		return "", domain.Fail(domain.OpSynthesize, "empty voice id", nil)
	}
	if c.apiKey == "" {
		return "", domain.Fail(domain.OpSynthesize, "missing api key", nil)
	}

	body, err := json.Marshal(synthesizeRequest{Text: text, ModelID: modelID})
	if err != nil {
		return "", domain.Fail(domain.OpSynthesize, "encode request", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=%s", c.baseURL, voiceID, outputFormat)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", domain.Fail(domain.OpSynthesize, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", domain.Fail(domain.OpSynthesize, "call speech service", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", domain.Fail(domain.OpSynthesize, remoteReason(resp), nil)
	}

	out := c.ws.Clip("tts", ".mp3")
	f, err := os.Create(out)
	if err != nil {
		return "", domain.Fail(domain.OpSynthesize, "create clip file", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		c.ws.Remove(out)
		return "", domain.Fail(domain.OpSynthesize, "write clip", err)
	}

	c.log.Debug("synthesized clip",
		zap.String("voice", voiceID),
		zap.Int("textLen", len(text)),
	)

	return out, nil
}

type cloneResponse struct {
	VoiceID string `json:"voice_id"`
}

// Clone registers referenceClip as a new voice and returns the
// persistent voice identifier. The caller keeps the reference at or
// under roughly a minute.
func (c *Client) Clone(ctx context.Context, referenceClip, label string) (string, error) {
	if c.apiKey == "" {
		return "", domain.Fail(domain.OpClone, "missing api key", nil)
	}

	ref, err := os.Open(referenceClip)
	if err != nil {
		return "", domain.Fail(domain.OpClone, "open reference clip", err)
	}
	defer ref.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("name", label); err != nil {
		return "", domain.Fail(domain.OpClone, "encode request", err)
	}
	part, err := mw.CreateFormFile("files", filepath.Base(referenceClip))
	if err != nil {
		return "", domain.Fail(domain.OpClone, "encode request", err)
	}
	if _, err := io.Copy(part, ref); err != nil {
		return "", domain.Fail(domain.OpClone, "read reference clip", err)
	}
	if err := mw.Close(); err != nil {
		return "", domain.Fail(domain.OpClone, "encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/voices/add", &body)
	if err != nil {
		return "", domain.Fail(domain.OpClone, "build request", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", domain.Fail(domain.OpClone, "call cloning service", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", domain.Fail(domain.OpClone, remoteReason(resp), nil)
	}

	var out cloneResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", domain.Fail(domain.OpClone, "decode response", err)
	}
	if out.VoiceID == "" {
		return "", domain.Fail(domain.OpClone, "service returned no voice id", nil)
	}

	c.log.Info("registered cloned voice", zap.String("voice", out.VoiceID), zap.String("label", label))

	return out.VoiceID, nil
}

func remoteReason(resp *http.Response) string {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	return fmt.Sprintf("service returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
}
