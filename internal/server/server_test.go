package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/imosed/vodub/internal/domain"
	"github.com/imosed/vodub/internal/store"
)

type stubFetcher struct {
	path string
	err  error
}

func (s *stubFetcher) Audio(_ context.Context, videoID string) (string, error) {
	return s.path, s.err
}

type stubTranscriber struct {
	segments []domain.TranscriptSegment
	err      error
}

func (s *stubTranscriber) Transcribe(_ context.Context, _, _ string) ([]domain.TranscriptSegment, error) {
	return s.segments, s.err
}

type stubTranslator struct {
	err error
}

func (s *stubTranslator) Translate(_ context.Context, transcript []domain.TranscriptSegment, targetLang string) ([]domain.TranscriptSegment, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := append([]domain.TranscriptSegment(nil), transcript...)
	for i := range out {
		out[i].Translation = "[" + targetLang + "] " + out[i].Text
	}
	return out, nil
}

type stubDubber struct {
	result *domain.DubResult
	err    error
}

func (s *stubDubber) Dub(_ context.Context, _, _ []domain.TranscriptSegment, _ string) (*domain.DubResult, error) {
	return s.result, s.err
}

type memRecords struct {
	mu   sync.Mutex
	jobs map[string]domain.Job
}

func newMemRecords() *memRecords {
	return &memRecords{jobs: make(map[string]domain.Job)}
}

func (m *memRecords) Insert(_ context.Context, job domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
	return nil
}

func (m *memRecords) Update(_ context.Context, job domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; !ok {
		return store.ErrJobNotFound
	}
	m.jobs[job.ID] = job
	return nil
}

func (m *memRecords) Get(_ context.Context, id string) (domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return domain.Job{}, store.ErrJobNotFound
	}
	return job, nil
}

type memAssets struct {
	mu        sync.Mutex
	published map[string]string
	content   []byte
}

func newMemAssets() *memAssets {
	return &memAssets{published: make(map[string]string), content: []byte("mp3-bytes-0123456789")}
}

func (m *memAssets) Publish(_ context.Context, localPath, object string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published[object] = localPath
	return nil
}

type readSeekNopCloser struct{ *bytes.Reader }

func (readSeekNopCloser) Close() error { return nil }

func (m *memAssets) Open(_ context.Context, object string) (io.ReadSeekCloser, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.published[object]; !ok {
		return nil, time.Time{}, errors.New("no such object")
	}
	return readSeekNopCloser{bytes.NewReader(m.content)}, time.Unix(1700000000, 0), nil
}

func testTranscript() []domain.TranscriptSegment {
	return []domain.TranscriptSegment{
		{Start: 0, End: 2, Text: "hello", Speaker: "A"},
		{Start: 2, End: 4, Text: "world", Speaker: "B"},
	}
}

func newTestServer(t *testing.T, opts Options) (*Server, *httptest.Server) {
	t.Helper()
	if opts.Fetcher == nil {
		opts.Fetcher = &stubFetcher{path: "/tmp/source.m4a"}
	}
	if opts.Transcriber == nil {
		opts.Transcriber = &stubTranscriber{segments: testTranscript()}
	}
	if opts.Translator == nil {
		opts.Translator = &stubTranslator{}
	}
	if opts.Dubber == nil {
		opts.Dubber = &stubDubber{result: &domain.DubResult{
			AudioPath:     "/tmp/dubbed.mp3",
			StatusMessage: "dubbed 2 of 2 segments",
		}}
	}
	if opts.Records == nil {
		opts.Records = newMemRecords()
	}
	if opts.Assets == nil {
		opts.Assets = newMemAssets()
	}
	s := New(opts)
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return s, srv
}

func submitJob(t *testing.T, srv *httptest.Server) domain.Job {
	t.Helper()
	body := strings.NewReader(`{"videoId":"abc123","targetLang":"es"}`)
	resp, err := http.Post(srv.URL+"/api/dub", "application/json", body)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("submit status = %d, want %d", resp.StatusCode, http.StatusAccepted)
	}
	var job domain.Job
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		t.Fatalf("decode job: %v", err)
	}
	return job
}

func awaitTerminal(t *testing.T, srv *httptest.Server, id string) domain.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(srv.URL + "/api/jobs/" + id)
		if err != nil {
			t.Fatalf("poll: %v", err)
		}
		var job domain.Job
		err = json.NewDecoder(resp.Body).Decode(&job)
		resp.Body.Close()
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if job.Status.Terminal() {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal state", id)
	return domain.Job{}
}

func TestServer_DubJobCompletes(t *testing.T) {
	assets := newMemAssets()
	records := newMemRecords()
	_, srv := newTestServer(t, Options{Assets: assets, Records: records})

	job := submitJob(t, srv)
	if job.Status != domain.JobQueued {
		t.Fatalf("initial status = %q, want %q", job.Status, domain.JobQueued)
	}

	done := awaitTerminal(t, srv, job.ID)
	if done.Status != domain.JobDone {
		t.Fatalf("status = %q (error %q), want %q", done.Status, done.Error, domain.JobDone)
	}
	if done.AudioObject != job.ID+".mp3" {
		t.Fatalf("audio object = %q, want %q", done.AudioObject, job.ID+".mp3")
	}
	if done.Message != "dubbed 2 of 2 segments" {
		t.Fatalf("message = %q", done.Message)
	}

	assets.mu.Lock()
	local := assets.published[job.ID+".mp3"]
	assets.mu.Unlock()
	if local != "/tmp/dubbed.mp3" {
		t.Fatalf("published local path = %q", local)
	}

	persisted, err := records.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("records.Get: %v", err)
	}
	if persisted.Status != domain.JobDone {
		t.Fatalf("persisted status = %q", persisted.Status)
	}
}

func TestServer_FetchFailureFailsJob(t *testing.T) {
	_, srv := newTestServer(t, Options{
		Fetcher: &stubFetcher{err: errors.New("video unavailable")},
	})

	job := submitJob(t, srv)
	done := awaitTerminal(t, srv, job.ID)
	if done.Status != domain.JobFailed {
		t.Fatalf("status = %q, want %q", done.Status, domain.JobFailed)
	}
	if !strings.Contains(done.Error, "video unavailable") {
		t.Fatalf("error = %q, want fetch cause", done.Error)
	}
}

func TestServer_RejectsBadSubmissions(t *testing.T) {
	_, srv := newTestServer(t, Options{})

	for _, body := range []string{`not json`, `{"videoId":"abc123"}`, `{"targetLang":"es"}`} {
		resp, err := http.Post(srv.URL+"/api/dub", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("body %q: status = %d, want %d", body, resp.StatusCode, http.StatusBadRequest)
		}
	}
}

func TestServer_UnknownJobIs404(t *testing.T) {
	_, srv := newTestServer(t, Options{})

	resp, err := http.Get(srv.URL + "/api/jobs/no-such-job")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestServer_EventsIncremental(t *testing.T) {
	_, srv := newTestServer(t, Options{})

	job := submitJob(t, srv)
	awaitTerminal(t, srv, job.ID)

	resp, err := http.Get(srv.URL + "/api/jobs/" + job.ID + "/events")
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	defer resp.Body.Close()

	var events []struct {
		Seq    int64  `json:"seq"`
		Type   string `json:"type"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(events) == 0 {
		t.Fatal("expected progress events")
	}
	last := events[len(events)-1]
	if last.Type != "result" || last.Status != "done" {
		t.Fatalf("last event = %+v, want result/done", last)
	}

	// Incremental read from the last sequence must be empty.
	resp2, err := http.Get(srv.URL + "/api/jobs/" + job.ID + "/events?since=" + strconv.FormatInt(last.Seq, 10))
	if err != nil {
		t.Fatalf("events since: %v", err)
	}
	defer resp2.Body.Close()
	var rest []json.RawMessage
	if err := json.NewDecoder(resp2.Body).Decode(&rest); err != nil {
		t.Fatalf("decode rest: %v", err)
	}
	if len(rest) != 0 {
		t.Fatalf("got %d events after seq %d, want 0", len(rest), last.Seq)
	}
}

func TestServer_AudioSupportsRangeRequests(t *testing.T) {
	assets := newMemAssets()
	_, srv := newTestServer(t, Options{Assets: assets})

	job := submitJob(t, srv)
	awaitTerminal(t, srv, job.ID)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/audio/"+job.ID+".mp3", nil)
	req.Header.Set("Range", "bytes=4-9")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("range get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPartialContent {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusPartialContent)
	}
	got, _ := io.ReadAll(resp.Body)
	want := assets.content[4:10]
	if !bytes.Equal(got, want) {
		t.Fatalf("body = %q, want %q", got, want)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "audio/mpeg" {
		t.Fatalf("content type = %q", ct)
	}
}

func TestServer_AudioUnknownObjectIs404(t *testing.T) {
	_, srv := newTestServer(t, Options{})

	resp, err := http.Get(srv.URL + "/api/audio/missing.mp3")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}
