// Package server exposes the dubbing service over HTTP: job
// submission, status, progress events (polling and websocket), and
// byte-range streaming of finished dubbed tracks. Authentication and
// billing live in front of this service and are not handled here.
package server

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/imosed/vodub/internal/domain"
	"github.com/imosed/vodub/internal/jobs"
)

// Fetcher extracts a video's audio to local storage.
type Fetcher interface {
	Audio(ctx context.Context, videoID string) (string, error)
}

// Transcriber produces the diarized transcript for an audio file.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, languageCode string) ([]domain.TranscriptSegment, error)
}

// Translator annotates a transcript with translations.
type Translator interface {
	Translate(ctx context.Context, transcript []domain.TranscriptSegment, targetLang string) ([]domain.TranscriptSegment, error)
}

// Dubber runs the dubbing pipeline.
type Dubber interface {
	Dub(ctx context.Context, transcript, translated []domain.TranscriptSegment, sourceAudio string) (*domain.DubResult, error)
}

// JobRecords is the persistent job store.
type JobRecords interface {
	Insert(ctx context.Context, job domain.Job) error
	Update(ctx context.Context, job domain.Job) error
	Get(ctx context.Context, id string) (domain.Job, error)
}

// Assets publishes and reopens final dubbed tracks.
type Assets interface {
	Publish(ctx context.Context, localPath, object string) error
	Open(ctx context.Context, object string) (io.ReadSeekCloser, time.Time, error)
}

type Server struct {
	fetcher     Fetcher
	transcriber Transcriber
	translator  Translator
	dubber      Dubber

	manager *jobs.Manager
	bus     *jobs.EventBus
	records JobRecords
	assets  Assets

	upgrader websocket.Upgrader
	poll     time.Duration
	log      *zap.Logger
}

type Options struct {
	Fetcher     Fetcher
	Transcriber Transcriber
	Translator  Translator
	Dubber      Dubber
	Records     JobRecords
	Assets      Assets
	Logger      *zap.Logger
}

func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Server{
		fetcher:     opts.Fetcher,
		transcriber: opts.Transcriber,
		translator:  opts.Translator,
		dubber:      opts.Dubber,
		manager:     jobs.NewManager(),
		bus:         jobs.NewEventBus(1000),
		records:     opts.Records,
		assets:      opts.Assets,
		upgrader:    websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		poll:        200 * time.Millisecond,
		log:         opts.Logger,
	}
}

// Router wires the HTTP API.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/dub", s.handleDub).Methods(http.MethodPost)
	r.HandleFunc("/api/jobs/{id}", s.handleJob).Methods(http.MethodGet)
	r.HandleFunc("/api/jobs/{id}/events", s.handleEvents).Methods(http.MethodGet)
	r.HandleFunc("/ws/jobs/{id}", s.handleWS).Methods(http.MethodGet)
	r.HandleFunc("/api/audio/{object}", s.handleAudio).Methods(http.MethodGet)
	return r
}
