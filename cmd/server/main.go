// Command server runs the dubbing service: it accepts job submissions
// over HTTP, pulls source audio, transcribes, translates, dubs, and
// publishes finished tracks to object storage.
package main

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/imosed/vodub"
	"github.com/imosed/vodub/internal/config"
	"github.com/imosed/vodub/internal/domain"
	"github.com/imosed/vodub/internal/elevenlabs"
	"github.com/imosed/vodub/internal/fetch"
	"github.com/imosed/vodub/internal/ffmpeg"
	"github.com/imosed/vodub/internal/scratch"
	"github.com/imosed/vodub/internal/server"
	"github.com/imosed/vodub/internal/store"
	"github.com/imosed/vodub/internal/transcribe"
	"github.com/imosed/vodub/internal/translate"
)

// engineDubber adapts the vodub facade to the server's Dubber port.
type engineDubber struct {
	engine *vodub.Engine
}

func (d engineDubber) Dub(ctx context.Context, transcript, translated []domain.TranscriptSegment, sourceAudio string) (*domain.DubResult, error) {
	return d.engine.Dub(ctx, vodub.DubRequest{
		Transcript:  transcript,
		Translated:  translated,
		SourceAudio: sourceAudio,
	})
}

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("load config", zap.Error(err))
	}

	db, err := store.OpenPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("connect postgres", zap.Error(err))
	}
	defer db.Close()

	records := store.NewJobStore(db)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := records.EnsureSchema(ctx); err != nil {
		log.Fatal("ensure schema", zap.Error(err))
	}

	assets, err := store.NewAssetStore(ctx, store.AssetConfig{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		UseSSL:    cfg.MinioUseSSL,
	})
	if err != nil {
		log.Fatal("connect object storage", zap.Error(err))
	}

	ws, err := scratch.New(cfg.ScratchDir)
	if err != nil {
		log.Fatal("create scratch dir", zap.Error(err))
	}

	runner := ffmpeg.ExecRunner{}
	speech := elevenlabs.NewClient(cfg.ElevenLabsKey, ws, log)

	engine, err := vodub.New(vodub.Options{
		Synthesizer:    speech,
		Cloner:         speech,
		ScratchDir:     cfg.ScratchDir,
		VoicePool:      cfg.VoicePool,
		CloneThreshold: cfg.CloneThreshold,
		Runner:         runner,
		Logger:         log,
	})
	if err != nil {
		log.Fatal("assemble dubbing engine", zap.Error(err))
	}

	srv := server.New(server.Options{
		Fetcher:     fetch.NewFetcher(runner, ws, cfg.FetchConcurrency, log),
		Transcriber: transcribe.NewClient(cfg.TranscribeKey, log),
		Translator:  translate.New(cfg.OpenAIKey, log),
		Dubber:      engineDubber{engine: engine},
		Records:     records,
		Assets:      assets,
		Logger:      log,
	})

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info("listening", zap.String("addr", cfg.Addr))
	if err := httpServer.ListenAndServe(); err != nil {
		log.Fatal("serve", zap.Error(err))
	}
}
