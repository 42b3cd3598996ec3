package server

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/imosed/vodub/internal/domain"
	"github.com/imosed/vodub/internal/jobs"
)

// Per-job ceiling; downloads and synthesis of long videos dominate it.
const jobTimeout = 30 * time.Minute

// runJob drives one submitted job through the full pipeline. The
// request context is gone by the time this runs, so the job gets its
// own deadline.
func (s *Server) runJob(job domain.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	log := s.log.With(zap.String("job", job.ID), zap.String("video", job.VideoID))

	if err := s.setStatus(ctx, job.ID, domain.JobFetching); err != nil {
		s.failJob(ctx, job.ID, log, err)
		return
	}
	audioPath, err := s.fetcher.Audio(ctx, job.VideoID)
	if err != nil {
		s.failJob(ctx, job.ID, log, err)
		return
	}

	if err := s.setStatus(ctx, job.ID, domain.JobTranscribing); err != nil {
		s.failJob(ctx, job.ID, log, err)
		return
	}
	transcript, err := s.transcriber.Transcribe(ctx, audioPath, "")
	if err != nil {
		s.failJob(ctx, job.ID, log, err)
		return
	}

	if err := s.setStatus(ctx, job.ID, domain.JobTranslating); err != nil {
		s.failJob(ctx, job.ID, log, err)
		return
	}
	translated, err := s.translator.Translate(ctx, transcript, job.TargetLang)
	if err != nil {
		s.failJob(ctx, job.ID, log, err)
		return
	}

	if err := s.setStatus(ctx, job.ID, domain.JobDubbing); err != nil {
		s.failJob(ctx, job.ID, log, err)
		return
	}
	result, err := s.dubber.Dub(ctx, transcript, translated, audioPath)
	if err != nil {
		s.failJob(ctx, job.ID, log, err)
		return
	}

	if err := s.setStatus(ctx, job.ID, domain.JobUploading); err != nil {
		s.failJob(ctx, job.ID, log, err)
		return
	}
	object := job.ID + ".mp3"
	if err := s.assets.Publish(ctx, result.AudioPath, object); err != nil {
		s.failJob(ctx, job.ID, log, err)
		return
	}

	if err := s.manager.Complete(job.ID, object, result.StatusMessage, len(result.SkippedSegments)); err != nil {
		s.failJob(ctx, job.ID, log, err)
		return
	}
	s.persist(ctx, job.ID, log)
	s.publish(job.ID, jobs.EventResult, domain.JobDone, result.StatusMessage)
	log.Info("job finished",
		zap.String("object", object),
		zap.Int("skipped", len(result.SkippedSegments)))
}

// setStatus advances the in-memory job, mirrors it to the store, and
// announces the change on the event bus.
func (s *Server) setStatus(ctx context.Context, jobID string, status domain.JobStatus) error {
	if err := s.manager.Transition(jobID, status); err != nil {
		return err
	}
	if job, ok := s.manager.Get(jobID); ok {
		if err := s.records.Update(ctx, job); err != nil {
			s.log.Warn("persist job status", zap.String("job", jobID), zap.Error(err))
		}
	}
	s.publish(jobID, jobs.EventStatus, status, "")
	return nil
}

func (s *Server) failJob(ctx context.Context, jobID string, log *zap.Logger, cause error) {
	log.Error("job failed", zap.Error(cause))
	if err := s.manager.Fail(jobID, cause.Error()); err != nil {
		log.Warn("mark job failed", zap.Error(err))
	}
	s.persist(ctx, jobID, log)
	s.publish(jobID, jobs.EventError, domain.JobFailed, cause.Error())
}

func (s *Server) persist(ctx context.Context, jobID string, log *zap.Logger) {
	if job, ok := s.manager.Get(jobID); ok {
		if err := s.records.Update(ctx, job); err != nil {
			log.Warn("persist job", zap.Error(err))
		}
	}
}
