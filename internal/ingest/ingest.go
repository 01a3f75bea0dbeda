// Package ingest feeds new jobs into the pending lane from the event bus and
// from seed files.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/alfredjeanlab/jobline/internal/events"
	"github.com/alfredjeanlab/jobline/internal/model"
	"github.com/alfredjeanlab/jobline/internal/store"
)

// Ingester appends a job to the pending lane, assigning an id when missing.
type Ingester interface {
	Ingest(ctx context.Context, job *model.Job) (*model.Job, error)
}

// Stats counts what the subscriber did with the messages it received.
type Stats struct {
	Ingested   int64 `json:"ingested"`
	Duplicates int64 `json:"duplicates"`
	Rejected   int64 `json:"rejected"`
}

// Subscriber ingests jobs published on a bus topic. A message carries one
// job object or an array of them.
type Subscriber struct {
	ingester Ingester
	topic    string
	logger   *slog.Logger

	ingested   atomic.Int64
	duplicates atomic.Int64
	rejected   atomic.Int64
}

// NewSubscriber creates a subscriber for topic.
func NewSubscriber(ing Ingester, topic string, logger *slog.Logger) *Subscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscriber{ingester: ing, topic: topic, logger: logger}
}

// Run consumes the topic until ctx is cancelled or the subscription closes.
func (s *Subscriber) Run(ctx context.Context, sub events.Subscriber) error {
	ch, cancel, err := sub.Subscribe(s.topic)
	if err != nil {
		return fmt.Errorf("ingest: subscribe %s: %w", s.topic, err)
	}
	defer cancel()

	s.logger.Info("ingest: subscriber started", "topic", s.topic)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("ingest: subscriber stopping")
			return nil
		case raw, ok := <-ch:
			if !ok {
				s.logger.Info("ingest: subscription channel closed")
				return nil
			}
			s.handle(ctx, raw)
		}
	}
}

// Stats returns the counters since the subscriber was created.
func (s *Subscriber) Stats() Stats {
	return Stats{
		Ingested:   s.ingested.Load(),
		Duplicates: s.duplicates.Load(),
		Rejected:   s.rejected.Load(),
	}
}

// handle ingests every job in one message. A panic while handling is
// counted as a rejection so a single message cannot stop the subscriber.
func (s *Subscriber) handle(ctx context.Context, raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			s.rejected.Add(1)
			s.logger.Error("ingest: panic handling message", "panic", r)
		}
	}()

	jobs, err := decodeJobs(raw)
	if err != nil {
		s.rejected.Add(1)
		s.logger.Warn("ingest: bad payload", "err", err)
		return
	}
	for _, j := range jobs {
		if j == nil {
			s.rejected.Add(1)
			s.logger.Warn("ingest: null job in payload")
			continue
		}
		created, err := s.ingester.Ingest(ctx, j)
		switch {
		case err == nil:
			s.ingested.Add(1)
			s.logger.Debug("ingest: job added", "job_id", created.ID)
		case errors.Is(err, store.ErrAlreadyExists):
			s.duplicates.Add(1)
			s.logger.Info("ingest: duplicate job ignored", "job_id", j.ID)
		default:
			s.rejected.Add(1)
			s.logger.Warn("ingest: job rejected", "job_id", j.ID, "err", err)
		}
	}
}

// decodeJobs accepts either a single job object or a JSON array of jobs.
// Array elements that are JSON null come back as nil entries.
func decodeJobs(raw []byte) ([]*model.Job, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errors.New("empty message")
	}
	if trimmed[0] == '[' {
		var jobs []*model.Job
		if err := json.Unmarshal(trimmed, &jobs); err != nil {
			return nil, err
		}
		return jobs, nil
	}
	var j *model.Job
	if err := json.Unmarshal(trimmed, &j); err != nil {
		return nil, err
	}
	return []*model.Job{j}, nil
}
