package sync

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Destination is a sync target (S3, git).
type Destination interface {
	// Write sends the JSONL payload to the destination.
	Write(ctx context.Context, data []byte) error
	// String names the destination in logs.
	String() string
}

// Scheduler periodically exports the lanes to one or more destinations.
// A destination is only written when the lanes changed since its last
// successful write; the snapshot timestamp alone does not count as a change.
type Scheduler struct {
	store        Snapshotter
	destinations []Destination
	interval     time.Duration
	logger       *slog.Logger

	mu      sync.Mutex                   // serializes syncs
	written map[string][sha256.Size]byte // destination -> fingerprint of last write

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(s Snapshotter, destinations []Destination, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:        s,
		destinations: destinations,
		interval:     interval,
		logger:       logger,
		written:      make(map[string][sha256.Size]byte),
	}
}

// Start syncs once immediately and then on every tick.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Stop cancels the scheduler and waits for an in-flight sync.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// SyncNow runs one export outside the schedule, e.g. at shutdown. The error
// joins every destination failure.
func (s *Scheduler) SyncNow(ctx context.Context) error {
	return s.syncOnce(ctx)
}

func (s *Scheduler) run(ctx context.Context) {
	_ = s.syncOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.syncOnce(ctx)
		}
	}
}

// fingerprint hashes the job records, skipping the header line that holds
// the snapshot time.
func fingerprint(data []byte) [sha256.Size]byte {
	_, body, _ := bytes.Cut(data, []byte("\n"))
	return sha256.Sum256(body)
}

func (s *Scheduler) syncOnce(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var buf bytes.Buffer
	if err := ExportJSONL(ctx, s.store, &buf); err != nil {
		s.logger.Error("sync export failed", "err", err)
		return err
	}
	data := buf.Bytes()
	fp := fingerprint(data)

	var errs []error
	written, skipped := 0, 0
	for _, dest := range s.destinations {
		name := dest.String()
		if last, ok := s.written[name]; ok && last == fp {
			skipped++
			continue
		}
		if err := dest.Write(ctx, data); err != nil {
			s.logger.Error("sync destination write failed", "destination", name, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		s.written[name] = fp
		written++
	}

	s.logger.Info("sync completed",
		"written", written,
		"unchanged", skipped,
		"failed", len(errs),
		"bytes", len(data),
	)
	return errors.Join(errs...)
}
