package service

import (
	"context"
	"time"

	"github.com/lshigami/Margays/config"
	"github.com/rs/zerolog/log"
)

// DeadlineSweeper periodically finalizes attempts whose time window elapsed
// without an explicit submit, so an attempt can never stay open after a
// client disconnect. Each pass goes through the same finalize path as a
// submit, with zero new answers.
type DeadlineSweeper struct {
	attemptSvc AttemptService
	interval   time.Duration
	batchSize  int
	cancel     context.CancelFunc
	done       chan struct{}
}

func NewDeadlineSweeper(cfg *config.Config, attemptSvc AttemptService) *DeadlineSweeper {
	interval := time.Duration(cfg.Sweeper.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	batchSize := cfg.Sweeper.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	return &DeadlineSweeper{
		attemptSvc: attemptSvc,
		interval:   interval,
		batchSize:  batchSize,
		done:       make(chan struct{}),
	}
}

// Start launches the sweep loop. It returns immediately; the loop runs until
// Stop is called.
func (s *DeadlineSweeper) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		log.Info().Dur("interval", s.interval).Int("batch_size", s.batchSize).Msg("Deadline sweeper started")
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("Deadline sweeper stopped")
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
}

// Stop halts the loop and waits for an in-flight pass to finish.
func (s *DeadlineSweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
}

func (s *DeadlineSweeper) sweep(ctx context.Context) {
	expired, err := s.attemptSvc.ExpireOverdue(ctx, s.batchSize)
	if err != nil {
		log.Error().Err(err).Msg("Sweep pass failed")
		return
	}
	if expired > 0 {
		log.Info().Int("expired", expired).Msg("Sweep pass finalized overdue attempts")
	}
}
