package cleanup

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type Scheduler struct {
	cleanup *CleanupService
	log     *zap.Logger
	stopCh  chan struct{}
}

func NewScheduler(cleanup *CleanupService, log *zap.Logger) *Scheduler {
	return &Scheduler{
		cleanup: cleanup,
		log:     log,
		stopCh:  make(chan struct{}),
	}
}

// Start запускает планировщик задач
func (s *Scheduler) Start(ctx context.Context) {
	s.log.Info("starting cleanup scheduler")

	go s.runExpiredTokensCleanup(ctx)
	go s.runStaleOTPsCleanup(ctx)
}

// Stop останавливает планировщик
func (s *Scheduler) Stop() {
	s.log.Info("stopping cleanup scheduler")
	close(s.stopCh)
}

// runExpiredTokensCleanup очищает истёкшие refresh токены каждые 30 минут
func (s *Scheduler) runExpiredTokensCleanup(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Minute)
	defer ticker.Stop()

	// Выполняем сразу при старте
	if err := s.cleanup.CleanupExpiredTokens(ctx); err != nil {
		s.log.Error("initial expired tokens cleanup failed", zap.Error(err))
	}

	for {
		select {
		case <-ticker.C:
			if err := s.cleanup.CleanupExpiredTokens(ctx); err != nil {
				s.log.Error("expired tokens cleanup failed", zap.Error(err))
			}
		case <-s.stopCh:
			s.log.Info("expired tokens cleanup stopped")
			return
		case <-ctx.Done():
			s.log.Info("expired tokens cleanup cancelled")
			return
		}
	}
}

// runStaleOTPsCleanup очищает старые одноразовые коды раз в час
func (s *Scheduler) runStaleOTPsCleanup(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	if err := s.cleanup.CleanupStaleOTPs(ctx); err != nil {
		s.log.Error("initial stale otps cleanup failed", zap.Error(err))
	}

	for {
		select {
		case <-ticker.C:
			if err := s.cleanup.CleanupStaleOTPs(ctx); err != nil {
				s.log.Error("stale otps cleanup failed", zap.Error(err))
			}
		case <-s.stopCh:
			s.log.Info("stale otps cleanup stopped")
			return
		case <-ctx.Done():
			s.log.Info("stale otps cleanup cancelled")
			return
		}
	}
}
