package storage

import (
	"context"
	"time"

	"github.com/yitumuglobal/site-api/internal/log"
)

// CleanupManager periodically purges lapsed rate windows
type CleanupManager struct {
	counter  Counter
	interval time.Duration
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(counter Counter, interval time.Duration) *CleanupManager {
	return &CleanupManager{
		counter:  counter,
		interval: interval,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start begins the cleanup loop in a goroutine
func (cm *CleanupManager) Start(ctx context.Context) {
	log.LogInfoWithFields("cleanup", "Starting rate window cleanup", map[string]any{
		"interval": cm.interval.String(),
	})

	go cm.run(ctx)
}

// Stop stops the loop and waits for it to exit
func (cm *CleanupManager) Stop() {
	close(cm.stopChan)
	<-cm.doneChan
	log.LogInfoWithFields("cleanup", "Rate window cleanup stopped", nil)
}

func (cm *CleanupManager) run(ctx context.Context) {
	defer close(cm.doneChan)

	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cm.cleanup(ctx)
		case <-cm.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (cm *CleanupManager) cleanup(ctx context.Context) {
	count, err := cm.counter.PurgeExpired(ctx)
	if err != nil {
		log.LogErrorWithFields("cleanup", "Failed to purge expired rate windows", map[string]any{
			"error": err.Error(),
		})
		return
	}

	if count > 0 {
		log.LogDebugWithFields("cleanup", "Purged expired rate windows", map[string]any{
			"count": count,
		})
	}
}
