package auth

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// RevocationChecker provides access to the revocation blocklist.
type RevocationChecker interface {
	// IsRevoked checks if a session token id is revoked
	IsRevoked(ctx context.Context, tokenID string) bool
}

// Revocations keeps signed-out token ids in memory until their tokens expire.
type Revocations struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
	now     func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRevocations() *Revocations {
	return &Revocations{
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Revoke blocks tokenID until expiresAt.
func (rc *Revocations) Revoke(tokenID string, expiresAt time.Time) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.revoked[tokenID] = expiresAt
}

func (rc *Revocations) IsRevoked(ctx context.Context, tokenID string) bool {
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	_, ok := rc.revoked[tokenID]
	return ok
}

// Start sweeps expired entries every interval until Stop is called.
func (rc *Revocations) Start(ctx context.Context, interval time.Duration) {
	sweepCtx, cancel := context.WithCancel(ctx)
	rc.cancel = cancel

	rc.wg.Add(1)
	go rc.sweepLoop(sweepCtx, interval)
}

// Stop gracefully stops the background sweep goroutine.
func (rc *Revocations) Stop() {
	if rc.cancel != nil {
		rc.cancel()
	}
	rc.wg.Wait()
}

func (rc *Revocations) sweepLoop(ctx context.Context, interval time.Duration) {
	defer rc.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Revocation sweeper stopped")
			return

		case <-ticker.C:
			rc.sweep()
		}
	}
}

// sweep drops entries whose tokens have expired anyway.
func (rc *Revocations) sweep() int {
	now := rc.now()

	rc.mu.Lock()
	defer rc.mu.Unlock()

	removed := 0
	for id, expires := range rc.revoked {
		if now.After(expires) {
			delete(rc.revoked, id)
			removed++
		}
	}
	if removed > 0 {
		log.Debug().Int("removed", removed).Int("remaining", len(rc.revoked)).Msg("Swept revoked tokens")
	}
	return removed
}
