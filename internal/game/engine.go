package game

import (
	"context"
	"log/slog"
	mathrand "math/rand"
	"sync"
	"time"
)

// Engine runs weekly settlement and milestone awards for one or more game
// sessions. All randomness flows through a single seeded PRNG so test runs
// are reproducible.
type Engine struct {
	store   Store
	pricing ProbabilityResolver
	notify  Notifier
	log     *slog.Logger

	mu   sync.Mutex
	rand *mathrand.Rand

	advMu     sync.Mutex
	advancing map[int64]string // gameID -> request id currently settling

	pricingTimeout time.Duration
}

func NewEngine(store Store, pricing ProbabilityResolver, notifier Notifier, logger *slog.Logger) *Engine {
	return NewEngineWithSeed(store, pricing, notifier, logger, time.Now().UnixNano())
}

// NewEngineWithSeed fixes the PRNG seed for deterministic runs.
func NewEngineWithSeed(store Store, pricing ProbabilityResolver, notifier Notifier, logger *slog.Logger, seed int64) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &Engine{
		store:          store,
		pricing:        pricing,
		notify:         notifier,
		log:            logger,
		rand:           mathrand.New(mathrand.NewSource(seed)),
		advancing:      make(map[int64]string),
		pricingTimeout: 5 * time.Second,
	}
}

// SetPricingTimeout bounds each pricing collaborator call.
func (e *Engine) SetPricingTimeout(d time.Duration) {
	if d > 0 {
		e.pricingTimeout = d
	}
}

func (e *Engine) nextFloat() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rand.Float64()
}

// beginAdvance is the in-process half of the per-session advancement guard:
// the session is either Idle or Advancing(requestID).
func (e *Engine) beginAdvance(gameID int64, requestID string) bool {
	e.advMu.Lock()
	defer e.advMu.Unlock()
	if _, busy := e.advancing[gameID]; busy {
		return false
	}
	e.advancing[gameID] = requestID
	return true
}

func (e *Engine) endAdvance(gameID int64) {
	e.advMu.Lock()
	defer e.advMu.Unlock()
	delete(e.advancing, gameID)
}

type noopNotifier struct{}

func (noopNotifier) MilestoneReached(_ context.Context, _ MilestoneAchievement) {}
func (noopNotifier) RoundLost(_ context.Context, _, _ int64, _ int)             {}
