package quote

import (
	"context"
	"math/rand"
	"sync"
)

// Sim is an offline price source producing a seeded geometric random walk.
// The same seed always yields the same sequence.
type Sim struct {
	mu    sync.Mutex
	rng   *rand.Rand
	price float64
	vol   float64
}

// NewSim creates a simulated source. Defaults: start 0.5, volatility 1%.
func NewSim(cfg Config) *Sim {
	s := &Sim{
		rng:   rand.New(rand.NewSource(cfg.Seed)),
		price: cfg.StartPrice,
		vol:   cfg.Volatility,
	}
	if s.price <= 0 {
		s.price = 0.5
	}
	if s.vol <= 0 {
		s.vol = 0.01
	}
	return s
}

func (s *Sim) Name() string { return ProviderSim }

// FetchPrice returns the current price and advances the walk by one step.
func (s *Sim) FetchPrice(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.price
	s.price *= 1 + s.rng.NormFloat64()*s.vol
	if s.price <= 0 {
		s.price = p
	}
	return p, nil
}
