// Package simulation holds the failure-injection knobs used by the QA
// harness endpoints. The configuration is an owned service instance guarded
// by a lock, injected where needed rather than read as ambient global state.
package simulation

import (
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Validation strictness levels.
const (
	StrictnessNormal = "normal"
	StrictnessStrict = "strict"
	StrictnessLoose  = "loose"
)

// ValidStrictness reports whether s is a known strictness level.
func ValidStrictness(s string) bool {
	return s == StrictnessNormal || s == StrictnessStrict || s == StrictnessLoose
}

// Config is the snapshot of the simulation parameters.
type Config struct {
	AuthFailureRate      float64 `json:"authFailureRate"`
	NetworkDelayMs       int     `json:"networkDelayMs"`
	NetworkFailureRate   float64 `json:"networkFailureRate"`
	ValidationStrictness string  `json:"validationStrictness"`
}

// Patch carries the optional updates of POST /api/testing/config.
type Patch struct {
	AuthFailureRate      *float64 `json:"authFailureRate"`
	NetworkDelayMs       *int     `json:"networkDelayMs"`
	NetworkFailureRate   *float64 `json:"networkFailureRate"`
	ValidationStrictness *string  `json:"validationStrictness"`
}

// Service owns the mutable simulation configuration.
type Service struct {
	mu  sync.RWMutex
	cfg Config
}

// NewService returns a service with everything disabled.
func NewService() *Service {
	return &Service{cfg: Config{ValidationStrictness: StrictnessNormal}}
}

// Snapshot returns the current configuration.
func (s *Service) Snapshot() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Update applies the present patch fields. Rates are clamped to [0, 1],
// the delay to >= 0; an unknown strictness level is ignored.
func (s *Service) Update(p Patch) Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.AuthFailureRate != nil {
		s.cfg.AuthFailureRate = clamp01(*p.AuthFailureRate)
	}
	if p.NetworkDelayMs != nil {
		s.cfg.NetworkDelayMs = max(0, *p.NetworkDelayMs)
	}
	if p.NetworkFailureRate != nil {
		s.cfg.NetworkFailureRate = clamp01(*p.NetworkFailureRate)
	}
	if p.ValidationStrictness != nil && ValidStrictness(*p.ValidationStrictness) {
		s.cfg.ValidationStrictness = *p.ValidationStrictness
	}
	return s.cfg
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ShouldFailAuth rolls against the configured auth failure rate.
func (s *Service) ShouldFailAuth() bool {
	return rand.Float64() < s.Snapshot().AuthFailureRate
}

// NetworkIssues is the middleware wrapping the testing namespace: it applies
// the configured artificial delay, then rolls for a simulated 503.
func (s *Service) NetworkIssues() gin.HandlerFunc {
	return func(c *gin.Context) {
		cfg := s.Snapshot()
		if cfg.NetworkDelayMs > 0 {
			time.Sleep(time.Duration(cfg.NetworkDelayMs) * time.Millisecond)
		}
		if rand.Float64() < cfg.NetworkFailureRate {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error":       "Service temporarily unavailable",
				"type":        "network_simulation",
				"retry_after": rand.Intn(5) + 1,
			})
			return
		}
		c.Next()
	}
}
