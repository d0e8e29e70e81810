package simulation

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestUpdateClampsAndValidates(t *testing.T) {
	s := NewService()

	t.Run("rates clamp to the unit interval", func(t *testing.T) {
		cfg := s.Update(Patch{AuthFailureRate: ptr(1.5), NetworkFailureRate: ptr(-0.2)})
		assert.Equal(t, 1.0, cfg.AuthFailureRate)
		assert.Equal(t, 0.0, cfg.NetworkFailureRate)
	})

	t.Run("negative delay clamps to zero", func(t *testing.T) {
		cfg := s.Update(Patch{NetworkDelayMs: ptr(-100)})
		assert.Equal(t, 0, cfg.NetworkDelayMs)
	})

	t.Run("unknown strictness is ignored", func(t *testing.T) {
		s.Update(Patch{ValidationStrictness: ptr(StrictnessStrict)})
		cfg := s.Update(Patch{ValidationStrictness: ptr("draconian")})
		assert.Equal(t, StrictnessStrict, cfg.ValidationStrictness)
	})

	t.Run("absent fields stay untouched", func(t *testing.T) {
		before := s.Snapshot()
		after := s.Update(Patch{})
		assert.Equal(t, before, after)
	})
}

func TestShouldFailAuth(t *testing.T) {
	s := NewService()
	assert.False(t, s.ShouldFailAuth())

	s.Update(Patch{AuthFailureRate: ptr(1.0)})
	assert.True(t, s.ShouldFailAuth())
}

func TestNetworkIssues(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(s *Service) *gin.Engine {
		r := gin.New()
		r.GET("/ping", s.NetworkIssues(), func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})
		return r
	}

	t.Run("passes through when disabled", func(t *testing.T) {
		w := httptest.NewRecorder()
		newRouter(NewService()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("full failure rate yields 503 with retry hint", func(t *testing.T) {
		s := NewService()
		s.Update(Patch{NetworkFailureRate: ptr(1.0)})
		w := httptest.NewRecorder()
		newRouter(s).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "network_simulation")
		assert.Contains(t, w.Body.String(), "retry_after")
	})
}

func TestConcurrentAccess(t *testing.T) {
	s := NewService()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			s.Update(Patch{NetworkDelayMs: ptr(i)})
		}(i)
		go func() {
			defer wg.Done()
			_ = s.Snapshot()
		}()
	}
	wg.Wait()
	cfg := s.Snapshot()
	assert.GreaterOrEqual(t, cfg.NetworkDelayMs, 0)
	assert.Less(t, cfg.NetworkDelayMs, 50)
}
