package controller

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todo-api/internal/simulation"
)

func newTestingRouter(sim *simulation.Service) *gin.Engine {
	h := NewTesting(sim)
	r := gin.New()
	r.GET("/api/testing/config", h.GetConfig)
	r.POST("/api/testing/config", h.UpdateConfig)
	r.POST("/api/testing/auth/flaky-login", h.FlakyLogin)
	r.POST("/api/testing/auth/short-token", h.ShortToken)
	r.GET("/api/testing/auth/protected-resource", h.ProtectedResource)
	r.POST("/api/testing/validation/user-profile", h.ValidateProfile)
	return r
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestTestingConfig(t *testing.T) {
	r := newTestingRouter(simulation.NewService())

	t.Run("defaults", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/testing/config", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Config simulation.Config `json:"config"`
			Note   string            `json:"note"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, 0.0, body.Config.AuthFailureRate)
		assert.Equal(t, simulation.StrictnessNormal, body.Config.ValidationStrictness)
		assert.Contains(t, body.Note, "disabled")
	})

	t.Run("update clamps out-of-range rates", func(t *testing.T) {
		w := postJSON(r, "/api/testing/config", `{"authFailureRate": 2.5, "networkDelayMs": -50}`)
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Config simulation.Config `json:"config"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, 1.0, body.Config.AuthFailureRate)
		assert.Equal(t, 0, body.Config.NetworkDelayMs)
	})
}

func TestFlakyLogin(t *testing.T) {
	t.Run("missing credentials", func(t *testing.T) {
		r := newTestingRouter(simulation.NewService())
		w := postJSON(r, "/api/testing/auth/flaky-login", `{"username": "testuser"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("wrong credentials", func(t *testing.T) {
		r := newTestingRouter(simulation.NewService())
		w := postJSON(r, "/api/testing/auth/flaky-login", `{"username": "testuser", "password": "nope"}`)
		require.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid credentials")
	})

	t.Run("valid credentials mint a token", func(t *testing.T) {
		r := newTestingRouter(simulation.NewService())
		w := postJSON(r, "/api/testing/auth/flaky-login", `{"username": "testuser", "password": "testpass"}`)
		require.Equal(t, http.StatusOK, w.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.NotEmpty(t, body["token"])
		assert.Equal(t, "test_token", body["type"])
	})

	t.Run("full failure rate always rejects", func(t *testing.T) {
		sim := simulation.NewService()
		rate := 1.0
		sim.Update(simulation.Patch{AuthFailureRate: &rate})
		r := newTestingRouter(sim)
		w := postJSON(r, "/api/testing/auth/flaky-login", `{"username": "testuser", "password": "testpass"}`)
		require.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "auth_simulation")
	})
}

func TestShortToken(t *testing.T) {
	r := newTestingRouter(simulation.NewService())

	t.Run("default expiry is 30 seconds", func(t *testing.T) {
		w := postJSON(r, "/api/testing/auth/short-token", `{}`)
		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, float64(30), body["expiresInSeconds"])
	})

	t.Run("expiry clamps to 1-300", func(t *testing.T) {
		w := postJSON(r, "/api/testing/auth/short-token", `{"expiresInSeconds": 9999}`)
		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, float64(300), body["expiresInSeconds"])

		w = postJSON(r, "/api/testing/auth/short-token", `{"expiresInSeconds": 0}`)
		require.Equal(t, http.StatusOK, w.Code)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, float64(1), body["expiresInSeconds"])
	})
}

func TestProtectedResource(t *testing.T) {
	r := newTestingRouter(simulation.NewService())

	t.Run("missing token", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/testing/auth/protected-resource", nil))
		require.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Access token required")
	})

	t.Run("garbage token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/testing/auth/protected-resource", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid or expired token")
	})

	t.Run("harness-minted token is accepted", func(t *testing.T) {
		login := postJSON(r, "/api/testing/auth/flaky-login", `{"username": "testuser", "password": "testpass"}`)
		require.Equal(t, http.StatusOK, login.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(login.Body.Bytes(), &body))

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/testing/auth/protected-resource", nil)
		req.Header.Set("Authorization", "Bearer "+body["token"].(string))
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Access granted")
	})
}

func TestValidateProfile(t *testing.T) {
	setStrictness := func(s string) *simulation.Service {
		sim := simulation.NewService()
		sim.Update(simulation.Patch{ValidationStrictness: &s})
		return sim
	}

	t.Run("normal accepts a basic profile", func(t *testing.T) {
		r := newTestingRouter(simulation.NewService())
		w := postJSON(r, "/api/testing/validation/user-profile", `{"name": "Ada", "email": "ada@example.com"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Profile validation passed")
	})

	t.Run("normal rejects a malformed email", func(t *testing.T) {
		r := newTestingRouter(simulation.NewService())
		w := postJSON(r, "/api/testing/validation/user-profile", `{"name": "Ada", "email": "nope"}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Valid email is required")
	})

	t.Run("strict requires age and clean name", func(t *testing.T) {
		r := newTestingRouter(setStrictness(simulation.StrictnessStrict))
		w := postJSON(r, "/api/testing/validation/user-profile", `{"name": "Ada99", "email": "ada@example.com"}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Age must be between 13-120")
		assert.Contains(t, w.Body.String(), "Name contains invalid characters")
	})

	t.Run("loose only requires name and email", func(t *testing.T) {
		r := newTestingRouter(setStrictness(simulation.StrictnessLoose))
		w := postJSON(r, "/api/testing/validation/user-profile", `{"name": "A", "email": "whatever"}`)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
