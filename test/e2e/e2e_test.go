//go:build e2e

package e2e

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestE2E_ChatFlow covers a grounded conversation end to end: retrieval,
// prompt assembly, generation and session memory.
func TestE2E_ChatFlow(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	t.Run("health reports loaded index", func(t *testing.T) {
		status, body, err := env.Get("/health")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, status)

		var health map[string]string
		require.NoError(t, json.Unmarshal(body, &health))
		assert.Equal(t, "ok", health["status"])
		assert.Equal(t, "loaded", health["index"])
	})

	t.Run("chat grounds the answer in retrieved chunks", func(t *testing.T) {
		status, body, err := env.Post("/chat", map[string]string{
			"message":    "What are asanas?",
			"session_id": "flow",
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, status)

		var resp struct {
			Response  string   `json:"response"`
			SessionID string   `json:"session_id"`
			Sources   []string `json:"sources"`
		}
		require.NoError(t, json.Unmarshal(body, &resp))
		assert.Equal(t, "Namaste, that is an asana.", resp.Response)
		assert.Equal(t, "flow", resp.SessionID)
		assert.Equal(t, []string{"asanas.md"}, resp.Sources)

		// The query vector matches chunk 0 only, so the system message
		// must carry its text but not the pranayama chunk.
		prompt := env.LastPrompt()
		require.NotEmpty(t, prompt)
		assert.Equal(t, "system", prompt[0].Role)
		assert.Contains(t, prompt[0].Content, "Asanas are the physical postures of yoga.")
		assert.NotContains(t, prompt[0].Content, "breath control")
		assert.Equal(t, "user", prompt[len(prompt)-1].Role)
		assert.Equal(t, "What are asanas?", prompt[len(prompt)-1].Content)
	})

	t.Run("second turn carries the conversation history", func(t *testing.T) {
		status, _, err := env.Post("/chat", map[string]string{
			"message":    "Tell me more",
			"session_id": "flow",
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, status)

		prompt := env.LastPrompt()
		// system + 2 history turns + new user message
		require.Len(t, prompt, 4)
		assert.Equal(t, "What are asanas?", prompt[1].Content)
		assert.Equal(t, "Namaste, that is an asana.", prompt[2].Content)
	})

	t.Run("history endpoint shows both exchanges", func(t *testing.T) {
		status, body, err := env.Get("/sessions/flow/history")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, status)

		var resp struct {
			History []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"history"`
		}
		require.NoError(t, json.Unmarshal(body, &resp))
		assert.Len(t, resp.History, 4)
	})

	t.Run("no match above threshold yields empty sources", func(t *testing.T) {
		env.SetQueryVector([]float32{0, 0, 1, 0})

		status, body, err := env.Post("/chat", map[string]string{
			"message":    "Something unrelated",
			"session_id": "flow",
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, status)
		assert.Contains(t, string(body), `"sources":[]`)
	})
}

// TestE2E_SessionLifecycle covers create, list, clear and delete.
func TestE2E_SessionLifecycle(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	var created struct {
		SessionID string `json:"session_id"`
	}

	t.Run("create session", func(t *testing.T) {
		status, body, err := env.Post("/sessions/", nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, status)
		require.NoError(t, json.Unmarshal(body, &created))
		assert.NotEmpty(t, created.SessionID)
	})

	t.Run("list includes new session", func(t *testing.T) {
		status, body, err := env.Get("/sessions/")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, status)

		var resp struct {
			ActiveSessions []string `json:"active_sessions"`
		}
		require.NoError(t, json.Unmarshal(body, &resp))
		assert.Contains(t, resp.ActiveSessions, created.SessionID)
	})

	t.Run("clear keeps the session registered", func(t *testing.T) {
		status, _, err := env.Post("/sessions/"+created.SessionID+"/clear", nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, status)

		status, body, err := env.Get("/sessions/" + created.SessionID + "/history")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, status)
		assert.Contains(t, string(body), `"history":[]`)
	})

	t.Run("delete removes the session", func(t *testing.T) {
		status, err := env.Delete("/sessions/" + created.SessionID)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, status)

		_, body, err := env.Get("/sessions/")
		require.NoError(t, err)
		assert.NotContains(t, string(body), created.SessionID)
	})
}

// TestE2E_Validation covers the error mapping at the HTTP boundary.
func TestE2E_Validation(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	t.Run("empty message is rejected", func(t *testing.T) {
		status, body, err := env.Post("/chat", map[string]string{"message": "   "})
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Contains(t, string(body), "message cannot be empty")
	})

	t.Run("missing session id defaults", func(t *testing.T) {
		status, body, err := env.Post("/chat", map[string]string{"message": "hello"})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, status)
		assert.Contains(t, string(body), `"session_id":"default"`)
	})
}
