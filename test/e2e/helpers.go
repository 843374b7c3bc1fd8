//go:build e2e

package e2e

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sattva-labs/sattva/internal/api/handlers"
	"github.com/sattva-labs/sattva/internal/index"
	"github.com/sattva-labs/sattva/internal/memory"
	"github.com/sattva-labs/sattva/internal/openai"
	"github.com/sattva-labs/sattva/internal/server"
	"github.com/sattva-labs/sattva/internal/service"
)

// E2ETestEnv holds all resources needed for E2E tests. The OpenAI-compatible
// backend is faked with an httptest server; everything else is the real
// production wiring.
type E2ETestEnv struct {
	T          *testing.T
	ServerURL  string
	HTTPClient *http.Client

	mu          sync.Mutex
	lastPrompt  []promptMessage
	queryVector []float32

	closers []func()
}

type promptMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SetupE2EEnv builds a running server over a small two-chunk index. The
// fake embedding backend answers with env.queryVector, so tests steer
// retrieval by setting it; the fake completion backend echoes a canned
// answer and records the prompt it was sent.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	env := &E2ETestEnv{
		T:           t,
		HTTPClient:  &http.Client{Timeout: 10 * time.Second},
		queryVector: []float32{1, 0, 0, 0},
	}

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/embeddings":
			env.mu.Lock()
			vec := append([]float32(nil), env.queryVector...)
			env.mu.Unlock()
			json.NewEncoder(w).Encode(map[string]interface{}{
				"object": "list",
				"data": []map[string]interface{}{
					{"object": "embedding", "index": 0, "embedding": vec},
				},
			})
		case "/chat/completions":
			var req struct {
				Messages []promptMessage `json:"messages"`
			}
			body, _ := io.ReadAll(r.Body)
			json.Unmarshal(body, &req)
			env.mu.Lock()
			env.lastPrompt = req.Messages
			env.mu.Unlock()
			json.NewEncoder(w).Encode(map[string]interface{}{
				"object": "chat.completion",
				"choices": []map[string]interface{}{
					{"message": map[string]string{"role": "assistant", "content": "Namaste, that is an asana."}, "finish_reason": "stop"},
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	env.closers = append(env.closers, backend.Close)

	embeddingClient := openai.NewEmbeddingClient(openai.EmbeddingConfig{
		APIKey:  "test-key",
		BaseURL: backend.URL,
	})
	completionClient := openai.NewCompletionClient(openai.CompletionConfig{
		APIKey:  "test-key",
		BaseURL: backend.URL,
	})

	idx := index.New(embeddingClient)
	if err := idx.Load(encodeVectors([][]float32{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
	}), encodeMetadata()); err != nil {
		t.Fatalf("failed to load index: %v", err)
	}

	store := memory.NewStore(memory.DefaultMaxHistory)
	store.Ensure(handlers.DefaultSessionID)

	chatSvc := service.NewChatService(idx, completionClient, store, service.ChatConfig{
		TopK:                3,
		SimilarityThreshold: 0.5,
	})

	router := server.NewRouter(server.RouterConfig{
		ChatHandler:    handlers.NewChatHandler(chatSvc),
		SessionHandler: handlers.NewSessionHandler(service.NewSessionManager(store)),
		Index:          idx,
	})

	srv := httptest.NewServer(router)
	env.closers = append(env.closers, srv.Close)
	env.ServerURL = srv.URL

	return env
}

// Cleanup shuts down the server and the fake backend.
func (env *E2ETestEnv) Cleanup() {
	for i := len(env.closers) - 1; i >= 0; i-- {
		env.closers[i]()
	}
}

// SetQueryVector changes what the fake embedding backend returns for the
// next query.
func (env *E2ETestEnv) SetQueryVector(vec []float32) {
	env.mu.Lock()
	defer env.mu.Unlock()
	env.queryVector = vec
}

// LastPrompt returns the messages the completion backend last received.
func (env *E2ETestEnv) LastPrompt() []promptMessage {
	env.mu.Lock()
	defer env.mu.Unlock()
	return append([]promptMessage(nil), env.lastPrompt...)
}

// Post sends a JSON POST to the server and returns status and body.
func (env *E2ETestEnv) Post(path string, body interface{}) (int, []byte, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reqBody = bytes.NewReader(data)
	}

	resp, err := env.HTTPClient.Post(env.ServerURL+path, "application/json", reqBody)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	return resp.StatusCode, respBody, err
}

// Get sends a GET to the server and returns status and body.
func (env *E2ETestEnv) Get(path string) (int, []byte, error) {
	resp, err := env.HTTPClient.Get(env.ServerURL + path)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	return resp.StatusCode, respBody, err
}

// Delete sends a DELETE to the server and returns the status.
func (env *E2ETestEnv) Delete(path string) (int, error) {
	req, err := http.NewRequest(http.MethodDelete, env.ServerURL+path, nil)
	if err != nil {
		return 0, err
	}
	resp, err := env.HTTPClient.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

// encodeVectors builds an index artifact in the on-disk binary layout.
func encodeVectors(vectors [][]float32) []byte {
	dim := len(vectors[0])

	var buf bytes.Buffer
	buf.WriteString("SATVEC01")
	binary.Write(&buf, binary.LittleEndian, uint64(dim))
	binary.Write(&buf, binary.LittleEndian, uint64(len(vectors)))
	for _, vec := range vectors {
		for _, v := range vec {
			binary.Write(&buf, binary.LittleEndian, math.Float32bits(v))
		}
	}
	return buf.Bytes()
}

func encodeMetadata() []byte {
	return []byte(fmt.Sprintf(`[
		{"id": 0, "source": "asanas.md", "text": "Asanas are the physical postures of yoga."},
		{"id": 1, "source": "pranayama.md", "text": "Pranayama is the practice of breath control."}
	]`))
}
