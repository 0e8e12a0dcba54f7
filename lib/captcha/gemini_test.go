package captcha

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"obswatch/lib/telemetry"

	"github.com/stretchr/testify/require"
)

func answerResponse(text string) []byte {
	out, err := json.Marshal(map[string]any{
		"candidates": []any{map[string]any{
			"content": map[string]any{
				"parts": []any{map[string]any{"text": text}},
			},
		}},
	})
	if err != nil {
		panic(err)
	}
	return out
}

func TestGeminiSolverFallback(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:lib/captcha")
	defer cleanup()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(r.URL.Path, "model-a"):
			w.WriteHeader(http.StatusNotFound)
		case strings.Contains(r.URL.Path, "model-b"):
			w.Write(answerResponse("sorry, I cannot help with that"))
		case strings.Contains(r.URL.Path, "model-c"):
			w.Write(answerResponse("25+17=?"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	solver := NewGeminiSolver(GeminiOptions{
		BaseUrl: server.URL,
		ApiKey:  "test-key",
		Models:  []string{"model-a", "model-b", "model-c"},
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	answer, err := solver.Solve(ctx, []byte("not-a-real-png"))
	require.NoError(t, err)
	require.Equal(t, "42", answer)
}

func TestGeminiSolverExhausted(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:lib/captcha")
	defer cleanup()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(answerResponse("??"))
	}))
	defer server.Close()

	solver := NewGeminiSolver(GeminiOptions{
		BaseUrl: server.URL,
		ApiKey:  "test-key",
		Models:  []string{"model-a", "model-b"},
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	_, err := solver.Solve(ctx, []byte("not-a-real-png"))
	require.ErrorIs(t, err, ErrCaptchaUnsolved)
}
