package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"manas-backend/internal/emotion_client"
	"manas-backend/internal/inference"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type fakeBackend struct {
	resp *emotion_client.PredictResponse
	err  error
}

func (f *fakeBackend) Predict(ctx context.Context, text string, maxLength int) (*emotion_client.PredictResponse, error) {
	return f.resp, f.err
}

type fakeProber struct {
	resp *emotion_client.HealthResponse
	err  error
}

func (f *fakeProber) Health(ctx context.Context) (*emotion_client.HealthResponse, error) {
	return f.resp, f.err
}

func newPredictRouter(t *testing.T, backend inference.Backend, prober HealthProber) *gin.Engine {
	t.Helper()
	logger := zap.NewNop()
	pool := inference.NewPool(1, 4, logger)
	t.Cleanup(pool.Close)
	matcher := inference.NewCrisisMatcher([]inference.Phrase{
		{Text: "want to die", Severity: 9},
		{Text: "end my life", Severity: 10},
	})
	gateway := inference.NewGateway(backend, matcher, pool, 512, logger)

	h := NewPredictHandler(gateway, prober, logger)
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/predict", h.Predict)
	router.GET("/health", h.Health)
	return router
}

func doPredict(t *testing.T, router *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/predict", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestPredictReturnsClassification(t *testing.T) {
	backend := &fakeBackend{resp: &emotion_client.PredictResponse{
		Emotion:    "joy",
		Confidence: 0.9,
		AllScores:  map[string]float64{"joy": 0.9, "sadness": 0.1},
	}}
	router := newPredictRouter(t, backend, &fakeProber{})

	w := doPredict(t, router, `{"text":"I am happy today"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Emotion    string  `json:"emotion"`
		Confidence float64 `json:"confidence"`
		IsCrisis   bool    `json:"is_crisis"`
		AllScores  []struct {
			Label string  `json:"label"`
			Score float64 `json:"score"`
		} `json:"all_scores"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Emotion != "joy" || resp.IsCrisis {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if len(resp.AllScores) != 2 {
		t.Fatalf("expected 2 scores, got %v", resp.AllScores)
	}
	if resp.AllScores[0].Label != "joy" {
		t.Fatalf("all_scores must be a descending-ordered array, got %v", resp.AllScores)
	}
	for i := 1; i < len(resp.AllScores); i++ {
		if resp.AllScores[i].Score > resp.AllScores[i-1].Score {
			t.Fatalf("all_scores not sorted descending: %v", resp.AllScores)
		}
	}
}

func TestPredictBackendErrorIsServerError(t *testing.T) {
	backend := &fakeBackend{err: errors.New("model service returned status 500: boom")}
	router := newPredictRouter(t, backend, &fakeProber{})

	w := doPredict(t, router, `{"text":"I am happy today"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("a backend failure that is not an outage must answer 500, got %d", w.Code)
	}
}

func TestPredictMalformedInput(t *testing.T) {
	router := newPredictRouter(t, &fakeBackend{}, &fakeProber{})

	w := doPredict(t, router, `{"max_length":128}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 on missing text, got %d", w.Code)
	}
}

func TestPredictBackendDownStillFlagsCrisis(t *testing.T) {
	backend := &fakeBackend{err: emotion_client.ErrUnavailable}
	router := newPredictRouter(t, backend, &fakeProber{})

	w := doPredict(t, router, `{"text":"I want to end my life"}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}

	var resp struct {
		IsCrisis bool   `json:"is_crisis"`
		Emotion  string `json:"emotion"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !resp.IsCrisis {
		t.Fatal("crisis flag must survive model outage")
	}
	if resp.Emotion != "neutral" {
		t.Fatalf("expected neutral degraded emotion, got %q", resp.Emotion)
	}
}

func TestHealthReportsModelState(t *testing.T) {
	router := newPredictRouter(t, &fakeBackend{}, &fakeProber{
		resp: &emotion_client.HealthResponse{Status: "ok", ModelLoaded: true},
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		Status      string `json:"status"`
		ModelLoaded bool   `json:"model_loaded"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Status != "ok" || !resp.ModelLoaded {
		t.Fatalf("unexpected health response: %+v", resp)
	}
}

func TestHealthWhenModelServiceDown(t *testing.T) {
	router := newPredictRouter(t, &fakeBackend{}, &fakeProber{err: emotion_client.ErrUnavailable})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("health endpoint must stay up, got %d", w.Code)
	}
	var resp struct {
		ModelLoaded bool `json:"model_loaded"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.ModelLoaded {
		t.Fatal("model_loaded must be false when the model service is down")
	}
}
