package inference

import (
	"context"
	"errors"
	"sort"

	"manas-backend/internal/emotion_client"
	"manas-backend/internal/models"

	"go.uber.org/zap"
)

// ErrModelUnavailable reports that classification ran without the model
// backend. The accompanying EmotionResult is still valid: crisis fields are
// computed locally and authoritative, emotion fields are the neutral degraded
// values.
var ErrModelUnavailable = errors.New("model unavailable")

// Backend is the emotion model behind the gateway.
type Backend interface {
	Predict(ctx context.Context, text string, maxLength int) (*emotion_client.PredictResponse, error)
}

// Gateway classifies messages: a deterministic crisis matcher that never
// depends on the backend, plus a model call serialized through the bounded
// pool. Safe for concurrent use by any number of sessions.
type Gateway struct {
	backend   Backend
	matcher   *CrisisMatcher
	pool      *Pool
	maxLength int
	logger    *zap.Logger
}

func NewGateway(backend Backend, matcher *CrisisMatcher, pool *Pool, maxLength int, logger *zap.Logger) *Gateway {
	if maxLength <= 0 {
		maxLength = 512
	}
	return &Gateway{
		backend:   backend,
		matcher:   matcher,
		pool:      pool,
		maxLength: maxLength,
		logger:    logger,
	}
}

type predictOutcome struct {
	resp *emotion_client.PredictResponse
	err  error
}

// Classify analyzes one message. maxLength <= 0 selects the configured
// default; longer inputs are truncated before the backend call. A non-nil
// result always accompanies ErrModelUnavailable so callers can fail open.
func (g *Gateway) Classify(ctx context.Context, text string, maxLength int) (*models.EmotionResult, error) {
	if maxLength <= 0 || maxLength > g.maxLength {
		maxLength = g.maxLength
	}
	text = truncate(text, maxLength)

	matched, severity := g.matcher.Match(text)
	isCrisis := len(matched) > 0

	outcomeCh := make(chan predictOutcome, 1)
	err := g.pool.Submit(func() {
		resp, err := g.backend.Predict(ctx, text, maxLength)
		outcomeCh <- predictOutcome{resp: resp, err: err}
	})
	if err != nil {
		g.logger.Warn("Inference pool rejected message", zap.Error(err))
		return degraded(isCrisis, matched, severity), errors.Join(ErrModelUnavailable, err)
	}

	select {
	case <-ctx.Done():
		return degraded(isCrisis, matched, severity), ctx.Err()
	case out := <-outcomeCh:
		if out.err != nil {
			// An unreachable or unloaded backend degrades; anything else is a
			// per-request classification failure and keeps its own identity.
			if errors.Is(out.err, emotion_client.ErrUnavailable) {
				g.logger.Warn("Model backend unavailable, degrading to neutral", zap.Error(out.err))
				return degraded(isCrisis, matched, severity), errors.Join(ErrModelUnavailable, out.err)
			}
			g.logger.Warn("Classification failed", zap.Error(out.err))
			return degraded(isCrisis, matched, severity), out.err
		}
		return fromPrediction(out.resp, isCrisis, matched, severity), nil
	}
}

func fromPrediction(resp *emotion_client.PredictResponse, isCrisis bool, matched []string, severity int) *models.EmotionResult {
	scores := make([]models.LabelScore, 0, len(resp.AllScores))
	for label, score := range resp.AllScores {
		scores = append(scores, models.LabelScore{Label: label, Score: score})
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].Label < scores[j].Label
	})

	result := &models.EmotionResult{
		Emotion:        resp.Emotion,
		Confidence:     resp.Confidence,
		IsCrisis:       isCrisis,
		Severity:       severity,
		AllScores:      scores,
		MatchedPhrases: matched,
	}
	if len(scores) > 0 {
		result.Emotion = scores[0].Label
		result.Confidence = scores[0].Score
	}
	return result
}

func degraded(isCrisis bool, matched []string, severity int) *models.EmotionResult {
	return &models.EmotionResult{
		Emotion:        "neutral",
		Confidence:     0,
		IsCrisis:       isCrisis,
		Severity:       severity,
		MatchedPhrases: matched,
	}
}

func truncate(text string, maxLength int) string {
	runes := []rune(text)
	if len(runes) <= maxLength {
		return text
	}
	return string(runes[:maxLength])
}
