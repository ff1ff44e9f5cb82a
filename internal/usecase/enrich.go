package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tripmate-ai/internal/domain"
)

const defaultEnrichTimeout = 8 * time.Second

// Enricher asks the model for English names and one-line descriptions
// of localized place names, producing a single places_update event.
// Enrichment is best effort: any failure is logged and the channel
// closes without an event.
type Enricher struct {
	llm     domain.LLMProvider
	logger  *slog.Logger
	timeout time.Duration
}

// NewEnricher creates an enrichment worker over the given provider.
func NewEnricher(llm domain.LLMProvider, logger *slog.Logger) *Enricher {
	return &Enricher{llm: llm, logger: logger, timeout: defaultEnrichTimeout}
}

// Enrich starts an asynchronous enrichment pass for the given places.
// The returned channel yields at most one places_update event and is
// closed when the pass finishes.
func (e *Enricher) Enrich(ctx context.Context, places []domain.PlaceResult) <-chan domain.StreamEvent {
	ch := make(chan domain.StreamEvent, 1)
	go func() {
		defer close(ch)

		ctx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()

		entries, err := e.lookup(ctx, places)
		if err != nil {
			e.logger.Warn("place enrichment failed", "error", err)
			return
		}
		if len(entries) == 0 {
			return
		}

		ev, err := domain.JSONEvent(domain.EventPlacesUpdate, entries)
		if err != nil {
			e.logger.Warn("place enrichment marshal failed", "error", err)
			return
		}
		ch <- ev
	}()
	return ch
}

func (e *Enricher) lookup(ctx context.Context, places []domain.PlaceResult) ([]domain.PlaceEnrichment, error) {
	names := make([]string, 0, len(places))
	for _, p := range places {
		if p.Name != "" {
			names = append(names, p.Name)
		}
	}
	if len(names) == 0 {
		return nil, nil
	}

	prompt := fmt.Sprintf(`为下列地点提供英文名和一句话英文简介，按给出的顺序返回 JSON 数组，每项形如 {"name":"<原名>","englishName":"<英文名>","description":"<简介>"}。只输出 JSON，不要任何其他文字。

地点：%s`, strings.Join(names, "、"))

	resp, err := e.llm.Chat(ctx, domain.ChatRequest{
		Messages: []domain.Message{{Role: domain.RoleUser, Content: prompt}},
	})
	if err != nil {
		return nil, fmt.Errorf("enrichment chat: %w", err)
	}

	raw := extractJSONArray(resp.Message.Content)
	if raw == "" {
		return nil, fmt.Errorf("no JSON array in enrichment response")
	}

	var entries []domain.PlaceEnrichment
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("parse enrichment response: %w", err)
	}
	return entries, nil
}

// extractJSONArray pulls the outermost JSON array out of a response
// that may be wrapped in prose or code fences.
func extractJSONArray(s string) string {
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
