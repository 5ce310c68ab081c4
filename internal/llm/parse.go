package llm

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/xaenox/vibes-bot/internal/models"
)

type extractedEventJSON struct {
	Title string `json:"title"`
	Start string `json:"start"`
	End   string `json:"end"`
	Found bool   `json:"found"`
}

// parseExtractedEvent reads the event-extraction JSON answer, tolerating a
// markdown code fence around it.
func parseExtractedEvent(answer string) (models.ExtractedEvent, error) {
	answer = stripCodeFence(answer)

	var raw extractedEventJSON
	if err := json.Unmarshal([]byte(answer), &raw); err != nil {
		return models.ExtractedEvent{}, ErrNotUseful
	}
	if !raw.Found || raw.Title == "" {
		return models.ExtractedEvent{Found: false}, nil
	}

	event := models.ExtractedEvent{Title: raw.Title, Found: true}
	if raw.Start != "" {
		if start, err := time.Parse(time.RFC3339, raw.Start); err == nil {
			event.Start = &start
		}
	}
	if raw.End != "" {
		if end, err := time.Parse(time.RFC3339, raw.End); err == nil {
			event.End = &end
		}
	}
	return event, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
