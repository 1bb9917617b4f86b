package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"time"

	"github.com/whisper-Tech/DNA-radio/internal/models"
)

// AIProvider asks a chat-completions endpoint for candidates. Model output
// is untrusted: the JSON array is fished out of whatever prose or markdown
// fencing comes back, and anything unusable degrades to the fallback list.
type AIProvider struct {
	apiURL string
	apiKey string
	model  string
	count  int
}

var jsonArrayPattern = regexp.MustCompile(`(?s)\[.*\]`)

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (p *AIProvider) Suggest(ctx context.Context, interrupted models.Song) []models.SuggestionCandidate {
	prompt := fmt.Sprintf(`The song %q by %s was just interrupted/rejected by the community.
Suggest %d similar or complementary songs that would be great to play next on an uncensored, high-fidelity DNA radio station with a cyberpunk aesthetic.
Return ONLY a valid JSON array of objects, each with "title" and "artist" fields.
Example: [{"title": "Song A", "artist": "Artist A"}, ...]`,
		interrupted.Title, interrupted.Artist, p.count)

	body, _ := json.Marshal(chatRequest{
		Model:     p.model,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens: 500,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return pad(nil, p.count)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Printf("[SUGGEST] Request failed: %v", err)
		return pad(nil, p.count)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[SUGGEST] Upstream status %d", resp.StatusCode)
		return pad(nil, p.count)
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil || len(chat.Choices) == 0 {
		log.Printf("[SUGGEST] Bad response shape: %v", err)
		return pad(nil, p.count)
	}

	return pad(p.parseCandidates(chat.Choices[0].Message.Content), p.count)
}

func (p *AIProvider) parseCandidates(content string) []models.SuggestionCandidate {
	raw := jsonArrayPattern.FindString(content)
	if raw == "" {
		raw = content
	}

	var candidates []models.SuggestionCandidate
	if err := json.Unmarshal([]byte(raw), &candidates); err != nil {
		log.Printf("[SUGGEST] Could not parse model output: %v", err)
		return nil
	}

	// Drop entries the model half-filled
	valid := candidates[:0]
	for _, c := range candidates {
		if c.Title != "" && c.Artist != "" {
			valid = append(valid, c)
		}
	}
	return valid
}
