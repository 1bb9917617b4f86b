package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"
)

const defaultSearchURL = "https://www.googleapis.com/youtube/v3/search"

// YouTubeResolver matches songs against YouTube's Data API v3 search
// endpoint and returns the first video id.
type YouTubeResolver struct {
	apiKey    string
	searchURL string
	client    *http.Client
}

func NewYouTube(apiKey string) *YouTubeResolver {
	return &YouTubeResolver{
		apiKey:    apiKey,
		searchURL: defaultSearchURL,
		client:    &http.Client{Timeout: 5 * time.Second},
	}
}

func (r *YouTubeResolver) Resolve(ctx context.Context, title, artist string, durationHintMs int) (string, error) {
	query := fmt.Sprintf("%s %s official audio", title, artist)

	u, _ := url.Parse(r.searchURL)
	q := u.Query()
	q.Set("key", r.apiKey)
	q.Set("part", "snippet")
	q.Set("type", "video")
	q.Set("maxResults", "1")
	q.Set("q", query)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		log.Printf("[RESOLVE] YouTube search failed for %q: %v", query, err)
		return "", ErrNotFound
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[RESOLVE] YouTube search status %d for %q", resp.StatusCode, query)
		return "", ErrNotFound
	}

	var result struct {
		Items []struct {
			ID struct {
				VideoID string `json:"videoId"`
			} `json:"id"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", ErrNotFound
	}
	if len(result.Items) == 0 || result.Items[0].ID.VideoID == "" {
		return "", ErrNotFound
	}

	return result.Items[0].ID.VideoID, nil
}
