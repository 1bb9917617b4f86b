package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whisper-Tech/DNA-radio/internal/models"
)

func newTestProvider(url string) *AIProvider {
	return &AIProvider{apiURL: url, apiKey: "test-key", model: "test-model", count: 4}
}

func chatBody(content string) string {
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func TestAISuggestParsesCleanJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		fmt.Fprint(w, chatBody(`[{"title":"A","artist":"X"},{"title":"B","artist":"Y"},{"title":"C","artist":"Z"},{"title":"D","artist":"W"}]`))
	}))
	defer server.Close()

	got := newTestProvider(server.URL).Suggest(context.Background(), models.Song{Title: "Gone", Artist: "Band"})
	require.Len(t, got, 4)
	assert.Equal(t, models.SuggestionCandidate{Title: "A", Artist: "X"}, got[0])
	assert.Equal(t, models.SuggestionCandidate{Title: "D", Artist: "W"}, got[3])
}

func TestAISuggestExtractsFromMarkdown(t *testing.T) {
	content := "Here you go:\n```json\n[{\"title\":\"A\",\"artist\":\"X\"},{\"title\":\"B\",\"artist\":\"Y\"},{\"title\":\"C\",\"artist\":\"Z\"},{\"title\":\"D\",\"artist\":\"W\"}]\n```\nEnjoy!"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chatBody(content))
	}))
	defer server.Close()

	got := newTestProvider(server.URL).Suggest(context.Background(), models.Song{})
	require.Len(t, got, 4)
	assert.Equal(t, "A", got[0].Title)
}

func TestAISuggestFallsBackOnFailure(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"http error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}},
		{"non-json content", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, chatBody("Sorry, I can't help with that."))
		}},
		{"empty choices", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"choices":[]}`)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			got := newTestProvider(server.URL).Suggest(context.Background(), models.Song{Title: "Gone"})
			require.Len(t, got, 4)
			assert.Equal(t, fallbackCandidates, got)
		})
	}
}

func TestAISuggestPadsShortLists(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chatBody(`[{"title":"Only One","artist":"Solo"}]`))
	}))
	defer server.Close()

	got := newTestProvider(server.URL).Suggest(context.Background(), models.Song{})
	require.Len(t, got, 4)
	assert.Equal(t, "Only One", got[0].Title)
	// remainder topped up from the static list
	assert.Equal(t, fallbackCandidates[0], got[1])
}

func TestStaticProviderAlwaysFull(t *testing.T) {
	p := &StaticProvider{Count: 4}
	got := p.Suggest(context.Background(), models.Song{})
	require.Len(t, got, 4)
	assert.Equal(t, fallbackCandidates, got)
}
