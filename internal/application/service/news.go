package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultNewsEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash:generateContent"

const newsPrompt = `List 6 current crypto and stock market headlines as a JSON array of objects with fields "title", "source" and "url". Respond with only the JSON array.`

// newsRetryDelay bounds how often a failing provider is retried.
const newsRetryDelay = 30 * time.Second

// Headline is one market news item.
type Headline struct {
	Title  string `json:"title"`
	Source string `json:"source"`
	URL    string `json:"url"`
}

// News fetches market headlines from a generative-text provider. Requests
// are timeout-bounded and cancellable; on any failure, or without an API
// key, static fallback headlines are served. Results are cached for the
// refresh interval so the provider is hit at most once per period.
type News struct {
	apiKey   string
	endpoint string
	client   *http.Client
	ttl      time.Duration

	mu      sync.Mutex
	cached  []Headline
	expires time.Time
}

func NewNews(apiKey string, ttl time.Duration) *News {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &News{
		apiKey:   apiKey,
		endpoint: defaultNewsEndpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
		ttl:      ttl,
	}
}

// Headlines returns the current headline set, refreshing the cache when it
// is stale. Never returns an error: degraded output is fallback headlines.
func (n *News) Headlines(ctx context.Context) []Headline {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.cached != nil && time.Now().Before(n.expires) {
		return n.cached
	}
	if n.apiKey == "" {
		return fallbackHeadlines()
	}

	items, err := n.fetch(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("news fetch failed, serving fallback")
		// Cache the fallback so a down provider is retried after a delay,
		// not on every request.
		n.cached = fallbackHeadlines()
		n.expires = time.Now().Add(newsRetryDelay)
		return n.cached
	}
	n.cached = items
	n.expires = time.Now().Add(n.ttl)
	return items
}

func (n *News) fetch(ctx context.Context) ([]Headline, error) {
	body, err := json.Marshal(map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]string{{"text": newsPrompt}}},
		},
	})
	if err != nil {
		return nil, err
	}

	u := n.endpoint + "?key=" + url.QueryEscape(n.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("news provider returned %s", resp.Status)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	var payload struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode provider response: %w", err)
	}
	if len(payload.Candidates) == 0 || len(payload.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty provider response")
	}

	text := stripCodeFence(payload.Candidates[0].Content.Parts[0].Text)
	var items []Headline
	if err := json.Unmarshal([]byte(text), &items); err != nil {
		return nil, fmt.Errorf("decode headlines: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("provider returned no headlines")
	}
	return items, nil
}

// stripCodeFence unwraps ```json ... ``` blocks the provider tends to emit.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}

func fallbackHeadlines() []Headline {
	return []Headline{
		{Title: "Set a news provider API key to enable live market headlines.", Source: "System", URL: "#"},
		{Title: "Simulated prices update every tick; headlines refresh every few minutes.", Source: "System", URL: "#"},
	}
}
