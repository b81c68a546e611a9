package models

import (
	"strings"
	"time"
	"unicode"
)

// NewsItem is an external news article resolved to one or more symbols.
// Identity is the external ID; dedup uses the normalized title key.
type NewsItem struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Summary     string     `json:"summary"`
	Source      string     `json:"source"`
	URL         string     `json:"url"`
	Symbols     []string   `json:"symbols"`
	PublishedAt time.Time  `json:"publishedAt"`
	Sentiment   *Sentiment `json:"sentiment,omitempty"`
}

// Sentiment is a precomputed score attached to a news item or returned by
// an external sentiment supplier.
type Sentiment struct {
	Score      float64 `json:"score"`
	Label      string  `json:"label"` // bullish, bearish, neutral
	Confidence float64 `json:"confidence"`
}

const dedupKeyMaxLen = 64

// DedupKey returns the normalized dedup key for a title: lower-cased,
// stripped of non-alphanumerics, truncated.
func DedupKey(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
		if b.Len() >= dedupKeyMaxLen {
			break
		}
	}
	return b.String()
}

// DedupNews drops items whose normalized title key was already seen,
// keeping the first occurrence. Order is preserved.
func DedupNews(items []NewsItem) []NewsItem {
	seen := make(map[string]struct{}, len(items))
	out := make([]NewsItem, 0, len(items))
	for _, it := range items {
		key := DedupKey(it.Title)
		if key == "" {
			key = it.ID
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, it)
	}
	return out
}
