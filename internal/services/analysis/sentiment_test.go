package analysis

import (
	"math"
	"testing"
	"time"

	"MarketPulse/internal/domain/models"
)

const (
	bullishTitle = "surge rally record strong growth upgrade beats gains jump wins"
	bearishTitle = "misses plunge drops falls weak losses downgrade cuts fears slowdown"
)

func TestItemScorePositive(t *testing.T) {
	it := models.NewsItem{Title: "Shares surge after earnings beat"}
	got := itemScore(it)
	// Two positive tokens out of two matches, density 2/10.
	if !almostEqual(got, 0.2, 1e-9) {
		t.Fatalf("expected 0.2, got %v", got)
	}
}

func TestItemScoreNoKeywords(t *testing.T) {
	it := models.NewsItem{Title: "Company schedules annual meeting"}
	if got := itemScore(it); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}

func TestItemScoreSaturates(t *testing.T) {
	if got := itemScore(models.NewsItem{Title: bullishTitle}); got != 1 {
		t.Fatalf("expected 1, got %v", got)
	}
	if got := itemScore(models.NewsItem{Title: bearishTitle}); got != -1 {
		t.Fatalf("expected -1, got %v", got)
	}
}

func TestSentimentEmpty(t *testing.T) {
	sa := Sentiment("AAPL", nil, time.Now())
	if sa.Label != "neutral" || sa.Score != 0 || sa.NewsCount != 0 {
		t.Fatalf("unexpected empty result: %+v", sa)
	}
	if sa.Trend != "stable" || sa.RiskLevel != "low" {
		t.Fatalf("unexpected defaults: %+v", sa)
	}
}

func TestSentimentBullish(t *testing.T) {
	now := time.Now()
	items := make([]models.NewsItem, 4)
	for i := range items {
		items[i] = models.NewsItem{
			Title:       bullishTitle,
			PublishedAt: now.Add(-time.Duration(i) * time.Hour),
		}
	}

	sa := Sentiment("AAPL", items, now)
	if sa.Label != "bullish" {
		t.Fatalf("expected bullish, got %s", sa.Label)
	}
	if sa.Score != 1 {
		t.Fatalf("expected score 1, got %v", sa.Score)
	}
	if sa.Confidence != 1 {
		t.Fatalf("expected confidence 1, got %v", sa.Confidence)
	}
	if sa.NewsCount != 4 {
		t.Fatalf("expected count 4, got %d", sa.NewsCount)
	}
}

func TestSentimentTrendImproving(t *testing.T) {
	now := time.Now()
	items := []models.NewsItem{
		{Title: bullishTitle, PublishedAt: now.Add(-1 * time.Hour)},
		{Title: bullishTitle, PublishedAt: now.Add(-2 * time.Hour)},
		{Title: bullishTitle, PublishedAt: now.Add(-3 * time.Hour)},
		{Title: bearishTitle, PublishedAt: now.Add(-48 * time.Hour)},
	}

	sa := Sentiment("AAPL", items, now)
	if sa.Trend != "improving" {
		t.Fatalf("expected improving, got %s", sa.Trend)
	}
	// (3*1 - 1) / 4
	if !almostEqual(sa.Score, 0.5, 1e-9) {
		t.Fatalf("expected 0.5, got %v", sa.Score)
	}
	// The recency weighting should favor the newer positive items.
	if sa.RecentScore <= sa.Score {
		t.Fatalf("expected recent score %v above average %v", sa.RecentScore, sa.Score)
	}
}

func TestSentimentHighRisk(t *testing.T) {
	now := time.Now()
	items := []models.NewsItem{
		{Title: "Regulator opens fraud investigation, lawsuit filed", PublishedAt: now},
	}

	sa := Sentiment("AAPL", items, now)
	if sa.RiskLevel != "high" {
		t.Fatalf("expected high risk, got %s (score %v)", sa.RiskLevel, sa.RiskScore)
	}
	if sa.Label != "bearish" {
		t.Fatalf("expected bearish, got %s", sa.Label)
	}
}

func TestSentimentRecencyWeightDecays(t *testing.T) {
	// A 24h old item carries weight e^-1 relative to a fresh one.
	w := math.Exp(-1)
	if w >= 1 || w <= 0 {
		t.Fatalf("sanity: %v", w)
	}
	now := time.Now()
	items := []models.NewsItem{
		{Title: bullishTitle, PublishedAt: now},
		{Title: bearishTitle, PublishedAt: now.Add(-72 * time.Hour)},
	}
	sa := Sentiment("AAPL", items, now)
	if sa.RecentScore <= 0 {
		t.Fatalf("expected positive recency-weighted score, got %v", sa.RecentScore)
	}
	if sa.Score != 0 {
		t.Fatalf("expected balanced average, got %v", sa.Score)
	}
}

func TestTopics(t *testing.T) {
	items := []models.NewsItem{
		{Title: "Earnings preview: revenue guidance in focus"},
		{Title: "Board approves dividend and buyback"},
		{Title: "Earnings call scheduled"},
	}
	got := Topics(items)

	want := map[string]bool{
		"earnings": true, "revenue": true, "guidance": true,
		"dividend": true, "buyback": true,
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d topics, got %v", len(want), got)
	}
	for _, topic := range got {
		if !want[topic] {
			t.Fatalf("unexpected topic %q", topic)
		}
	}
}
