package analysis

import (
	"math"
	"sort"
	"strings"
	"time"

	"MarketPulse/internal/domain/models"
)

var positiveKeywords = []string{
	"beat", "beats", "surge", "surges", "soar", "soars", "jump", "jumps",
	"gain", "gains", "rally", "record", "strong", "growth", "upgrade",
	"upgraded", "outperform", "bullish", "profit", "profits", "exceed",
	"exceeds", "raise", "raises", "boost", "boosts", "win", "wins",
	"breakthrough", "momentum", "optimistic", "expand", "expands",
}

var negativeKeywords = []string{
	"miss", "misses", "plunge", "plunges", "drop", "drops", "fall", "falls",
	"slump", "slumps", "decline", "declines", "weak", "loss", "losses",
	"downgrade", "downgraded", "underperform", "bearish", "cut", "cuts",
	"layoff", "layoffs", "concern", "concerns", "fear", "fears", "slowdown",
	"recall", "lawsuit", "investigation", "fraud", "bankruptcy", "warning",
}

var riskKeywords = []string{
	"lawsuit", "investigation", "fraud", "recall", "bankruptcy",
	"default", "debt", "regulator", "scandal", "warning",
}

var topicKeywords = []string{
	"earnings", "revenue", "guidance", "merger", "acquisition", "dividend",
	"buyback", "ipo", "split", "offering", "regulatory approval", "trial",
	"patent", "lawsuit",
}

// recencyHalfLifeHours is the decay constant for the recency-weighted score.
const recencyHalfLifeHours = 24.0

// itemScore scores one news item in [-1,1] from keyword matches in
// title+summary. Zero matches score 0; dense keyword hits count more via
// min(total/10, 1) scaling.
func itemScore(item models.NewsItem) float64 {
	tokens := tokenize(item.Title + " " + item.Summary)

	pos, neg := 0, 0
	for _, tok := range tokens {
		if containsWord(positiveKeywords, tok) {
			pos++
			continue
		}
		if containsWord(negativeKeywords, tok) {
			neg++
		}
	}

	total := pos + neg
	if total == 0 {
		return 0
	}
	score := float64(pos-neg) / float64(total)
	density := math.Min(float64(total)/10.0, 1.0)
	score *= density
	return math.Max(-1, math.Min(1, score))
}

// itemRisk counts risk keyword matches, 0.2 each, capped at 1 per item.
func itemRisk(item models.NewsItem) float64 {
	text := strings.ToLower(item.Title + " " + item.Summary)
	risk := 0.0
	for _, kw := range riskKeywords {
		if strings.Contains(text, kw) {
			risk += 0.2
		}
	}
	return math.Min(risk, 1)
}

// Sentiment aggregates a symbol's news items into a scored summary.
// now anchors the recency weighting so results are reproducible in tests.
func Sentiment(symbol string, items []models.NewsItem, now time.Time) *models.SentimentAnalysis {
	sa := &models.SentimentAnalysis{
		Symbol:    symbol,
		Label:     "neutral",
		Trend:     "stable",
		RiskLevel: "low",
		Topics:    []string{},
		NewsCount: len(items),
	}
	if len(items) == 0 {
		return sa
	}

	// Newest first so "last 3" for trend means the most recent items.
	sorted := make([]models.NewsItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PublishedAt.After(sorted[j].PublishedAt)
	})

	scores := make([]float64, len(sorted))
	sum, weightedSum, weightTotal, riskSum := 0.0, 0.0, 0.0, 0.0
	for i, it := range sorted {
		s := itemScore(it)
		scores[i] = s
		sum += s
		riskSum += itemRisk(it)

		ageHours := now.Sub(it.PublishedAt).Hours()
		if ageHours < 0 {
			ageHours = 0
		}
		w := math.Exp(-ageHours / recencyHalfLifeHours)
		weightedSum += s * w
		weightTotal += w
	}

	sa.Score = sum / float64(len(sorted))
	if weightTotal > 0 {
		sa.RecentScore = weightedSum / weightTotal
	}

	switch {
	case sa.Score > 0.1:
		sa.Label = "bullish"
	case sa.Score < -0.1:
		sa.Label = "bearish"
	}
	sa.Confidence = math.Min(math.Abs(sa.Score)*2, 1)

	if len(sorted) >= 3 {
		recent := mean(scores[:3])
		var earlier float64
		if len(scores) > 3 {
			earlier = mean(scores[3:])
		}
		diff := recent - earlier
		if diff > 0.1 {
			sa.Trend = "improving"
		} else if diff < -0.1 {
			sa.Trend = "declining"
		}
	}

	sa.RiskScore = riskSum / float64(len(sorted))
	if sa.RiskScore > 0.5 {
		sa.RiskLevel = "high"
	} else if sa.RiskScore > 0.2 {
		sa.RiskLevel = "medium"
	}

	sa.Topics = Topics(sorted)
	return sa
}

// Topics extracts up to 10 unique topic keywords present in the items.
func Topics(items []models.NewsItem) []string {
	found := []string{}
	seen := make(map[string]struct{})
	for _, kw := range topicKeywords {
		for _, it := range items {
			text := strings.ToLower(it.Title + " " + it.Summary)
			if strings.Contains(text, kw) {
				if _, ok := seen[kw]; !ok {
					seen[kw] = struct{}{}
					found = append(found, kw)
				}
				break
			}
		}
		if len(found) >= 10 {
			break
		}
	}
	return found
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
}

func containsWord(words []string, w string) bool {
	for _, cand := range words {
		if cand == w {
			return true
		}
	}
	return false
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
