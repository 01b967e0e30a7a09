package evalx

import (
	"context"
	"math"
	"net/url"
	"regexp"
	"strings"

	"github.com/relay-labs/chatrelay/pkg/asyncx"
	"github.com/relay-labs/chatrelay/pkg/logx"
)

// Item is a raw search-style result to be scored
type Item struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// ScoredItem is an Item with quality scores attached. All score fields are
// in [0,1] and are always populated; EvaluationNotes is never empty.
type ScoredItem struct {
	Title            string  `json:"title"`
	Link             string  `json:"link"`
	Snippet          string  `json:"snippet"`
	RelevanceScore   float64 `json:"relevance_score"`
	FreshnessScore   float64 `json:"freshness_score"`
	CredibilityScore float64 `json:"credibility_score"`
	OverallScore     float64 `json:"overall_score"`
	EvaluationNotes  string  `json:"evaluation_notes"`
}

// Weights configures the overall score blend
type Weights struct {
	Relevance   float64
	Freshness   float64
	Credibility float64
}

// DefaultWeights returns the standard blend
func DefaultWeights() Weights {
	return Weights{
		Relevance:   0.5,
		Freshness:   0.2,
		Credibility: 0.3,
	}
}

// recencyKeyword scores are checked in order; the first match wins
type recencyKeyword struct {
	keyword string
	score   float64
}

// Evaluator scores search results on relevance, freshness, and credibility.
// Scoring is deterministic: the same (query, item) pair always yields the
// same scores.
type Evaluator struct {
	weights         Weights
	credibleDomains map[string]float64
	recencyKeywords []recencyKeyword
}

// Option configures an Evaluator
type Option func(*Evaluator)

// WithWeights overrides the default score blend
func WithWeights(w Weights) Option {
	return func(e *Evaluator) {
		e.weights = w
	}
}

// WithCredibleDomain adds or overrides a domain credibility score
func WithCredibleDomain(domain string, score float64) Option {
	return func(e *Evaluator) {
		e.credibleDomains[domain] = score
	}
}

// NewEvaluator creates an evaluator with the default domain and recency tables
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{
		weights: DefaultWeights(),
		credibleDomains: map[string]float64{
			"github.com":            0.9,
			"stackoverflow.com":     0.8,
			"wikipedia.org":         0.9,
			"medium.com":            0.6,
			"towardsdatascience.com": 0.7,
			"arxiv.org":             0.9,
			"docs.python.org":       0.9,
			"realpython.com":        0.8,
		},
		recencyKeywords: []recencyKeyword{
			{"2025", 1.0}, {"2024", 0.8}, {"2023", 0.6}, {"2022", 0.4}, {"2021", 0.2},
			{"今年", 1.0}, {"最近", 0.8}, {"最新", 0.9}, {"近期", 0.7},
			{"today", 1.0}, {"yesterday", 0.9}, {"this week", 0.8}, {"this month", 0.7},
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Score evaluates a single item against the query. It never fails: every
// score field is populated and notes are always present.
func (e *Evaluator) Score(query string, item Item) ScoredItem {
	relevance := e.evaluateRelevance(query, item.Title, item.Snippet)
	freshness := e.evaluateFreshness(item.Title, item.Snippet)
	credibility := e.evaluateCredibility(item.Link)

	overall := relevance*e.weights.Relevance +
		freshness*e.weights.Freshness +
		credibility*e.weights.Credibility

	return ScoredItem{
		Title:            item.Title,
		Link:             item.Link,
		Snippet:          item.Snippet,
		RelevanceScore:   round3(relevance),
		FreshnessScore:   round3(freshness),
		CredibilityScore: round3(credibility),
		OverallScore:     round3(overall),
		EvaluationNotes:  evaluationNotes(relevance, freshness, credibility),
	}
}

// ScoreAll scores every item concurrently and returns them in the input
// order. Items are never reordered or filtered. If scoring an item is not
// possible it degrades to neutral scores with an explanatory note rather
// than failing the batch.
func (e *Evaluator) ScoreAll(ctx context.Context, query string, items []Item) []ScoredItem {
	if len(items) == 0 {
		return []ScoredItem{}
	}

	scored, err := asyncx.Map(ctx, items, func(_ context.Context, item Item) (ScoredItem, error) {
		return e.scoreGuarded(query, item), nil
	})
	if err != nil {
		// Map only fails on context cancellation here; degrade every item
		scored = make([]ScoredItem, len(items))
		for i, item := range items {
			scored[i] = DegradedItem(item)
		}
	}

	logx.WithFields(logx.Fields{
		"query": query,
		"count": len(scored),
	}).Debug("search results scored")

	return scored
}

// scoreGuarded shields the batch from a single misbehaving item
func (e *Evaluator) scoreGuarded(query string, item Item) (out ScoredItem) {
	defer func() {
		if r := recover(); r != nil {
			out = DegradedItem(item)
		}
	}()
	return e.Score(query, item)
}

// DegradedItem returns the neutral fallback used when real scoring is
// unavailable. Scores are 0.5 and the notes say why.
func DegradedItem(item Item) ScoredItem {
	return ScoredItem{
		Title:            item.Title,
		Link:             item.Link,
		Snippet:          item.Snippet,
		RelevanceScore:   0.5,
		FreshnessScore:   0.5,
		CredibilityScore: 0.5,
		OverallScore:     0.5,
		EvaluationNotes:  "评分不可用；使用中性默认分",
	}
}

// evaluateRelevance measures query-term overlap, weighing title matches 0.7
// and snippet matches 0.3
func (e *Evaluator) evaluateRelevance(query, title, snippet string) float64 {
	words := wordPattern.FindAllString(strings.ToLower(query), -1)
	unique := make(map[string]struct{}, len(words))
	for _, w := range words {
		unique[w] = struct{}{}
	}
	if len(unique) == 0 {
		return 0
	}

	titleLower := strings.ToLower(title)
	snippetLower := strings.ToLower(snippet)

	var titleMatches, snippetMatches int
	for w := range unique {
		if strings.Contains(titleLower, w) {
			titleMatches++
		}
		if strings.Contains(snippetLower, w) {
			snippetMatches++
		}
	}

	score := float64(titleMatches)/float64(len(unique))*0.7 +
		float64(snippetMatches)/float64(len(unique))*0.3
	return math.Min(score, 1.0)
}

// evaluateFreshness checks year and recency keywords; no time signal means
// a neutral 0.5
func (e *Evaluator) evaluateFreshness(title, snippet string) float64 {
	text := strings.ToLower(title + " " + snippet)
	for _, rk := range e.recencyKeywords {
		if strings.Contains(text, rk.keyword) {
			return rk.score
		}
	}
	return 0.5
}

// evaluateCredibility scores the source domain: known domains from the
// table, then tld heuristics, 0.4 when the link cannot be parsed
func (e *Evaluator) evaluateCredibility(link string) float64 {
	parsed, err := url.Parse(link)
	if err != nil || parsed.Host == "" {
		return 0.4
	}

	domain := strings.ToLower(parsed.Host)
	domain = strings.TrimPrefix(domain, "www.")

	if score, ok := e.credibleDomains[domain]; ok {
		return score
	}

	tld := ""
	if i := strings.LastIndex(domain, "."); i >= 0 {
		tld = domain[i+1:]
	}
	switch tld {
	case "edu", "gov", "org":
		return 0.7
	case "com", "net":
		return 0.5
	default:
		return 0.4
	}
}

// evaluationNotes renders the three per-dimension judgements
func evaluationNotes(relevance, freshness, credibility float64) string {
	notes := make([]string, 0, 3)

	switch {
	case relevance >= 0.8:
		notes = append(notes, "相关性很高")
	case relevance >= 0.5:
		notes = append(notes, "相关性中等")
	default:
		notes = append(notes, "相关性较低")
	}

	switch {
	case freshness >= 0.8:
		notes = append(notes, "内容较新")
	case freshness >= 0.5:
		notes = append(notes, "内容时效性一般")
	default:
		notes = append(notes, "内容可能较旧")
	}

	switch {
	case credibility >= 0.8:
		notes = append(notes, "来源可信")
	case credibility >= 0.5:
		notes = append(notes, "来源可信度一般")
	default:
		notes = append(notes, "来源可信度较低")
	}

	return strings.Join(notes, "；")
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
