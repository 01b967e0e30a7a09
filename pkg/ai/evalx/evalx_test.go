package evalx_test

import (
	"context"
	"strings"
	"testing"

	"github.com/relay-labs/chatrelay/pkg/ai/evalx"
)

func TestScore_Bounds(t *testing.T) {
	e := evalx.NewEvaluator()

	items := []evalx.Item{
		{Title: "Go Tutorial 2025", Link: "https://github.com/golang/go", Snippet: "learn go today"},
		{Title: "", Link: "", Snippet: ""},
		{Title: "random", Link: "not a url at all", Snippet: "stuff"},
	}

	for _, item := range items {
		scored := e.Score("go tutorial", item)
		for name, v := range map[string]float64{
			"relevance":   scored.RelevanceScore,
			"freshness":   scored.FreshnessScore,
			"credibility": scored.CredibilityScore,
			"overall":     scored.OverallScore,
		} {
			if v < 0 || v > 1 {
				t.Fatalf("%s score out of bounds for %+v: %v", name, item, v)
			}
		}
		if scored.EvaluationNotes == "" {
			t.Fatalf("evaluation notes empty for %+v", item)
		}
	}
}

func TestScore_Deterministic(t *testing.T) {
	e := evalx.NewEvaluator()
	item := evalx.Item{
		Title:   "Go concurrency patterns 2024",
		Link:    "https://github.com/golang/go/wiki",
		Snippet: "goroutines and channels explained",
	}

	first := e.Score("go concurrency", item)
	second := e.Score("go concurrency", item)
	if first != second {
		t.Fatalf("scoring is not deterministic: %+v vs %+v", first, second)
	}
}

func TestScore_TitleWeighedOverSnippet(t *testing.T) {
	e := evalx.NewEvaluator()

	inTitle := e.Score("kubernetes", evalx.Item{Title: "kubernetes guide", Link: "https://example.com", Snippet: "other"})
	inSnippet := e.Score("kubernetes", evalx.Item{Title: "guide", Link: "https://example.com", Snippet: "kubernetes"})

	if inTitle.RelevanceScore <= inSnippet.RelevanceScore {
		t.Fatalf("title match should outscore snippet match: %v <= %v",
			inTitle.RelevanceScore, inSnippet.RelevanceScore)
	}
}

func TestScore_CredibleDomains(t *testing.T) {
	e := evalx.NewEvaluator()

	github := e.Score("q", evalx.Item{Link: "https://github.com/some/repo"})
	www := e.Score("q", evalx.Item{Link: "https://www.github.com/some/repo"})
	if github.CredibilityScore != 0.9 || www.CredibilityScore != 0.9 {
		t.Fatalf("expected 0.9 for github.com, got %v and %v",
			github.CredibilityScore, www.CredibilityScore)
	}

	edu := e.Score("q", evalx.Item{Link: "https://cs.stanford.edu/paper"})
	if edu.CredibilityScore != 0.7 {
		t.Fatalf("expected 0.7 for .edu, got %v", edu.CredibilityScore)
	}

	com := e.Score("q", evalx.Item{Link: "https://randomblog.com/post"})
	if com.CredibilityScore != 0.5 {
		t.Fatalf("expected 0.5 for unknown .com, got %v", com.CredibilityScore)
	}
}

func TestScore_Freshness(t *testing.T) {
	e := evalx.NewEvaluator()

	fresh := e.Score("q", evalx.Item{Title: "Released in 2025", Link: "https://example.com"})
	if fresh.FreshnessScore != 1.0 {
		t.Fatalf("expected 1.0 for 2025, got %v", fresh.FreshnessScore)
	}

	stale := e.Score("q", evalx.Item{Title: "An article from 2021", Link: "https://example.com"})
	if stale.FreshnessScore != 0.2 {
		t.Fatalf("expected 0.2 for 2021, got %v", stale.FreshnessScore)
	}

	chinese := e.Score("q", evalx.Item{Title: "最新进展", Link: "https://example.com"})
	if chinese.FreshnessScore != 0.9 {
		t.Fatalf("expected 0.9 for 最新, got %v", chinese.FreshnessScore)
	}

	none := e.Score("q", evalx.Item{Title: "timeless wisdom", Link: "https://example.com"})
	if none.FreshnessScore != 0.5 {
		t.Fatalf("expected neutral 0.5 with no time signal, got %v", none.FreshnessScore)
	}
}

func TestScoreAll_PreservesOrder(t *testing.T) {
	e := evalx.NewEvaluator()

	items := []evalx.Item{
		{Title: "low relevance", Link: "https://a.xyz"},
		{Title: "go tutorial go tutorial", Link: "https://github.com/x", Snippet: "go tutorial"},
		{Title: "middle", Link: "https://b.org", Snippet: "go"},
	}

	scored := e.ScoreAll(context.Background(), "go tutorial", items)
	if len(scored) != len(items) {
		t.Fatalf("expected %d scored items, got %d", len(items), len(scored))
	}
	for i := range items {
		if scored[i].Title != items[i].Title {
			t.Fatalf("order not preserved at %d: got %q want %q", i, scored[i].Title, items[i].Title)
		}
	}
}

func TestScoreAll_AllFieldsPopulated(t *testing.T) {
	e := evalx.NewEvaluator()

	scored := e.ScoreAll(context.Background(), "查询", []evalx.Item{
		{Title: "第一", Link: "https://zh.wikipedia.org/wiki/x", Snippet: "查询结果"},
		{Title: "第二", Link: "", Snippet: ""},
		{Title: "第三", Link: "https://example.net", Snippet: "今年"},
	})

	for i, s := range scored {
		if s.EvaluationNotes == "" {
			t.Fatalf("item %d: notes missing", i)
		}
		if !strings.Contains(s.EvaluationNotes, "；") {
			t.Fatalf("item %d: expected multi-part notes, got %q", i, s.EvaluationNotes)
		}
	}
}

func TestDegradedItem_Neutral(t *testing.T) {
	d := evalx.DegradedItem(evalx.Item{Title: "t", Link: "l", Snippet: "s"})
	if d.OverallScore != 0.5 || d.RelevanceScore != 0.5 {
		t.Fatalf("degraded scores must be neutral 0.5, got %+v", d)
	}
	if d.EvaluationNotes == "" {
		t.Fatal("degraded item must carry explanatory notes")
	}
	if d.Title != "t" || d.Link != "l" || d.Snippet != "s" {
		t.Fatalf("degraded item must keep original fields, got %+v", d)
	}
}
