package toolxserper

import (
	"context"
	"encoding/json"
	"testing"
)

const sampleResponse = `{
	"searchParameters": {"q": "golang concurrency"},
	"searchInformation": {"totalResults": 123456},
	"knowledgeGraph": {"title": "Go", "description": "Programming language"},
	"organic": [
		{"title": "r1", "link": "https://a", "snippet": "s1"},
		{"title": "r2", "link": "https://b", "snippet": "s2"},
		{"title": "r3", "link": "https://c", "snippet": "s3"},
		{"title": "r4", "link": "https://d", "snippet": "s4"},
		{"title": "r5", "link": "https://e", "snippet": "s5"},
		{"title": "r6", "link": "https://f", "snippet": "s6"},
		{"title": "r7", "link": "https://g", "snippet": "s7"}
	],
	"answerBox": {"answer": "goroutines", "title": "Concurrency"},
	"relatedSearches": [
		{"query": "go channels"},
		{"query": "go mutex"},
		{"query": "go waitgroup"},
		{"query": "go select"}
	]
}`

func TestSimplify(t *testing.T) {
	result, err := simplify([]byte(sampleResponse))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Query != "golang concurrency" {
		t.Fatalf("unexpected query: %q", result.Query)
	}
	if result.TotalResults != 123456 {
		t.Fatalf("unexpected total: %d", result.TotalResults)
	}
	if len(result.OrganicResults) != 5 {
		t.Fatalf("organic results must be capped at 5, got %d", len(result.OrganicResults))
	}
	if result.OrganicResults[0].Title != "r1" || result.OrganicResults[4].Title != "r5" {
		t.Fatalf("organic results reordered: %+v", result.OrganicResults)
	}
	if len(result.RelatedSearches) != 3 {
		t.Fatalf("related searches must be capped at 3, got %d", len(result.RelatedSearches))
	}
	if result.KnowledgeGraph == nil || result.KnowledgeGraph.Title != "Go" {
		t.Fatalf("knowledge graph missing: %+v", result.KnowledgeGraph)
	}
	if result.AnswerBox == nil || result.AnswerBox.Answer != "goroutines" {
		t.Fatalf("answer box missing: %+v", result.AnswerBox)
	}
}

func TestSimplify_MinimalResponse(t *testing.T) {
	result, err := simplify([]byte(`{"searchParameters":{"q":"x"}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.KnowledgeGraph != nil || result.AnswerBox != nil {
		t.Fatalf("optional sections should stay nil: %+v", result)
	}

	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{"knowledge_graph", "answer_box", "related_searches"} {
		if jsonHasKey(t, data, key) {
			t.Fatalf("empty section %q must be omitted: %s", key, data)
		}
	}
}

func jsonHasKey(t *testing.T, data []byte, key string) bool {
	t.Helper()
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	_, ok := m[key]
	return ok
}

func TestCall_BadArgumentsAreErrorShaped(t *testing.T) {
	tool := NewSerperTool("test-key")

	for _, args := range []string{`{"query":""}`, `not json`} {
		result, err := tool.Call(context.Background(), json.RawMessage(args))
		if err != nil {
			t.Fatalf("recoverable failures must not return a Go error, got %v", err)
		}
		er, ok := result.(errorResult)
		if !ok || er.Error == "" {
			t.Fatalf("expected an error-shaped result, got %#v", result)
		}
	}
}

func TestCall_MissingAPIKeyIsErrorShaped(t *testing.T) {
	t.Setenv("SERPER_API_KEY", "")
	tool := NewSerperTool("")

	result, err := tool.Call(context.Background(), json.RawMessage(`{"query":"golang"}`))
	if err != nil {
		t.Fatalf("unexpected Go error: %v", err)
	}
	if er, ok := result.(errorResult); !ok || er.Error == "" {
		t.Fatalf("expected an error-shaped result, got %#v", result)
	}
}
