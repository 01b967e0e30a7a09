package toolxserper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/relay-labs/chatrelay/pkg/asyncx"
	"github.com/relay-labs/chatrelay/pkg/logx"
)

const (
	apiURL = "https://google.serper.dev/search"

	defaultNumResults = 10
	defaultTimeout    = 30 * time.Second

	requestAttempts = 3
	retryBaseDelay  = 500 * time.Millisecond

	maxOrganicResults  = 5
	maxRelatedSearches = 3
)

// SerperTool queries the Serper.dev Google Search API. Request failures are
// returned as error-shaped results so the agent loop can feed them back to
// the model instead of aborting the turn.
type SerperTool struct {
	apiKey   string
	gl       string
	hl       string
	location string
	timeout  time.Duration
	client   *fasthttp.Client
}

// Option configures a SerperTool
type Option func(*SerperTool)

// WithLocale sets the country (gl), language (hl), and location parameters
func WithLocale(gl, hl, location string) Option {
	return func(t *SerperTool) {
		t.gl = gl
		t.hl = hl
		t.location = location
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(timeout time.Duration) Option {
	return func(t *SerperTool) {
		t.timeout = timeout
	}
}

// NewSerperTool creates the search tool. Falls back to the SERPER_API_KEY
// environment variable when apiKey is empty.
func NewSerperTool(apiKey string, opts ...Option) *SerperTool {
	if apiKey == "" {
		apiKey = os.Getenv("SERPER_API_KEY")
	}

	tool := &SerperTool{
		apiKey:   apiKey,
		gl:       "us",
		hl:       "en",
		location: "United States",
		timeout:  defaultTimeout,
		client:   &fasthttp.Client{},
	}
	for _, opt := range opts {
		opt(tool)
	}
	return tool
}

// Name implements toolx.Tool
func (t *SerperTool) Name() string { return "serper_search" }

// Description implements toolx.Tool
func (t *SerperTool) Description() string {
	return "Search the web through the Google Search API for up-to-date information: " +
		"news, company facts, technical documentation. Input is a concrete search query."
}

// Parameters implements toolx.Tool
func (t *SerperTool) Parameters() any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Search query keywords or question",
			},
			"num_results": map[string]any{
				"type":        "integer",
				"description": "Number of results to fetch (1-20, default 10)",
				"minimum":     1,
				"maximum":     20,
			},
		},
		"required": []string{"query"},
	}
}

type searchArgs struct {
	Query      string `json:"query"`
	NumResults int    `json:"num_results"`
}

type errorResult struct {
	Error string `json:"error"`
}

// Call implements toolx.Tool
func (t *SerperTool) Call(ctx context.Context, args json.RawMessage) (any, error) {
	var input searchArgs
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult{Error: fmt.Sprintf("无效的搜索参数: %v", err)}, nil
	}
	if input.Query == "" {
		return errorResult{Error: "搜索查询不能为空"}, nil
	}
	if t.apiKey == "" {
		return errorResult{Error: "未配置搜索 API 密钥"}, nil
	}

	num := input.NumResults
	if num < 1 || num > 20 {
		num = defaultNumResults
	}

	// Transient network failures get retried before the model sees an error
	body, err := asyncx.RetryWithBackoff(ctx, requestAttempts, retryBaseDelay, func(ctx context.Context) ([]byte, error) {
		return t.search(ctx, input.Query, num)
	})
	if err != nil {
		logx.WithError(err).WithField("query", input.Query).Error("serper request failed")
		if errors.Is(err, fasthttp.ErrTimeout) {
			return errorResult{Error: "搜索请求超时，请稍后重试"}, nil
		}
		return errorResult{Error: fmt.Sprintf("网络请求失败: %v", err)}, nil
	}

	result, err := simplify(body)
	if err != nil {
		logx.WithError(err).Error("serper response not parseable")
		return errorResult{Error: "搜索结果解析失败"}, nil
	}

	logx.WithFields(logx.Fields{
		"query":   input.Query,
		"results": len(result.OrganicResults),
	}).Debug("serper search completed")

	return result, nil
}

func (t *SerperTool) search(ctx context.Context, query string, num int) ([]byte, error) {
	payload, err := json.Marshal(map[string]any{
		"q":        query,
		"num":      num,
		"gl":       t.gl,
		"hl":       t.hl,
		"location": t.location,
	})
	if err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(apiURL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("X-API-KEY", t.apiKey)
	req.SetBody(payload)

	timeout := t.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	if err := t.client.DoTimeout(req, resp, timeout); err != nil {
		return nil, err
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("serper returned status %d", resp.StatusCode())
	}

	// resp body is pooled; copy before release
	return append([]byte(nil), resp.Body()...), nil
}

// SearchResult is the simplified payload handed to the model
type SearchResult struct {
	Query           string          `json:"query"`
	TotalResults    int64           `json:"total_results"`
	KnowledgeGraph  *KnowledgeGraph `json:"knowledge_graph,omitempty"`
	OrganicResults  []OrganicResult `json:"organic_results,omitempty"`
	AnswerBox       *AnswerBox      `json:"answer_box,omitempty"`
	RelatedSearches []string        `json:"related_searches,omitempty"`
}

// OrganicResult is one web hit
type OrganicResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// KnowledgeGraph is the entity card, when present
type KnowledgeGraph struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Attributes  map[string]any `json:"attributes,omitempty"`
}

// AnswerBox is the direct-answer card, when present
type AnswerBox struct {
	Answer  string `json:"answer,omitempty"`
	Snippet string `json:"snippet,omitempty"`
	Title   string `json:"title,omitempty"`
}

// simplify extracts the fields the model needs from a raw API response
func simplify(body []byte) (SearchResult, error) {
	var raw struct {
		SearchParameters struct {
			Q string `json:"q"`
		} `json:"searchParameters"`
		SearchInformation struct {
			TotalResults int64 `json:"totalResults"`
		} `json:"searchInformation"`
		KnowledgeGraph *KnowledgeGraph `json:"knowledgeGraph"`
		Organic        []OrganicResult `json:"organic"`
		AnswerBox      *AnswerBox      `json:"answerBox"`
		RelatedSearches []struct {
			Query string `json:"query"`
		} `json:"relatedSearches"`
	}

	if err := json.Unmarshal(body, &raw); err != nil {
		return SearchResult{}, err
	}

	result := SearchResult{
		Query:          raw.SearchParameters.Q,
		TotalResults:   raw.SearchInformation.TotalResults,
		KnowledgeGraph: raw.KnowledgeGraph,
		AnswerBox:      raw.AnswerBox,
	}

	organic := raw.Organic
	if len(organic) > maxOrganicResults {
		organic = organic[:maxOrganicResults]
	}
	result.OrganicResults = organic

	for i, rs := range raw.RelatedSearches {
		if i == maxRelatedSearches {
			break
		}
		result.RelatedSearches = append(result.RelatedSearches, rs.Query)
	}

	return result, nil
}
