package aiopenai

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared/constant"

	"github.com/relay-labs/chatrelay/pkg/ai/embedding"
	"github.com/relay-labs/chatrelay/pkg/ai/llm"
)

const (
	defaultChatModel      = "gpt-4o"
	defaultEmbeddingModel = "text-embedding-3-small"

	// DashScopeBaseURL is Alibaba Cloud's OpenAI-compatible endpoint.
	// Qwen models are served through the same wire protocol, so the
	// provider works against it unchanged.
	DashScopeBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
)

// OpenAIProvider implements llm.Provider and embedding.Embedder over the
// OpenAI Chat Completions and Embeddings APIs
type OpenAIProvider struct {
	client openai.Client
	apiKey string
}

// NewOpenAIProvider creates a new OpenAI provider. Falls back to the
// OPENAI_API_KEY environment variable when apiKey is empty.
func NewOpenAIProvider(apiKey string, opts ...option.RequestOption) *OpenAIProvider {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	options := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	client := openai.NewClient(options...)

	return &OpenAIProvider{
		client: client,
		apiKey: apiKey,
	}
}

// NewDashScopeProvider creates a provider pointed at DashScope's
// compatible-mode endpoint. Falls back to DASHSCOPE_API_KEY.
func NewDashScopeProvider(apiKey string, opts ...option.RequestOption) *OpenAIProvider {
	if apiKey == "" {
		apiKey = os.Getenv("DASHSCOPE_API_KEY")
	}

	options := append([]option.RequestOption{option.WithBaseURL(DashScopeBaseURL)}, opts...)
	return NewOpenAIProvider(apiKey, options...)
}

func defaultChatOptions(opts []llm.Option) *llm.ChatOptions {
	options := llm.NewChatOptions(opts...)
	if options.Model == "" {
		options.Model = defaultChatModel
	}
	return options
}

// Chat implements llm.Provider
func (p *OpenAIProvider) Chat(ctx context.Context, messages []llm.Message, opts ...llm.Option) (llm.Response, error) {
	if p.apiKey == "" {
		return llm.Response{}, errorRegistry.New(ErrMissingAPIKey)
	}
	if len(messages) == 0 {
		return llm.Response{}, errorRegistry.New(ErrEmptyMessages)
	}

	options := defaultChatOptions(opts)

	params, err := p.buildChatParams(messages, options)
	if err != nil {
		return llm.Response{}, err
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return llm.Response{}, ParseOpenAIError(err).
			WithDetail("model", options.Model).
			WithDetail("num_messages", len(messages))
	}

	return convertFromOpenAIResponse(completion)
}

// ChatStream implements llm.Provider
func (p *OpenAIProvider) ChatStream(ctx context.Context, messages []llm.Message, opts ...llm.Option) (llm.Stream, error) {
	if p.apiKey == "" {
		return nil, errorRegistry.New(ErrMissingAPIKey)
	}
	if len(messages) == 0 {
		return nil, errorRegistry.New(ErrEmptyMessages)
	}

	options := defaultChatOptions(opts)

	params, err := p.buildChatParams(messages, options)
	if err != nil {
		return nil, err
	}

	sseStream := p.client.Chat.Completions.NewStreaming(ctx, params)

	return &openAIStream{
		stream:      sseStream,
		accumulator: openai.ChatCompletionAccumulator{},
	}, nil
}

func (p *OpenAIProvider) buildChatParams(messages []llm.Message, options *llm.ChatOptions) (openai.ChatCompletionNewParams, error) {
	openAIMessages := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for i, msg := range messages {
		openAIMsg, err := convertToOpenAIMessage(msg)
		if err != nil {
			return openai.ChatCompletionNewParams{}, WrapError(err, ErrInvalidMessage).
				WithDetail("message_index", i).
				WithDetail("role", msg.Role)
		}
		openAIMessages = append(openAIMessages, openAIMsg)
	}

	params := openai.ChatCompletionNewParams{
		Messages: openAIMessages,
		Model:    options.Model,
	}

	// Set optional parameters
	if options.Temperature != nil {
		params.Temperature = openai.Float(*options.Temperature)
	}
	if options.TopP != nil {
		params.TopP = openai.Float(*options.TopP)
	}
	if options.MaxTokens != nil {
		params.MaxTokens = openai.Int(int64(*options.MaxTokens))
	}
	if len(options.Stop) > 0 {
		params.Stop = openai.ChatCompletionNewParamsStopUnion{
			OfStringArray: options.Stop,
		}
	}
	if options.User != "" {
		params.User = openai.String(options.User)
	}

	if len(options.Tools) > 0 {
		tools, err := convertToOpenAITools(options.Tools)
		if err != nil {
			return openai.ChatCompletionNewParams{}, err
		}
		params.Tools = tools
	}

	if options.ToolChoice != "" {
		params.ToolChoice = convertToOpenAIToolChoice(options.ToolChoice)
	}

	return params, nil
}

// ============================================================================
// Embeddings Implementation
// ============================================================================

// EmbedDocuments implements embedding.Embedder
func (p *OpenAIProvider) EmbedDocuments(ctx context.Context, documents []string, opts ...embedding.Option) ([][]float32, error) {
	if len(documents) == 0 {
		return nil, errorRegistry.New(ErrEmptyEmbeddingInput)
	}

	options := embedding.NewOptions(opts...)

	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: documents,
		},
	}

	if options.Model != "" {
		params.Model = options.Model
	} else {
		params.Model = defaultEmbeddingModel
	}

	if options.Dimensions != nil {
		params.Dimensions = openai.Int(int64(*options.Dimensions))
	}

	if options.User != "" {
		params.User = openai.String(options.User)
	}

	resp, err := p.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, ParseOpenAIError(err).
			WithDetail("model", params.Model).
			WithDetail("num_documents", len(documents))
	}

	if len(resp.Data) == 0 {
		return nil, errorRegistry.New(ErrNoEmbeddingReturned).
			WithDetail("num_documents", len(documents))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		vectors[i] = convertToFloat32Slice(data.Embedding)
	}

	return vectors, nil
}

// EmbedQuery implements embedding.Embedder
func (p *OpenAIProvider) EmbedQuery(ctx context.Context, text string, opts ...embedding.Option) ([]float32, error) {
	if text == "" {
		return nil, errorRegistry.New(ErrEmptyEmbeddingInput)
	}

	vectors, err := p.EmbedDocuments(ctx, []string{text}, opts...)
	if err != nil {
		return nil, err
	}

	if len(vectors) == 0 {
		return nil, errorRegistry.New(ErrNoEmbeddingReturned)
	}

	return vectors[0], nil
}

// ============================================================================
// Stream Implementation
// ============================================================================

type openAIStream struct {
	stream interface {
		Next() bool
		Current() openai.ChatCompletionChunk
		Err() error
	}
	accumulator openai.ChatCompletionAccumulator
	lastError   error
	current     llm.Message
}

func (s *openAIStream) Next() (llm.Message, error) {
	if s.lastError != nil {
		return llm.Message{}, s.lastError
	}

	if !s.stream.Next() {
		if err := s.stream.Err(); err != nil {
			s.lastError = ParseOpenAIError(err)
			return llm.Message{}, s.lastError
		}
		s.lastError = io.EOF
		return llm.Message{}, io.EOF
	}

	chunk := s.stream.Current()
	s.accumulator.AddChunk(chunk)

	if len(chunk.Choices) == 0 {
		return llm.Message{Role: llm.RoleAssistant}, nil
	}

	delta := chunk.Choices[0].Delta

	// Use INDEX-based accumulation, not ID-based. OpenAI only sends the ID
	// on the first delta for each tool call; subsequent argument chunks
	// have an empty ID but carry the correct Index.
	for _, tc := range delta.ToolCalls {
		idx := int(tc.Index)

		// Grow the slice to accommodate this index
		for len(s.current.ToolCalls) <= idx {
			s.current.ToolCalls = append(s.current.ToolCalls, llm.ToolCall{Type: "function"})
		}

		// Only set ID and Name when they arrive (first chunk for this tool call)
		if tc.ID != "" {
			s.current.ToolCalls[idx].ID = tc.ID
		}
		if tc.Function.Name != "" {
			s.current.ToolCalls[idx].Function.Name += tc.Function.Name
		}
		// Arguments accumulate across ALL chunks for this tool call
		s.current.ToolCalls[idx].Function.Arguments += tc.Function.Arguments
	}

	return llm.Message{
		Role:      llm.RoleAssistant,
		Content:   delta.Content,       // delta only
		ToolCalls: s.current.ToolCalls, // full accumulated snapshot
	}, nil
}

func (s *openAIStream) Close() error {
	return nil
}

// ============================================================================
// Helper Functions
// ============================================================================

func convertToOpenAIMessage(msg llm.Message) (openai.ChatCompletionMessageParamUnion, error) {
	switch msg.Role {
	case llm.RoleSystem:
		return openai.SystemMessage(msg.Content), nil
	case llm.RoleUser:
		return openai.UserMessage(msg.Content), nil
	case llm.RoleAssistant:
		if len(msg.ToolCalls) > 0 {
			toolCalls := make([]openai.ChatCompletionMessageToolCallUnionParam, 0, len(msg.ToolCalls))
			for _, tc := range msg.ToolCalls {
				toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID:   tc.ID,
						Type: constant.Function("function"),
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      tc.Function.Name,
							Arguments: tc.Function.Arguments,
						},
					},
				})
			}

			return openai.ChatCompletionMessageParamUnion{
				OfAssistant: &openai.ChatCompletionAssistantMessageParam{
					Role: constant.Assistant("assistant"),
					Content: openai.ChatCompletionAssistantMessageParamContentUnion{
						OfString: openai.String(msg.Content),
					},
					ToolCalls: toolCalls,
				},
			}, nil
		}

		return openai.AssistantMessage(msg.Content), nil
	case llm.RoleTool:
		return openai.ToolMessage(msg.Content, msg.ToolCallID), nil
	default:
		return openai.ChatCompletionMessageParamUnion{},
			errorRegistry.New(ErrUnsupportedRole).
				WithDetail("role", msg.Role)
	}
}

func convertToOpenAITools(tools []llm.Tool) ([]openai.ChatCompletionToolUnionParam, error) {
	result := make([]openai.ChatCompletionToolUnionParam, 0, len(tools))

	for _, tool := range tools {
		if tool.Type != "function" {
			continue
		}

		paramsJSON, err := json.Marshal(tool.Function.Parameters)
		if err != nil {
			return nil, WrapError(err, ErrJSONParsing).
				WithDetail("tool", tool.Function.Name)
		}

		var parametersMap map[string]any
		if err := json.Unmarshal(paramsJSON, &parametersMap); err != nil {
			return nil, WrapError(err, ErrJSONParsing).
				WithDetail("tool", tool.Function.Name)
		}

		result = append(result, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        tool.Function.Name,
			Description: openai.String(tool.Function.Description),
			Parameters:  openai.FunctionParameters(parametersMap),
		}))
	}

	return result, nil
}

func convertToOpenAIToolChoice(toolChoice string) openai.ChatCompletionToolChoiceOptionUnionParam {
	switch toolChoice {
	case "auto", "none", "required":
		return openai.ChatCompletionToolChoiceOptionUnionParam{
			OfAuto: openai.String(toolChoice),
		}
	}

	return openai.ChatCompletionToolChoiceOptionUnionParam{
		OfAuto: openai.String("auto"),
	}
}

func convertFromOpenAIResponse(completion *openai.ChatCompletion) (llm.Response, error) {
	if len(completion.Choices) == 0 {
		return llm.Response{}, errorRegistry.New(ErrNoChoicesInResponse)
	}

	choice := completion.Choices[0]

	message := llm.Message{
		Role:    string(choice.Message.Role),
		Content: choice.Message.Content,
	}

	if len(choice.Message.ToolCalls) > 0 {
		toolCalls := make([]llm.ToolCall, 0, len(choice.Message.ToolCalls))
		for _, tc := range choice.Message.ToolCalls {
			toolCalls = append(toolCalls, llm.ToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: llm.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
		message.ToolCalls = toolCalls
	}

	usage := llm.Usage{
		PromptTokens:     int(completion.Usage.PromptTokens),
		CompletionTokens: int(completion.Usage.CompletionTokens),
		TotalTokens:      int(completion.Usage.TotalTokens),
	}

	return llm.Response{
		Message: message,
		Usage:   usage,
	}, nil
}

func convertToFloat32Slice(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
