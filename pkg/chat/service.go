package chat

import (
	"context"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/relay-labs/chatrelay/pkg/ai/document"
	"github.com/relay-labs/chatrelay/pkg/ai/llm"
	"github.com/relay-labs/chatrelay/pkg/ai/llm/agentx"
	"github.com/relay-labs/chatrelay/pkg/ai/llm/memoryx"
	"github.com/relay-labs/chatrelay/pkg/ai/llm/toolx"
	"github.com/relay-labs/chatrelay/pkg/fsx"
	"github.com/relay-labs/chatrelay/pkg/logx"
	"github.com/relay-labs/chatrelay/pkg/relay"
)

// Service runs chat turns and document uploads. Each turn gets a fresh
// agent over the request's own history; nothing is shared between turns
// except the read-only wiring below.
type Service struct {
	client        llm.Client
	tools         *toolx.ToolxClient
	orchestrator  *relay.Orchestrator
	ingestor      *document.Ingestor
	files         fsx.FileSystem
	systemPrompt  string
	llmOptions    []llm.Option
	memoryFactory func(sessionID string) memoryx.Memory
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithTools makes the tool registry available to chat turns
func WithTools(tools *toolx.ToolxClient) ServiceOption {
	return func(s *Service) {
		s.tools = tools
	}
}

// WithIngestor enables document ingestion on upload
func WithIngestor(ingestor *document.Ingestor) ServiceOption {
	return func(s *Service) {
		s.ingestor = ingestor
	}
}

// WithFileSystem sets where raw uploads are stored
func WithFileSystem(files fsx.FileSystem) ServiceOption {
	return func(s *Service) {
		s.files = files
	}
}

// WithSystemPrompt overrides the default system prompt
func WithSystemPrompt(prompt string) ServiceOption {
	return func(s *Service) {
		s.systemPrompt = prompt
	}
}

// WithLLMOptions sets model options applied to every turn
func WithLLMOptions(opts ...llm.Option) ServiceOption {
	return func(s *Service) {
		s.llmOptions = append(s.llmOptions, opts...)
	}
}

// WithSessionMemory enables server-side conversation persistence for
// requests that carry a session_id
func WithSessionMemory(factory func(sessionID string) memoryx.Memory) ServiceOption {
	return func(s *Service) {
		s.memoryFactory = factory
	}
}

// NewService creates a chat service
func NewService(client llm.Client, opts ...ServiceOption) *Service {
	s := &Service{
		client:       client,
		orchestrator: relay.NewOrchestrator(nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stream runs one turn and emits the framed event sequence through write.
// The request must be validated before calling; by the time frames flow
// the HTTP status is already committed.
func (s *Service) Stream(ctx context.Context, req Request, write relay.FrameWriter) {
	agent, input := s.agentAndInput(req)
	events := agent.Events(ctx, input)
	s.orchestrator.Run(ctx, req.userQuery(), events, write)
}

// Complete runs one turn to completion and returns the assistant text
func (s *Service) Complete(ctx context.Context, req Request) (string, error) {
	agent, input := s.agentAndInput(req)
	events := agent.Events(ctx, input)
	return s.orchestrator.Collect(ctx, events)
}

func (s *Service) agentAndInput(req Request) (*agentx.Agent, []llm.Message) {
	opts := []agentx.AgentOption{agentx.WithOptions(s.llmOptions...)}
	if s.tools != nil && req.useTools() {
		opts = append(opts, agentx.WithTools(s.tools))
	}

	// Session mode: the server owns history, the request contributes only
	// the newest user message
	if req.SessionID != "" && s.memoryFactory != nil {
		memory := s.memoryFactory(req.SessionID)
		var input []llm.Message
		if existing, err := memory.Messages(); err == nil && len(existing) == 0 {
			input = append(input, llm.NewSystemMessage(req.systemPrompt(s.systemPrompt)))
		}
		input = append(input, llm.NewUserMessage(req.userQuery()))
		return agentx.New(s.client, memory, opts...), input
	}

	memory := memoryx.NewInMemoryMemory(req.systemPrompt(s.systemPrompt))
	return agentx.New(s.client, memory, opts...), req.history()
}

// UploadDocument stores the raw file and indexes its content into the
// vector store when an ingestor is configured.
func (s *Service) UploadDocument(ctx context.Context, filename, contentType string, data []byte) (*UploadResponse, error) {
	if s.files == nil {
		return nil, errorRegistry.New(ErrUploadsDisabled)
	}
	if len(data) == 0 {
		return nil, errorRegistry.New(ErrEmptyFile)
	}

	storedPath := s.files.Join("uploads", uuid.NewString()+filepath.Ext(filename))
	if err := s.files.WriteFile(ctx, storedPath, data); err != nil {
		return nil, errorRegistry.NewWithCause(ErrUploadFailed, err)
	}

	resp := &UploadResponse{
		FileName:   filename,
		StoredPath: storedPath,
	}

	if s.ingestor == nil {
		logx.WithField("file", filename).Info("file stored without indexing (no ingestor)")
		return resp, nil
	}

	doc := document.NewDocument(string(data))
	doc.WithMetadata(document.MetadataSource, filename)
	doc.WithMetadata(document.MetadataContentType, contentType)
	doc.WithMetadata(document.MetadataFileSize, len(data))

	result, err := s.ingestor.Ingest(ctx, doc)
	if err != nil {
		return nil, errorRegistry.NewWithCause(ErrIngestionFailed, err)
	}

	resp.DocumentID = result.DocumentID
	resp.ChunkCount = result.ChunkCount
	return resp, nil
}
