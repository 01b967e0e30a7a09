package chat

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/relay-labs/chatrelay/pkg/ai/document"
	"github.com/relay-labs/chatrelay/pkg/ai/embedding"
	"github.com/relay-labs/chatrelay/pkg/ai/llm"
	"github.com/relay-labs/chatrelay/pkg/ai/llm/memoryx"
	"github.com/relay-labs/chatrelay/pkg/ai/vstore/providers/vstmemory"
	"github.com/relay-labs/chatrelay/pkg/errx"
	"github.com/relay-labs/chatrelay/pkg/fsx/fsxlocal"
	"github.com/relay-labs/chatrelay/pkg/relay"
)

// scriptedStream replays fixed chunks
type scriptedStream struct {
	chunks []llm.Message
	pos    int
}

func (s *scriptedStream) Next() (llm.Message, error) {
	if s.pos >= len(s.chunks) {
		return llm.Message{}, io.EOF
	}
	chunk := s.chunks[s.pos]
	s.pos++
	return chunk, nil
}

func (s *scriptedStream) Close() error { return nil }

// scriptedProvider records the messages it receives and replays chunks
type scriptedProvider struct {
	chunks   []llm.Message
	received [][]llm.Message
}

func (p *scriptedProvider) Chat(ctx context.Context, messages []llm.Message, opts ...llm.Option) (llm.Response, error) {
	p.received = append(p.received, messages)
	var content strings.Builder
	for _, chunk := range p.chunks {
		content.WriteString(chunk.Content)
	}
	return llm.Response{Message: llm.NewAssistantMessage(content.String())}, nil
}

func (p *scriptedProvider) ChatStream(ctx context.Context, messages []llm.Message, opts ...llm.Option) (llm.Stream, error) {
	p.received = append(p.received, messages)
	return &scriptedStream{chunks: p.chunks}, nil
}

func textChunks(parts ...string) []llm.Message {
	chunks := make([]llm.Message, len(parts))
	for i, part := range parts {
		chunks[i] = llm.Message{Role: llm.RoleAssistant, Content: part}
	}
	return chunks
}

func userRequest(contents ...string) Request {
	req := Request{}
	for i, content := range contents {
		role := string(llm.RoleUser)
		if i%2 == len(contents)%2 { // alternate so the last one is user
			role = string(llm.RoleAssistant)
		}
		req.Messages = append(req.Messages, IncomingMessage{Role: role, Content: content})
	}
	return req
}

func TestComplete_ConcatenatesReply(t *testing.T) {
	provider := &scriptedProvider{chunks: textChunks("Hello", ", ", "world")}
	service := NewService(llm.NewClient(provider))

	reply, err := service.Complete(context.Background(), userRequest("hi"))
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if reply != "Hello, world" {
		t.Fatalf("unexpected reply: %q", reply)
	}
}

func TestComplete_SystemPromptReachesProvider(t *testing.T) {
	provider := &scriptedProvider{chunks: textChunks("ok")}
	service := NewService(llm.NewClient(provider), WithSystemPrompt("be terse"))

	if _, err := service.Complete(context.Background(), userRequest("hi")); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if len(provider.received) != 1 {
		t.Fatalf("expected 1 provider call, got %d", len(provider.received))
	}
	messages := provider.received[0]
	if messages[0].Role != llm.RoleSystem || messages[0].Content != "be terse" {
		t.Fatalf("system prompt missing: %+v", messages[0])
	}
}

func TestComplete_RequestSystemPromptWins(t *testing.T) {
	provider := &scriptedProvider{chunks: textChunks("ok")}
	service := NewService(llm.NewClient(provider), WithSystemPrompt("default"))

	req := userRequest("hi")
	req.SystemPrompt = "override"

	if _, err := service.Complete(context.Background(), req); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if provider.received[0][0].Content != "override" {
		t.Fatalf("request system prompt ignored: %+v", provider.received[0][0])
	}
}

func TestComplete_HistoryIsTrimmed(t *testing.T) {
	provider := &scriptedProvider{chunks: textChunks("ok")}
	service := NewService(llm.NewClient(provider))

	req := Request{MaxHistoryMessages: 3}
	for i := 0; i < 10; i++ {
		role := string(llm.RoleAssistant)
		if i%2 == 1 {
			role = string(llm.RoleUser)
		}
		req.Messages = append(req.Messages, IncomingMessage{Role: role, Content: "m"})
	}

	if _, err := service.Complete(context.Background(), req); err != nil {
		t.Fatalf("complete: %v", err)
	}

	// system prompt + trimmed window
	if got := len(provider.received[0]); got != 4 {
		t.Fatalf("expected 4 messages after trimming, got %d", got)
	}
}

func TestStream_FramesInOrder(t *testing.T) {
	provider := &scriptedProvider{chunks: textChunks("春眠", "不觉晓")}
	service := NewService(llm.NewClient(provider))

	var raw []byte
	write := func(frame []byte) error {
		raw = append(raw, frame...)
		return nil
	}

	service.Stream(context.Background(), userRequest("写诗"), write)

	decoder := relay.NewDecoder()
	events := decoder.Feed(raw)

	if len(events) != 4 {
		t.Fatalf("expected 4 frames, got %d: %s", len(events), raw)
	}
	if events[0].Type != relay.EventMeta || events[0].RequestID == "" {
		t.Fatalf("first frame must be meta: %+v", events[0])
	}
	if events[1].Type != relay.EventDelta || events[1].Content != "春眠" {
		t.Fatalf("unexpected second frame: %+v", events[1])
	}
	if events[3].Type != relay.EventDone {
		t.Fatalf("last frame must be done: %+v", events[3])
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		req  Request
		code string
	}{
		{"empty", Request{}, ErrEmptyMessages.Code},
		{"bad role", Request{Messages: []IncomingMessage{{Role: "function", Content: "x"}}}, ErrUnsupportedRole.Code},
		{"empty content", Request{Messages: []IncomingMessage{{Role: "user", Content: ""}}}, ErrInvalidRequest.Code},
		{"last not user", Request{Messages: []IncomingMessage{
			{Role: "user", Content: "hi"},
			{Role: "assistant", Content: "hello"},
		}}, ErrLastNotUser.Code},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if err.Code != tc.code {
				t.Fatalf("expected code %s, got %s", tc.code, err.Code)
			}
		})
	}

	valid := userRequest("hi")
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	withSystem := Request{Messages: []IncomingMessage{
		{Role: "system", Content: "you are terse"},
		{Role: "user", Content: "hi"},
	}}
	if err := withSystem.Validate(); err != nil {
		t.Fatalf("system message rejected: %v", err)
	}
}

func TestComplete_SystemMessageBecomesSystemPrompt(t *testing.T) {
	provider := &scriptedProvider{chunks: textChunks("ok")}
	service := NewService(llm.NewClient(provider), WithSystemPrompt("server default"))

	req := Request{Messages: []IncomingMessage{
		{Role: "system", Content: "you are terse"},
		{Role: "user", Content: "hi"},
	}}
	if err := req.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if _, err := service.Complete(context.Background(), req); err != nil {
		t.Fatalf("complete: %v", err)
	}

	messages := provider.received[0]
	if messages[0].Role != llm.RoleSystem || messages[0].Content != "you are terse" {
		t.Fatalf("system message not folded into prompt: %+v", messages[0])
	}
	for _, msg := range messages[1:] {
		if msg.Role == llm.RoleSystem {
			t.Fatalf("system message duplicated in history: %+v", messages)
		}
	}

	// The explicit field still wins over an inline system message
	req.SystemPrompt = "override"
	if _, err := service.Complete(context.Background(), req); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if provider.received[1][0].Content != "override" {
		t.Fatalf("system_prompt field lost to inline message: %+v", provider.received[1][0])
	}
}

// flatEmbedder returns a constant vector, enough for ingestion plumbing
type flatEmbedder struct{}

func (flatEmbedder) EmbedDocuments(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (flatEmbedder) EmbedQuery(ctx context.Context, text string, opts ...embedding.Option) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func TestUploadDocument_StoresAndIndexes(t *testing.T) {
	files, err := fsxlocal.NewLocalFileSystem(t.TempDir())
	if err != nil {
		t.Fatalf("fs: %v", err)
	}

	store := vstmemory.NewMemoryVectorStore(3)
	ingestor := document.NewIngestor(flatEmbedder{}, store)

	service := NewService(llm.NewClient(&scriptedProvider{}),
		WithFileSystem(files),
		WithIngestor(ingestor),
	)

	resp, uploadErr := service.UploadDocument(context.Background(), "notes.txt", "text/plain", []byte("some note content"))
	if uploadErr != nil {
		t.Fatalf("upload: %v", uploadErr)
	}

	if resp.DocumentID == "" || resp.ChunkCount < 1 {
		t.Fatalf("document not indexed: %+v", resp)
	}
	if exists, _ := files.Exists(context.Background(), resp.StoredPath); !exists {
		t.Fatalf("raw file not stored at %s", resp.StoredPath)
	}
	if store.Count() != resp.ChunkCount {
		t.Fatalf("store has %d vectors, response claims %d", store.Count(), resp.ChunkCount)
	}
}

func TestUploadDocument_Errors(t *testing.T) {
	service := NewService(llm.NewClient(&scriptedProvider{}))
	if _, err := service.UploadDocument(context.Background(), "a.txt", "text/plain", []byte("x")); errCode(err) != ErrUploadsDisabled.Code {
		t.Fatalf("expected uploads disabled, got %v", err)
	}

	files, fsErr := fsxlocal.NewLocalFileSystem(t.TempDir())
	if fsErr != nil {
		t.Fatalf("fs: %v", fsErr)
	}
	service = NewService(llm.NewClient(&scriptedProvider{}), WithFileSystem(files))
	if _, err := service.UploadDocument(context.Background(), "a.txt", "text/plain", nil); errCode(err) != ErrEmptyFile.Code {
		t.Fatalf("expected empty file error, got %v", err)
	}
}

func errCode(err error) string {
	var e *errx.Error
	if errx.As(err, &e) {
		return e.Code
	}
	return ""
}

func TestComplete_SessionMemoryAccumulates(t *testing.T) {
	provider := &scriptedProvider{chunks: textChunks("reply")}
	sessions := map[string]*memoryx.InMemoryMemory{}
	factory := func(sessionID string) memoryx.Memory {
		if m, ok := sessions[sessionID]; ok {
			return m
		}
		m := memoryx.NewInMemoryMemory()
		sessions[sessionID] = m
		return m
	}

	service := NewService(llm.NewClient(provider), WithSessionMemory(factory))

	first := userRequest("first question")
	first.SessionID = "s1"
	if _, err := service.Complete(context.Background(), first); err != nil {
		t.Fatalf("first turn: %v", err)
	}

	second := userRequest("second question")
	second.SessionID = "s1"
	if _, err := service.Complete(context.Background(), second); err != nil {
		t.Fatalf("second turn: %v", err)
	}

	// Second call sees: system, user1, assistant1, user2
	if len(provider.received) != 2 {
		t.Fatalf("expected 2 provider calls, got %d", len(provider.received))
	}
	secondCall := provider.received[1]
	if len(secondCall) != 4 {
		t.Fatalf("expected 4 messages on second turn, got %d: %+v", len(secondCall), secondCall)
	}
	if secondCall[0].Role != llm.RoleSystem {
		t.Fatalf("system prompt not seeded: %+v", secondCall[0])
	}
	if secondCall[3].Content != "second question" {
		t.Fatalf("newest user message missing: %+v", secondCall[3])
	}
}

func TestUseToolsDefault(t *testing.T) {
	req := Request{}
	if !req.useTools() {
		t.Fatal("use_tools must default to true")
	}

	off := false
	req.UseTools = &off
	if req.useTools() {
		t.Fatal("use_tools=false ignored")
	}
}
