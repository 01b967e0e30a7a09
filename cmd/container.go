// cmd/container.go
//
// Root composition root. Resolves config, owns infrastructure (LLM
// provider, vector store, file storage, Redis) and wires the chat module.
package main

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/relay-labs/chatrelay/pkg/ai/document"
	"github.com/relay-labs/chatrelay/pkg/ai/embedding"
	"github.com/relay-labs/chatrelay/pkg/ai/llm"
	"github.com/relay-labs/chatrelay/pkg/ai/llm/memoryx"
	"github.com/relay-labs/chatrelay/pkg/ai/llm/memoryx/memoryxredis"
	"github.com/relay-labs/chatrelay/pkg/ai/llm/toolx"
	"github.com/relay-labs/chatrelay/pkg/ai/llm/toolx/toolxknowledge"
	"github.com/relay-labs/chatrelay/pkg/ai/llm/toolx/toolxserper"
	"github.com/relay-labs/chatrelay/pkg/ai/llm/toolx/toolxtime"
	"github.com/relay-labs/chatrelay/pkg/ai/providers/aianthropic"
	"github.com/relay-labs/chatrelay/pkg/ai/providers/aiopenai"
	"github.com/relay-labs/chatrelay/pkg/ai/vstore"
	"github.com/relay-labs/chatrelay/pkg/ai/vstore/providers/vstmemory"
	"github.com/relay-labs/chatrelay/pkg/ai/vstore/providers/vstpgvector"
	"github.com/relay-labs/chatrelay/pkg/chat"
	"github.com/relay-labs/chatrelay/pkg/config"
	"github.com/relay-labs/chatrelay/pkg/fsx"
	"github.com/relay-labs/chatrelay/pkg/fsx/fsxlocal"
	"github.com/relay-labs/chatrelay/pkg/fsx/fsxs3"
	"github.com/relay-labs/chatrelay/pkg/logx"
)

// Container holds shared infrastructure and the wired chat module
type Container struct {
	Config *config.Config

	// Infrastructure
	Redis       *redis.Client
	FileSystem  fsx.FileSystem
	VectorStore vstore.VectorStorer
	Embedder    embedding.Embedder

	// Chat module
	ChatService  *chat.Service
	ChatHandlers *chat.Handlers

	pgProvider *vstpgvector.PgVectorProvider
}

func NewContainer(cfg *config.Config) *Container {
	logx.Info("🔧 Initializing application container...")

	c := &Container{Config: cfg}

	client := c.initLLM()
	c.initVectorStore()
	c.initFileStorage()
	c.initRedis()
	c.initChat(client)

	logx.Info("✅ Application container initialized")
	return c
}

// initLLM builds the chat client and, where the backend supports it, the
// embedder. Anthropic has no embedding API, so embeddings always go
// through an OpenAI-compatible provider.
func (c *Container) initLLM() llm.Client {
	var provider llm.Provider

	switch c.Config.LLM.Provider {
	case "anthropic":
		provider = aianthropic.NewAnthropicProvider(c.Config.LLM.APIKey)
		c.Embedder = aiopenai.NewOpenAIProvider(c.Config.Embedding.APIKey)
	case "dashscope":
		p := aiopenai.NewDashScopeProvider(c.Config.LLM.APIKey)
		provider = p
		c.Embedder = p
	default:
		p := aiopenai.NewOpenAIProvider(c.Config.LLM.APIKey)
		provider = p
		c.Embedder = p
	}
	logx.Infof("  ✅ LLM provider: %s", c.Config.LLM.Provider)

	var defaults []llm.Option
	if c.Config.LLM.Model != "" {
		defaults = append(defaults, llm.WithModel(c.Config.LLM.Model))
	}
	defaults = append(defaults, llm.WithTemperature(c.Config.LLM.Temperature))
	if c.Config.LLM.MaxTokens > 0 {
		defaults = append(defaults, llm.WithMaxTokens(c.Config.LLM.MaxTokens))
	}

	return llm.NewClient(provider, defaults...)
}

func (c *Container) initVectorStore() {
	switch c.Config.VectorStore.Mode {
	case "pgvector":
		provider, err := vstpgvector.NewPgVectorProvider(
			c.Config.VectorStore.PostgresDSN,
			c.Config.Embedding.Dimension,
			vstpgvector.WithTableName(c.Config.VectorStore.TableName),
		)
		if err != nil {
			logx.Fatalf("Failed to initialize pgvector store: %v", err)
		}
		c.pgProvider = provider
		c.VectorStore = provider
		logx.Infof("  ✅ pgvector store configured (table: %s)", c.Config.VectorStore.TableName)

	case "memory":
		c.VectorStore = vstmemory.NewMemoryVectorStore(c.Config.Embedding.Dimension)
		logx.Info("  ✅ In-memory vector store configured")

	default:
		logx.Fatalf("Unknown VSTORE_MODE: %s (use 'memory' or 'pgvector')", c.Config.VectorStore.Mode)
	}
}

func (c *Container) initFileStorage() {
	switch c.Config.Storage.Mode {
	case "s3":
		s3fs, err := fsxs3.NewS3FileSystem(context.Background(), c.Config.Storage.S3Bucket,
			fsxs3.WithPrefix(c.Config.Storage.S3Prefix))
		if err != nil {
			logx.Fatalf("Failed to initialize S3 file system: %v", err)
		}
		c.FileSystem = s3fs
		logx.Infof("  ✅ S3 file system configured (bucket: %s)", c.Config.Storage.S3Bucket)

	case "local":
		localFS, err := fsxlocal.NewLocalFileSystem(c.Config.Storage.UploadDir)
		if err != nil {
			logx.Fatalf("Failed to initialize local file system: %v", err)
		}
		c.FileSystem = localFS
		logx.Infof("  ✅ Local file system configured (path: %s)", c.Config.Storage.UploadDir)

	default:
		logx.Fatalf("Unknown STORAGE_MODE: %s (use 'local' or 's3')", c.Config.Storage.Mode)
	}
}

// initRedis is optional: without REDIS_ADDR the server still works, chat
// just has no server-side sessions
func (c *Container) initRedis() {
	if c.Config.Redis.Addr == "" {
		logx.Info("  ⚪ Redis not configured, session persistence disabled")
		return
	}

	c.Redis = redis.NewClient(&redis.Options{
		Addr:     c.Config.Redis.Addr,
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
	})
	if err := c.Redis.Ping(context.Background()).Err(); err != nil {
		logx.Fatalf("Failed to connect to Redis: %v", err)
	}
	logx.Info("  ✅ Redis connected")
}

func (c *Container) initChat(client llm.Client) {
	tools := toolx.NewToolxClient(toolxtime.NewTimeTool())

	if c.Config.Search.SerperAPIKey != "" {
		tools.Register(toolxserper.NewSerperTool(c.Config.Search.SerperAPIKey,
			toolxserper.WithLocale(c.Config.Search.Country, c.Config.Search.Language, c.Config.Search.Location),
			toolxserper.WithTimeout(c.Config.Search.Timeout),
		))
		logx.Info("  ✅ Serper search tool registered")
	} else {
		logx.Warn("  ⚠️ SERPER_API_KEY not set, web search disabled")
	}

	var embedOpts []embedding.Option
	if c.Config.Embedding.Model != "" {
		embedOpts = append(embedOpts, embedding.WithModel(c.Config.Embedding.Model))
	}

	tools.Register(toolxknowledge.NewKnowledgeTool(c.Embedder, c.VectorStore,
		toolxknowledge.WithEmbeddingOptions(embedOpts...)))

	ingestor := document.NewIngestor(c.Embedder, c.VectorStore,
		document.WithEmbeddingOptions(embedOpts...))

	opts := []chat.ServiceOption{
		chat.WithTools(tools),
		chat.WithFileSystem(c.FileSystem),
		chat.WithIngestor(ingestor),
	}
	if c.Config.Server.SystemPrompt != "" {
		opts = append(opts, chat.WithSystemPrompt(c.Config.Server.SystemPrompt))
	}
	if c.Redis != nil {
		ttl := c.Config.Redis.SessionTTL
		rdb := c.Redis
		opts = append(opts, chat.WithSessionMemory(func(sessionID string) memoryx.Memory {
			return memoryxredis.NewRedisMemory(rdb, sessionID, memoryxredis.WithTTL(ttl))
		}))
	}

	c.ChatService = chat.NewService(client, opts...)
	c.ChatHandlers = chat.NewHandlers(c.ChatService)
	logx.Info("  ✅ Chat module wired")
}

func (c *Container) Cleanup() {
	logx.Info("🧹 Cleaning up resources...")

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logx.Errorf("Error closing Redis: %v", err)
		}
	}
	if c.pgProvider != nil {
		if err := c.pgProvider.Close(); err != nil {
			logx.Errorf("Error closing pgvector store: %v", err)
		}
	}

	logx.Info("✅ Cleanup complete")
}
