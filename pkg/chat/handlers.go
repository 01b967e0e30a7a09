package chat

import (
	"bufio"
	"context"
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/relay-labs/chatrelay/pkg/logx"
)

// Handlers exposes the chat service over HTTP
type Handlers struct {
	service *Service
}

// NewHandlers creates the HTTP handlers
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes mounts the chat endpoints on the app
func (h *Handlers) RegisterRoutes(app *fiber.App) {
	api := app.Group("/api")
	api.Post("/chat", h.handleChat)
	api.Post("/chat/stream", h.handleChatStream)
	api.Post("/files", h.handleFileUpload)
}

// handleChat runs one turn and returns the full reply as JSON
func (h *Handlers) handleChat(c *fiber.Ctx) error {
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return errorRegistry.NewWithCause(ErrInvalidRequest, err)
	}
	if err := req.Validate(); err != nil {
		return err
	}

	reply, err := h.service.Complete(c.UserContext(), req)
	if err != nil {
		return err
	}

	return c.JSON(Response{Reply: reply})
}

// handleChatStream runs one turn as a server-sent event stream. Request
// problems are rejected with a normal HTTP error before streaming starts;
// once the stream is open every outcome travels inside it.
func (h *Handlers) handleChatStream(c *fiber.Ctx) error {
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return errorRegistry.NewWithCause(ErrInvalidRequest, err)
	}
	if err := req.Validate(); err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no") // Disable nginx buffering

	userCtx := c.UserContext()

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		// Cancelling unblocks the agent goroutine after a disconnect
		ctx, cancel := context.WithCancel(userCtx)
		defer cancel()

		write := func(frame []byte) error {
			if _, err := w.Write(frame); err != nil {
				return err
			}
			// Flush per frame so deltas reach the client as they happen
			return w.Flush()
		}

		h.service.Stream(ctx, req, write)
	}))

	return nil
}

// handleFileUpload accepts a multipart file and indexes it
func (h *Handlers) handleFileUpload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return errorRegistry.NewWithCause(ErrMissingFile, err)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return errorRegistry.NewWithCause(ErrUploadFailed, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return errorRegistry.NewWithCause(ErrUploadFailed, err)
	}

	contentType := fileHeader.Header.Get("Content-Type")
	resp, uploadErr := h.service.UploadDocument(c.UserContext(), fileHeader.Filename, contentType, data)
	if uploadErr != nil {
		return uploadErr
	}

	logx.WithFields(logx.Fields{
		"file":   fileHeader.Filename,
		"size":   fileHeader.Size,
		"chunks": resp.ChunkCount,
	}).Info("file uploaded")

	return c.Status(fiber.StatusCreated).JSON(resp)
}
