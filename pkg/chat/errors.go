package chat

import (
	"net/http"

	"github.com/relay-labs/chatrelay/pkg/errx"
)

var errorRegistry = errx.NewRegistry("CHAT")

var (
	ErrInvalidRequest  = errorRegistry.Register("INVALID_REQUEST", errx.TypeValidation, http.StatusBadRequest, "invalid chat request")
	ErrEmptyMessages   = errorRegistry.Register("EMPTY_MESSAGES", errx.TypeValidation, http.StatusBadRequest, "messages must contain at least one entry")
	ErrUnsupportedRole = errorRegistry.Register("UNSUPPORTED_ROLE", errx.TypeValidation, http.StatusBadRequest, "message role must be system, user or assistant")
	ErrLastNotUser     = errorRegistry.Register("LAST_NOT_USER", errx.TypeValidation, http.StatusBadRequest, "last message must come from the user")
	ErrMissingFile     = errorRegistry.Register("MISSING_FILE", errx.TypeValidation, http.StatusBadRequest, "file field is required")
	ErrEmptyFile       = errorRegistry.Register("EMPTY_FILE", errx.TypeValidation, http.StatusBadRequest, "uploaded file is empty")
	ErrUploadFailed    = errorRegistry.Register("UPLOAD_FAILED", errx.TypeInternal, http.StatusInternalServerError, "failed to store uploaded file")
	ErrIngestionFailed = errorRegistry.Register("INGESTION_FAILED", errx.TypeInternal, http.StatusInternalServerError, "failed to index uploaded file")
	ErrUploadsDisabled = errorRegistry.Register("UPLOADS_DISABLED", errx.TypeBusiness, http.StatusServiceUnavailable, "file uploads are not configured")
)
