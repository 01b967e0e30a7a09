package vstpgvector

import (
	"net/http"

	"github.com/relay-labs/chatrelay/pkg/errx"
)

var (
	errorRegistry = errx.NewRegistry("PGVECTOR")

	ErrDatabaseConnection = errorRegistry.Register(
		"DB_CONNECTION_FAILED",
		errx.TypeExternal,
		http.StatusServiceUnavailable,
		"Failed to connect to PostgreSQL database",
	)

	ErrDatabaseQuery = errorRegistry.Register(
		"DB_QUERY_FAILED",
		errx.TypeExternal,
		http.StatusInternalServerError,
		"Database query execution failed",
	)

	ErrMissingConfig = errorRegistry.Register(
		"MISSING_CONFIG",
		errx.TypeValidation,
		http.StatusBadRequest,
		"Required configuration is missing",
	)

	ErrInvalidVectorDimension = errorRegistry.Register(
		"INVALID_VECTOR_DIMENSION",
		errx.TypeValidation,
		http.StatusBadRequest,
		"Vector dimension mismatch",
	)

	ErrEmptyVectorID = errorRegistry.Register(
		"EMPTY_VECTOR_ID",
		errx.TypeValidation,
		http.StatusBadRequest,
		"Vector ID cannot be empty",
	)
)

// WrapError wraps a database error with a registered code
func WrapError(err error, code *errx.ErrorCode) *errx.Error {
	return errorRegistry.NewWithCause(code, err)
}
