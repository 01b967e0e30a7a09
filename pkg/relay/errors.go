package relay

import (
	"net/http"

	"github.com/relay-labs/chatrelay/pkg/errx"
)

var (
	errorRegistry = errx.NewRegistry("RELAY")

	// ErrUnmatchedResult fires when a tool result arrives with no pending
	// invocation for that tool. Fatal to the turn.
	ErrUnmatchedResult = errorRegistry.Register(
		"UNMATCHED_TOOL_RESULT",
		errx.TypeProtocol,
		http.StatusUnprocessableEntity,
		"Tool result received with no pending invocation",
	)

	// ErrUpstreamFailure is a generation backend failure. Fatal to the turn.
	ErrUpstreamFailure = errorRegistry.Register(
		"UPSTREAM_FAILURE",
		errx.TypeExternal,
		http.StatusBadGateway,
		"Generation backend failed",
	)
)
