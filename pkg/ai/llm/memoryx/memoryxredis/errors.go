package memoryxredis

import "github.com/relay-labs/chatrelay/pkg/errx"

var redisErrors = errx.NewRegistry("REDISMEM")

var (
	// ErrMarshal indicates a message could not be serialized
	ErrMarshal = redisErrors.Register(
		"MARSHAL", errx.TypeInternal, 500,
		"Failed to marshal message")

	// ErrUnmarshal indicates a stored message could not be decoded
	ErrUnmarshal = redisErrors.Register(
		"UNMARSHAL", errx.TypeInternal, 500,
		"Failed to unmarshal stored message")

	// ErrRead indicates the history could not be read from Redis
	ErrRead = redisErrors.Register(
		"READ", errx.TypeExternal, 502,
		"Failed to read conversation history")

	// ErrWrite indicates the history could not be written to Redis
	ErrWrite = redisErrors.Register(
		"WRITE", errx.TypeExternal, 502,
		"Failed to write conversation history")
)
