package mcp

import (
	"encoding/json"
	"errors"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"timelinelayout/internal/events"
	"timelinelayout/internal/store"
)

var errInvalidInput = errors.New("invalid input")

// APIError is the body of a failed tool call.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapError maps domain errors to tool error codes.
func MapError(err error) *APIError {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return &APIError{Code: "TIMELINE_NOT_FOUND", Message: err.Error(), RecoveryHint: "Call list_timelines for valid ids"}
	case errors.Is(err, store.ErrDuplicate):
		return &APIError{Code: "DUPLICATE", Message: err.Error()}
	case errors.Is(err, events.ErrInvalidEvent):
		return &APIError{Code: "INVALID_EVENT", Message: err.Error(), RecoveryHint: "Each event needs a title and a month in 1-12 if given"}
	case errors.Is(err, errInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error()}
	default:
		return &APIError{Code: "INTERNAL", Message: err.Error()}
	}
}

func errorResult(err error) *sdkmcp.CallToolResult {
	data, _ := json.Marshal(MapError(err))
	return &sdkmcp.CallToolResult{
		IsError: true,
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}
}
