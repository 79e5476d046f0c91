// Package models defines shared data structures for the Photon shipping assistant.
package models

// ChatRequest is the inbound payload for POST /chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatOption is a single selectable option presented alongside a response.
// The Value must be re-submitted verbatim as the next message to select it.
type ChatOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// ChatResponse is the outbound payload for POST /chat.
type ChatResponse struct {
	Response string       `json:"response"`
	Options  []ChatOption `json:"options,omitempty"`
}

// API Response types for consistent JSON responses

// APIStatus represents the status of an API response.
type APIStatus string

const (
	APIStatusOK    APIStatus = "ok"
	APIStatusError APIStatus = "error"
)

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`            // status of the API response
	Message string      `json:"message,omitempty"` // optional message for error responses or additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Result: result}
}

// SuccessWithMessage creates a successful API response with a message and optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Message: message, Result: result}
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: string(APIStatusError), Message: message}
}
