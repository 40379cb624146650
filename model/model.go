package model

// SandboxRequest is a raw code execution request received over NATS.
type SandboxRequest struct {
	Code string `json:"code" binding:"required"`
}

// SandboxResponse mirrors the sandbox ExecutionResult on the wire.
type SandboxResponse struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
	TimedOut bool   `json:"timed_out,omitempty"`
}

// ErrorResponse is the JSON error object returned by the HTTP boundary on
// any pipeline failure.
type ErrorResponse struct {
	Error string `json:"error"`
}
