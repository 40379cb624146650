package sandbox

// RunnerFailure is the reserved exit code reported when the runner itself
// failed before or during execution, as opposed to the executed code
// exiting non-zero on its own.
const RunnerFailure = -1

// ExecutionRequest describes one untrusted code string to run. Immutable
// once created. Code is handed to the interpreter as a process argument,
// so it is subject to the daemon host's argv size limits (around 2MB on
// Linux), far above anything a generated script reaches.
type ExecutionRequest struct {
	Code          string
	WorkspacePath string
}

// ExecutionResult is the normalized outcome of a run. Execute always
// returns one of these, never an error: every failure mode is folded into
// Stderr plus the RunnerFailure exit code. TimedOut marks runs that were
// forcibly terminated after the bounded wait expired.
type ExecutionResult struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
	TimedOut bool   `json:"timed_out,omitempty"`
}
