package internal

import (
	"fmt"
	"regexp"
)

// GuardError reports why a raw code submission was rejected.
type GuardError struct {
	Message string
	Details string
}

func (e *GuardError) Error() string {
	return e.Message + ": " + e.Details
}

// GuardCode screens raw code submitted over NATS before it reaches the
// sandbox. Pipeline-generated code is not screened; it is produced against
// our own prompts. The sandbox is the real boundary, this only rejects the
// obvious attempts to reach the daemon or wreck the shared workspace.
func GuardCode(code string, maxCodeLength int) error {
	if len(code) > maxCodeLength {
		return &GuardError{
			Message: "Code length exceeds maximum limit",
			Details: fmt.Sprintf("Max length allowed is %d", maxCodeLength),
		}
	}

	dangerousPatterns := []string{
		`(?i)docker\.sock`,
		`(?i)import\s+docker`,
		`(?i)import\s+subprocess`,
		`(?i)os\.system`,
		`(?i)shutil\.rmtree\(['"]/app/workspace`,
	}

	if matched, err := matchPatterns(dangerousPatterns, code); err != nil || matched {
		return &GuardError{
			Message: "Prohibited operation detected",
			Details: "Code attempts to reach the host or destroy the shared workspace",
		}
	}

	return nil
}

func matchPatterns(patterns []string, code string) (bool, error) {
	for _, pattern := range patterns {
		matched, err := regexp.MatchString(pattern, code)
		if err != nil {
			return false, err
		}
		if matched {
			return true, nil
		}
	}
	return false, nil
}
