package llm

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/google/uuid"
)

// ErrSessionCollision is returned when session IDs collide repeatedly.
var ErrSessionCollision = errors.New("session ID collision")

// ClaudeCode implements Provider by shelling out to the claude CLI. The CLI
// has no token stream; the whole reply is delivered as one fragment when the
// process exits.
type ClaudeCode struct {
	cliPath string
}

// NewClaudeCode creates a new Claude Code provider.
func NewClaudeCode() *ClaudeCode {
	return &ClaudeCode{}
}

// Name returns the provider name.
func (c *ClaudeCode) Name() string {
	return "claude-code"
}

// Available checks if the claude CLI is installed and accessible.
func (c *ClaudeCode) Available() bool {
	path, err := exec.LookPath("claude")
	if err != nil {
		return false
	}
	c.cliPath = path
	return true
}

// Stream sends the conversation through the CLI using a shared session ID so
// earlier turns keep their context, then forwards the final output as a
// single token.
func (c *ClaudeCode) Stream(ctx context.Context, system string, messages []Message, onToken func(string)) (string, error) {
	if len(messages) == 0 {
		return "", nil
	}

	// Retry with a fresh session ID if we hit a collision
	const maxRetries = 3
	for attempt := 0; attempt < maxRetries; attempt++ {
		result, err := c.runConversation(ctx, system, messages)
		if err != nil {
			if cliErr, ok := err.(*CLIError); ok {
				if strings.Contains(cliErr.Stderr, "already in use") {
					continue // Retry with new session ID
				}
			}
		}
		// Partial output survives errors, cancellation included, so the
		// caller can still post-process whatever the CLI had written.
		if onToken != nil && result != "" {
			onToken(result)
		}
		return result, err
	}
	return "", &CLIError{Err: ErrSessionCollision, Stderr: "session ID collision after max retries"}
}

func (c *ClaudeCode) runConversation(ctx context.Context, system string, messages []Message) (string, error) {
	// Generate a session ID for this conversation
	sessionID := uuid.New().String()

	var lastResponse string
	isFirst := true

	for _, msg := range messages {
		if msg.Role != "user" {
			continue // Skip assistant messages - they're already in the session
		}

		args := []string{
			"--print",
			"--session-id", sessionID,
		}

		// Add system prompt only on first message
		if isFirst && system != "" {
			args = append(args, "--system-prompt", system)
		}
		isFirst = false

		args = append(args, msg.Content)

		cmd := exec.CommandContext(ctx, c.cliPath, args...)

		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		err := cmd.Run()
		if err != nil {
			if ctx.Err() != nil {
				// Cancelled mid-run; surface whatever the CLI had written.
				return strings.TrimSpace(stdout.String()), ctx.Err()
			}
			if stderr.Len() > 0 {
				return "", &CLIError{Err: err, Stderr: stderr.String()}
			}
			return "", err
		}

		lastResponse = strings.TrimSpace(stdout.String())
	}

	return lastResponse, nil
}

// CLIError wraps CLI execution errors with stderr output.
type CLIError struct {
	Err    error
	Stderr string
}

func (e *CLIError) Error() string {
	if e.Stderr != "" {
		return e.Err.Error() + ": " + e.Stderr
	}
	return e.Err.Error()
}

func (e *CLIError) Unwrap() error {
	return e.Err
}
