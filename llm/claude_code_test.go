package llm

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeFakeCLI installs a shell script standing in for the claude binary.
func writeFakeCLI(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "claude")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestClaudeCodeStreamsFinalOutput(t *testing.T) {
	c := NewClaudeCode()
	c.cliPath = writeFakeCLI(t, `echo "the reply"`)

	var tokens []string
	text, err := c.Stream(context.Background(), "sys",
		[]Message{{Role: "user", Content: "hi"}},
		func(tok string) { tokens = append(tokens, tok) })
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if text != "the reply" {
		t.Errorf("text = %q", text)
	}
	if len(tokens) != 1 || tokens[0] != "the reply" {
		t.Errorf("tokens = %q, want one fragment", tokens)
	}
}

func TestClaudeCodeCancellationKeepsPartialOutput(t *testing.T) {
	c := NewClaudeCode()
	c.cliPath = writeFakeCLI(t, "echo \"PARTIAL OUTPUT\"\nexec sleep 30")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(300 * time.Millisecond)
		cancel()
	}()

	var tokens []string
	text, err := c.Stream(ctx, "",
		[]Message{{Role: "user", Content: "hi"}},
		func(tok string) { tokens = append(tokens, tok) })

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if text != "PARTIAL OUTPUT" {
		t.Errorf("text = %q; output written before cancellation must survive", text)
	}
	if len(tokens) != 1 || tokens[0] != "PARTIAL OUTPUT" {
		t.Errorf("tokens = %q, want the partial fragment", tokens)
	}
}

func TestClaudeCodeReportsCLIFailure(t *testing.T) {
	c := NewClaudeCode()
	c.cliPath = writeFakeCLI(t, "echo \"boom\" >&2\nexit 1")

	_, err := c.Stream(context.Background(), "",
		[]Message{{Role: "user", Content: "hi"}}, nil)
	var cliErr *CLIError
	if !errors.As(err, &cliErr) {
		t.Fatalf("err = %v, want *CLIError", err)
	}
	if cliErr.Stderr == "" {
		t.Error("stderr not captured")
	}
}
