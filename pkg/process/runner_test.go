package process

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestExecRunner_Success(t *testing.T) {
	t.Parallel()
	res := NewExecRunner(0).Run(context.Background(), []string{"echo", "hello"})
	if res.ExitCode != 0 {
		t.Fatalf("ExitCode = %d, want 0 (output %q)", res.ExitCode, res.Stdout)
	}
	if res.Stdout != "hello\n" {
		t.Errorf("Stdout = %q, want %q", res.Stdout, "hello\n")
	}
	if !res.Launched() {
		t.Error("Launched() = false, want true")
	}
}

func TestExecRunner_MergesStderr(t *testing.T) {
	t.Parallel()
	res := NewExecRunner(0).Run(context.Background(), []string{"sh", "-c", "echo out; echo err >&2; exit 3"})
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
	if !strings.Contains(res.Stdout, "out") || !strings.Contains(res.Stdout, "err") {
		t.Errorf("Stdout = %q, want both streams", res.Stdout)
	}
	if res.Stderr != "" {
		t.Errorf("Stderr = %q, want empty", res.Stderr)
	}
	if res.Success() {
		t.Error("Success() = true, want false")
	}
}

func TestExecRunner_LaunchFailure(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		argv []string
	}{
		{"missing executable", []string{"definitely-not-a-real-binary-vc", "--help"}},
		{"empty argv", nil},
		{"empty program", []string{""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewExecRunner(0).Run(context.Background(), tt.argv)
			if res.ExitCode != 1 {
				t.Errorf("ExitCode = %d, want 1", res.ExitCode)
			}
			if res.PID != 0 || res.Launched() {
				t.Errorf("PID = %d, want 0", res.PID)
			}
			if res.Stdout == "" {
				t.Error("Stdout should describe the launch failure")
			}
			if res.Stderr != "" {
				t.Errorf("Stderr = %q, want empty", res.Stderr)
			}
		})
	}
}

func TestExecRunner_Env(t *testing.T) {
	t.Parallel()
	res := NewExecRunner(0, "VC_TEST_VALUE=42").Run(context.Background(), []string{"sh", "-c", "echo $VC_TEST_VALUE"})
	if strings.TrimSpace(res.Stdout) != "42" {
		t.Errorf("Stdout = %q, want 42", res.Stdout)
	}
}

func TestExecRunner_InvalidUTF8(t *testing.T) {
	t.Parallel()
	res := NewExecRunner(0).Run(context.Background(), []string{"printf", `\377\376ok`})
	if res.ExitCode == 0 {
		t.Error("ExitCode = 0, want failure for undecodable output")
	}
	if !strings.Contains(res.Stdout, "ok") || !strings.Contains(res.Stdout, "�") {
		t.Errorf("Stdout = %q, want replacement characters and text", res.Stdout)
	}
}

func TestExecRunner_Timeout(t *testing.T) {
	t.Parallel()
	start := time.Now()
	res := NewExecRunner(100*time.Millisecond).Run(context.Background(), []string{"sleep", "5"})
	if res.ExitCode == 0 {
		t.Error("ExitCode = 0, want failure after timeout")
	}
	if elapsed := time.Since(start); elapsed > 4*time.Second {
		t.Errorf("timeout not applied, took %v", elapsed)
	}
}
