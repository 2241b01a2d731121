package shellgate

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// Executor runs approved commands against the OS shell with a hard timeout.
// Execute never returns an error; every failure path is folded into Result.
// Executors hold no mutable state and concurrent calls are independent.
type Executor struct {
	gate        *Gate
	config      Config
	projectRoot string
}

func NewExecutor(gate *Gate, config Config, projectRoot string) *Executor {
	if config.DefaultTimeoutMs <= 0 {
		config.DefaultTimeoutMs = DefaultConfig().DefaultTimeoutMs
	}
	if config.MaxTimeoutMs <= 0 {
		config.MaxTimeoutMs = DefaultConfig().MaxTimeoutMs
	}
	return &Executor{
		gate:        gate,
		config:      config,
		projectRoot: projectRoot,
	}
}

// Execute runs req.Command through the gate and, if allowed, under `sh -c`
// scoped to the effective working directory.
//
// The timeout is a race, not a cancellation: when the timer wins, the caller
// gets a timed-out result immediately but the child process is not killed
// and may keep running in the background.
func (e *Executor) Execute(ctx context.Context, req Request) Result {
	startTime := time.Now()

	cwd := req.Cwd
	if cwd == "" {
		cwd = e.projectRoot
	}
	timeout := e.effectiveTimeout(req.TimeoutMs)

	result := Result{
		Command:  req.Command,
		Cwd:      cwd,
		ExitCode: -1,
	}

	decision := e.gate.Decide(req.Command, cwd, e.projectRoot, e.config)
	if !decision.Allowed {
		result.captureError(NewGateError(decision.Type, decision.Reason, req.Command))
		result.DurationMs = time.Since(startTime).Milliseconds()
		return result
	}

	cmd := exec.Command("sh", "-c", req.Command)
	cmd.Dir = cwd
	if len(req.Env) > 0 {
		env := os.Environ()
		for k, v := range req.Env {
			env = append(env, k+"="+v)
		}
		cmd.Env = env
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		result.captureError(NewGateError(ErrorTypeLaunch, err.Error(), req.Command))
		result.DurationMs = time.Since(startTime).Milliseconds()
		return result
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case waitErr := <-done:
		exitCode := 0
		if waitErr != nil {
			if exitError, ok := waitErr.(*exec.ExitError); ok {
				exitCode = exitError.ExitCode()
			} else {
				result.captureError(NewGateError(ErrorTypeLaunch, waitErr.Error(), req.Command))
				result.DurationMs = time.Since(startTime).Milliseconds()
				return result
			}
		}
		result.ExitCode = exitCode
		result.Success = exitCode == 0
		result.Stdout = stdout.String()
		result.Stderr = stderr.String()

	case <-timer.C:
		// The child may still be writing to the buffers; leave them unread.
		result.captureError(NewGateError(ErrorTypeTimeout,
			fmt.Sprintf("command timed out after %dms", timeout.Milliseconds()), req.Command))

	case <-ctx.Done():
		result.Error = fmt.Sprintf("execution cancelled: %v", ctx.Err())
	}

	result.DurationMs = time.Since(startTime).Milliseconds()
	return result
}

// effectiveTimeout clamps the caller-supplied timeout to the configured
// ceiling: min(requested or default, max).
func (e *Executor) effectiveTimeout(requestedMs int) time.Duration {
	ms := requestedMs
	if ms <= 0 {
		ms = e.config.DefaultTimeoutMs
	}
	if ms > e.config.MaxTimeoutMs {
		ms = e.config.MaxTimeoutMs
	}
	return time.Duration(ms) * time.Millisecond
}
