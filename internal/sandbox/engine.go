// Package sandbox executes untrusted JavaScript snippets inside a
// restricted in-process interpreter. A static pre-check rejects
// forbidden references, a scrubbed runtime exposes only safe builtins
// plus allowlisted modules, output is captured into bounded buffers,
// and every attempt races a wall-clock deadline. All outcomes are
// classified into a uniform Result; nothing the guest does can raise
// into the host.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dop251/goja"
	"github.com/rs/zerolog"

	"crucible/internal/sandbox/hostmod"
)

var errAttemptPanic = errors.New("attempt panicked")

// Engine executes snippets under a fixed Policy. It is safe for
// concurrent use: each call gets its own runtime and buffers, and the
// policy is never mutated.
type Engine struct {
	policy Policy
	mods   *hostmod.Registry
	log    zerolog.Logger
}

// New builds an Engine for the given policy. Passing a nil registry
// selects the built-in host modules. Every allowed import must have a
// module implementation; a policy that allows an unknown module is a
// configuration error and must abort startup.
func New(policy Policy, mods *hostmod.Registry, logger zerolog.Logger) (*Engine, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if mods == nil {
		mods = hostmod.Default(hostmod.Config{HTTPAllowlist: policy.HTTPAllowlist})
	}
	for _, name := range policy.AllowedImports {
		if _, ok := mods.Get(name); !ok {
			return nil, fmt.Errorf("allowed import %q has no host module", name)
		}
	}
	return &Engine{policy: policy, mods: mods, log: logger}, nil
}

// Policy returns the engine's policy.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Execute runs one snippet and classifies the outcome. It never returns
// a Go error and never lets a guest failure escape: policy rejections,
// guest exceptions, timeouts, and cancellation all surface inside the
// Result. The context bounds the attempt in addition to the policy
// deadline; cancellation is reported as a non-success result.
func (e *Engine) Execute(ctx context.Context, source string) *Result {
	start := time.Now()

	if violations := Check(source, e.policy); len(violations) > 0 {
		e.log.Debug().Int("violations", len(violations)).Msg("snippet rejected by pre-check")
		return &Result{
			Error:         violationError(violations),
			ExecutionTime: time.Since(start).Seconds(),
		}
	}

	program, err := goja.Compile("snippet", source, false)
	if err != nil {
		return &Result{
			Error:         sanitizeGuestError(err),
			ExecutionTime: time.Since(start).Seconds(),
		}
	}

	stdout := newCaptureBuffer(e.policy.MaxOutputChars)
	stderr := newCaptureBuffer(e.policy.MaxOutputChars)

	execCtx, cancel := context.WithTimeout(ctx, e.policy.MaxExecutionTime)
	defer cancel()

	vm, err := e.newRuntime(&hostmod.HostContext{Ctx: execCtx}, stdout, stderr)
	if err != nil {
		e.log.Error().Err(err).Msg("building restricted runtime")
		return &Result{
			Error:         "internal error",
			ExecutionTime: time.Since(start).Seconds(),
		}
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- errAttemptPanic
			}
		}()
		_, runErr := vm.RunProgram(program)
		done <- runErr
	}()

	res := &Result{}
	select {
	case runErr := <-done:
		switch {
		case runErr == nil:
			res.Success = true
		case errors.Is(runErr, errAttemptPanic):
			res.Error = "internal error"
		default:
			res.Error = sanitizeGuestError(runErr)
		}
	case <-execCtx.Done():
		// Abandon the attempt: interrupt it and return without waiting.
		// The interpreter checks the flag between instructions, so even
		// a bare busy loop unwinds shortly after; the snapshots below
		// are all the caller ever observes.
		vm.Interrupt("deadline exceeded")
		if ctx.Err() != nil {
			res.Error = "execution canceled"
		} else {
			res.Error = timeoutError(e.policy.MaxExecutionTime)
		}
	}

	var stderrTruncated bool
	res.Output, res.Truncated = stdout.Snapshot()
	res.Stderr, stderrTruncated = stderr.Snapshot()
	res.Truncated = res.Truncated || stderrTruncated
	res.ExecutionTime = time.Since(start).Seconds()

	e.log.Debug().
		Bool("success", res.Success).
		Float64("seconds", res.ExecutionTime).
		Int("output_chars", len(res.Output)).
		Msg("execution finished")

	return res
}

// goja appends " at <name>:line:col(pc)" frames to runtime errors.
var errPosition = regexp.MustCompile(`\s+at\s+\S+:\d+:\d+(\(\d+\))?`)

// sanitizeGuestError reduces a guest failure to a single line safe to
// return to callers: the thrown value's string form with position
// frames stripped. Host paths and stack internals never appear because
// host frames are never rendered to begin with.
func sanitizeGuestError(err error) string {
	var msg string
	if ex, ok := err.(*goja.Exception); ok && ex.Value() != nil {
		msg = ex.Value().String()
	} else {
		msg = err.Error()
	}
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	msg = errPosition.ReplaceAllString(msg, "")
	msg = strings.TrimSpace(msg)
	if msg == "" {
		msg = "unknown error"
	}
	return msg
}
