// Package pipeline chains the code generator and the sandbox: a prompt
// goes in, a recorded run comes out. Failed attempts can be fed back to
// the generator for a bounded number of repair rounds.
package pipeline

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"crucible/internal/llm"
	"crucible/internal/sandbox"
	"crucible/internal/storage"
)

// maxRepairs caps repair rounds regardless of what the caller asks for.
const maxRepairs = 3

// Runner executes sandboxed snippets. *sandbox.Engine satisfies it;
// tests substitute their own.
type Runner interface {
	Execute(ctx context.Context, source string) *sandbox.Result
	Policy() sandbox.Policy
}

// Pipeline wires a generator to a sandbox runner.
type Pipeline struct {
	Gen    llm.Client
	Runner Runner
	Log    zerolog.Logger
}

// Run generates a snippet for prompt and executes it. When repairs > 0,
// a failed execution is sent back to the generator with its error and
// tried again; the returned run is always the last attempt. The error
// covers generator failures only. Execution failures are not errors
// here: they come back inside the run.
func (p *Pipeline) Run(ctx context.Context, prompt string, profile *llm.Profile, repairs int) (*storage.Run, error) {
	if p.Gen == nil || !p.Gen.Available() {
		return nil, llm.ErrUnavailable
	}
	if repairs < 0 {
		repairs = 0
	}
	if repairs > maxRepairs {
		repairs = maxRepairs
	}

	req := llm.Request{
		Prompt:  prompt,
		Modules: p.Runner.Policy().AllowedImports,
		Profile: profile,
	}

	var run *storage.Run
	for attempt := 0; ; attempt++ {
		gen, err := p.Gen.Generate(ctx, req)
		if err != nil {
			return nil, err
		}

		res := p.Runner.Execute(ctx, gen.Code)
		run = NewRun(storage.KindGenerate, prompt, gen.Model, gen.Code, res)
		run.Explanation = gen.Explanation
		if res.Success || attempt >= repairs {
			return run, nil
		}

		p.Log.Debug().
			Int("attempt", attempt+1).
			Str("error", res.Error).
			Msg("generated code failed, asking for a fix")
		req.PriorCode = gen.Code
		req.PriorError = res.Error
	}
}

// NewRun classifies one finished attempt into a run record. The record
// gets a fresh ID; the caller persists it.
func NewRun(kind storage.RunKind, prompt, model, code string, res *sandbox.Result) *storage.Run {
	return &storage.Run{
		ID:            uuid.New().String(),
		Kind:          kind,
		Prompt:        prompt,
		Model:         model,
		Code:          code,
		Success:       res.Success,
		Output:        res.Output,
		Stderr:        res.Stderr,
		Error:         res.Error,
		Truncated:     res.Truncated,
		ExecutionTime: res.ExecutionTime,
	}
}
