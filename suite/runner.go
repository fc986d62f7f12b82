package suite

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-jsapi/errors"
	"github.com/wippyai/wasm-jsapi/jsapi"
)

// Status is the outcome of one case.
type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
	StatusSkip Status = "skip"
)

// Result records how a case went. Class is the JS error class of a failure;
// assertion failures report "Error".
type Result struct {
	Group    string
	Name     string
	Status   Status
	Duration time.Duration
	Class    string
	Err      error
}

// ID returns Group/Name.
func (r Result) ID() string {
	return r.Group + "/" + r.Name
}

// Runner runs cases, each against a runtime of its own.
type Runner struct {
	cfg   Config
	cases []Case
	log   *zap.Logger
}

// NewRunner returns a runner over the registered cases.
func NewRunner(cfg Config) (*Runner, error) {
	return NewRunnerWith(cfg, Cases())
}

// NewRunnerWith returns a runner over the given cases.
func NewRunnerWith(cfg Config, cases []Case) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Runner{cfg: cfg, cases: cases, log: Logger()}, nil
}

// Selected returns the cases the filters let through, in run order.
func (r *Runner) Selected() []Case {
	var out []Case
	for _, c := range r.cases {
		if r.cfg.Selected(c) {
			out = append(out, c)
		}
	}
	return out
}

// Run executes the selected cases in order. With FailFast the run stops
// after the first failure. Run only returns an error when ctx is done.
func (r *Runner) Run(ctx context.Context) ([]Result, error) {
	var results []Result
	for _, c := range r.Selected() {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := r.runCase(ctx, c)
		results = append(results, res)

		fields := []zap.Field{zap.String("case", c.ID()), zap.String("status", string(res.Status)), zap.Duration("duration", res.Duration)}
		if res.Err != nil {
			fields = append(fields, zap.Error(res.Err))
		}
		r.log.Debug("case finished", fields...)

		if res.Status == StatusFail && r.cfg.FailFast {
			break
		}
	}
	return results, nil
}

func (r *Runner) runCase(ctx context.Context, c Case) (res Result) {
	res = Result{Group: c.Group, Name: c.Name}
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
	}()

	err := r.execute(ctx, c)
	var skip *skipError
	switch {
	case err == nil:
		res.Status = StatusPass
	case errors.As(err, &skip):
		res.Status = StatusSkip
		res.Err = err
	default:
		res.Status = StatusFail
		res.Class = errors.ClassOf(err)
		res.Err = err
	}
	return res
}

func (r *Runner) execute(ctx context.Context, c Case) (err error) {
	rt, err := jsapi.New(ctx, r.cfg.Runtime.JSAPI())
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("case panicked", zap.String("case", c.ID()), zap.Any("panic", p), zap.ByteString("stack", debug.Stack()))
			err = errors.New(errors.PhaseAssert, errors.KindAssertion).
				Detail("panic: %v", p).
				Value(p).
				Build()
		}
		if cerr := rt.Close(ctx); cerr != nil && err == nil {
			err = fmt.Errorf("close runtime: %w", cerr)
		}
	}()
	return c.Run(&Env{Ctx: ctx, RT: rt, NS: rt.Namespace()})
}

// Summary counts results by status.
type Summary struct {
	Pass, Fail, Skip int
	Duration         time.Duration
}

// Summarize counts results by status.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		switch r.Status {
		case StatusPass:
			s.Pass++
		case StatusFail:
			s.Fail++
		case StatusSkip:
			s.Skip++
		}
		s.Duration += r.Duration
	}
	return s
}

// OK reports whether no case failed.
func (s Summary) OK() bool { return s.Fail == 0 }
