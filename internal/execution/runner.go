package execution

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"imgconform/internal/compare"
	"imgconform/internal/config"
	"imgconform/internal/discovery"
	"imgconform/internal/domain"
	"imgconform/internal/logging"
	"imgconform/internal/service"
)

// State is the lifecycle position of a Runner
type State int32

const (
	Idle State = iota
	SessionAcquired
	Running
	Verdicted
	SessionReleased
	Reported
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case SessionAcquired:
		return "session_acquired"
	case Running:
		return "running"
	case Verdicted:
		return "verdicted"
	case SessionReleased:
		return "session_released"
	case Reported:
		return "reported"
	default:
		return "unknown"
	}
}

// Options controls which cases run and when a run stops
type Options struct {
	Selection discovery.Selection
	FailFast  bool // Stop after the first failing case
	LoadOnly  bool // Acquire and release the session without running cases
}

// Runner executes the selected cases sequentially on one session
type Runner struct {
	loader   *discovery.Loader
	cases    *CaseRunner
	open     service.Opener
	reporter Reporter
	opts     Options
	info     map[string]any
	state    atomic.Int32
	logger   *slog.Logger
}

// NewRunner creates a new Runner. A nil reporter reports nothing.
func NewRunner(loader *discovery.Loader, cases *CaseRunner, open service.Opener, reporter Reporter, opts Options) *Runner {
	if reporter == nil {
		reporter = NopReporter{}
	}
	return &Runner{
		loader:   loader,
		cases:    cases,
		open:     open,
		reporter: reporter,
		opts:     opts,
		logger:   logging.L(),
	}
}

// OptionsFromConfig returns the run options selected by cfg
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Selection: discovery.Selection{Pattern: cfg.Flags.NameFilter},
		FailFast:  cfg.Run.FailFast,
		LoadOnly:  cfg.Flags.LoadOnly,
	}
}

// NewFromConfig wires a Runner for the cases, assets and comparison
// settings in cfg
func NewFromConfig(cfg *config.Config, open service.Opener, reporter Reporter, opts Options) *Runner {
	loader := discovery.NewLoader(cfg.GetCasesPath(), discovery.NewScanner(), discovery.NewFilter(), discovery.NewParser())
	resolver := discovery.NewResolver(cfg.GetAssetsPath(), cfg.GetLocatorScheme())
	comparator := compare.NewComparator(compare.WithUpdateGolden(cfg.Run.UpdateGolden))
	return NewRunner(loader, NewCaseRunner(resolver, comparator), open, reporter, opts)
}

// State returns the current lifecycle state
func (r *Runner) State() State {
	return State(r.state.Load())
}

// ServiceInfo returns what the service reported at the last acquisition
func (r *Runner) ServiceInfo() map[string]any {
	return r.info
}

func (r *Runner) setState(s State) {
	r.state.Store(int32(s))
	r.logger.Debug("runner state", "state", s.String())
}

type pendingCase struct {
	tc  domain.TestCase
	err error
}

// Run loads the selected cases, acquires a session and executes every case.
// Per-case failures become Fail verdicts; only listing and session
// acquisition errors are returned, before any case executes.
func (r *Runner) Run(ctx context.Context) (domain.RunSummary, error) {
	r.setState(Idle)

	var pending []pendingCase
	for tc, err := range r.loader.Discover(r.opts.Selection) {
		if err != nil && !errors.Is(err, domain.ErrMalformedCase) {
			return domain.RunSummary{}, err
		}
		pending = append(pending, pendingCase{tc: tc, err: err})
	}

	var summary domain.RunSummary
	start := time.Now()

	err := service.WithSession(ctx, r.open, func(s service.Session) error {
		r.info = s.Info()
		r.setState(SessionAcquired)
		if r.opts.LoadOnly {
			return nil
		}

		r.reporter.RunStarted(len(pending))
		for _, p := range pending {
			if err := ctx.Err(); err != nil {
				return err
			}

			r.setState(Running)
			r.reporter.CaseStarted(p.tc)

			var res domain.CaseResult
			if p.err != nil {
				res = domain.CaseResult{Case: p.tc, Verdict: domain.FailVerdict(p.err)}
			} else {
				res = r.cases.Run(ctx, s, p.tc)
			}
			summary.Add(res)

			r.setState(Verdicted)
			r.reporter.CaseFinished(res)

			if r.opts.FailFast && !res.Verdict.Passed() {
				r.logger.Info("stopping after first failure", "case", res.Case.Name)
				break
			}
		}
		return nil
	})
	summary.Duration = time.Since(start)
	if errors.Is(err, domain.ErrServiceUnavailable) {
		return summary, err
	}
	r.setState(SessionReleased)
	if err != nil {
		return summary, err
	}

	if !r.opts.LoadOnly {
		r.reporter.RunFinished(summary)
	}
	r.setState(Reported)
	return summary, nil
}
