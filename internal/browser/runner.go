package browser

import (
	"context"
	"sync"

	"github.com/benvon/tag-catalog/internal/catalog"
	"github.com/benvon/tag-catalog/internal/models"
	"go.uber.org/zap"
)

// Navigator receives path changes. Calls come from several goroutines but never
// overlap, and arrive in the order of the transitions that requested them.
// Implementations must not call back into the Runner.
type Navigator interface {
	Navigate(path string)
}

// Notifier receives user-facing notifications under the same ordering as Navigator
type Notifier interface {
	Notify(n NotifyEffect)
}

// Command is any state transition, typically a State method value
type Command func(State) (State, []Effect)

// Runner owns a State and performs the effects its commands request. Every
// fetch runs on its own goroutine; results are applied in arrival order and
// the generation check discards superseded reads.
type Runner struct {
	ctx    context.Context
	svc    catalog.Service
	nav    Navigator
	notify Notifier
	logger *zap.Logger

	mu    sync.Mutex
	state State
	wg    sync.WaitGroup

	// emitMu is taken before mu is released so effects leave in transition order
	emitMu sync.Mutex
}

// NewRunner creates a runner starting from initial. Requests use ctx and are
// never cancelled individually.
func NewRunner(ctx context.Context, svc catalog.Service, initial State, nav Navigator, notifier Notifier, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		ctx:    ctx,
		svc:    svc,
		nav:    nav,
		notify: notifier,
		logger: logger,
		state:  initial,
	}
}

// State returns a snapshot of the current state
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Dispatch applies cmd and starts the effects it requests
func (r *Runner) Dispatch(cmd Command) {
	r.mu.Lock()
	next, effs := cmd(r.state)
	r.state = next
	r.emitMu.Lock()
	r.mu.Unlock()
	r.perform(effs)
	r.emitMu.Unlock()
}

// Wait blocks until every started fetch and the fetches it triggered have settled
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) apply(res Result) {
	r.mu.Lock()
	if r.state.IsStale(res) {
		r.mu.Unlock()
		t := res.outcome().Ticket
		r.logger.Debug("stale_result_discarded",
			zap.Int("resource", int(t.Resource)),
			zap.Uint64("generation", t.Generation),
		)
		return
	}
	next, effs := r.state.Apply(res)
	r.state = next
	r.emitMu.Lock()
	r.mu.Unlock()
	r.perform(effs)
	r.emitMu.Unlock()
}

// perform runs with emitMu held. Fetches only start goroutines here.
func (r *Runner) perform(effs []Effect) {
	for _, eff := range effs {
		switch e := eff.(type) {
		case FetchEffect:
			r.wg.Add(1)
			go func(f FetchEffect) {
				defer r.wg.Done()
				res := execute(r.ctx, r.svc, f)
				if err := res.outcome().Err; err != nil {
					r.logger.Warn("catalog_call_failed", zap.Error(err))
				}
				r.apply(res)
			}(e)
		case NavigateEffect:
			if r.nav != nil {
				r.nav.Navigate(e.Path)
			}
		case NotifyEffect:
			if r.notify != nil {
				r.notify.Notify(e)
			}
		}
	}
}

// execute performs the call carried by f
func execute(ctx context.Context, svc catalog.Service, f FetchEffect) Result {
	out := Outcome{Ticket: f.Ticket}
	switch c := f.Call.(type) {
	case ListClassificationsCall:
		list, err := svc.ListClassifications(ctx, c.Fields, c.Limit)
		out.Err = err
		return ClassificationsResult{Outcome: out, Call: c, List: list}
	case GetClassificationCall:
		cl, err := svc.GetClassificationByName(ctx, c.Name, c.Fields)
		out.Err = err
		return ClassificationResult{Outcome: out, Call: c, Classification: cl}
	case ListTagsCall:
		page, err := svc.ListTags(ctx, c.Filter)
		out.Err = err
		return TagsResult{Outcome: out, Call: c, Page: page}
	case GetPermissionsCall:
		p, err := svc.GetPermissions(ctx, models.ResourceClassification, c.ID)
		out.Err = err
		return PermissionsResult{Outcome: out, Call: c, Permission: p}
	case CreateClassificationCall:
		cl, err := svc.CreateClassification(ctx, c.Payload)
		out.Err = err
		return ClassificationCreated{Outcome: out, Call: c, Classification: cl}
	case PatchClassificationCall:
		cl, err := svc.PatchClassification(ctx, c.ID, c.Patch)
		out.Err = err
		return ClassificationPatched{Outcome: out, Call: c, Classification: cl}
	case DeleteClassificationCall:
		out.Err = svc.DeleteClassification(ctx, c.ID)
		return ClassificationDeleted{Outcome: out, Call: c}
	case CreateTagCall:
		t, err := svc.CreateTag(ctx, c.Payload)
		out.Err = err
		return TagCreated{Outcome: out, Call: c, Tag: t}
	case PatchTagCall:
		t, err := svc.PatchTag(ctx, c.ID, c.Patch)
		out.Err = err
		return TagPatched{Outcome: out, Call: c, Tag: t}
	case DeleteTagCall:
		out.Err = svc.DeleteTag(ctx, c.ID)
		return TagDeleted{Outcome: out, Call: c}
	}
	return out
}
