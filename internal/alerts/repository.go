package alerts

import (
	"context"
	"galerts/internal/components/assert"
	"galerts/internal/components/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	report_repository_list     = "repository.list"
	report_repository_monitors = "repository.monitors"
	report_repository_mutate   = "repository.mutate"
)

// Repository lists and mutates the monitors of a session. Every operation
// needs the session to hold a state and reads the monitors back from a
// fresh state instead of trusting local copies.
type Repository struct {
	session *Session
	tel     telemetry.API
}

func NewRepository(session *Session, tel telemetry.API) Repository {
	assert.NotNil(session)
	assert.NotNil(tel)
	return Repository{
		session: session,
		tel:     telemetry.NewScopedAPI("alerts_repository", tel),
	}
}

func (r Repository) requireState() error {
	_, ok := r.session.State()
	if !ok {
		return ErrInvalidState
	}
	return nil
}

// List refreshes the state and returns its monitors, only those whose term
// is exactly term when term is not empty.
func (r Repository) List(ctx context.Context, term string) ([]Monitor, error) {
	ctx, span := tracer.Start(ctx, "repository:List")
	defer span.End()

	err := r.requireState()
	if err != nil {
		return nil, err
	}

	state, err := r.session.RefreshState(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to refresh state")
		return nil, err
	}
	monitors, err := state.Monitors()
	if err != nil {
		r.tel.ReportBroken(report_repository_list, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to project monitors")
		return nil, err
	}
	if len(monitors) == 0 {
		r.tel.ReportDebug("no monitors have been created yet")
	}
	r.tel.ReportCount(report_repository_monitors, int64(len(monitors)))

	if term != "" {
		monitors = FilterByTerm(monitors, term)
	}
	span.SetAttributes(attribute.Int("monitors", len(monitors)))
	return monitors, nil
}

// Create creates a monitor for term and returns the monitors listed under
// the term it ended up with.
func (r Repository) Create(ctx context.Context, term string, opts Options) ([]Monitor, error) {
	ctx, span := tracer.Start(ctx, "repository:Create", trace.WithAttributes(attribute.String("term", term)))
	defer span.End()

	state, ok := r.session.State()
	if !ok {
		return nil, ErrInvalidState
	}

	opts.Action = ActionCreate
	if opts.EmailAddress == "" {
		opts.EmailAddress = r.session.Email()
	}
	payload, err := BuildPayload(state, term, opts)
	if err != nil {
		return nil, err
	}
	err = r.session.post(ctx, ActionCreate, payload)
	if err != nil {
		r.tel.ReportWarning(report_repository_mutate, ActionCreate.String(), err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create monitor")
		return nil, err
	}

	if opts.Exact {
		term = ExactTerm(term)
	}
	return r.List(ctx, term)
}

// find lists the monitors and returns the one with id.
func (r Repository) find(ctx context.Context, id string) (Monitor, error) {
	monitors, err := r.List(ctx, "")
	if err != nil {
		return Monitor{}, err
	}
	for _, m := range monitors {
		if m.ID == id {
			return m, nil
		}
	}
	return Monitor{}, &MonitorNotFoundError{ID: id}
}

// mergeMonitor fills the options the caller left unset from the monitor
// being modified.
func mergeMonitor(opts Options, m Monitor) Options {
	if opts.Delivery == 0 {
		opts.Delivery = m.Delivery
	}
	if opts.Region == "" {
		opts.Region = m.Region
	}
	if opts.Language == "" {
		opts.Language = m.Language
	}
	if opts.MatchType == 0 {
		opts.MatchType = m.MatchType
	}
	if opts.Frequency == 0 {
		opts.Frequency = m.Frequency
	}
	if opts.EmailAddress == "" {
		opts.EmailAddress = m.EmailAddress
	}
	if opts.RSSID == "" && opts.Delivery == DeliveryRSS {
		opts.RSSID = m.RSSLink
	}
	return opts
}

// Modify changes the monitor with id and returns the refreshed list of
// every monitor. The term of a monitor cannot be changed.
func (r Repository) Modify(ctx context.Context, id string, opts Options) ([]Monitor, error) {
	ctx, span := tracer.Start(ctx, "repository:Modify", trace.WithAttributes(attribute.String("id", id)))
	defer span.End()

	err := r.requireState()
	if err != nil {
		return nil, err
	}

	monitor, err := r.find(ctx, id)
	if err != nil {
		return nil, err
	}

	opts = mergeMonitor(opts, monitor)
	if opts.EmailAddress == "" {
		opts.EmailAddress = r.session.Email()
	}
	opts.Action = ActionModify
	opts.MonitorID = monitor.ID
	// the term already carries its quotes
	opts.Exact = false

	state, _ := r.session.State()
	payload, err := BuildPayload(state, monitor.Term, opts)
	if err != nil {
		return nil, err
	}
	err = r.session.post(ctx, ActionModify, payload)
	if err != nil {
		r.tel.ReportWarning(report_repository_mutate, ActionModify.String(), err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to modify monitor")
		return nil, err
	}

	return r.List(ctx, "")
}

// Delete deletes the monitor with id.
func (r Repository) Delete(ctx context.Context, id string) (bool, error) {
	ctx, span := tracer.Start(ctx, "repository:Delete", trace.WithAttributes(attribute.String("id", id)))
	defer span.End()

	err := r.requireState()
	if err != nil {
		return false, err
	}

	monitor, err := r.find(ctx, id)
	if err != nil {
		return false, err
	}
	return r.delete(ctx, span, monitor.ID)
}

// DeleteByTerm deletes the first monitor whose term is exactly term.
func (r Repository) DeleteByTerm(ctx context.Context, term string) (bool, error) {
	ctx, span := tracer.Start(ctx, "repository:DeleteByTerm", trace.WithAttributes(attribute.String("term", term)))
	defer span.End()

	err := r.requireState()
	if err != nil {
		return false, err
	}

	monitors, err := r.List(ctx, "")
	if err != nil {
		return false, err
	}
	matches := FilterByTerm(monitors, term)
	if len(matches) == 0 {
		return false, &MonitorNotFoundError{
			Term:       term,
			Suggestion: closestTerm(term, monitors),
		}
	}
	return r.delete(ctx, span, matches[0].ID)
}

func (r Repository) delete(ctx context.Context, span trace.Span, id string) (bool, error) {
	state, _ := r.session.State()
	payload, err := DeletePayload(state, id)
	if err == nil {
		err = r.session.post(ctx, ActionDelete, payload)
	}
	if err != nil {
		r.tel.ReportWarning(report_repository_mutate, ActionDelete.String(), err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to delete monitor")
		return false, err
	}
	return true, nil
}
