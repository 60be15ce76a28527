package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	availabilityApp "github.com/felixgeelhaar/tempora/internal/availability/application"
	calendarApp "github.com/felixgeelhaar/tempora/internal/calendar/application"
	extractionDomain "github.com/felixgeelhaar/tempora/internal/extraction/domain"
	"github.com/felixgeelhaar/tempora/internal/extraction/timeparse"
	holdsDomain "github.com/felixgeelhaar/tempora/internal/holds/domain"
	sharedApplication "github.com/felixgeelhaar/tempora/internal/shared/application"
	sharedDomain "github.com/felixgeelhaar/tempora/internal/shared/domain"
	"github.com/felixgeelhaar/tempora/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/tempora/internal/workflow/domain"
	"github.com/felixgeelhaar/tempora/pkg/observability"
	"github.com/google/uuid"
)

// Config tunes orchestration behavior.
type Config struct {
	CalendarID     string
	MaxRetries     int
	RetryBaseDelay time.Duration
	SearchAhead    time.Duration
	Preferences    availabilityApp.Preferences
}

// DefaultConfig returns the default orchestration settings.
func DefaultConfig() Config {
	return Config{
		CalendarID:     "primary",
		MaxRetries:     3,
		RetryBaseDelay: 500 * time.Millisecond,
		SearchAhead:    7 * 24 * time.Hour,
		Preferences:    availabilityApp.DefaultPreferences(),
	}
}

// Orchestrator runs the scheduling state machine for meeting requests. Each
// request gets its own workflow; workflows share nothing but the calendar,
// which they touch only through the hold service's atomic create.
type Orchestrator struct {
	workflows  domain.Repository
	requests   extractionDomain.Repository
	holds      HoldService
	suggester  SlotSuggester
	backend    calendarApp.CalendarBackend
	dispatcher ResponseDispatcher
	resolver   *timeparse.Resolver
	outboxRepo outbox.Repository
	uow        sharedApplication.UnitOfWork
	config     Config
	logger     *slog.Logger
	metrics    observability.Metrics
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(
	workflows domain.Repository,
	requests extractionDomain.Repository,
	holds HoldService,
	suggester SlotSuggester,
	backend calendarApp.CalendarBackend,
	dispatcher ResponseDispatcher,
	resolver *timeparse.Resolver,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	config Config,
	logger *slog.Logger,
	metrics observability.Metrics,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.RetryBaseDelay <= 0 {
		config.RetryBaseDelay = 500 * time.Millisecond
	}
	if config.SearchAhead <= 0 {
		config.SearchAhead = 7 * 24 * time.Hour
	}
	if config.CalendarID == "" {
		config.CalendarID = "primary"
	}
	return &Orchestrator{
		workflows:  workflows,
		requests:   requests,
		holds:      holds,
		suggester:  suggester,
		backend:    backend,
		dispatcher: dispatcher,
		resolver:   resolver,
		outboxRepo: outboxRepo,
		uow:        uow,
		config:     config,
		logger:     logger,
		metrics:    metrics,
	}
}

// StartWorkflow begins orchestration for a detected meeting request: suggest
// slots, place holds, dispatch the proposal and arm the reply timeout.
func (o *Orchestrator) StartWorkflow(ctx context.Context, request *extractionDomain.MeetingRequest) (*domain.SchedulingWorkflow, error) {
	workflow, err := domain.NewSchedulingWorkflow(request.ID(), classifyWorkflowType(request), request.Attendees())
	if err != nil {
		return nil, err
	}

	if err := o.saveWorkflow(ctx, workflow); err != nil {
		return nil, err
	}
	o.metrics.Counter("workflow.started", 1, observability.T("type", string(workflow.Type())))

	if err := o.proposeAndDispatch(ctx, workflow, request, request.PreferredWindows()); err != nil {
		return workflow, err
	}
	return workflow, nil
}

// HandleReply applies a recipient answer to an awaiting workflow.
func (o *Orchestrator) HandleReply(ctx context.Context, signal ReplySignal) error {
	workflow, err := o.workflows.FindByMeetingRequestID(ctx, signal.MeetingRequestID)
	if err != nil {
		return err
	}
	if workflow.State() != domain.StateAwaitingReply {
		return fmt.Errorf("%w: workflow in state %s", ErrReplyIgnored, workflow.State())
	}

	request, err := o.requests.FindByID(ctx, signal.MeetingRequestID)
	if err != nil {
		return err
	}

	switch {
	case signal.Decline:
		return o.decline(ctx, workflow, request)
	case signal.CounterProposal != "":
		return o.counterPropose(ctx, workflow, request, signal.CounterProposal)
	case signal.HoldID != uuid.Nil:
		return o.acceptSelection(ctx, workflow, request, signal)
	default:
		return fmt.Errorf("%w: reply carries no selection, counter-proposal or decline", ErrReplyIgnored)
	}
}

// Cancel ends a workflow at the user's request, releasing every hold it owns
// before completing.
func (o *Orchestrator) Cancel(ctx context.Context, meetingRequestID uuid.UUID, reason string) error {
	workflow, err := o.workflows.FindByMeetingRequestID(ctx, meetingRequestID)
	if err != nil {
		return err
	}
	if workflow.State().IsTerminal() {
		return domain.ErrWorkflowTerminal
	}

	request, err := o.requests.FindByID(ctx, meetingRequestID)
	if err != nil {
		return err
	}

	if _, err := o.holds.ReleaseForRequest(ctx, meetingRequestID); err != nil {
		return err
	}
	if err := workflow.Cancel(reason); err != nil {
		return err
	}
	if err := request.Cancel(reason); err != nil && !errors.Is(err, extractionDomain.ErrRequestTerminal) {
		return err
	}

	o.metrics.Counter("workflow.cancelled", 1)
	return o.saveAll(ctx, workflow, request)
}

// ExpireDue times out awaiting workflows whose reply deadline has passed.
// Holds are released, the workflow expires and the request closes with a
// "no response" reason. Returns how many workflows were expired.
func (o *Orchestrator) ExpireDue(ctx context.Context, now time.Time, limit int) (int, error) {
	due, err := o.workflows.FindDue(ctx, now, limit)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, workflow := range due {
		if err := o.expireOne(ctx, workflow); err != nil {
			o.logger.Error("workflow expiry failed",
				"workflow_id", workflow.ID(),
				"meeting_request_id", workflow.MeetingRequestID(),
				"error", err)
			continue
		}
		expired++
	}
	if expired > 0 {
		o.metrics.Counter("workflow.expired", int64(expired))
	}
	return expired, nil
}

func (o *Orchestrator) expireOne(ctx context.Context, workflow *domain.SchedulingWorkflow) error {
	if _, err := o.holds.ReleaseForRequest(ctx, workflow.MeetingRequestID()); err != nil {
		return err
	}
	if err := workflow.Expire("no response"); err != nil {
		return err
	}

	request, err := o.requests.FindByID(ctx, workflow.MeetingRequestID())
	if err != nil {
		return err
	}
	if err := request.Cancel("no response"); err != nil && !errors.Is(err, extractionDomain.ErrRequestTerminal) {
		return err
	}

	o.logger.Info("workflow expired without reply",
		"workflow_id", workflow.ID(),
		"meeting_request_id", workflow.MeetingRequestID())
	return o.saveAll(ctx, workflow, request)
}

// proposeAndDispatch runs the holds_created and response_sent steps: suggest
// candidates inside the given windows, reserve them, send the proposal and
// arm the timeout. A failure on any step releases owned holds and fails the
// workflow, so no reservation outlives it.
func (o *Orchestrator) proposeAndDispatch(ctx context.Context, workflow *domain.SchedulingWorkflow, request *extractionDomain.MeetingRequest, windows []sharedDomain.TimeWindow) error {
	candidates, err := o.suggestCandidates(ctx, workflow, request, windows)
	if err != nil {
		return o.failWorkflow(ctx, workflow, request, fmt.Sprintf("availability lookup failed: %v", err))
	}
	if len(candidates) == 0 {
		return o.failWorkflow(ctx, workflow, request, ErrNoCandidates.Error())
	}

	slotWindows := make([]sharedDomain.TimeWindow, 0, len(candidates))
	slotByStart := make(map[time.Time]availabilityApp.CandidateSlot, len(candidates))
	for _, candidate := range candidates {
		window, err := candidate.Window()
		if err != nil {
			continue
		}
		slotWindows = append(slotWindows, window)
		slotByStart[window.Start().UTC()] = candidate
	}

	held, err := o.holds.CreateHolds(ctx, request.ID(), o.config.CalendarID, slotWindows)
	if err != nil {
		return o.failWorkflow(ctx, workflow, request, fmt.Sprintf("hold creation failed: %v", err))
	}
	if len(held) == 0 {
		return o.failWorkflow(ctx, workflow, request, "all candidate slots conflicted")
	}
	if err := workflow.MarkHoldsCreated(); err != nil {
		return err
	}
	if err := o.saveWorkflow(ctx, workflow); err != nil {
		return err
	}

	surviving := make([]availabilityApp.CandidateSlot, 0, len(held))
	earliestExpiry := held[0].ExpiresAt()
	for _, hold := range held {
		if slot, ok := slotByStart[hold.Window().Start().UTC()]; ok {
			surviving = append(surviving, slot)
		}
		if hold.ExpiresAt().Before(earliestExpiry) {
			earliestExpiry = hold.ExpiresAt()
		}
	}

	if err := o.dispatchWithRetry(ctx, workflow, request, surviving); err != nil {
		return o.failWorkflow(ctx, workflow, request, fmt.Sprintf("dispatch failed after %d attempts: %v", workflow.RetryCount(), err))
	}

	if err := workflow.MarkResponseSent(); err != nil {
		return err
	}
	if err := workflow.AwaitReply(earliestExpiry); err != nil {
		return err
	}
	if request.Status() == extractionDomain.StatusPending {
		if err := request.StartNegotiation(); err != nil {
			return err
		}
	}

	o.logger.Info("candidates proposed",
		"workflow_id", workflow.ID(),
		"meeting_request_id", request.ID(),
		"candidates", len(surviving),
		"reply_deadline", earliestExpiry)
	return o.saveAll(ctx, workflow, request)
}

// suggestCandidates queries availability for each preferred window, or a
// default look-ahead window when the request carries none. Transient backend
// failures retry with bounded exponential backoff.
func (o *Orchestrator) suggestCandidates(ctx context.Context, workflow *domain.SchedulingWorkflow, request *extractionDomain.MeetingRequest, windows []sharedDomain.TimeWindow) ([]availabilityApp.CandidateSlot, error) {
	if len(windows) == 0 {
		start := time.Now().UTC().Add(time.Hour)
		window, err := sharedDomain.NewTimeWindow(start, start.Add(o.config.SearchAhead), time.UTC)
		if err != nil {
			return nil, err
		}
		windows = []sharedDomain.TimeWindow{window}
	}

	max := o.config.Preferences.MaxCandidates
	if max <= 0 {
		max = availabilityApp.DefaultPreferences().MaxCandidates
	}

	var candidates []availabilityApp.CandidateSlot
	for _, window := range windows {
		err := o.withRetry(ctx, workflow, func() error {
			slots, suggestErr := o.suggester.SuggestSlots(ctx, o.config.CalendarID, request.DurationMinutes(), window, o.config.Preferences)
			if suggestErr != nil {
				return suggestErr
			}
			candidates = append(candidates, slots...)
			return nil
		})
		if err != nil {
			return nil, err
		}
		if len(candidates) >= max {
			candidates = candidates[:max]
			break
		}
	}
	return candidates, nil
}

func (o *Orchestrator) dispatchWithRetry(ctx context.Context, workflow *domain.SchedulingWorkflow, request *extractionDomain.MeetingRequest, candidates []availabilityApp.CandidateSlot) error {
	return o.withRetry(ctx, workflow, func() error {
		receipt, err := o.dispatcher.Send(ctx, request, candidates)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDispatchFailure, err)
		}
		o.logger.Debug("proposal dispatched", "receipt_id", receipt.ID, "sent_at", receipt.SentAt)
		return nil
	})
}

// withRetry runs fn with bounded exponential backoff for transient failures.
// Retries count against the workflow's ceiling.
func (o *Orchestrator) withRetry(ctx context.Context, workflow *domain.SchedulingWorkflow, fn func() error) error {
	var lastErr error
	for {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, calendarApp.ErrBackendRejected) {
			return lastErr
		}
		workflow.RecordRetry()
		if !workflow.CanRetry(o.config.MaxRetries) {
			return lastErr
		}

		delay := o.config.RetryBaseDelay << (workflow.RetryCount() - 1)
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (o *Orchestrator) acceptSelection(ctx context.Context, workflow *domain.SchedulingWorkflow, request *extractionDomain.MeetingRequest, signal ReplySignal) error {
	if workflow.Type() == domain.MultiRecipient {
		all, err := workflow.AcceptParticipant(signal.Participant)
		if err != nil {
			return err
		}
		if !all {
			o.logger.Info("participant accepted, waiting for others",
				"meeting_request_id", request.ID(),
				"participant", signal.Participant,
				"pending", len(workflow.PendingParticipants()))
			return o.saveWorkflow(ctx, workflow)
		}
	}

	held, err := o.holds.FindForRequest(ctx, request.ID())
	if err != nil {
		return err
	}
	var selected *holdsDomain.CalendarHold
	for _, hold := range held {
		if hold.ID() == signal.HoldID {
			selected = hold
			break
		}
	}
	if selected == nil {
		return holdsDomain.ErrHoldNotFound
	}
	// Verify the hold is still confirmable before touching the backend, so
	// a lapsed TTL never leaves an orphaned calendar event behind.
	if selected.Status() != holdsDomain.HoldPending {
		return holdsDomain.ErrHoldNotPending
	}
	if selected.IsExpired(time.Now().UTC()) {
		return holdsDomain.ErrHoldExpired
	}

	// Create the calendar event before confirming so a backend failure
	// leaves every hold pending and releasable.
	draft := calendarApp.EventDraft{
		Title:       request.Subject(),
		Description: fmt.Sprintf("Scheduled from a request by %s", request.Sender()),
		Start:       selected.Window().Start(),
		End:         selected.Window().End(),
		Attendees:   request.Attendees(),
		Location:    request.LocationPreference(),
	}
	var created calendarApp.CreatedEvent
	err = o.withRetry(ctx, workflow, func() error {
		var createErr error
		created, createErr = o.backend.CreateEvent(ctx, o.config.CalendarID, draft)
		return createErr
	})
	if err != nil {
		return o.failWorkflow(ctx, workflow, request, fmt.Sprintf("event creation failed: %v", err))
	}

	if _, err := o.holds.ConfirmHold(ctx, selected.ID()); err != nil {
		return err
	}
	// Sibling holds are still pending and get released here.
	if _, err := o.holds.ReleaseForRequest(ctx, request.ID()); err != nil {
		return err
	}
	if err := workflow.Confirm(); err != nil {
		return err
	}
	if err := request.MarkScheduled(); err != nil {
		return err
	}

	o.metrics.Counter("workflow.confirmed", 1, observability.T("type", string(workflow.Type())))
	o.logger.Info("meeting scheduled",
		"meeting_request_id", request.ID(),
		"hold_id", selected.ID(),
		"event_id", created.ID,
		"start", selected.Window().Start())
	return o.saveAll(ctx, workflow, request)
}

func (o *Orchestrator) counterPropose(ctx context.Context, workflow *domain.SchedulingWorkflow, request *extractionDomain.MeetingRequest, proposal string) error {
	if workflow.Type() != domain.NegotiateTime {
		return fmt.Errorf("%w: %s workflows do not negotiate counter-proposals", ErrReplyIgnored, workflow.Type())
	}

	if _, err := o.holds.ReleaseForRequest(ctx, request.ID()); err != nil {
		return err
	}
	if err := workflow.ReturnToNegotiation(); err != nil {
		return err
	}

	windows := o.parseProposedWindows(proposal, request)
	o.logger.Info("counter-proposal received",
		"meeting_request_id", request.ID(),
		"parsed_windows", len(windows))

	return o.redispatch(ctx, workflow, request, windows)
}

// redispatch reruns the dispatch phase for a workflow already back in the
// holds_created state after a counter-proposal.
func (o *Orchestrator) redispatch(ctx context.Context, workflow *domain.SchedulingWorkflow, request *extractionDomain.MeetingRequest, windows []sharedDomain.TimeWindow) error {
	candidates, err := o.suggestCandidates(ctx, workflow, request, windows)
	if err != nil {
		return o.failWorkflow(ctx, workflow, request, fmt.Sprintf("availability lookup failed: %v", err))
	}
	if len(candidates) == 0 {
		return o.failWorkflow(ctx, workflow, request, ErrNoCandidates.Error())
	}

	slotWindows := make([]sharedDomain.TimeWindow, 0, len(candidates))
	for _, candidate := range candidates {
		window, err := candidate.Window()
		if err != nil {
			continue
		}
		slotWindows = append(slotWindows, window)
	}

	held, err := o.holds.CreateHolds(ctx, request.ID(), o.config.CalendarID, slotWindows)
	if err != nil {
		return o.failWorkflow(ctx, workflow, request, fmt.Sprintf("hold creation failed: %v", err))
	}
	if len(held) == 0 {
		return o.failWorkflow(ctx, workflow, request, "all candidate slots conflicted")
	}

	earliestExpiry := held[0].ExpiresAt()
	for _, hold := range held {
		if hold.ExpiresAt().Before(earliestExpiry) {
			earliestExpiry = hold.ExpiresAt()
		}
	}

	if err := o.dispatchWithRetry(ctx, workflow, request, candidates); err != nil {
		return o.failWorkflow(ctx, workflow, request, fmt.Sprintf("dispatch failed after %d attempts: %v", workflow.RetryCount(), err))
	}
	if err := workflow.MarkResponseSent(); err != nil {
		return err
	}
	if err := workflow.AwaitReply(earliestExpiry); err != nil {
		return err
	}
	return o.saveAll(ctx, workflow, request)
}

// parseProposedWindows extracts concrete windows from counter-proposal text
// in the request's original timezone. An unparseable proposal yields nil and
// the re-suggest falls back to the default look-ahead window.
func (o *Orchestrator) parseProposedWindows(proposal string, request *extractionDomain.MeetingRequest) []sharedDomain.TimeWindow {
	if o.resolver == nil {
		return nil
	}
	loc := time.UTC
	if windows := request.PreferredWindows(); len(windows) > 0 {
		loc = windows[0].Timezone()
	}
	zone := o.resolver.ResolveTimezone(proposal, loc)

	var out []sharedDomain.TimeWindow
	for _, parsed := range o.resolver.ResolveDateTimes(proposal, time.Now(), zone) {
		window, err := sharedDomain.NewTimeWindow(parsed.Start, parsed.End, parsed.Location)
		if err != nil {
			continue
		}
		out = append(out, window)
	}
	return out
}

func (o *Orchestrator) decline(ctx context.Context, workflow *domain.SchedulingWorkflow, request *extractionDomain.MeetingRequest) error {
	if _, err := o.holds.ReleaseForRequest(ctx, request.ID()); err != nil {
		return err
	}
	if err := workflow.Cancel("declined by recipient"); err != nil {
		return err
	}
	if err := request.Decline("declined by recipient"); err != nil && !errors.Is(err, extractionDomain.ErrRequestTerminal) {
		return err
	}

	o.metrics.Counter("workflow.declined", 1)
	o.logger.Info("meeting declined", "meeting_request_id", request.ID())
	return o.saveAll(ctx, workflow, request)
}

// failWorkflow releases owned holds, fails the workflow and closes the
// request. Hold cleanup happens first so a crash between steps never leaves
// an orphaned reservation behind a terminal workflow.
func (o *Orchestrator) failWorkflow(ctx context.Context, workflow *domain.SchedulingWorkflow, request *extractionDomain.MeetingRequest, reason string) error {
	if _, err := o.holds.ReleaseForRequest(ctx, request.ID()); err != nil {
		return err
	}
	if err := workflow.Fail(reason); err != nil {
		return err
	}
	if err := request.Cancel(reason); err != nil && !errors.Is(err, extractionDomain.ErrRequestTerminal) {
		return err
	}

	o.metrics.Counter("workflow.failed", 1)
	o.logger.Warn("workflow failed",
		"workflow_id", workflow.ID(),
		"meeting_request_id", request.ID(),
		"reason", reason)
	if err := o.saveAll(ctx, workflow, request); err != nil {
		return err
	}
	return fmt.Errorf("workflow failed: %s", reason)
}

func classifyWorkflowType(request *extractionDomain.MeetingRequest) domain.WorkflowType {
	// The sender plus more than one other attendee means everyone must
	// accept the same slot.
	if len(request.Attendees()) > 2 {
		return domain.MultiRecipient
	}
	if !request.HasSpecificTimes() || request.MeetingType() == extractionDomain.MeetingTypeFlexible {
		return domain.NegotiateTime
	}
	return domain.DirectSchedule
}

func (o *Orchestrator) saveWorkflow(ctx context.Context, workflow *domain.SchedulingWorkflow) error {
	return sharedApplication.WithUnitOfWork(ctx, o.uow, func(txCtx context.Context) error {
		if err := o.workflows.Save(txCtx, workflow); err != nil {
			return err
		}
		return o.persistEvents(txCtx, workflow.MeetingRequestID(), workflow)
	})
}

func (o *Orchestrator) saveAll(ctx context.Context, workflow *domain.SchedulingWorkflow, request *extractionDomain.MeetingRequest) error {
	return sharedApplication.WithUnitOfWork(ctx, o.uow, func(txCtx context.Context) error {
		if err := o.workflows.Save(txCtx, workflow); err != nil {
			return err
		}
		if err := o.requests.Save(txCtx, request); err != nil {
			return err
		}
		if err := o.persistEvents(txCtx, workflow.MeetingRequestID(), workflow); err != nil {
			return err
		}
		return o.persistEvents(txCtx, workflow.MeetingRequestID(), request)
	})
}

type eventCarrier interface {
	DomainEvents() []sharedDomain.DomainEvent
	ClearDomainEvents()
}

func (o *Orchestrator) persistEvents(ctx context.Context, correlationID uuid.UUID, carrier eventCarrier) error {
	events := carrier.DomainEvents()
	if len(events) == 0 {
		return nil
	}
	sharedApplication.ApplyEventMetadata(events, sharedApplication.NewEventMetadata(correlationID, o.config.CalendarID))

	msgs := make([]*outbox.Message, 0, len(events))
	for _, event := range events {
		msg, err := outbox.NewMessage(event)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	if err := o.outboxRepo.SaveBatch(ctx, msgs); err != nil {
		return err
	}
	carrier.ClearDomainEvents()
	return nil
}
