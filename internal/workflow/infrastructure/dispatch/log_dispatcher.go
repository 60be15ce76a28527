// Package dispatch holds response dispatcher adapters. The real delivery
// channel (email reply, chat message) plugs in behind the application port;
// the log dispatcher is the offline default.
package dispatch

import (
	"context"
	"log/slog"
	"time"

	availabilityApp "github.com/felixgeelhaar/tempora/internal/availability/application"
	extractionDomain "github.com/felixgeelhaar/tempora/internal/extraction/domain"
	workflowApp "github.com/felixgeelhaar/tempora/internal/workflow/application"
	"github.com/google/uuid"
)

// LogDispatcher writes the proposal to the log instead of sending it.
type LogDispatcher struct {
	logger *slog.Logger
}

// NewLogDispatcher creates a log-only dispatcher.
func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogDispatcher{logger: logger}
}

// Send logs the candidates and returns a synthetic receipt.
func (d *LogDispatcher) Send(_ context.Context, request *extractionDomain.MeetingRequest, candidates []availabilityApp.CandidateSlot) (workflowApp.Receipt, error) {
	attrs := make([]any, 0, 2+2*len(candidates))
	attrs = append(attrs, "meeting_request_id", request.ID())
	for i, candidate := range candidates {
		attrs = append(attrs,
			slog.Group("candidate",
				"rank", i+1,
				"start", candidate.Start.In(candidate.Timezone),
				"end", candidate.End.In(candidate.Timezone),
				"confidence", candidate.Confidence,
			),
		)
	}
	d.logger.Info("proposed meeting times", attrs...)

	return workflowApp.Receipt{ID: uuid.NewString(), SentAt: time.Now().UTC()}, nil
}
