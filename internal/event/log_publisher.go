package event

import (
	"context"
	"log/slog"
)

// LogEventPublisher writes events to the log. It stands in for RabbitMQ when
// no broker is configured.
type LogEventPublisher struct {
	logger *slog.Logger
}

func NewLogEventPublisher(logger *slog.Logger) *LogEventPublisher {
	return &LogEventPublisher{logger: logger.With("component", "LogEventPublisher")}
}

func (p *LogEventPublisher) PublishPaymentRecorded(ctx context.Context, event PaymentRecordedEvent) error {
	p.logger.InfoContext(ctx, "Event", "routingKey", RoutingKeyPaymentRecorded, "event", event)
	return nil
}

func (p *LogEventPublisher) PublishScheduleGenerated(ctx context.Context, event ScheduleGeneratedEvent) error {
	p.logger.InfoContext(ctx, "Event", "routingKey", RoutingKeyScheduleGenerated, "event", event)
	return nil
}

func (p *LogEventPublisher) PublishLoanClosed(ctx context.Context, event LoanClosedEvent) error {
	p.logger.InfoContext(ctx, "Event", "routingKey", RoutingKeyLoanClosed, "event", event)
	return nil
}

func (p *LogEventPublisher) PublishLoanOverdue(ctx context.Context, event LoanOverdueEvent) error {
	p.logger.InfoContext(ctx, "Event", "routingKey", RoutingKeyLoanOverdue, "event", event)
	return nil
}
