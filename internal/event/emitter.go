// Package event publishes lifecycle events to the message broker.
// Publishing is strictly best-effort: a broker outage is logged and
// counted, never surfaced to the mutation that triggered it.
package event

import (
	"context"

	"github.com/medscribe/scribe-api/pkg/logger"
	"github.com/medscribe/scribe-api/pkg/messaging"
	"github.com/medscribe/scribe-api/pkg/metrics"
)

// ChannelLifecycle carries every event this service emits.
const ChannelLifecycle = "scribe.lifecycle"

// Event types
const (
	TypePatientCreated      = "patient.created"
	TypePatientDeleted      = "patient.deleted"
	TypeConsultationSigned  = "consultation.signed"
	TypeConsultationDeleted = "consultation.deleted"
)

type Emitter struct {
	broker  messaging.Broker
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// NewEmitter wires an emitter. A nil broker disables publishing, which
// keeps the service runnable without redis.
func NewEmitter(broker messaging.Broker, log *logger.Logger, m *metrics.Metrics) *Emitter {
	return &Emitter{broker: broker, logger: log, metrics: m}
}

func (e *Emitter) Emit(ctx context.Context, eventType string, payload interface{}) {
	if e == nil || e.broker == nil {
		return
	}

	msg := messaging.Event{Type: eventType, Payload: payload}
	if err := e.broker.Publish(ctx, ChannelLifecycle, msg); err != nil {
		if e.metrics != nil {
			e.metrics.EventsFailed.Inc()
		}
		e.logger.Error(err, "failed to publish event", "event_type", eventType)
		return
	}
	if e.metrics != nil {
		e.metrics.EventsPublished.WithLabelValues(eventType).Inc()
	}
}
