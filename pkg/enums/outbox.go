package enums

// OutboxEventType enumerates the domain events emitted through the outbox.
type OutboxEventType string

const (
	EventOrderPaid          OutboxEventType = "order.paid"
	EventOrderPaymentFailed OutboxEventType = "order.payment_failed"
)

func (t OutboxEventType) String() string {
	return string(t)
}

// OutboxDLQErrorReason classifies why an event landed in the dead letter queue.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
)

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder OutboxAggregateType = "order"
)

func (t OutboxAggregateType) String() string {
	return string(t)
}
