package enums

// OutboxAggregateType names the entity an outbox event describes.
type OutboxAggregateType string

const (
	AggregateOrder OutboxAggregateType = "order"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
}

// IsValid reports whether the value is a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// OutboxEventType names the domain event stored in the outbox.
type OutboxEventType string

const (
	EventOrderPlaced         OutboxEventType = "order_placed"
	EventPaymentLinkIssued   OutboxEventType = "payment_link_issued"
	EventOrderPaymentSettled OutboxEventType = "order_payment_settled"
	EventOrderExpired        OutboxEventType = "order_expired"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderPlaced,
	EventPaymentLinkIssued,
	EventOrderPaymentSettled,
	EventOrderExpired,
}

// IsValid reports whether the value is a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}
