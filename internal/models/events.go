package models

// EventKind is the closed set of gateway webhook events the reconciler
// understands. Anything else parses to EventUnknown and is audit-logged
// without side effects.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventPaymentReceived
	EventPaymentConfirmed
	EventPaymentReceivedInCash
	EventPaymentOverdue
	EventPaymentRefunded
	EventTransferFinished
)

func ParseEventKind(event string) EventKind {
	switch event {
	case "PAYMENT_RECEIVED":
		return EventPaymentReceived
	case "PAYMENT_CONFIRMED":
		return EventPaymentConfirmed
	case "PAYMENT_RECEIVED_IN_CASH":
		return EventPaymentReceivedInCash
	case "PAYMENT_OVERDUE":
		return EventPaymentOverdue
	case "PAYMENT_REFUNDED":
		return EventPaymentRefunded
	case "TRANSFER_FINISHED":
		return EventTransferFinished
	default:
		return EventUnknown
	}
}

func (k EventKind) String() string {
	switch k {
	case EventPaymentReceived:
		return "PAYMENT_RECEIVED"
	case EventPaymentConfirmed:
		return "PAYMENT_CONFIRMED"
	case EventPaymentReceivedInCash:
		return "PAYMENT_RECEIVED_IN_CASH"
	case EventPaymentOverdue:
		return "PAYMENT_OVERDUE"
	case EventPaymentRefunded:
		return "PAYMENT_REFUNDED"
	case EventTransferFinished:
		return "TRANSFER_FINISHED"
	default:
		return "UNKNOWN"
	}
}
