// Package qos describes delivery guarantees of event subscriptions.
package qos

// Ordering controls whether a subscriber sees one event at a time.
type Ordering uint

const (
	Ordered Ordering = iota
	Unordered
)

func (o Ordering) String() string {
	if o == Unordered {
		return "unordered"
	}
	return "ordered"
}

// Delivery controls whether a subscriber replays history and acknowledges messages.
type Delivery uint

const (
	// AtLeastOnce replays stored events and redelivers on handler errors.
	AtLeastOnce Delivery = iota
	// AtMostOnce sees only events stored after subscribing, without acknowledgements.
	AtMostOnce
)

func (d Delivery) String() string {
	if d == AtMostOnce {
		return "at-most-once"
	}
	return "at-least-once"
}

// QoS is the zero-value friendly pair; the zero value is ordered, at-least-once.
type QoS struct {
	Ordering Ordering
	Delivery Delivery
}

func (q QoS) String() string {
	return q.Ordering.String() + "/" + q.Delivery.String()
}
