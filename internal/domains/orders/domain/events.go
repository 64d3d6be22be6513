package domain

import "time"

// Event is implemented by every domain event emitted by the orders context.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent carries the timestamp shared by all events.
type BaseEvent struct {
	Timestamp time.Time `json:"occurredAt"`
}

// OccurredAt returns when the event happened.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// OrderPlaced is emitted once checkout has committed an order and its line items.
type OrderPlaced struct {
	BaseEvent
	OrderID    int64      `json:"orderId"`
	Reference  string     `json:"reference"`
	CustomerID int64      `json:"customerId"`
	Total      int64      `json:"total"`
	Lines      []LineItem `json:"lines"`
}

// EventName identifies the event type.
func (OrderPlaced) EventName() string { return "orders.order_placed" }

// NewOrderPlaced builds the event for a committed order.
func NewOrderPlaced(order *Order, lines []LineItem, at time.Time) OrderPlaced {
	event := OrderPlaced{BaseEvent: BaseEvent{Timestamp: at}}
	if order != nil {
		event.OrderID = order.ID
		event.Reference = order.Reference
		event.CustomerID = order.CustomerID
		event.Total = order.Total
	}
	event.Lines = append([]LineItem(nil), lines...)
	return event
}
