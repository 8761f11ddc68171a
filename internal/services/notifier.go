package services

// Live update event types pushed to an owner's connected clients
const (
	EventBalanceUpdated = "balance_updated"
	EventShiftClosed    = "shift_closed"
	EventVisitRecorded  = "visit_recorded"
	EventExpenseChanged = "expense_changed"
)

// Notifier pushes an event to every live connection of an owner.
// Delivery is best effort and never fails the operation that triggered it.
type Notifier interface {
	Notify(ownerID, eventType string, data interface{})
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, string, interface{}) {}

func notifierOrNop(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}
