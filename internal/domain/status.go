package domain

// Status is the display vocabulary used by all view logic.
type Status string

const (
	StatusPending       Status = "pending"
	StatusInPreparation Status = "in_preparation"
	StatusReady         Status = "ready"
	StatusServed        Status = "served"
	StatusCompleted     Status = "completed"
	StatusCancelled     Status = "cancelled"
)

// WireStatus is the vocabulary the backend transmits.
type WireStatus string

const (
	WirePending   WireStatus = "PENDING"
	WirePreparing WireStatus = "PREPARING"
	WireReady     WireStatus = "READY"
	WireServed    WireStatus = "SERVED"
	WireCompleted WireStatus = "COMPLETED"
	WireCancelled WireStatus = "CANCELLED"
)

var wireToDisplay = map[WireStatus]Status{
	WirePending:   StatusPending,
	WirePreparing: StatusInPreparation,
	WireReady:     StatusReady,
	WireServed:    StatusServed,
	WireCompleted: StatusCompleted,
	WireCancelled: StatusCancelled,
}

var displayToWire = map[Status]WireStatus{
	StatusPending:       WirePending,
	StatusInPreparation: WirePreparing,
	StatusReady:         WireReady,
	StatusServed:        WireServed,
	StatusCompleted:     WireCompleted,
	StatusCancelled:     WireCancelled,
}

// ToDisplay translates a backend status into the display vocabulary.
// Unknown values map to pending: a malformed backend value must not take
// down a live display, and pending is the only non-destructive fallback.
func ToDisplay(s WireStatus) Status {
	if d, ok := wireToDisplay[s]; ok {
		return d
	}
	return StatusPending
}

// ToWire translates a display status back into the wire vocabulary.
// Unknown values fall back to PENDING, mirroring ToDisplay.
func ToWire(s Status) WireStatus {
	if w, ok := displayToWire[s]; ok {
		return w
	}
	return WirePending
}

// AllStatuses lists the display vocabulary in lifecycle order.
func AllStatuses() []Status {
	return []Status{
		StatusPending,
		StatusInPreparation,
		StatusReady,
		StatusServed,
		StatusCompleted,
		StatusCancelled,
	}
}

// forwardSuccessor holds the single forward edge of each non-terminal status.
// Cancellation is the only other edge and is available from every
// non-terminal status, so it is not listed here.
var forwardSuccessor = map[Status]Status{
	StatusPending:       StatusInPreparation,
	StatusInPreparation: StatusReady,
	StatusReady:         StatusServed,
	StatusServed:        StatusCompleted,
}

// IsTerminal reports whether no transition may originate from s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ForwardSuccessor returns the single next status on the forward path,
// or false for terminal statuses.
func (s Status) ForwardSuccessor() (Status, bool) {
	next, ok := forwardSuccessor[s]
	return next, ok
}

// CanTransitionTo reports whether a single backend transition from s to
// target is part of the lifecycle graph.
func (s Status) CanTransitionTo(target Status) bool {
	if s.IsTerminal() {
		return false
	}
	if target == StatusCancelled {
		return true
	}
	return forwardSuccessor[s] == target
}

// CanReach reports whether target is reachable from s by one or more
// transitions. Used to validate that policy targets never point backwards.
func (s Status) CanReach(target Status) bool {
	if s.IsTerminal() {
		return false
	}
	if target == StatusCancelled {
		return true
	}
	for cur, ok := s.ForwardSuccessor(); ok; cur, ok = cur.ForwardSuccessor() {
		if cur == target {
			return true
		}
	}
	return false
}
