package domain

// Role identifies which view is driving a transition.
type Role string

const (
	RoleKitchen Role = "kitchen"
	RoleServer  Role = "server"
	RoleAdmin   Role = "admin"
)

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleKitchen, RoleServer, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

// Action is the single legal next step a role may take on an order.
type Action struct {
	Target               Status
	RequiresConfirmation bool
	RequiresReason       bool
}

type roleTransition struct {
	role    Role
	current Status
}

// transitionTable is the per-role forward-transition policy. Cancellation
// is handled separately by CancelAction since it applies to every role.
var transitionTable = map[roleTransition]Action{
	{RoleKitchen, StatusPending}:       {Target: StatusInPreparation, RequiresConfirmation: false},
	{RoleKitchen, StatusInPreparation}: {Target: StatusServed, RequiresConfirmation: true},
	{RoleServer, StatusReady}:          {Target: StatusServed, RequiresConfirmation: true},
	{RoleServer, StatusServed}:         {Target: StatusCompleted, RequiresConfirmation: true},
}

// NextAction returns the single forward transition available to role on an
// order in the given status, or false when no action is available. Terminal
// statuses never yield an action for any role.
func NextAction(role Role, current Status) (Action, bool) {
	if current.IsTerminal() {
		return Action{}, false
	}
	action, ok := transitionTable[roleTransition{role, current}]
	return action, ok
}

// CancelAction returns the cancellation available to any role on a
// non-terminal order. Cancellation always requires confirmation and a
// reason; an empty reason triggers a secondary confirmation upstream.
func CancelAction(current Status) (Action, bool) {
	if current.IsTerminal() {
		return Action{}, false
	}
	return Action{Target: StatusCancelled, RequiresConfirmation: true, RequiresReason: true}, true
}

// AdminTargets lists the statuses an admin may set directly on an order in
// the given status. The backend stays authoritative over legality; the
// client only refuses to originate transitions from terminal statuses.
// Terminal targets carry a confirmation requirement.
func AdminTargets(current Status) []Action {
	if current.IsTerminal() {
		return nil
	}

	var actions []Action
	for _, s := range AllStatuses() {
		if s == current {
			continue
		}
		actions = append(actions, Action{
			Target:               s,
			RequiresConfirmation: s.IsTerminal(),
			RequiresReason:       s == StatusCancelled,
		})
	}
	return actions
}
