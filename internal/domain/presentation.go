package domain

// Presentation carries the display attributes of a status. Keeping the
// lookup next to the transition graph keeps rendering and lifecycle from
// drifting apart.
type Presentation struct {
	Label string
	Color string
	Icon  string
}

var presentations = map[Status]Presentation{
	StatusPending:       {Label: "Pending", Color: "amber", Icon: "clock"},
	StatusInPreparation: {Label: "In preparation", Color: "blue", Icon: "flame"},
	StatusReady:         {Label: "Ready", Color: "teal", Icon: "bell"},
	StatusServed:        {Label: "Served", Color: "green", Icon: "tray"},
	StatusCompleted:     {Label: "Completed", Color: "gray", Icon: "check"},
	StatusCancelled:     {Label: "Cancelled", Color: "red", Icon: "cross"},
}

// Present returns the display attributes for s. Unknown statuses fall back
// to the pending presentation, matching the translator's fail-closed rule.
func Present(s Status) Presentation {
	if p, ok := presentations[s]; ok {
		return p
	}
	return presentations[StatusPending]
}

// BoardColumns returns the column projection for a role's board. The data
// layer keeps the full six-state graph; the kitchen board deliberately
// shows ready orders in its served column, which is a view decision only.
func BoardColumns(role Role) []BoardColumn {
	switch role {
	case RoleKitchen:
		return []BoardColumn{
			{Key: "pending", Statuses: []Status{StatusPending}},
			{Key: "in_preparation", Statuses: []Status{StatusInPreparation}},
			{Key: "served", Statuses: []Status{StatusReady, StatusServed}},
		}
	case RoleServer:
		return []BoardColumn{
			{Key: "ready", Statuses: []Status{StatusReady}},
			{Key: "served", Statuses: []Status{StatusServed}},
			{Key: "completed", Statuses: []Status{StatusCompleted}},
		}
	default:
		cols := make([]BoardColumn, 0, len(AllStatuses()))
		for _, s := range AllStatuses() {
			cols = append(cols, BoardColumn{Key: string(s), Statuses: []Status{s}})
		}
		return cols
	}
}

// BoardColumn groups one or more statuses under a single display column.
type BoardColumn struct {
	Key      string
	Statuses []Status
}
