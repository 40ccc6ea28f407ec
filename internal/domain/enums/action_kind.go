package enums

type ActionKind string

const (
	ActionWarn          ActionKind = "warn"
	ActionStrike        ActionKind = "strike"
	ActionBan           ActionKind = "ban"
	ActionDeleteMessage ActionKind = "delete_message"
	ActionStrikeRemoved ActionKind = "strike_removed"
)

// Disciplinary reports whether the action counts against the user when
// building appeal history.
func (k ActionKind) Disciplinary() bool {
	switch k {
	case ActionWarn, ActionStrike, ActionBan:
		return true
	}
	return false
}
