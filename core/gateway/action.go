package gateway

import "fmt"

// Action identifies the bootstrap step a tagged request carries. The set is
// closed: dispatch switches over it exhaustively, and an unrecognized tag is
// rejected at parse time instead of falling through to passthrough.
type Action uint8

const (
	// ActionNone is steady-state passthrough.
	ActionNone Action = iota
	// ActionStartLogin initiates the login handshake.
	ActionStartLogin
	// ActionLogin confirms the handshake and mints a session.
	ActionLogin
	// ActionSwitchAccount signals the frontend to re-fetch account info.
	ActionSwitchAccount
)

// ParseAction maps the inbound action tag to an Action. The empty string is
// passthrough.
func ParseAction(tag string) (Action, error) {
	switch tag {
	case "":
		return ActionNone, nil
	case "start_login":
		return ActionStartLogin, nil
	case "login":
		return ActionLogin, nil
	case "switch_account":
		return ActionSwitchAccount, nil
	default:
		return ActionNone, fmt.Errorf("%w: %q", ErrUnknownAction, tag)
	}
}

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionStartLogin:
		return "start_login"
	case ActionLogin:
		return "login"
	case ActionSwitchAccount:
		return "switch_account"
	default:
		return fmt.Sprintf("Action(%d)", uint8(a))
	}
}
