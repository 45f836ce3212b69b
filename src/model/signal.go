package model

import "strings"

// Signal is the inbound webhook payload. Action strings are free-form (for
// example "Buy", "Sell", "Exit Buy", "Exit Sell") and are classified by
// substring rather than matched exactly, so alert templates with extra text
// keep working.
type Signal struct {
	Symbol string `json:"symbol"`
	Action string `json:"action"`
	Expiry string `json:"expiry,omitempty"`
	Token  string `json:"signal_token,omitempty"`
}

// ActionClass is the normalized interpretation of a raw action string.
type ActionClass int

const (
	ActionEnterLong ActionClass = iota
	ActionEnterShort
	ActionExitLong
	ActionExitShort
)

// ClassifySignal maps a raw action string to an ActionClass. The "Exit"
// check runs before the Buy/Sell check, so "Exit Buy" is an exit of a long
// rather than an entry.
func ClassifySignal(action string) ActionClass {
	isBuy := strings.Contains(action, "Buy")

	if strings.Contains(action, "Exit") {
		if isBuy {
			return ActionExitLong
		}
		return ActionExitShort
	}

	if isBuy {
		return ActionEnterLong
	}
	return ActionEnterShort
}

// IsExit reports whether the class closes an existing position.
func (c ActionClass) IsExit() bool {
	return c == ActionExitLong || c == ActionExitShort
}

// IsBuy reports whether the class is buy-flavored. For entries this selects
// the trade direction, for exits it selects which leg is being closed.
func (c ActionClass) IsBuy() bool {
	return c == ActionEnterLong || c == ActionExitLong
}

func (c ActionClass) String() string {
	switch c {
	case ActionEnterLong:
		return "enter_long"
	case ActionEnterShort:
		return "enter_short"
	case ActionExitLong:
		return "exit_long"
	case ActionExitShort:
		return "exit_short"
	default:
		return "unknown"
	}
}
