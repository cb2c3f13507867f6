package client

// Action names the discrete inputs the mode handlers understand. The
// machine only ever asks "is this action held"; how keys and gamepad
// buttons map onto actions belongs to the binary.
type Action string

const (
	ActionUp      Action = "up"
	ActionDown    Action = "down"
	ActionSelect  Action = "select"
	ActionBack    Action = "back"
	ActionCreate  Action = "create"
	ActionLeave   Action = "leave"
	ActionVolUp   Action = "vol-up"
	ActionVolDown Action = "vol-down"
)

// Input is the per-tick view of the keyboard/controller.
type Input interface {
	Pressed(a Action) bool
}

// Actions is a literal Input, used by tests to script frames.
type Actions map[Action]bool

func (s Actions) Pressed(a Action) bool { return s[a] }
