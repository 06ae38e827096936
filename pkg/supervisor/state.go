package supervisor

// State is the lifecycle state of the supervised process.
type State string

const (
	// StateIdle means no process is running and none will be launched.
	StateIdle State = "idle"

	// StateLaunching means the process is being started.
	StateLaunching State = "launching"

	// StateRunning means the process is alive.
	StateRunning State = "running"

	// StateTerminating means the process was asked to exit.
	StateTerminating State = "terminating"

	// StateCrashed means the process exited on its own or failed to start.
	StateCrashed State = "crashed"

	// StateBackoff means the supervisor is waiting before a relaunch.
	StateBackoff State = "backoff"
)

// String implements fmt.Stringer.
func (s State) String() string { return string(s) }

// States lists every state, in lifecycle order.
var States = []State{StateIdle, StateLaunching, StateRunning, StateTerminating, StateCrashed, StateBackoff}
