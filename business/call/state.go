package call

type State int32

const (
	Connecting State = iota
	Active
	Finalizing
	Closed
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "CONNECTING"
	case Active:
		return "ACTIVE"
	case Finalizing:
		return "FINALIZING"
	case Closed:
		return "CLOSED"
	}
	return "UNKNOWN"
}
