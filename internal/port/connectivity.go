package port

type Edge int

const (
	BecameOnline Edge = iota
	BecameOffline
)

func (e Edge) String() string {
	if e == BecameOnline {
		return "became_online"
	}
	return "became_offline"
}

// ConnectivityMonitor reports network reachability. Online is the current
// state, read synchronously at call time. Events delivers edge transitions;
// BecameOnline is only emitted after the link stayed up for the monitor's
// debounce interval, so a transient flap never reaches consumers.
type ConnectivityMonitor interface {
	Online() bool
	Events() <-chan Edge
}
