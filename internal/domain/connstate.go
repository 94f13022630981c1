package domain

// ConnState is the coarse health of one venue connection.
type ConnState string

const (
	// ConnConnected means the last probe or fetch succeeded.
	ConnConnected ConnState = "connected"
	// ConnConnecting means a probe is in flight and no verdict exists yet.
	ConnConnecting ConnState = "connecting"
	// ConnDisconnected means the venue refused or timed out.
	ConnDisconnected ConnState = "disconnected"
	// ConnError means the venue answered with a protocol-level failure.
	ConnError ConnState = "error"
)

// String returns the string representation of ConnState.
func (s ConnState) String() string {
	return string(s)
}

// IsValid checks if the connection state is a valid value.
func (s ConnState) IsValid() bool {
	switch s {
	case ConnConnected, ConnConnecting, ConnDisconnected, ConnError:
		return true
	}
	return false
}

// Healthy reports whether the state allows serving fresh data.
func (s ConnState) Healthy() bool {
	return s == ConnConnected
}
