package store

// Connection event kinds.
const (
	ConnectionAttached = "attach"
	ConnectionDetached = "detach"
)

// ConnectionEvent records a peer attaching or detaching.
type ConnectionEvent struct {
	Session string
	Seq     int64
	ConnID  uint64
	Event   string
}

// CommandEvent records one state change of a command.
type CommandEvent struct {
	Session   string
	Seq       int64
	CommandID string
	Name      string
	Arg       string
	ConnID    uint64 // 0 while unbound
	State     string
	Result    bool
	Reason    string // cancel reason, empty for replies
}

// DeliveryEvent records a peer acknowledging a snapshot version.
type DeliveryEvent struct {
	Session string
	Seq     int64
	ConnID  uint64
	Version uint64
}
