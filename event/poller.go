package event

import "time"

// Interest selects the readiness a registration waits for.
type Interest uint8

const (
	InterestRead Interest = 1 << iota
	InterestWrite
)

func (in Interest) String() string {
	switch in {
	case InterestRead:
		return "read"
	case InterestWrite:
		return "write"
	case InterestRead | InterestWrite:
		return "read|write"
	}
	return "none"
}

// PollEvent is one readiness notification. Token is the value given to Add.
type PollEvent struct {
	Token    uint64
	Readable bool
	Writable bool
	Error    bool
}

// Poller is the readiness multiplexer under the Reactor. Registrations are
// edge-triggered.
type Poller interface {
	Add(fd int, token uint64, in Interest) error
	Modify(fd int, token uint64, in Interest) error
	Delete(fd int) error
	// Wait blocks for at most timeout. An interrupted wait returns 0 events
	// and no error.
	Wait(events []PollEvent, timeout time.Duration) (int, error)
	Close() error
}
