package rtmp

import (
	"github.com/bugVanisher/rtmpd/arena"
	"github.com/bugVanisher/rtmpd/protocol/common"
)

//go:generate mockgen -source=hook.go -destination=mock_hook_test.go -package=rtmp

// Hook is notified about session lifecycle. Calls come from the reactor
// goroutine and must not block.
type Hook interface {
	// OnConnect runs when a connection is accepted. An error rejects it.
	OnConnect(info common.Info) error
	OnHandshakeDone(info common.Info)
	// OnDisconnect runs exactly once per session.
	OnDisconnect(info common.Info)
}

// Handler receives every reassembled message that is not a protocol control
// message. in is only valid during the call. Returning an error closes the
// session.
type Handler interface {
	OnMessage(s *Session, h Header, in arena.Chain) error
}
