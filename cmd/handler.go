package cmd

import (
	"github.com/bugVanisher/rtmpd/arena"
	"github.com/bugVanisher/rtmpd/media/protocol/rtmp"
	"github.com/rs/zerolog/log"
)

// messageLogger is the default message handler: it only logs what arrives.
type messageLogger struct{}

func (messageLogger) OnMessage(s *rtmp.Session, h rtmp.Header, in arena.Chain) error {
	log.Debug().
		Uint64("session", s.ID()).
		Str("type", rtmp.MessageTypeName(h.Type)).
		Uint32("csid", h.Csid).
		Uint32("msid", h.Msid).
		Uint32("timestamp", h.Timestamp).
		Int("len", in.Len()).
		Msg("[rtmp] message")
	return nil
}
