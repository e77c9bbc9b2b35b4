package rtmp

const (
	Version          = 3
	HandshakeSize    = 1536
	DefaultChunkSize = 128
	MaxChunkSize     = 10485760

	// basic header (3) + type 0 message header (11) + extended timestamp (4)
	MaxChunkHeader = 18

	FlvTimestampMax = 0xFFFFFF

	// inBytes wraps here so the ack sequence stays in 32 bits
	maxInBytes = 0xf0000000
)

const (
	csidControl = 2
	msidControl = 0
)

const (
	msgtypeidSetChunkSize     = 1
	msgtypeidAbort            = 2
	msgtypeidAck              = 3
	msgtypeidUserControl      = 4
	msgtypeidWindowAckSize    = 5
	msgtypeidSetPeerBandwidth = 6
	msgtypeidEdge             = 7
	msgtypeidAudioMsg         = 8
	msgtypeidVideoMsg         = 9
	msgtypeidDataMsgAMF3      = 15
	msgtypeidSharedObjAMF3    = 16
	msgtypeidCommandMsgAMF3   = 17
	msgtypeidDataMsgAMF0      = 18
	msgtypeidSharedObjAMF0    = 19
	msgtypeidCommandMsgAMF0   = 20
	msgtypeidAggregate        = 22

	msgtypeidMax = msgtypeidAggregate
)

const (
	eventtypeStreamBegin      = 0
	eventtypeStreamEOF        = 1
	eventtypeStreamDry        = 2
	eventtypeSetBufferLength  = 3
	eventtypeStreamIsRecorded = 4
	eventtypePingRequest      = 6
	eventtypePingResponse     = 7
)

// SetPeerBandwidth limit types
const (
	LimitHard    = 0
	LimitSoft    = 1
	LimitDynamic = 2
)

var msgTypeNames = [...]string{
	"?",
	"chunk_size",
	"abort",
	"ack",
	"user",
	"ack_size",
	"bandwidth",
	"edge",
	"audio",
	"video",
	"?", "?", "?", "?", "?",
	"amf3_meta",
	"amf3_shared",
	"amf3_cmd",
	"amf_meta",
	"amf_shared",
	"amf_cmd",
	"?",
	"aggregate",
}

var userEventNames = [...]string{
	"stream_begin",
	"stream_eof",
	"stream_dry",
	"set_buflen",
	"recorded",
	"?",
	"ping_request",
	"ping_response",
}

// MessageTypeName returns a short name for an RTMP message type.
func MessageTypeName(typ uint8) string {
	if int(typ) < len(msgTypeNames) {
		return msgTypeNames[typ]
	}
	return "?"
}

// UserEventName returns a short name for a user control event type.
func UserEventName(evt uint16) string {
	if int(evt) < len(userEventNames) {
		return userEventNames[evt]
	}
	return "?"
}
