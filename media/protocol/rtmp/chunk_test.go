package rtmp

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunk_ReceiveMessageSizes(t *testing.T) {
	for _, size := range []int{0, DefaultChunkSize - 1, DefaultChunkSize, DefaultChunkSize + 1, 10000} {
		t.Run(fmt.Sprintf("len=%d", size), func(t *testing.T) {
			var got []testMsg
			p := newTestPeer(t, WithHandler(collect(&got)))
			p.activate()

			payload := pattern(size)
			p.send(encodeMessage(5, 1000, msgtypeidVideoMsg, 1, payload, DefaultChunkSize))

			require.Equal(t, 1, len(got))
			require.Equal(t, uint32(5), got[0].Csid)
			require.Equal(t, uint32(1000), got[0].Timestamp)
			require.Equal(t, uint32(size), got[0].Mlen)
			require.Equal(t, uint8(msgtypeidVideoMsg), got[0].Type)
			require.Equal(t, uint32(1), got[0].Msid)
			require.Equal(t, payload, got[0].Payload)
			require.Equal(t, StateActive, p.s.State())
		})
	}
}

func TestChunk_DrainsEverySegment(t *testing.T) {
	var got []testMsg
	p := newTestPeer(t, WithHandler(collect(&got)), WithReadBufferSize(64))
	p.activate()

	var data []byte
	for i := 0; i < 5; i++ {
		data = append(data, encodeMessage(4, uint32(i*40), msgtypeidAudioMsg, 1, pattern(300), DefaultChunkSize)...)
	}
	p.sock.FeedChunked(data, 7)
	p.readable()

	require.Equal(t, 0, p.sock.Pending())
	require.Equal(t, 5, len(got))
	for i, m := range got {
		require.Equal(t, uint32(i*40), m.Timestamp)
		require.Equal(t, pattern(300), m.Payload)
	}
}

func TestChunk_HeaderCompression(t *testing.T) {
	var got []testMsg
	p := newTestPeer(t, WithHandler(collect(&got)))
	p.activate()

	var data []byte
	data = append(data, chunkHeader(0, 6, 1000, 4, msgtypeidAudioMsg, 1)...)
	data = append(data, 1, 2, 3, 4)
	// type 1: delta and new length
	data = append(data, chunkHeader(1, 6, 20, 2, msgtypeidAudioMsg, 0)...)
	data = append(data, 5, 6)
	// type 2: delta only
	data = append(data, chunkHeader(2, 6, 40, 0, 0, 0)...)
	data = append(data, 7, 8)
	// type 3 starting a message reuses the previous delta
	data = append(data, basicHeader(3, 6)...)
	data = append(data, 9, 10)
	p.send(data)

	require.Equal(t, 4, len(got))
	require.Equal(t, uint32(1000), got[0].Timestamp)
	require.Equal(t, uint32(1020), got[1].Timestamp)
	require.Equal(t, uint32(2), got[1].Mlen)
	require.Equal(t, uint32(1060), got[2].Timestamp)
	require.Equal(t, uint32(1100), got[3].Timestamp)
	require.Equal(t, []byte{9, 10}, got[3].Payload)
	for _, m := range got {
		require.Equal(t, uint32(1), m.Msid)
	}
}

func TestChunk_TypeThreeAfterTypeZeroKeepsTimestamp(t *testing.T) {
	var got []testMsg
	p := newTestPeer(t, WithHandler(collect(&got)))
	p.activate()

	data := encodeMessage(6, 500, msgtypeidDataMsgAMF0, 1, []byte{1, 2}, DefaultChunkSize)
	data = append(data, basicHeader(3, 6)...)
	data = append(data, 3, 4)
	p.send(data)

	require.Equal(t, 2, len(got))
	require.Equal(t, uint32(500), got[1].Timestamp)
	require.Equal(t, []byte{3, 4}, got[1].Payload)
}

func TestChunk_ExtendedTimestamp(t *testing.T) {
	var got []testMsg
	p := newTestPeer(t, WithHandler(collect(&got)))
	p.activate()

	payload := pattern(300)
	p.send(encodeMessage(4, 0x01000000, msgtypeidVideoMsg, 1, payload, DefaultChunkSize))

	require.Equal(t, 1, len(got))
	require.Equal(t, uint32(0x01000000), got[0].Timestamp)
	require.Equal(t, payload, got[0].Payload)

	// the flag sticks: a type 3 message start carries the delta extended
	data := basicHeader(3, 4)
	data = append(data, u32be(100)...)
	data = append(data, pattern(300)[:128]...)
	data = append(data, basicHeader(3, 4)...)
	data = append(data, u32be(100)...)
	data = append(data, pattern(300)[128:256]...)
	data = append(data, basicHeader(3, 4)...)
	data = append(data, u32be(100)...)
	data = append(data, pattern(300)[256:]...)
	p.send(data)

	require.Equal(t, 2, len(got))
	require.Equal(t, uint32(0x01000000+100), got[1].Timestamp)
	require.Equal(t, payload, got[1].Payload)
}

func TestChunk_ChunkStreamIDForms(t *testing.T) {
	var got []testMsg
	p := newTestPeer(t, WithHandler(collect(&got)), WithMaxStreams(1024))
	p.activate()

	for _, csid := range []uint32{3, 63, 64, 70, 319, 320, 400, 1023} {
		p.send(encodeMessage(csid, 0, msgtypeidAudioMsg, 1, pattern(200), DefaultChunkSize))
	}
	require.Equal(t, 8, len(got))
	for i, csid := range []uint32{3, 63, 64, 70, 319, 320, 400, 1023} {
		require.Equal(t, csid, got[i].Csid)
		require.Equal(t, pattern(200), got[i].Payload)
	}
}

func TestChunk_CsidOutOfRange(t *testing.T) {
	p := newTestPeer(t, WithMaxStreams(8))
	p.activate()

	p.send(encodeMessage(8, 0, msgtypeidAudioMsg, 1, []byte{1}, DefaultChunkSize))
	require.Equal(t, StateClosed, p.s.State())
}

func TestChunk_MessageTooLong(t *testing.T) {
	p := newTestPeer(t, WithMaxMessage(1000))
	p.activate()

	p.send(chunkHeader(0, 3, 0, 1001, msgtypeidVideoMsg, 1))
	require.Equal(t, StateClosed, p.s.State())
}

func TestChunk_FullHeaderInsideMessage(t *testing.T) {
	p := newTestPeer(t)
	p.activate()

	data := chunkHeader(0, 3, 0, 300, msgtypeidVideoMsg, 1)
	data = append(data, pattern(128)...)
	data = append(data, chunkHeader(1, 3, 0, 300, msgtypeidVideoMsg, 0)...)
	p.send(data)
	require.Equal(t, StateClosed, p.s.State())
}

func TestChunk_InterleavedStreams(t *testing.T) {
	var got []testMsg
	p := newTestPeer(t, WithHandler(collect(&got)))
	p.activate()

	audio := pattern(200)
	video := pattern(150)
	var data []byte
	data = append(data, chunkHeader(0, 4, 10, 200, msgtypeidAudioMsg, 1)...)
	data = append(data, audio[:128]...)
	data = append(data, chunkHeader(0, 6, 20, 150, msgtypeidVideoMsg, 1)...)
	data = append(data, video[:128]...)
	data = append(data, basicHeader(3, 4)...)
	data = append(data, audio[128:]...)
	data = append(data, basicHeader(3, 6)...)
	data = append(data, video[128:]...)
	p.send(data)

	require.Equal(t, 2, len(got))
	require.Equal(t, audio, got[0].Payload)
	require.Equal(t, uint32(10), got[0].Timestamp)
	require.Equal(t, video, got[1].Payload)
	require.Equal(t, uint32(20), got[1].Timestamp)
}

func TestChunk_SetChunkSize(t *testing.T) {
	var got []testMsg
	p := newTestPeer(t, WithHandler(collect(&got)))
	p.activate()

	p.send(controlMessage(msgtypeidSetChunkSize, u32be(4096)))
	require.Equal(t, uint32(4096), p.s.InChunkSize())

	payload := pattern(10000)
	p.send(encodeMessage(4, 0, msgtypeidVideoMsg, 1, payload, 4096))
	require.Equal(t, 1, len(got))
	require.Equal(t, payload, got[0].Payload)
}

func TestChunk_SetChunkSizeOutOfRangeIgnored(t *testing.T) {
	var got []testMsg
	p := newTestPeer(t, WithHandler(collect(&got)))
	p.activate()

	p.send(controlMessage(msgtypeidSetChunkSize, u32be(MaxChunkSize+1)))
	require.Equal(t, StateActive, p.s.State())
	require.Equal(t, uint32(DefaultChunkSize), p.s.InChunkSize())

	p.send(controlMessage(msgtypeidSetChunkSize, u32be(0)))
	require.Equal(t, StateActive, p.s.State())
	require.Equal(t, uint32(DefaultChunkSize), p.s.InChunkSize())

	p.send(encodeMessage(4, 0, msgtypeidAudioMsg, 1, pattern(300), DefaultChunkSize))
	require.Equal(t, 1, len(got))
}

func TestChunk_SetChunkSizeKeepsPartialMessages(t *testing.T) {
	var got []testMsg
	p := newTestPeer(t, WithHandler(collect(&got)))
	p.activate()

	payload := pattern(300)
	data := chunkHeader(0, 4, 0, 300, msgtypeidVideoMsg, 1)
	data = append(data, payload[:128]...)
	data = append(data, controlMessage(msgtypeidSetChunkSize, u32be(256))...)
	data = append(data, basicHeader(3, 4)...)
	data = append(data, payload[128:]...)
	p.send(data)

	require.Equal(t, uint32(256), p.s.InChunkSize())
	require.Equal(t, 1, len(got))
	require.Equal(t, payload, got[0].Payload)

	// buffers of the fresh arena are reused
	p.send(encodeMessage(4, 0, msgtypeidVideoMsg, 1, pattern(600), 256))
	require.Equal(t, 2, len(got))
	require.Equal(t, pattern(600), got[1].Payload)
}

func TestChunk_Abort(t *testing.T) {
	var got []testMsg
	p := newTestPeer(t, WithHandler(collect(&got)))
	p.activate()

	data := chunkHeader(0, 5, 0, 300, msgtypeidVideoMsg, 1)
	data = append(data, pattern(128)...)
	data = append(data, controlMessage(msgtypeidAbort, u32be(5))...)
	data = append(data, encodeMessage(5, 40, msgtypeidVideoMsg, 1, []byte{1, 2, 3}, DefaultChunkSize)...)
	p.send(data)

	require.Equal(t, StateActive, p.s.State())
	require.Equal(t, 1, len(got))
	require.Equal(t, []byte{1, 2, 3}, got[0].Payload)
	require.Equal(t, uint32(40), got[0].Timestamp)
}

func TestChunk_FreeListReuse(t *testing.T) {
	var got []testMsg
	p := newTestPeer(t, WithHandler(collect(&got)))
	p.activate()

	p.send(encodeMessage(4, 0, msgtypeidAudioMsg, 1, pattern(1000), DefaultChunkSize))
	size := p.s.inArena.Size()
	for i := 0; i < 20; i++ {
		p.send(encodeMessage(4, uint32(i), msgtypeidAudioMsg, 1, pattern(1000), DefaultChunkSize))
	}
	require.Equal(t, 21, len(got))
	require.Equal(t, size, p.s.inArena.Size())
}
