package errs

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestCodeAndMsg(t *testing.T) {
	require.Equal(t, int32(0), Code(nil))
	require.Equal(t, Success, Msg(nil))

	require.Equal(t, int32(CodeArenaExhausted), Code(ErrArenaExhausted))
	require.Equal(t, "arena exhausted", Msg(ErrArenaExhausted))

	plain := fmt.Errorf("boom")
	require.Equal(t, int32(CodeUnknown), Code(plain))
	require.Equal(t, "unknown error: boom", Msg(plain))
}

func TestWrapfKeepsCode(t *testing.T) {
	err := Wrapf(ErrSessionClosed, "session %d", 7)
	require.Equal(t, "session 7: session closed", err.Error())
	require.Equal(t, int32(CodeSessionClosed), Code(err))
	require.True(t, errors.Is(err, ErrSessionClosed))
}

func TestNewf(t *testing.T) {
	err := Newf(CodeProtocol, "bad fmt=%d", 5)
	require.Equal(t, "bad fmt=5", err.Error())
	require.Equal(t, int32(CodeProtocol), Code(err))
}
