package infra

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var initPC = caller()

func caller() Frame {
	var PCs [3]uintptr
	n := runtime.Callers(2, PCs[:])
	frames := runtime.CallersFrames(PCs[:n])
	frame, _ := frames.Next()
	return Frame(frame.PC)
}

func TestFrameFormat(t *testing.T) {
	testcases := []struct {
		Frame
		format string
		check  func(res string) bool
	}{
		{
			initPC,
			"%s",
			func(res string) bool { return res == "err_stack_test.go" },
		},
		{
			initPC,
			"%+s",
			func(res string) bool {
				return strings.HasPrefix(res, "github.com/benz9527/xsymtab/lib/infra.init\n\t") &&
					strings.HasSuffix(res, "err_stack_test.go")
			},
		},
		{
			initPC,
			"%n",
			func(res string) bool { return res == "init" },
		},
		{
			initPC,
			"%d",
			func(res string) bool { return res == "18" },
		},
		{
			initPC,
			"%v",
			func(res string) bool { return res == "err_stack_test.go:18" },
		},
		{
			Frame(0),
			"%s",
			func(res string) bool { return res == "unknownFile" },
		},
		{
			Frame(0),
			"%n",
			func(res string) bool { return res == "unknownFunc" },
		},
		{
			Frame(0),
			"%d",
			func(res string) bool { return res == "0" },
		},
	}

	for _, tc := range testcases {
		frameRes := fmt.Sprintf(tc.format, tc.Frame)
		require.Truef(t, tc.check(frameRes), "format %s, got %q", tc.format, frameRes)
	}
}

func TestFrameMarshalText(t *testing.T) {
	_bytes, err := initPC.MarshalText()
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(_bytes, []byte("github.com/benz9527/xsymtab/lib/infra.init ")))
	require.True(t, bytes.HasSuffix(_bytes, []byte("err_stack_test.go:18")))

	_bytes, err = Frame(0).MarshalText()
	require.NoError(t, err)
	require.Equal(t, []byte("unknownFrame"), _bytes)
}

func TestFrameMarshalJSON(t *testing.T) {
	_bytes, err := json.Marshal(initPC)
	require.NoError(t, err)
	res := map[string]string{}
	require.NoError(t, json.Unmarshal(_bytes, &res))
	require.Equal(t, "github.com/benz9527/xsymtab/lib/infra.init", res["func"])
	require.True(t, strings.HasSuffix(res["fileAndLine"], "err_stack_test.go:18"))

	_bytes, err = json.Marshal(Frame(0))
	require.NoError(t, err)
	require.Equal(t, []byte("{\"frame\":\"unknownFrame\"}"), _bytes)
}

var errTestCause = errors.New("test cause")

func TestErrorStack_Wrap(t *testing.T) {
	require.Nil(t, WrapErrorStack(nil))
	require.Nil(t, WrapErrorStackWithMessage(nil, "nothing"))

	err := WrapErrorStack(errTestCause)
	require.ErrorIs(t, err, errTestCause)
	require.Equal(t, "test cause", err.Error())
	var es ErrorStack
	require.ErrorAs(t, err, &es)

	// Wrapping twice keeps the original stack.
	require.Same(t, err, WrapErrorStack(err))

	err = WrapErrorStackWithMessage(err, "load snapshot")
	require.ErrorIs(t, err, errTestCause)
	require.Equal(t, "load snapshot; test cause", err.Error())

	err = NewErrorStack("plain")
	require.Equal(t, "plain", fmt.Sprintf("%v", err))
	require.Contains(t, fmt.Sprintf("%+v", err), "err_stack_test.go")
}

func TestErrorStack_ZapInline(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	err := WrapErrorStackWithMessage(errTestCause, "failed")
	es, ok := err.(ErrorStack)
	require.True(t, ok)
	logger.Error("zap inline", zap.Inline(es))

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, []any{"failed", "test cause"}, fields["errors"])
	require.NotEmpty(t, fields["errorStack"])
}
