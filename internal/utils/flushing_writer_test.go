package utils_test

import (
	"bufio"
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/pilot/internal/utils"
)

type failingFlushWriter struct {
	bytes.Buffer
}

func (writer *failingFlushWriter) Flush() error {
	return errors.New("terminal detached")
}

func TestFlushingWriterPushesBufferedOutput(testInstance *testing.T) {
	destination := &bytes.Buffer{}
	buffered := bufio.NewWriterSize(destination, 4096)
	writer := utils.NewFlushingWriter(buffered)

	for _, line := range []string{"> build\n", "build: compiling\n", "finished build\n"} {
		bytesWritten, writeError := writer.Write([]byte(line))
		require.NoError(testInstance, writeError)
		require.Equal(testInstance, len(line), bytesWritten)
		require.Equal(testInstance, 0, buffered.Buffered())
	}
	require.Equal(testInstance, "> build\nbuild: compiling\nfinished build\n", destination.String())
}

func TestFlushingWriterReportsFlushFailure(testInstance *testing.T) {
	target := &failingFlushWriter{}
	writer := utils.NewFlushingWriter(target)

	bytesWritten, writeError := writer.Write([]byte("> test\n"))
	require.EqualError(testInstance, writeError, "terminal detached")
	require.Equal(testInstance, 7, bytesWritten)
	require.Equal(testInstance, "> test\n", target.String())
}

func TestFlushingWriterKeepsPlainWriters(testInstance *testing.T) {
	plain := &bytes.Buffer{}
	require.Same(testInstance, plain, utils.NewFlushingWriter(plain))
}
