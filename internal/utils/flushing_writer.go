package utils

import "io"

type flusher interface {
	Flush() error
}

type flushingWriter struct {
	target io.Writer
	flush  flusher
}

// NewFlushingWriter wraps writer so every write is followed by a flush when the
// writer supports flushing. Other writers are returned unchanged.
func NewFlushingWriter(writer io.Writer) io.Writer {
	flushableWriter, flushable := writer.(flusher)
	if !flushable {
		return writer
	}
	return flushingWriter{target: writer, flush: flushableWriter}
}

func (writer flushingWriter) Write(data []byte) (int, error) {
	bytesWritten, writeError := writer.target.Write(data)
	if writeError != nil {
		return bytesWritten, writeError
	}
	return bytesWritten, writer.flush.Flush()
}
