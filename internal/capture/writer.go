package capture

import (
	"bufio"
	"io"
)

// Writer produces a capture file.
type Writer struct {
	w *bufio.Writer
}

// NewWriter writes the file magic and returns a writer for the records.
func NewWriter(w io.Writer) (*Writer, error) {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(Magic); err != nil {
		return nil, err
	}
	return &Writer{w: bw}, nil
}

// Write appends one record.
func (wr *Writer) Write(rec Record) error {
	b, err := rec.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = wr.w.Write(b)
	return err
}

// Flush writes any buffered data to the underlying writer.
func (wr *Writer) Flush() error {
	return wr.w.Flush()
}
