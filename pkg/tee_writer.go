package pkg

import (
	"io"

	"go.uber.org/multierr"
)

// TeeWriter copies each write to every target, log file and stdout for the
// service. A failing target is skipped; its error is joined into the result
// and n counts only the bytes that landed.
type TeeWriter struct {
	targets []io.Writer
}

func NewTeeWriter(targets ...io.Writer) *TeeWriter {
	return &TeeWriter{targets: targets}
}

func (tw *TeeWriter) Targets() int {
	return len(tw.targets)
}

func (tw *TeeWriter) Write(p []byte) (int, error) {
	var (
		total int
		errs  error
	)
	for _, target := range tw.targets {
		n, err := target.Write(p)
		total += n
		errs = multierr.Append(errs, err)
	}
	return total, errs
}
