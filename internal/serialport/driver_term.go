//go:build linux || darwin

package serialport

import (
	"time"

	"github.com/pkg/term"
)

func openTerm(device string, baud int, poll time.Duration) (Port, error) {
	t, err := term.Open(device, term.Speed(baud), term.RawMode)
	if err != nil {
		return nil, err
	}
	if err := t.SetReadTimeout(poll); err != nil {
		_ = t.Close()
		return nil, err
	}
	_ = t.Flush()
	return timeoutReader{t}, nil
}
