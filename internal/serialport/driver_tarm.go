package serialport

import (
	"time"

	tarm "github.com/tarm/serial"
)

func openTarm(device string, baud int, poll time.Duration) (Port, error) {
	cfg := &tarm.Config{
		Name:        device,
		Baud:        baud,
		ReadTimeout: poll,
		Size:        8,
		Parity:      tarm.ParityNone,
		StopBits:    tarm.Stop1,
	}
	p, err := tarm.OpenPort(cfg)
	if err != nil {
		return nil, err
	}
	_ = p.Flush()
	return timeoutReader{p}, nil
}
