//go:build !(linux || darwin)

package serialport

import (
	"errors"
	"time"
)

func openTerm(string, int, time.Duration) (Port, error) {
	return nil, errors.New("serial driver \"term\" is only available on unix systems")
}
