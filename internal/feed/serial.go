package feed

import (
	"fmt"
	"io"

	"github.com/jacobsa/go-serial/serial"
)

// OpenSerial opens a GPS receiver port in 8N1 mode
func OpenSerial(port string, baud int) (io.ReadWriteCloser, error) {
	opts := serialOptions(port, baud)
	rwc, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", port, err)
	}
	return rwc, nil
}

func serialOptions(port string, baud int) serial.OpenOptions {
	return serial.OpenOptions{
		PortName:              port,
		BaudRate:              uint(baud),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
}
