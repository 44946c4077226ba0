package msp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"go.bug.st/serial"
)

const defaultSerialReadTimeout = 300 * time.Millisecond

// SerialLink serves the protocol on a serial port, typically a radio
// modem carrying configurator traffic.
type SerialLink struct {
	portName   string
	baudRate   int
	dispatcher *Dispatcher
	log        *slog.Logger

	mu      sync.Mutex
	port    serial.Port
	writeMu sync.Mutex
}

func NewSerialLink(portName string, baudRate int, dispatcher *Dispatcher, logger *slog.Logger) *SerialLink {
	if logger == nil {
		logger = slog.Default()
	}

	return &SerialLink{
		portName:   portName,
		baudRate:   baudRate,
		dispatcher: dispatcher,
		log:        logger.With("component", "msp-serial", "port", portName),
	}
}

func (l *SerialLink) Open() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.port != nil {
		return nil
	}
	if l.portName == "" {
		return errors.New("serial port is empty")
	}
	if l.baudRate <= 0 {
		return fmt.Errorf("invalid serial baud rate: %d", l.baudRate)
	}

	port, err := serial.Open(l.portName, &serial.Mode{BaudRate: l.baudRate})
	if err != nil {
		return fmt.Errorf("open serial port %q: %w", l.portName, err)
	}
	if err := port.SetReadTimeout(defaultSerialReadTimeout); err != nil {
		_ = port.Close()

		return fmt.Errorf("set serial read timeout: %w", err)
	}
	l.port = port
	l.log.Info("serial link open", "baud", l.baudRate)

	return nil
}

func (l *SerialLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.port == nil {
		return nil
	}
	err := l.port.Close()
	l.port = nil

	return err
}

// Serve answers requests until ctx is done or the port fails. The read
// timeout keeps the loop responsive to cancellation.
func (l *SerialLink) Serve(ctx context.Context) error {
	port, err := l.currentPort()
	if err != nil {
		return err
	}

	for {
		req, err := ReadFrame(func(buf []byte) error {
			return l.readFull(ctx, port, buf)
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, ErrChecksumMismatch) {
				l.log.Warn("dropping frame", "error", err)

				continue
			}

			return fmt.Errorf("serial read: %w", err)
		}

		reply, ok := l.dispatcher.Handle(ctx, req)
		if !ok {
			continue
		}

		data, err := EncodeFrame(reply)
		if err != nil {
			l.log.Warn("encode reply failed", "cmd", reply.Cmd, "error", err)

			continue
		}
		if err := l.writeFrame(ctx, port, data); err != nil {
			if ctx.Err() != nil {
				return nil
			}

			return fmt.Errorf("serial write: %w", err)
		}
	}
}

func (l *SerialLink) currentPort() (serial.Port, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.port == nil {
		return nil, errors.New("serial link is not open")
	}

	return l.port, nil
}

func (l *SerialLink) writeFrame(ctx context.Context, w io.Writer, data []byte) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	return writeFull(ctx, w, data)
}

// readFull fills buf, polling ctx between reads. A zero-byte read means
// the port timed out; the loop retries until data arrives or ctx ends.
func (l *SerialLink) readFull(ctx context.Context, r io.Reader, buf []byte) error {
	if len(buf) == 0 {
		return nil
	}

	read := 0
	for read < len(buf) {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.Read(buf[read:])
		if err != nil {
			return err
		}
		if n == 0 {
			continue
		}
		read += n
	}

	return nil
}

func writeFull(ctx context.Context, w io.Writer, buf []byte) error {
	written := 0
	for written < len(buf) {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := w.Write(buf[written:])
		if err != nil {
			return err
		}
		if n == 0 {
			continue
		}
		written += n
	}

	return nil
}
