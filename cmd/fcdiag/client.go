package main

import (
	"fmt"
	"net"
	"time"

	"fccore/internal/msp"
)

// Command IDs this tool requests. Values are wire protocol contract.
const (
	cmdFCVariant  uint16 = 2
	cmdFCVersion  uint16 = 3
	cmdBoxNames   uint16 = 116
	cmdBoxIDs     uint16 = 119
	cmdINAVStatus uint16 = 0x2000
)

const requestTimeout = 5 * time.Second

// client is a minimal MSP requester over one TCP connection.
type client struct {
	conn net.Conn
}

func dial(host string) (*client, error) {
	conn, err := net.DialTimeout("tcp", host, requestTimeout)
	if err != nil {
		return nil, fmt.Errorf("connect %q: %w", host, err)
	}

	return &client{conn: conn}, nil
}

func (c *client) Close() error {
	return c.conn.Close()
}

// request sends one v2 request and waits for the matching reply.
func (c *client) request(cmd uint16) ([]byte, error) {
	data, err := msp.EncodeFrame(msp.Frame{
		Version:   msp.V2,
		Direction: msp.DirectionRequest,
		Cmd:       cmd,
	})
	if err != nil {
		return nil, err
	}

	if err := c.conn.SetDeadline(time.Now().Add(requestTimeout)); err != nil {
		return nil, fmt.Errorf("set deadline: %w", err)
	}
	if _, err := c.conn.Write(data); err != nil {
		return nil, fmt.Errorf("write request %d: %w", cmd, err)
	}

	for {
		reply, err := msp.ReadFrameFrom(c.conn)
		if err != nil {
			return nil, fmt.Errorf("read reply for %d: %w", cmd, err)
		}
		if reply.Cmd != cmd {
			continue
		}
		if reply.Direction == msp.DirectionError {
			return nil, fmt.Errorf("controller rejected command %d", cmd)
		}

		return reply.Payload, nil
	}
}
