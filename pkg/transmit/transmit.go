// Package transmit delivers the final decision label to the remote bin
// controller as a single UDP datagram. Fire-and-forget: no ack is
// awaited, and callers treat a send failure as a warning, not a failed
// run.
package transmit

import (
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/teslashibe/go-sorter/internal/log"
)

// ErrSend wraps socket-level delivery failures.
var ErrSend = errors.New("transmit: send failed")

// Sender sends labels to one fixed endpoint.
type Sender struct {
	addr string
}

// NewSender creates a Sender for the given endpoint.
func NewSender(host string, port int) *Sender {
	return &Sender{addr: net.JoinHostPort(host, strconv.Itoa(port))}
}

// Send delivers the label as raw UTF-8 bytes, no framing or terminator;
// the receiver sees exactly the class label.
func (s *Sender) Send(label string) error {
	conn, err := net.Dial("udp", s.addr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSend, err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(label)); err != nil {
		return fmt.Errorf("%w: %v", ErrSend, err)
	}

	log.Debug("result sent", "label", label, "endpoint", s.addr)
	return nil
}
