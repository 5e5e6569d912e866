package cast

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmylchreest/castwave/internal/cast/protocol"
)

// connection wraps a single TLS socket to a receiver, serializing writes
// and providing JSON-aware send/receive helpers on top of the raw
// CastMessage framing. Writes are mutex-guarded since the heartbeat
// goroutine and the state machine both write to the same socket.
type connection struct {
	tlsConn   *tls.Conn
	writeMu   sync.Mutex
	requestID atomic.Int32
}

// dial opens a TLS connection to the receiver's Cast control port,
// certificate verification disabled since receivers present self-signed
// certs.
func dial(ctx context.Context, addr string, timeout time.Duration) (*connection, error) {
	dialer := &net.Dialer{Timeout: timeout}
	rawConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	tlsConn := tls.Client(rawConn, &tls.Config{InsecureSkipVerify: true}) //nolint:gosec // Cast receivers use self-signed certs.
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		rawConn.Close()
		return nil, err
	}

	return &connection{tlsConn: tlsConn}, nil
}

func (c *connection) Close() error {
	return c.tlsConn.Close()
}

func (c *connection) nextRequestID() int {
	return int(c.requestID.Add(1))
}

// send JSON-encodes payload and writes it as a CastMessage frame.
func (c *connection) send(namespace, destinationID string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	msg := protocol.Message{
		ProtocolVersion: 0,
		SourceID:        protocol.SenderID,
		DestinationID:   destinationID,
		Namespace:       namespace,
		PayloadType:     protocol.PayloadTypeString,
		PayloadUTF8:     string(body),
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return protocol.WriteFrame(c.tlsConn, protocol.Marshal(msg))
}

// receive reads and decodes the next frame as a CastMessage.
func (c *connection) receive() (protocol.Message, error) {
	raw, err := protocol.ReadFrame(c.tlsConn)
	if err != nil {
		return protocol.Message{}, err
	}
	return protocol.Unmarshal(raw)
}

// awaitOnNamespace reads frames until one arrives on namespace whose JSON
// "type" field is in wantTypes, or deadline elapses. Frames on other
// namespaces, or of uninteresting types, are discarded. into must be a
// pointer to the struct the matched type's payload should be decoded into.
func (c *connection) awaitOnNamespace(namespace string, wantTypes []string, deadline time.Time, into any) (string, error) {
	if err := c.tlsConn.SetReadDeadline(deadline); err != nil {
		return "", fmt.Errorf("setting read deadline: %w", err)
	}
	defer c.tlsConn.SetReadDeadline(time.Time{})

	for {
		msg, err := c.receive()
		if err != nil {
			return "", err
		}
		if msg.Namespace != namespace {
			continue
		}

		var generic genericResponse
		if err := json.Unmarshal([]byte(msg.PayloadUTF8), &generic); err != nil {
			continue
		}

		for _, want := range wantTypes {
			if generic.Type == want {
				if into != nil {
					if err := json.Unmarshal([]byte(msg.PayloadUTF8), into); err != nil {
						return "", fmt.Errorf("decoding %s payload: %w", generic.Type, err)
					}
				}
				return generic.Type, nil
			}
		}
	}
}
