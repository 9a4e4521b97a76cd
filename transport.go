package badezimmer

import (
	"io"
	"net"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const maxRequestFrameSize = 64 * 1024

// CommandHandler answers one actuator command request with either a success
// response or an error, the Go analog of the per-device __init__.py request
// handlers in original_source (lightlamp, sink, ...).
type CommandHandler func(req *ActuatorCommandRequest) *DeviceReply

// Serve accepts TCP connections on addr and answers each framed request with
// handler's reply, the Go analog of tcp.py's handle_request. Serve blocks
// until the listener is closed or ctx-less callers stop it externally; pass
// a *net.TCPListener you already own via ServeListener to control shutdown.
func Serve(addr string, handler CommandHandler, log *logrus.Entry) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrap(err, "listen tcp")
	}
	defer ln.Close()
	return ServeListener(ln, handler, log)
}

// ServeListener runs the accept loop over an already-bound listener, useful
// for callers that need to close the listener from another goroutine.
func ServeListener(ln net.Listener, handler CommandHandler, log *logrus.Entry) error {
	if log == nil {
		log = defaultLogger()
	}
	for {
		conn, err := ln.Accept()
		if err != nil {
			return errors.Wrap(err, "accept")
		}
		go serveConn(conn, handler, log)
	}
}

// serveConn repeatedly reads one framed request, dispatches it, and writes
// one framed reply, per spec.md §4.2, until the peer closes the connection
// or a read fails.
func serveConn(conn net.Conn, handler CommandHandler, log *logrus.Entry) {
	defer conn.Close()

	for {
		raw, err := readFrame(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.WithError(err).Debug("closing connection after read failure")
			}
			return
		}

		reply := handleRequestFrame(raw, handler, log)

		out, err := encodeDeviceReply(reply)
		if err != nil {
			log.WithError(err).Error("failed to encode device reply")
			return
		}
		if _, err := conn.Write(frameBytes(out)); err != nil {
			log.WithError(err).Debug("failed to write device reply")
			return
		}
	}
}

// handleRequestFrame parses one request payload and invokes handler. A
// request carrying no action gets an INVALID_COMMAND error reply; any other
// parse failure, or a nil reply from handler, gets an UNKNOWN-coded error
// reply, per spec.md §4.2/§7.
func handleRequestFrame(raw []byte, handler CommandHandler, log *logrus.Entry) *DeviceReply {
	req, err := decodeActuatorCommandRequest(raw)
	if err != nil {
		log.WithError(err).Warn("received malformed actuator command request")
		code := ErrorCodeUnknown
		if errors.Is(err, ErrInvalidCommand) {
			code = ErrorCodeInvalidCommand
		}
		return &DeviceReply{Error: &ErrorDetails{Code: code, Message: err.Error()}}
	}

	reply := handler(req)
	if reply == nil {
		return &DeviceReply{Error: &ErrorDetails{Code: ErrorCodeUnknown, Message: "handler returned no reply"}}
	}
	return reply
}

// Send frames and sends an actuator command request, trying each address in
// order and returning the first successful reply. It returns ErrNoRoute if
// every address refuses the connection or times out, the Go analog of
// tcp.py's send_request address-list fallback.
func Send(addresses []string, port int, req *ActuatorCommandRequest, timeout time.Duration) (*DeviceReply, error) {
	framed, err := FrameActuatorCommandRequest(req)
	if err != nil {
		return nil, errors.Wrap(err, "encode request")
	}

	var lastErr error
	for _, addr := range addresses {
		reply, err := sendOnce(addr, port, framed, timeout)
		if err != nil {
			lastErr = err
			continue
		}
		return reply, nil
	}
	if lastErr != nil {
		return nil, errors.Wrap(ErrNoRoute, lastErr.Error())
	}
	return nil, ErrNoRoute
}

func sendOnce(addr string, port int, framed []byte, timeout time.Duration) (*DeviceReply, error) {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(addr, strconv.Itoa(port)), timeout)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if deadline := timeoutDeadline(timeout); !deadline.IsZero() {
		conn.SetDeadline(deadline)
	}

	if _, err := conn.Write(framed); err != nil {
		return nil, err
	}

	raw, err := readFrame(conn)
	if err != nil {
		return nil, err
	}
	return decodeDeviceReply(raw)
}

func timeoutDeadline(timeout time.Duration) time.Time {
	if timeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(timeout)
}

// readFrame reads a 4-byte big-endian length prefix followed by exactly that
// many bytes, rejecting frames over maxRequestFrameSize.
func readFrame(r io.Reader) ([]byte, error) {
	var header [lengthPrefixSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, errors.Wrap(err, "read frame header")
	}

	length := uint32(header[0])<<24 | uint32(header[1])<<16 | uint32(header[2])<<8 | uint32(header[3])
	if length > maxRequestFrameSize {
		return nil, errors.Errorf("badezimmer: frame of %d bytes exceeds maximum", length)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, errors.Wrap(err, "read frame payload")
	}
	return payload, nil
}
