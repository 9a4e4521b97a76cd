package badezimmer

import "encoding/binary"

const lengthPrefixSize = 4

// frameBytes prepends a 4-byte big-endian length prefix to payload, per
// SPEC_FULL.md §4.1.
func frameBytes(payload []byte) []byte {
	out := make([]byte, lengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(out, uint32(len(payload)))
	copy(out[lengthPrefixSize:], payload)
	return out
}

// unframeBytes strips and validates the length prefix, returning the
// announced-length payload slice. Trailing bytes beyond the announced
// length are discarded, per spec.
func unframeBytes(buf []byte) ([]byte, error) {
	if len(buf) < lengthPrefixSize {
		return nil, ErrShortFrame
	}
	length := binary.BigEndian.Uint32(buf)
	rest := buf[lengthPrefixSize:]
	if uint64(length) > uint64(len(rest)) {
		return nil, ErrTruncatedPayload
	}
	return rest[:length], nil
}

// FrameEnvelope serializes an envelope and prepends its length prefix,
// ready to be written to a socket or multicast send.
func FrameEnvelope(e *Envelope) ([]byte, error) {
	payload, err := encodeEnvelope(e)
	if err != nil {
		return nil, err
	}
	return frameBytes(payload), nil
}

// UnframeEnvelope validates the length prefix of buf and parses the payload
// into an Envelope.
func UnframeEnvelope(buf []byte) (*Envelope, error) {
	payload, err := unframeBytes(buf)
	if err != nil {
		return nil, err
	}
	return decodeEnvelope(payload)
}

// FrameActuatorCommandRequest serializes and length-prefixes a device
// command request, the Go analog of tcp.py's prepare_protobuf_request.
func FrameActuatorCommandRequest(r *ActuatorCommandRequest) ([]byte, error) {
	payload, err := encodeActuatorCommandRequest(r)
	if err != nil {
		return nil, err
	}
	return frameBytes(payload), nil
}

// UnframeActuatorCommandRequest validates the length prefix of buf and
// parses the payload into an ActuatorCommandRequest.
func UnframeActuatorCommandRequest(buf []byte) (*ActuatorCommandRequest, error) {
	payload, err := unframeBytes(buf)
	if err != nil {
		return nil, err
	}
	return decodeActuatorCommandRequest(payload)
}

// FrameDeviceReply serializes and length-prefixes a device reply.
func FrameDeviceReply(r *DeviceReply) ([]byte, error) {
	payload, err := encodeDeviceReply(r)
	if err != nil {
		return nil, err
	}
	return frameBytes(payload), nil
}

// UnframeDeviceReply validates the length prefix of buf and parses the
// payload into a DeviceReply.
func UnframeDeviceReply(buf []byte) (*DeviceReply, error) {
	payload, err := unframeBytes(buf)
	if err != nil {
		return nil, err
	}
	return decodeDeviceReply(payload)
}
