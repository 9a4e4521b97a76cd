package badezimmer

import (
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// LightAction is the command payload for LIGHT_LAMP actuators, mirroring
// original_source/src/lightlamp's on/off/brightness verbs.
type LightAction struct {
	TurnOn     bool
	Brightness uint32
}

// SinkAction is the command payload for SINK actuators, mirroring
// original_source/src/sink's valve verbs.
type SinkAction struct {
	Open             bool
	FlowRateMillilit uint32
}

// ActuatorCommandRequest is the request body sent over the per-device TCP
// endpoint described in SPEC_FULL.md §4.8. Exactly one of Light or Sink is
// set, chosen by the target device's DeviceCategory.
type ActuatorCommandRequest struct {
	DeviceID string
	Light    *LightAction
	Sink     *SinkAction
}

// ActuatorCommandResponse is a successful reply from a device endpoint.
type ActuatorCommandResponse struct {
	Message string
}

// ErrorDetails is an unsuccessful reply from a device endpoint, carrying a
// classified ErrorCode alongside a human-readable message and arbitrary
// metadata (e.g. the offending field).
type ErrorDetails struct {
	Code     ErrorCode
	Message  string
	Metadata map[string]string
}

// DeviceReply is the tagged union returned by a device endpoint: exactly one
// of Response or Error is set.
type DeviceReply struct {
	Response *ActuatorCommandResponse
	Error    *ErrorDetails
}

const (
	fieldRequestDeviceID protowire.Number = 1
	fieldRequestLight    protowire.Number = 2
	fieldRequestSink     protowire.Number = 3

	fieldLightTurnOn     protowire.Number = 1
	fieldLightBrightness protowire.Number = 2

	fieldSinkOpen     protowire.Number = 1
	fieldSinkFlowRate protowire.Number = 2

	fieldReplyResponse protowire.Number = 1
	fieldReplyError    protowire.Number = 2

	fieldResponseMessage protowire.Number = 1

	fieldErrorCode     protowire.Number = 1
	fieldErrorMessage  protowire.Number = 2
	fieldErrorMetadata protowire.Number = 3
)

func encodeActuatorCommandRequest(r *ActuatorCommandRequest) ([]byte, error) {
	var b []byte
	b = appendStringField(b, fieldRequestDeviceID, r.DeviceID)
	switch {
	case r.Light != nil:
		var lb []byte
		lb = appendBoolField(lb, fieldLightTurnOn, r.Light.TurnOn)
		lb = appendVarintField(lb, fieldLightBrightness, uint64(r.Light.Brightness))
		b = appendMessageField(b, fieldRequestLight, lb)
	case r.Sink != nil:
		var sb []byte
		sb = appendBoolField(sb, fieldSinkOpen, r.Sink.Open)
		sb = appendVarintField(sb, fieldSinkFlowRate, uint64(r.Sink.FlowRateMillilit))
		b = appendMessageField(b, fieldRequestSink, sb)
	}
	return b, nil
}

func decodeActuatorCommandRequest(b []byte) (*ActuatorCommandRequest, error) {
	fs, err := parseFields(b)
	if err != nil {
		return nil, err
	}
	r := &ActuatorCommandRequest{DeviceID: fs.str(fieldRequestDeviceID)}

	if ls := fs.bytesList(fieldRequestLight); len(ls) > 0 {
		lfs, err := parseFields(ls[len(ls)-1])
		if err != nil {
			return nil, err
		}
		r.Light = &LightAction{
			TurnOn:     lfs.boolVal(fieldLightTurnOn),
			Brightness: uint32(lfs.u64(fieldLightBrightness)),
		}
		return r, nil
	}
	if ss := fs.bytesList(fieldRequestSink); len(ss) > 0 {
		sfs, err := parseFields(ss[len(ss)-1])
		if err != nil {
			return nil, err
		}
		r.Sink = &SinkAction{
			Open:             sfs.boolVal(fieldSinkOpen),
			FlowRateMillilit: uint32(sfs.u64(fieldSinkFlowRate)),
		}
		return r, nil
	}
	return nil, errors.Wrap(ErrInvalidCommand, "decode actuator command request")
}

func encodeDeviceReply(reply *DeviceReply) ([]byte, error) {
	var b []byte
	switch {
	case reply.Response != nil:
		var rb []byte
		rb = appendStringField(rb, fieldResponseMessage, reply.Response.Message)
		b = appendMessageField(b, fieldReplyResponse, rb)
	case reply.Error != nil:
		var eb []byte
		eb = appendVarintField(eb, fieldErrorCode, uint64(reply.Error.Code))
		eb = appendStringField(eb, fieldErrorMessage, reply.Error.Message)
		for k, v := range reply.Error.Metadata {
			var mb []byte
			mb = appendStringField(mb, fieldEntryKey, k)
			mb = appendStringField(mb, fieldEntryValue, v)
			eb = appendMessageField(eb, fieldErrorMetadata, mb)
		}
		b = appendMessageField(b, fieldReplyError, eb)
	default:
		return nil, errors.New("badezimmer: device reply carries no variant")
	}
	return b, nil
}

func decodeDeviceReply(b []byte) (*DeviceReply, error) {
	fs, err := parseFields(b)
	if err != nil {
		return nil, err
	}
	if rs := fs.bytesList(fieldReplyResponse); len(rs) > 0 {
		rfs, err := parseFields(rs[len(rs)-1])
		if err != nil {
			return nil, err
		}
		return &DeviceReply{Response: &ActuatorCommandResponse{Message: rfs.str(fieldResponseMessage)}}, nil
	}
	if es := fs.bytesList(fieldReplyError); len(es) > 0 {
		efs, err := parseFields(es[len(es)-1])
		if err != nil {
			return nil, err
		}
		metadata := map[string]string{}
		for _, raw := range efs.bytesList(fieldErrorMetadata) {
			mfs, err := parseFields(raw)
			if err != nil {
				return nil, err
			}
			metadata[mfs.str(fieldEntryKey)] = mfs.str(fieldEntryValue)
		}
		return &DeviceReply{Error: &ErrorDetails{
			Code:     ErrorCode(efs.u64(fieldErrorCode)),
			Message:  efs.str(fieldErrorMessage),
			Metadata: metadata,
		}}, nil
	}
	return nil, errors.New("badezimmer: device reply carries no variant")
}
