package badezimmer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameUnframeBytesRoundTrip(t *testing.T) {
	payload := []byte("hello badezimmer")
	framed := frameBytes(payload)

	out, err := unframeBytes(framed)
	require.NoError(t, err)
	assert.Equal(t, payload, out)
}

func TestUnframeBytesShortFrame(t *testing.T) {
	_, err := unframeBytes([]byte{0, 1})
	assert.ErrorIs(t, err, ErrShortFrame)
}

func TestUnframeBytesTruncatedPayload(t *testing.T) {
	buf := frameBytes([]byte("abcd"))
	truncated := buf[:len(buf)-2]
	_, err := unframeBytes(truncated)
	assert.ErrorIs(t, err, ErrTruncatedPayload)
}

func TestEnvelopeFrameRoundTrip(t *testing.T) {
	d := sampleDescriptor()
	env := &Envelope{
		Response: &ResponsePayload{
			Answers:           d.ToRecords()[:1],
			AdditionalRecords: d.ToRecords()[1:],
		},
	}

	raw, err := FrameEnvelope(env)
	require.NoError(t, err)

	got, err := UnframeEnvelope(raw)
	require.NoError(t, err)
	require.NotNil(t, got.Response)
	assert.Len(t, got.Response.Answers, 1)
	assert.Equal(t, env.Response.Answers[0].Name, got.Response.Answers[0].Name)
	assert.Len(t, got.Response.AdditionalRecords, len(env.Response.AdditionalRecords))
}

func TestQueryEnvelopeRoundTrip(t *testing.T) {
	env := &Envelope{
		TransactionID: 42,
		Query: &QueryPayload{
			Questions: []Question{{Name: serviceDiscoveryMetaType, Type: QuestionTypePointer}},
		},
	}

	raw, err := FrameEnvelope(env)
	require.NoError(t, err)

	got, err := UnframeEnvelope(raw)
	require.NoError(t, err)
	require.NotNil(t, got.Query)
	require.Len(t, got.Query.Questions, 1)
	assert.Equal(t, serviceDiscoveryMetaType, got.Query.Questions[0].Name)
	assert.Equal(t, uint16(42), got.TransactionID)
}

func TestActuatorCommandRequestRoundTrip(t *testing.T) {
	req := &ActuatorCommandRequest{
		DeviceID: "lamp-1",
		Light:    &LightAction{TurnOn: true, Brightness: 80},
	}

	raw, err := FrameActuatorCommandRequest(req)
	require.NoError(t, err)

	got, err := UnframeActuatorCommandRequest(raw)
	require.NoError(t, err)
	require.NotNil(t, got.Light)
	assert.True(t, got.Light.TurnOn)
	assert.Equal(t, uint32(80), got.Light.Brightness)
	assert.Equal(t, "lamp-1", got.DeviceID)
}

func TestDeviceReplyRoundTrip(t *testing.T) {
	reply := &DeviceReply{Error: &ErrorDetails{
		Code:     ErrorCodeInvalidCommand,
		Message:  "brightness out of range",
		Metadata: map[string]string{"field": "brightness"},
	}}

	raw, err := FrameDeviceReply(reply)
	require.NoError(t, err)

	got, err := UnframeDeviceReply(raw)
	require.NoError(t, err)
	require.NotNil(t, got.Error)
	assert.Equal(t, ErrorCodeInvalidCommand, got.Error.Code)
	assert.Equal(t, "brightness out of range", got.Error.Message)
	assert.Equal(t, "brightness", got.Error.Metadata["field"])
}
