package badezimmer

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingListener struct {
	mu      sync.Mutex
	added   []*ServiceDescriptor
	updated []*ServiceDescriptor
	removed []*ServiceDescriptor
}

func (r *recordingListener) AddService(_ *Engine, d *ServiceDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.added = append(r.added, d)
}

func (r *recordingListener) UpdateService(_ *Engine, d *ServiceDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updated = append(r.updated, d)
}

func (r *recordingListener) RemoveService(_ *Engine, d *ServiceDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, d)
}

func testEngine(opts ...Option) *Engine {
	base := []Option{
		WithTiebreakingAttempts(1),
		WithTiebreakingInterval(2 * time.Millisecond),
		WithAutomaticCleanup(false),
		WithAutomaticRenovation(false),
	}
	return NewEngine(append(base, opts...)...)
}

func TestEngineRegisterServiceNoConflict(t *testing.T) {
	e := testEngine()
	d := sampleDescriptor()

	err := e.RegisterService(context.Background(), d)
	require.NoError(t, err)
	assert.True(t, e.Cache().IsRegistered(d.ServiceType, d.DomainName()))
}

func TestEngineRegisterServiceRenamesOnConflict(t *testing.T) {
	e := testEngine()

	// Use a non-suffixed instance name here: sampleDescriptor's "lamp-1"
	// would itself be stripped to base "lamp" by baseInstanceName (spec.md
	// §4.4), which would make the renamed result less obvious to a reader.
	remote := sampleDescriptor()
	remote.InstanceName = "lamp"
	e.Cache().InsertOrUpdate(remote, false)

	d := sampleDescriptor()
	d.InstanceName = "lamp"
	d.AllowNameChange = true

	err := e.RegisterService(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, "lamp-2", d.InstanceName)
}

func TestEngineRegisterServiceConflictForbidden(t *testing.T) {
	e := testEngine()

	remote := sampleDescriptor()
	e.Cache().InsertOrUpdate(remote, false)

	d := sampleDescriptor()
	d.AllowNameChange = false

	err := e.RegisterService(context.Background(), d)
	assert.ErrorIs(t, err, ErrNonUniqueName)
}

func TestEngineHandleResponseAddsAndNotifies(t *testing.T) {
	e := testEngine()
	listener := &recordingListener{}
	e.AddListener(listener)

	d := sampleDescriptor()
	records := d.ToRecords()
	e.handleResponse(&ResponsePayload{Answers: records[:1], AdditionalRecords: records[1:]})

	listener.mu.Lock()
	defer listener.mu.Unlock()
	require.Len(t, listener.added, 1)
	assert.Equal(t, d.InstanceName, listener.added[0].InstanceName)
}

func TestEngineHandleResponseGoodbyeRemoves(t *testing.T) {
	e := testEngine()
	listener := &recordingListener{}
	e.AddListener(listener)

	d := sampleDescriptor()
	records := d.ToRecords()
	e.handleResponse(&ResponsePayload{Answers: records[:1], AdditionalRecords: records[1:]})

	goodbyeRecords := d.Goodbye().ToRecords()
	e.handleResponse(&ResponsePayload{Answers: goodbyeRecords[:1], AdditionalRecords: goodbyeRecords[1:]})

	listener.mu.Lock()
	defer listener.mu.Unlock()
	require.Len(t, listener.removed, 1)
	assert.Nil(t, e.Cache().Reconstruct(d.ServiceType, d.DomainName()))
}

func TestEngineHandleResponseGoodbyeUnknownIsNoop(t *testing.T) {
	e := testEngine()
	listener := &recordingListener{}
	e.AddListener(listener)

	d := sampleDescriptor()
	goodbyeRecords := d.Goodbye().ToRecords()
	e.handleResponse(&ResponsePayload{Answers: goodbyeRecords[:1], AdditionalRecords: goodbyeRecords[1:]})

	listener.mu.Lock()
	defer listener.mu.Unlock()
	assert.Empty(t, listener.removed)
}

func TestEngineUnregisterUnknownServiceIsNoop(t *testing.T) {
	e := testEngine()
	listener := &recordingListener{}
	e.AddListener(listener)

	e.UnregisterService(sampleDescriptor())

	listener.mu.Lock()
	defer listener.mu.Unlock()
	assert.Empty(t, listener.removed)
}

func TestEngineProbeDeadWithoutAddressOrPort(t *testing.T) {
	e := testEngine()
	d := sampleDescriptor()
	d.Addresses = nil
	assert.False(t, e.probe(context.Background(), d))

	d2 := sampleDescriptor()
	d2.Port = 0
	assert.False(t, e.probe(context.Background(), d2))
}

func TestEngineProbeAssumesAliveForNonTCP(t *testing.T) {
	e := testEngine()
	d := sampleDescriptor()
	d.TransportProtocol = TransportProtocolUDP
	assert.True(t, e.probe(context.Background(), d))
}

func TestEngineProbeDialsTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	e := testEngine(WithExcludedIPPrefixes())
	d := sampleDescriptor()
	d.TransportProtocol = TransportProtocolTCP
	d.Addresses = []string{"127.0.0.1"}
	d.Port = uint16(ln.Addr().(*net.TCPAddr).Port)

	assert.True(t, e.probe(context.Background(), d))
}

func TestEngineProbeFailsWhenUnreachable(t *testing.T) {
	e := testEngine(WithExcludedIPPrefixes())
	d := sampleDescriptor()
	d.TransportProtocol = TransportProtocolTCP
	d.Addresses = []string{"127.0.0.1"}
	d.Port = 1
	e.config.healthCheckTimeout = 50 * time.Millisecond

	assert.False(t, e.probe(context.Background(), d))
}
