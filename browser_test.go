package badezimmer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceBrowserReplaysCacheOnStart(t *testing.T) {
	e := testEngine()
	remote := sampleDescriptor()
	e.Cache().InsertOrUpdate(remote, false)

	listener := &recordingListener{}
	browser := NewServiceBrowser(listener, remote.ServiceType)
	browser.Start(e)

	listener.mu.Lock()
	defer listener.mu.Unlock()
	require.Len(t, listener.added, 1)
	assert.Equal(t, remote.InstanceName, listener.added[0].InstanceName)
}

func TestServiceBrowserReplaysLocallyRegisteredServices(t *testing.T) {
	e := testEngine()
	d := sampleDescriptor()
	require.NoError(t, e.RegisterService(context.Background(), d))

	listener := &recordingListener{}
	browser := NewServiceBrowser(listener, d.ServiceType)
	browser.Start(e)

	listener.mu.Lock()
	defer listener.mu.Unlock()
	require.Len(t, listener.added, 1)
	assert.Equal(t, d.InstanceName, listener.added[0].InstanceName)
}

func TestServiceBrowserFiltersUnsubscribedTypes(t *testing.T) {
	e := testEngine()
	listener := &recordingListener{}
	browser := NewServiceBrowser(listener, "_sink._tcp.local.")
	browser.Start(e)

	d := sampleDescriptor() // _lightlamp._tcp.local.
	browser.AddService(e, d)

	listener.mu.Lock()
	defer listener.mu.Unlock()
	assert.Empty(t, listener.added)
}

func TestServiceBrowserMetaTypeSubscribesToEverything(t *testing.T) {
	e := testEngine()
	listener := &recordingListener{}
	browser := NewServiceBrowser(listener, serviceDiscoveryMetaType)
	browser.Start(e)

	d := sampleDescriptor()
	browser.AddService(e, d)

	listener.mu.Lock()
	defer listener.mu.Unlock()
	require.Len(t, listener.added, 1)
}
