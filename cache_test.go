package badezimmer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordCacheInsertAndReconstruct(t *testing.T) {
	clock := int64(0)
	c := NewRecordCache(func() int64 { return clock })

	d := sampleDescriptor()
	result := c.InsertOrUpdate(d, false)
	assert.Equal(t, CacheResultAdded, result)

	again := c.InsertOrUpdate(d, false)
	assert.Equal(t, CacheResultUpdated, again)

	got := c.Reconstruct(d.ServiceType, d.DomainName())
	require.NotNil(t, got)
	assert.Equal(t, d.InstanceName, got.InstanceName)
}

func TestRecordCacheExpiry(t *testing.T) {
	clock := int64(0)
	c := NewRecordCache(func() int64 { return clock })

	d := sampleDescriptor()
	d.TTL = 10
	c.InsertOrUpdate(d, false)

	assert.True(t, c.HasNonExpiredPointer(d.ServiceType, d.DomainName()))

	clock = 11_000
	assert.False(t, c.HasNonExpiredPointer(d.ServiceType, d.DomainName()))

	snaps := c.RemotePointers()
	require.Len(t, snaps, 1)
	assert.True(t, snaps[0].Expired)
}

func TestRecordCacheRegisteredOwnershipBlocksRemoteOverwrite(t *testing.T) {
	c := NewRecordCache(nil)
	d := sampleDescriptor()

	c.MarkRegistered(d.ServiceType, d.DomainName())
	c.InsertOrUpdate(d, true)

	remote := d.Clone()
	remote.Port = 9999
	result := c.InsertOrUpdate(remote, false)
	assert.Equal(t, CacheResultNoop, result)

	got := c.Reconstruct(d.ServiceType, d.DomainName())
	require.NotNil(t, got)
	assert.Equal(t, d.Port, got.Port)
}

func TestRecordCacheRemoveAndRemotePointersExcludesRegistered(t *testing.T) {
	c := NewRecordCache(nil)
	d := sampleDescriptor()

	c.MarkRegistered(d.ServiceType, d.DomainName())
	c.InsertOrUpdate(d, true)
	assert.Empty(t, c.RemotePointers())

	c.MarkUnregistered(d.ServiceType, d.DomainName())
	remote := sampleDescriptor()
	remote.InstanceName = "lamp-2"
	c.InsertOrUpdate(remote, false)

	snaps := c.RemotePointers()
	require.Len(t, snaps, 1)
	assert.Equal(t, remote.DomainName(), snaps[0].Domain)

	c.Remove(remote.ServiceType, remote.DomainName())
	assert.Nil(t, c.Reconstruct(remote.ServiceType, remote.DomainName()))
}

func TestRecordCacheAllPointersIncludesRegistered(t *testing.T) {
	c := NewRecordCache(nil)
	d := sampleDescriptor()

	c.MarkRegistered(d.ServiceType, d.DomainName())
	c.InsertOrUpdate(d, true)
	assert.Empty(t, c.RemotePointers(), "RemotePointers still excludes locally-owned domains")

	snaps := c.AllPointers()
	require.Len(t, snaps, 1)
	assert.Equal(t, d.DomainName(), snaps[0].Domain)
	assert.False(t, snaps[0].Expired)

	remote := sampleDescriptor()
	remote.InstanceName = "lamp-2"
	c.InsertOrUpdate(remote, false)
	assert.Len(t, c.AllPointers(), 2)
}

func TestRecordCacheAllRegistered(t *testing.T) {
	c := NewRecordCache(nil)
	d := sampleDescriptor()
	c.MarkRegistered(d.ServiceType, d.DomainName())

	all := c.AllRegistered()
	require.Contains(t, all, d.ServiceType)
	assert.Contains(t, all[d.ServiceType], d.DomainName())
	assert.True(t, c.IsRegistered(d.ServiceType, d.DomainName()))
	assert.Contains(t, c.RegisteredDomains(d.ServiceType), d.DomainName())
}

func TestRecordCachePointersForTypeAndDetailRecords(t *testing.T) {
	c := NewRecordCache(nil)
	d := sampleDescriptor()
	c.InsertOrUpdate(d, false)

	pointers := c.PointersForType(d.ServiceType)
	require.Contains(t, pointers, d.DomainName())
	assert.Equal(t, RecordKindPointer, pointers[d.DomainName()].Kind)

	details := c.DetailRecords(d.DomainName())
	require.NotEmpty(t, details)
	var sawAddress, sawService, sawText bool
	for _, r := range details {
		switch r.Kind {
		case RecordKindAddress:
			sawAddress = true
		case RecordKindService:
			sawService = true
		case RecordKindText:
			sawText = true
		}
	}
	assert.True(t, sawAddress)
	assert.True(t, sawService)
	assert.True(t, sawText)
}
