package badezimmer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDescriptor() *ServiceDescriptor {
	return &ServiceDescriptor{
		InstanceName:      "lamp-1",
		ServiceType:       "_lightlamp._tcp.local.",
		Port:              8080,
		Kind:              DeviceKindActuator,
		Category:          DeviceCategoryLightLamp,
		TransportProtocol: TransportProtocolTCP,
		Properties:        map[string]string{"room": "bath"},
		Addresses:         []string{"10.0.0.5"},
		TTL:               DefaultTTL,
		AllowNameChange:   true,
	}
}

func TestServiceDescriptorRoundTrip(t *testing.T) {
	d := sampleDescriptor()
	records := d.ToRecords()
	require.NotEmpty(t, records)

	got := FromRecords(records)
	require.Len(t, got, 1)

	out := got[0]
	assert.Equal(t, d.InstanceName, out.InstanceName)
	assert.Equal(t, d.ServiceType, out.ServiceType)
	assert.Equal(t, d.Port, out.Port)
	assert.Equal(t, d.Kind, out.Kind)
	assert.Equal(t, d.Category, out.Category)
	assert.Equal(t, d.TransportProtocol, out.TransportProtocol)
	assert.Equal(t, d.Addresses, out.Addresses)
	assert.Equal(t, "bath", out.Properties["room"])
	assert.Equal(t, d.TTL, out.TTL)
}

func TestServiceDescriptorGoodbyeZeroesTTL(t *testing.T) {
	d := sampleDescriptor()
	g := d.Goodbye()
	for _, r := range g.ToRecords() {
		assert.Zero(t, r.TTL)
	}
	assert.Equal(t, DefaultTTL, int(d.TTL), "original descriptor is untouched")
}

func TestDomainName(t *testing.T) {
	d := sampleDescriptor()
	assert.Equal(t, "lamp-1._lightlamp._tcp.local.", d.DomainName())
}

func TestValidateServiceType(t *testing.T) {
	assert.NoError(t, validateServiceType("_lightlamp._tcp.local."))
	assert.Error(t, validateServiceType(""))
}

func TestFromRecordsEmpty(t *testing.T) {
	assert.Nil(t, FromRecords(nil))
}

func TestCloneIsIndependent(t *testing.T) {
	d := sampleDescriptor()
	clone := d.Clone()
	clone.Addresses[0] = "192.168.1.1"
	clone.Properties["room"] = "kitchen"
	assert.Equal(t, "10.0.0.5", d.Addresses[0])
	assert.Equal(t, "bath", d.Properties["room"])
}
