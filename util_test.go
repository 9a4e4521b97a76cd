package badezimmer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasAnyPrefix(t *testing.T) {
	assert.True(t, hasAnyPrefix("127.0.0.1", defaultExcludedIPPrefixes))
	assert.False(t, hasAnyPrefix("10.0.0.5", defaultExcludedIPPrefixes))
}

func TestRandomAvailableTCPPort(t *testing.T) {
	port, err := randomAvailableTCPPort()
	require.NoError(t, err)
	assert.Greater(t, port, 0)
	assert.Less(t, port, 65536)
}

func TestLocalIPv4AddressesExcludesLoopback(t *testing.T) {
	addrs := localIPv4Addresses()
	for _, a := range addrs {
		assert.False(t, hasAnyPrefix(a, []string{"127."}))
	}
}
