// Package badezimmer implements a LAN service-discovery and device-control
// fabric for a small fleet of cooperating appliances.
//
// The discovery core is a multicast announce/query protocol with
// conflict-resolved instance naming, a TTL-based record cache with liveness
// probing and graceful goodbyes, and a length-prefixed framed RPC transport
// used for unicast device control. The wire protocol is custom: it is not
// standard mDNS/DNS-SD, and packets are not interoperable with those
// resolvers.
package badezimmer
