package badezimmer

import (
	"net"
	"strings"
	"time"
)

// processStart anchors monotonicMillis's clock reading.
var processStart = time.Now()

// monotonicMillis returns milliseconds elapsed since process start, derived
// from time.Since's monotonic clock reading rather than the wall clock, so
// cache expiry math (spec.md §3) keeps advancing steadily across NTP
// corrections or other wall-clock steps.
func monotonicMillis() int64 {
	return time.Since(processStart).Milliseconds()
}

// defaultExcludedIPPrefixes matches spec.md §6's configuration table.
var defaultExcludedIPPrefixes = []string{
	"127.",
	"172.17.",
	"172.18.",
	"172.19.",
	"172.20.",
	"172.21.",
	"172.22.",
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// localIPv4Addresses enumerates non-loopback IPv4 addresses bound to any
// interface on the host, used as a descriptor's default address list when
// the caller does not supply one explicitly.
func localIPv4Addresses() []string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}
	seen := map[string]struct{}{}
	var out []string
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ipNet, ok := a.(*net.IPNet)
			if !ok || ipNet.IP.IsLoopback() {
				continue
			}
			v4 := ipNet.IP.To4()
			if v4 == nil {
				continue
			}
			s := v4.String()
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

// randomAvailableTCPPort binds to port 0 and reads back the OS-assigned
// port, the Go analog of tcp.py's get_random_available_tcp_port.
func randomAvailableTCPPort() (int, error) {
	l, err := net.Listen("tcp", ":0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
