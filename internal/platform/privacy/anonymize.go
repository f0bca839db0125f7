// Package privacy keeps personally identifying detail out of logs and audit
// records. The portal handles employee data; operator-facing output carries
// network prefixes, never full addresses.
package privacy

import (
	"fmt"
	"net/netip"
)

// AnonymizeIP truncates an address to its network prefix: IPv4 keeps the
// /24 ("192.168.1.47" -> "192.168.1.0"), IPv6 keeps the /48
// ("2001:db8:85a3::8a2e:370:7334" -> "2001:0db8:85a3::"). Within a prefix
// every host anonymizes to the same value, which is exactly enough to spot
// "many requests from one office" without naming a machine.
//
// Returns "invalid" for unparseable addresses and "unknown" for empty ones.
func AnonymizeIP(ip string) string {
	if ip == "" || ip == "unknown" {
		return "unknown"
	}

	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "invalid"
	}

	if addr.Is4() || addr.Is4In6() {
		v4 := addr.As4()
		return fmt.Sprintf("%d.%d.%d.0", v4[0], v4[1], v4[2])
	}

	v6 := addr.As16()
	return fmt.Sprintf("%02x%02x:%02x%02x:%02x%02x::", v6[0], v6[1], v6[2], v6[3], v6[4], v6[5])
}
