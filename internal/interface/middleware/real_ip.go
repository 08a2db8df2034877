package middleware

import (
	"fmt"
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// RealIPKey is the gin context key holding the client address used for
// rate limiting and the registration email's location line.
const RealIPKey = "real_ip"

// RealIPHeaders are the proxy headers in trust order. Only a trusted peer
// may set them.
var RealIPHeaders = []string{"CF-Connecting-IP", "X-Real-IP", "X-Forwarded-For"}

// TrustedProxies are the networks allowed to report the client address.
type TrustedProxies []*net.IPNet

// ParseTrustedProxies accepts plain IPs and CIDRs.
func ParseTrustedProxies(list []string) (TrustedProxies, error) {
	out := make(TrustedProxies, 0, len(list))
	for _, raw := range list {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if !strings.Contains(raw, "/") {
			ip := net.ParseIP(raw)
			if ip == nil {
				return nil, fmt.Errorf("trusted proxy %q: invalid ip", raw)
			}
			bits := 128
			if ip.To4() != nil {
				ip, bits = ip.To4(), 32
			}
			out = append(out, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(raw)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", raw, err)
		}
		out = append(out, n)
	}
	return out, nil
}

func (t TrustedProxies) contains(ip net.IP) bool {
	if ip == nil {
		return false
	}
	for _, n := range t {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// clientFromForwarded walks X-Forwarded-For right to left and returns the
// first hop not run by a trusted proxy.
func (t TrustedProxies) clientFromForwarded(v string) string {
	hops := strings.Split(v, ",")
	for i := len(hops) - 1; i >= 0; i-- {
		ip := net.ParseIP(strings.TrimSpace(hops[i]))
		if ip == nil {
			return ""
		}
		if !t.contains(ip) || i == 0 {
			return ip.String()
		}
	}
	return ""
}

func singleIP(v string) string {
	if ip := net.ParseIP(strings.TrimSpace(v)); ip != nil {
		return ip.String()
	}
	return ""
}

// RealIP stores the client IP under RealIPKey. Forwarding headers count
// only when the socket peer is in trusted; otherwise the peer itself is
// the client.
func RealIP(trusted TrustedProxies) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.RemoteIP()
		if trusted.contains(net.ParseIP(ip)) {
			if v := singleIP(c.GetHeader("CF-Connecting-IP")); v != "" {
				ip = v
			} else if v := singleIP(c.GetHeader("X-Real-IP")); v != "" {
				ip = v
			} else if v := trusted.clientFromForwarded(c.GetHeader("X-Forwarded-For")); v != "" {
				ip = v
			}
		}
		c.Set(RealIPKey, ip)
		c.Next()
	}
}
