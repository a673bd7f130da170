package middleware

import (
	"net"
	"net/http"
)

// TrustedCIDR restricts the admin surface to callers inside the given
// subnet, judged by the X-Real-IP header. An empty CIDR disables the check;
// an unparseable one panics at startup rather than serving with a silently
// broken restriction.
func TrustedCIDR(cidrs string) func(http.Handler) http.Handler {
	var ipnet *net.IPNet
	if cidrs != "" {
		_, n, err := net.ParseCIDR(cidrs)
		if err != nil {
			panic("invalid trusted_subnet: " + err.Error())
		}
		ipnet = n
	}

	return func(next http.Handler) http.Handler {
		if ipnet == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			xrip := r.Header.Get("X-Real-IP")
			ip := net.ParseIP(xrip)
			if ip == nil || !ipnet.Contains(ip) {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
