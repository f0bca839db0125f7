package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/mssola/useragent"
)

type clientMetaKey struct{}

// ClientMeta describes the calling browser for audit attribution.
type ClientMeta struct {
	IP     string
	Device string
}

// ClientMetadata extracts the client IP and a readable device name from the
// request and stores them in context. Run records carry these so an admin can
// see which workstation triggered an offboarding.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		meta := ClientMeta{
			IP:     remoteIP(r),
			Device: DeviceName(r.Header.Get("User-Agent")),
		}
		ctx := context.WithValue(r.Context(), clientMetaKey{}, meta)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetClientMeta retrieves metadata stored by ClientMetadata.
func GetClientMeta(ctx context.Context) ClientMeta {
	meta, _ := ctx.Value(clientMetaKey{}).(ClientMeta)
	return meta
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// DeviceName renders a User-Agent as "Browser on OS" (e.g. "Chrome on macOS").
func DeviceName(userAgentString string) string {
	if userAgentString == "" {
		return "Unknown Device"
	}

	ua := useragent.New(userAgentString)
	browser, _ := ua.Browser()
	os := ua.OS()

	if ua.Mobile() {
		if platform := ua.Platform(); platform != "" {
			return strings.TrimSpace(browser + " on " + platform)
		}
	}

	if browser == "" {
		browser = "Unknown Browser"
	}
	if os == "" {
		os = "Unknown OS"
	}
	return strings.TrimSpace(browser + " on " + os)
}
