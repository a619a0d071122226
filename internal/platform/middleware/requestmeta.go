package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/mssola/useragent"

	"credentia/pkg/requestcontext"
)

// RequestIDHeader is the inbound/outbound correlation header.
const RequestIDHeader = "X-Request-ID"

// RequestMeta assigns a request ID (honoring an inbound one), captures client
// IP, User-Agent and a parsed device label, and pins the request time so every
// store write within one request observes the same clock reading.
func RequestMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		ctx := r.Context()
		ctx = requestcontext.WithRequestID(ctx, requestID)
		ctx = requestcontext.WithTime(ctx, requestcontext.Now(ctx))

		rawUA := r.UserAgent()
		ctx = requestcontext.WithClientMetadata(ctx, clientIP(r), rawUA, deviceLabel(rawUA))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// deviceLabel condenses the User-Agent into "browser/os" for event
// enrichment. Raw UA strings are too noisy to index.
func deviceLabel(rawUA string) string {
	if rawUA == "" {
		return ""
	}
	ua := useragent.New(rawUA)
	name, _ := ua.Browser()
	os := ua.OSInfo().Name
	switch {
	case name == "" && os == "":
		return "unknown"
	case os == "":
		return name
	case name == "":
		return os
	default:
		return name + "/" + os
	}
}
