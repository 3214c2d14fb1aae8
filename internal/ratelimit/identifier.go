package ratelimit

import (
	"net/http"
	"strings"
)

// UnknownIdentifier is used when a request carries no usable forwarded address.
const UnknownIdentifier = "unknown"

// HeaderForwardedFor is the proxy header the resolver reads.
const HeaderForwardedFor = "X-Forwarded-For"

// KeyFunc derives the counter key for a request.
type KeyFunc func(r *http.Request) string

// ClientIdentifier returns the leftmost address of the X-Forwarded-For chain, or
// UnknownIdentifier when the header is missing or its first entry is blank.
//
// The value is advisory: any client that controls its proxy headers can choose it.
// That is acceptable for abuse mitigation, which is all this key is used for.
func ClientIdentifier(r *http.Request) string {
	xff := r.Header.Get(HeaderForwardedFor)
	if xff == "" {
		return UnknownIdentifier
	}
	first, _, _ := strings.Cut(xff, ",")
	if ip := strings.TrimSpace(first); ip != "" {
		return ip
	}
	return UnknownIdentifier
}
