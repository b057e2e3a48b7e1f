package versioning

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Request and response headers for API version negotiation.
const (
	AcceptVersionHeader  = "Accept-Version"
	CurrentVersionHeader = "X-Current-Version"
)

// APIVersion is a major.minor API version.
type APIVersion struct {
	Major int `json:"major"`
	Minor int `json:"minor"`
}

func (v APIVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Current is the API version this build serves. Requests pinned to another
// major are rejected; minor differences are compatible.
var Current = APIVersion{Major: 1, Minor: 0}

// Parse reads "1", "1.0" or "v1.0" into an APIVersion.
func Parse(s string) (APIVersion, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "v")
	if s == "" {
		return APIVersion{}, fmt.Errorf("empty version")
	}
	parts := strings.SplitN(s, ".", 3)
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return APIVersion{}, fmt.Errorf("invalid version %q", s)
	}
	version := APIVersion{Major: major}
	if len(parts) > 1 {
		minor, err := strconv.Atoi(parts[1])
		if err != nil {
			return APIVersion{}, fmt.Errorf("invalid version %q", s)
		}
		version.Minor = minor
	}
	return version, nil
}

// Middleware advertises the served version and rejects requests pinned to a
// different major via Accept-Version. Requests without the header pass.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(CurrentVersionHeader, Current.String())

		if requested := r.Header.Get(AcceptVersionHeader); requested != "" {
			version, err := Parse(requested)
			if err != nil {
				http.Error(w, fmt.Sprintf("invalid %s header", AcceptVersionHeader), http.StatusBadRequest)
				return
			}
			if version.Major != Current.Major {
				http.Error(w, fmt.Sprintf("unsupported API version %s, server provides %s", version, Current),
					http.StatusNotAcceptable)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
