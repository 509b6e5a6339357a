package tracking

import (
	"net/url"
	"strings"
)

// Param is the query parameter appended to redirect targets.
const Param = "t"

// knownParams are the query keys a landing page may already use for tracking.
var knownParams = []string{Param, "tracking", "tracking_id", "trackingId"}

// HasTrackingParam reports whether target already carries a tracking parameter.
func HasTrackingParam(target string) bool {
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	q := u.Query()
	for _, k := range knownParams {
		if q.Has(k) {
			return true
		}
	}
	return false
}

// WithTrackingParam appends t=<trackingID> to target unless a tracking parameter
// is already present. The existing query is kept byte for byte and the parameter
// is inserted before any fragment.
func WithTrackingParam(target, trackingID string) string {
	if trackingID == "" || HasTrackingParam(target) {
		return target
	}

	base, fragment, hasFragment := strings.Cut(target, "#")
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
		if strings.HasSuffix(base, "?") || strings.HasSuffix(base, "&") {
			sep = ""
		}
	}

	out := base + sep + Param + "=" + url.QueryEscape(trackingID)
	if hasFragment {
		out += "#" + fragment
	}
	return out
}

// ValidateTarget checks that target is an absolute http(s) URL.
func ValidateTarget(target string) error {
	u, err := url.ParseRequestURI(target)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &url.Error{Op: "parse", URL: target, Err: errUnsupportedScheme}
	}
	if u.Host == "" {
		return &url.Error{Op: "parse", URL: target, Err: errMissingHost}
	}
	return nil
}

type targetError string

func (e targetError) Error() string { return string(e) }

const (
	errUnsupportedScheme = targetError("unsupported scheme")
	errMissingHost       = targetError("missing host")
)
