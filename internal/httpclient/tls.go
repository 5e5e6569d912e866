package httpclient

import "crypto/tls"

// insecureTLSConfig builds a tls.Config that skips certificate verification.
// Cast receivers use a self-signed certificate tied to their device
// identity, not a CA any client can validate, so this is the documented way
// every Cast-protocol client (including the original Google SDKs) connects.
func insecureTLSConfig() *tls.Config {
	return &tls.Config{InsecureSkipVerify: true} //nolint:gosec // required for Cast receiver self-signed certs
}
