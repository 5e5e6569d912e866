package caster

import "errors"

// ErrUnsupportedAction is returned by CastControl for any action other than
// "stop": the original controller only ever implemented stop, and guessing
// pause/resume/seek semantics here would invent behavior nothing verifies.
var ErrUnsupportedAction = errors.New("Control partially implemented") //nolint:stylecheck // exact user-facing text per contract.

// ErrProxyNotStarted is returned by GetProxyStatus before the proxy has
// published a listening address.
var ErrProxyNotStarted = errors.New("proxy not started")
