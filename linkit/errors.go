package linkit

import "errors"

var (
	// ErrMalformedIdentity indicates link selector values without a usable href.
	ErrMalformedIdentity = errors.New("malformed link identity")
	// ErrStaleSelection indicates a completion whose selection no longer resolves.
	ErrStaleSelection = errors.New("stale selection")
	// ErrNoOp indicates a request that had nothing to act on.
	ErrNoOp = errors.New("nothing to do")
	// ErrNoSelector indicates a link request without a configured link selector.
	ErrNoSelector = errors.New("no link selector configured")
	// ErrNotButton indicates a button link request on an element that is not a button.
	ErrNotButton = errors.New("element is not a button container")
)
