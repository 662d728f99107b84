package webauth

import "net/url"

// UserAgent presents an authorize (or logout) URL to the user, typically by
// launching a modal system browser session. Concrete platform adapters live
// outside this package; tests use doubles.
//
// The provider's redirect lands back in the application by some
// platform-specific route; whoever receives it must hand the callback URL to
// TransactionStore.Resume (or WebAuth.Resume).
type UserAgent interface {
	// Start presents the URL. A returned error fails the flow immediately.
	Start(u *url.URL) error

	// Finish tells the agent the operation resolved (err is nil on success,
	// the flow's error otherwise) so it can dismiss any presented UI. It is
	// called at most once.
	Finish(err error)
}
