package webauth

import (
	"net/url"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Option defines a common functional options type which can be used in a
// variadic parameter pattern.
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		if o == nil { // ignore any nil Options
			continue
		}
		o(opts)
	}
}

// webAuthOptions is the set of available options for New.
type webAuthOptions struct {
	withScope         string
	withAudience      string
	withConnection    string
	withState         string
	withNonce         string
	withOrganization  string
	withInvitationURL *url.URL
	withLeeway        time.Duration
	withMaxAge        *time.Duration
	withParameters    map[string]string
	withRedirectURL   *url.URL
	withBundleID      string
	withUniversalLink bool
	withIssuer        string
	withUserAgent     UserAgent
	withLogger        hclog.Logger
	withStore         *TransactionStore
	withBarrier       Barrier
}

func webAuthDefaults() webAuthOptions {
	return webAuthOptions{
		withScope:  DefaultScope,
		withLeeway: DefaultLeeway,
		withLogger: hclog.NewNullLogger(),
	}
}

// getWebAuthOpts gets the defaults and applies the opt overrides passed in.
func getWebAuthOpts(opt ...Option) webAuthOptions {
	opts := webAuthDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithScope provides the scopes to request. The required "openid" scope is
// added if missing.
func WithScope(scope string) Option {
	return func(o interface{}) {
		if v, ok := o.(*webAuthOptions); ok {
			v.withScope = scope
		}
	}
}

// WithAudience provides an optional API audience for the authorize request.
func WithAudience(audience string) Option {
	return func(o interface{}) {
		if v, ok := o.(*webAuthOptions); ok {
			v.withAudience = audience
		}
	}
}

// WithConnection provides an optional connection name to direct the login to
// a specific identity provider connection.
func WithConnection(connection string) Option {
	return func(o interface{}) {
		if v, ok := o.(*webAuthOptions); ok {
			v.withConnection = connection
		}
	}
}

// WithState provides an optional CSRF correlation token, replacing the
// generated one.
func WithState(state string) Option {
	return func(o interface{}) {
		if v, ok := o.(*webAuthOptions); ok {
			v.withState = state
		}
	}
}

// WithNonce provides an optional nonce to bind into the ID token.
func WithNonce(nonce string) Option {
	return func(o interface{}) {
		if v, ok := o.(*webAuthOptions); ok {
			v.withNonce = nonce
		}
	}
}

// WithOrganization provides an optional organization to log in to.
func WithOrganization(organization string) Option {
	return func(o interface{}) {
		if v, ok := o.(*webAuthOptions); ok {
			v.withOrganization = organization
		}
	}
}

// WithInvitationURL provides an optional organization invitation URL; its
// organization and invitation parameters are forwarded to the provider.
func WithInvitationURL(u *url.URL) Option {
	return func(o interface{}) {
		if v, ok := o.(*webAuthOptions); ok {
			v.withInvitationURL = u
		}
	}
}

// WithLeeway provides the clock-skew tolerance for ID-token validation.
// Defaults to DefaultLeeway.
func WithLeeway(d time.Duration) Option {
	return func(o interface{}) {
		if v, ok := o.(*webAuthOptions); ok {
			v.withLeeway = d
		}
	}
}

// WithMaxAge requests that the user must have authenticated within the given
// window, enforced via the ID token's auth_time claim.
func WithMaxAge(d time.Duration) Option {
	return func(o interface{}) {
		if v, ok := o.(*webAuthOptions); ok {
			v.withMaxAge = &d
		}
	}
}

// WithParameters provides additional authorize-URL parameters. They override
// the computed entries on key collision.
func WithParameters(params map[string]string) Option {
	return func(o interface{}) {
		if v, ok := o.(*webAuthOptions); ok {
			v.withParameters = params
		}
	}
}

// WithRedirectURL provides an explicit redirect URL, replacing the one
// derived from the bundle identifier.
func WithRedirectURL(u *url.URL) Option {
	return func(o interface{}) {
		if v, ok := o.(*webAuthOptions); ok {
			v.withRedirectURL = u
		}
	}
}

// WithBundleID provides the application's bundle identifier, used to derive
// the default redirect URL (and its custom scheme).
func WithBundleID(bundleID string) Option {
	return func(o interface{}) {
		if v, ok := o.(*webAuthOptions); ok {
			v.withBundleID = bundleID
		}
	}
}

// WithUniversalLink derives the default redirect URL with the https scheme
// for universal-link/app-link configurations instead of the custom scheme.
func WithUniversalLink() Option {
	return func(o interface{}) {
		if v, ok := o.(*webAuthOptions); ok {
			v.withUniversalLink = true
		}
	}
}

// WithIssuer provides the expected issuer for ID-token validation, replacing
// the default derived from the provider domain.
func WithIssuer(issuer string) Option {
	return func(o interface{}) {
		if v, ok := o.(*webAuthOptions); ok {
			v.withIssuer = issuer
		}
	}
}

// WithUserAgent provides the user agent that presents authorize and logout
// URLs.
func WithUserAgent(agent UserAgent) Option {
	return func(o interface{}) {
		if v, ok := o.(*webAuthOptions); ok {
			v.withUserAgent = agent
		}
	}
}

// WithLogger provides an optional logger.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if v, ok := o.(*webAuthOptions); ok {
			v.withLogger = l
		}
	}
}

// WithTransactionStore provides the store tracking the in-flight transaction,
// replacing the WebAuth-private one. Share a single store between every
// WebAuth in the process.
func WithTransactionStore(s *TransactionStore) Option {
	return func(o interface{}) {
		if v, ok := o.(*webAuthOptions); ok {
			v.withStore = s
		}
	}
}

// WithBarrier provides the mutual-exclusion barrier guarding
// browser-delegated operations, replacing the WebAuth-private one.
func WithBarrier(b Barrier) Option {
	return func(o interface{}) {
		if v, ok := o.(*webAuthOptions); ok {
			v.withBarrier = b
		}
	}
}
