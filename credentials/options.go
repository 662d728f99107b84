package credentials

import (
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

// managerOptions is the set of available options for NewManager.
type managerOptions struct {
	withStoreKey   string
	withGate       Gate
	withSerializer *Serializer
	withLogger     hclog.Logger
}

func managerDefaults() managerOptions {
	return managerOptions{
		withStoreKey: DefaultStoreKey,
		withLogger:   hclog.NewNullLogger(),
	}
}

func getManagerOpts(opt ...Option) managerOptions {
	opts := managerDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithStoreKey provides the key the credential record is stored under,
// replacing DefaultStoreKey.
func WithStoreKey(key string) Option {
	return func(o interface{}) {
		if v, ok := o.(*managerOptions); ok {
			v.withStoreKey = key
		}
	}
}

// WithGate provides an optional biometric gate; when set, every credentials
// read must pass it first.
func WithGate(g Gate) Option {
	return func(o interface{}) {
		if v, ok := o.(*managerOptions); ok {
			v.withGate = g
		}
	}
}

// WithSerializer provides the serializer guarding the credential record,
// replacing the Manager-private one. Share a single serializer between every
// Manager touching the same storage.
func WithSerializer(s *Serializer) Option {
	return func(o interface{}) {
		if v, ok := o.(*managerOptions); ok {
			v.withSerializer = s
		}
	}
}

// WithLogger provides an optional logger. Tokens never appear in log output.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if v, ok := o.(*managerOptions); ok {
			v.withLogger = l
		}
	}
}

// requestOptions is the set of available options for Credentials, Revoke and
// TokenSource.
type requestOptions struct {
	withScope      string
	withMinTTL     time.Duration
	withParameters map[string]string
	withHeaders    map[string]string
}

func requestDefaults() requestOptions {
	return requestOptions{}
}

func getRequestOpts(opt ...Option) requestOptions {
	opts := requestDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithScope provides the scopes the returned credentials must cover. A scope
// change relative to the stored credentials forces a renewal.
func WithScope(scope string) Option {
	return func(o interface{}) {
		if v, ok := o.(*requestOptions); ok {
			v.withScope = scope
		}
	}
}

// WithMinTTL provides the minimum remaining lifetime the returned access
// token must have. Stored credentials closer to expiry are renewed first.
func WithMinTTL(d time.Duration) Option {
	return func(o interface{}) {
		if v, ok := o.(*requestOptions); ok {
			v.withMinTTL = d
		}
	}
}

// WithParameters provides optional extra body parameters for the renewal
// request.
func WithParameters(params map[string]string) Option {
	return func(o interface{}) {
		if v, ok := o.(*requestOptions); ok {
			v.withParameters = params
		}
	}
}

// WithHeaders provides optional extra headers for the renewal or revocation
// request.
func WithHeaders(headers map[string]string) Option {
	return func(o interface{}) {
		if v, ok := o.(*requestOptions); ok {
			v.withHeaders = headers
		}
	}
}
