package auth

import (
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

// clientOptions is the set of available options for New.
type clientOptions struct {
	withTransport  Transport
	withProviderCA string
	withLogger     hclog.Logger
	withProofer    ProofGenerator
}

func clientDefaults() clientOptions {
	return clientOptions{
		withLogger: hclog.NewNullLogger(),
	}
}

// getClientOpts gets the client defaults and applies the opt overrides passed
// in.
func getClientOpts(opt ...Option) clientOptions {
	opts := clientDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithTransport provides an optional Transport, replacing the default
// http-backed one. Intended for tests and callers with bespoke networking.
func WithTransport(t Transport) Option {
	return func(o interface{}) {
		if v, ok := o.(*clientOptions); ok {
			v.withTransport = t
		}
	}
}

// WithProviderCA provides an optional CA cert PEM to use when sending
// requests to the provider.
func WithProviderCA(caPEM string) Option {
	return func(o interface{}) {
		if v, ok := o.(*clientOptions); ok {
			v.withProviderCA = caPEM
		}
	}
}

// WithLogger provides an optional logger. Request/response bodies are never
// logged; tokens appear only in redacted form.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if v, ok := o.(*clientOptions); ok {
			v.withLogger = l
		}
	}
}

// WithProofGenerator provides an optional proof-of-possession generator.
// When set, token endpoint requests carry a DPoP proof header and the client
// honors the provider's nonce-required handshake with a single retry.
func WithProofGenerator(p ProofGenerator) Option {
	return func(o interface{}) {
		if v, ok := o.(*clientOptions); ok {
			v.withProofer = p
		}
	}
}

// requestOptions is the set of available options for token operations such as
// RenewAuth and RevokeToken.
type requestOptions struct {
	withScope      string
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

// WithScope provides an optional scope override for a token renewal.
func WithScope(scope string) Option {
	return func(o interface{}) {
		if v, ok := o.(*requestOptions); ok {
			v.withScope = scope
		}
	}
}

// WithParameters provides optional extra body parameters for a token
// operation.
func WithParameters(params map[string]string) Option {
	return func(o interface{}) {
		if v, ok := o.(*requestOptions); ok {
			v.withParameters = params
		}
	}
}

// WithHeaders provides optional extra headers for a token operation.
func WithHeaders(headers map[string]string) Option {
	return func(o interface{}) {
		if v, ok := o.(*requestOptions); ok {
			v.withHeaders = headers
		}
	}
}
