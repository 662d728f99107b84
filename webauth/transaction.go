package webauth

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/idkit/idkit/auth"
)

// CompletionFunc delivers the outcome of a browser-delegated operation. A
// transaction invokes its completion exactly once.
type CompletionFunc func(*auth.Credentials, error)

// Transaction is the in-memory record of one outstanding browser-delegated
// operation: the state token correlating the flow with its callback, the
// redirect prefix incoming callbacks must match, and the grant that turns
// callback parameters into credentials.
//
// A Transaction resolves at most once. After the completion fires, its
// reference is dropped so no further invocation can occur.
type Transaction struct {
	ctx         context.Context
	state       string
	redirectURL *url.URL
	grant       Grant
	agent       UserAgent
	logger      hclog.Logger

	mu       sync.Mutex
	callback CompletionFunc
}

// NewLoginTransaction creates a transaction for a login flow.
func NewLoginTransaction(ctx context.Context, redirectURL *url.URL, state string, grant Grant, agent UserAgent, logger hclog.Logger, callback CompletionFunc) (*Transaction, error) {
	const op = "webauth.NewLoginTransaction"
	if redirectURL == nil {
		return nil, fmt.Errorf("%s: redirect URL is nil: %w", op, ErrNilParameter)
	}
	if grant == nil {
		return nil, fmt.Errorf("%s: grant is nil: %w", op, ErrNilParameter)
	}
	if callback == nil {
		return nil, fmt.Errorf("%s: callback is nil: %w", op, ErrNilParameter)
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Transaction{
		ctx:         ctx,
		state:       state,
		redirectURL: redirectURL,
		grant:       grant,
		agent:       agent,
		logger:      logger,
		callback:    callback,
	}, nil
}

// NewLogoutTransaction creates a transaction for a session-clearing flow. It
// resolves successfully (with nil credentials) as soon as a matching callback
// arrives.
func NewLogoutTransaction(ctx context.Context, redirectURL *url.URL, agent UserAgent, logger hclog.Logger, callback CompletionFunc) (*Transaction, error) {
	const op = "webauth.NewLogoutTransaction"
	if redirectURL == nil {
		return nil, fmt.Errorf("%s: redirect URL is nil: %w", op, ErrNilParameter)
	}
	if callback == nil {
		return nil, fmt.Errorf("%s: callback is nil: %w", op, ErrNilParameter)
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Transaction{
		ctx:         ctx,
		redirectURL: redirectURL,
		agent:       agent,
		logger:      logger,
		callback:    callback,
	}, nil
}

// Resume attempts to resolve the transaction with a callback URL. It returns
// false, leaving the transaction live, when the URL does not match the
// transaction's redirect prefix or expected state. Extraneous and late
// callbacks are therefore ignored rather than treated as failures.
func (t *Transaction) Resume(u *url.URL) bool {
	if u == nil {
		return false
	}
	if !strings.HasPrefix(strings.ToLower(u.String()), strings.ToLower(t.redirectURL.String())) {
		return false
	}
	t.logger.Trace("resuming transaction", "host", u.Host, "path", u.Path)

	if t.grant == nil {
		// session-clearing flows carry no parameters worth inspecting
		t.finish(nil, nil)
		return true
	}

	values := t.grant.Values(u)
	if t.state != "" && values["state"] != t.state {
		return false
	}

	if errCode, ok := values["error"]; ok && errCode != "" {
		err := fmt.Errorf("%s (%s): %w", errCode, values["error_description"], ErrAuthenticationFailed)
		t.finish(nil, err)
		return true
	}

	creds, err := t.grant.Credentials(t.ctx, values)
	t.finish(creds, err)
	return true
}

// Cancel aborts the transaction, delivering ErrUserCancelled to its
// completion. Safe to call on an already-resolved transaction.
func (t *Transaction) Cancel() {
	t.finish(nil, ErrUserCancelled)
}

// finish fires the completion exactly once and releases the callback and
// user-agent references.
func (t *Transaction) finish(creds *auth.Credentials, err error) {
	t.mu.Lock()
	callback := t.callback
	agent := t.agent
	t.callback = nil
	t.agent = nil
	t.mu.Unlock()

	if callback == nil {
		return
	}
	if agent != nil {
		agent.Finish(err)
	}
	callback(creds, err)
}
