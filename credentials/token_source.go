package credentials

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

// TokenSource returns an oauth2.TokenSource backed by the Manager, so the
// stored credentials can feed any client built on golang.org/x/oauth2. Each
// Token call goes through Manager.Credentials with the given options, which
// renews the underlying credentials as needed.
func (m *Manager) TokenSource(ctx context.Context, opt ...Option) oauth2.TokenSource {
	return &managerTokenSource{m: m, ctx: ctx, opts: opt}
}

type managerTokenSource struct {
	m    *Manager
	ctx  context.Context
	opts []Option
}

var _ oauth2.TokenSource = (*managerTokenSource)(nil)

func (ts *managerTokenSource) Token() (*oauth2.Token, error) {
	const op = "managerTokenSource.Token"
	creds, err := ts.m.Credentials(ts.ctx, ts.opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return creds.Token(), nil
}
