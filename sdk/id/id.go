package id

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-uuid"
)

// New generates an ID with an optional prefix. The ID is suitable for use as
// an OAuth2 state or an OIDC nonce.
func New(optionalPrefix string) (string, error) {
	id, err := uuid.GenerateUUID()
	if err != nil {
		return "", fmt.Errorf("unable to generate id: %w", err)
	}
	id = strings.ReplaceAll(id, "-", "")
	switch {
	case optionalPrefix != "":
		return fmt.Sprintf("%s_%s", optionalPrefix, id), nil
	default:
		return id, nil
	}
}
