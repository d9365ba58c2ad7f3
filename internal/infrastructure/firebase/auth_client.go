package firebase

import (
	"context"

	"firebase.google.com/go/v4/auth"

	"taskmate/pkg/errors"
)

// AuthProvider is the identity collaborator. The chat core never
// authenticates anyone itself; it only resolves a bearer token to the
// caller's user id.
type AuthProvider struct {
	client *auth.Client
}

func NewAuthProvider(client *auth.Client) *AuthProvider {
	return &AuthProvider{
		client: client,
	}
}

// CurrentUserID verifies the id token and returns the caller's user id.
func (p *AuthProvider) CurrentUserID(ctx context.Context, idToken string) (string, error) {
	token, err := p.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return "", errors.Unauthorized("Invalid or expired token", err)
	}
	return token.UID, nil
}
