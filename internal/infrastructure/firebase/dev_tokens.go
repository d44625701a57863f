package firebase

import (
	"context"
	"errors"
	"strings"
)

const devTokenPrefix = "dev:"

// DevTokenVerifier accepts "dev:<uid>" bearer tokens. It is only wired when
// running in development against the in-memory store.
type DevTokenVerifier struct{}

func (DevTokenVerifier) VerifyToken(ctx context.Context, token string) (string, error) {
	uid := strings.TrimPrefix(token, devTokenPrefix)
	if uid == token || uid == "" {
		return "", errors.New("invalid development token")
	}
	return uid, nil
}
