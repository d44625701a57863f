package firebase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDevTokenVerifier(t *testing.T) {
	v := DevTokenVerifier{}

	uid, err := v.VerifyToken(context.Background(), "dev:alice")
	assert.NoError(t, err)
	assert.Equal(t, "alice", uid)

	for _, token := range []string{"alice", "dev:", ""} {
		_, err := v.VerifyToken(context.Background(), token)
		assert.Error(t, err, token)
	}
}
