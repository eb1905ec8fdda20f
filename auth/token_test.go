package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func Test_Token_Roundtrip(t *testing.T) {
	req := require.New(t)
	token, err := GenerateToken("id-123", "alice", time.Hour)
	req.NoError(err)
	req.NotEmpty(token)

	claims, err := ValidateToken(token)
	req.NoError(err)
	req.Equal("id-123", claims.IdentityID)
	req.Equal("alice", claims.Handle)
}

func Test_Expired_Token_Is_Rejected(t *testing.T) {
	req := require.New(t)
	token, err := GenerateToken("id-123", "alice", -time.Minute)
	req.NoError(err)

	_, err = ValidateToken(token)
	req.Error(err)
}

func Test_ValidateLogin(t *testing.T) {
	req := require.New(t)
	req.NoError(ValidateLogin(LoginRequest{Handle: "alice", Phone: "555-0100"}))
	req.Error(ValidateLogin(LoginRequest{Handle: "", Phone: "555-0100"}))
	req.Error(ValidateLogin(LoginRequest{Handle: "alice", Phone: "123"}))
}
