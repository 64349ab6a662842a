package oms

import (
	"encoding/json"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const omsPath = "integrations.chat.OMS"

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("oms-secret"))
	require.NoError(t, err)
	return tok
}

func TestCredentialsFromContext(t *testing.T) {
	claimsToken := signedToken(t, jwt.MapClaims{"sub": "csr1"})

	tests := []struct {
		name string
		ctx  map[string]any
		want Credentials
	}{
		{
			name: "private chat integration",
			ctx: map[string]any{"integrations": map[string]any{
				"chat": map[string]any{"private": map[string]any{
					"jwt":         "private-jwt",
					"jwt_details": map[string]any{"userID": "admin"},
				}},
			}},
			want: Credentials{JWT: "private-jwt", UserID: "admin"},
		},
		{
			name: "oms session context and channel user",
			ctx: map[string]any{"integrations": map[string]any{
				"chat":    map[string]any{"OMS": map[string]any{"OMS_JWT": "session-jwt"}},
				"channel": map[string]any{"private": map[string]any{"user": map[string]any{"id": "csr2"}}},
			}},
			want: Credentials{JWT: "session-jwt", UserID: "csr2"},
		},
		{
			name: "anonymous channel user",
			ctx: map[string]any{"integrations": map[string]any{
				"channel": map[string]any{"private": map[string]any{"user": map[string]any{"id": "anonymous_IBMuid-123"}}},
			}},
			want: Credentials{},
		},
		{
			name: "user id from token claims",
			ctx: map[string]any{"integrations": map[string]any{
				"chat": map[string]any{"private": map[string]any{"jwt": claimsToken}},
			}},
			want: Credentials{JWT: claimsToken, UserID: "csr1"},
		},
		{
			name: "opaque token",
			ctx: map[string]any{"integrations": map[string]any{
				"chat": map[string]any{"private": map[string]any{"jwt": "not-a-jwt"}},
			}},
			want: Credentials{JWT: "not-a-jwt"},
		},
		{name: "empty", ctx: nil, want: Credentials{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CredentialsFromContext(tt.ctx, omsPath))
		})
	}
}

func TestCredentials_Masked(t *testing.T) {
	c := Credentials{JWT: "secret-token", UserID: "admin"}
	assert.NotContains(t, c.String(), "secret-token")

	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret-token")
	assert.Contains(t, string(data), `"user_id":"admin"`)
}
