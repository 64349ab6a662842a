package oms

import (
	"encoding/json"
	"strings"

	"github.com/BaSui01/convskills/internal/valuepath"
	"github.com/golang-jwt/jwt/v5"
)

// Context paths consulted when extracting credentials from a turn.
const (
	jwtPath        = "integrations.chat.private.jwt"
	channelUserID  = "integrations.channel.private.user.id"
	jwtDetailsUser = "integrations.chat.private.jwt_details.userID"

	// JWTVariable is the key of the OMS JWT inside the OMS integration context.
	JWTVariable = "OMS_JWT"

	anonymousUserPrefix = "anonymous_IBMuid"
)

// Credentials identify the OMS user a turn runs for.
type Credentials struct {
	JWT    string
	UserID string
}

// String masks the token so credentials can be logged.
func (c Credentials) String() string {
	if c.JWT == "" {
		return "Credentials{UserID:" + c.UserID + "}"
	}
	return "Credentials{JWT:***, UserID:" + c.UserID + "}"
}

// MarshalJSON masks the token.
func (c Credentials) MarshalJSON() ([]byte, error) {
	type masked struct {
		JWT    string `json:"jwt,omitempty"`
		UserID string `json:"user_id,omitempty"`
	}
	out := masked{UserID: c.UserID}
	if c.JWT != "" {
		out.JWT = "***"
	}
	return json.Marshal(out)
}

// CredentialsFromContext extracts the OMS JWT and login id from a turn's
// context payload. omsPath is the OMS integration subtree, e.g.
// "integrations.chat.OMS".
//
// The JWT comes from the private chat integration, else from OMS_JWT in the
// OMS subtree. The user id comes from the channel user, else from the
// decoded JWT details, else from the token's own claims. Anonymous channel
// users have no OMS login and yield an empty id.
func CredentialsFromContext(turnCtx map[string]any, omsPath string) Credentials {
	token := valuepath.GetString(turnCtx, jwtPath)
	if token == "" && omsPath != "" {
		token = valuepath.GetString(turnCtx, omsPath+"."+JWTVariable)
	}

	userID := valuepath.GetString(turnCtx, channelUserID)
	if userID == "" {
		userID = valuepath.GetString(turnCtx, jwtDetailsUser)
	}
	if userID == "" {
		userID = userIDFromClaims(token)
	}
	if strings.HasPrefix(userID, anonymousUserPrefix) {
		userID = ""
	}
	return Credentials{JWT: token, UserID: userID}
}

// userIDFromClaims reads the login id out of an OMS token without verifying
// it; OMS validates the token on every call.
func userIDFromClaims(token string) string {
	if token == "" {
		return ""
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}
	for _, key := range []string{"userID", "sub"} {
		if v, ok := claims[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
