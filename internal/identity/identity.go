package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hakanakfirat27/zeugma-realtime/internal/entity"
)

// Claims mirrors the access-token payload issued by the platform backend.
type Claims struct {
	Sub         string `json:"sub"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Iat         int64  `json:"iat"`
	Exp         int64  `json:"exp"`
	jwt.RegisteredClaims
}

// Identity is the current user as seen by the sync core. The reconciler and
// the message store need it to tell own messages from the counterpart's.
type Identity struct {
	User  entity.UserSummary
	Token string
	Exp   time.Time
}

// FromToken decodes the current user from the access token's claims. The
// signature is not verified here: the backend rejects a forged token on every
// call, the core only needs the identity embedded in it.
func FromToken(token string) (*Identity, error) {
	var claims Claims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("failed to parse access token: %w", err)
	}

	if claims.Sub == "" {
		return nil, fmt.Errorf("access token has no subject claim")
	}

	name := claims.DisplayName
	if name == "" {
		name = claims.Username
	}

	return &Identity{
		User: entity.UserSummary{
			ID:          claims.Sub,
			DisplayName: name,
			Initials:    entity.InitialsOf(name),
		},
		Token: token,
		Exp:   time.Unix(claims.Exp, 0),
	}, nil
}

// Expired reports whether the token's exp claim has passed. The core refuses
// to start with an expired token instead of looping on 401s.
func (i *Identity) Expired() bool {
	return i.Exp.Unix() > 0 && i.Exp.Before(time.Now())
}
