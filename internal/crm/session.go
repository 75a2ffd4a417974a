package crm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session keys in the local store
const (
	keyAccessToken  = "accessToken"
	keyRefreshToken = "refreshToken"
	keyFirstName    = "firstName"
	keyLastName     = "lastName"
	keyPosition     = "position"
)

var sessionKeys = []string{keyAccessToken, keyRefreshToken, keyFirstName, keyLastName, keyPosition}

// Session is the logged in user as kept in the local store
type Session struct {
	AccessToken  string
	RefreshToken string
	FirstName    string
	LastName     string
	Position     string
	ExpiresAt    time.Time // zero when the token carries no exp claim
}

func (s *Session) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// Expired reports whether the access token is past its exp claim
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Tokens struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	} `json:"tokens"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Position  string `json:"position"`
}

// tokenExpiry reads the exp claim without verifying the signature; the
// server does the verification, the client only wants to know when to stop.
func tokenExpiry(token string) (time.Time, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed access token: %w", err)
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, err
	}
	return exp.Time, nil
}

// Login authenticates and stores the tokens and profile fields
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var resp loginResponse
	err := c.do(ctx, "POST", "/accounts/login/", loginRequest{Email: email, Password: password}, &resp, false)
	if err != nil {
		return nil, err
	}
	if resp.Tokens.Access == "" {
		return nil, fmt.Errorf("login response carried no access token")
	}

	values := map[string]string{
		keyAccessToken:  resp.Tokens.Access,
		keyRefreshToken: resp.Tokens.Refresh,
		keyFirstName:    resp.FirstName,
		keyLastName:     resp.LastName,
		keyPosition:     resp.Position,
	}
	if err := c.Store.SetMany(values); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	c.Log.Info().Str("position", resp.Position).Msg("logged in")
	return c.CurrentSession()
}

// Logout tells the server to blacklist the refresh token, then forgets the
// session locally whatever the server said
func (c *Client) Logout(ctx context.Context) error {
	sess, err := c.CurrentSession()
	if err == nil && sess.RefreshToken != "" {
		body := map[string]string{"refresh": sess.RefreshToken}
		if err := c.do(ctx, "POST", "/accounts/logout/", body, nil, true); err != nil {
			c.Log.Warn().Err(err).Msg("server logout failed")
		}
	}

	for _, key := range sessionKeys {
		if err := c.Store.Delete(key); err != nil {
			return fmt.Errorf("failed to clear session: %w", err)
		}
	}
	c.Log.Info().Msg("logged out")
	return nil
}

// CurrentSession returns the stored session; ErrNotLoggedIn without a token
// and ErrSessionExpired once the token's exp has passed
func (c *Client) CurrentSession() (*Session, error) {
	values := map[string]string{}
	for _, key := range sessionKeys {
		v, _, err := c.Store.Get(key)
		if err != nil {
			return nil, fmt.Errorf("failed to read session: %w", err)
		}
		values[key] = v
	}
	if values[keyAccessToken] == "" {
		return nil, ErrNotLoggedIn
	}

	sess := &Session{
		AccessToken:  values[keyAccessToken],
		RefreshToken: values[keyRefreshToken],
		FirstName:    values[keyFirstName],
		LastName:     values[keyLastName],
		Position:     values[keyPosition],
	}

	exp, err := tokenExpiry(sess.AccessToken)
	if err != nil {
		c.Log.Debug().Err(err).Msg("access token expiry unknown")
	}
	sess.ExpiresAt = exp
	if sess.Expired(c.now()) {
		return sess, ErrSessionExpired
	}
	return sess, nil
}

// UserProfile is the /accounts/user/ record
type UserProfile struct {
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	CompanyName string `json:"company_name"`
	Position    string `json:"position"`
	Zone        string `json:"zone"`
	Contact     string `json:"contact"`
}
