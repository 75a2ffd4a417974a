package crm

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fieldsales/crm-cli/internal/localstore"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// newTestClient points a client with an in-memory store at a gin fake backend
func newTestClient(t *testing.T, r *gin.Engine) *Client {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	config := DefaultConfig()
	config.APIURL = srv.URL
	config.Timeout = 5 * time.Second
	return NewClient(config, localstore.NewMemoryStore(), zerolog.Nop())
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func testToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 1,
		"exp":     exp.Unix(),
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

// signIn stores a session valid for an hour and returns its access token
func signIn(t *testing.T, c *Client) string {
	t.Helper()
	token := testToken(t, time.Now().Add(time.Hour))
	values := map[string]string{
		keyAccessToken:  token,
		keyRefreshToken: "refresh-1",
		keyFirstName:    "Jane",
		keyLastName:     "Mushi",
		keyPosition:     "Sales Officer",
	}
	for k, v := range values {
		if err := c.Store.Set(k, v); err != nil {
			t.Fatalf("store session: %v", err)
		}
	}
	return token
}
