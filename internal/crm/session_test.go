package crm

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestLogin(t *testing.T) {
	access := testToken(t, time.Now().Add(2*time.Hour))

	r := newRouter()
	r.POST("/accounts/login/", func(ctx *gin.Context) {
		var body loginRequest
		if err := ctx.ShouldBindJSON(&body); err != nil || body.Password != "secret" {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid credentials"})
			return
		}
		if ctx.GetHeader("Authorization") != "" {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "login must not send a token"})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{
			"tokens":     gin.H{"access": access, "refresh": "refresh-1"},
			"first_name": "Jane",
			"last_name":  "Mushi",
			"position":   "Sales Officer",
		})
	})

	t.Run("stores the session", func(t *testing.T) {
		c := newTestClient(t, r)

		sess, err := c.Login(context.Background(), "jane@example.com", "secret")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if sess.FullName() != "Jane Mushi" {
			t.Fatalf("expected Jane Mushi, got %q", sess.FullName())
		}
		if sess.ExpiresAt.IsZero() || !sess.ExpiresAt.After(time.Now()) {
			t.Fatalf("expected future expiry, got %v", sess.ExpiresAt)
		}

		refresh, ok, _ := c.Store.Get(keyRefreshToken)
		if !ok || refresh != "refresh-1" {
			t.Fatalf("expected refresh token stored, got %q", refresh)
		}
		position, _, _ := c.Store.Get(keyPosition)
		if position != "Sales Officer" {
			t.Fatalf("expected position stored, got %q", position)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		c := newTestClient(t, r)

		_, err := c.Login(context.Background(), "jane@example.com", "nope")
		if !IsBadRequest(err) {
			t.Fatalf("expected 400 API error, got %v", err)
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.Message != "Invalid credentials" {
			t.Fatalf("expected server message, got %v", err)
		}
		if _, err := c.CurrentSession(); !errors.Is(err, ErrNotLoggedIn) {
			t.Fatalf("expected no session, got %v", err)
		}
	})
}

func TestLogoutClearsSessionWhenServerFails(t *testing.T) {
	var mu sync.Mutex
	var refresh string
	r := newRouter()
	r.POST("/accounts/logout/", func(ctx *gin.Context) {
		var body map[string]string
		_ = ctx.ShouldBindJSON(&body)
		mu.Lock()
		refresh = body["refresh"]
		mu.Unlock()
		ctx.JSON(http.StatusInternalServerError, gin.H{"detail": "boom"})
	})

	c := newTestClient(t, r)
	signIn(t, c)

	if err := c.Logout(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if refresh != "refresh-1" {
		t.Fatalf("expected refresh token sent, got %q", refresh)
	}
	if _, err := c.CurrentSession(); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("expected ErrNotLoggedIn, got %v", err)
	}
}

func TestRequestAuth(t *testing.T) {
	var hits atomic.Int32
	var mu sync.Mutex
	var gotAuth, gotRequestID string

	r := newRouter()
	r.GET("/sales/sales-list/", func(ctx *gin.Context) {
		hits.Add(1)
		mu.Lock()
		gotAuth = ctx.GetHeader("Authorization")
		gotRequestID = ctx.GetHeader("X-Request-ID")
		mu.Unlock()
		ctx.JSON(http.StatusOK, []gin.H{{"id": 1, "customer_name": "Acme", "total_price": "10.00"}})
	})

	t.Run("not logged in", func(t *testing.T) {
		hits.Store(0)
		c := newTestClient(t, r)

		_, err := c.ListSales(context.Background())
		if !errors.Is(err, ErrNotLoggedIn) {
			t.Fatalf("expected ErrNotLoggedIn, got %v", err)
		}
		if hits.Load() != 0 {
			t.Fatalf("expected no request, got %d", hits.Load())
		}
	})

	t.Run("expired token", func(t *testing.T) {
		hits.Store(0)
		c := newTestClient(t, r)
		if err := c.Store.Set(keyAccessToken, testToken(t, time.Now().Add(-time.Minute))); err != nil {
			t.Fatalf("set: %v", err)
		}

		_, err := c.ListSales(context.Background())
		if !errors.Is(err, ErrSessionExpired) {
			t.Fatalf("expected ErrSessionExpired, got %v", err)
		}
		if hits.Load() != 0 {
			t.Fatalf("expected no request, got %d", hits.Load())
		}
	})

	t.Run("bearer token and request id", func(t *testing.T) {
		hits.Store(0)
		c := newTestClient(t, r)
		token := signIn(t, c)

		sales, err := c.ListSales(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(sales) != 1 || sales[0].TotalPrice.String() != "10" {
			t.Fatalf("unexpected sales: %+v", sales)
		}
		mu.Lock()
		defer mu.Unlock()
		if gotAuth != "Bearer "+token {
			t.Fatalf("expected bearer header, got %q", gotAuth)
		}
		if gotRequestID == "" {
			t.Fatal("expected X-Request-ID header")
		}
	})
}

func TestNewAPIError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"detail", http.StatusNotFound, `{"detail":"Not found."}`, "Not found."},
		{"error key", http.StatusBadRequest, `{"error":"Invalid credentials"}`, "Invalid credentials"},
		{"field errors", http.StatusBadRequest, `{"password":["This field is required."],"email":["This field is required."]}`,
			"email: This field is required.; password: This field is required."},
		{"not json", http.StatusBadGateway, `<html>bad gateway</html>`, "Bad Gateway"},
		{"empty object", http.StatusInternalServerError, `{}`, "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newAPIError(tt.status, []byte(tt.body))
			if err.Message != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, err.Message)
			}
			if err.StatusCode != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, err.StatusCode)
			}
		})
	}
}
