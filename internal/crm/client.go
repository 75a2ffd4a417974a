package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fieldsales/crm-cli/internal/localstore"
	"github.com/fieldsales/crm-cli/internal/salesflow"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Colors for terminal output
const (
	Red    = "\033[0;31m"
	Green  = "\033[0;32m"
	Yellow = "\033[1;33m"
	Blue   = "\033[0;34m"
	Cyan   = "\033[0;36m"
	Reset  = "\033[0m"
)

// Client handles API requests
type Client struct {
	Config     *Config
	HTTPClient *http.Client
	Store      localstore.Store
	Log        zerolog.Logger

	flow *salesflow.Controller
	now  func() time.Time
}

// NewClient creates a new API client
func NewClient(config *Config, store localstore.Store, log zerolog.Logger) *Client {
	c := &Client{
		Config: config,
		HTTPClient: &http.Client{
			Timeout: config.Timeout,
		},
		Store: store,
		Log:   log,
		now:   time.Now,
	}
	c.flow = salesflow.NewController(c, store, log)
	return c
}

// Flow is the sales order workflow controller bound to this client
func (c *Client) Flow() *salesflow.Controller { return c.flow }

// Request makes an authenticated API request and decodes the JSON reply into out
func (c *Client) Request(ctx context.Context, method, path string, body, out interface{}) error {
	return c.do(ctx, method, path, body, out, true)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}, auth bool) error {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.Config.APIURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if auth {
		sess, err := c.CurrentSession()
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+sess.AccessToken)
	}

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.Log.Error().
			Err(err).
			Str("request_id", requestID).
			Str("method", method).
			Str("path", path).
			Msg("request failed")
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	c.Log.Debug().
		Str("request_id", requestID).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newAPIError(resp.StatusCode, respBody)
		if resp.StatusCode != http.StatusNotFound {
			c.Log.Warn().
				Str("request_id", requestID).
				Str("path", path).
				Int("status", resp.StatusCode).
				Str("message", apiErr.Message).
				Msg("API error")
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// FetchVisit implements salesflow.API
func (c *Client) FetchVisit(ctx context.Context, visitID int64) (*salesflow.Visit, error) {
	var visit salesflow.Visit
	if err := c.Request(ctx, "GET", fmt.Sprintf("/visits/visit-details/%d/", visitID), nil, &visit); err != nil {
		return nil, err
	}
	return &visit, nil
}

// FetchSaleForVisit implements salesflow.API; a 404 means no sale yet
func (c *Client) FetchSaleForVisit(ctx context.Context, visitID int64) (*salesflow.Sale, error) {
	var sale salesflow.Sale
	err := c.Request(ctx, "GET", fmt.Sprintf("/sales/from-visit/%d/", visitID), nil, &sale)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

// UpsertSaleFromVisit implements salesflow.API
func (c *Client) UpsertSaleFromVisit(ctx context.Context, visitID int64, payload salesflow.SubmitPayload) (*salesflow.Sale, error) {
	var sale salesflow.Sale
	if err := c.Request(ctx, "POST", fmt.Sprintf("/sales/create-from-visit/%d/", visitID), payload, &sale); err != nil {
		return nil, err
	}
	return &sale, nil
}

// CmdPing tests the connection and the stored session
func (c *Client) CmdPing() error {
	fmt.Printf("%sTesting connection to %s...%s\n", Blue, c.Config.APIURL, Reset)

	var user UserProfile
	if err := c.Request(context.Background(), "GET", "/accounts/user/", nil, &user); err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}

	fmt.Printf("%s✓ Connection successful%s\n", Green, Reset)
	fmt.Printf("  Authenticated as: %s%s %s%s\n", Yellow, user.FirstName, user.LastName, Reset)
	if user.Position != "" {
		fmt.Printf("  Position: %s\n", user.Position)
	}
	return nil
}

// CmdConfig shows current configuration
func (c *Client) CmdConfig() error {
	fmt.Printf("%sCurrent configuration:%s\n", Blue, Reset)
	if c.Config.Path() != "" {
		fmt.Printf("  Config file: %s\n", c.Config.Path())
	} else {
		fmt.Printf("  Config file: %snone%s (environment only)\n", Yellow, Reset)
	}
	fmt.Printf("  API URL: %s\n", c.Config.APIURL)
	fmt.Printf("  Store: %s", c.Config.StoreKind)
	if c.Config.StorePath != "" {
		fmt.Printf(" (%s)", c.Config.StorePath)
	}
	fmt.Println()
	fmt.Printf("  Log file: %s (%s)\n", c.Config.LogFile, c.Config.LogLevel)
	fmt.Printf("  Currency: %s\n", c.Config.Currency)
	fmt.Printf("  Timeout: %s\n", c.Config.Timeout)
	if c.Config.RefreshInterval > 0 {
		fmt.Printf("  Auto refresh: every %s\n", c.Config.RefreshInterval)
	} else {
		fmt.Printf("  Auto refresh: %soff%s\n", Yellow, Reset)
	}

	if ids, err := c.Flow().Drafts().Visits(); err == nil {
		fmt.Printf("  Local drafts: %d\n", len(ids))
	}

	fmt.Println()
	sess, err := c.CurrentSession()
	switch {
	case err == nil:
		fmt.Printf("  Session: %s%s%s", Green, sess.FullName(), Reset)
		if sess.Position != "" {
			fmt.Printf(" (%s)", sess.Position)
		}
		if !sess.ExpiresAt.IsZero() {
			fmt.Printf(", expires %s", sess.ExpiresAt.Local().Format("2006-01-02 15:04"))
		}
		fmt.Println()
	case errors.Is(err, ErrSessionExpired):
		fmt.Printf("  Session: %sexpired%s\n", Red, Reset)
	default:
		fmt.Printf("  Session: %snot logged in%s\n", Yellow, Reset)
	}
	return nil
}
