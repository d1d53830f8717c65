// Package api talks to the identity provider's authentication endpoint and
// to the legacy token exchange service. It classifies failures into
// transport errors and decode errors so the coordinator can map them onto
// the completion failure taxonomy.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/qrauth/internal/authenticator/domain"
)

const (
	// HeaderProtocolVersion carries the protocol version in both
	// directions: the client advertises what it speaks, the server reports
	// what it spoke.
	HeaderProtocolVersion = "X-QRAuth-Protocol-Version"

	headerAccept      = "Accept"
	headerAcceptValue = "application/json"

	// DefaultTimeout bounds a single submission when the config does not
	// override it.
	DefaultTimeout = 15 * time.Second
)

// TransportError wraps a network-layer failure (connection refused, DNS,
// timeout, cancelled context). The core never retries these.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "api: transport: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError wraps a response body that could not be decoded into the wire
// format.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return "api: decode: " + e.Err.Error() }
func (e *DecodeError) Unwrap() error { return e.Err }

// Client performs the outbound HTTP calls. The zero value is not usable;
// fill in the fields like any other service struct.
type Client struct {
	HTTP            *http.Client
	ProtocolVersion int
	ExchangeURL     string // token exchange endpoint; empty when disabled
	Logger          *slog.Logger
}

// AuthenticateRequest is an authentication submission.
type AuthenticateRequest struct {
	SessionKey        string
	UserID            string
	Response          string // the OTP; never logged
	Language          string
	NotificationToken string
}

// Authenticate submits the OTP response for a challenge. It returns the
// decoded server response together with the protocol version the server
// reported in its headers. Failures are *TransportError or *DecodeError.
//
// HTTP status codes are deliberately ignored: the provider reports protocol
// results in the body for error statuses too.
func (c *Client) Authenticate(ctx context.Context, authURL string, req AuthenticateRequest) (*domain.ServerResponse, int, error) {
	form := url.Values{
		"operation":           {"login"},
		"sessionKey":          {req.SessionKey},
		"userId":              {req.UserID},
		"response":            {req.Response},
		"language":            {req.Language},
		"notificationAddress": {req.NotificationToken},
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, 0, &TransportError{Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set(headerAccept, headerAcceptValue)
	httpReq.Header.Set(HeaderProtocolVersion, strconv.Itoa(c.ProtocolVersion))

	resp, err := c.httpClient().Do(httpReq)
	if err != nil {
		return nil, 0, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, &TransportError{Err: err}
	}

	serverVersion, _ := strconv.Atoi(resp.Header.Get(HeaderProtocolVersion))

	var decoded domain.ServerResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, serverVersion, &DecodeError{Err: err}
	}
	if !decoded.Code.Valid() {
		return nil, serverVersion, &DecodeError{Err: fmt.Errorf("unknown result code %q", decoded.Code)}
	}

	c.Logger.Debug("authentication submitted",
		"status", resp.StatusCode,
		"result", string(decoded.Code),
		"server_protocol", serverVersion,
	)
	return &decoded, serverVersion, nil
}

// TokenNotFound is the sentinel body the exchange service returns when it
// does not know the presented token pair.
const TokenNotFound = "NOT FOUND"

// RegisterDeviceToken exchanges a device token (and the current notification
// token, if any) for a fresh notification token. The sentinel TokenNotFound
// is returned as a value, not an error.
func (c *Client) RegisterDeviceToken(ctx context.Context, deviceToken, notificationToken string) (string, error) {
	form := url.Values{
		"deviceToken":       {deviceToken},
		"notificationToken": {notificationToken},
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ExchangeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", &TransportError{Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient().Do(httpReq)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("api: token exchange returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	return strings.TrimSpace(string(body)), nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: DefaultTimeout}
}
