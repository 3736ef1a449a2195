// Package zarinpal is a client for the Zarinpal v4 payment gateway.
package zarinpal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const (
	productionURL = "https://payment.zarinpal.com"
	sandboxURL    = "https://sandbox.zarinpal.com"

	requestPath = "/pg/v4/payment/request.json"
	verifyPath  = "/pg/v4/payment/verify.json"
	startPath   = "/pg/StartPay/"

	// CodeSuccess is returned by request and by the first verify of a payment.
	CodeSuccess = 100
	// CodeAlreadyVerified is returned when a payment is verified again.
	CodeAlreadyVerified = 101
)

// Error is a failure reported by the gateway.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("zarinpal error %d: %s", e.Code, e.Message)
}

// Client talks to one Zarinpal merchant account.
type Client struct {
	merchantID string
	baseURL    string
	currency   string
	http       *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at another host, e.g. a test server.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithCurrency sets the currency amounts are expressed in (IRR or IRT).
func WithCurrency(currency string) Option {
	return func(c *Client) { c.currency = currency }
}

func NewClient(merchantID string, sandbox bool, opts ...Option) *Client {
	c := &Client{
		merchantID: merchantID,
		baseURL:    productionURL,
		currency:   "IRR",
		http:       &http.Client{Timeout: 15 * time.Second},
	}
	if sandbox {
		c.baseURL = sandboxURL
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PaymentRequest describes a payment to open.
type PaymentRequest struct {
	Amount      int64
	Description string
	CallbackURL string
	Mobile      string
	OrderID     string
}

// Verification is the result of a successful verify call.
type Verification struct {
	Code     int
	RefID    string
	CardPan  string
	CardHash string
	Fee      int64
}

// AlreadyVerified reports whether the payment had been verified before.
func (v Verification) AlreadyVerified() bool {
	return v.Code == CodeAlreadyVerified
}

type requestBody struct {
	MerchantID  string            `json:"merchant_id"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency,omitempty"`
	CallbackURL string            `json:"callback_url"`
	Description string            `json:"description"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type verifyBody struct {
	MerchantID string `json:"merchant_id"`
	Amount     int64  `json:"amount"`
	Authority  string `json:"authority"`
}

// envelope is the shape of every gateway response. On success "errors" is
// an empty array and on failure "data" is; both are decoded lazily.
type envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors json.RawMessage `json:"errors"`
}

type gatewayError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type requestData struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Authority string `json:"authority"`
}

type verifyData struct {
	Code     int         `json:"code"`
	Message  string      `json:"message"`
	RefID    json.Number `json:"ref_id"`
	CardPan  string      `json:"card_pan"`
	CardHash string      `json:"card_hash"`
	Fee      int64       `json:"fee"`
}

// Request opens a payment and returns its authority.
func (c *Client) Request(ctx context.Context, req PaymentRequest) (string, error) {
	body := requestBody{
		MerchantID:  c.merchantID,
		Amount:      req.Amount,
		Currency:    c.currency,
		CallbackURL: req.CallbackURL,
		Description: req.Description,
	}
	if req.Mobile != "" || req.OrderID != "" {
		body.Metadata = map[string]string{}
		if req.Mobile != "" {
			body.Metadata["mobile"] = req.Mobile
		}
		if req.OrderID != "" {
			body.Metadata["order_id"] = req.OrderID
		}
	}

	var data requestData
	if err := c.post(ctx, requestPath, body, &data); err != nil {
		return "", err
	}
	if data.Code != CodeSuccess || data.Authority == "" {
		return "", &Error{Code: data.Code, Message: data.Message}
	}
	return data.Authority, nil
}

// Verify confirms a payment after the customer returns from the gateway.
// The amount must match the requested amount.
func (c *Client) Verify(ctx context.Context, amount int64, authority string) (Verification, error) {
	var data verifyData
	err := c.post(ctx, verifyPath, verifyBody{MerchantID: c.merchantID, Amount: amount, Authority: authority}, &data)
	if err != nil {
		return Verification{}, err
	}
	if data.Code != CodeSuccess && data.Code != CodeAlreadyVerified {
		return Verification{}, &Error{Code: data.Code, Message: data.Message}
	}
	return Verification{
		Code:     data.Code,
		RefID:    data.RefID.String(),
		CardPan:  data.CardPan,
		CardHash: data.CardHash,
		Fee:      data.Fee,
	}, nil
}

// StartPayURL is the page the customer is redirected to.
func (c *Client) StartPayURL(authority string) string {
	return c.baseURL + startPath + authority
}

func (c *Client) post(ctx context.Context, path string, payload, out interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach zarinpal: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read zarinpal response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("failed to parse zarinpal response (%d): %w", resp.StatusCode, err)
	}

	if isObject(env.Errors) {
		var gerr gatewayError
		if err := json.Unmarshal(env.Errors, &gerr); err != nil {
			return fmt.Errorf("failed to parse zarinpal error: %w", err)
		}
		return &Error{Code: gerr.Code, Message: gerr.Message}
	}
	if !isObject(env.Data) {
		return &Error{Code: resp.StatusCode, Message: "empty response from gateway (HTTP " + strconv.Itoa(resp.StatusCode) + ")"}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to parse zarinpal data: %w", err)
	}
	return nil
}

func isObject(raw json.RawMessage) bool {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		case '{':
			return true
		default:
			return false
		}
	}
	return false
}
