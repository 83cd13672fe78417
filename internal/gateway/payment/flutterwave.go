package paymentgw

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"ticketing/internal/pkg/errs"
)

const flutterwaveName = "flutterwave"

// FlutterwaveGateway は Flutterwave v3 API を叩く。
// Webhook は verif-hash ヘッダの HMAC-SHA256（生ボディ対象）で検証する。
type FlutterwaveGateway struct {
	secret  []byte
	baseURL string
	client  *http.Client
}

func NewFlutterwaveGateway(secret, baseURL string, timeout time.Duration) *FlutterwaveGateway {
	return &FlutterwaveGateway{
		secret:  []byte(secret),
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (g *FlutterwaveGateway) Name() string {
	return flutterwaveName
}

type flwInitRequest struct {
	TxRef       string            `json:"tx_ref"`
	Amount      string            `json:"amount"`
	Currency    string            `json:"currency"`
	RedirectURL string            `json:"redirect_url"`
	Customer    map[string]string `json:"customer"`
	Meta        map[string]string `json:"meta,omitempty"`
}

type flwInitResponse struct {
	Status string `json:"status"`
	Data   struct {
		Link string `json:"link"`
	} `json:"data"`
}

func (g *FlutterwaveGateway) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error) {
	body, err := json.Marshal(flwInitRequest{
		TxRef:       req.Reference,
		Amount:      fmt.Sprintf("%d.%02d", req.AmountCents/100, req.AmountCents%100),
		Currency:    "NGN",
		RedirectURL: req.CallbackURL,
		Customer:    map[string]string{"email": req.Email},
		Meta:        req.Metadata,
	})
	if err != nil {
		return nil, errs.Mark(err, ErrProviderCall)
	}

	var resp flwInitResponse
	if err := g.do(ctx, http.MethodPost, "/payments", body, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "success" {
		return nil, errs.Mark(errs.New("flutterwave rejected initialization"), ErrProviderCall)
	}

	return &InitializeResult{
		AuthorizationURL: resp.Data.Link,
		ProviderRef:      req.Reference,
	}, nil
}

type flwVerifyResponse struct {
	Status string `json:"status"`
	Data   struct {
		TxRef     string     `json:"tx_ref"`
		Status    string     `json:"status"` // successful | failed | pending
		CreatedAt *time.Time `json:"created_at"`
	} `json:"data"`
}

func (g *FlutterwaveGateway) Verify(ctx context.Context, ref string) (*VerificationResult, error) {
	var resp flwVerifyResponse
	path := "/transactions/verify_by_reference?tx_ref=" + url.QueryEscape(ref)
	if err := g.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "success" {
		return nil, errs.Mark(errs.New("flutterwave verify returned error"), ErrProviderCall)
	}

	return &VerificationResult{
		Reference: resp.Data.TxRef,
		Status:    normalizeFlutterwaveStatus(resp.Data.Status),
		PaidAt:    resp.Data.CreatedAt,
	}, nil
}

func (g *FlutterwaveGateway) VerifySignature(signature string, body []byte) error {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if signature == "" || !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}

type flwWebhookPayload struct {
	Event string `json:"event"` // charge.completed など
	Data  struct {
		TxRef     string     `json:"tx_ref"`
		Status    string     `json:"status"`
		Amount    float64    `json:"amount"`
		CreatedAt *time.Time `json:"created_at"`
	} `json:"data"`
}

func (g *FlutterwaveGateway) ParseWebhook(body []byte) (*WebhookEvent, error) {
	var p flwWebhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, errs.Mark(err, ErrMalformedPayload)
	}
	if p.Data.TxRef == "" {
		return nil, ErrMalformedPayload
	}

	return &WebhookEvent{
		Provider:    flutterwaveName,
		EventType:   p.Event,
		Reference:   p.Data.TxRef,
		Status:      normalizeFlutterwaveStatus(p.Data.Status),
		AmountCents: int64(p.Data.Amount * 100),
		PaidAt:      p.Data.CreatedAt,
	}, nil
}

func normalizeFlutterwaveStatus(s string) VerificationStatus {
	switch s {
	case "successful":
		return StatusSuccess
	case "failed", "cancelled":
		return StatusFailed
	default:
		return StatusPending
	}
}

func (g *FlutterwaveGateway) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return errs.Mark(err, ErrProviderCall)
	}
	req.Header.Set("Authorization", "Bearer "+string(g.secret))
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return errs.Mark(err, ErrProviderCall)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return errs.Mark(fmt.Errorf("flutterwave returned %d", resp.StatusCode), ErrProviderCall)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errs.Mark(err, ErrProviderCall)
	}
	return nil
}
