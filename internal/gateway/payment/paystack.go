package paymentgw

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ticketing/internal/pkg/errs"
)

const paystackName = "paystack"

// PaystackGateway は Paystack の transaction API を叩く。
// Webhook は x-paystack-signature ヘッダの HMAC-SHA512（生ボディ対象）で検証する。
type PaystackGateway struct {
	secret  []byte
	baseURL string
	client  *http.Client
}

func NewPaystackGateway(secret, baseURL string, timeout time.Duration) *PaystackGateway {
	return &PaystackGateway{
		secret:  []byte(secret),
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (g *PaystackGateway) Name() string {
	return paystackName
}

type paystackInitRequest struct {
	Reference   string            `json:"reference"`
	Amount      int64             `json:"amount"` // kobo 単位 = cents
	Email       string            `json:"email"`
	CallbackURL string            `json:"callback_url"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type paystackInitResponse struct {
	Status bool `json:"status"`
	Data   struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

func (g *PaystackGateway) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error) {
	body, err := json.Marshal(paystackInitRequest{
		Reference:   req.Reference,
		Amount:      req.AmountCents,
		Email:       req.Email,
		CallbackURL: req.CallbackURL,
		Metadata:    req.Metadata,
	})
	if err != nil {
		return nil, errs.Mark(err, ErrProviderCall)
	}

	var resp paystackInitResponse
	if err := g.do(ctx, http.MethodPost, "/transaction/initialize", body, &resp); err != nil {
		return nil, err
	}
	if !resp.Status {
		return nil, errs.Mark(errs.New("paystack rejected initialization"), ErrProviderCall)
	}

	return &InitializeResult{
		AuthorizationURL: resp.Data.AuthorizationURL,
		ProviderRef:      resp.Data.Reference,
	}, nil
}

type paystackVerifyResponse struct {
	Status bool `json:"status"`
	Data   struct {
		Status    string     `json:"status"` // success | failed | abandoned | pending
		Reference string     `json:"reference"`
		PaidAt    *time.Time `json:"paid_at"`
	} `json:"data"`
}

func (g *PaystackGateway) Verify(ctx context.Context, ref string) (*VerificationResult, error) {
	var resp paystackVerifyResponse
	if err := g.do(ctx, http.MethodGet, "/transaction/verify/"+ref, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Status {
		return nil, errs.Mark(errs.New("paystack verify returned error"), ErrProviderCall)
	}

	return &VerificationResult{
		Reference: resp.Data.Reference,
		Status:    normalizePaystackStatus(resp.Data.Status),
		PaidAt:    resp.Data.PaidAt,
	}, nil
}

func (g *PaystackGateway) VerifySignature(signature string, body []byte) error {
	mac := hmac.New(sha512.New, g.secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if signature == "" || !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}

type paystackWebhookPayload struct {
	Event string `json:"event"` // charge.success など
	Data  struct {
		Reference string     `json:"reference"`
		Status    string     `json:"status"`
		Amount    int64      `json:"amount"`
		PaidAt    *time.Time `json:"paid_at"`
	} `json:"data"`
}

func (g *PaystackGateway) ParseWebhook(body []byte) (*WebhookEvent, error) {
	var p paystackWebhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, errs.Mark(err, ErrMalformedPayload)
	}
	if p.Data.Reference == "" {
		return nil, ErrMalformedPayload
	}

	status := normalizePaystackStatus(p.Data.Status)
	if p.Event == "charge.success" {
		status = StatusSuccess
	}

	return &WebhookEvent{
		Provider:    paystackName,
		EventType:   p.Event,
		Reference:   p.Data.Reference,
		Status:      status,
		AmountCents: p.Data.Amount,
		PaidAt:      p.Data.PaidAt,
	}, nil
}

func normalizePaystackStatus(s string) VerificationStatus {
	switch s {
	case "success":
		return StatusSuccess
	case "failed", "abandoned", "reversed":
		return StatusFailed
	default:
		return StatusPending
	}
}

func (g *PaystackGateway) do(ctx context.Context, method, path string, body []byte, out any) error {
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
		// タイムアウト含む。呼び出し側は indeterminate として扱い verify を再試行する
		return errs.Mark(err, ErrProviderCall)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return errs.Mark(fmt.Errorf("paystack returned %d", resp.StatusCode), ErrProviderCall)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errs.Mark(err, ErrProviderCall)
	}
	return nil
}
