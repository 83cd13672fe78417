// Package paymentgw normalizes the two payment providers into one shape
// before anything reaches the reconciliation layer.
package paymentgw

import (
	"context"
	"time"

	"ticketing/internal/pkg/errs"
)

var (
	ErrUnknownProvider  = errs.New("unknown payment provider")
	ErrInvalidSignature = errs.New("webhook signature mismatch")
	ErrMalformedPayload = errs.New("malformed webhook payload")
	ErrProviderCall     = errs.New("payment provider call failed")
)

// VerificationStatus はプロバイダ回答の正規化。timeout は failed ではなく
// indeterminate として扱う（ErrProviderCall を返し、後で verify を再試行させる）。
type VerificationStatus string

const (
	StatusSuccess VerificationStatus = "success"
	StatusFailed  VerificationStatus = "failed"
	StatusPending VerificationStatus = "pending"
)

type InitializeRequest struct {
	Reference   string
	AmountCents int64
	Email       string
	CallbackURL string
	Metadata    map[string]string
}

type InitializeResult struct {
	AuthorizationURL string
	QRCode           string // プロバイダによっては URL の代わりに QR データが返る
	ProviderRef      string
}

type VerificationResult struct {
	Reference string
	Status    VerificationStatus
	PaidAt    *time.Time
}

// WebhookEvent はプロバイダ固有ペイロードを畳んだ共通イベント。
// コーディネータはこの形しか見ない。
type WebhookEvent struct {
	Provider    string
	EventType   string
	Reference   string
	Status      VerificationStatus
	AmountCents int64
	PaidAt      *time.Time
}

type Gateway interface {
	Name() string
	Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error)
	Verify(ctx context.Context, reference string) (*VerificationResult, error)
	// VerifySignature は生のボディに対する HMAC 検証。失敗時は一切の副作用より前に弾くこと。
	VerifySignature(signature string, body []byte) error
	ParseWebhook(body []byte) (*WebhookEvent, error)
}

// Registry はプロバイダ名→Gateway の解決。ルーティング層の :provider パラメータから引く。
type Registry struct {
	gateways map[string]Gateway
}

func NewRegistry(gws ...Gateway) *Registry {
	m := make(map[string]Gateway, len(gws))
	for _, gw := range gws {
		m[gw.Name()] = gw
	}
	return &Registry{gateways: m}
}

func (r *Registry) Get(name string) (Gateway, error) {
	gw, ok := r.gateways[name]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return gw, nil
}
