//go:build unit

package paymentgw_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"testing"
	"time"

	paymentgw "ticketing/internal/gateway/payment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	paystackSecret    = "sk_test_paystack"
	flutterwaveSecret = "sk_test_flutterwave"
)

func signSHA512(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func signSHA256(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestPaystackSignature(t *testing.T) {
	gw := paymentgw.NewPaystackGateway(paystackSecret, "http://localhost", time.Second)
	body := []byte(`{"event":"charge.success","data":{"reference":"PAY-ABC","status":"success","amount":15000}}`)

	t.Run("valid signature passes", func(t *testing.T) {
		assert.NoError(t, gw.VerifySignature(signSHA512(paystackSecret, body), body))
	})

	t.Run("missing signature is rejected", func(t *testing.T) {
		assert.ErrorIs(t, gw.VerifySignature("", body), paymentgw.ErrInvalidSignature)
	})

	t.Run("tampered body is rejected", func(t *testing.T) {
		sig := signSHA512(paystackSecret, body)
		tampered := []byte(`{"event":"charge.success","data":{"reference":"PAY-XYZ","status":"success","amount":15000}}`)
		assert.ErrorIs(t, gw.VerifySignature(sig, tampered), paymentgw.ErrInvalidSignature)
	})

	t.Run("wrong secret is rejected", func(t *testing.T) {
		assert.ErrorIs(t, gw.VerifySignature(signSHA512("sk_other", body), body), paymentgw.ErrInvalidSignature)
	})
}

func TestFlutterwaveSignature(t *testing.T) {
	gw := paymentgw.NewFlutterwaveGateway(flutterwaveSecret, "http://localhost", time.Second)
	body := []byte(`{"event":"charge.completed","data":{"tx_ref":"PAY-ABC","status":"successful","amount":150}}`)

	t.Run("valid signature passes", func(t *testing.T) {
		assert.NoError(t, gw.VerifySignature(signSHA256(flutterwaveSecret, body), body))
	})

	t.Run("mismatched signature is rejected", func(t *testing.T) {
		assert.ErrorIs(t, gw.VerifySignature(signSHA256("sk_other", body), body), paymentgw.ErrInvalidSignature)
	})
}

func TestPaystackParseWebhook(t *testing.T) {
	gw := paymentgw.NewPaystackGateway(paystackSecret, "http://localhost", time.Second)

	t.Run("charge.success normalizes to success", func(t *testing.T) {
		ev, err := gw.ParseWebhook([]byte(`{"event":"charge.success","data":{"reference":"PAY-ABC","status":"success","amount":15000}}`))
		require.NoError(t, err)
		assert.Equal(t, "paystack", ev.Provider)
		assert.Equal(t, "PAY-ABC", ev.Reference)
		assert.Equal(t, paymentgw.StatusSuccess, ev.Status)
		assert.Equal(t, int64(15000), ev.AmountCents)
	})

	t.Run("failed charge normalizes to failed", func(t *testing.T) {
		ev, err := gw.ParseWebhook([]byte(`{"event":"charge.failed","data":{"reference":"PAY-ABC","status":"failed","amount":15000}}`))
		require.NoError(t, err)
		assert.Equal(t, paymentgw.StatusFailed, ev.Status)
	})

	t.Run("missing reference is malformed", func(t *testing.T) {
		_, err := gw.ParseWebhook([]byte(`{"event":"charge.success","data":{"status":"success"}}`))
		assert.ErrorIs(t, err, paymentgw.ErrMalformedPayload)
	})

	t.Run("invalid json is malformed", func(t *testing.T) {
		_, err := gw.ParseWebhook([]byte(`{not-json`))
		assert.ErrorIs(t, err, paymentgw.ErrMalformedPayload)
	})
}

func TestFlutterwaveParseWebhook(t *testing.T) {
	gw := paymentgw.NewFlutterwaveGateway(flutterwaveSecret, "http://localhost", time.Second)

	ev, err := gw.ParseWebhook([]byte(`{"event":"charge.completed","data":{"tx_ref":"PAY-ABC","status":"successful","amount":150.5}}`))
	require.NoError(t, err)
	assert.Equal(t, "flutterwave", ev.Provider)
	assert.Equal(t, "PAY-ABC", ev.Reference)
	assert.Equal(t, paymentgw.StatusSuccess, ev.Status)
	assert.Equal(t, int64(15050), ev.AmountCents)
}

func TestRegistry(t *testing.T) {
	ps := paymentgw.NewPaystackGateway(paystackSecret, "http://localhost", time.Second)
	registry := paymentgw.NewRegistry(ps)

	got, err := registry.Get("paystack")
	require.NoError(t, err)
	assert.Equal(t, ps, got)

	_, err = registry.Get("stripe")
	assert.ErrorIs(t, err, paymentgw.ErrUnknownProvider)
}
