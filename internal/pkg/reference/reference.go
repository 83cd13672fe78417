package reference

import (
	"crypto/rand"
	"fmt"
)

// 読み間違えやすい 0/1/I/O を除いた 32 文字。ユーザーに見せる前提のコード体系。
const alphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

const (
	bookingPrefix = "TKT"
	paymentPrefix = "PAY"
	codeLength    = 12
)

// NewBookingReference は予約の人間共有用コードを生成する。
// 一意性の最終保証は DB のユニーク制約側（衝突時は再生成してリトライ）。
func NewBookingReference() (string, error) {
	code, err := randomCode(codeLength)
	if err != nil {
		return "", err
	}
	return bookingPrefix + "-" + code, nil
}

// NewPaymentReference は決済試行の冪等キーを生成する。
func NewPaymentReference() (string, error) {
	code, err := randomCode(codeLength)
	if err != nil {
		return "", err
	}
	return paymentPrefix + "-" + code, nil
}

func randomCode(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(buf), nil
}
