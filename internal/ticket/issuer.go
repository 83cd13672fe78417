// Package ticket binds a verification artifact to a confirmed booking.
// The artifact is derived data: it can always be rebuilt from the booking
// reference, so a render failure never rolls back a confirmation.
package ticket

import (
	"crypto/sha256"
	"encoding/base64"
	"log/slog"
)

type Renderer interface {
	Render(bookingReference string) (string, error)
}

// Result は発行のベストエフォート結果。Err があっても confirm は成立したまま。
type Result struct {
	Artifact string
	Err      error
}

func (r Result) Log(logger *slog.Logger, bookingReference string) {
	if r.Err != nil {
		logger.Warn("ticket render failed, artifact can be re-rendered on demand",
			"booking_reference", bookingReference, "error", r.Err)
	}
}

type Issuer struct {
	renderer Renderer
}

func NewIssuer(renderer Renderer) *Issuer {
	return &Issuer{renderer: renderer}
}

func (i *Issuer) Issue(bookingReference string) Result {
	artifact, err := i.renderer.Render(bookingReference)
	if err != nil {
		return Result{Err: err}
	}
	return Result{Artifact: artifact}
}

// OpaqueRenderer は bookingReference の衝突耐性のある不透明エンコードを返す既定実装。
// QR 画像などへの実体化は外部のレンダリングコラボレータに委ねる。
type OpaqueRenderer struct{}

func NewOpaqueRenderer() *OpaqueRenderer {
	return &OpaqueRenderer{}
}

func (r *OpaqueRenderer) Render(bookingReference string) (string, error) {
	sum := sha256.Sum256([]byte("ticket:" + bookingReference))
	return base64.RawURLEncoding.EncodeToString(sum[:]), nil
}
