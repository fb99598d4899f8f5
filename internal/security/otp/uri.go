package otp

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// AuthURL construye la URI otpauth:// para mostrar como QR en el registro.
func (e *Engine) AuthURL(issuer, accountName, secret string) string {
	label := url.PathEscape(fmt.Sprintf("%s:%s", issuer, accountName))
	q := url.Values{}
	q.Set("secret", secret)
	q.Set("issuer", issuer)
	q.Set("algorithm", strings.ToUpper(e.cfg.HashAlgorithm))
	q.Set("digits", fmt.Sprintf("%d", e.cfg.CodeDigits))
	q.Set("period", fmt.Sprintf("%d", int(e.cfg.TimeStep/time.Second)))
	return fmt.Sprintf("otpauth://totp/%s?%s", label, q.Encode())
}
