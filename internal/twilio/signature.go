// Package twilio implements the messaging-gateway edge: request signature
// validation, inbound payload validation and TwiML response rendering.
package twilio

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"net/url"
	"sort"
	"strings"
)

// SignatureValidator checks that an inbound webhook request was signed by
// the messaging gateway with the shared auth token.
type SignatureValidator struct {
	authToken string
	skip      bool
}

func NewSignatureValidator(authToken string, skip bool) *SignatureValidator {
	return &SignatureValidator{authToken: authToken, skip: skip}
}

// Valid reports whether signature matches the expected HMAC-SHA1 of the
// request URL concatenated with the form parameters sorted by key, each
// appended as key then value with no separators. Comparison is
// constant-time. When skip-validation is configured it always returns true.
func (v *SignatureValidator) Valid(signature, requestURL string, form url.Values) bool {
	if v.skip {
		return true
	}
	if signature == "" {
		return false
	}

	expected := computeSignature(v.authToken, requestURL, form)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

func computeSignature(authToken, requestURL string, form url.Values) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(requestURL)
	for _, k := range keys {
		// The gateway signs one value per key; repeated keys do not occur
		// in its form encoding.
		b.WriteString(k)
		b.WriteString(form.Get(k))
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
