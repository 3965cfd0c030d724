package vnpay

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

const (
	fieldSecureHash     = "vnp_SecureHash"
	fieldSecureHashType = "vnp_SecureHashType"
)

// encode matches the gateway's form encoding: space as '+', upper-case hex,
// and "!*()" left as-is while '~' is escaped.
func encode(s string) string {
	return strings.NewReplacer(
		"%21", "!",
		"%2A", "*",
		"%28", "(",
		"%29", ")",
		"~", "%7E",
	).Replace(url.QueryEscape(s))
}

// canonical joins non-empty params as k=v pairs sorted by byte order of the
// key, skipping the hash fields.
func canonical(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" || k == fieldSecureHash || k == fieldSecureHashType {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(encode(k))
		b.WriteByte('=')
		b.WriteString(encode(params[k]))
	}
	return b.String()
}

func hmacSHA512(secret, data string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

// Sign returns the hex HMAC-SHA512 of the canonical query.
func Sign(secret string, params map[string]string) string {
	return hmacSHA512(secret, canonical(params))
}

// BuildURL returns base with the canonical query and its signature appended.
func BuildURL(base, secret string, params map[string]string) string {
	query := canonical(params)
	return base + "?" + query + "&" + fieldSecureHash + "=" + hmacSHA512(secret, query)
}

// ValidSignature recomputes the hash over every vnp_ parameter and compares
// it with vnp_SecureHash, ignoring case.
func ValidSignature(secret string, values url.Values) bool {
	provided := values.Get(fieldSecureHash)
	if provided == "" {
		return false
	}

	params := make(map[string]string, len(values))
	for k := range values {
		if strings.HasPrefix(k, "vnp_") {
			params[k] = values.Get(k)
		}
	}

	expected := Sign(secret, params)
	return hmac.Equal([]byte(strings.ToLower(provided)), []byte(expected))
}
