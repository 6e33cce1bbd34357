package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

var shopDomainPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*\.myshopify\.com$`)

// ValidShopDomain reports whether shop is a bare *.myshopify.com host.
func ValidShopDomain(shop string) bool {
	return shopDomainPattern.MatchString(shop)
}

// NormalizeShopDomain lowercases and trims a shop parameter.
func NormalizeShopDomain(shop string) string {
	shop = strings.ToLower(strings.TrimSpace(shop))
	shop = strings.TrimPrefix(shop, "https://")
	return strings.TrimSuffix(shop, "/")
}

// VerifyOAuthHMAC checks the hex hmac parameter Shopify appends to OAuth
// redirects. The message is the sorted query without hmac and signature,
// joined with "&".
func VerifyOAuthHMAC(query url.Values, secret string) bool {
	got, err := hex.DecodeString(query.Get("hmac"))
	if err != nil || len(got) == 0 {
		return false
	}
	return hmac.Equal(sign(secret, canonical(query, "&", "hmac", "signature")), got)
}

// VerifyProxySignature checks the signature parameter of App Proxy requests.
// Proxy messages join sorted k=v pairs without a separator and multi-valued
// keys with commas.
func VerifyProxySignature(query url.Values, secret string) bool {
	got, err := hex.DecodeString(query.Get("signature"))
	if err != nil || len(got) == 0 {
		return false
	}
	return hmac.Equal(sign(secret, canonical(query, "", "signature")), got)
}

// VerifyWebhookHMAC checks the base64 X-Shopify-Hmac-Sha256 header against the
// raw body.
func VerifyWebhookHMAC(body []byte, header, secret string) bool {
	if header == "" {
		return false
	}
	got, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), got)
}

func canonical(query url.Values, sep string, skip ...string) string {
	keys := make([]string, 0, len(query))
	for k := range query {
		if contains(skip, k) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if sep == "&" {
			for _, v := range query[k] {
				parts = append(parts, k+"="+v)
			}
			continue
		}
		parts = append(parts, k+"="+strings.Join(query[k], ","))
	}
	return strings.Join(parts, sep)
}

func sign(secret, msg string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(msg))
	return mac.Sum(nil)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
