package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/url"
	"testing"
)

func hexMAC(secret, msg string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(msg))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyOAuthHMAC(t *testing.T) {
	q := url.Values{}
	q.Set("shop", "acme.myshopify.com")
	q.Set("code", "abc")
	q.Set("state", "xyz")
	q.Set("timestamp", "1700000000")
	q.Set("hmac", hexMAC("secret", "code=abc&shop=acme.myshopify.com&state=xyz&timestamp=1700000000"))

	if !VerifyOAuthHMAC(q, "secret") {
		t.Fatal("expected valid hmac")
	}
	if VerifyOAuthHMAC(q, "other") {
		t.Fatal("expected failure with wrong secret")
	}

	q.Set("code", "tampered")
	if VerifyOAuthHMAC(q, "secret") {
		t.Fatal("expected failure for tampered query")
	}

	q.Del("hmac")
	if VerifyOAuthHMAC(q, "secret") {
		t.Fatal("expected failure without hmac")
	}
}

func TestVerifyProxySignature(t *testing.T) {
	q := url.Values{}
	q.Set("shop", "acme.myshopify.com")
	q.Set("path_prefix", "/apps/chargemind")
	q.Set("timestamp", "1700000000")
	q["extra"] = []string{"1", "2"}
	q.Set("signature", hexMAC("secret", "extra=1,2path_prefix=/apps/chargemindshop=acme.myshopify.comtimestamp=1700000000"))

	if !VerifyProxySignature(q, "secret") {
		t.Fatal("expected valid proxy signature")
	}
	q.Set("shop", "evil.myshopify.com")
	if VerifyProxySignature(q, "secret") {
		t.Fatal("expected failure for tampered shop")
	}
}

func TestVerifyWebhookHMAC(t *testing.T) {
	body := []byte(`{"id":1}`)
	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write(body)
	header := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if !VerifyWebhookHMAC(body, header, "secret") {
		t.Fatal("expected valid webhook hmac")
	}
	if VerifyWebhookHMAC([]byte(`{"id":2}`), header, "secret") {
		t.Fatal("expected failure for modified body")
	}
	if VerifyWebhookHMAC(body, "", "secret") || VerifyWebhookHMAC(body, "%%%", "secret") {
		t.Fatal("expected failure for empty or malformed header")
	}
}

func TestValidShopDomain(t *testing.T) {
	cases := map[string]bool{
		"acme.myshopify.com":          true,
		"acme-2.myshopify.com":        true,
		"myshopify.com":               false,
		"acme.myshopify.com.evil.com": false,
		"acme.example.com":            false,
		"https://acme.myshopify.com":  false,
		"acme.myshopify.com/admin":    false,
		"-acme.myshopify.com":         false,
	}
	for shop, want := range cases {
		if got := ValidShopDomain(shop); got != want {
			t.Fatalf("ValidShopDomain(%q) = %v, want %v", shop, got, want)
		}
	}
	if got := NormalizeShopDomain(" https://Acme.myshopify.com/ "); got != "acme.myshopify.com" {
		t.Fatalf("NormalizeShopDomain = %q", got)
	}
}
