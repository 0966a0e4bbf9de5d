package mailer

import (
	"strings"
	"testing"
	"time"
)

func TestVerificationEmail_ContainsCodeAndExpiry(t *testing.T) {
	exp := time.Date(2026, 7, 10, 14, 30, 0, 0, time.UTC)
	subject, text, html := verificationEmail("847291", exp)

	if subject == "" {
		t.Fatal("empty subject")
	}
	for name, body := range map[string]string{"text": text, "html": html} {
		if !strings.Contains(body, "847291") {
			t.Fatalf("%s body missing code: %q", name, body)
		}
		if !strings.Contains(body, "Jul 10 2026") {
			t.Fatalf("%s body missing expiry: %q", name, body)
		}
	}
}

func TestVerificationEmail_ExpiryRenderedInUTC(t *testing.T) {
	loc := time.FixedZone("EAT", 3*60*60)
	exp := time.Date(2026, 7, 10, 3, 0, 0, 0, loc) // 00:00 UTC
	_, text, _ := verificationEmail("123456", exp)
	if !strings.Contains(text, "00:00 UTC") {
		t.Fatalf("expiry not normalized to UTC: %q", text)
	}
}

// Interface conformance.
var _ Mailer = (*MailerSend)(nil)
