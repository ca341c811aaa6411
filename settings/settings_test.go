package settings

import (
	"context"
	"testing"

	"github.com/cppla/simplecaptcha/captcha"
)

func TestDecodeModuleSettings(t *testing.T) {
	raw := `{"enabled":true,"type":"image","difficulty":"hard","case_sensitive":true,"length":7,"expiry":600,
		"protected_forms":{"login":false,"contact":true},"sort_order":1}`
	s, err := Decode(raw, captcha.DefaultSettings())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !s.Enabled || s.Type != captcha.TypeImage || s.Difficulty != captcha.DifficultyHard {
		t.Fatalf("unexpected enums %+v", s)
	}
	if !s.CaseSensitive || s.Length != 7 || s.ExpirySeconds != 600 {
		t.Fatalf("unexpected scalars %+v", s)
	}
	if s.IsFormProtected("login") || !s.IsFormProtected("contact") || s.IsFormProtected("register") {
		t.Fatalf("protected forms must come from the document only: %v", s.ProtectedForms)
	}
}

func TestDecodeKeepsBaseForMissingKeys(t *testing.T) {
	base := captcha.DefaultSettings()
	s, err := Decode(`{"enabled":true,"length":99}`, base)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.Type != captcha.TypeMath || s.ExpirySeconds != captcha.DefaultExpiry {
		t.Fatalf("missing keys should keep defaults, got %+v", s)
	}
	if s.Length != captcha.MaxLength {
		t.Fatalf("length should clamp to %d, got %d", captcha.MaxLength, s.Length)
	}
	if !s.IsFormProtected("register") {
		t.Fatalf("default protected forms lost")
	}
}

func TestDecodeEmptyAndInvalid(t *testing.T) {
	base := captcha.DefaultSettings()
	s, err := Decode("", base)
	if err != nil || s.Enabled {
		t.Fatalf("empty document should yield base, got %+v err=%v", s, err)
	}
	if _, err := Decode("{not json", base); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestStaticProviderNormalizes(t *testing.T) {
	p := NewStatic(captcha.Settings{Enabled: true, Type: "bogus"})
	s, err := p.Settings(context.Background())
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if !s.Enabled || s.Type != captcha.TypeMath || s.Length != captcha.DefaultLength {
		t.Fatalf("unexpected snapshot %+v", s)
	}
}
