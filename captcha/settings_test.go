package captcha

import "testing"

func TestNormalizeDefaultsAndClamps(t *testing.T) {
	s := Settings{Type: "video", Difficulty: "extreme"}.Normalize()
	if s.Type != TypeMath || s.Difficulty != DifficultyEasy {
		t.Fatalf("unknown enums should fall back to math/easy, got %s/%s", s.Type, s.Difficulty)
	}
	if s.Length != DefaultLength || s.ExpirySeconds != DefaultExpiry {
		t.Fatalf("zero values should take defaults, got length=%d expiry=%d", s.Length, s.ExpirySeconds)
	}

	s = Settings{Type: "IMAGE", Difficulty: "Hard", Length: 2, ExpirySeconds: 5000}.Normalize()
	if s.Type != TypeImage || s.Difficulty != DifficultyHard {
		t.Fatalf("enums should be case-insensitive, got %s/%s", s.Type, s.Difficulty)
	}
	if s.Length != MinLength || s.ExpirySeconds != MaxExpirySeconds {
		t.Fatalf("out of range values should clamp, got length=%d expiry=%d", s.Length, s.ExpirySeconds)
	}

	s = Settings{Length: 20, ExpirySeconds: 10}.Normalize()
	if s.Length != MaxLength || s.ExpirySeconds != MinExpirySeconds {
		t.Fatalf("unexpected clamp result length=%d expiry=%d", s.Length, s.ExpirySeconds)
	}
}

func TestIsFormProtected(t *testing.T) {
	s := DefaultSettings()
	if s.IsFormProtected("login") {
		t.Fatalf("disabled settings must not protect any form")
	}

	s.Enabled = true
	s.ProtectedForms["checkout_*"] = true
	s.ProtectedForms["checkout_express"] = false

	cases := map[string]bool{
		"login":            true,
		"newsletter":       false,
		"checkout_guest":   true,
		"checkout_member":  true,
		"checkout_express": false,
		"unknown":          false,
	}
	for form, want := range cases {
		if got := s.IsFormProtected(form); got != want {
			t.Fatalf("IsFormProtected(%q) = %v, want %v", form, got, want)
		}
	}
}

func TestFrontendConfig(t *testing.T) {
	s := DefaultSettings()
	if fc := s.FrontendConfig(); fc.Enabled || fc.Type != "" {
		t.Fatalf("disabled config leaked type: %+v", fc)
	}
	s.Enabled = true
	s.Type = TypeImage
	if fc := s.FrontendConfig(); !fc.Enabled || fc.Type != TypeImage {
		t.Fatalf("unexpected frontend config %+v", fc)
	}
}
