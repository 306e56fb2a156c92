package i18n

import (
	"strings"
	"testing"
)

func testTranslator(t *testing.T) *Translator {
	t.Helper()
	tr, err := FromBytes("en", map[string][]byte{
		"en": []byte("greet: \"hi {name}\"\nerror:\n  generic: \"oops\"\n  only_en: \"english only\"\npage: \"{page}/{total}\"\n"),
		"es": []byte("greet: \"hola {name}\"\nerror:\n  generic: \"ups\"\n"),
	})
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	return tr
}

func TestTranslate(t *testing.T) {
	tr := testTranslator(t)
	cases := []struct {
		locale, key string
		args        []any
		want        string
	}{
		{"en", "greet", []any{"name", "ana"}, "hi ana"},
		{"es", "greet", []any{"name", "ana"}, "hola ana"},
		{"es-ES", "error.generic", nil, "ups"},
		{"es", "error.only_en", nil, "english only"},
		{"fr", "error.generic", nil, "oops"},
		{"es", "missing.key", nil, "missing.key"},
		{"en", "page", []any{"page", 2, "total", 5}, "2/5"},
	}
	for _, c := range cases {
		if got := tr.T(c.locale, c.key, c.args...); got != c.want {
			t.Errorf("T(%q, %q) = %q, want %q", c.locale, c.key, got, c.want)
		}
	}
}

func TestSupported(t *testing.T) {
	tr := testTranslator(t)
	if !tr.Supported("ES") || !tr.Supported("en-US") || tr.Supported("fr") {
		t.Errorf("Supported wrong: locales=%v", tr.Locales())
	}
}

func TestFallbackMustExist(t *testing.T) {
	if _, err := FromBytes("de", map[string][]byte{"en": []byte("a: b")}); err == nil {
		t.Error("missing fallback accepted")
	}
	if _, err := FromBytes("en", map[string][]byte{"en": []byte(":\n  - [")}); err == nil {
		t.Error("broken yaml accepted")
	}
}

// Los bundles embebidos tienen que tener las mismas claves.
func TestEmbeddedBundlesAreComplete(t *testing.T) {
	tr, err := New("en")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	en := tr.bundles["en"]
	for _, loc := range tr.Locales() {
		for key := range en {
			if _, ok := tr.bundles[loc][key]; !ok {
				t.Errorf("locale %s missing key %s", loc, key)
			}
		}
	}
	for _, key := range []string{"error.generic", "error.session_expired", "error.invalid_user", "error.player_not_found"} {
		if got := tr.T("en", key); got == key || strings.TrimSpace(got) == "" {
			t.Errorf("embedded en missing %s", key)
		}
	}
}
