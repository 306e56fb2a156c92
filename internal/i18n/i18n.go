// Package i18n carga los textos del bot desde YAML embebido.
package i18n

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFS embed.FS

// Translator resuelve claves con puntos ("error.session_expired") por locale.
// Fallback: locale pedido → locale default → la clave cruda.
type Translator struct {
	fallback string
	bundles  map[string]map[string]string
}

// New carga todos los locales embebidos.
func New(fallback string) (*Translator, error) {
	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("read locales: %w", err)
	}
	bundles := map[string][]byte{}
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".yaml" {
			continue
		}
		data, err := localeFS.ReadFile("locales/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		bundles[strings.TrimSuffix(e.Name(), ".yaml")] = data
	}
	return FromBytes(fallback, bundles)
}

// FromBytes arma un Translator con bundles YAML arbitrarios (tests).
func FromBytes(fallback string, raw map[string][]byte) (*Translator, error) {
	t := &Translator{fallback: normalize(fallback), bundles: map[string]map[string]string{}}
	for loc, data := range raw {
		var tree map[string]any
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", loc, err)
		}
		flat := map[string]string{}
		flatten("", tree, flat)
		t.bundles[normalize(loc)] = flat
	}
	if _, ok := t.bundles[t.fallback]; !ok {
		return nil, fmt.Errorf("fallback locale %q not loaded", fallback)
	}
	return t, nil
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case string:
			out[key] = val
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

// normalize: "es-ES" → "es", "en-US" → "en".
func normalize(locale string) string {
	l := strings.ToLower(strings.TrimSpace(locale))
	if i := strings.IndexAny(l, "-_"); i > 0 {
		l = l[:i]
	}
	return l
}

// Supported dice si hay bundle para el locale (normalizado).
func (t *Translator) Supported(locale string) bool {
	_, ok := t.bundles[normalize(locale)]
	return ok
}

// Locales devuelve los locales cargados, ordenados.
func (t *Translator) Locales() []string {
	out := make([]string, 0, len(t.bundles))
	for k := range t.bundles {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// T traduce key. args van de a pares y reemplazan {nombre}: T("es", "queue.added", "title", "x").
func (t *Translator) T(locale, key string, args ...any) string {
	msg, ok := t.lookup(normalize(locale), key)
	if !ok {
		return key
	}
	if len(args) < 2 {
		return msg
	}
	pairs := make([]string, 0, len(args))
	for i := 0; i+1 < len(args); i += 2 {
		pairs = append(pairs, "{"+fmt.Sprint(args[i])+"}", fmt.Sprint(args[i+1]))
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}

func (t *Translator) lookup(locale, key string) (string, bool) {
	if b, ok := t.bundles[locale]; ok {
		if msg, ok := b[key]; ok {
			return msg, true
		}
	}
	if msg, ok := t.bundles[t.fallback][key]; ok {
		return msg, true
	}
	return "", false
}
