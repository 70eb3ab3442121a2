// Package catalog resolves user-facing message templates per locale.
//
// Messages are registered into an x/text catalog owned by each Bundle, so
// callers never share mutable printer state.
package catalog

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"sync"
	"text/template"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// BaseLocale is the canonical source locale for catalogs.
const BaseLocale = "en-US"

// Bundle holds message templates for a set of locales.
type Bundle struct {
	builder *catalog.Builder
	tags    []language.Tag
	matcher language.Matcher
	locales map[string]map[string]string
}

var defaultBundle = sync.OnceValue(func() *Bundle {
	bundle, err := New(map[string]map[string]string{
		BaseLocale: enUS,
		"pt-BR":    ptBR,
	})
	if err != nil {
		panic(err)
	}
	return bundle
})

// Default returns the bundle of built-in messages.
func Default() *Bundle {
	return defaultBundle()
}

// New builds a bundle from locale -> key -> template maps. The base locale
// must be present and is always the first match candidate.
func New(locales map[string]map[string]string) (*Bundle, error) {
	if _, ok := locales[BaseLocale]; !ok {
		return nil, fmt.Errorf("base locale %s is not defined", BaseLocale)
	}

	names := make([]string, 0, len(locales))
	for name := range locales {
		if name != BaseLocale {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	names = append([]string{BaseLocale}, names...)

	bundle := &Bundle{
		builder: catalog.NewBuilder(catalog.Fallback(language.MustParse(BaseLocale))),
		locales: make(map[string]map[string]string, len(locales)),
	}
	for _, name := range names {
		tag, err := language.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("parse locale tag %q: %w", name, err)
		}
		messages := locales[name]
		copied := make(map[string]string, len(messages))
		for key, value := range messages {
			key = strings.TrimSpace(key)
			if key == "" {
				return nil, fmt.Errorf("locale %s: message key cannot be blank", name)
			}
			if err := bundle.builder.SetString(tag, key, value); err != nil {
				return nil, fmt.Errorf("register %s/%s: %w", name, key, err)
			}
			copied[key] = value
		}
		bundle.tags = append(bundle.tags, tag)
		bundle.locales[tag.String()] = copied
	}
	bundle.matcher = language.NewMatcher(bundle.tags)
	return bundle, nil
}

// Match resolves an Accept-Language header value to a supported locale.
func (b *Bundle) Match(acceptLanguage string) string {
	if b == nil {
		return BaseLocale
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return BaseLocale
	}
	_, index, confidence := b.matcher.Match(tags...)
	if confidence == language.No {
		return BaseLocale
	}
	return b.tags[index].String()
}

// Locales returns all available locale identifiers.
func (b *Bundle) Locales() []string {
	if b == nil {
		return nil
	}
	out := make([]string, 0, len(b.tags))
	for _, tag := range b.tags {
		out = append(out, tag.String())
	}
	return out
}

// Keys returns the sorted message keys defined for locale.
func (b *Bundle) Keys(locale string) []string {
	if b == nil {
		return nil
	}
	messages := b.locales[strings.TrimSpace(locale)]
	out := make([]string, 0, len(messages))
	for key := range messages {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// Format renders the message for key in locale, executing it as a template
// over metadata. Unknown keys render as the key itself.
func (b *Bundle) Format(locale string, key string, metadata map[string]string) string {
	if b == nil {
		return key
	}
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		tag = b.tags[0]
	}
	printer := message.NewPrinter(tag, message.Catalog(b.builder))
	tmpl := printer.Sprintf(key)

	if metadata == nil {
		metadata = map[string]string{}
	}
	t, err := template.New("msg").Parse(tmpl)
	if err != nil {
		return tmpl
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, metadata); err != nil {
		return tmpl
	}
	return buf.String()
}
