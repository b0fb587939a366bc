// Package localization provides functionality for internationalization (i18n).
// Translation strings are embedded JSON catalogs, one per language code
// (e.g., "en.json"), with English as the fallback.
package localization

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"
)

// DefaultLang is used when a key is missing from the requested language.
const DefaultLang = "en"

//go:embed locales/*.json
var catalogs embed.FS

// Localizer manages the translations for the application.
// It holds a map of languages, each with its own map of translation keys and values.
type Localizer struct {
	translations map[string]map[string]string
	mu           sync.RWMutex
}

// New returns a Localizer loaded with the embedded catalogs.
func New() (*Localizer, error) {
	return NewFromFS(catalogs, "locales")
}

// NewFromFS loads every <lang>.json file under dir in fsys.
func NewFromFS(fsys fs.FS, dir string) (*Localizer, error) {
	l := &Localizer{
		translations: make(map[string]map[string]string),
	}

	files, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read localization directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}

		data, err := fs.ReadFile(fsys, path.Join(dir, file.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read localization file %s: %w", file.Name(), err)
		}

		var translations map[string]string
		if err := json.Unmarshal(data, &translations); err != nil {
			return nil, fmt.Errorf("failed to parse localization file %s: %w", file.Name(), err)
		}

		l.translations[strings.TrimSuffix(file.Name(), ".json")] = translations
	}

	return l, nil
}

// GetString returns the localized string for a given key and language.
// If the language or the key is not found, it returns the key itself as a fallback.
func (l *Localizer) GetString(lang, key string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if value, ok := l.translations[lang][key]; ok {
		return value
	}
	if lang != DefaultLang {
		if value, ok := l.translations[DefaultLang][key]; ok {
			return value
		}
	}
	return key
}

// Plural picks key+".one" for n == 1 and key+".other" otherwise, formatting
// the result with n.
func (l *Localizer) Plural(lang, key string, n int) string {
	if n == 1 {
		return l.GetString(lang, key+".one")
	}
	s := l.GetString(lang, key+".other")
	if strings.Contains(s, "%d") {
		return fmt.Sprintf(s, n)
	}
	return s
}
