package i18n

import (
	"embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFiles embed.FS

// Translator looks up user-facing messages by dotted key. Catalogues are
// loaded once and never change, so a Translator is safe for concurrent use.
type Translator struct {
	catalogues    map[string]map[string]string
	defaultLocale string
}

// NewTranslator 加载内嵌的全部语言文件。
func NewTranslator(defaultLocale string) (*Translator, error) {
	if defaultLocale == "" {
		defaultLocale = "en"
	}
	catalogues, err := loadCatalogues()
	if err != nil {
		return nil, err
	}
	if _, ok := catalogues[defaultLocale]; !ok {
		return nil, fmt.Errorf("default locale %s missing", defaultLocale)
	}
	return &Translator{catalogues: catalogues, defaultLocale: defaultLocale}, nil
}

func loadCatalogues() (map[string]map[string]string, error) {
	entries, err := localeFiles.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("read locales: %w", err)
	}
	catalogues := make(map[string]map[string]string, len(entries))
	for _, entry := range entries {
		name, ok := strings.CutSuffix(entry.Name(), ".yaml")
		if entry.IsDir() || !ok {
			continue
		}
		data, err := localeFiles.ReadFile("locales/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", name, err)
		}
		var tree map[string]interface{}
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", name, err)
		}
		catalogue := make(map[string]string)
		flatten(catalogue, tree, "")
		catalogues[name] = catalogue
	}
	return catalogues, nil
}

// Text returns the message for key in locale, trying the base language
// and then the default locale. An unknown key is returned as is.
func (t *Translator) Text(locale, key string) string {
	if key == "" {
		return ""
	}
	for _, candidate := range t.candidates(locale) {
		if val, ok := t.catalogues[candidate][key]; ok {
			return val
		}
	}
	return key
}

// Textf 查找翻译并按 fmt 规则填充参数。
func (t *Translator) Textf(locale, key string, args ...interface{}) string {
	text := t.Text(locale, key)
	if len(args) == 0 || text == key {
		return text
	}
	return fmt.Sprintf(text, args...)
}

// DefaultLocale 返回当前默认语言。
func (t *Translator) DefaultLocale() string {
	return t.defaultLocale
}

// candidates lists zh-CN, zh, default for "zh_CN".
func (t *Translator) candidates(locale string) []string {
	var out []string
	if locale = strings.ReplaceAll(strings.TrimSpace(locale), "_", "-"); locale != "" {
		out = append(out, locale)
		if base, _, ok := strings.Cut(locale, "-"); ok {
			out = append(out, base)
		}
	}
	return append(out, t.defaultLocale)
}

func flatten(out map[string]string, tree map[string]interface{}, prefix string) {
	for key, value := range tree {
		if prefix != "" {
			key = prefix + "." + key
		}
		switch v := value.(type) {
		case map[string]interface{}:
			flatten(out, v, key)
		case string:
			out[key] = v
		default:
			out[key] = fmt.Sprint(v)
		}
	}
}
