// Package i18n owns the assistant's user-visible strings. The conversation
// core never embeds literals: greetings and error text are keys resolved here
// against the widget's current language.
package i18n

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const (
	KeyErrorNetwork = "assistant.error.network"

	DefaultLanguage = "en"
)

var builtin = map[string]map[string]string{
	"en": {
		"assistant.greeting.home":             "Hi! I'm your AI-REA assistant. Ask me anything about property analysis, or tell me what you're looking for.",
		"assistant.greeting.dashboard":        "Hi! Describe a property and I can fill in the query box or run the analysis for you.",
		"assistant.greeting.results":          "Hi! I can help you interpret this analysis, or start a new one.",
		"assistant.greeting.marketplace":      "Hi! Looking to buy or sell? I can point you to the right section.",
		"assistant.greeting.marketplace_sell": "Hi! Tell me about your property and I'll fill in the listing form for you.",
		"assistant.greeting.marketplace_buy":  "Hi! I can help you narrow down the listings. What are you looking for?",
		"assistant.greeting.about":            "Hi! Ask me anything about AI-REA, or let me guide you to the dashboard.",
		KeyErrorNetwork:                       "Sorry, I couldn't reach the assistant service. Please try again.",
	},
	"hi": {
		"assistant.greeting.home":             "नमस्ते! मैं आपका AI-REA सहायक हूँ। संपत्ति विश्लेषण के बारे में कुछ भी पूछें।",
		"assistant.greeting.dashboard":        "नमस्ते! संपत्ति का विवरण बताएं, मैं क्वेरी बॉक्स भर दूँगा या विश्लेषण चला दूँगा।",
		"assistant.greeting.results":          "नमस्ते! मैं इस विश्लेषण को समझने में मदद कर सकता हूँ।",
		"assistant.greeting.marketplace":      "नमस्ते! खरीदना है या बेचना? मैं सही अनुभाग तक पहुँचा सकता हूँ।",
		"assistant.greeting.marketplace_sell": "नमस्ते! अपनी संपत्ति के बारे में बताएं, मैं लिस्टिंग फ़ॉर्म भर दूँगा।",
		"assistant.greeting.marketplace_buy":  "नमस्ते! मैं लिस्टिंग छाँटने में मदद कर सकता हूँ। आप क्या ढूँढ रहे हैं?",
		"assistant.greeting.about":            "नमस्ते! AI-REA के बारे में कुछ भी पूछें।",
		KeyErrorNetwork:                       "क्षमा करें, सहायक सेवा से संपर्क नहीं हो सका। कृपया फिर से प्रयास करें।",
	},
}

// Localizer resolves keys for one language with fallback to English and then
// to the key itself, so a missing entry never blanks the widget.
type Localizer struct {
	mu     sync.RWMutex
	lang   string
	tables map[string]map[string]string
}

func NewLocalizer(lang string) *Localizer {
	if lang == "" {
		lang = DefaultLanguage
	}
	tables := make(map[string]map[string]string, len(builtin))
	for l, tbl := range builtin {
		cp := make(map[string]string, len(tbl))
		for k, v := range tbl {
			cp[k] = v
		}
		tables[l] = cp
	}
	return &Localizer{lang: lang, tables: tables}
}

// SetLanguage switches the active language. Unknown languages are kept as-is;
// lookups will fall back to English.
func (l *Localizer) SetLanguage(lang string) {
	if lang == "" {
		lang = DefaultLanguage
	}
	l.mu.Lock()
	l.lang = lang
	l.mu.Unlock()
}

func (l *Localizer) Language() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lang
}

// Translate resolves key in the active language.
func (l *Localizer) Translate(key string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if tbl, ok := l.tables[l.lang]; ok {
		if v, ok := tbl[key]; ok {
			return v
		}
	}
	if v, ok := l.tables[DefaultLanguage][key]; ok {
		return v
	}
	log.Warn().Str("component", "i18n").Str("key", key).Str("lang", l.lang).Msg("missing translation")
	return key
}

// LoadOverrides merges a YAML file of language -> key -> value on top of the
// built-in tables.
func (l *Localizer) LoadOverrides(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read i18n overrides")
	}
	var overrides map[string]map[string]string
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return errors.Wrap(err, "parse i18n overrides")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for lang, tbl := range overrides {
		dst, ok := l.tables[lang]
		if !ok {
			dst = map[string]string{}
			l.tables[lang] = dst
		}
		for k, v := range tbl {
			dst[k] = v
		}
	}
	return nil
}
