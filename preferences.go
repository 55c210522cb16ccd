package isitclear

import (
	"encoding/json"
	"net/url"
	"slices"
	"strings"
	"time"
)

// ActivationMode controls when analysis is triggered.
type ActivationMode string

// Activation modes.
const (
	ActivationAuto     ActivationMode = "auto"
	ActivationShortcut ActivationMode = "shortcut"
	ActivationManual   ActivationMode = "manual"
)

// Tone is the user's preferred writing tone.
type Tone string

// Tones.
const (
	ToneFormal  Tone = "formal"
	ToneNeutral Tone = "neutral"
	ToneCasual  Tone = "casual"
)

// Preference defaults and limits.
const (
	DefaultShortcut       = "Ctrl+Shift+C"
	DefaultMinWords       = 5
	MinAutoActivateWords  = 1
	MaxAutoActivateWords  = 100
	defaultActivationMode = ActivationAuto
)

// Preferences is the user's configuration. Fields are changed only through
// setters, each of which validates its input and bumps LastModified.
type Preferences struct {
	activationMode       ActivationMode
	shortcut             string
	autoActivateMinWords int
	preferredTone        Tone
	showChangeDetails    bool
	enabledDomains       []string
	disabledDomains      []string
	lastModified         time.Time
}

// DefaultPreferences returns the preferences used when nothing is stored.
func DefaultPreferences() *Preferences {
	return &Preferences{
		activationMode:       defaultActivationMode,
		shortcut:             DefaultShortcut,
		autoActivateMinWords: DefaultMinWords,
		preferredTone:        ToneNeutral,
		showChangeDetails:    true,
		lastModified:         time.Now(),
	}
}

// Accessors. The domain lists are returned as copies.
func (p *Preferences) ActivationMode() ActivationMode { return p.activationMode }
func (p *Preferences) Shortcut() string               { return p.shortcut }
func (p *Preferences) AutoActivateMinWords() int      { return p.autoActivateMinWords }
func (p *Preferences) PreferredTone() Tone            { return p.preferredTone }
func (p *Preferences) ShowChangeDetails() bool        { return p.showChangeDetails }
func (p *Preferences) EnabledDomains() []string       { return slices.Clone(p.enabledDomains) }
func (p *Preferences) DisabledDomains() []string      { return slices.Clone(p.disabledDomains) }
func (p *Preferences) LastModified() time.Time        { return p.lastModified }

// Clone returns an independent copy.
func (p *Preferences) Clone() *Preferences {
	c := *p
	c.enabledDomains = slices.Clone(p.enabledDomains)
	c.disabledDomains = slices.Clone(p.disabledDomains)
	return &c
}

func (p *Preferences) touch() {
	now := time.Now()
	if !now.After(p.lastModified) {
		now = p.lastModified.Add(time.Nanosecond)
	}
	p.lastModified = now
}

// SetActivationMode sets when analysis is triggered.
func (p *Preferences) SetActivationMode(m ActivationMode) error {
	switch m {
	case ActivationAuto, ActivationShortcut, ActivationManual:
	default:
		return Errorf(CodeInvalidPreference, "unknown activation mode %q", m)
	}
	p.activationMode = m
	p.touch()
	return nil
}

// SetShortcut sets the keyboard shortcut, e.g. "Ctrl+Shift+C".
func (p *Preferences) SetShortcut(binding string) error {
	normalized, err := ParseShortcut(binding)
	if err != nil {
		return err
	}
	p.shortcut = normalized
	p.touch()
	return nil
}

// SetAutoActivateMinWords sets the word threshold for auto activation.
func (p *Preferences) SetAutoActivateMinWords(n int) error {
	if n < MinAutoActivateWords || n > MaxAutoActivateWords {
		return Errorf(CodeInvalidPreference, "auto-activate minimum words must be between %d and %d, got %d",
			MinAutoActivateWords, MaxAutoActivateWords, n)
	}
	p.autoActivateMinWords = n
	p.touch()
	return nil
}

// SetPreferredTone sets the preferred tone.
func (p *Preferences) SetPreferredTone(t Tone) error {
	switch t {
	case ToneFormal, ToneNeutral, ToneCasual:
	default:
		return Errorf(CodeInvalidPreference, "unknown tone %q", t)
	}
	p.preferredTone = t
	p.touch()
	return nil
}

// SetShowChangeDetails toggles the per-change breakdown in the presentation.
func (p *Preferences) SetShowChangeDetails(show bool) {
	p.showChangeDetails = show
	p.touch()
}

// SetEnabledDomains replaces the enabled domain patterns.
func (p *Preferences) SetEnabledDomains(patterns []string) error {
	cleaned, err := cleanPatterns(patterns)
	if err != nil {
		return err
	}
	p.enabledDomains = cleaned
	p.touch()
	return nil
}

// SetDisabledDomains replaces the disabled domain patterns.
func (p *Preferences) SetDisabledDomains(patterns []string) error {
	cleaned, err := cleanPatterns(patterns)
	if err != nil {
		return err
	}
	p.disabledDomains = cleaned
	p.touch()
	return nil
}

// DisableDomain adds pattern to the disabled list.
func (p *Preferences) DisableDomain(pattern string) error {
	return p.SetDisabledDomains(append(slices.Clone(p.disabledDomains), pattern))
}

// EnableDomain adds pattern to the enabled list and removes it from the disabled list.
func (p *Preferences) EnableDomain(pattern string) error {
	cleaned, err := cleanPatterns([]string{pattern})
	if err != nil {
		return err
	}
	p.disabledDomains = slices.DeleteFunc(p.disabledDomains, func(d string) bool { return d == cleaned[0] })
	return p.SetEnabledDomains(append(slices.Clone(p.enabledDomains), pattern))
}

func cleanPatterns(patterns []string) ([]string, error) {
	out := make([]string, 0, len(patterns))
	for _, raw := range patterns {
		pat := strings.ToLower(strings.TrimSpace(raw))
		if pat == "" || strings.ContainsAny(pat, " /") {
			return nil, Errorf(CodeInvalidPreference, "invalid domain pattern %q", raw)
		}
		if !slices.Contains(out, pat) {
			out = append(out, pat)
		}
	}
	return out, nil
}

// IsDomainEnabled reports whether analysis should run on rawURL (or a bare host).
// Disabled patterns take precedence; an empty enabled list enables every domain.
func (p *Preferences) IsDomainEnabled(rawURL string) bool {
	host := hostOf(rawURL)
	if host == "" {
		return false
	}
	for _, pat := range p.disabledDomains {
		if matchDomain(host, pat) {
			return false
		}
	}
	if len(p.enabledDomains) == 0 {
		return true
	}
	for _, pat := range p.enabledDomains {
		if matchDomain(host, pat) {
			return true
		}
	}
	return false
}

// ShouldAutoActivate reports whether a field with wordCount words triggers analysis on its own.
func (p *Preferences) ShouldAutoActivate(wordCount int) bool {
	return p.activationMode == ActivationAuto && wordCount >= p.autoActivateMinWords
}

func hostOf(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return ""
		}
		return strings.ToLower(u.Hostname())
	}
	if i := strings.IndexAny(raw, "/:"); i >= 0 {
		raw = raw[:i]
	}
	return strings.ToLower(raw)
}

// matchDomain matches host against a pattern: exact host, any subdomain of it,
// or a "*." wildcard which matches subdomains only.
func matchDomain(host, pattern string) bool {
	if rest, ok := strings.CutPrefix(pattern, "*."); ok {
		return strings.HasSuffix(host, "."+rest)
	}
	return host == pattern || strings.HasSuffix(host, "."+pattern)
}

var shortcutModifiers = map[string]string{
	"ctrl":    "Ctrl",
	"control": "Ctrl",
	"alt":     "Alt",
	"option":  "Alt",
	"shift":   "Shift",
	"meta":    "Meta",
	"cmd":     "Meta",
	"command": "Meta",
}

// ParseShortcut validates a modifier+key binding and returns its canonical form.
// At least one modifier is required; the key is a letter, digit, or F1-F12.
func ParseShortcut(binding string) (string, error) {
	parts := strings.Split(strings.TrimSpace(binding), "+")
	if len(parts) < 2 {
		return "", Errorf(CodeInvalidPreference, "shortcut %q needs at least one modifier and a key", binding)
	}

	seen := make(map[string]bool, len(parts)-1)
	canonical := make([]string, 0, len(parts))
	for _, part := range parts[:len(parts)-1] {
		mod, ok := shortcutModifiers[strings.ToLower(strings.TrimSpace(part))]
		if !ok {
			return "", Errorf(CodeInvalidPreference, "shortcut %q has unknown modifier %q", binding, part)
		}
		if seen[mod] {
			return "", Errorf(CodeInvalidPreference, "shortcut %q repeats modifier %q", binding, mod)
		}
		seen[mod] = true
		canonical = append(canonical, mod)
	}

	keyName := strings.ToUpper(strings.TrimSpace(parts[len(parts)-1]))
	if !validShortcutKey(keyName) {
		return "", Errorf(CodeInvalidPreference, "shortcut %q has invalid key %q", binding, parts[len(parts)-1])
	}

	// Canonical modifier order.
	order := []string{"Ctrl", "Alt", "Shift", "Meta"}
	slices.SortFunc(canonical, func(a, b string) int {
		return slices.Index(order, a) - slices.Index(order, b)
	})
	return strings.Join(append(canonical, keyName), "+"), nil
}

func validShortcutKey(k string) bool {
	if len(k) == 1 {
		c := k[0]
		return (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
	}
	switch k {
	case "F1", "F2", "F3", "F4", "F5", "F6", "F7", "F8", "F9", "F10", "F11", "F12":
		return true
	}
	return false
}

type preferencesJSON struct {
	ActivationMode       ActivationMode `json:"activationMode"`
	Shortcut             string         `json:"shortcut"`
	AutoActivateMinWords int            `json:"autoActivateMinWords"`
	PreferredTone        Tone           `json:"preferredTone"`
	ShowChangeDetails    bool           `json:"showChangeDetails"`
	EnabledDomains       []string       `json:"enabledDomains"`
	DisabledDomains      []string       `json:"disabledDomains"`
	LastModified         time.Time      `json:"lastModified"`
}

// MarshalJSON implements json.Marshaler.
func (p *Preferences) MarshalJSON() ([]byte, error) {
	return json.Marshal(preferencesJSON{
		ActivationMode:       p.activationMode,
		Shortcut:             p.shortcut,
		AutoActivateMinWords: p.autoActivateMinWords,
		PreferredTone:        p.preferredTone,
		ShowChangeDetails:    p.showChangeDetails,
		EnabledDomains:       nonNil(p.enabledDomains),
		DisabledDomains:      nonNil(p.disabledDomains),
		LastModified:         p.lastModified,
	})
}

// UnmarshalJSON implements json.Unmarshaler. Missing fields keep their
// defaults; present fields are validated through the setters.
func (p *Preferences) UnmarshalJSON(data []byte) error {
	defaults := DefaultPreferences()
	raw := preferencesJSON{
		ActivationMode:       defaults.activationMode,
		Shortcut:             defaults.shortcut,
		AutoActivateMinWords: defaults.autoActivateMinWords,
		PreferredTone:        defaults.preferredTone,
		ShowChangeDetails:    defaults.showChangeDetails,
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := defaults
	if err := out.SetActivationMode(raw.ActivationMode); err != nil {
		return err
	}
	if err := out.SetShortcut(raw.Shortcut); err != nil {
		return err
	}
	if err := out.SetAutoActivateMinWords(raw.AutoActivateMinWords); err != nil {
		return err
	}
	if err := out.SetPreferredTone(raw.PreferredTone); err != nil {
		return err
	}
	out.SetShowChangeDetails(raw.ShowChangeDetails)
	if err := out.SetEnabledDomains(raw.EnabledDomains); err != nil {
		return err
	}
	if err := out.SetDisabledDomains(raw.DisabledDomains); err != nil {
		return err
	}
	if !raw.LastModified.IsZero() {
		out.lastModified = raw.LastModified
	}
	*p = *out
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
