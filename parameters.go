package isitclear

// ToneDirective is the tone parameter understood by the backends.
type ToneDirective string

// Tone directives.
const (
	ToneMoreFormal ToneDirective = "more-formal"
	ToneAsIs       ToneDirective = "as-is"
	ToneMoreCasual ToneDirective = "more-casual"
)

// LengthDirective is the length parameter understood by the backends.
type LengthDirective string

// Length directives.
const (
	LengthShorter LengthDirective = "shorter"
	LengthAsIs    LengthDirective = "as-is"
	LengthLonger  LengthDirective = "longer"
)

// FormatPlainText is the only output format requested from backends.
const FormatPlainText = "plain-text"

// Parameters configure a backend session. Sessions are reused only for
// identical parameters.
type Parameters struct {
	Tone   ToneDirective   `json:"tone"`
	Format string          `json:"format"`
	Length LengthDirective `json:"length"`
}

// MapTone translates a user tone preference into a backend tone directive.
func MapTone(t Tone) ToneDirective {
	switch t {
	case ToneFormal:
		return ToneMoreFormal
	case ToneCasual:
		return ToneMoreCasual
	}
	return ToneAsIs
}

// ParametersFor maps preferences to backend parameters. A non-empty length
// overrides the default as-is length.
func ParametersFor(p *Preferences, length LengthDirective) Parameters {
	tone := ToneNeutral
	if p != nil {
		tone = p.PreferredTone()
	}
	if length == "" {
		length = LengthAsIs
	}
	return Parameters{
		Tone:   MapTone(tone),
		Format: FormatPlainText,
		Length: length,
	}
}

// Map returns the parameters as a string map for result reporting.
func (p Parameters) Map() map[string]string {
	return map[string]string{
		"tone":   string(p.Tone),
		"format": p.Format,
		"length": string(p.Length),
	}
}

// ParseLength validates s as a LengthDirective. Empty means as-is.
func ParseLength(s string) (LengthDirective, error) {
	switch l := LengthDirective(s); l {
	case "":
		return LengthAsIs, nil
	case LengthShorter, LengthAsIs, LengthLonger:
		return l, nil
	}
	return "", Errorf(CodeInvalidPreference, "unknown length %q", s)
}

// Parameters maps the preferences to backend parameters with as-is length.
func (p *Preferences) Parameters() Parameters {
	return ParametersFor(p, "")
}
