package isitclear

import (
	"encoding/json"
	"strings"
)

// ChangeKind categorizes a localized edit.
type ChangeKind string

// Change kinds.
const (
	ChangeWordChoice        ChangeKind = "word-choice"
	ChangeSentenceStructure ChangeKind = "sentence-structure"
	ChangeClarity           ChangeKind = "clarity"
	ChangeConciseness       ChangeKind = "conciseness"
)

// ParseChangeKind validates s as a ChangeKind.
func ParseChangeKind(s string) (ChangeKind, error) {
	switch k := ChangeKind(s); k {
	case ChangeWordChoice, ChangeSentenceStructure, ChangeClarity, ChangeConciseness:
		return k, nil
	}
	return "", Errorf(CodeInvalidChangeKind, "unknown change kind %q", s)
}

// WholeTextReason is the reason attached to a synthesized whole-text change.
const WholeTextReason = "Overall clarity improvement."

// ChangeRecord describes one localized edit. It is immutable once constructed.
type ChangeRecord struct {
	kind     ChangeKind
	original string
	improved string
	reason   string
	start    int
	end      int
}

// NewChangeRecord validates and creates a ChangeRecord.
// start and end are rune offsets into the original text, half-open.
func NewChangeRecord(kind ChangeKind, original, improved, reason string, start, end int) (ChangeRecord, error) {
	if _, err := ParseChangeKind(string(kind)); err != nil {
		return ChangeRecord{}, err
	}
	if strings.TrimSpace(original) == "" {
		return ChangeRecord{}, Errorf(CodeInvalidChange, "original phrase is empty")
	}
	if strings.TrimSpace(improved) == "" {
		return ChangeRecord{}, Errorf(CodeInvalidChange, "improved phrase is empty")
	}
	if original == improved {
		return ChangeRecord{}, Errorf(CodeInvalidChange, "improved phrase is identical to original %q", original)
	}
	if strings.TrimSpace(reason) == "" {
		return ChangeRecord{}, Errorf(CodeInvalidChange, "reason is empty")
	}
	if start < 0 || start >= end {
		return ChangeRecord{}, Errorf(CodeInvalidPositionRange, "invalid range [%d, %d)", start, end)
	}
	return ChangeRecord{
		kind:     kind,
		original: original,
		improved: improved,
		reason:   reason,
		start:    start,
		end:      end,
	}, nil
}

// wholeTextChange covers the entire original text. It is the only way to
// build a record whose phrases are equal: an unchanged rewrite still
// documents one change so Changes is never empty.
func wholeTextChange(original, improved string) ChangeRecord {
	return ChangeRecord{
		kind:     ChangeClarity,
		original: original,
		improved: improved,
		reason:   WholeTextReason,
		start:    0,
		end:      runeLen(original),
	}
}

// Accessors. Start and End are rune offsets into the original text; Len is
// End minus Start. IsZero reports an uninitialized record, and IsWholeText
// the synthesized change covering the entire original.
func (c ChangeRecord) Kind() ChangeKind  { return c.kind }
func (c ChangeRecord) Original() string  { return c.original }
func (c ChangeRecord) Improved() string  { return c.improved }
func (c ChangeRecord) Reason() string    { return c.reason }
func (c ChangeRecord) Start() int        { return c.start }
func (c ChangeRecord) End() int          { return c.end }
func (c ChangeRecord) IsZero() bool      { return c.kind == "" }
func (c ChangeRecord) Len() int          { return c.end - c.start }
func (c ChangeRecord) String() string    { return c.original + " -> " + c.improved }
func (c ChangeRecord) IsWholeText() bool { return c.reason == WholeTextReason && c.start == 0 }

type changeRecordJSON struct {
	Type     ChangeKind `json:"type"`
	Original string     `json:"original"`
	Improved string     `json:"improved"`
	Reason   string     `json:"reason"`
	Start    int        `json:"start"`
	End      int        `json:"end"`
}

// MarshalJSON implements json.Marshaler.
func (c ChangeRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(changeRecordJSON{
		Type:     c.kind,
		Original: c.original,
		Improved: c.improved,
		Reason:   c.reason,
		Start:    c.start,
		End:      c.end,
	})
}

// UnmarshalJSON implements json.Unmarshaler. Decoded records are validated
// like constructed ones, except for the whole-text form.
func (c *ChangeRecord) UnmarshalJSON(data []byte) error {
	var raw changeRecordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Reason == WholeTextReason && raw.Start == 0 && raw.Original == raw.Improved && raw.Original != "" {
		*c = wholeTextChange(raw.Original, raw.Improved)
		return nil
	}
	rec, err := NewChangeRecord(raw.Type, raw.Original, raw.Improved, raw.Reason, raw.Start, raw.End)
	if err != nil {
		return err
	}
	*c = rec
	return nil
}
