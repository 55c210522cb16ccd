// Package worddiff computes word-level differences between prose texts.
package worddiff

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/nibzard/isitclear"
)

var _ isitclear.WordDiffer = (*Differ)(nil)

// Differ implements isitclear.WordDiffer for prose.
type Differ struct{}

// NewDiffer returns a Differ.
func NewDiffer() *Differ {
	return &Differ{}
}

// Tokenize splits a string into word, whitespace and punctuation tokens.
// Words may contain inner apostrophes and hyphens ("don't", "well-known").
func (d *Differ) Tokenize(s string) []string {
	if len(s) == 0 {
		return nil
	}

	tokens := make([]string, 0, len(s)/4+1)
	i := 0

	for i < len(s) {
		start := i
		r, size := utf8.DecodeRuneInString(s[i:])

		switch {
		case isWordRune(r):
			i += size
			for i < len(s) {
				r, size = utf8.DecodeRuneInString(s[i:])
				if isWordRune(r) {
					i += size
					continue
				}
				// Inner joiner followed by another word rune stays in the word.
				if isJoiner(r) && i+size < len(s) {
					next, _ := utf8.DecodeRuneInString(s[i+size:])
					if isWordRune(next) {
						i += size
						continue
					}
				}
				break
			}
			tokens = append(tokens, s[start:i])

		case unicode.IsSpace(r):
			i += size
			for i < len(s) {
				r, size = utf8.DecodeRuneInString(s[i:])
				if !unicode.IsSpace(r) {
					break
				}
				i += size
			}
			tokens = append(tokens, s[start:i])

		default:
			// Single punctuation or symbol rune
			i += size
			tokens = append(tokens, s[start:i])
		}
	}

	return tokens
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}

func isJoiner(r rune) bool {
	return r == '\'' || r == '’' || r == '-'
}

// Texts sharing fewer tokens than this ratio are diffed as a whole replacement.
const similarityThreshold = 0.4

// Diff splits old and new into segments flagged as kept or changed.
func (d *Differ) Diff(old, new string) (oldSegs, newSegs []isitclear.Segment) {
	if old == "" && new == "" {
		return nil, nil
	}
	if old == "" {
		return nil, []isitclear.Segment{{Text: new, Changed: true}}
	}
	if new == "" {
		return []isitclear.Segment{{Text: old, Changed: true}}, nil
	}

	if old == new {
		seg := isitclear.Segment{Text: old, Changed: false}
		return []isitclear.Segment{seg}, []isitclear.Segment{seg}
	}

	oldTokens := d.Tokenize(old)
	newTokens := d.Tokenize(new)

	if !similarEnough(oldTokens, newTokens) {
		return []isitclear.Segment{{Text: old, Changed: true}},
			[]isitclear.Segment{{Text: new, Changed: true}}
	}

	matches := lcsMatches(oldTokens, newTokens)
	if len(matches) == 0 {
		return []isitclear.Segment{{Text: old, Changed: true}},
			[]isitclear.Segment{{Text: new, Changed: true}}
	}
	return buildSegments(oldTokens, newTokens, matches)
}

// Edits returns localized replacements turning old into new, with rune offsets.
// Pure insertions and deletions are widened to the neighbouring word so that
// both sides of every edit are non-empty. Edits that would only touch
// whitespace are dropped. Dissimilar texts yield a single whole-text edit.
func (d *Differ) Edits(old, new string) []isitclear.Edit {
	if old == new || old == "" || new == "" {
		return nil
	}

	oldTokens := d.Tokenize(old)
	newTokens := d.Tokenize(new)

	var matches []match
	if similarEnough(oldTokens, newTokens) {
		matches = lcsMatches(oldTokens, newTokens)
	}
	if len(matches) == 0 {
		return []isitclear.Edit{{
			OldStart: 0, OldEnd: utf8.RuneCountInString(old),
			NewStart: 0, NewEnd: utf8.RuneCountInString(new),
			Old: old, New: new,
		}}
	}

	oldPos := runeOffsets(oldTokens)
	newPos := runeOffsets(newTokens)

	// Sentinel match past the end closes the trailing gap.
	matches = append(matches, match{len(oldTokens), len(newTokens)})

	var edits []isitclear.Edit
	oi, ni := 0, 0
	for k, mt := range matches {
		if oi < mt.oldIdx || ni < mt.newIdx {
			oStart, oEnd, nStart, nEnd := oi, mt.oldIdx, ni, mt.newIdx
			if oStart == oEnd || nStart == nEnd {
				// Widen with the previous matched token, or the next one at the start.
				if k > 0 {
					oStart--
					nStart--
				} else if mt.oldIdx < len(oldTokens) {
					oEnd++
					nEnd++
				}
			}
			e := isitclear.Edit{
				OldStart: oldPos[oStart], OldEnd: oldPos[oEnd],
				NewStart: newPos[nStart], NewEnd: newPos[nEnd],
				Old: strings.Join(oldTokens[oStart:oEnd], ""),
				New: strings.Join(newTokens[nStart:nEnd], ""),
			}
			if strings.TrimSpace(e.Old) != "" && strings.TrimSpace(e.New) != "" && e.Old != e.New {
				edits = append(edits, e)
			}
		}
		oi = mt.oldIdx + 1
		ni = mt.newIdx + 1
	}
	return edits
}

// runeOffsets returns the rune offset at which each token starts, plus the total length.
func runeOffsets(tokens []string) []int {
	pos := make([]int, len(tokens)+1)
	for i, t := range tokens {
		pos[i+1] = pos[i] + utf8.RuneCountInString(t)
	}
	return pos
}

// similarEnough reports whether the token multisets overlap enough for a
// word-level diff: 2*shared / (len(a)+len(b)) >= similarityThreshold.
func similarEnough(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	pool := make(map[string]int, len(a))
	for _, tok := range a {
		pool[tok]++
	}
	shared := 0
	for _, tok := range b {
		if pool[tok] == 0 {
			continue
		}
		pool[tok]--
		shared++
	}
	return float64(2*shared)/float64(len(a)+len(b)) >= similarityThreshold
}

// match pairs an old token index with the new token it is kept as.
type match struct{ oldIdx, newIdx int }

// lcsMatches returns the longest common subsequence of a and b as index
// pairs in ascending order.
func lcsMatches(a, b []string) []match {
	// length[i][j] is the LCS length of a[:i] and b[:j].
	length := make([][]int, len(a)+1)
	for i := range length {
		length[i] = make([]int, len(b)+1)
	}
	for i, ta := range a {
		for j, tb := range b {
			switch {
			case ta == tb:
				length[i+1][j+1] = length[i][j] + 1
			default:
				length[i+1][j+1] = max(length[i][j+1], length[i+1][j])
			}
		}
	}

	k := length[len(a)][len(b)]
	if k == 0 {
		return nil
	}
	out := make([]match, k)
	for i, j := len(a), len(b); i > 0 && j > 0; {
		switch {
		case a[i-1] == b[j-1]:
			k--
			out[k] = match{i - 1, j - 1}
			i, j = i-1, j-1
		case length[i-1][j] > length[i][j-1]:
			i--
		default:
			j--
		}
	}
	return out
}

// segmenter merges consecutive tokens with the same changed flag.
type segmenter struct {
	segs []isitclear.Segment
	buf  strings.Builder
	open bool
	flag bool
}

func (s *segmenter) add(tok string, changed bool) {
	if s.open && s.flag != changed {
		s.flush()
	}
	s.buf.WriteString(tok)
	s.flag = changed
	s.open = true
}

func (s *segmenter) addAll(toks []string, changed bool) {
	for _, tok := range toks {
		s.add(tok, changed)
	}
}

func (s *segmenter) flush() []isitclear.Segment {
	if s.open {
		s.segs = append(s.segs, isitclear.Segment{Text: s.buf.String(), Changed: s.flag})
		s.buf.Reset()
		s.open = false
	}
	return s.segs
}

// buildSegments marks every token outside matches as changed.
func buildSegments(oldTokens, newTokens []string, matches []match) (oldSegs, newSegs []isitclear.Segment) {
	var olds, news segmenter
	oi, ni := 0, 0
	for _, mt := range matches {
		olds.addAll(oldTokens[oi:mt.oldIdx], true)
		news.addAll(newTokens[ni:mt.newIdx], true)
		olds.add(oldTokens[mt.oldIdx], false)
		news.add(newTokens[mt.newIdx], false)
		oi, ni = mt.oldIdx+1, mt.newIdx+1
	}
	olds.addAll(oldTokens[oi:], true)
	news.addAll(newTokens[ni:], true)
	return olds.flush(), news.flush()
}
