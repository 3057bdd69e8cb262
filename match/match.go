// Package match maps OCR-corrupted text fragments onto the known item
// catalog for the active grind location.
package match

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Donobuz/BDO-Loot-Bot-sub001/catalog"
)

// Method records which strategy produced a match.
type Method string

const (
	MethodExact Method = "EXACT"
	MethodFuzzy Method = "FUZZY"
)

// Quantity bounds for the "xN" multiplier. Anything outside is OCR noise.
const (
	MinQuantity = 1
	MaxQuantity = 999
)

// Loot is one recognized pickup: a catalog item with quantity and the
// confidence/method that produced it.
type Loot struct {
	Item         string
	Quantity     int
	Confidence   float64
	Method       Method
	OriginalText string
}

// Matcher matches text fragments against one immutable catalog snapshot.
type Matcher struct {
	cat *catalog.Catalog
}

func NewMatcher(cat *catalog.Catalog) *Matcher {
	if cat == nil {
		cat = catalog.Empty("")
	}
	return &Matcher{cat: cat}
}

// Match attempts exact (original and OCR-corrected) then fuzzy matching.
// Catalog entries are tested longest name first, so a specific "Black Stone
// (Armor)" beats a generic "Black Stone". A fragment either resolves to
// exactly one item or is dropped; no ambiguous results are surfaced.
func (m *Matcher) Match(text string, confidence float64) (Loot, bool) {
	norm := normalize(text)
	if norm == "" {
		return Loot{}, false
	}
	corrected := CorrectConfusions(norm)

	for _, e := range m.cat.Entries() {
		name := normalize(e.Name)
		if name == "" {
			continue
		}
		if containsWord(norm, name) || containsWord(corrected, CorrectConfusions(name)) {
			return Loot{
				Item:         e.Name,
				Quantity:     ExtractQuantity(text),
				Confidence:   confidence,
				Method:       MethodExact,
				OriginalText: text,
			}, true
		}
	}

	for _, e := range m.cat.Entries() {
		name := normalize(e.Name)
		if !fuzzyContains(corrected, CorrectConfusions(name), len(norm)) {
			continue
		}
		return Loot{
			Item:         e.Name,
			Quantity:     ExtractQuantity(text),
			Confidence:   confidence * 0.8,
			Method:       MethodFuzzy,
			OriginalText: text,
		}, true
	}

	return Loot{}, false
}

// confusions maps visually confusable glyphs in the game's notification
// font onto one canonical representative per class. Applying the table to
// both sides of a comparison makes "B1ack St0ne" equal "Black Stone".
var confusions = map[rune]rune{
	'|': 'l',
	'1': 'l',
	'i': 'l',
	'0': 'o',
	'5': 's',
	'8': 'b',
	'6': 'g',
}

// CorrectConfusions rewrites every confusable character to its class
// representative. Pure function over the fixed substitution table.
func CorrectConfusions(s string) string {
	return strings.Map(func(r rune) rune {
		if c, ok := confusions[r]; ok {
			return c
		}
		return r
	}, s)
}

// normalize lowercases, trims, drops apostrophes (the engine reads
// "Polly's" as "Pollys" about half the time) and collapses runs of
// whitespace to single spaces.
func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\'', '`', '’':
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// containsWord reports whether needle appears in haystack on word
// boundaries, so a catalog "Stone" never matches inside "Stonetail".
func containsWord(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	for from := 0; ; {
		i := strings.Index(haystack[from:], needle)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(needle)
		if boundaryBefore(haystack, start) && boundaryAfter(haystack, end) {
			return true
		}
		from = start + 1
	}
}

func boundaryBefore(s string, i int) bool {
	return i == 0 || !isWordByte(s[i-1])
}

func boundaryAfter(s string, i int) bool {
	return i == len(s) || !isWordByte(s[i])
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

// fuzzyContains implements the conservative fallback: some contiguous
// substring covering 80% of the catalog name must appear in the text. Two
// guards keep the false-positive rate down: names shorter than 4 runes are
// never fuzzed, and text more than twice the name's length is skipped so a
// long unrelated sentence cannot match on a coincidental fragment.
func fuzzyContains(text, name string, textLen int) bool {
	if len(name) < 4 {
		return false
	}
	if textLen > 2*len(name) {
		return false
	}
	win := len(name) * 4 / 5
	if win < 3 {
		win = 3
	}
	for i := 0; i+win <= len(name); i++ {
		if strings.Contains(text, name[i:i+win]) {
			return true
		}
	}
	return false
}

var quantityRE = regexp.MustCompile(`(?i)(?:[x×*]\s?(\d+))|(?:(\d+)\s?[x×*])`)

// ExtractQuantity finds a multiplier like "x5", "5x" or "×3" in the
// original text. Out-of-bound or absent counts default to 1.
func ExtractQuantity(text string) int {
	m := quantityRE.FindStringSubmatch(text)
	if m == nil {
		return 1
	}
	digits := m[1]
	if digits == "" {
		digits = m[2]
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < MinQuantity || n > MaxQuantity {
		return 1
	}
	return n
}

// silverMarker is "silver" run through the confusion table, so OCR variants
// like "Si1ver" or "S|lver" land on it after correction.
var silverMarker = CorrectConfusions("silver")

// ParseSilver extracts a silver gain amount from a notification like
// "1,250,000 Silver". Returns false when the fragment is not a silver line.
// Digits are taken from the uncorrected text: the confusion table would
// rewrite them into letters.
func ParseSilver(text string) (int64, bool) {
	low := strings.ToLower(strings.TrimSpace(text))
	idx := strings.Index(CorrectConfusions(low), silverMarker)
	if idx < 0 {
		return 0, false
	}
	digits := onlyDigits(low[:idx])
	if digits == "" {
		return 0, false
	}
	amt, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || amt <= 0 {
		return 0, false
	}
	return amt, true
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
