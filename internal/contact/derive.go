package contact

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Derived holds the presentation values computed from a Record at render time.
type Derived struct {
	NormalizedPhone        string `json:"normalized_phone"`
	TransliteratedFullName string `json:"transliterated_full_name"`
	LoginHandle            string `json:"login_handle"`
	UsesPhoto              bool   `json:"uses_photo"`
}

// Derive computes the presentation fields for r. It has no side effects.
func Derive(r Record) Derived {
	first := Fold(r.FirstName)
	last := Fold(r.LastName)
	return Derived{
		NormalizedPhone:        strings.ReplaceAll(r.Phone, " ", ""),
		TransliteratedFullName: first + last,
		LoginHandle:            strings.ToLower(first) + "." + strings.ToLower(last),
		UsesPhoto:              UsesPhoto(r.PhotoFlag),
	}
}

// UsesPhoto reports whether flag selects the photo layout.
func UsesPhoto(flag string) bool {
	return !strings.EqualFold(flag, NoPhotoFlag)
}

// strokeLetters covers letters that have no canonical decomposition, so mark
// stripping leaves them untouched.
var strokeLetters = strings.NewReplacer(
	"ł", "l", "Ł", "L",
	"đ", "d", "Đ", "D",
	"ø", "o", "Ø", "O",
	"ħ", "h", "Ħ", "H",
	"ı", "i",
	"ß", "ss",
	"æ", "ae", "Æ", "AE",
	"œ", "oe", "Œ", "OE",
	"þ", "th", "Þ", "TH",
)

// Fold maps accented Latin letters to their unaccented ASCII base letters.
// Characters without a mapping pass through unchanged.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strokeLetters.Replace(folded)
}
