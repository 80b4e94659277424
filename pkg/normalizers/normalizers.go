// Package normalizers provides field normalization functions for record linkage
package normalizers

import (
	"regexp"
	"strings"
	"unicode"
)

// Normalizer is a function that normalizes a string value
type Normalizer func(string) string

// registry holds all registered normalizers
var registry = make(map[string]Normalizer)

func init() {
	// Register built-in normalizers
	Register("lowercase", Lowercase)
	Register("trim", Trim)
	Register("ncompany", NormalizeCompany)
	Register("nwebsite", NormalizeWebsite)
	Register("nphone", NormalizePhone)
	Register("npostal", NormalizePostal)
	Register("nemail", NormalizeEmail)
	Register("nstate", NormalizeState)
	Register("nstreet", NormalizeStreet)
	Register("nname", NormalizeName)
	Register("digits_only", DigitsOnly)
	Register("alphanumeric", Alphanumeric)
}

// Register adds a normalizer to the registry
func Register(name string, fn Normalizer) {
	registry[name] = fn
}

// Get retrieves a normalizer by name
func Get(name string) (Normalizer, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// Apply applies a named normalizer to a value
func Apply(value, normalizer string) string {
	fn, ok := registry[normalizer]
	if !ok {
		return value
	}
	return fn(value)
}

// ApplyChain applies multiple normalizers in sequence
func ApplyChain(value string, normalizers ...string) string {
	result := value
	for _, name := range normalizers {
		result = Apply(result, name)
	}
	return result
}

// Built-in normalizers

// Lowercase converts string to lowercase
func Lowercase(s string) string {
	return strings.ToLower(s)
}

// Trim removes leading and trailing whitespace
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// companySuffixes are legal-form suffixes stripped from company names.
// Longer forms come first so "co inc" wins over "co".
var companySuffixes = []string{
	"co inc", "co.", "corp.", "corp", "pllc", "llc", "llp", "ltd",
	"inc.", "inc", "lp", "lc.", "lc", "dpm", "m.d.", "md pa", "pa m.d.",
	"pa md", "md", "pc", "co", "asso", "pa", "od",
}

var (
	fkaPattern     = regexp.MustCompile(`\s*\((fka|aka)[^)]*\)`)
	dashTail       = regexp.MustCompile(`\s+-\s+.*$`)
	multiSpace     = regexp.MustCompile(`\s+`)
	junkValues     = regexp.MustCompile(`^(nan|none|null|n/a|na)$`)
	websitePrefix  = regexp.MustCompile(`^(https?://)?(www\.)?`)
	leadingDigits  = regexp.MustCompile(`^\d+`)
	nonWordOrSpace = regexp.MustCompile(`[^\w\s]`)
)

// NormalizeCompany canonicalizes a company name: lowercase, drop fka/aka
// parentheticals and dash-separated tails, strip legal suffixes and
// punctuation, collapse whitespace. Word boundaries survive so token-level
// similarity still sees individual words.
func NormalizeCompany(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = fkaPattern.ReplaceAllString(s, "")
	s = dashTail.ReplaceAllString(s, "")
	for _, suffix := range companySuffixes {
		s = strings.ReplaceAll(s, " "+suffix+" ", " ")
		s = strings.TrimSuffix(s, " "+suffix)
	}
	s = nonWordOrSpace.ReplaceAllString(s, "")
	s = multiSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// NormalizeWebsite reduces a URL to its bare domain. Junk placeholder values
// (nan, none, null, n/a) normalize to empty.
func NormalizeWebsite(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = junkValues.ReplaceAllString(s, "")
	if s == "" {
		return ""
	}
	s = websitePrefix.ReplaceAllString(s, "")
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// NormalizePhone canonicalizes a phone number to 11 digits, prepending the
// US country code to 10-digit numbers. Anything shorter normalizes to empty.
func NormalizePhone(s string) string {
	digits := DigitsOnly(s)
	if digits == "" {
		return ""
	}
	if len(digits) == 10 {
		digits = "1" + digits
	}
	if len(digits) < 11 {
		return ""
	}
	return digits[:11]
}

// NormalizePostal canonicalizes a postal code to its first 5 digits,
// dropping any +4 extension. Codes with fewer than 5 digits normalize to
// empty.
func NormalizePostal(s string) string {
	if i := strings.IndexByte(s, '-'); i >= 0 {
		s = s[:i]
	}
	digits := DigitsOnly(strings.TrimSpace(s))
	if len(digits) < 5 {
		return ""
	}
	return digits[:5]
}

// NormalizeEmail normalizes an email address (lowercase, trim)
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeState canonicalizes a state or region code (lowercase, trim).
func NormalizeState(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// suiteKeywords mark where suite/apartment info begins in a street address.
var suiteKeywords = []string{
	" ste ", " apt.", " ste.", " appt", " no.", " unit ", "apartment",
	" apt", " suite", "number", "#",
}

// SplitStreetSuite splits a street address into its street part and any
// trailing suite/apartment part, both lowercased and trimmed. The split
// happens at the first suite keyword found.
func SplitStreetSuite(s string) (street, suite string) {
	s = strings.ToLower(s)
	cut := -1
	keyLen := 0
	for _, key := range suiteKeywords {
		if i := strings.Index(s, key); i >= 0 && (cut < 0 || i < cut) {
			cut = i
			keyLen = len(key)
		}
	}
	if cut < 0 {
		return strings.TrimSpace(s), ""
	}
	street = strings.TrimSpace(s[:cut])
	suite = strings.TrimSpace(s[cut+keyLen:])
	suite = strings.TrimLeft(suite, " .#-_")
	return street, suite
}

// NormalizeStreet canonicalizes the street part of an address down to its
// alphanumeric characters, with any suite information removed.
func NormalizeStreet(s string) string {
	street, _ := SplitStreetSuite(s)
	return Alphanumeric(street)
}

// NormalizeName normalizes a person's name for matching: lowercase, strip
// common suffixes and punctuation, collapse whitespace.
func NormalizeName(s string) string {
	s = strings.ToLower(s)

	suffixes := []string{" jr.", " jr", " sr.", " sr", " iii", " ii", " iv", " phd", " md", " dds"}
	for _, suffix := range suffixes {
		s = strings.TrimSuffix(s, suffix)
	}

	var result strings.Builder
	prevSpace := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
			prevSpace = false
		} else if unicode.IsSpace(r) {
			if !prevSpace {
				result.WriteRune(' ')
				prevSpace = true
			}
		}
	}

	return strings.TrimSpace(result.String())
}

// StreetNumber extracts the leading digits of a street address.
func StreetNumber(s string) string {
	return leadingDigits.FindString(strings.TrimSpace(s))
}

// DigitsOnly keeps only digit characters
func DigitsOnly(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// Alphanumeric keeps only alphanumeric characters
func Alphanumeric(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}
