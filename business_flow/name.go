package businessflow

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/amirphl/workforce-ledger/models"
)

var (
	// annotations such as "(deleted)" or "(temp)", anywhere in the name
	annotationPattern = regexp.MustCompile(`\(.*?\)`)
	// trailing part-time marker: "-P", "_P" or " P"
	partTimeMarker     = regexp.MustCompile(`(?i)(-P|_P|\sP)$`)
	trailingSeparators = regexp.MustCompile(`[-_\s]+$`)
)

// CanonicalizeName turns a raw agent identity into its canonical name and employment role.
// Canonical names never end in a part-time marker, so a second pass returns the same name as Full-Timer.
func CanonicalizeName(raw string) (name, role string) {
	role = models.RoleFullTimer

	name = strings.TrimSpace(raw)
	if name == "" {
		return "", role
	}

	name = strings.TrimSpace(annotationPattern.ReplaceAllString(name, ""))
	for {
		if partTimeMarker.MatchString(name) {
			role = models.RolePartTimer
			name = partTimeMarker.ReplaceAllString(name, "")
		}
		stripped := trailingSeparators.ReplaceAllString(name, "")
		if stripped == name && !partTimeMarker.MatchString(name) {
			break
		}
		name = stripped
	}

	return titleCase(strings.TrimSpace(name)), role
}

// titleCase upper-cases the first letter of every word and lower-cases the rest.
// A word starts at any letter not preceded by another letter.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToTitle(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}
