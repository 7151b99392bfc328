// Package slug builds product permalinks.
package slug

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	maxBaseLength = 80
	fallback      = "product"
)

// Make lowercases s, strips diacritics and joins the remaining letters and
// digits with single hyphens.
func Make(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}

	out := b.String()
	if len(out) > maxBaseLength {
		out = strings.TrimRight(truncate(out, maxBaseLength), "-")
	}
	if out == "" {
		return fallback
	}
	return out
}

// Permalink returns Make(name) followed by a short suffix hashed from a
// time-based UUID, so two products with the same name get distinct links.
func Permalink(name string) (string, error) {
	id, err := uuid.NewUUID()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(id[:])
	return Make(name) + "-" + hex.EncodeToString(sum[:4]), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
