package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// maxFileNameBytes keeps names under the common 255-byte segment limit after
// the pipeline adds its own prefix.
const maxFileNameBytes = 200

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName normalizes name to NFC and replaces filesystem-unsafe
// characters. Slashes, backslashes, colons, and asterisks become dashes;
// other unsafe characters and control runes are removed. Leading dots are
// stripped so the result can never be "." or "..". Overlong names are
// shortened while keeping the extension.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(norm.NFC.String(name))
	if name == "" {
		return ""
	}
	name = fileNameReplacer.Replace(name)
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = strings.TrimLeft(strings.TrimSpace(name), ".")
	return truncateName(name, maxFileNameBytes)
}

// SanitizeKey converts an opaque identifier into a case-preserving path
// segment. ASCII letters, digits, '-' and '_' are kept; every other rune
// becomes '_'. Returns "" when nothing usable remains.
func SanitizeKey(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_")
	if len(out) > maxFileNameBytes {
		out = out[:maxFileNameBytes]
	}
	return out
}

func truncateName(name string, limit int) string {
	if len(name) <= limit {
		return name
	}
	ext := ""
	if idx := strings.LastIndexByte(name, '.'); idx > 0 && len(name)-idx <= 16 {
		ext = name[idx:]
		name = name[:idx]
	}
	budget := limit - len(ext)
	cut := 0
	for i := range name {
		if i > budget {
			break
		}
		cut = i
	}
	if len(name) <= budget {
		cut = len(name)
	}
	return name[:cut] + ext
}
