package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Vocabulary returns the placeholder values available to path and filename
// templates for a session. name is the caller-supplied file name, usually the
// original file's base name.
func Vocabulary(meta CaptureMetadata, ts time.Time, name string) map[string]string {
	targetUnderscore := ""
	if meta.TargetName != "" {
		targetUnderscore = meta.TargetName + "_"
	}
	return map[string]string{
		"bin":     meta.BinningBucket(),
		"exp":     meta.ExposureDecimal(),
		"gain":    strconv.Itoa(meta.Gain),
		"Y":       fmt.Sprintf("%02d", ts.Year()),
		"M":       fmt.Sprintf("%02d", int(ts.Month())),
		"d":       fmt.Sprintf("%02d", ts.Day()),
		"H":       fmt.Sprintf("%02d", ts.Hour()),
		"m":       fmt.Sprintf("%02d", ts.Minute()),
		"S":       fmt.Sprintf("%02d", ts.Second()),
		"ms":      fmt.Sprintf("%03d", ts.Nanosecond()/int(time.Millisecond)),
		"target":  meta.TargetName,
		"target_": targetUnderscore,
		"name":    name,
	}
}

// Render substitutes $name and ${name} placeholders in template from values.
// Unknown placeholders and stray dollar signs are left as written; "$$"
// renders a single "$".
func Render(template string, values map[string]string) string {
	if !strings.Contains(template, "$") {
		return template
	}

	var b strings.Builder
	b.Grow(len(template))

	for i := 0; i < len(template); {
		c := template[i]
		if c != '$' || i+1 >= len(template) {
			b.WriteByte(c)
			i++
			continue
		}

		next := template[i+1]
		switch {
		case next == '$':
			b.WriteByte('$')
			i += 2

		case next == '{':
			end := strings.IndexByte(template[i+2:], '}')
			if end < 0 {
				b.WriteByte(c)
				i++
				continue
			}
			ident := template[i+2 : i+2+end]
			value, ok := values[ident]
			if !isIdentifier(ident) || !ok {
				b.WriteString(template[i : i+3+end])
			} else {
				b.WriteString(value)
			}
			i += 3 + end

		case isIdentStart(next):
			j := i + 2
			for j < len(template) && isIdentPart(template[j]) {
				j++
			}
			ident := template[i+1 : j]
			if value, ok := values[ident]; ok {
				b.WriteString(value)
			} else {
				b.WriteString(template[i:j])
			}
			i = j

		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

func isIdentifier(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentPart(s[i]) {
			return false
		}
	}
	return true
}

func isIdentStart(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || ('0' <= c && c <= '9')
}
