package compiler

import (
	"strings"

	"github.com/mkchaos/rsc/pkg/errs"
)

// Preprocess handles `#define NAME VALUE` directives and substitutes every
// later occurrence of NAME on identifier boundaries. Directive lines are
// replaced by blank lines so line numbers in diagnostics stay correct.
// There is no multi-file linking, so `#include` is rejected.
func Preprocess(src string) (string, error) {
	defines := make(map[string]string)
	lines := strings.Split(src, "\n")
	var result strings.Builder
	inComment := false

	for i, line := range lines {
		lineNo := i + 1
		trimmed := strings.TrimSpace(line)

		if inComment || !strings.HasPrefix(trimmed, "#") {
			var out string
			out, inComment = applyDefines(line, defines, inComment)
			result.WriteString(out)
			if i < len(lines)-1 {
				result.WriteString("\n")
			}
			continue
		}

		if strings.HasPrefix(trimmed, "#define") {
			rest := strings.TrimSpace(strings.TrimPrefix(trimmed, "#define"))
			nameEnd := 0
			for nameEnd < len(rest) && isIdentPart(rest[nameEnd]) {
				nameEnd++
			}
			name := rest[:nameEnd]
			if name == "" || !isIdentStart(name[0]) {
				return "", errs.New(errs.ParseErr, lineNo, "invalid #define")
			}
			if nameEnd < len(rest) && rest[nameEnd] == '(' {
				return "", errs.New(errs.ParseErr, lineNo, "function-like macro %s is not supported", name)
			}

			// Expand earlier defines in the body right away.
			defines[name], _ = applyDefines(strings.TrimSpace(rest[nameEnd:]), defines, false)

			result.WriteString("\n")
			continue
		}

		if strings.HasPrefix(trimmed, "#include") {
			return "", errs.New(errs.ParseErr, lineNo, "#include is not supported")
		}

		return "", errs.New(errs.ParseErr, lineNo, "unknown directive %s", strings.Fields(trimmed)[0])
	}
	return result.String(), nil
}

// applyDefines replaces identifiers that name a define with its value.
// Text inside comments is left alone. inComment says whether the line starts
// inside a block comment; the returned flag says whether it ends inside one.
func applyDefines(input string, defines map[string]string, inComment bool) (string, bool) {
	var sb strings.Builder
	n := len(input)
	i := 0

	for i < n {
		switch {
		case inComment:
			end := strings.Index(input[i:], "*/")
			if end < 0 {
				sb.WriteString(input[i:])
				return sb.String(), true
			}
			sb.WriteString(input[i : i+end+2])
			i += end + 2
			inComment = false

		case input[i] == '/' && i+1 < n && input[i+1] == '*':
			sb.WriteString("/*")
			i += 2
			inComment = true

		case input[i] == '/' && i+1 < n && input[i+1] == '/':
			sb.WriteString(input[i:])
			return sb.String(), false

		case isIdentStart(input[i]):
			start := i
			for i < n && isIdentPart(input[i]) {
				i++
			}
			word := input[start:i]
			if body, ok := defines[word]; ok {
				sb.WriteString(body)
			} else {
				sb.WriteString(word)
			}

		case isDigit(input[i]):
			// keep 12abc intact so the lexer reports it
			start := i
			for i < n && isIdentPart(input[i]) {
				i++
			}
			sb.WriteString(input[start:i])

		default:
			sb.WriteByte(input[i])
			i++
		}
	}
	return sb.String(), inComment
}

func isIdentStart(c byte) bool {
	return isLetter(c)
}

func isIdentPart(c byte) bool {
	return isLetter(c) || isDigit(c)
}
