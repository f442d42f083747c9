package sandbox

import (
	"fmt"
	"strings"
	"unicode"
)

// ViolationKind classifies why the pre-check rejected a snippet.
type ViolationKind string

const (
	ViolationBlockedName      ViolationKind = "blocked_name"
	ViolationDisallowedImport ViolationKind = "disallowed_import"
)

// Violation is one forbidden reference found in a snippet.
type Violation struct {
	Kind       ViolationKind `json:"kind"`
	Identifier string        `json:"identifier"`
}

func (v Violation) String() string {
	if v.Kind == ViolationDisallowedImport {
		return fmt.Sprintf("disallowed import %q", v.Identifier)
	}
	return fmt.Sprintf("blocked identifier %q", v.Identifier)
}

// Check scans a snippet for references the policy forbids: module names
// outside the import allowlist (require calls, import statements, and
// from-import forms) and identifiers on the blocklist. It returns the
// full list of violations in order of first appearance, never just the
// first hit, deduplicated. Comments and string literals are not scanned
// for identifiers; template-literal interpolations are scanned as code.
//
// The check is advisory-but-mandatory: a failing check always blocks
// execution, while a passing check is not a safety proof. The restricted
// runtime is the enforcement boundary.
func Check(source string, policy Policy) []Violation {
	toks := tokenize(source)

	var out []Violation
	seen := make(map[Violation]bool)
	add := func(v Violation) {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}

	// Token indexes already consumed as the "import" of a from-import.
	handled := make(map[int]bool)

	for i, t := range toks {
		if t.kind != tokIdent {
			continue
		}
		if policy.IsNameBlocked(t.text) {
			add(Violation{Kind: ViolationBlockedName, Identifier: t.text})
		}
		for _, name := range importsAt(toks, i, handled) {
			if policy.IsImportAllowed(name) || policy.IsImportAllowed(baseModule(name)) {
				continue
			}
			add(Violation{Kind: ViolationDisallowedImport, Identifier: name})
		}
	}
	return out
}

func baseModule(name string) string {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	return name
}

// importsAt returns the module names introduced by an import form that
// starts at token i, if any. Recognized forms:
//
//	require("m")            import("m")          import "m"
//	import x from "m"       import {a, b} from "m"
//	import m                import a.b, c        from m import x
//
// The last three are not valid in the guest dialect but still name the
// module the author wanted; rejecting them here beats surfacing an
// unrelated syntax error later.
func importsAt(toks []token, i int, handled map[int]bool) []string {
	at := func(j int, kind tokenKind, text string) bool {
		return j < len(toks) && toks[j].kind == kind && (text == "" || toks[j].text == text)
	}

	switch toks[i].text {
	case "require":
		if at(i+1, tokPunct, "(") && at(i+2, tokString, "") && at(i+3, tokPunct, ")") {
			return []string{toks[i+2].text}
		}

	case "from":
		if name, j := dottedName(toks, i+1); name != "" && at(j, tokIdent, "import") {
			handled[j] = true
			return []string{name}
		}

	case "import":
		if handled[i] {
			return nil
		}
		if at(i+1, tokString, "") {
			return []string{toks[i+1].text}
		}
		if at(i+1, tokPunct, "(") && at(i+2, tokString, "") && at(i+3, tokPunct, ")") {
			return []string{toks[i+2].text}
		}
		// import … from "m"
		for j := i + 1; j < len(toks) && j <= i+64; j++ {
			if at(j, tokPunct, ";") || at(j, tokIdent, "import") || at(j, tokIdent, "require") {
				break
			}
			if at(j, tokIdent, "from") && at(j+1, tokString, "") {
				return []string{toks[j+1].text}
			}
		}
		// bare form: import a.b, c
		var names []string
		name, j := dottedName(toks, i+1)
		for name != "" {
			names = append(names, name)
			if !at(j, tokPunct, ",") {
				break
			}
			name, j = dottedName(toks, j+1)
		}
		return names
	}
	return nil
}

// dottedName parses ident(.ident)* starting at token i, returning the
// joined name and the index just past it.
func dottedName(toks []token, i int) (string, int) {
	if i >= len(toks) || toks[i].kind != tokIdent {
		return "", i
	}
	name := toks[i].text
	i++
	for i+1 < len(toks) && toks[i].kind == tokPunct && toks[i].text == "." && toks[i+1].kind == tokIdent {
		name += "." + toks[i+1].text
		i += 2
	}
	return name, i
}

// --- Tokenizer ---

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokString
	tokNumber
	tokPunct
)

type token struct {
	kind tokenKind
	text string
}

// scanFrame tracks template-literal nesting: a template frame is the
// inside of `…`, a code frame above it is the inside of one ${…}.
type scanFrame struct {
	template bool
	braces   int
}

// tokenize splits source into identifier, string, number, and
// punctuation tokens. Comments disappear; string tokens carry their
// unquoted value; regex literals are skipped via the standard
// prev-token heuristic. The scan never fails: malformed input just
// yields fewer tokens, and the interpreter reports the real error.
func tokenize(source string) []token {
	rs := []rune(source)
	n := len(rs)
	var toks []token

	stack := []scanFrame{{}}
	top := func() *scanFrame { return &stack[len(stack)-1] }

	emit := func(kind tokenKind, text string) {
		toks = append(toks, token{kind: kind, text: text})
	}

	// regexAllowed reports whether a '/' here can start a regex literal
	// rather than division, judged by the previous significant token.
	regexAllowed := func() bool {
		if len(toks) == 0 {
			return true
		}
		last := toks[len(toks)-1]
		switch last.kind {
		case tokIdent:
			switch last.text {
			case "return", "typeof", "instanceof", "in", "of", "new",
				"delete", "void", "case", "do", "else":
				return true
			}
			return false
		case tokNumber, tokString:
			return false
		default:
			return last.text != ")" && last.text != "]"
		}
	}

	i := 0
	for i < n {
		if top().template {
			switch {
			case rs[i] == '\\':
				i += 2
			case rs[i] == '`':
				stack = stack[:len(stack)-1]
				i++
			case rs[i] == '$' && i+1 < n && rs[i+1] == '{':
				stack = append(stack, scanFrame{})
				i += 2
			default:
				i++
			}
			continue
		}

		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++

		case r == '/' && i+1 < n && rs[i+1] == '/':
			for i < n && rs[i] != '\n' {
				i++
			}

		case r == '/' && i+1 < n && rs[i+1] == '*':
			i += 2
			for i+1 < n && !(rs[i] == '*' && rs[i+1] == '/') {
				i++
			}
			i += 2

		case r == '/' && regexAllowed():
			i = scanRegex(rs, i)

		case r == '\'' || r == '"':
			var value string
			value, i = scanQuoted(rs, i)
			emit(tokString, value)

		case r == '`':
			stack = append(stack, scanFrame{template: true})
			i++

		case isIdentStart(r):
			start := i
			for i < n && isIdentPart(rs[i]) {
				i++
			}
			emit(tokIdent, string(rs[start:i]))

		case unicode.IsDigit(r) || (r == '.' && i+1 < n && unicode.IsDigit(rs[i+1])):
			var text string
			text, i = scanNumber(rs, i)
			emit(tokNumber, text)

		case r == '{':
			top().braces++
			emit(tokPunct, "{")
			i++

		case r == '}':
			if top().braces == 0 && len(stack) > 1 {
				// closes a ${…} interpolation, back to template text
				stack = stack[:len(stack)-1]
			} else {
				if top().braces > 0 {
					top().braces--
				}
				emit(tokPunct, "}")
			}
			i++

		default:
			emit(tokPunct, string(r))
			i++
		}
	}
	return toks
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}

// scanQuoted reads a '…' or "…" literal starting at i, returning its
// value with simple escapes collapsed and the index past the closing
// quote. An unterminated literal ends at the line or input end.
func scanQuoted(rs []rune, i int) (string, int) {
	quote := rs[i]
	i++
	n := len(rs)
	var b strings.Builder
	for i < n {
		switch {
		case rs[i] == '\\' && i+1 < n:
			b.WriteRune(rs[i+1])
			i += 2
		case rs[i] == quote:
			return b.String(), i + 1
		case rs[i] == '\n':
			return b.String(), i
		default:
			b.WriteRune(rs[i])
			i++
		}
	}
	return b.String(), i
}

// scanRegex skips a /pattern/flags literal starting at i.
func scanRegex(rs []rune, i int) int {
	n := len(rs)
	i++
	inClass := false
	for i < n {
		switch rs[i] {
		case '\\':
			i++
		case '[':
			inClass = true
		case ']':
			inClass = false
		case '\n':
			return i // unterminated
		case '/':
			if !inClass {
				i++
				for i < n && isIdentPart(rs[i]) {
					i++
				}
				return i
			}
		}
		i++
	}
	return i
}

// scanNumber reads a numeric literal (decimal, fraction, exponent, or
// 0x hex) starting at i.
func scanNumber(rs []rune, i int) (string, int) {
	start := i
	n := len(rs)
	if rs[i] == '0' && i+1 < n && (rs[i+1] == 'x' || rs[i+1] == 'X') {
		i += 2
		for i < n && isHexDigit(rs[i]) {
			i++
		}
		return string(rs[start:i]), i
	}
	for i < n && unicode.IsDigit(rs[i]) {
		i++
	}
	if i < n && rs[i] == '.' {
		i++
		for i < n && unicode.IsDigit(rs[i]) {
			i++
		}
	}
	if i < n && (rs[i] == 'e' || rs[i] == 'E') {
		j := i + 1
		if j < n && (rs[j] == '+' || rs[j] == '-') {
			j++
		}
		if j < n && unicode.IsDigit(rs[j]) {
			i = j
			for i < n && unicode.IsDigit(rs[i]) {
				i++
			}
		}
	}
	return string(rs[start:i]), i
}

func isHexDigit(r rune) bool {
	return unicode.IsDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}
