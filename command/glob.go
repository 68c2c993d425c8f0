package command

import (
	"strings"

	"github.com/dlclark/regexp2"
)

// compileGlob translates a KEYS pattern into an anchored regular expression.
// Supported: '*', '?', '[...]' classes with '^' negation and ranges, and
// backslash escapes.
func compileGlob(pattern string) (*regexp2.Regexp, error) {
	rs := []rune(pattern)

	var b strings.Builder
	b.WriteString(`\A`)
	for i := 0; i < len(rs); i++ {
		switch c := rs[i]; c {
		case '*':
			b.WriteString(`.*`)
		case '?':
			b.WriteString(`.`)
		case '\\':
			if i+1 < len(rs) {
				i++
			}
			b.WriteString(regexp2.Escape(string(rs[i])))
		case '[':
			end := classEnd(rs, i+1)
			if end < 0 {
				b.WriteString(regexp2.Escape("["))
				continue
			}
			b.WriteString(translateClass(rs[i+1 : end]))
			i = end
		default:
			b.WriteString(regexp2.Escape(string(c)))
		}
	}
	b.WriteString(`\z`)

	return regexp2.Compile(b.String(), regexp2.Singleline)
}

func classEnd(rs []rune, from int) int {
	for j := from; j < len(rs); j++ {
		switch rs[j] {
		case '\\':
			j++
		case ']':
			if j > from {
				return j
			}
		}
	}
	return -1
}

func translateClass(class []rune) string {
	var b strings.Builder
	b.WriteByte('[')
	for i := 0; i < len(class); i++ {
		c := class[i]
		switch {
		case c == '^' && i == 0:
			b.WriteRune('^')
		case c == '-' && i > 0 && i < len(class)-1:
			b.WriteRune('-')
		case c == '\\' && i+1 < len(class):
			i++
			b.WriteString(classLiteral(class[i]))
		default:
			b.WriteString(classLiteral(c))
		}
	}
	b.WriteByte(']')
	return b.String()
}

func classLiteral(c rune) string {
	if strings.ContainsRune(`\]^-[`, c) {
		return `\` + string(c)
	}
	return string(c)
}
