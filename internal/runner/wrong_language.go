package runner

import (
	"regexp"
	"strings"
)

type wrongLanguageRule struct {
	name    string
	pattern *regexp.Regexp
	message string
}

// Constructs learners carry over from C-family languages and JavaScript.
// Each pattern only matches text that cannot be valid Python: a.length and
// xs.push(1) parse fine and fail at runtime instead, and a--b is a - (-b).
var pythonWrongLanguageRules = []wrongLanguageRule{
	{
		name:    "++",
		pattern: regexp.MustCompile(`[\w)\]]\s*\+\+\s*(?:$|[;)\],])`),
		message: "It looks like you're using the ++ operator. Python doesn't have it; use += 1 instead.",
	},
	{
		name:    "--",
		pattern: regexp.MustCompile(`[\w)\]]\s*--\s*(?:$|[;)\],])`),
		message: "It looks like you're using the -- operator. Python doesn't have it; use -= 1 instead.",
	},
	{
		name:    "&&",
		pattern: regexp.MustCompile(`&&`),
		message: "It looks like you're using &&. In Python, use the keyword and instead.",
	},
	{
		name:    "||",
		pattern: regexp.MustCompile(`\|\|`),
		message: "It looks like you're using ||. In Python, use the keyword or instead.",
	},
	{
		name:    "else if",
		pattern: regexp.MustCompile(`\belse\s+if\b`),
		message: "It looks like you're using else if. In Python, this is written elif.",
	},
	{
		name:    "catch",
		pattern: regexp.MustCompile(`^\s*(?:\}\s*catch\b|catch\s*(?:\([^)]*\))?\s*\{)`),
		message: "It looks like you're using catch. In Python, exceptions are handled with try and except.",
	},
	{
		name:    "declaration",
		pattern: regexp.MustCompile(`^\s*(?:var|let|const)\s+[A-Za-z_]\w*\s*=`),
		message: "It looks like you're declaring a variable with var, let or const. In Python, just assign to the name.",
	},
}

var (
	stringLiteralPattern = regexp.MustCompile(`"""[\s\S]*?"""|'''[\s\S]*?'''|"(?:[^"\\\n]|\\.)*"|'(?:[^'\\\n]|\\.)*'`)
	commentPattern       = regexp.MustCompile(`#.*`)
)

// FindWrongLanguageConstruct returns the first construct from another
// language found in Python code, scanning line by line. String literals and
// comments are ignored. Callers should only ask about code that failed to
// parse.
func FindWrongLanguageConstruct(code string) *WrongLanguageConstruct {
	original := strings.Split(code, "\n")
	stripped := strings.Split(stripLiteralsAndComments(code), "\n")

	for i, line := range stripped {
		for _, rule := range pythonWrongLanguageRules {
			if rule.pattern.MatchString(line) {
				return &WrongLanguageConstruct{
					Name:       rule.name,
					Message:    rule.message,
					LineNumber: i + 1,
					Line:       strings.TrimSpace(original[i]),
				}
			}
		}
	}
	return nil
}

// stripLiteralsAndComments blanks out strings and comments while keeping
// line breaks, so line numbers still match the original code.
func stripLiteralsAndComments(code string) string {
	blank := func(s string) string {
		return strings.Map(func(r rune) rune {
			if r == '\n' {
				return r
			}
			return ' '
		}, s)
	}
	code = stringLiteralPattern.ReplaceAllStringFunc(code, blank)
	return commentPattern.ReplaceAllStringFunc(code, blank)
}
