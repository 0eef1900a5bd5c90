package runner

import (
	"context"
	"strings"
	"testing"
)

const starterCode = "def mockMainFunction(input):\n    return ''\n"

func TestPythonAnalyzer_Check(t *testing.T) {
	libs := DefaultSupportedPythonLibraries

	tests := []struct {
		name           string
		code           string
		wantMissing    []string
		wantDisallowed []string
		wantGlobalLine int
		wantWrong      string
	}{
		{
			name: "clean",
			code: "import math\n\ndef mockMainFunction(input):\n    return math.floor(1)\n",
		},
		{
			name:        "empty code misses starter",
			code:        "",
			wantMissing: []string{"mockMainFunction"},
		},
		{
			name:        "renamed function",
			code:        "def main(input):\n    return input\n",
			wantMissing: []string{"mockMainFunction"},
		},
		{
			name:           "bad import",
			code:           "import pandas\ndef mockMainFunction(input):\n    return True\n",
			wantDisallowed: []string{"pandas"},
		},
		{
			name:           "from import and dotted import",
			code:           "from numpy.linalg import norm\nimport os.path as p, re\ndef mockMainFunction(input):\n    import json\n    return True\n",
			wantDisallowed: []string{"numpy", "os", "json"},
		},
		{
			name:           "global call",
			code:           "def mockMainFunction(input):\n    return input\nmockMainFunction(\"input\")\n",
			wantGlobalLine: 3,
		},
		{
			name: "docstring and comments are not global code",
			code: "\"\"\"Module doc.\"\"\"\n# comment\ndef mockMainFunction(input):\n    return input\n",
		},
		{
			name: "decorated and class definitions",
			code: "import functools\n@functools.lru_cache\ndef mockMainFunction(input):\n    return input\nclass Helper:\n    pass\n",
			wantDisallowed: []string{"functools"},
		},
		{
			name: "wrong language inside function",
			code: strings.Join([]string{
				"def mockMainFunction(input):",
				"    return True",
				"def myFunction(arg):",
				"    arg = arg / 2",
				"    arg--",
				"    return arg",
			}, "\n"),
			wantWrong: "--",
		},
		{
			name: "valid code is never wrong language",
			code: strings.Join([]string{
				"class Counter:",
				"    def __init__(self, xs):",
				"        self.length = len(xs)",
				"def mockMainFunction(input):",
				"    catch = input[0]",
				"    return catch--input[1]",
			}, "\n"),
		},
		{
			name: "foreign construct in code that does not parse",
			code: "def mockMainFunction(input):\n    if input && True:\n        return input\n",
			wantWrong: "&&",
		},
	}

	a := NewPythonAnalyzer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := a.Check(context.Background(), tt.code, starterCode, libs)
			if err != nil {
				t.Fatalf("Check() error = %v", err)
			}
			if !equalStrings(res.MissingFunctions, tt.wantMissing) {
				t.Errorf("MissingFunctions = %v, want %v", res.MissingFunctions, tt.wantMissing)
			}
			if !equalStrings(res.DisallowedImports, tt.wantDisallowed) {
				t.Errorf("DisallowedImports = %v, want %v", res.DisallowedImports, tt.wantDisallowed)
			}
			if res.GlobalCodeLine != tt.wantGlobalLine || res.HasGlobalCode != (tt.wantGlobalLine > 0) {
				t.Errorf("GlobalCodeLine = %d (has=%v), want %d", res.GlobalCodeLine, res.HasGlobalCode, tt.wantGlobalLine)
			}
			gotWrong := ""
			if res.WrongLanguage != nil {
				gotWrong = res.WrongLanguage.Name
			}
			if gotWrong != tt.wantWrong {
				t.Errorf("WrongLanguage = %q, want %q", gotWrong, tt.wantWrong)
			}
		})
	}
}

func TestPythonAnalyzer_Outline(t *testing.T) {
	code := "def a():\n    pass\n\nclass B:\n    def method(self):\n        pass\n"
	out, err := NewPythonAnalyzer().Outline(context.Background(), code)
	if err != nil {
		t.Fatalf("Outline() error = %v", err)
	}
	if !equalStrings(out.Definitions, []string{"a", "B"}) {
		t.Errorf("Definitions = %v, want [a B]", out.Definitions)
	}
	if out.ParseError {
		t.Error("ParseError = true for valid code")
	}

	out, err = NewPythonAnalyzer().Outline(context.Background(), "def a(x):\n    x++\n")
	if err != nil {
		t.Fatalf("Outline() error = %v", err)
	}
	if !out.ParseError {
		t.Error("ParseError = false for x++")
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
