package runner

import (
	"strings"
	"testing"
)

func TestFindWrongLanguageConstruct(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		wantName string
		wantLine int
	}{
		{
			name: "first of several errors wins",
			code: strings.Join([]string{
				"def mockMainFunction(input):",
				"    return True",
				"def myFunction(arg):",
				"    arg = arg / 2",
				"    arg--",
				"    return arg",
				"def myFunction2(arg):",
				"    arg++",
				"    return arg",
				"",
			}, "\n"),
			wantName: "--",
			wantLine: 5,
		},
		{"increment", "def f(x):\n    x++\n", "++", 2},
		{"and operator", "def f(a, b):\n    return a && b\n", "&&", 2},
		{"or operator", "def f(a, b):\n    return a || b\n", "||", 2},
		{"increment in call", "def f(x):\n    return g(x++)\n", "++", 2},
		{"decrement with semicolon", "def f(x):\n    x--;\n", "--", 2},
		{"catch block", "def f():\n    try:\n        pass\n    } catch (e) {\n", "catch", 4},
		{"else if", "def f(x):\n    if x:\n        pass\n    else if y:\n        pass\n", "else if", 4},
		{"var declaration", "def f():\n    var x = 1\n", "declaration", 2},
		{"inside string ignored", "def f():\n    return 'a++'\n", "", 0},
		{"inside comment ignored", "def f():\n    # i++ would be wrong\n    return 1\n", "", 0},
		{"triple quoted ignored", "def f():\n    \"\"\"x--\n    y++\"\"\"\n    return 1\n", "", 0},
		{"valid python", "def f(x):\n    x += 1\n    return x and not x\n", "", 0},
		{"length attribute", "class C:\n    def __init__(self):\n        self.length = 3\n", "", 0},
		{"push method", "def f(xs):\n    xs.push(1)\n", "", 0},
		{"catch as a name", "def f(xs):\n    catch = xs[0]\n    return catch\n", "", 0},
		{"minus negated operand", "def f(a, b):\n    return a--b\n", "", 0},
		{"plus unary operand", "def f(a, b):\n    return a++b\n", "", 0},
		{"else then nested if", "def f(x):\n    if x:\n        pass\n    else:\n        if x:\n            pass\n", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindWrongLanguageConstruct(tt.code)
			if tt.wantName == "" {
				if got != nil {
					t.Errorf("FindWrongLanguageConstruct() = %+v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatalf("FindWrongLanguageConstruct() = nil, want %s", tt.wantName)
			}
			if got.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", got.Name, tt.wantName)
			}
			if got.LineNumber != tt.wantLine {
				t.Errorf("LineNumber = %d, want %d", got.LineNumber, tt.wantLine)
			}
		})
	}
}
