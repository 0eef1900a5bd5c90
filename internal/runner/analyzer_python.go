package runner

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// PythonAnalyzer inspects Python source with Tree-sitter. Parsers are not
// safe for concurrent use, so each call creates its own.
type PythonAnalyzer struct{}

// NewPythonAnalyzer creates a new analyzer
func NewPythonAnalyzer() *PythonAnalyzer {
	return &PythonAnalyzer{}
}

// Outline is the top-level shape of a Python module.
type Outline struct {
	Definitions    []string // top-level function and class names, in order
	Imports        []string // root module names, in order of appearance
	GlobalCodeLine int      // 1-based line of the first top-level statement, 0 if none
	ParseError     bool     // the tree contains ERROR or MISSING nodes
}

var (
	topLevelDefPattern = regexp.MustCompile(`(?m)^(?:async\s+)?(?:def|class)\s+([A-Za-z_]\w*)`)
	docstringTypes     = map[string]bool{"string": true, "concatenated_string": true}
)

// Outline parses code and extracts its top-level shape.
func (a *PythonAnalyzer) Outline(ctx context.Context, code string) (*Outline, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	content := []byte(code)
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse python: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	out := &Outline{}
	seenDef := make(map[string]bool)
	addDef := func(name string) {
		if name != "" && !seenDef[name] {
			seenDef[name] = true
			out.Definitions = append(out.Definitions, name)
		}
	}

	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "function_definition", "class_definition":
			addDef(nodeName(child, content))
		case "decorated_definition":
			if def := child.ChildByFieldName("definition"); def != nil {
				addDef(nodeName(def, content))
			}
		case "import_statement", "import_from_statement", "future_import_statement", "comment", "ERROR":
			// Imports are collected below; broken code is left to the syntax check.
		case "expression_statement":
			if child.NamedChildCount() == 1 && docstringTypes[child.NamedChild(0).Type()] {
				continue
			}
			a.markGlobal(out, child)
		default:
			a.markGlobal(out, child)
		}
	}

	// Error recovery can swallow definitions and hoist statements out of
	// their function; fall back to scanning lines and leave global code to
	// the syntax check.
	if root.HasError() {
		out.ParseError = true
		for _, m := range topLevelDefPattern.FindAllStringSubmatch(code, -1) {
			addDef(m[1])
		}
		out.GlobalCodeLine = 0
	}

	seenImport := make(map[string]bool)
	walk(root, func(n *sitter.Node) {
		for _, mod := range importedModules(n, content) {
			if !seenImport[mod] {
				seenImport[mod] = true
				out.Imports = append(out.Imports, mod)
			}
		}
	})

	return out, nil
}

func (a *PythonAnalyzer) markGlobal(out *Outline, n *sitter.Node) {
	if out.GlobalCodeLine == 0 {
		out.GlobalCodeLine = int(n.StartPoint().Row) + 1
	}
}

// Check runs every prerequisite check against code.
func (a *PythonAnalyzer) Check(ctx context.Context, code, starterCode string, supportedLibraries []string) (*PrereqResult, error) {
	res := &PrereqResult{}

	outline, err := a.Outline(ctx, code)
	if err != nil {
		return nil, err
	}
	starter, err := a.Outline(ctx, starterCode)
	if err != nil {
		return nil, err
	}

	defined := make(map[string]bool, len(outline.Definitions))
	for _, name := range outline.Definitions {
		defined[name] = true
	}
	for _, name := range starter.Definitions {
		if !defined[name] {
			res.MissingFunctions = append(res.MissingFunctions, name)
		}
	}

	supported := make(map[string]bool, len(supportedLibraries))
	for _, lib := range supportedLibraries {
		supported[lib] = true
	}
	for _, mod := range outline.Imports {
		if !supported[mod] {
			res.DisallowedImports = append(res.DisallowedImports, mod)
		}
	}

	if outline.GlobalCodeLine > 0 {
		res.HasGlobalCode = true
		res.GlobalCodeLine = outline.GlobalCodeLine
	}

	if outline.ParseError {
		res.WrongLanguage = FindWrongLanguageConstruct(code)
	}
	return res, nil
}

func nodeName(n *sitter.Node, content []byte) string {
	name := n.ChildByFieldName("name")
	if name == nil {
		return ""
	}
	return name.Content(content)
}

// importedModules returns the root modules named by an import node.
func importedModules(n *sitter.Node, content []byte) []string {
	var mods []string
	switch n.Type() {
	case "import_statement":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			if child.Type() == "aliased_import" {
				child = child.ChildByFieldName("name")
			}
			if child != nil && child.Type() == "dotted_name" {
				mods = append(mods, rootModule(child.Content(content)))
			}
		}
	case "import_from_statement":
		if mod := n.ChildByFieldName("module_name"); mod != nil && mod.Type() == "dotted_name" {
			mods = append(mods, rootModule(mod.Content(content)))
		}
	}
	return mods
}

func rootModule(dotted string) string {
	if i := strings.IndexByte(dotted, '.'); i >= 0 {
		return dotted[:i]
	}
	return strings.TrimSpace(dotted)
}

func walk(n *sitter.Node, fn func(*sitter.Node)) {
	fn(n)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		walk(n.NamedChild(i), fn)
	}
}
