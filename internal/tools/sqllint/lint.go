package main

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"regexp"
	"strconv"
	"strings"
)

var (
	sqlKeywordPattern = regexp.MustCompile(`(?i)^\s*(--sql\b|select|insert|update|delete|with|create|alter|drop)\b`)
	uuidMarkerPattern = regexp.MustCompile(`^--sql ([0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12})$`)
)

type violation struct {
	pos     token.Position
	name    string
	message string
}

func (v violation) String() string {
	return fmt.Sprintf("%s:%d %s (%s)", v.pos.Filename, v.pos.Line, v.message, v.name)
}

type linter struct {
	fset       *token.FileSet
	seen       map[string]violation
	violations []violation
}

func newLinter() *linter {
	return &linter{fset: token.NewFileSet(), seen: map[string]violation{}}
}

func (l *linter) lintFile(path string) error {
	file, err := parser.ParseFile(l.fset, path, nil, parser.SkipObjectResolution)
	if err != nil {
		return err
	}
	ast.Inspect(file, func(n ast.Node) bool {
		vs, ok := n.(*ast.ValueSpec)
		if !ok {
			return true
		}
		for i, value := range vs.Values {
			lit, ok := value.(*ast.BasicLit)
			if !ok || lit.Kind != token.STRING {
				continue
			}
			name := "_"
			if i < len(vs.Names) {
				name = vs.Names[i].Name
			}
			l.check(lit, name)
		}
		return true
	})
	return nil
}

func (l *linter) check(lit *ast.BasicLit, name string) {
	raw, err := unquote(lit.Value)
	if err != nil || !sqlKeywordPattern.MatchString(raw) {
		return
	}
	here := violation{pos: l.fset.Position(lit.Pos()), name: name}

	m := uuidMarkerPattern.FindStringSubmatch(firstLine(raw))
	if m == nil {
		here.message = "missing or invalid --sql <uuid v4> marker"
		l.violations = append(l.violations, here)
		return
	}
	if prev, dup := l.seen[m[1]]; dup {
		here.message = fmt.Sprintf("marker %s already used by %s at %s:%d", m[1], prev.name, prev.pos.Filename, prev.pos.Line)
		l.violations = append(l.violations, here)
		return
	}
	l.seen[m[1]] = here
}

func firstLine(s string) string {
	s = strings.TrimLeft(s, "\n\r \t")
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}

func unquote(v string) (string, error) {
	if strings.HasPrefix(v, "`") {
		return strings.Trim(v, "`"), nil
	}
	return strconv.Unquote(v)
}
