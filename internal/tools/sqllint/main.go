// Command sqllint checks that every SQL statement constant starts with a
// "--sql <uuid>" audit marker and that no marker is used twice.
package main

import (
	"errors"
	"flag"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"studio/internal/infra"
)

var statementPattern = regexp.MustCompile(`(?i)^\s*(--sql[^\n]*\n\s*)?(select|insert|update|delete|with)\b`)

type violation struct {
	pos     token.Position
	name    string
	message string
}

func (v violation) String() string {
	return fmt.Sprintf("%s:%d %s (%s)", v.pos.Filename, v.pos.Line, v.message, v.name)
}

type linter struct {
	fset    *token.FileSet
	markers map[string]violation
	found   []violation
}

func main() {
	flag.Parse()
	targets := flag.Args()
	if len(targets) == 0 {
		targets = []string{"internal/sqlinline"}
	}
	if err := run(targets, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "sqllint: %v\n", err)
		os.Exit(1)
	}
}

func run(targets []string, out io.Writer) error {
	l := &linter{fset: token.NewFileSet(), markers: map[string]violation{}}
	for _, target := range targets {
		if err := l.walk(target); err != nil {
			return err
		}
	}
	if len(l.found) == 0 {
		return nil
	}
	sort.Slice(l.found, func(i, j int) bool {
		a, b := l.found[i].pos, l.found[j].pos
		if a.Filename != b.Filename {
			return a.Filename < b.Filename
		}
		return a.Line < b.Line
	})
	for _, v := range l.found {
		fmt.Fprintln(out, "  "+v.String())
	}
	return fmt.Errorf("%d statement(s) without a unique audit marker", len(l.found))
}

func (l *linter) walk(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && (strings.HasPrefix(d.Name(), ".") || strings.HasPrefix(d.Name(), "_") || d.Name() == "vendor") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		return l.file(path)
	})
}

func (l *linter) file(path string) error {
	file, err := parser.ParseFile(l.fset, path, nil, 0)
	if err != nil {
		return err
	}
	for _, decl := range file.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.CONST {
			continue
		}
		for _, spec := range gen.Specs {
			vs := spec.(*ast.ValueSpec)
			for i, value := range vs.Values {
				lit, ok := value.(*ast.BasicLit)
				if !ok || lit.Kind != token.STRING {
					continue
				}
				raw, err := strconv.Unquote(lit.Value)
				if err != nil || !statementPattern.MatchString(raw) {
					continue
				}
				name := "_"
				if i < len(vs.Names) {
					name = vs.Names[i].Name
				}
				l.check(name, lit.Pos(), raw)
			}
		}
	}
	return nil
}

func (l *linter) check(name string, pos token.Pos, query string) {
	here := violation{pos: l.fset.Position(pos), name: name}
	marker, _, err := infra.ExtractMarker(query)
	if err != nil {
		here.message = "missing or invalid --sql <uuid> marker"
		if !errors.Is(err, infra.ErrMissingMarker) {
			here.message = err.Error()
		}
		l.found = append(l.found, here)
		return
	}
	if first, ok := l.markers[marker]; ok {
		here.message = fmt.Sprintf("marker %s already used by %s", marker, first.name)
		l.found = append(l.found, here)
		return
	}
	l.markers[marker] = here
}
