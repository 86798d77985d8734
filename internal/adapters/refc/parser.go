// Package refc is the reference compiler implementation shipped with kiln.
//
// It compiles a small declaration language: top-level fun, val, var, class,
// interface and object declarations plus "import name" lines. Non-private
// top-level declaration headers form a module's ABI. Each X.kt source yields
// X.class in the output directory, and every module publishes its ABI as
// <module>.kabi so downstream modules can resolve imports from the classpath.
package refc

import (
	"bufio"
	"bytes"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// SourceExt is the extension of compilable sources.
const SourceExt = ".kt"

var declKeywords = []string{"fun", "val", "var", "class", "interface", "object"}

var modifiers = map[string]bool{
	"public": true, "internal": true, "private": true, "protected": true,
	"override": true, "open": true, "abstract": true, "data": true,
	"inline": true, "suspend": true, "const": true, "sealed": true,
}

// Decl is a top-level declaration.
type Decl struct {
	Name      string `msgpack:"name"`
	Signature string `msgpack:"signature"`
	Private   bool   `msgpack:"private"`
}

// Parsed is the result of parsing one source file.
type Parsed struct {
	Path     string
	Imports  []string
	Decls    []Decl
	BodyHash string
}

// ABI returns the non-private declarations.
func (p *Parsed) ABI() []Decl {
	var abi []Decl
	for _, d := range p.Decls {
		if !d.Private {
			abi = append(abi, d)
		}
	}
	return abi
}

// ParseError reports a malformed source.
type ParseError struct {
	Path string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Msg)
}

// Parse reads a source file's imports and top-level declarations.
// Comments and blank lines do not contribute to the body hash.
func Parse(path string, src []byte) (*Parsed, error) {
	p := &Parsed{Path: path}
	var normalized bytes.Buffer
	depth := 0
	lineNo := 0

	scanner := bufio.NewScanner(bytes.NewReader(src))
	for scanner.Scan() {
		lineNo++
		line := stripComment(scanner.Text())
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		normalized.WriteString(line)
		normalized.WriteByte('\n')

		if depth == 0 {
			if name, ok := strings.CutPrefix(line, "import "); ok {
				name = strings.TrimSpace(name)
				if name == "" {
					return nil, &ParseError{Path: path, Line: lineNo, Msg: "empty import"}
				}
				p.Imports = append(p.Imports, name)
				continue
			}
			if d, ok := parseDecl(line); ok {
				p.Decls = append(p.Decls, d)
			}
		}

		depth += strings.Count(line, "{") - strings.Count(line, "}")
		if depth < 0 {
			return nil, &ParseError{Path: path, Line: lineNo, Msg: "unexpected '}'"}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &ParseError{Path: path, Line: lineNo, Msg: err.Error()}
	}
	if depth != 0 {
		return nil, &ParseError{Path: path, Line: lineNo, Msg: "unbalanced braces"}
	}

	slices.Sort(p.Imports)
	p.Imports = slices.Compact(p.Imports)
	p.BodyHash = fmt.Sprintf("%016x", xxhash.Sum64(normalized.Bytes()))
	return p, nil
}

func stripComment(line string) string {
	if i := strings.Index(line, "//"); i >= 0 {
		return line[:i]
	}
	return line
}

func parseDecl(line string) (Decl, bool) {
	fields := strings.Fields(line)
	private := false
	i := 0
	for i < len(fields) && modifiers[fields[i]] {
		if fields[i] == "private" {
			private = true
		}
		i++
	}
	if i+1 >= len(fields) || !slices.Contains(declKeywords, fields[i]) {
		return Decl{}, false
	}

	name := fields[i+1]
	if cut := strings.IndexAny(name, "(:<{="); cut >= 0 {
		name = name[:cut]
	}
	if name == "" {
		return Decl{}, false
	}

	return Decl{Name: name, Signature: signature(line), Private: private}, true
}

// signature is the declaration header up to its body or initializer.
func signature(line string) string {
	end := len(line)
	if i := strings.Index(line, "{"); i >= 0 {
		end = i
	}
	if i := initializerIndex(line); i >= 0 && i < end {
		end = i
	}
	return strings.TrimSpace(line[:end])
}

// initializerIndex finds the " = " that starts a body, skipping default
// argument values inside parentheses.
func initializerIndex(line string) int {
	parens := 0
	for i, r := range line {
		switch r {
		case '(':
			parens++
		case ')':
			parens--
		case '=':
			if parens == 0 {
				return i
			}
		}
	}
	return -1
}

// ClassName is the output file name of a source.
func ClassName(source string) string {
	return strings.TrimSuffix(filepath.Base(source), filepath.Ext(source)) + ".class"
}
