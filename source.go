package main

import (
	"embed"
	"fmt"
	"regexp"
	"strings"
)

//go:embed kernels/*.cl
var kernelFS embed.FS

// kernelSource is one named unit of kernel text.
type kernelSource struct {
	Name string
	Text string
}

// constantsUnit is the name diagnostics use for the rendered constant block.
const constantsUnit = "constants"

// kernelLibraryOrder fixes the order units are concatenated in. Units may
// only reference symbols from units earlier in this list.
var kernelLibraryOrder = []string{
	"common",
	"clist_propagator",
	"rect_propagator",
	"hex_propagator",
	"lamb_propagator",
	"xy_translator",
	"xyz_translator",
	"sf_solver",
}

// loadKernelSource reads one embedded unit by name.
func loadKernelSource(name string) (kernelSource, error) {
	data, err := kernelFS.ReadFile("kernels/" + name + ".cl")
	if err != nil {
		return kernelSource{}, fmt.Errorf("loading kernel source %q: %w", name, err)
	}
	return kernelSource{Name: name, Text: string(data)}, nil
}

// libraryRank orders unit names by kernelLibraryOrder; unknown names sort
// after every library unit.
func libraryRank(name string) int {
	for i, n := range kernelLibraryOrder {
		if n == name {
			return i
		}
	}
	return len(kernelLibraryOrder)
}

// sourceSpan records which global lines of the assembled program belong to
// which unit. Lines are 1-based and inclusive.
type sourceSpan struct {
	Unit  string
	First int
	Last  int
}

// assembledSource is the single compilation unit handed to the runtime.
type assembledSource struct {
	Text  string
	Spans []sourceSpan
}

// assembleSource concatenates the constant block and the units, in the
// order given.
func assembleSource(constants constantBlock, units []kernelSource) (assembledSource, error) {
	var sb strings.Builder
	var spans []sourceSpan
	line := 1
	seen := map[string]bool{constantsUnit: true}
	add := func(name, text string) {
		if text != "" && !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		n := strings.Count(text, "\n")
		if n > 0 {
			spans = append(spans, sourceSpan{Unit: name, First: line, Last: line + n - 1})
		}
		sb.WriteString(text)
		line += n
	}
	add(constantsUnit, constants.Text())
	for _, u := range units {
		if u.Name == "" {
			return assembledSource{}, fmt.Errorf("kernel source unit without a name")
		}
		if seen[u.Name] {
			return assembledSource{}, fmt.Errorf("kernel source unit %q listed twice", u.Name)
		}
		seen[u.Name] = true
		add(u.Name, u.Text)
	}
	return assembledSource{Text: sb.String(), Spans: spans}, nil
}

// locate maps a global line number back to its unit and unit-local line.
func (a assembledSource) locate(line int) (string, int, bool) {
	for _, s := range a.Spans {
		if line >= s.First && line <= s.Last {
			return s.Unit, line - s.First + 1, true
		}
	}
	return "", 0, false
}

// Units lists the unit names in compilation order.
func (a assembledSource) Units() []string {
	names := make([]string, 0, len(a.Spans))
	for _, s := range a.Spans {
		names = append(names, s.Unit)
	}
	return names
}

type paramKind int

const (
	paramInput paramKind = iota
	paramOutput
	paramInt
	paramFloat
)

func (k paramKind) String() string {
	switch k {
	case paramInput:
		return "input buffer"
	case paramOutput:
		return "output buffer"
	case paramInt:
		return "int"
	case paramFloat:
		return "float"
	default:
		return "unknown"
	}
}

type kernelParam struct {
	Name string
	Kind paramKind
}

// kernelSignature is an entry point declared in kernel source. Line and
// Column locate the entry point name, 1-based.
type kernelSignature struct {
	Name   string
	Params []kernelParam
	Line   int
	Column int
}

var definePattern = regexp.MustCompile(`^\s*#define\s+([A-Za-z_]\w*)\s+(\S+)`)

// sourceDefines returns the object-like macros of src by name, first
// definition wins.
func sourceDefines(src string) map[string]string {
	defs := make(map[string]string)
	for _, line := range strings.Split(stripComments(src), "\n") {
		m := definePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if _, ok := defs[m[1]]; !ok {
			defs[m[1]] = m[2]
		}
	}
	return defs
}

var kernelDeclPattern = regexp.MustCompile(`(?s)__kernel\s+void\s+([A-Za-z_]\w*)\s*\(([^)]*)\)`)

// parseKernelSignatures lists the entry points of src in declaration order.
func parseKernelSignatures(src string) []kernelSignature {
	src = stripComments(src)
	var sigs []kernelSignature
	for _, m := range kernelDeclPattern.FindAllStringSubmatchIndex(src, -1) {
		sig := kernelSignature{
			Name:   src[m[2]:m[3]],
			Line:   strings.Count(src[:m[2]], "\n") + 1,
			Column: m[2] - strings.LastIndex(src[:m[2]], "\n"),
		}
		for _, raw := range strings.Split(src[m[4]:m[5]], ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" || raw == "void" {
				continue
			}
			sig.Params = append(sig.Params, parseParam(raw))
		}
		sigs = append(sigs, sig)
	}
	return sigs
}

func parseParam(raw string) kernelParam {
	fields := strings.Fields(strings.ReplaceAll(raw, "*", " * "))
	p := kernelParam{Name: fields[len(fields)-1]}
	pointer := strings.Contains(raw, "*")
	readOnly := false
	for _, f := range fields {
		if f == "const" {
			readOnly = true
		}
	}
	switch {
	case pointer && readOnly:
		p.Kind = paramInput
	case pointer:
		p.Kind = paramOutput
	case strings.Contains(raw, "float"):
		p.Kind = paramFloat
	default:
		p.Kind = paramInt
	}
	return p
}

// stripComments blanks C comments while keeping line structure intact.
func stripComments(src string) string {
	b := []byte(src)
	for i := 0; i < len(b)-1; i++ {
		switch {
		case b[i] == '/' && b[i+1] == '/':
			for i < len(b) && b[i] != '\n' {
				b[i] = ' '
				i++
			}
		case b[i] == '/' && b[i+1] == '*':
			b[i], b[i+1] = ' ', ' '
			i += 2
			for i < len(b) {
				if i+1 < len(b) && b[i] == '*' && b[i+1] == '/' {
					b[i], b[i+1] = ' ', ' '
					i++
					break
				}
				if b[i] != '\n' {
					b[i] = ' '
				}
				i++
			}
		}
	}
	return string(b)
}
