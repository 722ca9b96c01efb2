package main

import (
	"log/slog"
	"math"
	"strconv"
	"strings"
)

// constantPolicy decides what happens when constants are rendered without
// a medium descriptor.
type constantPolicy int

const (
	// policyMathOnly renders only the mathematical constants. Kernels that
	// reference medium constants then fail to compile, naming the unit.
	policyMathOnly constantPolicy = iota
	// policyRequireMedium refuses to render without a medium.
	policyRequireMedium
)

func (p constantPolicy) String() string {
	switch p {
	case policyMathOnly:
		return "math-only"
	case policyRequireMedium:
		return "require-medium"
	default:
		return "unknown"
	}
}

// constantDef is one compile-time scalar. Double definitions are emitted
// without the f suffix.
type constantDef struct {
	Name   string
	Value  float64
	Double bool
}

// constantBlock is the rendered prelude of every compiled program.
type constantBlock struct {
	Defs []constantDef
}

var mathConstantNames = []string{"tau", "root_2", "pi_over_2"}

var mediumConstantNames = []string{
	"medium_wavelength",
	"medium_wavenumber",
	"translation_medium_wavenumber",
	"emission_frequency",
}

// knownConstantNames is every symbol the injector can define.
func knownConstantNames() []string {
	names := make([]string, 0, len(mathConstantNames)+len(mediumConstantNames))
	names = append(names, mathConstantNames...)
	return append(names, mediumConstantNames...)
}

// renderConstants builds the constant block for medium. The result depends
// on its arguments only.
func renderConstants(medium *mediumDescriptor, policy constantPolicy, logger *slog.Logger) (constantBlock, error) {
	block := constantBlock{Defs: []constantDef{
		{Name: "tau", Value: 2 * math.Pi},
		{Name: "root_2", Value: math.Sqrt2},
		{Name: "pi_over_2", Value: math.Pi / 2},
	}}
	if medium == nil {
		if policy == policyRequireMedium {
			return constantBlock{}, &MissingMediumDescriptorError{}
		}
		if logger != nil {
			logger.Warn("rendering kernel constants without a medium; medium constants are undefined",
				"policy", policy.String())
		}
		return block, nil
	}
	block.Defs = append(block.Defs,
		constantDef{Name: "medium_wavelength", Value: medium.Wavelength},
		constantDef{Name: "medium_wavenumber", Value: medium.Wavenumber},
		constantDef{Name: "translation_medium_wavenumber", Value: medium.Wavenumber},
		constantDef{Name: "emission_frequency", Value: medium.Frequency, Double: true},
	)
	return block, nil
}

// Has reports whether name is defined by the block.
func (b constantBlock) Has(name string) bool {
	for _, d := range b.Defs {
		if d.Name == name {
			return true
		}
	}
	return false
}

// Text renders the block as preprocessor definitions.
func (b constantBlock) Text() string {
	var sb strings.Builder
	for _, d := range b.Defs {
		sb.WriteString("#define ")
		sb.WriteString(d.Name)
		sb.WriteByte(' ')
		sb.WriteString(formatLiteral(d.Value, d.Double))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// formatLiteral renders v as a C floating literal that round-trips at the
// target precision.
func formatLiteral(v float64, double bool) string {
	bits := 32
	if double {
		bits = 64
	}
	s := strconv.FormatFloat(v, 'g', -1, bits)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	if !double {
		s += "f"
	}
	return s
}
