package main

import (
	"regexp"
	"strconv"
	"strings"
)

// Compilers prefix messages with a file marker ("<source>", "<kernel>", a
// temp path or a bare index) followed by line and column.
var diagnosticPattern = regexp.MustCompile(`^(.*?):(\d+):(\d+):\s*(fatal error|error|warning|note):\s*(.*)$`)

// parseBuildLog attributes compiler messages to the units of src. Lines
// that do not look like diagnostics are left to the raw log.
func parseBuildLog(log string, src assembledSource) []buildDiagnostic {
	var diags []buildDiagnostic
	for _, line := range strings.Split(log, "\n") {
		m := diagnosticPattern.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		global, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		col, _ := strconv.Atoi(m[3])
		d := buildDiagnostic{
			Line:     global,
			Column:   col,
			Severity: m[4],
			Message:  m[5],
		}
		if unit, local, ok := src.locate(global); ok {
			d.Unit, d.Line = unit, local
		} else {
			d.Unit = "<unknown>"
		}
		diags = append(diags, d)
	}
	return diags
}
