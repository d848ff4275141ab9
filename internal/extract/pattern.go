// Package extract turns raw Légifrance article content into structured
// records. A Pattern is a regex with named capture groups, an optional
// repeated nested sub-pattern, and per-group ignore lists; nested
// matches are flattened into one row per innermost occurrence.
package extract

import (
	"regexp"
	"slices"
)

// Pattern wraps a regex with knowledge of its capture groups.
type Pattern struct {
	re      *regexp.Regexp
	nested  *Pattern
	ignored map[string][]string
}

// MustPattern compiles expr and panics on error. Patterns are package
// constants in practice, so a bad expression is a programming error.
func MustPattern(expr string, nested *Pattern, ignored map[string][]string) *Pattern {
	return &Pattern{
		re:      regexp.MustCompile(expr),
		nested:  nested,
		ignored: ignored,
	}
}

// Match extracts all rows captured by the pattern chain. The match is
// anchored at the start of the text; ok is false when the text does
// not fit the pattern at all.
func (p *Pattern) Match(text string) (rows []map[string]string, ok bool) {
	loc := p.re.FindStringIndex(text)
	if loc == nil || loc[0] != 0 {
		return nil, false
	}
	return p.collect(text[:loc[1]]), true
}

// collect walks every occurrence of the pattern in part, recursing
// into the nested sub-pattern and merging its rows with the enclosing
// occurrence's groups.
func (p *Pattern) collect(part string) []map[string]string {
	names := p.re.SubexpNames()
	var rows []map[string]string
	for _, m := range p.re.FindAllStringSubmatch(part, -1) {
		base := make(map[string]string)
		for i, name := range names {
			if i == 0 || name == "" {
				continue
			}
			base[name] = m[i]
		}
		if p.skip(base) {
			continue
		}
		if p.nested == nil {
			rows = append(rows, base)
			continue
		}
		for _, sub := range p.nested.collect(m[0]) {
			row := make(map[string]string, len(base)+len(sub))
			for k, v := range base {
				row[k] = v
			}
			for k, v := range sub {
				row[k] = v
			}
			rows = append(rows, row)
		}
	}
	return rows
}

func (p *Pattern) skip(row map[string]string) bool {
	for name, values := range p.ignored {
		if slices.Contains(values, row[name]) {
			return true
		}
	}
	return false
}
