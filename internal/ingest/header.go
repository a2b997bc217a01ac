package ingest

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"

	apperrors "gcbmprep/internal/errors"
)

// field is one column a reader looks for. Aliases are tried after the name.
type field struct {
	name     string
	aliases  []string
	required bool
}

func required(name string, aliases ...string) field {
	return field{name: name, aliases: aliases, required: true}
}

func optional(name string, aliases ...string) field {
	return field{name: name, aliases: aliases}
}

// headerMap resolves field names to column positions of one header row.
type headerMap struct {
	idx   map[string]int
	fuzzy map[string]string
}

// mapHeader locates every field in header. Exact matches (case, spaces and
// underscores ignored) win; remaining fields fall back to the closest unused
// header within a small edit distance. Headers that differ in their digits
// never match, so TH1 cannot stand in for TH11.
func mapHeader(header []string, fields []field) (headerMap, error) {
	h := headerMap{idx: make(map[string]int, len(fields)), fuzzy: make(map[string]string)}

	norm := make([]string, len(header))
	claimed := make(map[int]bool, len(header))
	for i, cell := range header {
		norm[i] = normalizeHeader(cell)
	}

	for _, f := range fields {
		for _, cand := range append([]string{f.name}, f.aliases...) {
			want := normalizeHeader(cand)
			if i := indexUnclaimed(norm, want, claimed); i >= 0 {
				h.idx[f.name] = i
				claimed[i] = true
				break
			}
		}
	}

	var missing []string
	for _, f := range fields {
		if _, ok := h.idx[f.name]; ok {
			continue
		}
		if i, ok := closestHeader(norm, f, claimed); ok {
			h.idx[f.name] = i
			h.fuzzy[f.name] = header[i]
			claimed[i] = true
			continue
		}
		if f.required {
			missing = append(missing, f.name)
		}
	}

	if len(missing) > 0 {
		return h, fmt.Errorf("%w: %s", apperrors.ErrColumnNotFound, strings.Join(missing, ", "))
	}
	return h, nil
}

func indexUnclaimed(norm []string, want string, claimed map[int]bool) int {
	for i, n := range norm {
		if n == want && !claimed[i] {
			return i
		}
	}
	return -1
}

// closestHeader returns the unclaimed header nearest to any of the field's
// names. A tie between two headers is treated as no match.
func closestHeader(norm []string, f field, claimed map[int]bool) (int, bool) {
	best, bestDist, tied := -1, math.MaxInt, false
	for _, cand := range append([]string{f.name}, f.aliases...) {
		want := normalizeHeader(cand)
		limit := levenshteinLimit(len(want))
		if limit == 0 {
			continue
		}
		for i, n := range norm {
			if claimed[i] || n == "" || digits(n) != digits(want) {
				continue
			}
			d := levenshtein.ComputeDistance(want, n)
			if d > limit {
				continue
			}
			switch {
			case d < bestDist:
				best, bestDist, tied = i, d, false
			case d == bestDist && i != best:
				tied = true
			}
		}
	}
	if best < 0 || tied {
		return -1, false
	}
	return best, true
}

func levenshteinLimit(length int) int {
	switch {
	case length <= 3:
		return 0
	case length <= 8:
		return 1
	default:
		return 2
	}
}

func normalizeHeader(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if r == ' ' || r == '_' || r == '-' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (h headerMap) has(name string) bool {
	_, ok := h.idx[name]
	return ok
}

// get returns the trimmed cell for name, or "" when the column is absent
// or the row is short.
func (h headerMap) get(row []string, name string) string {
	i, ok := h.idx[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parseNumber reads a numeric cell. Blank cells are zero. Pipe-delimited
// cells ("12.5|9.1") carry the pre-thin value first.
func parseNumber(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	if before, _, ok := strings.Cut(cell, "|"); ok {
		cell = strings.TrimSpace(before)
	}
	if cell == "" {
		return 0, nil
	}
	return strconv.ParseFloat(strings.ReplaceAll(cell, ",", ""), 64)
}

// parseWhole reads an integer cell that may have been stored as a float.
func parseWhole(cell string) (int, error) {
	v, err := parseNumber(cell)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", cell)
	}
	return int(math.Round(v)), nil
}

// rowParser accumulates the first conversion error of a row so readers can
// parse every column and check once.
type rowParser struct {
	h   headerMap
	row []string
	err error
}

func (p *rowParser) str(name string) string {
	return p.h.get(p.row, name)
}

func (p *rowParser) number(name string) float64 {
	v, err := parseNumber(p.h.get(p.row, name))
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("column %s: %w", name, err)
	}
	return v
}

func (p *rowParser) whole(name string) int {
	v, err := parseWhole(p.h.get(p.row, name))
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("column %s: %w", name, err)
	}
	return v
}
