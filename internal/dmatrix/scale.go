// Package dmatrix maintains removal disturbances in the model's archive
// database: disturbance matrices scaled from a template, their disturbance
// type and the per-eco-boundary associations.
package dmatrix

import (
	"math"
	"sort"

	"gcbmprep/pkg/contracts/domain"
)

// Template is the matrix a removal category is scaled from.
type Template struct {
	Category    domain.RemovalCategory
	DMID        int
	Baseline    float64
	StructureID int
}

// Scale derives a matrix removing target instead of baseline. Cross-pool
// transfers of the template are multiplied by target/baseline and every
// source pool's self-retention becomes 1 minus its outgoing transfers.
// Template entries equal to 1 are copied unchanged. The result holds the
// copied entries, then the scaled transfers, then the recomputed diagonal
// ordered by row; DMID is left zero for the caller to assign.
func Scale(template []domain.MatrixValue, baseline, target float64) []domain.MatrixValue {
	factor := target / baseline

	var stable, sinks []domain.MatrixValue
	outgoing := make(map[int]float64)
	var rows []int
	for _, v := range template {
		switch {
		case v.Proportion == 1:
			stable = append(stable, domain.MatrixValue{Row: v.Row, Column: v.Column, Proportion: 1})
		case v.Row != v.Column:
			p := factor * v.Proportion
			sinks = append(sinks, domain.MatrixValue{Row: v.Row, Column: v.Column, Proportion: p})
			if _, ok := outgoing[v.Row]; !ok {
				rows = append(rows, v.Row)
			}
			outgoing[v.Row] += p
		}
	}
	sort.Ints(rows)

	out := make([]domain.MatrixValue, 0, len(stable)+len(sinks)+len(rows))
	out = append(out, stable...)
	out = append(out, sinks...)
	for _, r := range rows {
		out = append(out, domain.MatrixValue{Row: r, Column: r, Proportion: 1 - outgoing[r]})
	}
	return out
}

// RowViolation is a source pool whose outgoing proportions do not sum to 1,
// or that retains a negative share.
type RowViolation struct {
	Row       int
	Sum       float64
	Retention float64
}

// Validate reports every source pool whose proportions sum to more than
// tolerance away from 1, or whose self-retention is below -tolerance.
func Validate(values []domain.MatrixValue, tolerance float64) []RowViolation {
	sums := make(map[int]float64)
	retention := make(map[int]float64)
	for _, v := range values {
		sums[v.Row] += v.Proportion
		if v.Row == v.Column {
			retention[v.Row] += v.Proportion
		}
	}

	rows := make([]int, 0, len(sums))
	for r := range sums {
		rows = append(rows, r)
	}
	sort.Ints(rows)

	var out []RowViolation
	for _, r := range rows {
		if math.Abs(sums[r]-1) > tolerance || retention[r] < -tolerance {
			out = append(out, RowViolation{Row: r, Sum: sums[r], Retention: retention[r]})
		}
	}
	return out
}

// WithDMID returns a copy of values stamped with dmid.
func WithDMID(values []domain.MatrixValue, dmid int) []domain.MatrixValue {
	out := make([]domain.MatrixValue, len(values))
	for i, v := range values {
		v.DMID = dmid
		out[i] = v
	}
	return out
}
