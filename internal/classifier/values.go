package classifier

import (
	"sort"

	"gcbmprep/pkg/contracts/domain"
)

// ValueSet is the sorted list of distinct values one classifier takes.
type ValueSet struct {
	Name   string
	Values []string
}

// ValueSets collects the distinct non-empty values of every classifier over
// all given tuple groups. Callers pass stand tuples together with curve and
// transition target tuples so that states reached only after a disturbance
// are declared too.
func ValueSets(groups ...[]domain.ClassifierTuple) []ValueSet {
	sets := make([]map[string]bool, len(domain.ClassifierNames))
	for i := range sets {
		sets[i] = make(map[string]bool)
	}

	for _, g := range groups {
		for _, t := range g {
			for i, v := range t.Values() {
				if v != "" {
					sets[i][v] = true
				}
			}
		}
	}

	out := make([]ValueSet, len(domain.ClassifierNames))
	for i, name := range domain.ClassifierNames {
		vals := make([]string, 0, len(sets[i]))
		for v := range sets[i] {
			vals = append(vals, v)
		}
		sort.Strings(vals)
		out[i] = ValueSet{Name: name, Values: vals}
	}
	return out
}

// Tuples extracts the classifier tuples of the given stands.
func Tuples(stands []domain.StandClassifiers) []domain.ClassifierTuple {
	out := make([]domain.ClassifierTuple, len(stands))
	for i, s := range stands {
		out[i] = s.Classifiers
	}
	return out
}
