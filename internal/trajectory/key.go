// Package trajectory encodes treatment schedules as the canonical
// T1-<a>-T2-<b>-F1-<c>-F2-<d> key shared by every yield source.
package trajectory

import (
	"fmt"
	"regexp"
	"strconv"
)

var keyPattern = regexp.MustCompile(`T1-(\d+)-T2-(\d+)-F1-(\d+)-F2-(\d+)`)

// Key holds the ages at which each treatment happened. Zero means the
// treatment has not happened yet.
type Key struct {
	Thin1 int
	Thin2 int
	Fert1 int
	Fert2 int
}

// Zero is the no-treatment trajectory.
var Zero = Key{}

// New builds a key, clamping negative ages to zero.
func New(thin1, thin2, fert1, fert2 int) Key {
	return Key{
		Thin1: max(thin1, 0),
		Thin2: max(thin2, 0),
		Fert1: max(fert1, 0),
		Fert2: max(fert2, 0),
	}
}

// String returns the canonical encoding.
func (k Key) String() string {
	return fmt.Sprintf("T1-%d-T2-%d-F1-%d-F2-%d", k.Thin1, k.Thin2, k.Fert1, k.Fert2)
}

// Parse finds a trajectory key anywhere in s. It reports false when s does
// not contain one; callers fall back to Zero.
func Parse(s string) (Key, bool) {
	m := keyPattern.FindStringSubmatch(s)
	if m == nil {
		return Key{}, false
	}
	var ages [4]int
	for i := range ages {
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return Key{}, false
		}
		ages[i] = n
	}
	return Key{Thin1: ages[0], Thin2: ages[1], Fert1: ages[2], Fert2: ages[3]}, true
}

// ParseOrZero returns the parsed key or Zero.
func ParseOrZero(s string) Key {
	k, ok := Parse(s)
	if !ok {
		return Zero
	}
	return k
}

// IsZero reports whether no treatment has happened.
func (k Key) IsZero() bool {
	return k == Zero
}

// Thinned reports whether at least one thinning has happened.
func (k Key) Thinned() bool {
	return k.Thin1 > 0 || k.Thin2 > 0
}

// WithThin1 records a first thinning at age, clearing any second thinning.
func (k Key) WithThin1(age int) Key {
	k.Thin1 = max(age, 0)
	k.Thin2 = 0
	return k
}

// WithThin2 records a second thinning at age.
func (k Key) WithThin2(age int) Key {
	k.Thin2 = max(age, 0)
	return k
}

// NoThin drops both thinnings and keeps the fertilization ages.
func (k Key) NoThin() Key {
	k.Thin1, k.Thin2 = 0, 0
	return k
}

// FirstThinOnly drops the second thinning.
func (k Key) FirstThinOnly() Key {
	k.Thin2 = 0
	return k
}
