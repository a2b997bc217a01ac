package trajectory

import (
	"fmt"
	"strconv"
	"strings"

	apperrors "gcbmprep/internal/errors"
)

// YieldID is a decoded yield-table row id.
//
// Stand rows look like BH1427-1-1-TPA-XX-BA-XX-T1-0-T2-0-F1-0-F2-0 and
// regeneration rows like SI100-1-U-LB-TPA-XX-BA-XX-T1-14-T2-19-F1-15-F2-20.
type YieldID struct {
	StandKey     string
	SIValue      int
	RegenSpecies string
	Key          Key
	Regen        bool
}

// ParseYieldID decodes a yield-table id.
func ParseYieldID(id string) (YieldID, error) {
	parts := strings.Split(strings.TrimSpace(id), "-")

	ages := make(map[string]int, 4)
	for _, marker := range []string{"T1", "T2", "F1", "F2"} {
		i := indexOf(parts, marker)
		if i < 0 || i+1 >= len(parts) {
			return YieldID{}, fmt.Errorf("%w: %q has no %s", apperrors.ErrMalformedKey, id, marker)
		}
		n, err := strconv.Atoi(parts[i+1])
		if err != nil || n < 0 {
			return YieldID{}, fmt.Errorf("%w: %q has bad %s age %q", apperrors.ErrMalformedKey, id, marker, parts[i+1])
		}
		ages[marker] = n
	}

	out := YieldID{Key: Key{Thin1: ages["T1"], Thin2: ages["T2"], Fert1: ages["F1"], Fert2: ages["F2"]}}

	if si, ok := strings.CutPrefix(parts[0], "SI"); ok {
		if v, err := strconv.Atoi(si); err == nil {
			if len(parts) < 4 {
				return YieldID{}, fmt.Errorf("%w: %q has no regen species", apperrors.ErrMalformedKey, id)
			}
			out.Regen = true
			out.SIValue = v
			out.RegenSpecies = parts[3]
			return out, nil
		}
	}

	end := indexOf(parts, "TPA")
	if end < 0 {
		end = indexOf(parts, "T1")
	}
	if end <= 0 {
		return YieldID{}, fmt.Errorf("%w: %q has no stand key", apperrors.ErrMalformedKey, id)
	}
	out.StandKey = strings.Join(parts[:end], "-")
	return out, nil
}

func indexOf(parts []string, s string) int {
	for i, p := range parts {
		if p == s {
			return i
		}
	}
	return -1
}
