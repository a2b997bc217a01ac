package dmatrix

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	apperrors "gcbmprep/internal/errors"
	"gcbmprep/pkg/contracts/domain"
)

// NameKind classifies a disturbance type name.
type NameKind int

const (
	// NameUnknown matches no known pattern.
	NameUnknown NameKind = iota
	// NameStandard exists in every archive and is never created.
	NameStandard
	// NameScalable can be created by scaling a template.
	NameScalable
)

func (k NameKind) String() string {
	switch k {
	case NameStandard:
		return "standard"
	case NameScalable:
		return "scalable"
	default:
		return "unknown"
	}
}

var namePatterns = []struct {
	re       *regexp.Regexp
	category domain.RemovalCategory
}{
	{regexp.MustCompile(`(?i)^([\d.]+)%\s*precommercial\s*thinning$`), domain.CategoryPrecommercial},
	{regexp.MustCompile(`(?i)^([\d.]+)%\s*commercial\s*thinning$`), domain.CategoryCommercial},
	{regexp.MustCompile(`(?i)^([\d.]+)%\s*ct$`), domain.CategoryCommercial},
}

var clearCutPattern = regexp.MustCompile(`(?i)^([\d.]+)%\s*clear-cut$`)

// ParsedName is the result of parsing a disturbance type name.
type ParsedName struct {
	Name     string
	Kind     NameKind
	Fraction float64
	Category domain.RemovalCategory
}

// Spec converts a parsed name into an archive request.
func (p ParsedName) Spec() domain.DisturbanceSpec {
	spec := domain.DisturbanceSpec{Name: p.Name}
	if p.Kind == NameScalable {
		f := p.Fraction
		spec.Fraction = &f
		spec.Category = p.Category
	}
	return spec
}

// ParseDisturbanceName recognises "X% precommercial thinning",
// "X% commercial thinning" and "X% ct" as scalable removals; standard names
// and "X% clear-cut" are standard. Anything else is unknown and reported as
// an ambiguous-category error.
func ParseDisturbanceName(name string, standard []string) (ParsedName, error) {
	name = strings.TrimSpace(name)
	p := ParsedName{Name: name}

	for _, s := range standard {
		if strings.EqualFold(name, s) {
			p.Kind = NameStandard
			return p, nil
		}
	}
	if clearCutPattern.MatchString(name) {
		p.Kind = NameStandard
		return p, nil
	}

	for _, np := range namePatterns {
		m := np.re.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		pct, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return p, apperrors.NewAppError(apperrors.ErrTypeAmbiguousCategory,
				fmt.Sprintf("bad percentage in %q", name), err)
		}
		p.Kind = NameScalable
		p.Fraction = pct / 100
		p.Category = np.category
		return p, nil
	}

	return p, apperrors.NewAppError(apperrors.ErrTypeAmbiguousCategory,
		fmt.Sprintf("unrecognised disturbance name %q", name), apperrors.ErrUnknownCategory)
}
