package domain

// MatrixValue is one pool-to-pool transfer of a disturbance matrix.
type MatrixValue struct {
	DMID       int     `json:"dmid" db:"DMID"`
	Row        int     `json:"dm_row" db:"DMRow"`
	Column     int     `json:"dm_column" db:"DMColumn"`
	Proportion float64 `json:"proportion" db:"Proportion"`
}

// RemovalCategory selects the template a removal matrix is scaled from.
type RemovalCategory string

const (
	CategoryPrecommercial RemovalCategory = "precommercial"
	CategoryCommercial    RemovalCategory = "commercial"
)

// DisturbanceSpec asks the archive for a named disturbance. Fraction and Category
// are only needed when the disturbance may have to be created.
type DisturbanceSpec struct {
	Name     string          `json:"name" validate:"required"`
	Fraction *float64        `json:"percent,omitempty" validate:"omitempty,gt=0,lte=1"`
	Category RemovalCategory `json:"category,omitempty"`
}

// EnsureResult reports what the archive holds, or would hold, for a spec.
type EnsureResult struct {
	Name       string          `json:"name"`
	DMID       *int            `json:"dmid,omitempty"`
	DistTypeID *int            `json:"dist_type_id,omitempty"`
	Created    bool            `json:"created"`
	DryRun     bool            `json:"dry_run,omitempty"`
	Category   RemovalCategory `json:"category,omitempty"`
	Warning    string          `json:"warning,omitempty"`
}
