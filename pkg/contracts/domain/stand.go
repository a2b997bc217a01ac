package domain

// Stand is one polygon from the spatial stand layer's attribute table.
// Geometry is never carried; only the attributes the classifiers need.
type Stand struct {
	Key         string  `json:"stand_key" validate:"required"`
	SpeciesCode string  `json:"species_code"`
	OriginCode  string  `json:"origin_code"`
	SiteIndex   float64 `json:"site_index" validate:"min=0"`
	Age         int     `json:"age" validate:"min=0"`
	AreaHa      float64 `json:"area_ha" validate:"min=0"`
	IsForest    bool    `json:"is_forest"`
}

// ConditionRecord is one row of the condition workbook.
// Period 0 rows form the condition snapshot.
type ConditionRecord struct {
	StandKey       string  `json:"stand_key" validate:"required"`
	Period         int     `json:"period"`
	Species        string  `json:"species"`
	Origin         string  `json:"origin"`
	SiteIndex      float64 `json:"site_index"`
	Age            int     `json:"age"`
	Area           float64 `json:"area"`
	Thin1          int     `json:"thin1" validate:"min=0"`
	Thin2          int     `json:"thin2" validate:"min=0"`
	Fert1          int     `json:"fert1" validate:"min=0"`
	Fert2          int     `json:"fert2" validate:"min=0"`
	TreatmentType  string  `json:"treatment_type,omitempty"`
	ManagementType string  `json:"management_type,omitempty"`
}

// HasSiteIndex reports whether the condition row carries a usable site index.
func (c ConditionRecord) HasSiteIndex() bool {
	return c.SiteIndex > 0
}

// ScheduleRow is one action from the management schedule workbook.
// Treatment ages describe the stand state before the action is applied.
type ScheduleRow struct {
	StandKey  string  `json:"stand_key" validate:"required"`
	Year      int     `json:"year"`
	Action    string  `json:"action"`
	Age       int     `json:"age"`
	Area      float64 `json:"area"`
	Species   string  `json:"species"`
	Origin    string  `json:"origin"`
	SiteIndex float64 `json:"site_index"`
	Thin1     int     `json:"thin1"`
	Thin2     int     `json:"thin2"`
	Fert1     int     `json:"fert1"`
	Fert2     int     `json:"fert2"`
}

// InventoryRecord is one row of the starting inventory handed to the carbon model.
type InventoryRecord struct {
	Classifiers               ClassifierTuple `json:"classifiers"`
	StandKey                  string          `json:"stand_key"`
	InitialAge                int             `json:"initial_age"`
	AreaHa                    float64         `json:"area_ha"`
	Delay                     int             `json:"delay"`
	LandClass                 string          `json:"land_class"`
	HistoricalDisturbanceType string          `json:"historical_disturbance_type"`
	LastPassDisturbanceType   string          `json:"last_pass_disturbance_type"`
}
