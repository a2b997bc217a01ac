package domain

// AgeReset says what happens to stand age after a transition.
type AgeReset int

const (
	// AgeResetNone keeps the stand age.
	AgeResetNone AgeReset = -1
	// AgeResetZero restarts the stand at age zero.
	AgeResetZero AgeReset = 0
)

// TransitionRule maps a disturbance applied to a source classifier state onto the
// state the stand grows on afterwards.
type TransitionRule struct {
	DisturbanceType string          `json:"disturbance_type"`
	Source          ClassifierTuple `json:"source"`
	Target          ClassifierTuple `json:"target"`
	Reset           AgeReset        `json:"reset_age"`
}
