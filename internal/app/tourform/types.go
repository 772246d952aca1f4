package tourform

import (
	"errors"
	"strings"

	"github.com/Overland-East-Bay/tour-authoring-api/internal/domain"
)

var (
	ErrStopNotFound   = errors.New("stop not found")
	ErrMediaNotFound  = errors.New("media not found")
	ErrDuplicateStop  = errors.New("stop id already exists")
	ErrInvalidOrder   = errors.New("order must be a permutation of the current stops")
	ErrInvalidMedia   = errors.New("invalid media type")
	ErrNoNextStep     = errors.New("already at the last step")
	ErrNoPreviousStep = errors.New("already at the first step")
)

// StepError reports a forward transition refused by the current step's completeness predicate.
type StepError struct {
	Step    domain.Step
	Reasons []string
}

func (e *StepError) Error() string {
	if e == nil {
		return ""
	}
	return "step " + string(e.Step) + " incomplete: " + strings.Join(e.Reasons, "; ")
}

// Optional is a tri-state field used to distinguish:
// - unspecified (omitted)
// - specified as null
// - specified with a value
type Optional[T any] struct {
	specified bool
	isNull    bool
	value     T
}

func Unspecified[T any]() Optional[T] { return Optional[T]{} }
func Null[T any]() Optional[T]        { return Optional[T]{specified: true, isNull: true} }
func Some[T any](v T) Optional[T]     { return Optional[T]{specified: true, value: v} }

func (o Optional[T]) IsSpecified() bool { return o.specified }
func (o Optional[T]) IsNull() bool      { return o.specified && o.isNull }
func (o Optional[T]) Value() T          { return o.value }

// StopPatch is a partial stop update. Name cannot be null; a null Location clears it.
type StopPatch struct {
	Name        Optional[string]
	Description Optional[string]
	Location    Optional[domain.Location]
}

// View is the aggregate state exposed to the wizard screens.
type View struct {
	SessionID     domain.SessionID           `json:"sessionId"`
	Step          domain.Step                `json:"step"`
	EditingTourID domain.TourID              `json:"editingTourId,omitempty"`
	Tour          domain.TourPackage         `json:"tour"`
	Warnings      []domain.ValidationWarning `json:"warnings"`
	Quote         domain.Quote               `json:"quote"`
	SubmitGate    domain.GateResult          `json:"submitGate"`
	CanAdvance    bool                       `json:"canAdvance"`
	CanSubmit     bool                       `json:"canSubmit"`
	PendingMedia  []domain.MediaID           `json:"pendingMedia"`
}
