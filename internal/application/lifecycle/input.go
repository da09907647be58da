package lifecycle

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/facility-hub/facility-hub/internal/domain/errs"
	"github.com/facility-hub/facility-hub/internal/domain/request"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// SubmitInput carries a new request.
type SubmitInput struct {
	CategoryID    uuid.UUID `json:"categoryId" validate:"required"`
	SubcategoryID uuid.UUID `json:"subcategoryId" validate:"required"`
	BuildingID    uuid.UUID `json:"buildingId" validate:"required"`
	RoomID        uuid.UUID `json:"roomId" validate:"required"`
	Description   string    `json:"description" validate:"required,max=4000"`
	ImageRefs     []string  `json:"imageRefs" validate:"omitempty,max=10,dive,required,max=1024"`
}

type priorityInput struct {
	Priority request.Priority `validate:"required,oneof=LOW MEDIUM HIGH URGENT"`
}

type reasonInput struct {
	Reason string `validate:"required,max=1000"`
}

type scheduleInput struct {
	Start time.Time `validate:"required"`
	End   time.Time `validate:"required,gtefield=Start"`
}

type servicerInput struct {
	ServicerID uuid.UUID `validate:"required"`
}

// check runs struct validation and converts failures to ValidationFailed.
func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errs.Validation("%v", err)
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fieldMessage(fe))
	}
	return errs.Validation("%s", strings.Join(parts, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return field + " must be at most " + fe.Param()
	case "oneof":
		return field + " must be one of " + fe.Param()
	case "gtefield":
		return field + " must not be before " + fe.Param()
	default:
		return field + " is invalid"
	}
}

// trimReason normalizes an optional reason; blank reasons become nil.
func trimReason(reason *string) *string {
	if reason == nil {
		return nil
	}
	r := strings.TrimSpace(*reason)
	if r == "" {
		return nil
	}
	return &r
}
