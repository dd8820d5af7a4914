package tracker

import (
	"errors"
)

// user facing texts
const (
	AlertWeight   = "Enter a valid weight"
	AlertSteps    = "Enter steps"
	AlertCalories = "Enter calories"
	AlertWater    = "Enter water (ml)"
	AlertWorkout  = "Fill workout type and duration"
	AlertPosition = "No workout at that position"

	AlertWaterTooMuch = "Water total is too large"

	PromptClearWorkouts = "Clear all workouts?"
	PromptResetDietPlan = "Reset diet plan?"
	PromptClearAll      = "Clear ALL data from the store?"

	NoticeDietPlanSaved = "Diet plan saved."
)

var ErrConfirmationRequired = errors.New("confirmation required")

// ValidationError rejects user input. State is left untouched.
type ValidationError struct {
	Alert string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Alert
}

// ConfirmationError is returned by destructive commands called without
// confirmation. It matches ErrConfirmationRequired.
type ConfirmationError struct {
	Prompt string
}

func (e *ConfirmationError) Error() string {
	return ErrConfirmationRequired.Error() + ": " + e.Prompt
}

func (e *ConfirmationError) Is(target error) bool {
	return target == ErrConfirmationRequired
}
