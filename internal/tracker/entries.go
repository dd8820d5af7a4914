package tracker

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// persisted keys
const (
	KeyWeights    = "fc_weights"
	KeyCalories   = "fc_cals"
	KeySteps      = "fc_steps_last"
	KeyWorkouts   = "fc_workouts"
	KeyWaterTotal = "fc_water_total"
	KeyDietPlan   = "fc_diet_plan"

	// only written with daily reset on
	KeyWaterDate = "fc_water_date"
)

// DateLayout is the calendar day format of every entry date.
const DateLayout = "2006-01-02"

type WeightEntry struct {
	Date   string  `json:"date"`
	Weight float64 `json:"weight"`
}

type CalorieEntry struct {
	Date string `json:"date"`
	Cal  int    `json:"cal"`
}

type StepsRecord struct {
	Date  string `json:"date"`
	Steps int    `json:"steps"`
}

type WorkoutEntry struct {
	Date     string   `json:"date"`
	Type     string   `json:"type"`
	Duration Duration `json:"duration"`
	Notes    string   `json:"notes"`
}

// Duration is the workout length as typed by the user, usually minutes.
// Older data may carry it as a JSON number.
type Duration string

func (d *Duration) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*d = Duration(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("duration must be a string or a number: %w", err)
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return fmt.Errorf("invalid duration [%s]: %w", n, err)
	}
	*d = Duration(n.String())
	return nil
}

// State is the full in-memory record set. Its JSON form is the export
// document.
type State struct {
	Weights    []WeightEntry  `json:"weights"`
	Calories   []CalorieEntry `json:"calories"`
	Steps      StepsRecord    `json:"steps"`
	Workouts   []WorkoutEntry `json:"workouts"`
	WaterTotal int            `json:"waterTotal"`
	DietPlan   string         `json:"dietPlan"`

	WaterDate string `json:"-"`
}

// DefaultState is what an empty store loads into.
func DefaultState(today string) State {
	return State{
		Weights:  []WeightEntry{},
		Calories: []CalorieEntry{},
		Steps:    StepsRecord{Date: today},
		Workouts: []WorkoutEntry{},
	}
}

// Copy returns a State sharing no slices with s.
func (s State) Copy() State {
	c := s
	c.Weights = append([]WeightEntry{}, s.Weights...)
	c.Calories = append([]CalorieEntry{}, s.Calories...)
	c.Workouts = append([]WorkoutEntry{}, s.Workouts...)
	return c
}
