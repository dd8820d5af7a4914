package tracker

import (
	"strconv"
)

const (
	NoWeightPlaceholder   = "—"
	NoWorkoutsPlaceholder = "No workouts logged yet"

	caloriesChartWindow = 7
)

type View struct {
	Summary             Summary      `json:"summary"`
	Workouts            []WorkoutRow `json:"workouts"`
	WorkoutsPlaceholder string       `json:"workoutsPlaceholder,omitempty"`
	DietPlan            string       `json:"dietPlan"`
	WeightChart         Chart        `json:"weightChart"`
	CaloriesChart       Chart        `json:"caloriesChart"`
	Notice              string       `json:"notice,omitempty"`
}

type Summary struct {
	Steps    string `json:"steps"`
	Calories string `json:"calories"`
	Water    string `json:"water"`
	Weight   string `json:"weight"`
}

// WorkoutRow is one line of the newest-first workout list. Position is the
// value the delete control sends back.
type WorkoutRow struct {
	Position      int    `json:"position"`
	Type          string `json:"type"`
	Date          string `json:"date"`
	Duration      string `json:"duration"`
	DurationLabel string `json:"durationLabel"`
	Notes         string `json:"notes"`
}

type Chart struct {
	Type     string       `json:"type"`
	Labels   []string     `json:"labels"`
	Datasets []Dataset    `json:"datasets"`
	Options  ChartOptions `json:"options"`
}

type Dataset struct {
	Label       string    `json:"label"`
	Data        []float64 `json:"data"`
	Tension     float64   `json:"tension,omitempty"`
	BorderWidth int       `json:"borderWidth"`
}

type ChartOptions struct {
	Responsive  bool `json:"responsive"`
	BeginAtZero bool `json:"beginAtZero"`
}

// Render projects state into a fresh view. Both charts are rebuilt from
// scratch every time.
func Render(state State) View {
	return View{
		Summary:             renderSummary(state),
		Workouts:            renderWorkouts(state.Workouts),
		WorkoutsPlaceholder: workoutsPlaceholder(state.Workouts),
		DietPlan:            state.DietPlan,
		WeightChart:         weightChart(state.Weights),
		CaloriesChart:       caloriesChart(state.Calories),
	}
}

func renderSummary(state State) Summary {
	summary := Summary{
		Steps:    strconv.Itoa(state.Steps.Steps),
		Calories: "0",
		Water:    strconv.Itoa(state.WaterTotal),
		Weight:   NoWeightPlaceholder,
	}
	if n := len(state.Calories); n > 0 {
		summary.Calories = strconv.Itoa(state.Calories[n-1].Cal)
	}
	if n := len(state.Weights); n > 0 {
		summary.Weight = formatWeight(state.Weights[n-1].Weight) + " kg"
	}
	return summary
}

func formatWeight(w float64) string {
	return strconv.FormatFloat(w, 'f', -1, 64)
}

func renderWorkouts(workouts []WorkoutEntry) []WorkoutRow {
	rows := make([]WorkoutRow, 0, len(workouts))
	for displayed := range workouts {
		stored, _ := StoredIndex(displayed, len(workouts))
		w := workouts[stored]
		rows = append(rows, WorkoutRow{
			Position:      displayed,
			Type:          w.Type,
			Date:          w.Date,
			Duration:      string(w.Duration),
			DurationLabel: string(w.Duration) + " min",
			Notes:         w.Notes,
		})
	}
	return rows
}

func workoutsPlaceholder(workouts []WorkoutEntry) string {
	if len(workouts) == 0 {
		return NoWorkoutsPlaceholder
	}
	return ""
}

func weightChart(weights []WeightEntry) Chart {
	labels := make([]string, 0, len(weights))
	data := make([]float64, 0, len(weights))
	for _, w := range weights {
		labels = append(labels, w.Date)
		data = append(data, w.Weight)
	}
	return Chart{
		Type:   "line",
		Labels: labels,
		Datasets: []Dataset{{
			Label:       "Weight (kg)",
			Data:        data,
			Tension:     0.2,
			BorderWidth: 2,
		}},
		Options: ChartOptions{Responsive: true},
	}
}

func caloriesChart(calories []CalorieEntry) Chart {
	recent := calories
	if len(recent) > caloriesChartWindow {
		recent = recent[len(recent)-caloriesChartWindow:]
	}
	labels := make([]string, 0, len(recent))
	data := make([]float64, 0, len(recent))
	for _, c := range recent {
		labels = append(labels, c.Date)
		data = append(data, float64(c.Cal))
	}
	return Chart{
		Type:   "bar",
		Labels: labels,
		Datasets: []Dataset{{
			Label:       "Calories",
			Data:        data,
			BorderWidth: 1,
		}},
		Options: ChartOptions{Responsive: true, BeginAtZero: true},
	}
}
