package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/2beens/fitclub/internal/store"
	"github.com/2beens/fitclub/internal/telemetry/metrics"
	"github.com/2beens/fitclub/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Params struct {
	Store   *store.Store
	Metrics *metrics.Manager
	// DailyReset rolls steps and water over to zero when the day changes.
	DailyReset bool
	// Now defaults to time.Now.
	Now func() time.Time
}

// Tracker owns the in-memory State. Every command runs under one lock:
// validate, persist the changed record, then commit it in memory and render.
// A failed write leaves the in-memory state as it was.
type Tracker struct {
	mu         sync.Mutex
	store      *store.Store
	metrics    *metrics.Manager
	dailyReset bool
	now        func() time.Time
	state      State
}

func NewTracker(params Params) *Tracker {
	now := params.Now
	if now == nil {
		now = time.Now
	}
	t := &Tracker{
		store:      params.Store,
		metrics:    params.Metrics,
		dailyReset: params.DailyReset,
		now:        now,
	}
	t.state = DefaultState(t.today())
	return t
}

// Load replaces the in-memory state with what the store holds. Unreadable
// values load as their defaults.
func (t *Tracker) Load(ctx context.Context) View {
	ctx, span := tracing.GlobalTracer.Start(ctx, "tracker.load")
	defer span.End()

	t.mu.Lock()
	defer t.mu.Unlock()

	def := DefaultState(t.today())
	t.state = State{
		Weights:    store.Get(ctx, t.store, KeyWeights, def.Weights),
		Calories:   store.Get(ctx, t.store, KeyCalories, def.Calories),
		Steps:      store.Get(ctx, t.store, KeySteps, def.Steps),
		Workouts:   store.Get(ctx, t.store, KeyWorkouts, def.Workouts),
		WaterTotal: store.Get(ctx, t.store, KeyWaterTotal, 0),
		DietPlan:   store.Get(ctx, t.store, KeyDietPlan, ""),
	}
	if t.dailyReset {
		t.state.WaterDate = store.Get(ctx, t.store, KeyWaterDate, "")
	}
	t.metrics.GaugeWorkouts.Set(float64(len(t.state.Workouts)))

	log.Debugf("tracker loaded: %d weights, %d calories, %d workouts",
		len(t.state.Weights), len(t.state.Calories), len(t.state.Workouts))

	t.rollover(ctx)
	return Render(t.state)
}

func (t *Tracker) View(ctx context.Context) View {
	ctx, span := tracing.GlobalTracer.Start(ctx, "tracker.view")
	defer span.End()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.rollover(ctx)
	return Render(t.state)
}

// Snapshot returns a copy of the in-memory state.
func (t *Tracker) Snapshot() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.Copy()
}

func (t *Tracker) AddWeight(ctx context.Context, raw string) (view View, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "tracker.add_weight")
	defer endSpan(span, &err)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover(ctx)

	weight, parseErr := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if parseErr != nil || math.IsNaN(weight) || math.IsInf(weight, 0) || weight <= 0 {
		return View{}, t.rejected("add_weight", AlertWeight)
	}

	weights := append(t.state.Copy().Weights, WeightEntry{Date: t.today(), Weight: weight})
	if err := t.store.Set(ctx, KeyWeights, weights); err != nil {
		return View{}, err
	}
	t.state.Weights = weights
	t.metrics.CounterEntries.WithLabelValues("weight").Inc()

	log.Debugf("weight added: %s kg", formatWeight(weight))
	return Render(t.state), nil
}

// AddSteps replaces the single steps record, no history is kept.
func (t *Tracker) AddSteps(ctx context.Context, raw string) (view View, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "tracker.add_steps")
	defer endSpan(span, &err)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover(ctx)

	steps, parseErr := strconv.Atoi(strings.TrimSpace(raw))
	if parseErr != nil || steps < 0 {
		return View{}, t.rejected("add_steps", AlertSteps)
	}

	record := StepsRecord{Date: t.today(), Steps: steps}
	if err := t.store.Set(ctx, KeySteps, record); err != nil {
		return View{}, err
	}
	t.state.Steps = record
	t.metrics.CounterEntries.WithLabelValues("steps").Inc()

	log.Debugf("steps set: %d", steps)
	return Render(t.state), nil
}

func (t *Tracker) AddCalories(ctx context.Context, raw string) (view View, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "tracker.add_calories")
	defer endSpan(span, &err)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover(ctx)

	cal, parseErr := strconv.Atoi(strings.TrimSpace(raw))
	if parseErr != nil || cal < 0 {
		return View{}, t.rejected("add_calories", AlertCalories)
	}

	calories := append(t.state.Copy().Calories, CalorieEntry{Date: t.today(), Cal: cal})
	if err := t.store.Set(ctx, KeyCalories, calories); err != nil {
		return View{}, err
	}
	t.state.Calories = calories
	t.metrics.CounterEntries.WithLabelValues("calories").Inc()

	log.Debugf("calories added: %d", cal)
	return Render(t.state), nil
}

// AddWater grows the running water total.
func (t *Tracker) AddWater(ctx context.Context, raw string) (view View, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "tracker.add_water")
	defer endSpan(span, &err)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover(ctx)

	ml, parseErr := strconv.Atoi(strings.TrimSpace(raw))
	if parseErr != nil || ml <= 0 {
		return View{}, t.rejected("add_water", AlertWater)
	}
	if ml > math.MaxInt-t.state.WaterTotal {
		return View{}, t.rejected("add_water", AlertWaterTooMuch)
	}

	total := t.state.WaterTotal + ml
	if err := t.store.Set(ctx, KeyWaterTotal, total); err != nil {
		return View{}, err
	}
	t.state.WaterTotal = total
	t.metrics.CounterEntries.WithLabelValues("water").Inc()

	log.Debugf("water added: %d ml, total %d ml", ml, total)
	return Render(t.state), nil
}

func (t *Tracker) LogWorkout(ctx context.Context, workoutType, duration, notes string) (view View, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "tracker.log_workout")
	defer endSpan(span, &err)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover(ctx)

	workoutType = strings.TrimSpace(workoutType)
	duration = strings.TrimSpace(duration)
	if workoutType == "" || duration == "" {
		return View{}, t.rejected("log_workout", AlertWorkout)
	}
	span.SetAttributes(attribute.String("type", workoutType))

	workouts := append(t.state.Copy().Workouts, WorkoutEntry{
		Date:     t.today(),
		Type:     workoutType,
		Duration: Duration(duration),
		Notes:    strings.TrimSpace(notes),
	})
	if err := t.store.Set(ctx, KeyWorkouts, workouts); err != nil {
		return View{}, err
	}
	t.state.Workouts = workouts
	t.metrics.CounterEntries.WithLabelValues("workout").Inc()
	t.metrics.GaugeWorkouts.Set(float64(len(workouts)))

	log.Debugf("workout logged: [%s] %s", workoutType, duration)
	return Render(t.state), nil
}

// DeleteWorkout removes the workout shown at the given newest-first
// position.
func (t *Tracker) DeleteWorkout(ctx context.Context, displayed int) (view View, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "tracker.delete_workout")
	defer endSpan(span, &err)
	span.SetAttributes(attribute.Int("position", displayed))

	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover(ctx)

	stored, ok := StoredIndex(displayed, len(t.state.Workouts))
	if !ok {
		return View{}, t.rejected("delete_workout", AlertPosition)
	}

	workouts := t.state.Copy().Workouts
	workouts = append(workouts[:stored], workouts[stored+1:]...)
	if err := t.store.Set(ctx, KeyWorkouts, workouts); err != nil {
		return View{}, err
	}
	t.state.Workouts = workouts
	t.metrics.GaugeWorkouts.Set(float64(len(workouts)))

	log.Debugf("workout deleted: position %d, stored index %d", displayed, stored)
	return Render(t.state), nil
}

func (t *Tracker) ClearWorkouts(ctx context.Context, confirmed bool) (view View, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "tracker.clear_workouts")
	defer endSpan(span, &err)

	if !confirmed {
		return View{}, &ConfirmationError{Prompt: PromptClearWorkouts}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover(ctx)

	workouts := []WorkoutEntry{}
	if err := t.store.Set(ctx, KeyWorkouts, workouts); err != nil {
		return View{}, err
	}
	t.state.Workouts = workouts
	t.metrics.GaugeWorkouts.Set(0)

	log.Debugln("all workouts cleared")
	return Render(t.state), nil
}

func (t *Tracker) SaveDietPlan(ctx context.Context, plan string) (view View, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "tracker.save_diet_plan")
	defer endSpan(span, &err)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover(ctx)

	if err := t.store.Set(ctx, KeyDietPlan, plan); err != nil {
		return View{}, err
	}
	t.state.DietPlan = plan

	view = Render(t.state)
	view.Notice = NoticeDietPlanSaved
	return view, nil
}

func (t *Tracker) ResetDietPlan(ctx context.Context, confirmed bool) (view View, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "tracker.reset_diet_plan")
	defer endSpan(span, &err)

	if !confirmed {
		return View{}, &ConfirmationError{Prompt: PromptResetDietPlan}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover(ctx)

	if err := t.store.Set(ctx, KeyDietPlan, ""); err != nil {
		return View{}, err
	}
	t.state.DietPlan = ""
	return Render(t.state), nil
}

// Export encodes the in-memory state as an indented JSON document. The
// store is not consulted.
func (t *Tracker) Export(ctx context.Context) ([]byte, error) {
	_, span := tracing.GlobalTracer.Start(ctx, "tracker.export")
	defer span.End()

	t.mu.Lock()
	defer t.mu.Unlock()

	doc, err := json.MarshalIndent(t.state, "", "  ")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("marshal export: %w", err)
	}
	return doc, nil
}

// ClearAll wipes the whole store namespace, foreign keys included, and
// resets every record to its default.
func (t *Tracker) ClearAll(ctx context.Context, confirmed bool) (view View, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "tracker.clear_all")
	defer endSpan(span, &err)

	if !confirmed {
		return View{}, &ConfirmationError{Prompt: PromptClearAll}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.store.ClearAll(ctx); err != nil {
		return View{}, err
	}

	t.state = DefaultState(t.today())
	// the water day key went with the namespace, write it back
	t.rollover(ctx)
	t.metrics.CounterClearAll.Inc()
	t.metrics.GaugeWorkouts.Set(0)

	log.Infoln("all data cleared")
	return Render(t.state), nil
}

// rollover zeroes steps and water left over from a previous day. Callers
// hold the lock. Write failures are logged, the in-memory rollover stands.
func (t *Tracker) rollover(ctx context.Context) {
	if !t.dailyReset {
		return
	}

	today := t.today()
	if t.state.Steps.Date != today {
		t.state.Steps = StepsRecord{Date: today}
		if err := t.store.Set(ctx, KeySteps, t.state.Steps); err != nil {
			log.Warnf("daily reset, steps: %s", err)
		}
	}

	switch t.state.WaterDate {
	case today:
		return
	case "":
		// total written before daily reset was turned on counts for today
	default:
		t.state.WaterTotal = 0
		if err := t.store.Set(ctx, KeyWaterTotal, 0); err != nil {
			log.Warnf("daily reset, water total: %s", err)
		}
	}
	t.state.WaterDate = today
	if err := t.store.Set(ctx, KeyWaterDate, today); err != nil {
		log.Warnf("daily reset, water date: %s", err)
	}
}

func (t *Tracker) rejected(command, alert string) error {
	t.metrics.CounterValidationFailures.WithLabelValues(command).Inc()
	return &ValidationError{Alert: alert}
}

func (t *Tracker) today() string {
	return t.now().UTC().Format(DateLayout)
}

func endSpan(span trace.Span, err *error) {
	if *err != nil {
		span.RecordError(*err)
		span.SetStatus(codes.Error, (*err).Error())
	}
	span.End()
}
