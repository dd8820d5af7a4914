package tracker

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/2beens/fitclub/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const ExportFileName = "fitclub-data.json"

type Handler struct {
	tracker *Tracker
}

func NewHandler(tracker *Tracker) *Handler {
	return &Handler{
		tracker: tracker,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/view", handler.handleView).Methods("GET").Name("view")
	router.HandleFunc("/weight", handler.handleAddWeight).Methods("POST", "OPTIONS").Name("add-weight")
	router.HandleFunc("/steps", handler.handleAddSteps).Methods("POST", "OPTIONS").Name("add-steps")
	router.HandleFunc("/calories", handler.handleAddCalories).Methods("POST", "OPTIONS").Name("add-calories")
	router.HandleFunc("/water", handler.handleAddWater).Methods("POST", "OPTIONS").Name("add-water")
	router.HandleFunc("/workouts", handler.handleLogWorkout).Methods("POST", "OPTIONS").Name("log-workout")
	router.HandleFunc("/workouts", handler.handleClearWorkouts).Methods("DELETE").Name("clear-workouts")
	router.HandleFunc("/workouts/{position}", handler.handleDeleteWorkout).Methods("DELETE", "OPTIONS").Name("delete-workout")
	router.HandleFunc("/diet", handler.handleSaveDietPlan).Methods("PUT", "OPTIONS").Name("save-diet-plan")
	router.HandleFunc("/diet", handler.handleResetDietPlan).Methods("DELETE").Name("reset-diet-plan")
	router.HandleFunc("/export", handler.handleExport).Methods("GET").Name("export")
	router.HandleFunc("/data", handler.handleClearAll).Methods("DELETE", "OPTIONS").Name("clear-all")
}

func (handler *Handler) handleView(w http.ResponseWriter, r *http.Request) {
	pkg.WriteJSON(w, handler.tracker.View(r.Context()), http.StatusOK)
}

func (handler *Handler) handleAddWeight(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r, "POST, OPTIONS") {
		return
	}
	if !parseForm(w, r, "add weight") {
		return
	}
	view, err := handler.tracker.AddWeight(r.Context(), r.Form.Get("weight"))
	respond(w, view, err, "add weight")
}

func (handler *Handler) handleAddSteps(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r, "POST, OPTIONS") {
		return
	}
	if !parseForm(w, r, "add steps") {
		return
	}
	view, err := handler.tracker.AddSteps(r.Context(), r.Form.Get("steps"))
	respond(w, view, err, "add steps")
}

func (handler *Handler) handleAddCalories(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r, "POST, OPTIONS") {
		return
	}
	if !parseForm(w, r, "add calories") {
		return
	}
	view, err := handler.tracker.AddCalories(r.Context(), r.Form.Get("calories"))
	respond(w, view, err, "add calories")
}

func (handler *Handler) handleAddWater(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r, "POST, OPTIONS") {
		return
	}
	if !parseForm(w, r, "add water") {
		return
	}
	view, err := handler.tracker.AddWater(r.Context(), r.Form.Get("water"))
	respond(w, view, err, "add water")
}

func (handler *Handler) handleLogWorkout(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r, "POST, DELETE, OPTIONS") {
		return
	}
	if !parseForm(w, r, "log workout") {
		return
	}
	view, err := handler.tracker.LogWorkout(
		r.Context(),
		r.Form.Get("type"),
		r.Form.Get("duration"),
		r.Form.Get("notes"),
	)
	respond(w, view, err, "log workout")
}

func (handler *Handler) handleDeleteWorkout(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r, "DELETE, OPTIONS") {
		return
	}

	positionStr := mux.Vars(r)["position"]
	position, err := strconv.Atoi(positionStr)
	if err != nil {
		log.Errorf("handle delete workout, <position> param [%s]: %s", positionStr, err)
		pkg.WriteJSON(w, alertResponse{Alert: AlertPosition}, http.StatusBadRequest)
		return
	}

	view, err := handler.tracker.DeleteWorkout(r.Context(), position)
	respond(w, view, err, "delete workout")
}

func (handler *Handler) handleClearWorkouts(w http.ResponseWriter, r *http.Request) {
	view, err := handler.tracker.ClearWorkouts(r.Context(), confirmed(r))
	respond(w, view, err, "clear workouts")
}

func (handler *Handler) handleSaveDietPlan(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r, "PUT, DELETE, OPTIONS") {
		return
	}
	if !parseForm(w, r, "save diet plan") {
		return
	}
	view, err := handler.tracker.SaveDietPlan(r.Context(), r.Form.Get("plan"))
	respond(w, view, err, "save diet plan")
}

func (handler *Handler) handleResetDietPlan(w http.ResponseWriter, r *http.Request) {
	view, err := handler.tracker.ResetDietPlan(r.Context(), confirmed(r))
	respond(w, view, err, "reset diet plan")
}

func (handler *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	doc, err := handler.tracker.Export(r.Context())
	if err != nil {
		log.Errorf("export: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteAttachment(w, pkg.ContentType.JSON, ExportFileName, doc)
}

func (handler *Handler) handleClearAll(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r, "DELETE, OPTIONS") {
		return
	}
	view, err := handler.tracker.ClearAll(r.Context(), confirmed(r))
	respond(w, view, err, "clear all")
}

type alertResponse struct {
	Alert string `json:"alert"`
}

type confirmResponse struct {
	Confirm string `json:"confirm"`
}

func respond(w http.ResponseWriter, view View, err error, command string) {
	var validationErr *ValidationError
	var confirmationErr *ConfirmationError
	switch {
	case err == nil:
		pkg.WriteJSON(w, view, http.StatusOK)
	case errors.As(err, &validationErr):
		log.Debugf("%s rejected: %s", command, validationErr.Alert)
		pkg.WriteJSON(w, alertResponse{Alert: validationErr.Alert}, http.StatusBadRequest)
	case errors.As(err, &confirmationErr):
		pkg.WriteJSON(w, confirmResponse{Confirm: confirmationErr.Prompt}, http.StatusPreconditionRequired)
	default:
		log.Errorf("%s: %s", command, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func preflight(w http.ResponseWriter, r *http.Request, allow string) bool {
	if r.Method != http.MethodOptions {
		return false
	}
	w.Header().Add("Allow", allow)
	w.WriteHeader(http.StatusOK)
	return true
}

func parseForm(w http.ResponseWriter, r *http.Request, command string) bool {
	if err := r.ParseForm(); err != nil {
		log.Errorf("%s failed, parse form error: %s", command, err)
		http.Error(w, "parse form error", http.StatusBadRequest)
		return false
	}
	return true
}

func confirmed(r *http.Request) bool {
	ok, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	return ok
}
