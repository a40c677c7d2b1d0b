// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hyunwoo-cho/course-reg-and-admission/internal/model"
	"github.com/hyunwoo-cho/course-reg-and-admission/internal/repository"
	"github.com/hyunwoo-cho/course-reg-and-admission/internal/service"
	"github.com/hyunwoo-cho/course-reg-and-admission/internal/timetable"
)

// Handler holds all HTTP handlers for the course admission API.
type Handler struct {
	admissions *service.AdmissionService
	baskets    *service.BasketService
}

// New constructs a Handler.
func New(admissions *service.AdmissionService, baskets *service.BasketService) *Handler {
	return &Handler{admissions: admissions, baskets: baskets}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// studentID extracts the already-authenticated caller identity. An upstream
// auth layer is expected to have validated it.
func studentID(r *http.Request) (string, bool) {
	id := r.Header.Get("X-Student-ID")
	return id, id != ""
}

// writeServiceError maps service and repository sentinels to HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrStudentNotFound):
		writeError(w, http.StatusNotFound, "student not found")
	case errors.Is(err, repository.ErrCourseNotFound):
		writeError(w, http.StatusNotFound, "course not found")
	case errors.Is(err, repository.ErrRegistrationNotFound):
		writeError(w, http.StatusNotFound, "registration not found")
	case errors.Is(err, repository.ErrBasketNotFound):
		writeError(w, http.StatusNotFound, "basket item not found")
	case errors.Is(err, repository.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, "you do not own this record")
	case errors.Is(err, repository.ErrCourseFull):
		writeError(w, http.StatusConflict, "course is full")
	case errors.Is(err, repository.ErrAlreadyRegistered):
		writeError(w, http.StatusConflict, "you are already registered for this course")
	case errors.Is(err, repository.ErrAlreadyInBasket):
		writeError(w, http.StatusConflict, "course is already in your basket")
	case errors.Is(err, service.ErrSubjectAlreadyRegistered):
		writeError(w, http.StatusConflict, "you already registered a course for this subject")
	case errors.Is(err, service.ErrCreditExceeded):
		writeError(w, http.StatusConflict, "registration would exceed your credit limit")
	case errors.Is(err, service.ErrTimeConflict):
		writeError(w, http.StatusConflict, "course time conflicts with your timetable")
	case errors.Is(err, timetable.ErrMalformedTimetable):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// ─── Students ─────────────────────────────────────────────────────────────────

// CreateStudent handles POST /students
func (h *Handler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateStudentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	student, err := h.admissions.CreateStudent(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, student)
}

// GetStudent handles GET /students/{id}
func (h *Handler) GetStudent(w http.ResponseWriter, r *http.Request) {
	student, err := h.admissions.GetStudent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, student)
}

// ─── Courses ──────────────────────────────────────────────────────────────────

// CreateCourse handles POST /courses
func (h *Handler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	var req model.CreateCourseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	course, err := h.admissions.CreateCourse(r.Context(), req)
	if err != nil {
		if errors.Is(err, timetable.ErrMalformedTimetable) {
			writeServiceError(w, err)
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, course)
}

// ListCourses handles GET /courses
func (h *Handler) ListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.admissions.ListCourses(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list courses")
		return
	}
	// Return an empty array rather than null for better client compatibility.
	if courses == nil {
		courses = []model.Course{}
	}
	writeJSON(w, http.StatusOK, courses)
}

// GetCourse handles GET /courses/{id}
func (h *Handler) GetCourse(w http.ResponseWriter, r *http.Request) {
	course, err := h.admissions.GetCourse(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, course)
}

// ─── Registrations ────────────────────────────────────────────────────────────

// Register handles POST /courses/{id}/register
// Admits the calling student into the course, capacity permitting.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	sid, ok := studentID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "X-Student-ID header is required")
		return
	}

	reg, err := h.admissions.Register(r.Context(), chi.URLParam(r, "id"), sid)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, reg)
}

// ListRegistrations handles GET /registrations
// Returns the calling student's registrations in insertion order.
func (h *Handler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	sid, ok := studentID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "X-Student-ID header is required")
		return
	}

	regs, err := h.admissions.ListRegistrations(r.Context(), sid)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if regs == nil {
		regs = []model.Enrollment{}
	}
	writeJSON(w, http.StatusOK, regs)
}

// Withdraw handles DELETE /registrations/{id}
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	sid, ok := studentID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "X-Student-ID header is required")
		return
	}

	if err := h.admissions.Cancel(r.Context(), chi.URLParam(r, "id"), sid); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "withdrawn"})
}

// Reconcile handles POST /reconcile
// Operational repair entry point: rebuilds seat counters from the ledger.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	if err := h.admissions.Reconcile(r.Context()); err != nil {
		if errors.Is(err, service.ErrOrphanCourse) || errors.Is(err, service.ErrCountMismatch) {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "reconciliation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reconciled"})
}

// ─── Basket ───────────────────────────────────────────────────────────────────

// ListBasket handles GET /basket
func (h *Handler) ListBasket(w http.ResponseWriter, r *http.Request) {
	sid, ok := studentID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "X-Student-ID header is required")
		return
	}

	entries, err := h.baskets.List(r.Context(), sid)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []model.BasketEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// AddToBasket handles POST /basket/{courseId}
func (h *Handler) AddToBasket(w http.ResponseWriter, r *http.Request) {
	sid, ok := studentID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "X-Student-ID header is required")
		return
	}

	item, err := h.baskets.Add(r.Context(), chi.URLParam(r, "courseId"), sid)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// RemoveFromBasket handles DELETE /basket/{basketId}
func (h *Handler) RemoveFromBasket(w http.ResponseWriter, r *http.Request) {
	sid, ok := studentID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "X-Student-ID header is required")
		return
	}

	if err := h.baskets.Remove(r.Context(), chi.URLParam(r, "basketId"), sid); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
