package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hyunwoo-cho/course-reg-and-admission/internal/model"
	"github.com/hyunwoo-cho/course-reg-and-admission/internal/repository"
	"github.com/hyunwoo-cho/course-reg-and-admission/internal/seatstore"
	"github.com/hyunwoo-cho/course-reg-and-admission/internal/service"
)

// memLedger is a minimal in-memory ledger implementing the service ports, just
// enough to drive the HTTP surface.
type memLedger struct {
	mu       sync.Mutex
	students map[string]model.Student
	courses  map[string]*model.Course
	regs     map[string]model.Registration
	baskets  map[string]model.BasketItem
}

func newMemLedger() *memLedger {
	return &memLedger{
		students: make(map[string]model.Student),
		courses:  make(map[string]*model.Course),
		regs:     make(map[string]model.Registration),
		baskets:  make(map[string]model.BasketItem),
	}
}

func (m *memLedger) Create(_ context.Context, req model.CreateStudentRequest) (*model.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := model.Student{ID: uuid.New().String(), Name: req.Name, CreditLimit: req.CreditLimit, CreatedAt: time.Now()}
	m.students[s.ID] = s
	return &s, nil
}

func (m *memLedger) GetByID(_ context.Context, id string) (*model.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.students[id]
	if !ok {
		return nil, repository.ErrStudentNotFound
	}
	return &s, nil
}

type memCourses struct{ *memLedger }

func (m memCourses) Create(_ context.Context, req model.CreateCourseRequest) (*model.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := &model.Course{
		ID: uuid.New().String(), Name: req.Name, SubjectID: req.SubjectID,
		Credit: req.Credit, Capacity: req.Capacity, Timetable: req.Timetable,
		CreatedAt: time.Now(),
	}
	m.courses[c.ID] = c
	return c, nil
}

func (m memCourses) List(context.Context) ([]model.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Course{}
	for _, c := range m.courses {
		out = append(out, *c)
	}
	return out, nil
}

func (m memCourses) GetByID(_ context.Context, id string) (*model.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[id]
	if !ok {
		return nil, repository.ErrCourseNotFound
	}
	cp := *c
	return &cp, nil
}

func (m memCourses) IDsWithRegistrations(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]bool)
	ids := []string{}
	for _, r := range m.regs {
		if !seen[r.CourseID] {
			seen[r.CourseID] = true
			ids = append(ids, r.CourseID)
		}
	}
	return ids, nil
}

func (m memCourses) SetCurrent(_ context.Context, id string, current int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[id]
	if !ok {
		return repository.ErrCourseNotFound
	}
	c.Current = current
	return nil
}

type memRegs struct{ *memLedger }

func (m memRegs) Admit(_ context.Context, studentID, courseID string) (*model.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[courseID]
	if !ok {
		return nil, repository.ErrCourseNotFound
	}
	if c.Capacity != model.UnlimitedCapacity && c.Current >= c.Capacity {
		return nil, repository.ErrCourseFull
	}
	reg := model.Registration{ID: uuid.New().String(), StudentID: studentID, CourseID: courseID, CreatedAt: time.Now()}
	m.regs[reg.ID] = reg
	c.Current++
	return &reg, nil
}

func (m memRegs) Withdraw(_ context.Context, registrationID, studentID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.regs[registrationID]
	if !ok {
		return "", repository.ErrRegistrationNotFound
	}
	if reg.StudentID != studentID {
		return "", repository.ErrNotAuthorized
	}
	delete(m.regs, registrationID)
	if c, ok := m.courses[reg.CourseID]; ok {
		c.Current--
	}
	return reg.CourseID, nil
}

func (m memRegs) ListByStudent(_ context.Context, studentID string) ([]model.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Enrollment{}
	for _, r := range m.regs {
		if r.StudentID != studentID {
			continue
		}
		out = append(out, model.Enrollment{Registration: r, Course: *m.courses[r.CourseID]})
	}
	return out, nil
}

func (m memRegs) CountByCourse(_ context.Context, courseID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.regs {
		if r.CourseID == courseID {
			n++
		}
	}
	return n, nil
}

type memBaskets struct{ *memLedger }

func (m memBaskets) Add(_ context.Context, studentID, courseID string) (*model.BasketItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.baskets {
		if b.StudentID == studentID && b.CourseID == courseID {
			return nil, repository.ErrAlreadyInBasket
		}
	}
	item := model.BasketItem{ID: uuid.New().String(), StudentID: studentID, CourseID: courseID, CreatedAt: time.Now()}
	m.baskets[item.ID] = item
	return &item, nil
}

func (m memBaskets) ListByStudent(_ context.Context, studentID string) ([]model.BasketEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.BasketEntry{}
	for _, b := range m.baskets {
		if b.StudentID == studentID {
			out = append(out, model.BasketEntry{Item: b, Course: *m.courses[b.CourseID]})
		}
	}
	return out, nil
}

func (m memBaskets) Remove(_ context.Context, basketID, studentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.baskets[basketID]
	if !ok {
		return repository.ErrBasketNotFound
	}
	if b.StudentID != studentID {
		return repository.ErrNotAuthorized
	}
	delete(m.baskets, basketID)
	return nil
}

func newTestServer(t *testing.T) (http.Handler, *memLedger) {
	t.Helper()
	ledger := newMemLedger()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	counter := seatstore.NewMemoryCounter(log)
	admissions := service.NewAdmissionService(ledger, memCourses{ledger}, memRegs{ledger}, counter, log)
	baskets := service.NewBasketService(ledger, memCourses{ledger}, memBaskets{ledger})
	return New(admissions, baskets).Routes(1000, 1000), ledger
}

func doJSON(t *testing.T, srv http.Handler, method, path, studentID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if studentID != "" {
		req.Header.Set("X-Student-ID", studentID)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestRegisterEndpoint(t *testing.T) {
	srv, ledger := newTestServer(t)
	ledger.students["s1"] = model.Student{ID: "s1", Name: "Kim", CreditLimit: 18}
	ledger.courses["c1"] = &model.Course{ID: "c1", Name: "Algorithms", SubjectID: "cs", Credit: 3, Capacity: 2}

	rec := doJSON(t, srv, http.MethodPost, "/courses/c1/register", "s1", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var reg model.Registration
	if err := json.Unmarshal(rec.Body.Bytes(), &reg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if reg.StudentID != "s1" || reg.CourseID != "c1" {
		t.Fatalf("registration = %+v", reg)
	}
}

func TestRegisterEndpointErrors(t *testing.T) {
	srv, ledger := newTestServer(t)
	ledger.students["s1"] = model.Student{ID: "s1", CreditLimit: 18}
	ledger.students["s2"] = model.Student{ID: "s2", CreditLimit: 18}
	ledger.courses["full"] = &model.Course{ID: "full", SubjectID: "cs", Credit: 3, Capacity: 1, Current: 1}

	if rec := doJSON(t, srv, http.MethodPost, "/courses/c9/register", "", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("no identity: status = %d, want 401", rec.Code)
	}
	if rec := doJSON(t, srv, http.MethodPost, "/courses/c9/register", "s1", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown course: status = %d, want 404", rec.Code)
	}
	if rec := doJSON(t, srv, http.MethodPost, "/courses/full/register", "s2", ""); rec.Code != http.StatusConflict {
		t.Errorf("full course: status = %d, want 409", rec.Code)
	}
}

func TestWithdrawEndpoint(t *testing.T) {
	srv, ledger := newTestServer(t)
	ledger.students["s1"] = model.Student{ID: "s1", CreditLimit: 18}
	ledger.students["s2"] = model.Student{ID: "s2", CreditLimit: 18}
	ledger.courses["c1"] = &model.Course{ID: "c1", SubjectID: "cs", Credit: 3, Capacity: 5, Current: 1}
	ledger.regs["r1"] = model.Registration{ID: "r1", StudentID: "s1", CourseID: "c1"}

	if rec := doJSON(t, srv, http.MethodDelete, "/registrations/r1", "s2", ""); rec.Code != http.StatusForbidden {
		t.Errorf("foreign withdraw: status = %d, want 403", rec.Code)
	}
	if rec := doJSON(t, srv, http.MethodDelete, "/registrations/r1", "s1", ""); rec.Code != http.StatusOK {
		t.Errorf("own withdraw: status = %d, want 200", rec.Code)
	}
	if rec := doJSON(t, srv, http.MethodDelete, "/registrations/r1", "s1", ""); rec.Code != http.StatusNotFound {
		t.Errorf("repeat withdraw: status = %d, want 404", rec.Code)
	}
}

func TestCreateCourseEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/courses", "",
		`{"name":"Algorithms","subject_id":"cs","credit":3,"capacity":40,"timetable":"Mon:2,3 Wed:2,3"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodPost, "/courses", "",
		`{"name":"Broken","subject_id":"cs","credit":3,"capacity":40,"timetable":"Funday:1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed timetable: status = %d, want 400", rec.Code)
	}
}

func TestBasketEndpoints(t *testing.T) {
	srv, ledger := newTestServer(t)
	ledger.students["s1"] = model.Student{ID: "s1", CreditLimit: 18}
	ledger.courses["c1"] = &model.Course{ID: "c1", SubjectID: "cs", Credit: 3, Capacity: 5}

	rec := doJSON(t, srv, http.MethodPost, "/basket/c1", "s1", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("add: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if rec := doJSON(t, srv, http.MethodPost, "/basket/c1", "s1", ""); rec.Code != http.StatusConflict {
		t.Errorf("duplicate add: status = %d, want 409", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/basket", "s1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status = %d", rec.Code)
	}
	var entries []model.BasketEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 1 || entries[0].Course.ID != "c1" {
		t.Fatalf("entries = %+v", entries)
	}

	if rec := doJSON(t, srv, http.MethodDelete, "/basket/"+entries[0].Item.ID, "s1", ""); rec.Code != http.StatusOK {
		t.Errorf("remove: status = %d, want 200", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	limited := RateLimit(1, 2)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := []int{}
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodGet, "/courses", nil)
		req.Header.Set("X-Student-ID", "s1")
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Fatalf("burst requests rejected: %v", codes)
	}
	if codes[3] != http.StatusTooManyRequests {
		t.Fatalf("limit not enforced: %v", codes)
	}

	// A different client has its own bucket.
	req := httptest.NewRequest(http.MethodGet, "/courses", nil)
	req.Header.Set("X-Student-ID", "s2")
	rec := httptest.NewRecorder()
	limited.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("separate client throttled: %d", rec.Code)
	}
}
