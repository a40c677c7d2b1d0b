package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hyunwoo-cho/course-reg-and-admission/internal/model"
	"github.com/hyunwoo-cho/course-reg-and-admission/internal/repository"
)

// fakeLedger is an in-memory stand-in for the pgx repositories. Admit and
// Withdraw take the ledger mutex for their whole read-modify-write, matching
// the row-lock serialization the real transactions provide.
type fakeLedger struct {
	mu       sync.Mutex
	students map[string]model.Student
	courses  map[string]*model.Course
	regs     map[string]model.Registration
	regOrder []string

	// admitErr, when set, fails the durable admit after all checks pass.
	admitErr error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		students: make(map[string]model.Student),
		courses:  make(map[string]*model.Course),
		regs:     make(map[string]model.Registration),
	}
}

func (f *fakeLedger) addStudent(id string, creditLimit int) {
	f.students[id] = model.Student{ID: id, Name: id, CreditLimit: creditLimit, CreatedAt: time.Now()}
}

func (f *fakeLedger) addCourse(id, subjectID string, credit, capacity int, tt string) {
	f.courses[id] = &model.Course{
		ID: id, Name: id, SubjectID: subjectID, Credit: credit,
		Capacity: capacity, Timetable: tt, CreatedAt: time.Now(),
	}
}

func (f *fakeLedger) Create(ctx context.Context, req model.CreateStudentRequest) (*model.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := model.Student{ID: uuid.New().String(), Name: req.Name, CreditLimit: req.CreditLimit, CreatedAt: time.Now()}
	f.students[s.ID] = s
	return &s, nil
}

func (f *fakeLedger) GetByID(ctx context.Context, id string) (*model.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.students[id]
	if !ok {
		return nil, repository.ErrStudentNotFound
	}
	return &s, nil
}

// courseStore adapts fakeLedger to the CourseStore port; GetByID collides with
// the student method, so courses get their own view type.
type courseStore struct{ *fakeLedger }

func (f courseStore) Create(ctx context.Context, req model.CreateCourseRequest) (*model.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &model.Course{
		ID: uuid.New().String(), Name: req.Name, SubjectID: req.SubjectID,
		Credit: req.Credit, Capacity: req.Capacity, Timetable: req.Timetable,
		CreatedAt: time.Now(),
	}
	f.courses[c.ID] = c
	return c, nil
}

func (f courseStore) List(ctx context.Context) ([]model.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Course{}
	for _, c := range f.courses {
		out = append(out, *c)
	}
	return out, nil
}

func (f courseStore) GetByID(ctx context.Context, id string) (*model.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.courses[id]
	if !ok {
		return nil, repository.ErrCourseNotFound
	}
	cp := *c
	return &cp, nil
}

func (f courseStore) IDsWithRegistrations(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[string]bool)
	ids := []string{}
	for _, id := range f.regOrder {
		r, ok := f.regs[id]
		if !ok {
			continue
		}
		if !seen[r.CourseID] {
			seen[r.CourseID] = true
			ids = append(ids, r.CourseID)
		}
	}
	return ids, nil
}

func (f courseStore) SetCurrent(ctx context.Context, id string, current int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.courses[id]
	if !ok {
		return repository.ErrCourseNotFound
	}
	c.Current = current
	return nil
}

type regStore struct{ *fakeLedger }

func (f regStore) Admit(ctx context.Context, studentID, courseID string) (*model.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	course, ok := f.courses[courseID]
	if !ok {
		return nil, repository.ErrCourseNotFound
	}
	for _, r := range f.regs {
		if r.StudentID == studentID && r.CourseID == courseID {
			return nil, repository.ErrAlreadyRegistered
		}
	}
	if course.Capacity != model.UnlimitedCapacity && course.Current >= course.Capacity {
		return nil, repository.ErrCourseFull
	}
	if f.admitErr != nil {
		return nil, fmt.Errorf("insert registration: %w", f.admitErr)
	}

	reg := model.Registration{
		ID:        uuid.New().String(),
		StudentID: studentID,
		CourseID:  courseID,
		CreatedAt: time.Now(),
	}
	f.regs[reg.ID] = reg
	f.regOrder = append(f.regOrder, reg.ID)
	course.Current++
	return &reg, nil
}

func (f regStore) Withdraw(ctx context.Context, registrationID, studentID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	reg, ok := f.regs[registrationID]
	if !ok {
		return "", repository.ErrRegistrationNotFound
	}
	if reg.StudentID != studentID {
		return "", repository.ErrNotAuthorized
	}
	delete(f.regs, registrationID)
	if c, ok := f.courses[reg.CourseID]; ok {
		c.Current--
	}
	return reg.CourseID, nil
}

func (f regStore) ListByStudent(ctx context.Context, studentID string) ([]model.Enrollment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := []model.Enrollment{}
	for _, id := range f.regOrder {
		r, ok := f.regs[id]
		if !ok || r.StudentID != studentID {
			continue
		}
		c := f.courses[r.CourseID]
		out = append(out, model.Enrollment{Registration: r, Course: *c})
	}
	return out, nil
}

func (f regStore) CountByCourse(ctx context.Context, courseID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, r := range f.regs {
		if r.CourseID == courseID {
			n++
		}
	}
	return n, nil
}
