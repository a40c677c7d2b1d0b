// Package service implements the admission-control business logic: eligibility
// validation, the seat-counter fast gate with its durable fallback, and the
// reconciliation pass that repairs the counter from the ledger.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hyunwoo-cho/course-reg-and-admission/internal/model"
	"github.com/hyunwoo-cho/course-reg-and-admission/internal/repository"
	"github.com/hyunwoo-cho/course-reg-and-admission/internal/seatstore"
	"github.com/hyunwoo-cho/course-reg-and-admission/internal/timetable"
)

// AdmissionService orchestrates course admission and withdrawal.
type AdmissionService struct {
	students StudentStore
	courses  CourseStore
	regs     RegistrationStore
	counter  seatstore.Counter
	log      *slog.Logger
}

// NewAdmissionService constructs an AdmissionService with its dependencies.
func NewAdmissionService(
	students StudentStore,
	courses CourseStore,
	regs RegistrationStore,
	counter seatstore.Counter,
	log *slog.Logger,
) *AdmissionService {
	return &AdmissionService{
		students: students,
		courses:  courses,
		regs:     regs,
		counter:  counter,
		log:      log,
	}
}

// Register admits a student into a course.
//
// The flow is: look up both parties, snapshot the student's enrollments,
// run the eligibility checks, take a seat from the fast counter, then record
// the registration durably. When the fast store is unreachable the counter
// step is skipped and the capacity gate moves into the durable transaction,
// which re-checks the count under a row lock either way. A counter seat taken
// for a registration that then fails durably is handed back best-effort.
func (s *AdmissionService) Register(ctx context.Context, courseID, studentID string) (*model.Registration, error) {
	student, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		return nil, err
	}
	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}

	enrolled, err := s.regs.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("snapshot enrollments: %w", err)
	}
	if err := CheckEligibility(student, course, enrolled); err != nil {
		return nil, err
	}

	decremented := false
	if course.HasLimit() && s.counter.Reachable(ctx) {
		ok, err := s.takeSeat(ctx, course)
		switch {
		case err == nil && !ok:
			return nil, repository.ErrCourseFull
		case err == nil:
			decremented = true
		case errors.Is(err, seatstore.ErrUnavailable), errors.Is(err, seatstore.ErrMissing):
			s.log.Warn("seat store unusable, falling back to durable capacity gate",
				"course_id", courseID, "error", err)
		default:
			return nil, err
		}
	}

	reg, err := s.regs.Admit(ctx, studentID, courseID)
	if err != nil {
		if decremented {
			if cerr := s.counter.Increment(ctx, courseID, 1); cerr != nil {
				// Counter is now one seat short until the next reconciliation.
				s.log.Error("seat counter compensation failed",
					"course_id", courseID, "error", cerr)
			}
		}
		return nil, err
	}

	return reg, nil
}

// takeSeat reserves one seat on the fast counter, seeding it from the durable
// snapshot on first use. A Seed lost to a concurrent seeder is fine; the
// decrement that follows is the gate.
func (s *AdmissionService) takeSeat(ctx context.Context, course *model.Course) (bool, error) {
	exists, err := s.counter.Exists(ctx, course.ID)
	if err != nil {
		return false, err
	}
	if !exists {
		err := s.counter.Seed(ctx, course.ID, int64(course.Remaining()))
		if err != nil && !errors.Is(err, seatstore.ErrAlreadySeeded) {
			return false, err
		}
	}
	return s.counter.TryDecrement(ctx, course.ID, 1)
}

// Cancel withdraws a registration and hands the seat back.
func (s *AdmissionService) Cancel(ctx context.Context, registrationID, studentID string) error {
	courseID, err := s.regs.Withdraw(ctx, registrationID, studentID)
	if err != nil {
		return err
	}

	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		s.log.Warn("withdrawn registration references unknown course",
			"course_id", courseID, "registration_id", registrationID)
		return nil
	}
	if course.HasLimit() {
		if err := s.counter.Increment(ctx, courseID, 1); err != nil {
			// Best effort: reconciliation repairs the counter later.
			s.log.Warn("seat counter release failed",
				"course_id", courseID, "error", err)
		}
	}
	return nil
}

// ListRegistrations returns the student's active registrations in insertion order.
func (s *AdmissionService) ListRegistrations(ctx context.Context, studentID string) ([]model.Enrollment, error) {
	if _, err := s.students.GetByID(ctx, studentID); err != nil {
		return nil, err
	}
	return s.regs.ListByStudent(ctx, studentID)
}

// CreateCourse validates the request and delegates to the ledger.
func (s *AdmissionService) CreateCourse(ctx context.Context, req model.CreateCourseRequest) (*model.Course, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, fmt.Errorf("course name is required")
	}
	if strings.TrimSpace(req.SubjectID) == "" {
		return nil, fmt.Errorf("subject_id is required")
	}
	if req.Credit < 0 {
		return nil, fmt.Errorf("credit must not be negative")
	}
	if req.Capacity <= 0 && req.Capacity != model.UnlimitedCapacity {
		return nil, fmt.Errorf("capacity must be a positive integer or %d for unlimited", model.UnlimitedCapacity)
	}
	if _, err := timetable.Parse(req.Timetable); err != nil {
		return nil, err
	}
	return s.courses.Create(ctx, req)
}

// ListCourses returns all courses.
func (s *AdmissionService) ListCourses(ctx context.Context) ([]model.Course, error) {
	return s.courses.List(ctx)
}

// GetCourse returns a single course by id.
func (s *AdmissionService) GetCourse(ctx context.Context, id string) (*model.Course, error) {
	return s.courses.GetByID(ctx, id)
}

// CreateStudent validates the request and delegates to the ledger.
func (s *AdmissionService) CreateStudent(ctx context.Context, req model.CreateStudentRequest) (*model.Student, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, fmt.Errorf("student name is required")
	}
	if req.CreditLimit <= 0 {
		return nil, fmt.Errorf("credit_limit must be a positive integer")
	}
	return s.students.Create(ctx, req)
}

// GetStudent returns a single student by id.
func (s *AdmissionService) GetStudent(ctx context.Context, id string) (*model.Student, error) {
	return s.students.GetByID(ctx, id)
}
