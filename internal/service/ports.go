package service

import (
	"context"

	"github.com/hyunwoo-cho/course-reg-and-admission/internal/model"
)

// The durable-ledger ports consumed by the services. internal/repository
// provides the pgx implementations; tests substitute in-memory fakes.

// StudentStore is the ledger port for student records.
type StudentStore interface {
	Create(ctx context.Context, req model.CreateStudentRequest) (*model.Student, error)
	GetByID(ctx context.Context, id string) (*model.Student, error)
}

// CourseStore is the ledger port for course records.
type CourseStore interface {
	Create(ctx context.Context, req model.CreateCourseRequest) (*model.Course, error)
	List(ctx context.Context) ([]model.Course, error)
	GetByID(ctx context.Context, id string) (*model.Course, error)
	IDsWithRegistrations(ctx context.Context) ([]string, error)
	SetCurrent(ctx context.Context, id string, current int) error
}

// RegistrationStore is the ledger port for registration records. Admit and
// Withdraw are transactional: the registration row and the course's durable
// count change together or not at all.
type RegistrationStore interface {
	Admit(ctx context.Context, studentID, courseID string) (*model.Registration, error)
	Withdraw(ctx context.Context, registrationID, studentID string) (courseID string, err error)
	ListByStudent(ctx context.Context, studentID string) ([]model.Enrollment, error)
	CountByCourse(ctx context.Context, courseID string) (int, error)
}

// BasketStore is the ledger port for pre-registration baskets.
type BasketStore interface {
	Add(ctx context.Context, studentID, courseID string) (*model.BasketItem, error)
	ListByStudent(ctx context.Context, studentID string) ([]model.BasketEntry, error)
	Remove(ctx context.Context, basketID, studentID string) error
}
