// Package repository implements all durable-ledger queries for the course
// admission system. It uses pgx directly (no ORM) for transparency and
// performance. The ledger is the source of truth; the seat counter in
// internal/seatstore is a rebuildable cache of it.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hyunwoo-cho/course-reg-and-admission/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrStudentNotFound is returned when the referenced student does not exist.
var ErrStudentNotFound = errors.New("student not found")

// ErrCourseNotFound is returned when the referenced course does not exist.
var ErrCourseNotFound = errors.New("course not found")

// ErrRegistrationNotFound is returned when the referenced registration does not exist.
var ErrRegistrationNotFound = errors.New("registration not found")

// ErrBasketNotFound is returned when the referenced basket item does not exist.
var ErrBasketNotFound = errors.New("basket item not found")

// ErrCourseFull is returned when a course has no remaining capacity.
var ErrCourseFull = errors.New("course is full")

// ErrAlreadyRegistered is returned when the student already holds a
// registration for this course.
var ErrAlreadyRegistered = errors.New("already registered for this course")

// ErrAlreadyInBasket is returned when the course is already in the student's basket.
var ErrAlreadyInBasket = errors.New("course already in basket")

// ErrNotAuthorized is returned when a student touches a record they do not own.
var ErrNotAuthorized = errors.New("not authorized for this record")

// CourseRepository handles persistence for courses.
type CourseRepository struct {
	db *pgxpool.Pool
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *pgxpool.Pool) *CourseRepository {
	return &CourseRepository{db: db}
}

// Create inserts a new course and returns it with a generated UUID.
func (r *CourseRepository) Create(ctx context.Context, req model.CreateCourseRequest) (*model.Course, error) {
	course := &model.Course{
		ID:        uuid.New().String(),
		Name:      req.Name,
		SubjectID: req.SubjectID,
		Credit:    req.Credit,
		Capacity:  req.Capacity,
		Current:   0,
		Timetable: req.Timetable,
		CreatedAt: time.Now().UTC(),
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO courses (id, name, subject_id, credit, capacity, current, timetable, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		course.ID, course.Name, course.SubjectID, course.Credit,
		course.Capacity, course.Current, course.Timetable, course.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert course: %w", err)
	}
	return course, nil
}

// List returns all courses ordered by creation time descending.
func (r *CourseRepository) List(ctx context.Context) ([]model.Course, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, subject_id, credit, capacity, current, timetable, created_at
		 FROM courses
		 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	defer rows.Close()

	var courses []model.Course
	for rows.Next() {
		var c model.Course
		if err := rows.Scan(&c.ID, &c.Name, &c.SubjectID, &c.Credit,
			&c.Capacity, &c.Current, &c.Timetable, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// GetByID returns a single course or ErrCourseNotFound.
func (r *CourseRepository) GetByID(ctx context.Context, id string) (*model.Course, error) {
	var c model.Course
	err := r.db.QueryRow(ctx,
		`SELECT id, name, subject_id, credit, capacity, current, timetable, created_at
		 FROM courses WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.Name, &c.SubjectID, &c.Credit,
		&c.Capacity, &c.Current, &c.Timetable, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("get course: %w", err)
	}
	return &c, nil
}

// IDsWithRegistrations returns the distinct ids of courses that have at least
// one active registration. Reconciliation input.
func (r *CourseRepository) IDsWithRegistrations(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT DISTINCT course_id FROM registrations`,
	)
	if err != nil {
		return nil, fmt.Errorf("list registered course ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan course id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetCurrent overwrites a course's durable registration count. Reconciliation only.
func (r *CourseRepository) SetCurrent(ctx context.Context, id string, current int) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE courses SET current = $2 WHERE id = $1`,
		id, current,
	)
	if err != nil {
		return fmt.Errorf("set course count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCourseNotFound
	}
	return nil
}

// StudentRepository handles persistence for students.
type StudentRepository struct {
	db *pgxpool.Pool
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{db: db}
}

// Create inserts a new student and returns it with a generated UUID.
func (r *StudentRepository) Create(ctx context.Context, req model.CreateStudentRequest) (*model.Student, error) {
	student := &model.Student{
		ID:          uuid.New().String(),
		Name:        req.Name,
		CreditLimit: req.CreditLimit,
		CreatedAt:   time.Now().UTC(),
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO students (id, name, credit_limit, created_at)
		 VALUES ($1, $2, $3, $4)`,
		student.ID, student.Name, student.CreditLimit, student.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert student: %w", err)
	}
	return student, nil
}

// GetByID returns a single student or ErrStudentNotFound.
func (r *StudentRepository) GetByID(ctx context.Context, id string) (*model.Student, error) {
	var s model.Student
	err := r.db.QueryRow(ctx,
		`SELECT id, name, credit_limit, created_at FROM students WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.Name, &s.CreditLimit, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("get student: %w", err)
	}
	return &s, nil
}
