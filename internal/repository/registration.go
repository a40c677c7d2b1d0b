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

// RegistrationRepository handles persistence for registrations.
type RegistrationRepository struct {
	db *pgxpool.Pool
}

// NewRegistrationRepository constructs a RegistrationRepository.
func NewRegistrationRepository(db *pgxpool.Pool) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// Admit records a registration and bumps the course's durable count in one
// transaction.
//
// The course row is locked with SELECT ... FOR UPDATE, so concurrent admits
// for the same course serialize on the row lock and the capacity re-check
// below sees the latest committed count. The seat counter is the fast gate in
// front of this; the re-check here keeps the durable invariant
// current <= capacity even when the counter has drifted, and is the only gate
// when the fast store is down.
func (r *RegistrationRepository) Admit(ctx context.Context, studentID, courseID string) (*model.Registration, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	// Lock the course row for the duration of the transaction.
	var capacity, current int
	err = tx.QueryRow(ctx,
		`SELECT capacity, current
		 FROM courses
		 WHERE id = $1
		 FOR UPDATE`,
		courseID,
	).Scan(&capacity, &current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("lock course row: %w", err)
	}

	// One registration per (student, course) pair.
	var dup int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations WHERE student_id = $1 AND course_id = $2`,
		studentID, courseID,
	).Scan(&dup)
	if err != nil {
		return nil, fmt.Errorf("check duplicate: %w", err)
	}
	if dup > 0 {
		err = ErrAlreadyRegistered
		return nil, err
	}

	// Re-verify capacity under the row lock.
	if capacity != model.UnlimitedCapacity && current >= capacity {
		err = ErrCourseFull
		return nil, err
	}

	reg := &model.Registration{
		ID:        uuid.New().String(),
		StudentID: studentID,
		CourseID:  courseID,
		CreatedAt: time.Now().UTC(),
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO registrations (id, student_id, course_id, created_at)
		 VALUES ($1, $2, $3, $4)`,
		reg.ID, reg.StudentID, reg.CourseID, reg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert registration: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE courses SET current = current + 1 WHERE id = $1`,
		courseID,
	)
	if err != nil {
		return nil, fmt.Errorf("increment course count: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return reg, nil
}

// Withdraw deletes a registration owned by studentID and decrements the
// course's durable count in one transaction. It returns the id of the course
// the registration targeted so the caller can release the seat counter.
func (r *RegistrationRepository) Withdraw(ctx context.Context, registrationID, studentID string) (string, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var owner, courseID string
	err = tx.QueryRow(ctx,
		`SELECT student_id, course_id FROM registrations WHERE id = $1 FOR UPDATE`,
		registrationID,
	).Scan(&owner, &courseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrRegistrationNotFound
		}
		return "", fmt.Errorf("lock registration row: %w", err)
	}
	if owner != studentID {
		err = ErrNotAuthorized
		return "", err
	}

	_, err = tx.Exec(ctx,
		`DELETE FROM registrations WHERE id = $1`,
		registrationID,
	)
	if err != nil {
		return "", fmt.Errorf("delete registration: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE courses SET current = current - 1 WHERE id = $1`,
		courseID,
	)
	if err != nil {
		return "", fmt.Errorf("decrement course count: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit transaction: %w", err)
	}

	return courseID, nil
}

// ListByStudent returns the student's registrations joined with their courses,
// oldest first.
func (r *RegistrationRepository) ListByStudent(ctx context.Context, studentID string) ([]model.Enrollment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT r.id, r.student_id, r.course_id, r.created_at,
		        c.id, c.name, c.subject_id, c.credit, c.capacity, c.current, c.timetable, c.created_at
		 FROM registrations r
		 JOIN courses c ON c.id = r.course_id
		 WHERE r.student_id = $1
		 ORDER BY r.created_at ASC`,
		studentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var enrollments []model.Enrollment
	for rows.Next() {
		var e model.Enrollment
		if err := rows.Scan(
			&e.Registration.ID, &e.Registration.StudentID, &e.Registration.CourseID, &e.Registration.CreatedAt,
			&e.Course.ID, &e.Course.Name, &e.Course.SubjectID, &e.Course.Credit,
			&e.Course.Capacity, &e.Course.Current, &e.Course.Timetable, &e.Course.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan enrollment: %w", err)
		}
		enrollments = append(enrollments, e)
	}
	return enrollments, rows.Err()
}

// CountByCourse returns the number of active registrations for a course.
func (r *RegistrationRepository) CountByCourse(ctx context.Context, courseID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations WHERE course_id = $1`,
		courseID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return n, nil
}
