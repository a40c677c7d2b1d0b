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

// BasketRepository handles persistence for pre-registration baskets.
type BasketRepository struct {
	db *pgxpool.Pool
}

// NewBasketRepository constructs a BasketRepository.
func NewBasketRepository(db *pgxpool.Pool) *BasketRepository {
	return &BasketRepository{db: db}
}

// Add puts a course into the student's basket.
func (r *BasketRepository) Add(ctx context.Context, studentID, courseID string) (*model.BasketItem, error) {
	var dup int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM baskets WHERE student_id = $1 AND course_id = $2`,
		studentID, courseID,
	).Scan(&dup)
	if err != nil {
		return nil, fmt.Errorf("check basket duplicate: %w", err)
	}
	if dup > 0 {
		return nil, ErrAlreadyInBasket
	}

	item := &model.BasketItem{
		ID:        uuid.New().String(),
		StudentID: studentID,
		CourseID:  courseID,
		CreatedAt: time.Now().UTC(),
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO baskets (id, student_id, course_id, created_at)
		 VALUES ($1, $2, $3, $4)`,
		item.ID, item.StudentID, item.CourseID, item.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert basket item: %w", err)
	}
	return item, nil
}

// ListByStudent returns the student's basket joined with course details,
// oldest first.
func (r *BasketRepository) ListByStudent(ctx context.Context, studentID string) ([]model.BasketEntry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT b.id, b.student_id, b.course_id, b.created_at,
		        c.id, c.name, c.subject_id, c.credit, c.capacity, c.current, c.timetable, c.created_at
		 FROM baskets b
		 JOIN courses c ON c.id = b.course_id
		 WHERE b.student_id = $1
		 ORDER BY b.created_at ASC`,
		studentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list basket: %w", err)
	}
	defer rows.Close()

	var entries []model.BasketEntry
	for rows.Next() {
		var e model.BasketEntry
		if err := rows.Scan(
			&e.Item.ID, &e.Item.StudentID, &e.Item.CourseID, &e.Item.CreatedAt,
			&e.Course.ID, &e.Course.Name, &e.Course.SubjectID, &e.Course.Credit,
			&e.Course.Capacity, &e.Course.Current, &e.Course.Timetable, &e.Course.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan basket entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Remove deletes a basket item owned by studentID.
func (r *BasketRepository) Remove(ctx context.Context, basketID, studentID string) error {
	var owner string
	err := r.db.QueryRow(ctx,
		`SELECT student_id FROM baskets WHERE id = $1`,
		basketID,
	).Scan(&owner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrBasketNotFound
		}
		return fmt.Errorf("get basket item: %w", err)
	}
	if owner != studentID {
		return ErrNotAuthorized
	}

	_, err = r.db.Exec(ctx, `DELETE FROM baskets WHERE id = $1`, basketID)
	if err != nil {
		return fmt.Errorf("delete basket item: %w", err)
	}
	return nil
}
