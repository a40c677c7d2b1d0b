package service

import (
	"context"

	"github.com/hyunwoo-cho/course-reg-and-admission/internal/model"
)

// BasketService lets students park courses before the registration window.
// Baskets never touch the seat counter; admission happens through
// AdmissionService when the window opens.
type BasketService struct {
	students StudentStore
	courses  CourseStore
	baskets  BasketStore
}

// NewBasketService constructs a BasketService.
func NewBasketService(students StudentStore, courses CourseStore, baskets BasketStore) *BasketService {
	return &BasketService{students: students, courses: courses, baskets: baskets}
}

// Add puts a course into the student's basket.
func (s *BasketService) Add(ctx context.Context, courseID, studentID string) (*model.BasketItem, error) {
	if _, err := s.students.GetByID(ctx, studentID); err != nil {
		return nil, err
	}
	if _, err := s.courses.GetByID(ctx, courseID); err != nil {
		return nil, err
	}
	return s.baskets.Add(ctx, studentID, courseID)
}

// List returns the student's basket in insertion order.
func (s *BasketService) List(ctx context.Context, studentID string) ([]model.BasketEntry, error) {
	if _, err := s.students.GetByID(ctx, studentID); err != nil {
		return nil, err
	}
	return s.baskets.ListByStudent(ctx, studentID)
}

// Remove deletes a basket item owned by the student.
func (s *BasketService) Remove(ctx context.Context, basketID, studentID string) error {
	return s.baskets.Remove(ctx, basketID, studentID)
}
