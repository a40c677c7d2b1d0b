package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyunwoo-cho/course-reg-and-admission/internal/repository"
)

// ErrOrphanCourse is returned when a registration references a course that no
// longer exists. Integrity signal, never swallowed.
var ErrOrphanCourse = errors.New("registration references a missing course")

// ErrCountMismatch is returned when the recomputed registration count exceeds
// a course's capacity. It indicates a prior over-admission and must be
// surfaced, not repaired silently.
var ErrCountMismatch = errors.New("registration count exceeds course capacity")

// Reconcile recomputes the authoritative remaining capacity for every course
// with at least one active registration, writes it back to the durable course
// record, and reseeds the seat counter. Run when the fast store comes back
// after an outage, or periodically as a repair job.
func (s *AdmissionService) Reconcile(ctx context.Context) error {
	ids, err := s.courses.IDsWithRegistrations(ctx)
	if err != nil {
		return fmt.Errorf("collect course ids: %w", err)
	}

	for _, id := range ids {
		course, err := s.courses.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrCourseNotFound) {
				return fmt.Errorf("%w: course %s", ErrOrphanCourse, id)
			}
			return fmt.Errorf("load course %s: %w", id, err)
		}

		n, err := s.regs.CountByCourse(ctx, id)
		if err != nil {
			return fmt.Errorf("count registrations for %s: %w", id, err)
		}
		if course.HasLimit() && n > course.Capacity {
			return fmt.Errorf("%w: course %s has %d registrations for capacity %d",
				ErrCountMismatch, id, n, course.Capacity)
		}

		if err := s.courses.SetCurrent(ctx, id, n); err != nil {
			return fmt.Errorf("repair durable count for %s: %w", id, err)
		}
		if course.HasLimit() {
			if err := s.counter.Reseed(ctx, id, int64(course.Capacity-n)); err != nil {
				return fmt.Errorf("reseed counter for %s: %w", id, err)
			}
		}
		s.log.Info("reconciled course",
			"course_id", id, "registrations", n, "capacity", course.Capacity)
	}
	return nil
}
