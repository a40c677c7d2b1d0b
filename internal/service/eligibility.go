package service

import (
	"errors"
	"fmt"

	"github.com/hyunwoo-cho/course-reg-and-admission/internal/model"
	"github.com/hyunwoo-cho/course-reg-and-admission/internal/repository"
	"github.com/hyunwoo-cho/course-reg-and-admission/internal/timetable"
)

// ErrSubjectAlreadyRegistered is returned when the student already holds a
// registration for a course with the same subject.
var ErrSubjectAlreadyRegistered = errors.New("subject already registered")

// ErrCreditExceeded is returned when admission would exceed the student's
// credit limit.
var ErrCreditExceeded = errors.New("credit limit exceeded")

// ErrTimeConflict is returned when the course's timetable overlaps an
// existing registration.
var ErrTimeConflict = errors.New("course time conflicts with an existing registration")

// CheckEligibility decides whether the student may be admitted to the course
// given a snapshot of their current enrollments. Checks short-circuit in a
// fixed order, so the first violated rule determines the reported error.
//
// The capacity check at the end is advisory only: it fails fast on a visibly
// full course, but the race-free gate is the seat counter decrement (or the
// locked durable re-check) that follows. No mutation happens here.
func CheckEligibility(student *model.Student, course *model.Course, enrolled []model.Enrollment) error {
	for _, e := range enrolled {
		if e.Course.SubjectID == course.SubjectID {
			return ErrSubjectAlreadyRegistered
		}
	}

	total := course.Credit
	for _, e := range enrolled {
		total += e.Course.Credit
	}
	if total > student.CreditLimit {
		return ErrCreditExceeded
	}

	candidate, err := timetable.Parse(course.Timetable)
	if err != nil {
		return fmt.Errorf("course %s: %w", course.ID, err)
	}
	var taken timetable.Mask
	for _, e := range enrolled {
		m, err := timetable.Parse(e.Course.Timetable)
		if err != nil {
			return fmt.Errorf("enrolled course %s: %w", e.Course.ID, err)
		}
		taken = taken.Union(m)
	}
	if candidate.Overlaps(taken) {
		return ErrTimeConflict
	}

	if course.IsFull() {
		return repository.ErrCourseFull
	}
	return nil
}
