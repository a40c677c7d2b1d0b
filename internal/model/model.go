// Package model defines the core domain types for the course admission system.
package model

import "time"

// UnlimitedCapacity is the sentinel capacity for courses without a seat limit.
const UnlimitedCapacity = -1

// Course represents a registrable course offering.
type Course struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	SubjectID string    `json:"subject_id"`
	Credit    int       `json:"credit"`
	Capacity  int       `json:"capacity"`
	Current   int       `json:"current"`
	Timetable string    `json:"timetable"`
	CreatedAt time.Time `json:"created_at"`
}

// HasLimit reports whether the course enforces a seat limit.
func (c *Course) HasLimit() bool {
	return c.Capacity != UnlimitedCapacity
}

// Remaining returns the number of available seats, or -1 for unlimited courses.
func (c *Course) Remaining() int {
	if !c.HasLimit() {
		return UnlimitedCapacity
	}
	return c.Capacity - c.Current
}

// IsFull returns true when no seats remain.
func (c *Course) IsFull() bool {
	return c.HasLimit() && c.Current >= c.Capacity
}

// Student represents a registered student account.
type Student struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CreditLimit int       `json:"credit_limit"`
	CreatedAt   time.Time `json:"created_at"`
}

// Registration links a student to a course they are admitted into.
type Registration struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	CourseID  string    `json:"course_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Enrollment pairs a registration with the course it targets.
// It is the snapshot unit the eligibility checks run over.
type Enrollment struct {
	Registration Registration `json:"registration"`
	Course       Course       `json:"course"`
}

// BasketItem is a course a student parked before the registration window.
type BasketItem struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	CourseID  string    `json:"course_id"`
	CreatedAt time.Time `json:"created_at"`
}

// BasketEntry pairs a basket row with the course it references.
type BasketEntry struct {
	Item   BasketItem `json:"item"`
	Course Course     `json:"course"`
}

// CreateCourseRequest is the payload for creating a new course.
type CreateCourseRequest struct {
	Name      string `json:"name"`
	SubjectID string `json:"subject_id"`
	Credit    int    `json:"credit"`
	Capacity  int    `json:"capacity"`
	Timetable string `json:"timetable"`
}

// CreateStudentRequest is the payload for creating a new student.
type CreateStudentRequest struct {
	Name        string `json:"name"`
	CreditLimit int    `json:"credit_limit"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
