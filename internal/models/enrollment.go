package models

// EnrollmentResult reports the membership of a client after an enroll call.
type EnrollmentResult struct {
	Program Program
	// Created is false when the pair already existed.
	Created bool
	// EnrolledPrograms lists program names in enrollment order.
	EnrolledPrograms []string
}
