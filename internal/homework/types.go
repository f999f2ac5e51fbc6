package homework

import "encoding/json"

// Response is the decoded body of a homework_statuses call.
//
// Homeworks stays raw so the validator can tell an absent key, a null value,
// a non-array and an empty array apart.
type Response struct {
	Homeworks   json.RawMessage `json:"homeworks"`
	CurrentDate *int64          `json:"current_date"`
}

// Task is one homework record. Name and Status are mandatory for parsing;
// the rest is informational.
type Task struct {
	ID              int64   `json:"id,omitempty"`
	Name            *string `json:"homework_name"`
	Status          *string `json:"status"`
	LessonName      string  `json:"lesson_name,omitempty"`
	ReviewerComment string  `json:"reviewer_comment,omitempty"`
	DateUpdated     string  `json:"date_updated,omitempty"`
}
