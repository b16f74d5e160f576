package model

import "time"

// Problem is a contest problem backed by an archived task package.
type Problem struct {
	Name          string    `json:"name"`
	ArchiveDigest string    `json:"archive_digest"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// User is a contest participant. TokenHash is never serialized.
type User struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	TokenHash   string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// Submission is one user upload against a problem. Files are loaded on
// demand, list queries leave them nil.
type Submission struct {
	ID          string           `json:"id"`
	UserID      string           `json:"user_id"`
	ProblemName string           `json:"problem_name"`
	CreatedAt   time.Time        `json:"created_at"`
	Files       []SubmissionFile `json:"files,omitempty"`
}

// SubmissionFile is one uploaded file, tagged with the form field it came
// from and the file type the submitter picked.
type SubmissionFile struct {
	FieldID string `json:"field_id"`
	TypeID  string `json:"type_id"`
	Name    string `json:"name"`
	Content []byte `json:"-"`
}
