package models

import (
	"errors"
	"time"
)

// ErrProfileNotFound is returned when a profile is not found
var ErrProfileNotFound = errors.New("profile not found")

// Profile is a candidate profile row from the knowledge base.
type Profile struct {
	ID        int64     `json:"id"`
	FullName  string    `json:"full_name"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Email     string    `json:"email,omitempty"`
	Location  string    `json:"location,omitempty"`
	GitHubURL string    `json:"github_url,omitempty"`
	CVPath    string    `json:"cv_path,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Experience is a single work-experience record belonging to a profile.
type Experience struct {
	ID          int64      `json:"id"`
	ProfileID   int64      `json:"profile_id"`
	Role        string     `json:"role"`
	Company     string     `json:"company"`
	Description string     `json:"description,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
}

// Project is a portfolio project record belonging to a profile.
type Project struct {
	ID          int64    `json:"id"`
	ProfileID   int64    `json:"profile_id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	TechStack   []string `json:"tech_stack,omitempty"`
	RepoURL     string   `json:"repo_url,omitempty"`
}

// ConversationTurn is one exchange in a chat session, persisted for history.
type ConversationTurn struct {
	Role      string    `json:"role"` // user or assistant
	Content   string    `json:"content"`
	Intent    string    `json:"intent,omitempty"`
	Language  string    `json:"language,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
