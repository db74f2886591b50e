// Package models defines data structures used throughout the application
package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents an account that owns a profile
type User struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	Email        string         `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string         `json:"-" gorm:"not null"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}

// Profile represents a public link-in-bio page
type Profile struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	UserID    uint           `json:"user_id" gorm:"index;not null"`
	Handle    string         `json:"handle" gorm:"uniqueIndex;not null"`
	Name      string         `json:"name" gorm:"not null"`
	Bio       string         `json:"bio"`
	Links     []Link         `json:"links" gorm:"foreignKey:ProfileID"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// Link represents one outbound link on a profile page
type Link struct {
	ID        string         `json:"id" gorm:"primaryKey"`
	ProfileID uint           `json:"profile_id" gorm:"index;not null"`
	Title     string         `json:"title" gorm:"not null"`
	URL       string         `json:"url" gorm:"not null"`
	Position  int            `json:"position"`
	Clicks    int64          `json:"clicks" gorm:"default:0"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// LoginLockout persists the failure-count state for one account identifier.
// A non-null LockedUntil implies FailedAttempts reached the configured
// maximum.
type LoginLockout struct {
	ID             uint       `json:"id" gorm:"primaryKey"`
	Identifier     string     `json:"identifier" gorm:"uniqueIndex;not null"`
	FailedAttempts int        `json:"failed_attempts" gorm:"default:0"`
	LockedUntil    *time.Time `json:"locked_until"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// LoginRequest represents credentials submitted to the login endpoint
type LoginRequest struct {
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required"`
}

// CreateProfileRequest represents data required to create a profile
type CreateProfileRequest struct {
	UserID uint   `json:"user_id" binding:"required"`
	Handle string `json:"handle" binding:"required,alphanum,min=3,max=32"`
	Name   string `json:"name" binding:"required"`
	Bio    string `json:"bio"`
}

// CreateLinkRequest represents data required to add a link to a profile
type CreateLinkRequest struct {
	Title    string `json:"title" binding:"required"`
	URL      string `json:"url" binding:"required,url"`
	Position int    `json:"position"`
}

// BioSuggestionRequest carries the prompt for the AI bio helper
type BioSuggestionRequest struct {
	Keywords string `json:"keywords" binding:"required,max=200"`
}

// BioSuggestionResponse is what the AI helper returns, possibly degraded
type BioSuggestionResponse struct {
	Suggestion string `json:"suggestion"`
	Degraded   bool   `json:"degraded"`
}

// ErrorResponse represents an error message structure for API responses
type ErrorResponse struct {
	Error string `json:"error"`
}
