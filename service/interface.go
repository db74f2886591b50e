package service

import (
	"context"

	"linkhub.app/models"
)

// ProfileServiceInterface defines operations for profiles and links
type ProfileServiceInterface interface {
	GetProfile(handle string) (*models.Profile, error)
	CreateProfile(req *models.CreateProfileRequest) (*models.Profile, error)
	AddLink(handle string, req *models.CreateLinkRequest) (*models.Link, error)
	RecordClick(linkID string) (string, error)
}

// AuthServiceInterface defines authentication operations
type AuthServiceInterface interface {
	Login(req *models.LoginRequest, clientIP string) (*models.User, error)
	Signup(req *models.LoginRequest) (*models.User, error)
}

// AIServiceInterface defines the AI bio suggestion operation
type AIServiceInterface interface {
	SuggestBio(ctx context.Context, keywords string) (*models.BioSuggestionResponse, error)
}
