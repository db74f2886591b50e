// Package repository implements data access layer for the application
package repository

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	apperrors "linkhub.app/errors"
	"linkhub.app/metrics"
	"linkhub.app/models"
	"linkhub.app/pkg/logger"
)

// instrumented carries the shared observability handles for repositories.
type instrumented struct {
	registry *metrics.Registry
	log      *logger.Logger
}

func (i instrumented) record(operation, table string, start time.Time, err error) {
	duration := time.Since(start)
	i.registry.RecordDBQuery(operation, table, duration)
	i.log.LogDatabase(operation, table, duration, err)
}

// ProfileRepository handles data access operations for profiles and links
type ProfileRepository struct {
	db *gorm.DB
	instrumented
}

// NewProfileRepository creates a new repository for profile data
func NewProfileRepository(db *gorm.DB, registry *metrics.Registry, log *logger.Logger) *ProfileRepository {
	return &ProfileRepository{db: db, instrumented: instrumented{registry: registry, log: log}}
}

// FindByHandle retrieves a profile with its links. Returns a NotFoundError
// when no profile exists for the handle.
func (r *ProfileRepository) FindByHandle(handle string) (*models.Profile, error) {
	start := time.Now()

	var profile models.Profile
	err := r.db.Preload("Links", func(db *gorm.DB) *gorm.DB {
		return db.Order("position asc")
	}).Where("handle = ?", handle).First(&profile).Error
	r.record("select", "profiles", start, err)

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("profile not found")
		}
		return nil, apperrors.NewDatabaseError("find profile by handle", err)
	}
	return &profile, nil
}

// Create persists a new profile
func (r *ProfileRepository) Create(profile *models.Profile) error {
	start := time.Now()
	err := r.db.Create(profile).Error
	r.record("insert", "profiles", start, err)

	if err != nil {
		return apperrors.NewDatabaseError("create profile", err)
	}
	return nil
}

// CreateLink adds a link to a profile, assigning its ID
func (r *ProfileRepository) CreateLink(link *models.Link) error {
	if link.ID == "" {
		link.ID = uuid.NewString()
	}

	start := time.Now()
	err := r.db.Create(link).Error
	r.record("insert", "links", start, err)

	if err != nil {
		return apperrors.NewDatabaseError("create link", err)
	}
	return nil
}

// FindLinkByID retrieves one link for redirecting
func (r *ProfileRepository) FindLinkByID(id string) (*models.Link, error) {
	start := time.Now()

	var link models.Link
	err := r.db.Where("id = ?", id).First(&link).Error
	r.record("select", "links", start, err)

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("link not found")
		}
		return nil, apperrors.NewDatabaseError("find link", err)
	}
	return &link, nil
}

// IncrementClicks bumps the click counter for a link
func (r *ProfileRepository) IncrementClicks(id string) error {
	start := time.Now()
	err := r.db.Model(&models.Link{}).Where("id = ?", id).
		UpdateColumn("clicks", gorm.Expr("clicks + 1")).Error
	r.record("update", "links", start, err)

	if err != nil {
		return apperrors.NewDatabaseError("increment link clicks", err)
	}
	return nil
}

// UserRepository handles data access operations for user accounts
type UserRepository struct {
	db *gorm.DB
	instrumented
}

// NewUserRepository creates a new repository for user data
func NewUserRepository(db *gorm.DB, registry *metrics.Registry, log *logger.Logger) *UserRepository {
	return &UserRepository{db: db, instrumented: instrumented{registry: registry, log: log}}
}

// FindByEmail returns (nil, nil) when no user exists; callers must not let
// that difference reach the client.
func (r *UserRepository) FindByEmail(email string) (*models.User, error) {
	start := time.Now()

	var user models.User
	err := r.db.Where("email = ?", email).First(&user).Error
	r.record("select", "users", start, err)

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.NewDatabaseError("find user by email", err)
	}
	return &user, nil
}

// Create persists a new user
func (r *UserRepository) Create(user *models.User) error {
	start := time.Now()
	err := r.db.Create(user).Error
	r.record("insert", "users", start, err)

	if err != nil {
		return apperrors.NewDatabaseError("create user", err)
	}
	return nil
}
