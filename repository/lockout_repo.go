package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	apperrors "linkhub.app/errors"
	"linkhub.app/lockout"
	"linkhub.app/metrics"
	"linkhub.app/models"
	"linkhub.app/pkg/logger"
)

// LockoutRepository persists lockout state, implementing lockout.Store.
type LockoutRepository struct {
	db *gorm.DB
	instrumented
}

// NewLockoutRepository creates a new repository for lockout state
func NewLockoutRepository(db *gorm.DB, registry *metrics.Registry, log *logger.Logger) *LockoutRepository {
	return &LockoutRepository{db: db, instrumented: instrumented{registry: registry, log: log}}
}

// GetState returns the zero state for identifiers with no row yet.
func (r *LockoutRepository) GetState(identifier string) (lockout.State, error) {
	start := time.Now()

	var row models.LoginLockout
	err := r.db.Where("identifier = ?", identifier).First(&row).Error
	r.record("select", "login_lockouts", start, err)

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return lockout.State{}, nil
		}
		return lockout.State{}, apperrors.NewDatabaseError("load lockout state", err)
	}

	return lockout.State{
		FailedAttempts: row.FailedAttempts,
		LockedUntil:    row.LockedUntil,
	}, nil
}

// SaveState upserts the row for identifier.
func (r *LockoutRepository) SaveState(identifier string, state lockout.State) error {
	start := time.Now()

	row := models.LoginLockout{
		Identifier:     identifier,
		FailedAttempts: state.FailedAttempts,
		LockedUntil:    state.LockedUntil,
		UpdatedAt:      time.Now(),
	}
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "identifier"}},
		DoUpdates: clause.AssignmentColumns([]string{"failed_attempts", "locked_until", "updated_at"}),
	}).Create(&row).Error
	r.record("upsert", "login_lockouts", start, err)

	if err != nil {
		return apperrors.NewDatabaseError("save lockout state", err)
	}
	return nil
}
