package repository

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"linkhub.app/database"
	apperrors "linkhub.app/errors"
	"linkhub.app/lockout"
	"linkhub.app/metrics"
	"linkhub.app/models"
	"linkhub.app/pkg/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.InitTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })
	return db
}

func testObservability() (*metrics.Registry, *logger.Logger) {
	return metrics.NewRegistry(), logger.NewWithWriter(io.Discard, slog.LevelError)
}

func seedProfile(t *testing.T, db *gorm.DB) *models.Profile {
	t.Helper()

	user := models.User{Email: "alice@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(&user).Error)

	profile := models.Profile{
		UserID: user.ID,
		Handle: "alice",
		Name:   "Alice",
		Bio:    "hello",
	}
	require.NoError(t, db.Create(&profile).Error)
	return &profile
}

func TestProfileRepositoryFindByHandle(t *testing.T) {
	db := setupTestDB(t)
	registry, log := testObservability()
	repo := NewProfileRepository(db, registry, log)

	profile := seedProfile(t, db)
	require.NoError(t, repo.CreateLink(&models.Link{ProfileID: profile.ID, Title: "Blog", URL: "https://blog.example.com", Position: 2}))
	require.NoError(t, repo.CreateLink(&models.Link{ProfileID: profile.ID, Title: "Shop", URL: "https://shop.example.com", Position: 1}))

	found, err := repo.FindByHandle("alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", found.Handle)

	// Links come back ordered by position.
	require.Len(t, found.Links, 2)
	assert.Equal(t, "Shop", found.Links[0].Title)
	assert.Equal(t, "Blog", found.Links[1].Title)
}

func TestProfileRepositoryFindByHandleNotFound(t *testing.T) {
	db := setupTestDB(t)
	registry, log := testObservability()
	repo := NewProfileRepository(db, registry, log)

	_, err := repo.FindByHandle("nobody")
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestProfileRepositoryCreate(t *testing.T) {
	db := setupTestDB(t)
	registry, log := testObservability()
	repo := NewProfileRepository(db, registry, log)

	profile := &models.Profile{UserID: 1, Handle: "bob", Name: "Bob"}
	require.NoError(t, repo.Create(profile))
	assert.NotZero(t, profile.ID)

	// The handle is unique.
	err := repo.Create(&models.Profile{UserID: 2, Handle: "bob", Name: "Other"})
	assert.Error(t, err)
}

func TestProfileRepositoryCreateLinkAssignsID(t *testing.T) {
	db := setupTestDB(t)
	registry, log := testObservability()
	repo := NewProfileRepository(db, registry, log)

	profile := seedProfile(t, db)
	link := &models.Link{ProfileID: profile.ID, Title: "Blog", URL: "https://blog.example.com"}
	require.NoError(t, repo.CreateLink(link))
	assert.NotEmpty(t, link.ID)
}

func TestProfileRepositoryIncrementClicks(t *testing.T) {
	db := setupTestDB(t)
	registry, log := testObservability()
	repo := NewProfileRepository(db, registry, log)

	profile := seedProfile(t, db)
	link := &models.Link{ProfileID: profile.ID, Title: "Blog", URL: "https://blog.example.com"}
	require.NoError(t, repo.CreateLink(link))

	require.NoError(t, repo.IncrementClicks(link.ID))
	require.NoError(t, repo.IncrementClicks(link.ID))

	found, err := repo.FindLinkByID(link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), found.Clicks)
}

func TestProfileRepositoryFindLinkByIDNotFound(t *testing.T) {
	db := setupTestDB(t)
	registry, log := testObservability()
	repo := NewProfileRepository(db, registry, log)

	_, err := repo.FindLinkByID("missing")
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestUserRepositoryFindByEmail(t *testing.T) {
	db := setupTestDB(t)
	registry, log := testObservability()
	repo := NewUserRepository(db, registry, log)

	require.NoError(t, repo.Create(&models.User{Email: "alice@example.com", PasswordHash: "hash"}))

	t.Run("existing user", func(t *testing.T) {
		user, err := repo.FindByEmail("alice@example.com")
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "alice@example.com", user.Email)
	})

	t.Run("unknown user returns nil without error", func(t *testing.T) {
		user, err := repo.FindByEmail("nobody@example.com")
		require.NoError(t, err)
		assert.Nil(t, user)
	})
}

func TestLockoutRepositoryRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	registry, log := testObservability()
	repo := NewLockoutRepository(db, registry, log)

	t.Run("unknown identifier yields zero state", func(t *testing.T) {
		state, err := repo.GetState("fresh@example.com")
		require.NoError(t, err)
		assert.Equal(t, lockout.State{}, state)
	})

	t.Run("save and load", func(t *testing.T) {
		until := time.Now().Add(30 * time.Minute).Truncate(time.Second)
		require.NoError(t, repo.SaveState("victim@example.com", lockout.State{
			FailedAttempts: 5,
			LockedUntil:    &until,
		}))

		state, err := repo.GetState("victim@example.com")
		require.NoError(t, err)
		assert.Equal(t, 5, state.FailedAttempts)
		require.NotNil(t, state.LockedUntil)
		assert.True(t, until.Equal(*state.LockedUntil))
	})

	t.Run("upsert overwrites prior state", func(t *testing.T) {
		require.NoError(t, repo.SaveState("victim@example.com", lockout.State{}))

		state, err := repo.GetState("victim@example.com")
		require.NoError(t, err)
		assert.Equal(t, 0, state.FailedAttempts)
		assert.Nil(t, state.LockedUntil)
	})
}

func TestLockoutRepositoryImplementsStore(t *testing.T) {
	var _ lockout.Store = (*LockoutRepository)(nil)
}

func TestLockoutRepositoryBacksTracker(t *testing.T) {
	db := setupTestDB(t)
	registry, log := testObservability()
	repo := NewLockoutRepository(db, registry, log)

	tracker := lockout.NewTracker(repo, lockout.Config{
		MaxAttempts:       3,
		BaseDuration:      30 * time.Minute,
		IncrementDuration: 15 * time.Minute,
	})

	for i := 0; i < 2; i++ {
		status, err := tracker.RecordFailure("user@example.com")
		require.NoError(t, err)
		assert.False(t, status.IsLocked)
	}

	status, err := tracker.RecordFailure("user@example.com")
	require.NoError(t, err)
	assert.True(t, status.IsLocked)

	// State survives a fresh tracker over the same database.
	fresh := lockout.NewTracker(repo, lockout.Config{MaxAttempts: 3})
	status, err = fresh.CheckStatus("user@example.com")
	require.NoError(t, err)
	assert.True(t, status.IsLocked)
}
