// Package service implements the application's business logic
package service

import (
	"encoding/json"
	"fmt"
	"time"

	"linkhub.app/cache"
	"linkhub.app/models"
	"linkhub.app/pkg/logger"
	"linkhub.app/repository"
)

// ProfileService serves profile pages with cache-aside reads. Caching is a
// performance optimization only: any cache failure degrades to a database
// read, never to a request error.
type ProfileService struct {
	repo     *repository.ProfileRepository
	store    cache.Store
	cacheTTL time.Duration
	log      *logger.Logger
}

// NewProfileService creates a new profile service
func NewProfileService(repo *repository.ProfileRepository, store cache.Store, cacheTTL time.Duration, log *logger.Logger) *ProfileService {
	return &ProfileService{
		repo:     repo,
		store:    store,
		cacheTTL: cacheTTL,
		log:      log,
	}
}

func profileCacheKey(handle string) string {
	return fmt.Sprintf("profile:%s", handle)
}

// GetProfile checks the cache, falls back to the database on a miss, and
// stores the result for subsequent reads.
func (s *ProfileService) GetProfile(handle string) (*models.Profile, error) {
	key := profileCacheKey(handle)

	if data, found := s.store.Get(key); found {
		var profile models.Profile
		if err := json.Unmarshal(data, &profile); err == nil {
			return &profile, nil
		}
		// A corrupt entry is treated as a miss and dropped.
		s.log.Warn("dropping undecodable cache entry", map[string]interface{}{"key": key})
		s.store.Delete(key)
	}

	profile, err := s.repo.FindByHandle(handle)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(profile); err == nil {
		s.store.Set(key, data, s.cacheTTL)
	}
	return profile, nil
}

// CreateProfile persists a new profile page.
func (s *ProfileService) CreateProfile(req *models.CreateProfileRequest) (*models.Profile, error) {
	profile := &models.Profile{
		UserID: req.UserID,
		Handle: req.Handle,
		Name:   req.Name,
		Bio:    req.Bio,
	}
	if err := s.repo.Create(profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// AddLink appends a link to the profile and invalidates its cached page.
func (s *ProfileService) AddLink(handle string, req *models.CreateLinkRequest) (*models.Link, error) {
	profile, err := s.repo.FindByHandle(handle)
	if err != nil {
		return nil, err
	}

	link := &models.Link{
		ProfileID: profile.ID,
		Title:     req.Title,
		URL:       req.URL,
		Position:  req.Position,
	}
	if err := s.repo.CreateLink(link); err != nil {
		return nil, err
	}

	s.store.Delete(profileCacheKey(handle))
	return link, nil
}

// RecordClick resolves a link for redirecting and bumps its counter. A
// failed counter update is logged but does not block the redirect.
func (s *ProfileService) RecordClick(linkID string) (string, error) {
	link, err := s.repo.FindLinkByID(linkID)
	if err != nil {
		return "", err
	}

	if err := s.repo.IncrementClicks(linkID); err != nil {
		s.log.Warn("click counter update failed", map[string]interface{}{
			"linkId": linkID,
			"error":  err.Error(),
		})
	}
	return link.URL, nil
}
