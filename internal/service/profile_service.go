package service

import (
	"context"
	"time"

	"github.com/kjlinux/pourier-back/internal/authz"
	"github.com/kjlinux/pourier-back/internal/domain"
	"github.com/kjlinux/pourier-back/internal/events"
	"go.uber.org/zap"
)

type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*domain.PhotographerProfile, error)
	UpdateProfile(ctx context.Context, profile *domain.PhotographerProfile, expectedVersion int64) error
}

// ProfileService runs the photographer approval workflow. An approved
// profile is what unlocks listing creation in the authz policy.
type ProfileService struct {
	profiles   ProfileStore
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

func NewProfileService(profiles ProfileStore, dispatcher events.Dispatcher, logger *zap.Logger) *ProfileService {
	return &ProfileService{
		profiles:   profiles,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*domain.PhotographerProfile, error) {
	return s.profiles.GetProfile(ctx, userID)
}

func (s *ProfileService) Approve(ctx context.Context, p authz.Principal, userID string) (*domain.PhotographerProfile, error) {
	return s.review(ctx, p, userID, true)
}

func (s *ProfileService) Reject(ctx context.Context, p authz.Principal, userID string) (*domain.PhotographerProfile, error) {
	return s.review(ctx, p, userID, false)
}

func (s *ProfileService) review(ctx context.Context, p authz.Principal, userID string, approve bool) (*domain.PhotographerProfile, error) {
	if err := authz.Allow(p, authz.Resource{}, authz.ActionReviewProfile); err != nil {
		return nil, err
	}

	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	version := profile.Version
	now := s.now().UTC()
	kind := events.KindPhotographerApproved
	if approve {
		err = profile.Approve(p.UserID, now)
	} else {
		err = profile.Reject(p.UserID, now)
		kind = events.KindPhotographerRejected
	}
	if err != nil {
		return nil, err
	}
	if err := s.profiles.UpdateProfile(ctx, profile, version); err != nil {
		return nil, err
	}

	if err := s.dispatcher.Dispatch(ctx, kind, profile.UserID, events.ProfileEventPayload{
		UserID:     profile.UserID,
		Status:     string(profile.Status),
		ReviewedBy: profile.ReviewedBy,
	}); err != nil {
		s.logger.Warn("Event dispatch failed",
			zap.String("kind", kind),
			zap.String("user_id", profile.UserID),
			zap.Error(err))
	}

	s.logger.Info("Photographer profile reviewed",
		zap.String("user_id", profile.UserID),
		zap.String("status", string(profile.Status)),
		zap.String("reviewed_by", profile.ReviewedBy))
	return profile, nil
}
