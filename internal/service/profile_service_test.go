package service

import (
	"context"
	"testing"
	"time"

	"github.com/kjlinux/pourier-back/internal/domain"
	"github.com/kjlinux/pourier-back/internal/events"
	"github.com/kjlinux/pourier-back/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newProfileFixture(t *testing.T) (*ProfileService, *repository.MemoryProfileStore, *recordingDispatcher) {
	t.Helper()
	store := repository.NewMemoryProfileStore()
	store.PutProfile(domain.PhotographerProfile{
		UserID:      "ph-1",
		DisplayName: "Moussa K.",
		Status:      domain.ProfileStatusPending,
		Version:     1,
		CreatedAt:   time.Now().UTC(),
	})
	dispatcher := &recordingDispatcher{}
	return NewProfileService(store, dispatcher, zap.NewNop()), store, dispatcher
}

func TestApproveProfile(t *testing.T) {
	svc, _, dispatcher := newProfileFixture(t)

	profile, err := svc.Approve(context.Background(), admin, "ph-1")
	require.NoError(t, err)

	assert.Equal(t, domain.ProfileStatusApproved, profile.Status)
	assert.Equal(t, "admin-1", profile.ReviewedBy)
	assert.NotNil(t, profile.ReviewedAt)
	assert.Equal(t, 1, dispatcher.count(events.KindPhotographerApproved))
}

func TestRejectProfile(t *testing.T) {
	svc, _, dispatcher := newProfileFixture(t)

	profile, err := svc.Reject(context.Background(), admin, "ph-1")
	require.NoError(t, err)

	assert.Equal(t, domain.ProfileStatusRejected, profile.Status)
	assert.Equal(t, 1, dispatcher.count(events.KindPhotographerRejected))
}

func TestReviewRequiresAdmin(t *testing.T) {
	svc, _, _ := newProfileFixture(t)

	_, err := svc.Approve(context.Background(), buyer, "ph-1")
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestReviewDecisionIsTerminal(t *testing.T) {
	svc, _, _ := newProfileFixture(t)

	_, err := svc.Approve(context.Background(), admin, "ph-1")
	require.NoError(t, err)

	_, err = svc.Reject(context.Background(), admin, "ph-1")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestReviewUnknownProfile(t *testing.T) {
	svc, _, _ := newProfileFixture(t)

	_, err := svc.Approve(context.Background(), admin, "missing")
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
}
