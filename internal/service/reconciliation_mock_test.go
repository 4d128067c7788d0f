package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"identityrecon/internal/models"
	"identityrecon/internal/service"
	"identityrecon/internal/store"
	"identityrecon/internal/store/mocks"
)

func TestIdentifyValidationSkipsStore(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	svc := service.NewReconciliationService(st)

	_, err := svc.Identify(context.Background(), models.IdentifyRequest{Email: ptr("   ")})
	require.ErrorIs(t, err, service.ErrEmailOrPhoneRequired)
}

func TestIdentifyNoOverlapInsertsOutsideTransaction(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	svc := service.NewReconciliationService(st)
	ctx := context.Background()

	gomock.InOrder(
		st.EXPECT().FindByEmailOrPhone(ctx, nil, ptr("42")).Return(nil, nil),
		st.EXPECT().InsertContact(ctx, nil, ptr("42"), models.LinkPrimary, nil).
			Return(&models.Contact{ID: 7, PhoneNumber: ptr("42"), LinkPrecedence: models.LinkPrimary}, nil),
	)

	resp, err := svc.Identify(ctx, req("", "42"))
	require.NoError(t, err)
	assert.Equal(t, int64(7), resp.Contact.PrimaryContactID)
	assert.Equal(t, []string{}, resp.Contact.Emails)
	assert.Equal(t, []string{"42"}, resp.Contact.PhoneNumbers)
}

func TestIdentifyWrapsStorageErrors(t *testing.T) {
	errDown := errors.New("connection refused")

	t.Run("overlap lookup", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		st := mocks.NewMockStore(ctrl)
		st.EXPECT().FindByEmailOrPhone(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errDown)

		_, err := service.NewReconciliationService(st).Identify(context.Background(), req("a@x.com", ""))

		var storageErr *service.StorageError
		require.ErrorAs(t, err, &storageErr)
		assert.Equal(t, "find overlaps", storageErr.Op)
		assert.ErrorIs(t, err, errDown)
	})

	t.Run("unit of work conflict", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		st := mocks.NewMockStore(ctrl)
		existing := &models.Contact{ID: 1, Email: ptr("a@x.com"), LinkPrecedence: models.LinkPrimary}
		st.EXPECT().FindByEmailOrPhone(gomock.Any(), gomock.Any(), gomock.Any()).
			Return([]*models.Contact{existing}, nil)
		st.EXPECT().RunAtomic(gomock.Any(), gomock.Any()).
			Return(fmt.Errorf("commit transaction: %w", store.ErrConflict))

		_, err := service.NewReconciliationService(st).Identify(context.Background(), req("a@x.com", "1"))

		var storageErr *service.StorageError
		require.ErrorAs(t, err, &storageErr)
		assert.Equal(t, "reconcile identity", storageErr.Op)
		assert.ErrorIs(t, err, store.ErrConflict)
	})
}

func TestIdentifyResolvesInsideUnitOfWork(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	tx := mocks.NewMockContactStore(ctrl)
	ctx := context.Background()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	older := &models.Contact{ID: 1, Email: ptr("a@x.com"), PhoneNumber: ptr("1"), LinkPrecedence: models.LinkPrimary, CreatedAt: now}
	newer := &models.Contact{ID: 2, Email: ptr("c@x.com"), PhoneNumber: ptr("2"), LinkPrecedence: models.LinkPrimary, CreatedAt: now.Add(time.Hour)}
	demoted := *newer
	demoted.LinkPrecedence = models.LinkSecondary
	demoted.LinkedID = ptr(int64(1))

	st.EXPECT().FindByEmailOrPhone(ctx, ptr("c@x.com"), ptr("1")).Return([]*models.Contact{older, newer}, nil)
	st.EXPECT().RunAtomic(ctx, gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(store.ContactStore) error) error {
			return fn(tx)
		})
	gomock.InOrder(
		tx.EXPECT().FindByEmailOrPhone(ctx, ptr("c@x.com"), ptr("1")).Return([]*models.Contact{older, newer}, nil),
		tx.EXPECT().FindIdentity(ctx, int64(1)).Return([]*models.Contact{older}, nil),
		tx.EXPECT().FindIdentity(ctx, int64(2)).Return([]*models.Contact{newer}, nil),
		tx.EXPECT().UpdateLinkage(ctx, int64(2), models.LinkSecondary, ptr(int64(1))).Return(nil),
		tx.EXPECT().BulkRelink(ctx, int64(2), int64(1)).Return(nil),
		tx.EXPECT().FindIdentity(ctx, int64(1)).Return([]*models.Contact{older, &demoted}, nil),
	)

	resp, err := service.NewReconciliationService(st).Identify(ctx, req("c@x.com", "1"))
	require.NoError(t, err)
	assert.Equal(t, models.ContactResponse{
		PrimaryContactID:    1,
		Emails:              []string{"a@x.com", "c@x.com"},
		PhoneNumbers:        []string{"1", "2"},
		SecondaryContactIDs: []int64{2},
	}, resp.Contact)
}
