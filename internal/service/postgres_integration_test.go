//go:build integration

package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"identityrecon/internal/database"
	"identityrecon/internal/service"
)

func TestIdentifyOnPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("contacts"),
		tcpostgres.WithUsername("contacts"),
		tcpostgres.WithPassword("contacts"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	db, err := database.New(database.Config{URL: url})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	svc := service.NewReconciliationService(db)
	identify := func(email, phone string) []int64 {
		resp, err := svc.Identify(ctx, req(email, phone))
		require.NoError(t, err)
		return append([]int64{resp.Contact.PrimaryContactID}, resp.Contact.SecondaryContactIDs...)
	}

	first := identify("lorraine@hillvalley.edu", "123456")
	assert.Len(t, first, 1)

	attached := identify("mcfly@hillvalley.edu", "123456")
	assert.Equal(t, first[0], attached[0])
	assert.Len(t, attached, 2)

	other := identify("george@hillvalley.edu", "717171")
	assert.NotEqual(t, first[0], other[0])

	merged := identify("george@hillvalley.edu", "123456")
	assert.Equal(t, []int64{first[0], attached[1], other[0]}, merged)

	assert.Equal(t, merged, identify("mcfly@hillvalley.edu", "123456"), "resubmission changes nothing")

	_, err = svc.Identify(ctx, req("", ""))
	assert.ErrorIs(t, err, service.ErrEmailOrPhoneRequired)
}
