package repository

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	edomain "github.com/harel159/email-automation-system/internal/email/domain"
)

func newPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("skipping integration test: DATABASE_URL not set")
	}
	pool, err := pgxpool.New(context.Background(), os.Getenv("DATABASE_URL"))
	if err != nil {
		t.Fatalf("failed to connect to db: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func TestInsert_NullableReferences_Integration(t *testing.T) {
	pool := newPool(t)
	ctx := context.Background()
	repo := New(pool)
	email := "log-" + uuid.NewString() + "@itest.local"
	t.Cleanup(func() { _, _ = pool.Exec(ctx, `DELETE FROM email_logs WHERE email = $1`, email) })

	reason := "550 mailbox unavailable"
	require.NoError(t, repo.Insert(ctx, edomain.LogEntry{Email: email, Status: edomain.StatusSent}))
	require.NoError(t, repo.Insert(ctx, edomain.LogEntry{Email: email, Status: edomain.StatusFailed, Error: &reason}))

	var sent, failed int
	require.NoError(t, pool.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE status = 'sent'), COUNT(*) FILTER (WHERE status = 'failed' AND error = $2)
		FROM email_logs WHERE email = $1 AND authority_id IS NULL AND template_id IS NULL`, email, reason).Scan(&sent, &failed))
	assert.Equal(t, 1, sent)
	assert.Equal(t, 1, failed)

	err := repo.Insert(ctx, edomain.LogEntry{Email: email, Status: "pending"})
	assert.Error(t, err, "status is constrained to sent/failed")
}
