package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/academia-portal/internal/domain"
)

func TestMemoryAccountRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccountRepository()

	first := &domain.Account{Login: "JDoe", Roles: []string{"ROLE_ADMIN"}}
	require.NoError(t, repo.Create(ctx, first))
	assert.Equal(t, int64(1), first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	second := &domain.Account{ID: 10, Login: "maria"}
	require.NoError(t, repo.Create(ctx, second))
	third := &domain.Account{Login: "ana"}
	require.NoError(t, repo.Create(ctx, third))
	assert.Equal(t, int64(11), third.ID)

	assert.ErrorIs(t, repo.Create(ctx, &domain.Account{Login: " jdoe "}), ErrDuplicateLogin)

	got, err := repo.GetByLogin(ctx, "jdoe")
	require.NoError(t, err)
	assert.Equal(t, "JDoe", got.Login)
	got.Roles[0] = "mutated"

	again, err := repo.GetByLogin(ctx, "JDOE")
	require.NoError(t, err)
	assert.Equal(t, []string{"ROLE_ADMIN"}, again.Roles)

	_, err = repo.GetByLogin(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{1, 10, 11}, []int64{all[0].ID, all[1].ID, all[2].ID})
}
