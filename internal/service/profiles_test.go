package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svarovsky7/GarantHUB-sub002/internal/cache"
	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/model"
	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/rbac"
)

func TestProfileService_ResolveFirstLogin(t *testing.T) {
	repo := &fakeProfiles{items: map[string]*model.Profile{
		"lawyer-1": {ID: "lawyer-1", Email: "lawyer@test.com", Role: rbac.RoleLawyer},
	}}
	svc := NewProfileService(repo, &fakeTx{}, cache.New(100, time.Minute), testLogger())
	ctx := context.Background()

	p, err := svc.Resolve(ctx, Identity{Subject: "u1", Email: " new@test.com ", Name: "Новый"})
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleEngineer, p.Role, "новый профиль получает роль ENGINEER")
	assert.Equal(t, "new@test.com", p.Email)
	require.Contains(t, repo.items, "u1")
	assert.Equal(t, rbac.RoleEngineer, repo.items["u1"].Role)

	p, err = svc.Resolve(ctx, Identity{Subject: "u2"})
	require.NoError(t, err)
	assert.Equal(t, "u2", p.Email, "без email используется sub")

	p, err = svc.Resolve(ctx, Identity{Subject: "lawyer-1"})
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleLawyer, p.Role, "существующий профиль не меняется")
}
