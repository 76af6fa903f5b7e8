package profile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"wasteboard/infrastructure/apperr"
	"wasteboard/infrastructure/argon"
	"wasteboard/infrastructure/orgunit"
	"wasteboard/infrastructure/rbac"
	"wasteboard/infrastructure/testdb"
)

func TestLoadAndUpdate(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()
	unit := testdb.Unit(t, db, "Melati", orgunit.KindWastebankUnit)
	u := testdb.User(t, db, "rina", rbac.RoleWastebankUnit, &unit.ID)
	svc := New(db, nil)

	p, err := svc.Load(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "Melati", p.UnitName)
	require.False(t, p.EmailEnabled)

	_, err = svc.Update(ctx, u.ID, UpdateInput{Phone: "0812-abc"})
	require.ErrorIs(t, err, apperr.ErrValidation)

	updated, err := svc.Update(ctx, u.ID, UpdateInput{DisplayName: " Rina S ", Phone: "+62 812 000", Address: "Jl. Mawar 1", EmailEnabled: true})
	require.NoError(t, err)
	require.Equal(t, "Rina S", updated.DisplayName)
	require.Equal(t, "rina", updated.Username)

	p, err = svc.Load(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "+62 812 000", p.Phone)
	require.Equal(t, "Jl. Mawar 1", p.Address)
	require.True(t, p.EmailEnabled)

	_, err = svc.Update(ctx, u.ID, UpdateInput{DisplayName: "Rina S"})
	require.NoError(t, err)
	p, err = svc.Load(ctx, u.ID)
	require.NoError(t, err)
	require.False(t, p.EmailEnabled)
	require.Empty(t, p.Address)

	_, err = svc.Load(ctx, 999)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestChangePassword(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()
	u := testdb.User(t, db, "cust", rbac.RoleCustomer, nil)
	hash, err := argon.CreateHash("oldpass123", argon.DefaultParams)
	require.NoError(t, err)
	_, err = db.W.NewRaw(`UPDATE users SET password_hash = ? WHERE id = ?`, hash, u.ID).Exec(ctx)
	require.NoError(t, err)
	svc := New(db, nil)

	require.ErrorIs(t, svc.ChangePassword(ctx, u.ID, "oldpass123", "short"), apperr.ErrValidation)
	require.ErrorIs(t, svc.ChangePassword(ctx, u.ID, "wrongpass1", "newpass456"), apperr.ErrValidation)
	require.ErrorIs(t, svc.ChangePassword(ctx, u.ID, "oldpass123", "oldpass123"), apperr.ErrValidation)
	require.NoError(t, svc.ChangePassword(ctx, u.ID, "oldpass123", "newpass456"))

	var stored string
	require.NoError(t, db.R.NewRaw(`SELECT password_hash FROM users WHERE id = ?`, u.ID).Scan(ctx, &stored))
	ok, err := argon.ComparePasswordAndHash("newpass456", stored)
	require.NoError(t, err)
	require.True(t, ok)
}
