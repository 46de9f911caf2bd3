package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestNewSelectsDatabase(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := New(context.Background(), Options{Addr: mr.Addr(), DB: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Set(context.Background(), "ledger:k", "v", 0).Err())
	mr.Select(2)
	require.True(t, mr.Exists("ledger:k"))

	opt := Options{Addr: mr.Addr(), Password: "secret", DB: 2}.Asynq()
	require.Equal(t, mr.Addr(), opt.Addr)
	require.Equal(t, "secret", opt.Password)
	require.Equal(t, 2, opt.DB)
}

func TestNewFailsWhenServerIsGone(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := New(context.Background(), Options{Addr: addr})
	require.ErrorContains(t, err, "platform/cache: ping "+addr)

	_, err = New(context.Background(), Options{})
	require.Error(t, err)
}

func TestNewRequiresPassword(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.RequireAuth("secret")

	_, err := New(context.Background(), Options{Addr: mr.Addr()})
	require.Error(t, err)

	client, err := New(context.Background(), Options{Addr: mr.Addr(), Password: "secret"})
	require.NoError(t, err)
	require.NoError(t, client.Close())
}
