package kvstore_test

import (
	"context"
	"testing"

	"github.com/jrsteele09/go-foodscore/kvstore"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRepo(t *testing.T) {
	ctx := context.Background()
	r := kvstore.NewInMemoryRepo()

	_, ok, err := r.Get(ctx, "user")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, r.Set(ctx, "user", "{}"))
	value, ok, err := r.Get(ctx, "user")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "{}", value)
	require.ElementsMatch(t, []string{"user"}, r.Keys())

	require.NoError(t, r.Delete(ctx, "user", "never-set"))
	require.Empty(t, r.Keys())

	require.Error(t, r.Set(ctx, "", "x"))
	_, _, err = r.Get(ctx, "")
	require.Error(t, err)
}
