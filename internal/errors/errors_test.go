package errors_test

import (
	"fmt"
	"testing"

	apperrors "github.com/jrsteele09/go-foodscore/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestKind(t *testing.T) {
	cause := fmt.Errorf("dial tcp: refused")

	t.Run("matches kind and cause", func(t *testing.T) {
		err := apperrors.Kind(apperrors.ErrSubmissionFailed, cause)
		require.True(t, apperrors.Is(err, apperrors.ErrSubmissionFailed))
		require.True(t, apperrors.Is(err, cause))
	})

	t.Run("nil cause returns kind", func(t *testing.T) {
		require.Equal(t, apperrors.ErrAuthRejected, apperrors.Kind(apperrors.ErrAuthRejected, nil))
	})
}

func TestWrapf(t *testing.T) {
	require.Nil(t, apperrors.Wrapf(nil, "ignored"))

	err := apperrors.Wrapf(apperrors.ErrNoSession, "restore %s", "accessToken")
	require.EqualError(t, err, "restore accessToken: no session")
	require.True(t, apperrors.Is(err, apperrors.ErrNoSession))
}
