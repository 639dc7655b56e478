package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sage-Bionetworks/synapsegenie/internal/errs"
)

func TestDo_SucceedsAfterTransientRetries(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return &errs.PlatformTransient{Err: errors.New("connection reset")}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_FatalErrorNotRetried(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}, func(ctx context.Context) error {
		calls++
		return &errs.PlatformFatal{Err: errors.New("permission denied")}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_GivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{MaxAttempts: 2, BaseDelay: time.Millisecond}, func(ctx context.Context) error {
		calls++
		return &errs.PlatformTransient{Err: errors.New("timeout")}
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
}
