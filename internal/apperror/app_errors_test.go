package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	t.Run("Maps wrapped sentinels to their category", func(t *testing.T) {
		// Given: errors wrapped the way callers wrap them
		cases := map[error]Kind{
			fmt.Errorf("failed to derive: %w", ErrInvalidKey):                 KindInvalidKey,
			fmt.Errorf("failed to place: %w", ErrOutOfRange):                  KindInvalidPlacement,
			fmt.Errorf("failed to place: %w", ErrCellOccupied):                KindInvalidPlacement,
			fmt.Errorf("failed to call node: %w", ErrNetwork):                 KindNetwork,
			fmt.Errorf("failed to apply: %w", ErrApplyRejected):               KindValidationRejected,
			fmt.Errorf("failed to locate: %w", ErrTokenNotFound):              KindNotFound,
			fmt.Errorf("failed to delete: %w", ErrState):                      KindState,
			ErrNotYourTurn:                                                    KindState,
			fmt.Errorf("%w: %w", ErrStageFailed, ErrValidationRejected):       KindStageFailed,
			errors.New("boom"):                                                KindInternal,
		}

		for err, want := range cases {
			// When: resolving its kind
			got := KindOf(err)

			// Then: the category matches
			assert.Equal(t, want, got, err.Error())
		}
	})

	t.Run("Returns empty kind for nil", func(t *testing.T) {
		// Given: no error
		// When: resolving its kind
		got := KindOf(nil)

		// Then: the kind is empty
		assert.Empty(t, got)
	})

	t.Run("Not-found family is matched by the parent sentinel", func(t *testing.T) {
		// Given: the specialised not-found errors
		// When / Then: each is a NotFound
		assert.ErrorIs(t, ErrGameNotFound, ErrNotFound)
		assert.ErrorIs(t, ErrTokenNotFound, ErrNotFound)
		assert.ErrorIs(t, ErrTrophyNotFound, ErrNotFound)
		assert.ErrorIs(t, ErrApplyRejected, ErrValidationRejected)
	})
}
