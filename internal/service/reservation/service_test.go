package reservation

import (
	"testing"

	"github.com/kirinyoku/stagepass/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestDedupe(t *testing.T) {
	k := func(seat int) domain.SeatKey {
		return domain.SeatKey{EventID: 1, SectionNumber: 0, RowNumber: 0, SeatNumber: seat}
	}

	t.Run("drops repeats and keeps first occurrence order", func(t *testing.T) {
		got := dedupe([]domain.SeatKey{k(3), k(1), k(3), k(2), k(1)})
		assert.Equal(t, []domain.SeatKey{k(3), k(1), k(2)}, got)
	})

	t.Run("passes short inputs through", func(t *testing.T) {
		assert.Nil(t, dedupe(nil))
		assert.Empty(t, dedupe([]domain.SeatKey{}))
		assert.Equal(t, []domain.SeatKey{k(1)}, dedupe([]domain.SeatKey{k(1)}))
	})

	t.Run("leaves distinct keys untouched", func(t *testing.T) {
		in := []domain.SeatKey{k(1), k(2), k(3)}
		assert.Equal(t, in, dedupe(in))
	})
}
