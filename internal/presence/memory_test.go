package presence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	id "pantheon/pkg/domain"
)

func TestInMemoryResolver(t *testing.T) {
	ctx := context.Background()
	r := NewInMemory()

	t.Run("falls back to raw id", func(t *testing.T) {
		assert.Equal(t, "p1", r.DisplayName(ctx, id.PlayerID("p1")))
	})

	t.Run("returns known name", func(t *testing.T) {
		r.SetDisplayName("p1", "Steve")
		assert.Equal(t, "Steve", r.DisplayName(ctx, "p1"))
	})

	t.Run("tracks online set", func(t *testing.T) {
		r.SetOnline("p1", true)
		r.SetOnline("p2", true)
		r.SetOnline("p2", false)
		online := r.Online(ctx)
		assert.Equal(t, []id.PlayerID{"p1"}, online)
	})
}
