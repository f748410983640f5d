package admission

import (
	"context"
	"testing"
	"time"

	"github.com/coregate/gateway/internal/metrics"
	"github.com/coregate/gateway/internal/store"
)

func TestCheckerIsRevoked(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		setup func(m *store.Memory)
		want  bool
	}{
		{
			name: "entry present",
			setup: func(m *store.Memory) {
				_ = m.Set(ctx, "blacklist:abc123", "logout", time.Minute)
			},
			want: true,
		},
		{
			name:  "no entry",
			setup: func(*store.Memory) {},
			want:  false,
		},
		{
			name: "unrelated entry",
			setup: func(m *store.Memory) {
				_ = m.Set(ctx, "blacklist:other", "logout", time.Minute)
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := store.NewMemory()
			tt.setup(kv)

			c := NewChecker(kv, discardLogger(), metrics.NewNop())
			if got := c.IsRevoked(ctx, "abc123"); got != tt.want {
				t.Errorf("IsRevoked() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCheckerFailsOpenOnStoreError(t *testing.T) {
	c := NewChecker(failingStore{}, discardLogger(), metrics.NewNop())

	if c.IsRevoked(context.Background(), "abc123") {
		t.Error("IsRevoked() with unreachable store = true, want fail-open false")
	}
}
