package service

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap/zaptest"

	"github.com/rl1809/flashsale-engine/internal/port/mock"
)

func TestStockMirrorSync_FollowsStore(t *testing.T) {
	ctrl := gomock.NewController(t)
	mirror := mock.NewMockStockMirror(ctrl)

	h := newHarness(t, CoordinatorConfig{GraceWindow: time.Second})
	h.addSale(t, testSale("s1", 5))

	mirror.EXPECT().SetStock(gomock.Any(), "s1", 5).Return(nil)
	mirror.EXPECT().SetStock(gomock.Any(), "s1", 3).Return(nil)
	mirror.EXPECT().SetStock(gomock.Any(), "s2", 4).Return(nil)
	mirror.EXPECT().DeleteStock(gomock.Any(), "s1").Return(nil)
	mirror.EXPECT().DeleteStock(gomock.Any(), "s2").Return(nil)

	mirrorSync := NewStockMirrorSync(mirror, h.bus, h.jobs, zaptest.NewLogger(t))
	mirrorSync.Start(h.store.ListActive())

	_, err := h.store.DecreaseStock("s1", 2)
	require.NoError(t, err)
	h.addSale(t, testSale("s2", 4))

	require.True(t, h.store.Remove("s1"))

	h.clock.Set(epoch.Add(time.Hour))
	require.True(t, h.coordinator.MarkExpired("s2"))
	h.clock.Add(time.Second)

	mirrorSync.Stop()
	h.drain()
}

func TestStockMirrorSync_MirrorErrorsAreSwallowed(t *testing.T) {
	ctrl := gomock.NewController(t)
	mirror := mock.NewMockStockMirror(ctrl)

	h := newHarness(t, CoordinatorConfig{})
	mirror.EXPECT().SetStock(gomock.Any(), "s1", 2).Return(errors.New("redis down"))
	mirror.EXPECT().SetStock(gomock.Any(), "s1", 1).Return(nil)

	mirrorSync := NewStockMirrorSync(mirror, h.bus, h.jobs, zaptest.NewLogger(t))
	mirrorSync.Start(nil)
	defer mirrorSync.Stop()

	h.addSale(t, testSale("s1", 2))
	_, err := h.store.DecreaseStock("s1", 1)
	require.NoError(t, err)

	h.drain()
}

func TestStockMirrorSync_SlowMirrorDoesNotStallPurchases(t *testing.T) {
	ctrl := gomock.NewController(t)
	mirror := mock.NewMockStockMirror(ctrl)

	release := make(chan struct{})
	mirror.EXPECT().SetStock(gomock.Any(), "s1", gomock.Any()).DoAndReturn(
		func(ctx context.Context, saleID string, remaining int) error {
			select {
			case <-release:
			case <-ctx.Done():
			}
			return nil
		}).AnyTimes()

	h := newHarness(t, CoordinatorConfig{})
	jobs := NewDispatcher(zaptest.NewLogger(t), 1, 1, time.Second)
	mirrorSync := NewStockMirrorSync(mirror, h.bus, jobs, zaptest.NewLogger(t))
	mirrorSync.Start(nil)

	h.addSale(t, testSale("s1", 10))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			_, err := h.store.DecreaseStock("s1", 1)
			assert.NoError(t, err)
		}
	}()

	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("DecreaseStock stalled behind the stock mirror")
	}

	got, err := h.store.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, 5, got.RemainingStock())

	close(release)
	mirrorSync.Stop()
	jobs.Close()
}
