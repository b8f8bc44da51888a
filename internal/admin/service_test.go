package admin

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/mkch/paybot/internal/settings"
	"github.com/mkch/paybot/internal/stats"
	"github.com/mkch/paybot/internal/texts"
	pkgerrors "github.com/mkch/paybot/pkg/errors"
	"github.com/mkch/paybot/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rootAdmin int64 = 100

type fakeCounter struct {
	n   int
	err error
}

func (f fakeCounter) Count() (int, error) { return f.n, f.err }

func newTestService(t *testing.T) (*Service, *settings.Store, *stats.MemoryAggregator) {
	t.Helper()
	store, _, err := settings.Open(filepath.Join(t.TempDir(), "settings.json"), []int64{rootAdmin})
	require.NoError(t, err)
	agg := stats.NewMemoryAggregator()
	svc, err := NewService(ServiceParams{
		Settings:  store,
		Stats:     agg,
		Inventory: fakeCounter{n: 3},
		Logger:    logger.Nop(),
	})
	require.NoError(t, err)
	return svc, store, agg
}

func TestHandleRejectsNonAdmin(t *testing.T) {
	svc, store, _ := newTestService(t)

	for _, cmd := range Commands {
		reply, err := svc.Handle(context.Background(), Request{UserID: 5, Command: cmd, Args: []string{"7"}})
		assert.Equal(t, texts.AdminOnly, reply, cmd)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized), cmd)
	}
	assert.Equal(t, 1, store.MinPrice())
	assert.Equal(t, []int64{rootAdmin}, store.ListAdmins())
}

func TestSetPrice(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	reply, err := svc.Handle(ctx, Request{UserID: rootAdmin, Command: "setprice", Args: []string{"25"}})
	require.NoError(t, err)
	assert.Equal(t, texts.PriceUpdated(25), reply)
	assert.Equal(t, 25, store.MinPrice())

	reply, err = svc.Handle(ctx, Request{UserID: rootAdmin, Command: "setprice", Args: []string{"0"}})
	require.Error(t, err)
	assert.Equal(t, texts.MinPriceError, reply)
	assert.Equal(t, 25, store.MinPrice())

	for _, args := range [][]string{nil, {"abc"}, {"1.5"}} {
		reply, err = svc.Handle(ctx, Request{UserID: rootAdmin, Command: "setprice", Args: args})
		require.Error(t, err)
		assert.Equal(t, texts.InvalidCommand, reply)
	}
	assert.Equal(t, 25, store.MinPrice())
}

func TestAutoDelivery(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	reply, err := svc.Handle(ctx, Request{UserID: rootAdmin, Command: "autodelivery", Args: []string{"ON"}})
	require.NoError(t, err)
	assert.Equal(t, texts.DeliveryStatus(true), reply)
	assert.True(t, store.AutoDelivery())

	reply, err = svc.Handle(ctx, Request{UserID: rootAdmin, Command: "autodelivery", Args: []string{"off"}})
	require.NoError(t, err)
	assert.Equal(t, texts.DeliveryStatus(false), reply)
	assert.False(t, store.AutoDelivery())

	reply, err = svc.Handle(ctx, Request{UserID: rootAdmin, Command: "autodelivery", Args: []string{"maybe"}})
	require.Error(t, err)
	assert.Equal(t, texts.InvalidCommand, reply)

	reply, _ = svc.Handle(ctx, Request{UserID: rootAdmin, Command: "autodelivery"})
	assert.Equal(t, texts.InvalidCommand, reply)
}

func TestAddThenRemoveAdminRestoresSet(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	before := store.ListAdmins()

	reply, err := svc.Handle(ctx, Request{UserID: rootAdmin, Command: "addadmin", Args: []string{"200"}})
	require.NoError(t, err)
	assert.Equal(t, texts.AdminAdded(200), reply)
	assert.True(t, store.IsAdmin(200))

	reply, err = svc.Handle(ctx, Request{UserID: rootAdmin, Command: "addadmin", Args: []string{"200"}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeAlreadyExists))
	assert.Equal(t, texts.AdminExists, reply)

	reply, err = svc.Handle(ctx, Request{UserID: 200, Command: "removeadmin", Args: []string{"200"}})
	require.NoError(t, err)
	assert.Equal(t, texts.AdminRemoved(200), reply)
	assert.Equal(t, before, store.ListAdmins())
}

func TestRemoveAdminErrors(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	reply, err := svc.Handle(ctx, Request{UserID: rootAdmin, Command: "removeadmin", Args: []string{"999"}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	assert.Equal(t, texts.AdminNotFound, reply)

	reply, err = svc.Handle(ctx, Request{UserID: rootAdmin, Command: "removeadmin", Args: []string{"100"}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	assert.Equal(t, texts.LastAdmin, reply)
	assert.True(t, store.IsAdmin(rootAdmin))

	reply, _ = svc.Handle(ctx, Request{UserID: rootAdmin, Command: "removeadmin", Args: []string{"x"}})
	assert.Equal(t, texts.InvalidCommand, reply)
}

func TestMutualRemovalLeavesOneAdmin(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Handle(ctx, Request{UserID: rootAdmin, Command: "addadmin", Args: []string{"200"}})
	require.NoError(t, err)

	var wg sync.WaitGroup
	replies := make([]string, 2)
	for i, req := range []Request{
		{UserID: rootAdmin, Command: "removeadmin", Args: []string{"200"}},
		{UserID: 200, Command: "removeadmin", Args: []string{"100"}},
	} {
		wg.Add(1)
		go func(i int, req Request) {
			defer wg.Done()
			replies[i], _ = svc.Handle(ctx, req)
		}(i, req)
	}
	wg.Wait()

	admins := store.ListAdmins()
	require.Len(t, admins, 1)
	removed := 0
	for _, reply := range replies {
		if reply == texts.AdminRemoved(100) || reply == texts.AdminRemoved(200) {
			removed++
		}
	}
	assert.Equal(t, 1, removed)
}

func TestListAdminsStatsAndCodes(t *testing.T) {
	svc, _, agg := newTestService(t)
	ctx := context.Background()

	reply, err := svc.Handle(ctx, Request{UserID: rootAdmin, Command: "listadmins"})
	require.NoError(t, err)
	assert.Equal(t, texts.AdminList([]int64{rootAdmin}), reply)

	require.NoError(t, agg.Increment(ctx, 1))
	require.NoError(t, agg.Increment(ctx, 1))
	require.NoError(t, agg.Increment(ctx, 2))
	reply, err = svc.Handle(ctx, Request{UserID: rootAdmin, Command: "stats"})
	require.NoError(t, err)
	assert.Equal(t, texts.Stats(3, 2), reply)

	reply, err = svc.Handle(ctx, Request{UserID: rootAdmin, Command: "codes"})
	require.NoError(t, err)
	assert.Equal(t, texts.CodesLeft(3), reply)

	reply, err = svc.Handle(ctx, Request{UserID: rootAdmin, Command: "admin"})
	require.NoError(t, err)
	assert.Equal(t, texts.AdminHelp, reply)
}

func TestCodesCountFailure(t *testing.T) {
	svc, _, _ := newTestService(t)
	svc.inventory = fakeCounter{err: errors.New("disk")}

	reply, err := svc.Handle(context.Background(), Request{UserID: rootAdmin, Command: "codes"})
	require.Error(t, err)
	assert.Equal(t, texts.RequestFailed, reply)
}

func TestHandles(t *testing.T) {
	assert.True(t, Handles("setprice"))
	assert.False(t, Handles("start"))
}
