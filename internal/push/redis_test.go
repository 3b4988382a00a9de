package push

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/robinvenneman/flux-challenge/pkg/roster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRosterClient(t *testing.T, mr *miniredis.Miniredis) *roster.Client {
	t.Helper()
	client, err := roster.NewClient(&redis.Options{Addr: mr.Addr()}, "test")
	require.NoError(t, err)
	return client
}

func TestRedisSource_DeliversLocations(t *testing.T) {
	mr := miniredis.RunT(t)

	src := NewRedis(newRosterClient(t, mr), Options{NewBackOff: fastBackOff})
	publisher := newRosterClient(t, mr)
	defer publisher.Close()

	var c collector
	runSource(t, src, c.handle)

	require.Eventually(t, src.Connected, 2*time.Second, 10*time.Millisecond)

	ctx := context.Background()
	require.NoError(t, publisher.PublishLocation(ctx, roster.Location{ID: 1, Name: "Earth"}))
	mr.Publish(roster.LocationEventsChannel("test"), "garbage")
	require.NoError(t, publisher.PublishLocation(ctx, roster.Location{ID: 58, Name: "Ziost"}))

	require.Eventually(t, func() bool { return len(c.all()) == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []roster.Location{{ID: 1, Name: "Earth"}, {ID: 58, Name: "Ziost"}}, c.all())
}

func TestRedisSource_IgnoresOtherNamespaces(t *testing.T) {
	mr := miniredis.RunT(t)

	src := NewRedis(newRosterClient(t, mr), Options{NewBackOff: fastBackOff})

	other, err := roster.NewClient(&redis.Options{Addr: mr.Addr()}, "other")
	require.NoError(t, err)
	defer other.Close()

	var c collector
	runSource(t, src, c.handle)
	require.Eventually(t, src.Connected, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, other.PublishLocation(context.Background(), roster.Location{ID: 3, Name: "Dromund Kaas"}))
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, c.all())
}
