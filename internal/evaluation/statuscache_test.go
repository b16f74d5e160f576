package evaluation

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	commoncache "github.com/algorithm-ninja/task-wizard/internal/common/cache"
	appErr "github.com/algorithm-ninja/task-wizard/pkg/errors"
)

func newTestStatusCache(t *testing.T) *StatusCache {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	redisCache, err := commoncache.NewRedisCacheWithClient(client)
	if err != nil {
		t.Fatalf("NewRedisCacheWithClient: %v", err)
	}
	t.Cleanup(func() { _ = redisCache.Close() })
	return NewStatusCache(redisCache)
}

func TestStatusCacheServesSecondReadFromCache(t *testing.T) {
	t.Parallel()
	statusCache := newTestStatusCache(t)

	calls := 0
	fetch := func(context.Context) (Status, error) {
		calls++
		return StatusRunning, nil
	}

	for i := 0; i < 3; i++ {
		status, err := statusCache.Get(context.Background(), "e1", fetch)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if status != StatusRunning {
			t.Fatalf("status = %s, want running", status)
		}
	}
	if calls != 1 {
		t.Fatalf("fetch called %d times, want 1", calls)
	}
}

func TestStatusCacheUpdateForcesRefetch(t *testing.T) {
	t.Parallel()
	statusCache := newTestStatusCache(t)

	current := StatusPending
	fetch := func(context.Context) (Status, error) { return current, nil }

	if status, _ := statusCache.Get(context.Background(), "e1", fetch); status != StatusPending {
		t.Fatalf("status = %s, want pending", status)
	}

	err := statusCache.Update(context.Background(), "e1", func(context.Context) error {
		current = StatusSucceeded
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	status, err := statusCache.Get(context.Background(), "e1", fetch)
	if err != nil {
		t.Fatalf("Get after update: %v", err)
	}
	if status != StatusSucceeded {
		t.Fatalf("status = %s, want succeeded", status)
	}
}

func TestStatusCacheUpdateKeepsEntryOnFailure(t *testing.T) {
	t.Parallel()
	statusCache := newTestStatusCache(t)

	fetch := func(context.Context) (Status, error) { return StatusRunning, nil }
	if _, err := statusCache.Get(context.Background(), "e1", fetch); err != nil {
		t.Fatalf("Get: %v", err)
	}

	wantErr := appErr.New(appErr.TransactionFailed)
	err := statusCache.Update(context.Background(), "e1", func(context.Context) error {
		return wantErr
	})
	if appErr.GetCode(err) != appErr.TransactionFailed {
		t.Fatalf("got %v, want the transition error", err)
	}

	calls := 0
	status, err := statusCache.Get(context.Background(), "e1", func(context.Context) (Status, error) {
		calls++
		return StatusFailed, nil
	})
	if err != nil {
		t.Fatalf("Get after failed update: %v", err)
	}
	if status != StatusRunning || calls != 0 {
		t.Fatalf("status = %s (fetches %d), want the cached running state", status, calls)
	}
}

func TestStatusCachePropagatesNotFound(t *testing.T) {
	t.Parallel()
	statusCache := newTestStatusCache(t)

	fetch := func(context.Context) (Status, error) {
		return "", appErr.New(appErr.EvaluationNotFound)
	}
	_, err := statusCache.Get(context.Background(), "missing", fetch)
	if appErr.GetCode(err) != appErr.EvaluationNotFound {
		t.Fatalf("got %v, want EvaluationNotFound", err)
	}
}

func TestStatusCacheNilIsPassthrough(t *testing.T) {
	t.Parallel()
	var statusCache *StatusCache

	status, err := statusCache.Get(context.Background(), "e1",
		func(context.Context) (Status, error) { return StatusFailed, nil })
	if err != nil || status != StatusFailed {
		t.Fatalf("got (%s, %v), want failed", status, err)
	}
	if err := statusCache.Update(context.Background(), "e1", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("Update: %v", err)
	}
}
