package inbox

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/academia-portal/internal/cache"
	"github.com/spec-kit/academia-portal/internal/domain"
	"github.com/spec-kit/academia-portal/internal/transport"
	apperrors "github.com/spec-kit/academia-portal/pkg/util"
)

type fakeSession struct {
	authenticated atomic.Bool
}

func (f *fakeSession) Snapshot() domain.SessionSnapshot {
	if f.authenticated.Load() {
		return domain.SessionSnapshot{State: domain.SessionAuthenticated, Identity: &domain.Identity{ID: 42}}
	}
	return domain.SessionSnapshot{State: domain.SessionUnauthenticated}
}

type backend struct {
	mu     sync.Mutex
	auth   []string
	status int
	body   string
	calls  atomic.Int32
}

func (b *backend) serve(w http.ResponseWriter, r *http.Request) {
	b.calls.Add(1)
	b.mu.Lock()
	b.auth = append(b.auth, r.Header.Get("Authorization"))
	status, body := b.status, b.body
	b.mu.Unlock()
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func newService(t *testing.T, b *backend) (*Service, *fakeSession, *cache.Notifications, *transport.Headers) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(srv.Close)

	headers := transport.NewHeaders()
	notifications, err := cache.NewNotifications(16)
	require.NoError(t, err)
	session := &fakeSession{}
	client := NewClient(transport.NewHTTPClient(headers, time.Second), srv.URL+"/notifications", nil)
	svc := NewService(notifications, client.Fetch, session, nil)
	notifications.OnInvalidate(svc.Refresh)
	return svc, session, notifications, headers
}

func TestListUsesBearerAndCache(t *testing.T) {
	b := &backend{body: `[{"id":1,"title":"Nota lançada","message":"Cálculo I","read":false},{"id":"a7","title":"Biblioteca"}]`}
	svc, session, _, headers := newService(t, b)
	session.authenticated.Store(true)
	headers.SetBearer("tok-1")
	ctx := context.Background()

	items, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "1", items[0].ID)
	assert.Equal(t, "Cálculo I", items[0].Message)
	assert.Equal(t, "a7", items[1].ID)

	item, err := svc.Get(ctx, "a7")
	require.NoError(t, err)
	assert.Equal(t, "Biblioteca", item.Title)

	_, err = svc.List(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, b.calls.Load())

	b.mu.Lock()
	assert.Equal(t, []string{"Bearer tok-1"}, b.auth)
	b.mu.Unlock()

	_, err = svc.Get(ctx, "missing")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestMessageInvalidationRefetches(t *testing.T) {
	b := &backend{body: `[{"id":1,"title":"Prova"}]`}
	svc, session, notifications, _ := newService(t, b)
	session.authenticated.Store(true)

	_, err := svc.List(context.Background())
	require.NoError(t, err)

	b.mu.Lock()
	b.body = `[{"id":1,"title":"Prova"},{"id":2,"title":"Matrícula"}]`
	b.mu.Unlock()
	notifications.Invalidate(cache.ReasonMessage)

	require.Eventually(t, func() bool { return b.calls.Load() == 2 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		items, err := svc.List(context.Background())
		return err == nil && len(items) == 2
	}, time.Second, 5*time.Millisecond)
}

func TestResetDoesNotRefetch(t *testing.T) {
	b := &backend{body: `[]`}
	_, session, notifications, _ := newService(t, b)
	session.authenticated.Store(true)

	notifications.Reset()
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, b.calls.Load())
}

func TestListRequiresSession(t *testing.T) {
	b := &backend{body: `[]`}
	svc, _, _, _ := newService(t, b)

	_, err := svc.List(context.Background())
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))
	_, err = svc.Get(context.Background(), "1")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))
	assert.Zero(t, b.calls.Load())
}

func TestFetchFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		code   string
	}{
		{"rejected session", http.StatusUnauthorized, ``, apperrors.CodeUnauthorized},
		{"server error", http.StatusInternalServerError, ``, apperrors.CodeUnavailable},
		{"bad body", http.StatusOK, `{"oops"`, apperrors.CodeUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := &backend{status: tc.status, body: tc.body}
			svc, session, _, _ := newService(t, b)
			session.authenticated.Store(true)

			_, err := svc.List(context.Background())
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, tc.code), err.Error())
		})
	}
}
