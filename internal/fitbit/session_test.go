package fitbit

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeGetter 按令牌返回结果：只有 valid 令牌能拿到数据
type fakeGetter struct {
	valid   string
	results map[string]Result
	calls   []string
}

func (g *fakeGetter) Get(_ context.Context, token, path string) Result {
	g.calls = append(g.calls, token+" "+path)
	if token != g.valid {
		return Result{Kind: KindAuthExpired, StatusCode: http.StatusUnauthorized}
	}
	if r, ok := g.results[path]; ok {
		return r
	}
	return okResult(http.StatusOK, []byte(`{}`))
}

type mockRefresher struct{ mock.Mock }

func (m *mockRefresher) Refresh(ctx context.Context, refresh string) (domain.TokenPair, error) {
	args := m.Called(ctx, refresh)
	return args.Get(0).(domain.TokenPair), args.Error(1)
}

type mockSink struct{ mock.Mock }

func (m *mockSink) StoreTokens(ctx context.Context, id int64, pair domain.TokenPair) error {
	return m.Called(ctx, id, pair).Error(0)
}

type stubSource struct {
	pair domain.TokenPair
	ok   bool
}

func (s *stubSource) Fetch(context.Context, int64) (domain.TokenPair, bool, error) {
	return s.pair, s.ok, nil
}

type stubLocker struct {
	ok       bool
	released int
}

func (l *stubLocker) TryLock(context.Context, int64) (func(), bool, error) {
	if !l.ok {
		return nil, false, nil
	}
	return func() { l.released++ }, true, nil
}

func newFactory(g Getter, r TokenRefresher, s TokenSink) *SessionFactory {
	return &SessionFactory{
		Client:       g,
		Refresher:    r,
		Sink:         s,
		Logger:       zap.NewNop(),
		PeerWait:     time.Millisecond,
		PeerAttempts: 3,
	}
}

func TestSession_RefreshOnceAndRetry(t *testing.T) {
	getter := &fakeGetter{valid: "A2"}
	refresher := &mockRefresher{}
	sink := &mockSink{}
	newPair := domain.TokenPair{Access: "A2", Refresh: "R2"}

	refresher.On("Refresh", mock.Anything, "R1").Return(newPair, nil).Once()
	sink.On("StoreTokens", mock.Anything, int64(7), newPair).Return(nil).Once()

	s := newFactory(getter, refresher, sink).New(7, domain.TokenPair{Access: "A1", Refresh: "R1"})
	res := s.Fetch(context.Background(), "/x", false)

	assert.Equal(t, KindOK, res.Kind)
	assert.Equal(t, newPair, s.Tokens())
	assert.Equal(t, []string{"A1 /x", "A2 /x"}, getter.calls)
	refresher.AssertExpectations(t)
	sink.AssertExpectations(t)

	// 后续请求直接使用新令牌
	res = s.Fetch(context.Background(), "/y", false)
	assert.Equal(t, KindOK, res.Kind)
	refresher.AssertNumberOfCalls(t, "Refresh", 1)
}

func TestSession_RefreshFailureIsError(t *testing.T) {
	getter := &fakeGetter{valid: "never"}
	refresher := &mockRefresher{}
	refresher.On("Refresh", mock.Anything, "R1").Return(domain.TokenPair{}, errors.New("invalid_grant"))

	s := newFactory(getter, refresher, &mockSink{}).New(1, domain.TokenPair{Access: "A1", Refresh: "R1"})
	res := s.Fetch(context.Background(), "/x", false)

	assert.Equal(t, KindError, res.Kind)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Len(t, getter.calls, 1)
}

func TestSession_StillUnauthorizedAfterRefresh(t *testing.T) {
	getter := &fakeGetter{valid: "never"}
	refresher := &mockRefresher{}
	sink := &mockSink{}
	pair := domain.TokenPair{Access: "A2", Refresh: "R2"}
	refresher.On("Refresh", mock.Anything, "R1").Return(pair, nil).Once()
	sink.On("StoreTokens", mock.Anything, int64(1), pair).Return(nil)

	s := newFactory(getter, refresher, sink).New(1, domain.TokenPair{Access: "A1", Refresh: "R1"})
	res := s.Fetch(context.Background(), "/x", false)

	assert.Equal(t, KindError, res.Kind)
	assert.Len(t, getter.calls, 2)
	refresher.AssertNumberOfCalls(t, "Refresh", 1)
}

func TestSession_SinkFailureStillUsesNewToken(t *testing.T) {
	getter := &fakeGetter{valid: "A2"}
	refresher := &mockRefresher{}
	sink := &mockSink{}
	pair := domain.TokenPair{Access: "A2", Refresh: "R2"}
	refresher.On("Refresh", mock.Anything, "R1").Return(pair, nil)
	sink.On("StoreTokens", mock.Anything, int64(1), pair).Return(errors.New("db down"))

	s := newFactory(getter, refresher, sink).New(1, domain.TokenPair{Access: "A1", Refresh: "R1"})
	assert.Equal(t, KindOK, s.Fetch(context.Background(), "/x", false).Kind)
}

func TestSession_OptionalNotFoundIsEmpty(t *testing.T) {
	getter := &fakeGetter{valid: "A", results: map[string]Result{
		"/spo2":  errorResult(http.StatusNotFound, errors.New("404")),
		"/br":    errorResult(http.StatusBadRequest, errors.New("400")),
		"/temp":  errorResult(http.StatusInternalServerError, errors.New("500")),
		"/limit": {Kind: KindRateLimited, StatusCode: http.StatusTooManyRequests},
	}}
	s := newFactory(getter, &mockRefresher{}, &mockSink{}).New(1, domain.TokenPair{Access: "A", Refresh: "R"})
	ctx := context.Background()

	res := s.Fetch(ctx, "/spo2", true)
	assert.True(t, res.Empty())
	assert.True(t, s.Fetch(ctx, "/br", true).Empty())
	assert.Equal(t, KindError, s.Fetch(ctx, "/temp", true).Kind)
	assert.Equal(t, KindError, s.Fetch(ctx, "/spo2", false).Kind)
	assert.Equal(t, KindRateLimited, s.Fetch(ctx, "/limit", true).Kind)
}

func TestSession_LockBusyAdoptsPeerRefresh(t *testing.T) {
	getter := &fakeGetter{valid: "A-peer"}
	refresher := &mockRefresher{}
	f := newFactory(getter, refresher, &mockSink{})
	f.Locker = &stubLocker{ok: false}
	f.Source = &stubSource{pair: domain.TokenPair{Access: "A-peer", Refresh: "R-peer"}, ok: true}

	s := f.New(3, domain.TokenPair{Access: "A-old", Refresh: "R-old"})
	res := s.Fetch(context.Background(), "/x", false)

	require.Equal(t, KindOK, res.Kind)
	assert.Equal(t, "A-peer", s.Tokens().Access)
	refresher.AssertNotCalled(t, "Refresh", mock.Anything, mock.Anything)
}

func TestSession_LockBusyTimesOut(t *testing.T) {
	getter := &fakeGetter{valid: "A-new"}
	f := newFactory(getter, &mockRefresher{}, &mockSink{})
	f.Locker = &stubLocker{ok: false}
	f.Source = &stubSource{pair: domain.TokenPair{Access: "A-old", Refresh: "R-old"}, ok: true}

	s := f.New(3, domain.TokenPair{Access: "A-old", Refresh: "R-old"})
	assert.Equal(t, KindError, s.Fetch(context.Background(), "/x", false).Kind)
}

func TestSession_LockHeldReleasesAfterRefresh(t *testing.T) {
	getter := &fakeGetter{valid: "A2"}
	refresher := &mockRefresher{}
	sink := &mockSink{}
	pair := domain.TokenPair{Access: "A2", Refresh: "R2"}
	refresher.On("Refresh", mock.Anything, "R1").Return(pair, nil)
	sink.On("StoreTokens", mock.Anything, int64(1), pair).Return(nil)

	locker := &stubLocker{ok: true}
	f := newFactory(getter, refresher, sink)
	f.Locker = locker
	f.Source = &stubSource{pair: domain.TokenPair{Access: "A1", Refresh: "R1"}, ok: true}

	s := f.New(1, domain.TokenPair{Access: "A1", Refresh: "R1"})
	assert.Equal(t, KindOK, s.Fetch(context.Background(), "/x", false).Kind)
	assert.Equal(t, 1, locker.released)
}
