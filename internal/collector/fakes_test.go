package collector

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/domain"
	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/fitbit"
	"github.com/giovannibonisoli/wearable-data-platform-sub000/internal/repository"

	"go.uber.org/zap"
)

// fakeDevices 内存设备表，检查点更新保持单调
type fakeDevices struct {
	mu      sync.Mutex
	devices map[int64]*domain.Device
	tokens  map[int64][2]string
	updates []string
}

var _ repository.DevicesRepository = (*fakeDevices)(nil)

func newFakeDevices(devices ...*domain.Device) *fakeDevices {
	f := &fakeDevices{devices: make(map[int64]*domain.Device), tokens: make(map[int64][2]string)}
	for _, d := range devices {
		cp := *d
		f.devices[d.ID] = &cp
	}
	return f
}

func (f *fakeDevices) stored(id int64) domain.Device {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.devices[id]
}

func (f *fakeDevices) advance(id int64, field **time.Time, ts time.Time, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.devices[id]; !ok {
		return repository.ErrNotFound
	}
	f.updates = append(f.updates, name+" "+ts.Format(time.RFC3339))
	if *field == nil || ts.After(**field) {
		t := ts
		*field = &t
	}
	return nil
}

func (f *fakeDevices) GetDailyCheckpoint(_ context.Context, id int64) (*time.Time, error) {
	return f.devices[id].DailySummariesCheckpoint, nil
}

func (f *fakeDevices) UpdateDailyCheckpoint(_ context.Context, id int64, date time.Time) error {
	return f.advance(id, &f.devices[id].DailySummariesCheckpoint, date, "daily")
}

func (f *fakeDevices) GetIntradayCheckpoint(_ context.Context, id int64) (*time.Time, error) {
	return f.devices[id].IntradayCheckpoint, nil
}

func (f *fakeDevices) UpdateIntradayCheckpoint(_ context.Context, id int64, ts time.Time) error {
	return f.advance(id, &f.devices[id].IntradayCheckpoint, ts, "intraday")
}

func (f *fakeDevices) GetSleepCheckpoint(_ context.Context, id int64) (*time.Time, error) {
	return f.devices[id].SleepCheckpoint, nil
}

func (f *fakeDevices) UpdateSleepCheckpoint(_ context.Context, id int64, date time.Time) error {
	return f.advance(id, &f.devices[id].SleepCheckpoint, date, "sleep")
}

func (f *fakeDevices) GetLastSynch(_ context.Context, id int64) (*time.Time, error) {
	return f.devices[id].LastSynch, nil
}

func (f *fakeDevices) UpdateLastSynch(_ context.Context, id int64, ts time.Time) error {
	return f.advance(id, &f.devices[id].LastSynch, ts, "last_synch")
}

func (f *fakeDevices) GetTokens(_ context.Context, id int64) (string, string, error) {
	t := f.tokens[id]
	return t[0], t[1], nil
}

func (f *fakeDevices) UpdateTokens(_ context.Context, id int64, access, refresh string) error {
	f.tokens[id] = [2]string{access, refresh}
	return nil
}

func (f *fakeDevices) GetByID(_ context.Context, id int64) (*domain.Device, error) {
	d, ok := f.devices[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (f *fakeDevices) GetByEmail(_ context.Context, email string) (*domain.Device, error) {
	for _, d := range f.devices {
		if d.EmailAddress == email {
			cp := *d
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeDevices) GetAllAuthorized(_ context.Context) ([]*domain.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Device
	for _, d := range f.devices {
		if d.IsAuthorized() {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeDevices) Create(_ context.Context, userID int64, email string, status domain.DeviceStatus) (int64, error) {
	id := int64(len(f.devices) + 1)
	f.devices[id] = &domain.Device{ID: id, UserID: userID, EmailAddress: email, Status: status}
	return id, nil
}

func (f *fakeDevices) UpdateStatus(_ context.Context, id int64, status domain.DeviceStatus) error {
	d, ok := f.devices[id]
	if !ok {
		return repository.ErrNotFound
	}
	d.Status = status
	return nil
}

func (f *fakeDevices) UpdateDeviceType(_ context.Context, id int64, deviceType string) error {
	d, ok := f.devices[id]
	if !ok {
		return repository.ErrNotFound
	}
	d.DeviceType = deviceType
	return nil
}

// fakeMetrics 内存指标表
type fakeMetrics struct {
	daily    map[string]*domain.DailySummary
	intraday map[time.Time]*domain.IntradayPoint
}

var _ repository.MetricsRepository = (*fakeMetrics)(nil)

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{
		daily:    make(map[string]*domain.DailySummary),
		intraday: make(map[time.Time]*domain.IntradayPoint),
	}
}

func (m *fakeMetrics) UpsertDailySummary(_ context.Context, s *domain.DailySummary) error {
	m.daily[s.Date.Format(fitbit.DateLayout)] = s
	return nil
}

func (m *fakeMetrics) UpsertIntradayPoint(_ context.Context, p *domain.IntradayPoint) error {
	m.intraday[p.Time] = p
	return nil
}

func (m *fakeMetrics) InsertIntradayMetric(_ context.Context, deviceID int64, ts time.Time, field string, value *float64) error {
	p, ok := m.intraday[ts]
	if !ok {
		p = &domain.IntradayPoint{DeviceID: deviceID, Time: ts}
		m.intraday[ts] = p
	}
	if value != nil {
		p.Set(field, *value)
	}
	return nil
}

func (m *fakeMetrics) GetIntradayTimestamps(_ context.Context, _ int64, from, to time.Time) ([]time.Time, error) {
	var out []time.Time
	for ts := range m.intraday {
		if !ts.Before(from) && ts.Before(to) {
			out = append(out, ts)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

// fakeSleep 记录每次 SaveSessions 的批次
type fakeSleep struct {
	batches [][]*domain.SleepSession
	nextID  int64
}

var _ repository.SleepRepository = (*fakeSleep)(nil)

func (s *fakeSleep) CreateSession(context.Context, int64) (int64, error) {
	s.nextID++
	return s.nextID, nil
}

func (s *fakeSleep) InsertLog(context.Context, int64, *domain.SleepLog) error { return nil }

func (s *fakeSleep) InsertLevel(context.Context, int64, *domain.SleepLevel) error { return nil }

func (s *fakeSleep) InsertShortLevel(context.Context, int64, *domain.SleepShortLevel) error {
	return nil
}

func (s *fakeSleep) SaveSessions(_ context.Context, sessions []*domain.SleepSession) error {
	for _, ss := range sessions {
		s.nextID++
		ss.ID = s.nextID
	}
	s.batches = append(s.batches, sessions)
	return nil
}

// fakeTokens 令牌源
type fakeTokens struct {
	pairs map[int64]domain.TokenPair
}

func (t *fakeTokens) Fetch(_ context.Context, id int64) (domain.TokenPair, bool, error) {
	p, ok := t.pairs[id]
	return p, ok, nil
}

// routeGetter 按路径返回固定响应；含 limitOn 子串的路径返回 429
type routeGetter struct {
	mu      sync.Mutex
	routes  map[string]string
	limitOn string
	failOn  string
	calls   []string
}

func (g *routeGetter) Get(_ context.Context, _ string, path string) fitbit.Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, path)
	if g.limitOn != "" && strings.Contains(path, g.limitOn) {
		return fitbit.Result{Kind: fitbit.KindRateLimited, StatusCode: http.StatusTooManyRequests}
	}
	if g.failOn != "" && strings.Contains(path, g.failOn) {
		return fitbit.Result{Kind: fitbit.KindError, StatusCode: http.StatusInternalServerError}
	}
	if body, ok := g.routes[path]; ok {
		return fitbit.Result{Kind: fitbit.KindOK, StatusCode: http.StatusOK, Payload: []byte(body)}
	}
	return fitbit.Result{Kind: fitbit.KindOK, StatusCode: http.StatusOK, Payload: []byte(`{}`)}
}

func (g *routeGetter) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

// recorder 统计单元与设备结果
type recorder struct {
	units   map[string]int
	devices map[domain.Outcome]int
}

func newRecorder() *recorder {
	return &recorder{units: make(map[string]int), devices: make(map[domain.Outcome]int)}
}

func (r *recorder) DeviceProcessed(_ string, o domain.Outcome, _ time.Duration) { r.devices[o]++ }

func (r *recorder) UnitProcessed(_ string, result string) { r.units[result]++ }

func newDeps(devices *fakeDevices, getter fitbit.Getter, rec Recorder) Deps {
	tokens := &fakeTokens{pairs: make(map[int64]domain.TokenPair)}
	for id := range devices.devices {
		tokens.pairs[id] = domain.TokenPair{Access: "access", Refresh: "refresh"}
	}
	return Deps{
		Devices: devices,
		Tokens:  tokens,
		Sessions: &fitbit.SessionFactory{
			Client: getter,
			Logger: zap.NewNop(),
		},
		Recorder: rec,
		Logger:   zap.NewNop(),
	}
}

func mustTime(s string) time.Time {
	t, err := time.Parse("2006-01-02T15:04", s)
	if err != nil {
		panic(err)
	}
	return t
}

func ptr(t time.Time) *time.Time { return &t }
