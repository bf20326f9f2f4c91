package persist

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/liliang-cn/orion/internal/domain"
	"github.com/liliang-cn/orion/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestAdapter() (*Adapter, *MemoryKV, *clock) {
	kv := NewMemoryKV()
	c := &clock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	return NewAdapter(kv, nil, WithClock(c.now)), kv, c
}

func twoThreadState() store.State {
	s := store.Initial()
	s.ChatThreads = []domain.ChatThread{
		{
			ID:    "t1",
			Title: "Sales",
			Messages: []domain.ChatMessage{
				{ID: "m1", Role: domain.RoleUser, Content: "total sales by region", Timestamp: 100},
				{
					ID: "m2", Role: domain.RoleAssistant, Content: "West leads.", Timestamp: 200,
					Charts: []domain.ChartConfig{{
						Type: domain.ChartBar, X: "region", Y: "sales",
						Data: []map[string]any{{"region": "West", "sales": float64(10)}},
					}},
					ChartStatus: domain.ChartStatusSuccess,
				},
			},
			CreatedAt: 50,
			UpdatedAt: 200,
		},
		{ID: "t2", Title: "Untitled Chat", Messages: []domain.ChatMessage{}, CreatedAt: 300, UpdatedAt: 300},
	}
	s.ActiveThreadID = "t1"
	s.Suggestions = []string{"What drives churn?"}
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	a, _, _ := newTestAdapter()
	in := twoThreadState()

	a.Save(in)
	out, ok := a.Load()

	require.True(t, ok)
	assert.Equal(t, in.ChatThreads, out.ChatThreads)
	assert.Equal(t, "t1", out.ActiveThreadID)
	assert.Equal(t, in.Suggestions, out.Suggestions)
}

func TestLoadAfterExpiryDropsThreads(t *testing.T) {
	a, kv, c := newTestAdapter()
	a.Save(twoThreadState())

	c.t = c.t.Add(DefaultHistoryTTL + time.Minute)
	out, ok := a.Load()

	require.True(t, ok)
	assert.Empty(t, out.ChatThreads)
	assert.Empty(t, out.ActiveThreadID)
	_, found, _ := kv.Get(ThreadsKey)
	assert.False(t, found)
	_, found, _ = kv.Get(ExpiryKey)
	assert.False(t, found)
}

func TestLoadWithinWindow(t *testing.T) {
	a, _, c := newTestAdapter()
	a.Save(twoThreadState())

	c.t = c.t.Add(DefaultHistoryTTL - time.Minute)
	out, ok := a.Load()

	require.True(t, ok)
	assert.Len(t, out.ChatThreads, 2)
}

func TestSaveNeverWritesSchemaOrFileID(t *testing.T) {
	a, kv, _ := newTestAdapter()
	in := twoThreadState()
	sc := &domain.DatasetSchema{FileID: "f1", Columns: []domain.ColumnInfo{{Name: "sales", Type: "number"}}}
	in.FileID = "f1"
	in.Schema = sc
	in.ChatThreads[0].FileID = "f1"
	in.ChatThreads[0].Schema = sc

	a.Save(in)

	raw, ok, _ := kv.Get(StateKey)
	require.True(t, ok)
	var root map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &root))
	assert.Nil(t, root["schema"])
	assert.Nil(t, root["fileId"])

	threadsRaw, ok, _ := kv.Get(ThreadsKey)
	require.True(t, ok)
	var threads []map[string]any
	require.NoError(t, json.Unmarshal([]byte(threadsRaw), &threads))
	for _, th := range threads {
		assert.Nil(t, th["schema"])
		assert.Nil(t, th["fileId"])
	}

	// the caller's state is untouched
	assert.Equal(t, "f1", in.ChatThreads[0].FileID)
}

func TestExpiryMarkerIsEpochMillis(t *testing.T) {
	a, kv, c := newTestAdapter()
	a.Save(twoThreadState())

	raw, ok, _ := kv.Get(ExpiryKey)
	require.True(t, ok)
	var ms int64
	require.NoError(t, json.Unmarshal([]byte(raw), &ms))
	assert.Equal(t, c.t.Add(24*time.Hour).UnixMilli(), ms)
}

func TestSaveEmptyThreadsDropsHistory(t *testing.T) {
	a, kv, _ := newTestAdapter()
	a.Save(twoThreadState())
	a.Save(store.Initial())

	_, found, _ := kv.Get(ThreadsKey)
	assert.False(t, found)

	out, ok := a.Load()
	require.True(t, ok)
	assert.Empty(t, out.ChatThreads)
}

func TestLoadNothingStored(t *testing.T) {
	a, _, _ := newTestAdapter()
	_, ok := a.Load()
	assert.False(t, ok)
}

func TestLoadCorruptState(t *testing.T) {
	a, kv, _ := newTestAdapter()
	require.NoError(t, kv.Set(StateKey, "{not json"))

	_, ok := a.Load()
	assert.False(t, ok)
}

func TestLoadCorruptThreads(t *testing.T) {
	a, kv, _ := newTestAdapter()
	a.Save(twoThreadState())
	require.NoError(t, kv.Set(ThreadsKey, "[{"))

	_, ok := a.Load()
	assert.False(t, ok)
}

func TestUnreadableExpiryCountsAsExpired(t *testing.T) {
	a, kv, _ := newTestAdapter()
	a.Save(twoThreadState())
	require.NoError(t, kv.Set(ExpiryKey, "soon"))

	out, ok := a.Load()
	require.True(t, ok)
	assert.Empty(t, out.ChatThreads)
}

func TestClear(t *testing.T) {
	a, kv, _ := newTestAdapter()
	a.Save(twoThreadState())
	a.Clear()

	for _, key := range []string{StateKey, ThreadsKey, ExpiryKey} {
		_, found, _ := kv.Get(key)
		assert.False(t, found, key)
	}
}

type failingKV struct{}

func (failingKV) Get(string) (string, bool, error) { return "", false, errors.New("disk on fire") }
func (failingKV) Set(string, string) error { return errors.New("quota exceeded") }
func (failingKV) Delete(string) error { return errors.New("disk on fire") }

func TestFailuresAreSwallowed(t *testing.T) {
	a := NewAdapter(failingKV{}, nil)

	assert.NotPanics(t, func() {
		a.Save(twoThreadState())
		a.Clear()
	})
	_, ok := a.Load()
	assert.False(t, ok)
}

// markerFailKV refuses to store the expiry marker
type markerFailKV struct {
	*MemoryKV
	fail bool
}

func (m *markerFailKV) Set(key, value string) error {
	if m.fail && key == ExpiryKey {
		return errors.New("quota exceeded")
	}
	return m.MemoryKV.Set(key, value)
}

func TestHistoryNeverStoredWithoutExpiry(t *testing.T) {
	kv := &markerFailKV{MemoryKV: NewMemoryKV(), fail: true}
	c := &clock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	a := NewAdapter(kv, nil, WithClock(c.now))

	a.Save(twoThreadState())

	_, found, _ := kv.Get(ThreadsKey)
	assert.False(t, found)

	c.t = c.t.Add(48 * time.Hour)
	out, ok := a.Load()
	require.True(t, ok)
	assert.Empty(t, out.ChatThreads)
}

func TestFailedMarkerDropsEarlierHistory(t *testing.T) {
	kv := &markerFailKV{MemoryKV: NewMemoryKV()}
	c := &clock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	a := NewAdapter(kv, nil, WithClock(c.now))

	a.Save(twoThreadState())
	kv.fail = true
	c.t = c.t.Add(time.Hour)
	a.Save(twoThreadState())

	for _, key := range []string{ThreadsKey, ExpiryKey} {
		_, found, _ := kv.Get(key)
		assert.False(t, found, key)
	}
}
