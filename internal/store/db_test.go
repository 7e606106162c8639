package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/wesm/interviewlens/internal/dashboard"
	"github.com/wesm/interviewlens/internal/record"
)

var _ dashboard.Source = (*DB)(nil)

func testDB(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")
	d, err := Open(path)
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func raws(docs ...string) []json.RawMessage {
	out := make([]json.RawMessage, len(docs))
	for i, d := range docs {
		out[i] = json.RawMessage(d)
	}
	return out
}

func upsert(t *testing.T, d *DB, doc string) string {
	t.Helper()
	id, err := d.UpsertSession([]byte(doc))
	if err != nil {
		t.Fatalf("UpsertSession: %v", err)
	}
	return id
}

func listIDs(t *testing.T, d *DB, id record.Identity) []string {
	t.Helper()
	body, err := d.ListSessions(context.Background(), id)
	require.NoError(t, err)
	sessions, err := record.ParseSessionList(body)
	require.NoError(t, err)
	ids := make([]string, len(sessions))
	for i, s := range sessions {
		ids[i] = s.ID
	}
	return ids
}

func TestOpenCreatesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "lens.db")
	d, err := Open(path)
	require.NoError(t, err)
	defer d.Close()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

func TestUpsertSessionVariants(t *testing.T) {
	d := testDB(t)

	id := upsert(t, d, `{
		"_id": "a", "userId": "u1", "startedAt": "2024-06-01T10:00:00Z",
		"company": "acme", "scores": {"overall": 7}
	}`)
	assert.Equal(t, "a", id)
	id = upsert(t, d, `{
		"sessionId": "b", "userId": "u1", "createdAt": "2024-06-02T10:00:00Z"
	}`)
	assert.Equal(t, "b", id)

	_, err := d.UpsertSession([]byte(`{"company":"x"}`))
	assert.ErrorIs(t, err, ErrNoSessionID)
	_, err = d.UpsertSession([]byte(`{not json`))
	assert.Error(t, err)

	assert.Equal(t, []string{"b", "a"}, listIDs(t, d, record.Identity{UserID: "u1"}))
}

func TestUpsertSessionReplaces(t *testing.T) {
	d := testDB(t)
	upsert(t, d, `{"sessionId":"a","userId":"u1","company":"old"}`)
	upsert(t, d, `{"sessionId":"a","userId":"u1","company":"new"}`)

	body, err := d.ListSessions(context.Background(), record.Identity{UserID: "u1"})
	require.NoError(t, err)
	res := gjson.ParseBytes(body)
	require.Len(t, res.Array(), 1)
	assert.Equal(t, "new", res.Get("0.company").Str)
}

func TestListSessionsIdentity(t *testing.T) {
	d := testDB(t)
	upsert(t, d, `{"sessionId":"a","userId":"u1","userEmail":"Me@Example.com","createdAt":"2024-06-01T00:00:00Z"}`)
	upsert(t, d, `{"sessionId":"b","userEmail":"me@example.com","createdAt":"2024-06-03T00:00:00Z"}`)
	upsert(t, d, `{"sessionId":"c","userEmail":"me@example.com"}`)
	upsert(t, d, `{"sessionId":"d","userId":"u2"}`)

	tests := []struct {
		name string
		id   record.Identity
		want []string
	}{
		{"UserID", record.Identity{UserID: "u1", Email: "me@example.com"}, []string{"a"}},
		{"EmailNormalized", record.Identity{Email: " ME@example.com "}, []string{"b", "a", "c"}},
		{"Other", record.Identity{UserID: "u2"}, []string{"d"}},
		{"Unknown", record.Identity{UserID: "nobody"}, []string{}},
		{"Empty", record.Identity{}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, listIDs(t, d, tt.id))
		})
	}
}

func TestReplaceTurns(t *testing.T) {
	d := testDB(t)
	upsert(t, d, `{"sessionId":"s1","userId":"u1"}`)

	err := d.ReplaceTurns("s1", raws(
		`{"index":1,"question":"second","score":6}`,
		`{"index":0,"question":"first","score":8,"metrics":{"clarity":7}}`,
		`"not an object"`,
	))
	require.NoError(t, err)

	body, err := d.SessionDetail(context.Background(), "s1")
	require.NoError(t, err)
	detail, err := record.ParseSessionDetail("s1", body)
	require.NoError(t, err)
	require.NotNil(t, detail.Session)
	assert.Equal(t, "s1", detail.Session.ID)
	require.Len(t, detail.Turns, 2)
	assert.Equal(t, "first", detail.Turns[0].Question)
	assert.Equal(t, "second", detail.Turns[1].Question)
	require.NotNil(t, detail.Turns[0].Metrics)

	// Replacing drops turns not in the new set.
	require.NoError(t, d.ReplaceTurns("s1", raws(`{"question":"only"}`)))
	body, err = d.SessionDetail(context.Background(), "s1")
	require.NoError(t, err)
	turns := gjson.GetBytes(body, "turns").Array()
	require.Len(t, turns, 1)
	assert.Equal(t, "only", turns[0].Get("question").Str)
}

func TestSessionDetailUnknown(t *testing.T) {
	d := testDB(t)
	body, err := d.SessionDetail(context.Background(), "ghost")
	require.NoError(t, err)
	assert.JSONEq(t, `{"session":{"sessionId":"ghost"},"turns":[]}`, string(body))
}

func TestImportBatch(t *testing.T) {
	d := testDB(t)
	res, err := d.Import(Batch{
		Sessions: raws(
			`{"sessionId":"s1","userId":"u1"}`,
			`{"sessionId":"s2","userId":"u1"}`,
			`{"company":"no id"}`,
		),
		Turns: raws(
			`{"sessionId":"s1","index":0,"score":5}`,
			`{"sessionId":"s2","index":0,"score":9}`,
			`{"sessionId":"s1","index":1,"score":7}`,
			`{"index":0}`,
		),
		Path:  "/exports/a.json",
		Hash:  "abc",
		Mtime: 42,
	})
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Sessions: 2, Turns: 3, Skipped: 2}, res)

	hash, mtime, ok := d.ImportedFile("/exports/a.json")
	require.True(t, ok)
	assert.Equal(t, "abc", hash)
	assert.Equal(t, int64(42), mtime)
	_, _, ok = d.ImportedFile("/exports/other.json")
	assert.False(t, ok)

	stats, err := d.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{
		SessionCount: 2, TurnCount: 3, UserCount: 1, FileCount: 1,
	}, stats)
}

func TestImportRollsBackOnError(t *testing.T) {
	d := testDB(t)
	_, err := d.Import(Batch{
		Sessions: raws(`{"sessionId":"s1"}`, `{broken`),
	})
	require.Error(t, err)

	stats, err := d.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.SessionCount)
}

func TestStoreAsDashboardSource(t *testing.T) {
	d := testDB(t)
	_, err := d.Import(Batch{
		Sessions: raws(
			`{"_id":"a","userId":"u1","company":"acme","startedAt":"2024-06-01T09:00:00Z"}`,
			`{"sessionId":"b","userId":"u1","company":"acme","createdAt":"2024-06-02T09:00:00Z"}`,
		),
		Turns: raws(
			`{"sessionId":"a","index":0,"score":6}`,
			`{"sessionId":"a","index":1,"score":6}`,
			`{"sessionId":"b","index":0,"score":8}`,
		),
	})
	require.NoError(t, err)

	l := dashboard.NewLoader(d, 2)
	dir, err := l.Directory(context.Background(), record.Identity{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, dir.Sessions, 2)
	assert.Equal(t, "b", dir.Sessions[0].ID)

	sum, err := l.Summary(context.Background(), dir.Sessions)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Summary.TotalTurns)
	require.Len(t, sum.Summary.CompanyAverages, 1)
	assert.Equal(t, 7.0, sum.Summary.CompanyAverages[0].Score)
	assert.Empty(t, sum.Warnings)
}
