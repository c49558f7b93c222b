package recordings

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"paricus-portal/internal/cdrstore"
	"paricus-portal/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedFixture writes the synthetic universe, hidden rows included, into a SQLite file laid
// out like the production CDR table and returns its path.
func seedFixture(t *testing.T, rows []CallRecord) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cdr.db")
	db, err := sql.Open("sqlite", "file:"+path+"?_time_format=sqlite")
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE interactions (
		interactionid       TEXT PRIMARY KEY,
		calltype            TEXT,
		starttime           DATETIME,
		endtime             DATETIME,
		customerphonenumber TEXT,
		agentname           TEXT,
		audiofilename       TEXT,
		tags                TEXT
	)`)
	require.NoError(t, err)

	tx, err := db.Begin()
	require.NoError(t, err)
	stmt, err := tx.Prepare(`INSERT INTO interactions VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	require.NoError(t, err)
	for _, r := range rows {
		var tags any = r.Tags
		if r.Tags == "" {
			tags = nil
		}
		_, err := stmt.Exec(r.InteractionID, r.CallType, r.StartTime, r.EndTime,
			r.CustomerPhoneNumber, r.AgentName, r.AudioFileName, tags)
		require.NoError(t, err)
	}
	require.NoError(t, stmt.Close())
	require.NoError(t, tx.Commit())
	return path
}

func newLiveGateway(t *testing.T, poolMax int) (*Gateway, *MockSource, *cdrstore.Handle) {
	t.Helper()
	src := NewMockSource()
	path := seedFixture(t, src.Universe())

	layer := newLayer()
	h := cdrstore.NewHandle(config.CDRConfig{
		Driver:         config.DriverSQLite,
		Name:           path,
		PoolMin:        1,
		PoolMax:        poolMax,
		AcquireTimeout: 2 * time.Second,
		ConnectTimeout: 2 * time.Second,
		RequestTimeout: 5 * time.Second,
	}, cdrstore.WithCloseHook(layer.FlushAll))
	t.Cleanup(func() { _ = h.Close(context.Background()) })

	// The live gateway gets its own mock source so any fallback would show up in Calls.
	return NewGateway(h, layer, WithMockSource(NewMockSource())), src, h
}

func TestLive_MatchesMockSemantics(t *testing.T) {
	live, _, _ := newLiveGateway(t, 4)
	mock, _ := newMockGateway(t)
	ctx := context.Background()

	for name, f := range filterCatalog() {
		want, err := mock.ListRecordings(ctx, f, 500, 0)
		require.NoError(t, err)
		got, err := live.ListRecordings(ctx, f, 500, 0)
		require.NoError(t, err, name)

		assert.Equal(t, want.TotalCount, got.TotalCount, name)
		require.Equal(t, ids(want.Records), ids(got.Records), name)
		for i := range want.Records {
			w, g := want.Records[i], got.Records[i]
			assert.Equal(t, w.CompanyName, g.CompanyName, name)
			assert.Equal(t, w.HasAudio(), g.HasAudio(), name)
			assert.True(t, w.StartTime.Equal(g.StartTime), "%s: start %v vs %v", name, w.StartTime, g.StartTime)
			assert.Equal(t, w.AgentName, g.AgentName, name)
		}
	}
	assert.Zero(t, live.mock.Calls(), "configured gateway must not use synthetic data")
}

func TestLive_HasAudioExcludesNullAndEmpty(t *testing.T) {
	live, src, _ := newLiveGateway(t, 2)
	ctx := context.Background()

	var nullID, emptyID string
	for _, r := range src.Universe() {
		if !visible(r) {
			continue
		}
		switch {
		case r.AudioFileName == nil && nullID == "":
			nullID = r.InteractionID
		case r.AudioFileName != nil && *r.AudioFileName == "" && emptyID == "":
			emptyID = r.InteractionID
		}
	}
	require.NotEmpty(t, nullID)
	require.NotEmpty(t, emptyID)

	with, err := live.ListRecordings(ctx, FilterSet{HasAudio: boolPtr(true)}, 500, 0)
	require.NoError(t, err)
	assert.NotContains(t, ids(with.Records), nullID)
	assert.NotContains(t, ids(with.Records), emptyID)

	without, err := live.ListRecordings(ctx, FilterSet{HasAudio: boolPtr(false)}, 500, 0)
	require.NoError(t, err)
	assert.Contains(t, ids(without.Records), nullID)
	assert.Contains(t, ids(without.Records), emptyID)
}

func TestLive_PaginationStability(t *testing.T) {
	live, _, _ := newLiveGateway(t, 2)
	ctx := context.Background()
	f := FilterSet{HasAudio: boolPtr(true)}

	p1, err := live.ListRecordings(ctx, f, 10, 0)
	require.NoError(t, err)
	p2, err := live.ListRecordings(ctx, f, 10, 10)
	require.NoError(t, err)
	both, err := live.ListRecordings(ctx, f, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, ids(both.Records), append(ids(p1.Records), ids(p2.Records)...))
}

func TestLive_SinglePoolConnectionStillJoinsBothQueries(t *testing.T) {
	live, _, _ := newLiveGateway(t, 1)
	page, err := live.ListRecordings(context.Background(), FilterSet{Company: "Tempo Wireless"}, 5, 0)
	require.NoError(t, err)
	n, err := live.CountRecordings(context.Background(), FilterSet{Company: "Tempo Wireless"})
	require.NoError(t, err)
	assert.Equal(t, n, page.TotalCount)
}

func TestLive_LookupsAndConnectivity(t *testing.T) {
	live, _, _ := newLiveGateway(t, 2)
	mock, _ := newMockGateway(t)
	ctx := context.Background()

	r, err := live.GetRecordingByID(ctx, "MOCK-000001")
	require.NoError(t, err)
	assert.Equal(t, "Flex Mobile", r.CompanyName)
	_, err = live.GetRecordingByID(ctx, "MOCK-000017")
	assert.ErrorIs(t, err, ErrNotFound)

	wantAgents, err := mock.ListDistinctAgentNames(ctx)
	require.NoError(t, err)
	gotAgents, err := live.ListDistinctAgentNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, wantAgents, gotAgents)

	wantTags, err := mock.ListDistinctTags(ctx)
	require.NoError(t, err)
	gotTags, err := live.ListDistinctTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, wantTags, gotTags)

	types, err := live.ListDistinctCallTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"inbound"}, types)

	c := live.TestConnectivity(ctx)
	assert.True(t, c.OK, c.Message)
	assert.Equal(t, ModeLive, c.Mode)
}

func TestLive_CloseFlushesCachesAndFailsTyped(t *testing.T) {
	live, _, h := newLiveGateway(t, 2)
	ctx := context.Background()

	_, err := live.ListRecordings(ctx, FilterSet{}, 5, 0)
	require.NoError(t, err)
	require.NoError(t, h.Close(ctx))

	_, err = live.ListRecordings(ctx, FilterSet{}, 5, 0)
	require.Error(t, err, "cache must be empty after close")
	assert.ErrorIs(t, err, cdrstore.ErrClosed)
	var qe *QueryError
	require.ErrorAs(t, err, &qe)
	assert.True(t, qe.Unavailable())
}
