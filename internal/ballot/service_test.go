package ballot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/SlpAus/campus-election-backend/internal/code"
	"github.com/SlpAus/campus-election-backend/internal/testutil"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-test/deep"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	mr    *miniredis.Miniredis
	rdb   *redis.Client
	codes *code.Registry
	svc   *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr, rdb := testutil.NewRedis(t)
	codes := code.NewRegistry(rdb, nil)
	_, err := codes.Seed(context.Background())
	require.NoError(t, err)

	svc := NewService(rdb, codes)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC) }
	return &fixture{mr: mr, rdb: rdb, codes: codes, svc: svc}
}

// snapshot 返回所有键及其内容，用于比较前后状态
func (f *fixture) snapshot(t *testing.T) map[string]string {
	t.Helper()
	out := make(map[string]string)
	for _, k := range f.mr.Keys() {
		switch f.mr.Type(k) {
		case "string":
			v, _ := f.mr.Get(k)
			out[k] = v
		case "hash":
			fields, _ := f.mr.HKeys(k)
			vals := map[string]string{}
			for _, field := range fields {
				vals[field] = f.mr.HGet(k, field)
			}
			b, _ := json.Marshal(vals)
			out[k] = string(b)
		case "list":
			l, _ := f.mr.List(k)
			b, _ := json.Marshal(l)
			out[k] = string(b)
		}
	}
	return out
}

func TestRecordBallotExample(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.svc.RecordBallot(ctx, "S1", map[string]string{"President": "Alice"}, "Juan", "a1b2c3")
	require.NoError(t, err)

	results, err := f.svc.ComputeResults(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, results.Flatten()["President_Alice"])
	require.Len(t, results.Ballots, 1)
	assert.Equal(t, "S1", results.Ballots[0].StudentID)
	assert.Equal(t, "Juan", results.Ballots[0].Name)
	assert.Equal(t, "a1b2c3", results.Ballots[0].Code)

	flag, err := f.mr.Get(VotedFlagKey("S1"))
	require.NoError(t, err)
	assert.Equal(t, "1", flag)
	assert.Equal(t, "Juan", f.mr.HGet(VoterAuthKey("S1"), "name"))
	assert.Equal(t, "a1b2c3", f.mr.HGet(VoterAuthKey("S1"), "code"))

	status, err := f.codes.Check(ctx, "a1b2c3")
	require.NoError(t, err)
	assert.Equal(t, code.StatusAlreadyUsed, status)
}

func TestRecordBallotInvalidInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	votes := map[string]string{"President": "Alice"}

	tests := []struct {
		name      string
		studentID string
		votes     map[string]string
		code      string
	}{
		{"missing student", "", votes, "a1b2c3"},
		{"missing votes", "S1", nil, "a1b2c3"},
		{"empty votes", "S1", map[string]string{}, "a1b2c3"},
		{"missing code", "S1", votes, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.svc.RecordBallot(ctx, tt.studentID, tt.votes, "Juan", tt.code)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestRecordBallotUnknownCode(t *testing.T) {
	f := newFixture(t)
	before := f.snapshot(t)

	err := f.svc.RecordBallot(context.Background(), "S1", map[string]string{"President": "Alice"}, "Juan", "nope00")
	assert.ErrorIs(t, err, ErrCodeNotFound)
	assert.Equal(t, before, f.snapshot(t))
}

func TestRecordBallotUsedCodeLeavesStateUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.svc.RecordBallot(ctx, "S1", map[string]string{"President": "Alice"}, "Juan", "a1b2c3"))

	before := f.snapshot(t)
	err := f.svc.RecordBallot(ctx, "S2", map[string]string{"President": "Bob"}, "Maria", "a1b2c3")
	assert.ErrorIs(t, err, ErrCodeAlreadyUsed)
	assert.Equal(t, before, f.snapshot(t))
}

func TestRecordBallotEmptyCandidateCountsAsNoSelection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	votes := map[string]string{"President": "Alice", "Treasurer": ""}
	require.NoError(t, f.svc.RecordBallot(ctx, "S1", votes, "Juan", "a1b2c3"))

	results, err := f.svc.ComputeResults(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, results.Tallies[TallyKey{Position: "Treasurer", Candidate: NoSelection}])
	assert.Equal(t, 1, results.Tallies[TallyKey{Position: "President", Candidate: "Alice"}])
}

func TestTallySumMatchesBallotsPerPosition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	candidates := []string{"Alice", "Bob", "Carla", ""}

	pool := f.codes.Codes()
	for i := 0; i < 20; i++ {
		votes := map[string]string{"President": candidates[i%len(candidates)]}
		if i%3 == 0 {
			votes["Secretary"] = candidates[(i+1)%len(candidates)]
		}
		require.NoError(t, f.svc.RecordBallot(ctx, fmt.Sprintf("S%d", i), votes, "", pool[i]))
	}

	results, err := f.svc.ComputeResults(ctx)
	require.NoError(t, err)

	sums := map[string]int{}
	for k, v := range results.Tallies {
		sums[k.Position] += v
	}
	referencing := map[string]int{}
	for _, b := range results.Ballots {
		for position := range b.Votes {
			referencing[position]++
		}
	}
	assert.Equal(t, referencing, sums)
	assert.Equal(t, 20, sums["President"])
	assert.Equal(t, 7, sums["Secretary"])
}

func TestComputeResultsOrderAndUnknownVoter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.RecordBallot(ctx, "S1", map[string]string{"President": "Alice"}, "Juan", "a1b2c3"))
	require.NoError(t, f.svc.RecordBallot(ctx, "S2", map[string]string{"President": "Bob"}, "", "f7g8h9"))

	results, err := f.svc.ComputeResults(ctx)
	require.NoError(t, err)
	require.Len(t, results.Ballots, 2)
	assert.Equal(t, "S2", results.Ballots[0].StudentID)
	assert.Equal(t, UnknownVoter, results.Ballots[0].Name)
	assert.Equal(t, "S1", results.Ballots[1].StudentID)

	want := map[TallyKey]int{
		{Position: "President", Candidate: "Alice"}: 1,
		{Position: "President", Candidate: "Bob"}:   1,
	}
	if diff := deep.Equal(results.Tallies, want); diff != nil {
		t.Error(diff)
	}
}

func TestComputeResultsEmptyKeyspace(t *testing.T) {
	_, rdb := testutil.NewRedis(t)
	svc := NewService(rdb, code.NewRegistry(rdb, nil))

	results, err := svc.ComputeResults(context.Background())
	require.NoError(t, err)
	assert.Empty(t, results.Tallies)
	assert.NotNil(t, results.Ballots)
	assert.Empty(t, results.Ballots)
}

func TestComputeResultsReadsLegacyRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	legacy := `{"studentID":"OLD","votes":{"President":"Alice"},"time":"2024-05-01T09:30:00.000Z"}`
	_, err := f.mr.Lpush(RecordsKey, legacy)
	require.NoError(t, err)
	_, err = f.mr.Lpush(RecordsKey, "not json")
	require.NoError(t, err)

	results, err := f.svc.ComputeResults(ctx)
	require.NoError(t, err)
	require.Len(t, results.Ballots, 1)
	assert.Equal(t, "OLD", results.Ballots[0].StudentID)
	assert.Equal(t, UnknownVoter, results.Ballots[0].Name)
	assert.Equal(t, "2024-05-01T09:30:00.000Z", results.Ballots[0].Time)
}

func TestRecordBallotStoresIsoMillisTime(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.RecordBallot(context.Background(), "S1", map[string]string{"President": "Alice"}, "Juan", "a1b2c3"))

	l, err := f.mr.List(RecordsKey)
	require.NoError(t, err)
	require.Len(t, l, 1)
	assert.Contains(t, l[0], `"time":"2026-03-01T08:00:00.000Z"`)
}

func TestLegacyBallotWithFreeformTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	legacy := `{"studentID":"L1","name":"Lea","votes":{"President":"Alice"},"time":"Mon Jan 01 2024","section":"BSIT-2A"}`
	_, err := f.mr.Lpush(RecordsKey, legacy)
	require.NoError(t, err)
	f.mr.HSet(tallyKey("President"), "Alice", "1")

	results, err := f.svc.ComputeResults(ctx)
	require.NoError(t, err)
	require.Len(t, results.Ballots, 1)
	assert.Equal(t, "Mon Jan 01 2024", results.Ballots[0].Time)

	out, err := json.Marshal(results.Ballots[0])
	require.NoError(t, err)
	assert.Contains(t, string(out), `"section":"BSIT-2A"`)
	assert.Contains(t, string(out), `"time":"Mon Jan 01 2024"`)

	removed, err := f.svc.RemoveBallot(ctx, "L1")
	require.NoError(t, err)
	assert.Equal(t, "Lea", removed.Name)
	assert.False(t, f.mr.Exists(tallyKey("President")))
}

func TestBallotNonStringTimeKeptVerbatim(t *testing.T) {
	var b Ballot
	require.NoError(t, json.Unmarshal([]byte(`{"studentID":"L2","votes":{},"time":1704067200000}`), &b))
	assert.Equal(t, "1704067200000", b.Time)
	assert.Nil(t, b.Extra)
}

func TestRemoveBallotKeepsFlagWhileOlderBallotRemains(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.RecordBallot(ctx, "S1", map[string]string{"President": "Alice"}, "Juan", "a1b2c3"))
	require.NoError(t, f.svc.RecordBallot(ctx, "S1", map[string]string{"President": "Bob"}, "Juan P.", "f7g8h9"))

	removed, err := f.svc.RemoveBallot(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, "f7g8h9", removed.Code)

	results, err := f.svc.ComputeResults(ctx)
	require.NoError(t, err)
	require.Len(t, results.Ballots, 1)
	assert.Equal(t, "a1b2c3", results.Ballots[0].Code)
	assert.True(t, f.mr.Exists(VotedFlagKey("S1")))
	assert.Equal(t, "a1b2c3", f.mr.HGet(VoterAuthKey("S1"), "code"))
	assert.Equal(t, "Juan", f.mr.HGet(VoterAuthKey("S1"), "name"))

	_, err = f.svc.RemoveBallot(ctx, "S1")
	require.NoError(t, err)
	assert.False(t, f.mr.Exists(VotedFlagKey("S1")))
	assert.False(t, f.mr.Exists(VoterAuthKey("S1")))
	assert.Empty(t, results.Flatten()["President_Bob"])
}

func TestRemoveBallotRestoresEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.RecordBallot(ctx, "S1", map[string]string{"President": "Alice", "VP": "Dan"}, "Juan", "a1b2c3"))
	require.NoError(t, f.svc.RecordBallot(ctx, "S2", map[string]string{"President": "Alice", "VP": ""}, "Maria", "f7g8h9"))

	removed, err := f.svc.RemoveBallot(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, "a1b2c3", removed.Code)

	results, err := f.svc.ComputeResults(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{
		"President_Alice":   1,
		"VP_" + NoSelection: 1,
	}, results.Flatten())
	require.Len(t, results.Ballots, 1)
	assert.Equal(t, "S2", results.Ballots[0].StudentID)

	assert.False(t, f.mr.Exists(VotedFlagKey("S1")))
	assert.False(t, f.mr.Exists(VoterAuthKey("S1")))
	assert.True(t, f.mr.Exists(VotedFlagKey("S2")))

	status, err := f.codes.Check(ctx, "a1b2c3")
	require.NoError(t, err)
	assert.Equal(t, code.StatusValid, status)
}

func TestRemoveBallotThenRecordWithRestoredCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.RecordBallot(ctx, "S1", map[string]string{"President": "Alice"}, "Juan", "a1b2c3"))
	_, err := f.svc.RemoveBallot(ctx, "S1")
	require.NoError(t, err)

	require.NoError(t, f.svc.RecordBallot(ctx, "S9", map[string]string{"President": "Bob"}, "Ana", "a1b2c3"))

	results, err := f.svc.ComputeResults(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"President_Bob": 1}, results.Flatten())
}

func TestRemoveBallotPreservesOrderOfOthers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pool := f.codes.Codes()

	for i := 1; i <= 4; i++ {
		require.NoError(t, f.svc.RecordBallot(ctx, fmt.Sprintf("S%d", i), map[string]string{"President": "Alice"}, "", pool[i]))
	}
	_, err := f.svc.RemoveBallot(ctx, "S2")
	require.NoError(t, err)

	results, err := f.svc.ComputeResults(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(results.Ballots))
	for _, b := range results.Ballots {
		ids = append(ids, b.StudentID)
	}
	assert.Equal(t, []string{"S4", "S3", "S1"}, ids)
	assert.Equal(t, 3, results.Flatten()["President_Alice"])
}

func TestRemoveBallotNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.RemoveBallot(ctx, "S1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, f.svc.RecordBallot(ctx, "S1", map[string]string{"President": "Alice"}, "Juan", "a1b2c3"))
	_, err = f.svc.RemoveBallot(ctx, "S404")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveBallotWithoutCodeAndMissingCounters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	legacy := Ballot{StudentID: "OLD", Votes: map[string]string{"President": "Ghost", "VP": "Eve"}}
	b, err := json.Marshal(legacy)
	require.NoError(t, err)
	_, err = f.mr.Lpush(RecordsKey, string(b))
	require.NoError(t, err)
	f.mr.HSet(tallyKey("VP"), "Eve", "3")
	f.mr.HSet(tallyKey("President"), "Ghost", "0")

	before, err := f.mr.Get(code.Key("a1b2c3"))
	require.NoError(t, err)

	_, err = f.svc.RemoveBallot(ctx, "OLD")
	require.NoError(t, err)

	assert.Equal(t, "2", f.mr.HGet(tallyKey("VP"), "Eve"))
	assert.Equal(t, "0", f.mr.HGet(tallyKey("President"), "Ghost"))
	after, err := f.mr.Get(code.Key("a1b2c3"))
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.False(t, f.mr.Exists(RecordsKey))
}

func TestResetAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pool := f.codes.Codes()

	for i := 0; i < 5; i++ {
		require.NoError(t, f.svc.RecordBallot(ctx, fmt.Sprintf("S%d", i), map[string]string{"President": "Alice", "VP": "Bob"}, "", pool[i]))
	}
	// 池中的码被意外删除后，重置也必须把它恢复为 unused
	f.mr.Del(code.Key(pool[29]))

	require.NoError(t, f.svc.ResetAll(ctx))

	results, err := f.svc.ComputeResults(ctx)
	require.NoError(t, err)
	assert.Empty(t, results.Tallies)
	assert.Empty(t, results.Ballots)

	for i := 0; i < 5; i++ {
		assert.False(t, f.mr.Exists(VotedFlagKey(fmt.Sprintf("S%d", i))))
	}
	for _, c := range pool {
		status, err := f.codes.Check(ctx, c)
		require.NoError(t, err)
		assert.Equal(t, code.StatusValid, status, c)
	}
}

func TestResetAllOnEmptyStore(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.ResetAll(context.Background()))
}

func TestConcurrentBallotsSameCodeOnlyOneWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const voters = 8
	errs := make([]error, voters)
	var wg sync.WaitGroup
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f.svc.RecordBallot(ctx, fmt.Sprintf("S%d", i), map[string]string{"President": "Alice"}, "", "a1b2c3")
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.True(t, errors.Is(err, ErrCodeAlreadyUsed) || errors.Is(err, ErrConflict), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, ok)

	results, err := f.svc.ComputeResults(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, results.Flatten()["President_Alice"])
	assert.Len(t, results.Ballots, 1)
}

func TestConcurrentBallotsDistinctCodes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pool := f.codes.Codes()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, f.svc.RecordBallot(ctx, fmt.Sprintf("S%d", i), map[string]string{"President": "Alice"}, "", pool[i]))
		}(i)
	}
	wg.Wait()

	results, err := f.svc.ComputeResults(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, results.Flatten()["President_Alice"])
	assert.Len(t, results.Ballots, 10)
}

func TestTallyKeyString(t *testing.T) {
	assert.Equal(t, "President_Alice", TallyKey{Position: "President", Candidate: "Alice"}.String())
}
