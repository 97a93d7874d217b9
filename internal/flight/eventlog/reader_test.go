package eventlog

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"flighttracker/pkg/domain"
	dErrors "flighttracker/pkg/domain-errors"
	"flighttracker/pkg/platform/sentinel"
)

type ReaderSuite struct {
	suite.Suite
	ctx    context.Context
	store  *recordingStore
	writer *Writer
	reader *Reader
}

func (s *ReaderSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = newRecordingStore()
	s.writer = NewWriter(s.store)
	s.reader = NewReader(s.store, WithFetchConcurrency(2))
}

func TestReaderSuite(t *testing.T) {
	suite.Run(t, new(ReaderSuite))
}

func (s *ReaderSuite) seedAliceAndBob() {
	_, err := s.writer.Append(s.ctx, flight("e1", domain.FlightStatusSuccessful, "2024-11-12T10:00:00Z", "alice"))
	s.Require().NoError(err)
	_, err = s.writer.Append(s.ctx, flight("e2", domain.FlightStatusFailure, "2024-11-12T11:00:00Z", "bob"))
	s.Require().NoError(err)
}

func (s *ReaderSuite) TestOwnAndAllScopes() {
	s.seedAliceAndBob()
	alice := domain.Identity{UserID: "alice"}

	s.Run("own scope returns only the caller's flights", func() {
		res, err := s.reader.Query(s.ctx, Query{Predicates: ScopePredicates(domain.ScopeOwn, alice)})
		s.Require().NoError(err)
		s.Equal([]string{"e1"}, ids(res.Flights))
		s.Zero(res.Skipped)
	})

	s.Run("all scope returns every flight newest first", func() {
		res, err := s.reader.Query(s.ctx, Query{Predicates: ScopePredicates(domain.ScopeAll, alice)})
		s.Require().NoError(err)
		s.Equal([]string{"e2", "e1"}, ids(res.Flights))
		s.Equal(2, res.Matched)
		s.Equal(1, res.Partitions)
	})

	s.Run("status filter", func() {
		res, err := s.reader.Query(s.ctx, Query{Predicates: []Predicate{StatusEquals(domain.FlightStatusFailure)}})
		s.Require().NoError(err)
		s.Equal([]string{"e2"}, ids(res.Flights))
	})
}

func (s *ReaderSuite) TestMalformedLinesAreSkipped() {
	body := `{"id":"a","status":"started","createdAt":"2024-11-12T01:00:00Z"}
{"id":"b","status":"started","createdAt":"2024-11-12T02:00:00Z"}
{"id":"c","status":"started","createdAt":"2024-11-12T03:00:00Z"
{"id":"d","status":"started","createdAt":"2024-11-12T04:00:00Z"}
`
	s.Require().NoError(s.store.Memory.Put(s.ctx, "events/2024/11/12/flights.jsonl", []byte(body)))

	res, err := s.reader.Query(s.ctx, Query{})
	s.Require().NoError(err)
	s.Equal([]string{"d", "b", "a"}, ids(res.Flights))
	s.Equal(1, res.Skipped)
}

func (s *ReaderSuite) TestDateRange() {
	for i, ts := range []string{"2024-11-10T12:00:00Z", "2024-11-11T12:00:00Z", "2024-11-12T12:00:00Z"} {
		_, err := s.writer.Append(s.ctx, flight(fmt.Sprintf("d%d", i), domain.FlightStatusStarted, ts, "alice"))
		s.Require().NoError(err)
	}

	s.Run("range excluding all partitions is empty, not an error", func() {
		res, err := s.reader.Query(s.ctx, Query{From: mustTime("2023-01-01T00:00:00Z"), To: mustTime("2023-01-31T00:00:00Z")})
		s.Require().NoError(err)
		s.Empty(res.Flights)
		s.Zero(res.Skipped)
		s.Zero(res.Partitions)
	})

	s.Run("bounded range lists each day prefix", func() {
		before := s.store.lists.Load()
		res, err := s.reader.Query(s.ctx, Query{From: mustTime("2024-11-11T00:00:00Z"), To: mustTime("2024-11-12T23:59:59Z")})
		s.Require().NoError(err)
		s.Equal([]string{"d2", "d1"}, ids(res.Flights))
		s.EqualValues(2, s.store.lists.Load()-before)
	})

	s.Run("bounds are instants within a day", func() {
		res, err := s.reader.Query(s.ctx, Query{From: mustTime("2024-11-11T13:00:00Z")})
		s.Require().NoError(err)
		s.Equal([]string{"d2"}, ids(res.Flights))
	})

	s.Run("range wider than MaxRangeDays lists the root once", func() {
		before := s.store.lists.Load()
		res, err := s.reader.Query(s.ctx, Query{From: mustTime("2020-01-01T00:00:00Z"), To: mustTime("2024-11-11T23:00:00Z")})
		s.Require().NoError(err)
		s.Equal([]string{"d1", "d0"}, ids(res.Flights))
		s.EqualValues(1, s.store.lists.Load()-before)
	})
}

func (s *ReaderSuite) TestOrderingAndLimit() {
	for i := 0; i < 5; i++ {
		_, err := s.writer.Append(s.ctx, flight(fmt.Sprintf("t%d", 4-i), domain.FlightStatusStarted, "2024-11-12T10:00:00Z", "alice"))
		s.Require().NoError(err)
	}
	_, err := s.writer.Append(s.ctx, flight("newest", domain.FlightStatusStarted, "2024-11-13T10:00:00Z", "alice"))
	s.Require().NoError(err)

	res, err := s.reader.Query(s.ctx, Query{Limit: 3})
	s.Require().NoError(err)
	s.Equal([]string{"newest", "t0", "t1"}, ids(res.Flights))
	s.Equal(6, res.Matched)

	again, err := s.reader.Query(s.ctx, Query{Limit: 3})
	s.Require().NoError(err)
	s.Equal(res.Flights, again.Flights)
}

func (s *ReaderSuite) TestDuplicateIDsAreReturned() {
	for range 2 {
		_, err := s.writer.Append(s.ctx, flight("dup", domain.FlightStatusStarted, "2024-11-12T10:00:00Z", "alice"))
		s.Require().NoError(err)
	}
	res, err := s.reader.Query(s.ctx, Query{})
	s.Require().NoError(err)
	s.Equal([]string{"dup", "dup"}, ids(res.Flights))
}

func (s *ReaderSuite) TestStoreFailures() {
	s.seedAliceAndBob()

	s.Run("missing partition reads as empty", func() {
		s.store.failGet("events/2024/11/12/flights.jsonl", fmt.Errorf("gone: %w", sentinel.ErrNotFound))
		res, err := s.reader.Query(s.ctx, Query{})
		s.Require().NoError(err)
		s.Empty(res.Flights)
	})

	s.Run("download failure is unavailable", func() {
		boom := errors.New("503 slow down")
		s.store.failGet("events/2024/11/12/flights.jsonl", boom)
		_, err := s.reader.Query(s.ctx, Query{})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
		s.ErrorIs(err, boom)
	})

	s.Run("list failure is unavailable", func() {
		s.store.listErr = errors.New("access denied")
		_, err := s.reader.Query(s.ctx, Query{})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
}

func TestEffectiveLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, EffectiveLimit(0))
	assert.Equal(t, 5, EffectiveLimit(5))
	assert.Equal(t, MaxLimit, EffectiveLimit(MaxLimit+1))
	assert.Equal(t, Unlimited, EffectiveLimit(-7))
}

func TestReaderDefaultLimitAndUnlimited(t *testing.T) {
	ctx := context.Background()
	store := newRecordingStore()
	w := NewWriter(store)
	for i := 0; i < DefaultLimit+5; i++ {
		_, err := w.Append(ctx, flight(fmt.Sprintf("f%03d", i), domain.FlightStatusStarted, "2024-11-12T10:00:00Z", "alice"))
		require.NoError(t, err)
	}
	r := NewReader(store)

	res, err := r.Query(ctx, Query{})
	require.NoError(t, err)
	assert.Len(t, res.Flights, DefaultLimit)
	assert.Equal(t, DefaultLimit+5, res.Matched)

	res, err = r.Query(ctx, Query{Limit: Unlimited})
	require.NoError(t, err)
	assert.Len(t, res.Flights, DefaultLimit+5)
}

func TestReaderIgnoresForeignKeys(t *testing.T) {
	ctx := context.Background()
	store := newRecordingStore()
	require.NoError(t, store.Memory.Put(ctx, "events/README.md", []byte("not a partition")))
	require.NoError(t, store.Memory.Put(ctx, "events/2024/11/12/other.jsonl", []byte(`{"id":"x","status":"started"}`)))

	res, err := NewReader(store).Query(ctx, Query{})
	require.NoError(t, err)
	assert.Empty(t, res.Flights)
	assert.Zero(t, res.Partitions)
}
