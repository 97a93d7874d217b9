package eventlog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flighttracker/internal/flight/models"
	"flighttracker/pkg/domain"
	dErrors "flighttracker/pkg/domain-errors"
	"flighttracker/pkg/requestcontext"
)

func TestWriterAppend(t *testing.T) {
	ctx := context.Background()

	t.Run("creates the partition with one line", func(t *testing.T) {
		store := newRecordingStore()
		w := NewWriter(store)

		res, err := w.Append(ctx, flight("e1", domain.FlightStatusSuccessful, "2024-11-12T10:00:00Z", "alice"))
		require.NoError(t, err)
		assert.Equal(t, "e1", res.ID)
		assert.Equal(t, "events/2024/11/12/flights.jsonl", res.PartitionKey)

		data, err := store.Memory.Get(ctx, res.PartitionKey)
		require.NoError(t, err)
		assert.Equal(t, `{"createdAt":"2024-11-12T10:00:00Z","id":"e1","owner":"alice","status":"successful"}`+"\n", string(data))
		assert.EqualValues(t, 1, store.puts.Load())
	})

	t.Run("appends after existing content", func(t *testing.T) {
		store := newRecordingStore()
		w := NewWriter(store)

		_, err := w.Append(ctx, flight("e1", domain.FlightStatusSuccessful, "2024-11-12T10:00:00Z", "alice"))
		require.NoError(t, err)
		_, err = w.Append(ctx, flight("e2", domain.FlightStatusFailure, "2024-11-12T11:00:00Z", "bob"))
		require.NoError(t, err)

		data, err := store.Memory.Get(ctx, "events/2024/11/12/flights.jsonl")
		require.NoError(t, err)
		flights, skipped := DecodeLines(data)
		assert.Zero(t, skipped)
		assert.Equal(t, []string{"e1", "e2"}, ids(flights))
	})

	t.Run("repairs a missing trailing newline", func(t *testing.T) {
		store := newRecordingStore()
		require.NoError(t, store.Memory.Put(ctx, "events/2024/11/12/flights.jsonl", []byte(`{"id":"old","status":"started"}`)))

		_, err := NewWriter(store).Append(ctx, flight("e1", domain.FlightStatusStarted, "2024-11-12T10:00:00Z", "alice"))
		require.NoError(t, err)

		data, _ := store.Memory.Get(ctx, "events/2024/11/12/flights.jsonl")
		flights, skipped := DecodeLines(data)
		assert.Zero(t, skipped)
		assert.Equal(t, []string{"old", "e1"}, ids(flights))
	})

	t.Run("stamps createdAt from the request clock", func(t *testing.T) {
		store := newRecordingStore()
		now := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
		f := &models.Flight{ID: "e1", Status: domain.FlightStatusStarted}

		res, err := NewWriter(store).Append(requestcontext.WithTime(ctx, now), f)
		require.NoError(t, err)
		assert.Equal(t, "events/2025/03/04/flights.jsonl", res.PartitionKey)
		assert.Equal(t, now, f.CreatedAt)
	})
}

func TestWriterValidationHappensBeforeIO(t *testing.T) {
	for name, f := range map[string]*models.Flight{
		"missing id":     {Status: domain.FlightStatusStarted},
		"missing status": {ID: "e1"},
		"unknown status": {ID: "e1", Status: "landed"},
	} {
		t.Run(name, func(t *testing.T) {
			store := newRecordingStore()
			_, err := NewWriter(store).Append(context.Background(), f)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
			assert.Zero(t, store.gets.Load())
			assert.Zero(t, store.puts.Load())
		})
	}
}

func TestWriterStoreFailures(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("connection reset")

	t.Run("read failure", func(t *testing.T) {
		store := newRecordingStore()
		store.failGet("events/2024/11/12/flights.jsonl", boom)

		_, err := NewWriter(store).Append(ctx, flight("e1", domain.FlightStatusStarted, "2024-11-12T10:00:00Z", "alice"))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
		assert.ErrorIs(t, err, boom)
		assert.Zero(t, store.puts.Load())
	})

	t.Run("write failure", func(t *testing.T) {
		store := newRecordingStore()
		store.putErr = boom

		_, err := NewWriter(store).Append(ctx, flight("e1", domain.FlightStatusStarted, "2024-11-12T10:00:00Z", "alice"))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	t.Run("cancelled context leaves storage untouched", func(t *testing.T) {
		store := newRecordingStore()
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := NewWriter(store).Append(cctx, flight("e1", domain.FlightStatusStarted, "2024-11-12T10:00:00Z", "alice"))
		require.ErrorIs(t, err, context.Canceled)
		keys, _ := store.Memory.List(ctx, RootPrefix)
		assert.Empty(t, keys)
	})
}
