package eventlog

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"flighttracker/internal/flight/models"
	"flighttracker/internal/storage/blob"
	"flighttracker/pkg/domain"
)

// recordingStore wraps a memory store, counting calls and injecting failures.
type recordingStore struct {
	*blob.Memory
	gets, puts, lists atomic.Int32

	mu      sync.Mutex
	getErr  map[string]error
	putErr  error
	listErr error
}

func newRecordingStore() *recordingStore {
	return &recordingStore{Memory: blob.NewMemory(), getErr: map[string]error{}}
}

func (s *recordingStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.gets.Add(1)
	s.mu.Lock()
	err := s.getErr[key]
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.Memory.Get(ctx, key)
}

func (s *recordingStore) Put(ctx context.Context, key string, data []byte) error {
	s.puts.Add(1)
	if s.putErr != nil {
		return s.putErr
	}
	return s.Memory.Put(ctx, key, data)
}

func (s *recordingStore) List(ctx context.Context, prefix string) ([]string, error) {
	s.lists.Add(1)
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.Memory.List(ctx, prefix)
}

func (s *recordingStore) failGet(key string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getErr[key] = err
}

func mustTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(err)
	}
	return t
}

func flight(id string, status domain.FlightStatus, createdAt, owner string) *models.Flight {
	return &models.Flight{ID: id, Status: status, CreatedAt: mustTime(createdAt), Owner: owner}
}

func ids(flights []models.Flight) []string {
	out := make([]string, 0, len(flights))
	for _, f := range flights {
		out = append(out, f.ID)
	}
	return out
}
