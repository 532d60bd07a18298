package livesync

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Registry is the process-local cache built from the live feed. The
// station snapshot is replaced wholesale on every snapshot-bearing
// frame; the awaiting index is upserted incrementally and never
// cleared by this channel (the protocol has no resolution message).
//
// Frames are applied in transport delivery order by the single reader
// goroutine; the lock only shields concurrent readers.
type Registry struct {
	mu       sync.RWMutex
	stations []StationStatus
	awaiting map[int]AwaitingTask
}

func NewRegistry() *Registry {
	return &Registry{awaiting: make(map[int]AwaitingTask)}
}

// Apply decodes one frame and folds it into the registry. Unrecognized
// message kinds are ignored without error; undecodable frames return
// an error and leave state untouched.
func (r *Registry) Apply(frame []byte) error {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return fmt.Errorf("livesync: decode frame: %w", err)
	}

	switch env.Type {
	case MessageInitial, MessageUpdate:
		var stations []StationStatus
		if err := json.Unmarshal(env.Data, &stations); err != nil {
			return fmt.Errorf("livesync: decode %s snapshot: %w", env.Type, err)
		}
		sort.Slice(stations, func(i, j int) bool {
			return stations[i].StationID < stations[j].StationID
		})

		r.mu.Lock()
		r.stations = stations
		r.mu.Unlock()

	case MessageAwaitingInput:
		var task AwaitingTask
		if err := json.Unmarshal(env.Task, &task); err != nil {
			return fmt.Errorf("livesync: decode awaiting task: %w", err)
		}

		r.mu.Lock()
		r.awaiting[env.StationID] = task
		r.mu.Unlock()
	}

	return nil
}

// Stations returns a copy of the latest snapshot, ordered by station
// id. Stations absent from the latest snapshot are absent here.
func (r *Registry) Stations() []StationStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]StationStatus, len(r.stations))
	copy(out, r.stations)
	return out
}

// Awaiting returns a copy of the awaiting-input index.
func (r *Registry) Awaiting() map[int]AwaitingTask {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[int]AwaitingTask, len(r.awaiting))
	for id, task := range r.awaiting {
		out[id] = task
	}
	return out
}

// AwaitingFor reports the awaiting task for one station, if any.
func (r *Registry) AwaitingFor(stationID int) (AwaitingTask, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.awaiting[stationID]
	return task, ok
}
