package livesync

import "sync/atomic"

// View is one consistent read of everything the feed knows.
type View struct {
	Stations          []StationStatus
	AwaitingByStation map[int]AwaitingTask
	Connected         bool
}

// Store is the consumption boundary: every console view reads the one
// shared instance instead of owning a connection. Construct it once at
// application root and pass it by handle; tests build isolated ones.
type Store struct {
	registry     *Registry
	stationCount int
	connected    atomic.Bool
}

// NewStore builds a store sized for stationCount bays.
func NewStore(stationCount int) *Store {
	if stationCount < 1 {
		stationCount = 1
	}
	return &Store{registry: NewRegistry(), stationCount: stationCount}
}

// Apply feeds one wire frame through to the registry.
func (s *Store) Apply(frame []byte) error {
	return s.registry.Apply(frame)
}

// SetConnected records the connection manager's open/closed flips.
func (s *Store) SetConnected(connected bool) {
	s.connected.Store(connected)
}

// Connected reports whether the live connection is open right now.
func (s *Store) Connected() bool {
	return s.connected.Load()
}

// StationCount is the configured number of bays.
func (s *Store) StationCount() int {
	return s.stationCount
}

// View returns the current snapshot, awaiting index and connection
// flag. Everything is copied; callers cannot reach shared state.
func (s *Store) View() View {
	return View{
		Stations:          s.registry.Stations(),
		AwaitingByStation: s.registry.Awaiting(),
		Connected:         s.connected.Load(),
	}
}

// Grid returns stations 1..stationCount in order, synthesizing a
// default empty record for any id missing from the current snapshot.
// The synthesis happens here, never in the registry.
func (s *Store) Grid() []StationStatus {
	known := s.registry.Stations()
	byID := make(map[int]StationStatus, len(known))
	for _, st := range known {
		byID[st.StationID] = st
	}

	grid := make([]StationStatus, 0, s.stationCount)
	for id := 1; id <= s.stationCount; id++ {
		if st, ok := byID[id]; ok {
			grid = append(grid, st)
			continue
		}
		grid = append(grid, StationStatus{StationID: id, State: StationEmpty})
	}
	return grid
}

// Awaiting reports the awaiting task for one station, if any.
func (s *Store) Awaiting(stationID int) (AwaitingTask, bool) {
	return s.registry.AwaitingFor(stationID)
}
