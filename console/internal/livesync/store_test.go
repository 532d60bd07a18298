package livesync

import "testing"

func TestStoreGridSynthesizesPlaceholders(t *testing.T) {
	s := NewStore(4)

	frame := []byte(`{"type":"update","data":[{"station_id":2,"state":"running","voltage_mv":24100}]}`)
	if err := s.Apply(frame); err != nil {
		t.Fatalf("apply snapshot: %v", err)
	}

	grid := s.Grid()
	if len(grid) != 4 {
		t.Fatalf("expected a 4-slot grid, got %d", len(grid))
	}
	for i, st := range grid {
		if st.StationID != i+1 {
			t.Fatalf("slot %d holds station %d", i, st.StationID)
		}
	}
	if grid[1].State != StationRunning || grid[1].VoltageMV == nil {
		t.Fatalf("station 2 lost its live record: %+v", grid[1])
	}
	for _, i := range []int{0, 2, 3} {
		if grid[i].State != StationEmpty {
			t.Fatalf("expected placeholder for station %d, got state %s", i+1, grid[i].State)
		}
		if grid[i].VoltageMV != nil {
			t.Fatalf("placeholder for station %d carries readings", i+1)
		}
	}

	// The registry itself holds only what the wire said.
	if got := len(s.View().Stations); got != 1 {
		t.Fatalf("expected 1 station in the raw snapshot, got %d", got)
	}
}

func TestStoreViewIsIsolated(t *testing.T) {
	s := NewStore(2)

	if err := s.Apply([]byte(`{"type":"update","data":[{"station_id":1,"state":"ready"}]}`)); err != nil {
		t.Fatalf("apply snapshot: %v", err)
	}
	if err := s.Apply([]byte(`{"type":"task_awaiting_input","station_id":1,"task":{"task_id":9,"label":"Verify polarity"}}`)); err != nil {
		t.Fatalf("apply awaiting: %v", err)
	}
	s.SetConnected(true)

	v := s.View()
	v.Stations[0].State = "scribbled"
	v.AwaitingByStation[7] = AwaitingTask{TaskID: 99}

	fresh := s.View()
	if fresh.Stations[0].State != StationReady {
		t.Fatalf("mutating a view leaked into the store: %s", fresh.Stations[0].State)
	}
	if _, ok := fresh.AwaitingByStation[7]; ok {
		t.Fatal("mutating a view's awaiting map leaked into the store")
	}
	if !fresh.Connected {
		t.Fatal("expected connected view")
	}

	task, ok := s.Awaiting(1)
	if !ok || task.TaskID != 9 {
		t.Fatalf("expected awaiting task 9 for station 1, got %+v (ok=%v)", task, ok)
	}
}

func TestStoreStationCountFloor(t *testing.T) {
	s := NewStore(0)
	if got := s.StationCount(); got != 1 {
		t.Fatalf("expected station count floored to 1, got %d", got)
	}
	if got := len(s.Grid()); got != 1 {
		t.Fatalf("expected 1 grid slot, got %d", got)
	}
}
