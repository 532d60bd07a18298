package sim

import (
	"reflect"
	"testing"
	"time"

	"cellbench/backend/services/bench-server/internal/models"
)

func TestFleetSameSeedSameRun(t *testing.T) {
	a := NewFleet(12, 42)
	b := NewFleet(12, 42)

	if !reflect.DeepEqual(a.InitialStates(), b.InitialStates()) {
		t.Fatalf("initial states diverge for the same seed")
	}
	for i := 0; i < 5; i++ {
		sa := a.Advance(time.Second)
		sb := b.Advance(time.Second)
		if !reflect.DeepEqual(sa, sb) {
			t.Fatalf("telemetry diverges at step %d", i)
		}
	}
}

func TestFleetDemoShape(t *testing.T) {
	f := NewFleet(12, 1)
	states := f.InitialStates()
	if len(states) != 12 {
		t.Fatalf("expected 12 stations, got %d", len(states))
	}

	for i, st := range states {
		if st.StationID != i+1 {
			t.Fatalf("expected station %d at index %d, got %d", i+1, i, st.StationID)
		}
	}

	for id := 1; id <= 4; id++ {
		st := states[id-1]
		if st.State != models.StateRunning {
			t.Fatalf("station %d: expected running, got %s", id, st.State)
		}
		if !st.EEPROMPresent || st.BatteryConfig == nil {
			t.Fatalf("station %d: running station must expose its pack", id)
		}
		if st.TestPhase == nil || st.ElapsedTimeS == nil {
			t.Fatalf("station %d: running station must report phase and elapsed time", id)
		}
	}
	for id := 5; id <= 8; id++ {
		st := states[id-1]
		if st.State != models.StateReady {
			t.Fatalf("station %d: expected ready, got %s", id, st.State)
		}
		if st.VoltageMV == nil || !st.TemperatureValid {
			t.Fatalf("station %d: docked station must report readings", id)
		}
	}
	for id := 9; id <= 10; id++ {
		if states[id-1].State != models.StateComplete {
			t.Fatalf("station %d: expected complete, got %s", id, states[id-1].State)
		}
	}

	faulted := states[10]
	if faulted.State != models.StateError {
		t.Fatalf("station 11: expected error, got %s", faulted.State)
	}
	if faulted.ErrorMessage == nil || *faulted.ErrorMessage != "Over-temperature fault (52.6 C)" {
		t.Fatalf("station 11: unexpected fault %v", faulted.ErrorMessage)
	}
	if faulted.TemperatureC == nil || *faulted.TemperatureC != 52.6 {
		t.Fatalf("station 11: expected the over-temperature reading, got %v", faulted.TemperatureC)
	}

	empty := states[11]
	if empty.State != models.StateEmpty || empty.EEPROMPresent || empty.VoltageMV != nil {
		t.Fatalf("station 12: expected a bare bay, got %+v", empty)
	}
}

func TestFleetAdvanceSamplesEveryStation(t *testing.T) {
	f := NewFleet(12, 7)

	first := f.Advance(time.Second)
	if len(first) != 12 {
		t.Fatalf("expected 12 samples, got %d", len(first))
	}
	for i, tel := range first {
		if tel.StationID != i+1 {
			t.Fatalf("expected station %d at index %d, got %d", i+1, i, tel.StationID)
		}
	}

	if first[11].EEPROMPresent {
		t.Fatalf("empty bay must not report a pack")
	}
	if first[10].Fault == nil {
		t.Fatalf("faulted station must report its fault")
	}
	if first[0].ElapsedTimeS == nil {
		t.Fatalf("running station must report elapsed time")
	}

	second := f.Advance(time.Second)
	if *second[0].ElapsedTimeS <= *first[0].ElapsedTimeS {
		t.Fatalf("elapsed time must grow: %v then %v", *first[0].ElapsedTimeS, *second[0].ElapsedTimeS)
	}
}

func TestFleetDockAndUndock(t *testing.T) {
	f := NewFleet(12, 7)

	if err := f.Dock(99); err == nil {
		t.Fatalf("expected dock on unknown station to fail")
	}
	if err := f.Dock(12); err != nil {
		t.Fatalf("dock: %v", err)
	}
	if err := f.Dock(12); err == nil {
		t.Fatalf("expected double dock to fail")
	}

	samples := f.Advance(time.Second)
	if !samples[11].EEPROMPresent || samples[11].BatteryConfig == nil {
		t.Fatalf("docked station must present its pack")
	}

	if err := f.SetCharge(12, 8900, 350); err != nil {
		t.Fatalf("set charge: %v", err)
	}
	samples = f.Advance(time.Second)
	if samples[11].CurrentMA == nil || *samples[11].CurrentMA != 350 {
		t.Fatalf("expected charge current 350, got %v", samples[11].CurrentMA)
	}
	if samples[11].ElapsedTimeS == nil || *samples[11].ElapsedTimeS != 1 {
		t.Fatalf("expected 1s elapsed, got %v", samples[11].ElapsedTimeS)
	}

	if err := f.Undock(12); err != nil {
		t.Fatalf("undock: %v", err)
	}
	samples = f.Advance(time.Second)
	if samples[11].EEPROMPresent {
		t.Fatalf("undocked station must not present a pack")
	}
	if err := f.SetCharge(12, 8900, 350); err == nil {
		t.Fatalf("expected charge on empty bay to fail")
	}
	if err := f.SetCharge(11, 8900, 350); err == nil {
		t.Fatalf("expected charge on faulted station to fail")
	}
}

func TestFleetDischargeStopsAtFloor(t *testing.T) {
	f := NewFleet(12, 3)

	// Station 2 runs the capacity discharge down to its 5000mV floor;
	// an hour is far past depletion.
	samples := f.Advance(time.Hour)
	s2 := samples[1]
	if s2.VoltageMV == nil || *s2.VoltageMV != 5000 {
		t.Fatalf("expected floor voltage 5000, got %v", s2.VoltageMV)
	}
	if s2.CurrentMA == nil || *s2.CurrentMA != 0 {
		t.Fatalf("expected load off at floor, got %v", s2.CurrentMA)
	}
}

func TestFleetChargeCurve(t *testing.T) {
	f := NewFleet(12, 9)

	// Station 5 sits ready with an 8900mV-limit pack. The ramp climbs
	// at least 67mV per 30s sample while the jitter stays within 5mV,
	// so the readings must rise strictly through the first 5 minutes.
	if err := f.SetCharge(5, 8900, 350); err != nil {
		t.Fatalf("set charge: %v", err)
	}

	prev := 0
	for step := 1; step <= 10; step++ {
		samples := f.Advance(30 * time.Second)
		s5 := samples[4]
		if s5.VoltageMV == nil {
			t.Fatalf("step %d: charging station must report voltage", step)
		}
		if *s5.VoltageMV <= prev {
			t.Fatalf("step %d: voltage must climb during the ramp: %d then %d", step, prev, *s5.VoltageMV)
		}
		prev = *s5.VoltageMV
	}
	if prev < 8895 || prev > 8905 {
		t.Fatalf("expected the charge limit after the ramp, got %d", prev)
	}

	// The -dV drop completes at 8 minutes: 50mV per cell off the peak.
	var v int
	for step := 0; step < 6; step++ {
		samples := f.Advance(30 * time.Second)
		v = *samples[4].VoltageMV
	}
	if v < 8645 || v > 8655 {
		t.Fatalf("expected 250mV -dV drop from the peak, got %d", v)
	}
}
