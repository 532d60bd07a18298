package sim

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"cellbench/backend/services/bench-server/internal/models"
)

type mode int

const (
	modeIdle mode = iota
	modeCharge
	modeDischarge
)

// NiCd charge curve timing, compressed the way the bench demo runs it:
// peak at 5 minutes, -dV drop complete by 8 minutes.
const (
	chargePeakS      = 300.0
	chargeDropStartS = 330.0
	chargeDropEndS   = 480.0
	perCellDropMV    = 50
)

type station struct {
	id     int
	docked bool
	cfg    *models.BatteryConfig
	fault  string

	initState models.StationState
	initPhase string

	mode         mode
	setVoltageMV int
	setCurrentMA int
	endVoltageMV int

	voltageMV      float64
	startVoltageMV float64
	currentMA      int
	tempC          float64
	startTempC     float64
	chargeSecs     float64
	elapsedS       float64
}

// Fleet is a deterministic bench simulator. It stands in for the PSU
// and DC load hardware behind every station and produces the telemetry
// stream the live view merges.
type Fleet struct {
	mu       sync.Mutex
	stations map[int]*station
	order    []int
	rng      *rand.Rand
}

// NewFleet seeds count stations into the demo shape: 1-4 running,
// 5-8 ready with docked batteries, 9-10 complete, 11 faulted,
// everything else empty. The same seed reproduces the same run.
func NewFleet(count int, seed int64) *Fleet {
	f := &Fleet{
		stations: make(map[int]*station, count),
		order:    make([]int, 0, count),
		rng:      rand.New(rand.NewSource(seed)),
	}
	for id := 1; id <= count; id++ {
		f.stations[id] = f.makeStation(id)
		f.order = append(f.order, id)
	}
	return f
}

func (f *Fleet) makeStation(id int) *station {
	s := &station{id: id, initState: models.StateEmpty, initPhase: ""}

	switch {
	case id <= 4:
		cfg := PackModel(id)
		s.docked = true
		s.cfg = &cfg
		s.initState = models.StateRunning
		s.voltageMV = float64(5800 + f.rng.Intn(1401))
		s.startVoltageMV = s.voltageMV
		s.tempC = 22.0 + f.rng.Float64()*16.0
		s.startTempC = s.tempC
		s.elapsedS = float64(60 + f.rng.Intn(3600))
		if id%2 == 1 {
			s.mode = modeCharge
			s.initPhase = "Standard Charge"
			s.setVoltageMV = cfg.ChargeVoltageLimitMV
			s.setCurrentMA = cfg.StandardChargeCurrentMA
			s.currentMA = cfg.StandardChargeCurrentMA
		} else {
			s.mode = modeDischarge
			s.initPhase = "Capacity Discharge"
			s.setCurrentMA = cfg.CapTestDischargeCurrentMA
			s.endVoltageMV = cfg.CapTestEndVoltageMV
			s.currentMA = cfg.CapTestDischargeCurrentMA
		}
	case id <= 8:
		cfg := PackModel(id)
		s.docked = true
		s.cfg = &cfg
		s.initState = models.StateReady
		s.voltageMV = float64(5500 + f.rng.Intn(1001))
		s.tempC = 22.0 + f.rng.Float64()*6.0
	case id <= 10:
		cfg := PackModel(id)
		s.docked = true
		s.cfg = &cfg
		s.initState = models.StateComplete
		s.voltageMV = float64(5800 + f.rng.Intn(401))
		s.tempC = 22.0 + f.rng.Float64()*4.0
	case id == 11:
		cfg := PackModel(id)
		s.docked = true
		s.cfg = &cfg
		s.initState = models.StateError
		s.tempC = 52.6
		s.fault = fmt.Sprintf("Over-temperature fault (%.1f C)", s.tempC)
	}
	return s
}

// InitialStates returns the demo fleet as full station statuses, used
// once at startup to seed the live view.
func (f *Fleet) InitialStates() []models.StationStatus {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]models.StationStatus, 0, len(f.order))
	for _, id := range f.order {
		s := f.stations[id]
		st := models.StationStatus{StationID: id, State: s.initState}
		if !s.docked {
			out = append(out, st)
			continue
		}
		st.EEPROMPresent = true
		st.BatteryConfig = s.cfg
		if s.fault != "" {
			fault := s.fault
			zero := 0
			st.ErrorMessage = &fault
			st.VoltageMV = &zero
			st.CurrentMA = &zero
			if s.tempC > 0 {
				temp := round1(s.tempC)
				st.TemperatureC = &temp
				st.TemperatureValid = true
			}
			out = append(out, st)
			continue
		}
		v := int(math.Round(s.voltageMV))
		c := s.currentMA
		t := round1(s.tempC)
		st.VoltageMV = &v
		st.CurrentMA = &c
		st.TemperatureC = &t
		st.TemperatureValid = true
		if s.initState == models.StateRunning {
			phase := s.initPhase
			elapsed := s.elapsedS
			st.TestPhase = &phase
			st.ElapsedTimeS = &elapsed
		}
		out = append(out, st)
	}
	return out
}

// Advance steps the fleet physics by dt and returns a telemetry sample
// for every station.
func (f *Fleet) Advance(dt time.Duration) []models.Telemetry {
	f.mu.Lock()
	defer f.mu.Unlock()

	secs := dt.Seconds()
	out := make([]models.Telemetry, 0, len(f.order))
	for _, id := range f.order {
		s := f.stations[id]
		if s.docked && s.fault == "" {
			if s.mode != modeIdle {
				s.elapsedS += secs
			}
			switch s.mode {
			case modeCharge:
				f.stepCharge(s, secs)
			case modeDischarge:
				f.stepDischarge(s, secs)
			default:
				f.stepIdle(s)
			}
		}
		out = append(out, f.sample(s))
	}
	return out
}

func (f *Fleet) stepCharge(s *station, secs float64) {
	s.chargeSecs += secs
	t := s.chargeSecs
	peak := float64(s.setVoltageMV)
	cells := 5
	if s.cfg != nil && s.cfg.CellCount > 0 {
		cells = s.cfg.CellCount
	}
	drop := float64(cells * perCellDropMV)

	switch {
	case t <= chargePeakS:
		frac := t / chargePeakS
		smooth := 3*frac*frac - 2*frac*frac*frac
		s.voltageMV = s.startVoltageMV + (peak-s.startVoltageMV)*smooth
		s.tempC = s.startTempC + 3.0*smooth + f.noise(0.2)
	case t <= chargeDropStartS:
		s.voltageMV = peak
		s.tempC = s.startTempC + 3.0 + (t-chargePeakS)*0.02 + f.noise(0.2)
	case t <= chargeDropEndS:
		dropFrac := (t - chargeDropStartS) / (chargeDropEndS - chargeDropStartS)
		s.voltageMV = peak - drop*dropFrac
		s.tempC = s.startTempC + 3.0 + (t-chargePeakS)*0.04 + f.noise(0.2)
	default:
		s.voltageMV = peak - drop - (t-chargeDropEndS)*0.5
		s.tempC = s.startTempC + 5.0 + (t-chargePeakS)*0.05 + f.noise(0.3)
	}

	s.voltageMV += float64(f.rng.Intn(11) - 5)
	s.voltageMV = clamp(s.voltageMV, 4500, float64(s.setVoltageMV)+500)
	s.currentMA = s.setCurrentMA
}

func (f *Fleet) stepDischarge(s *station, secs float64) {
	floor := float64(s.endVoltageMV)
	if floor <= 0 && s.cfg != nil {
		floor = float64(s.cfg.AbsoluteMinVoltageMV)
	}
	s.voltageMV -= secs*2.0 + f.noise(1.0)
	s.tempC += secs * 0.01
	if s.voltageMV <= floor {
		s.voltageMV = floor
		s.mode = modeIdle
		s.currentMA = 0
		return
	}
	s.currentMA = s.setCurrentMA
}

func (f *Fleet) stepIdle(s *station) {
	s.voltageMV += float64(f.rng.Intn(41) - 20)
	s.voltageMV = clamp(s.voltageMV, 5000, 9000)
	s.tempC += f.noise(0.3)
	s.tempC = clamp(s.tempC, 20.0, 50.0)
	s.currentMA = 0
}

func (f *Fleet) sample(s *station) models.Telemetry {
	tel := models.Telemetry{StationID: s.id}
	if !s.docked {
		return tel
	}
	tel.EEPROMPresent = true
	tel.BatteryConfig = s.cfg
	if s.fault != "" {
		fault := s.fault
		zero := 0
		tel.Fault = &fault
		tel.VoltageMV = &zero
		tel.CurrentMA = &zero
		if s.tempC > 0 {
			temp := round1(s.tempC)
			tel.TemperatureC = &temp
			tel.TemperatureValid = true
		}
		return tel
	}
	v := int(math.Round(s.voltageMV))
	c := s.currentMA
	t := round1(s.tempC)
	tel.VoltageMV = &v
	tel.CurrentMA = &c
	tel.TemperatureC = &t
	tel.TemperatureValid = true
	if s.mode != modeIdle {
		elapsed := s.elapsedS
		tel.ElapsedTimeS = &elapsed
	}
	return tel
}

// SetCharge implements the power controller: constant current charge
// with a voltage ceiling.
func (f *Fleet) SetCharge(stationID, voltageMV, currentMA int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, err := f.station(stationID)
	if err != nil {
		return err
	}
	s.mode = modeCharge
	s.setVoltageMV = voltageMV
	s.setCurrentMA = currentMA
	s.startVoltageMV = s.voltageMV
	s.startTempC = s.tempC
	s.chargeSecs = 0
	return nil
}

// SetDischarge implements the power controller: constant current load
// down to a voltage floor.
func (f *Fleet) SetDischarge(stationID, currentMA, voltageMinMV int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, err := f.station(stationID)
	if err != nil {
		return err
	}
	s.mode = modeDischarge
	s.setCurrentMA = currentMA
	s.endVoltageMV = voltageMinMV
	return nil
}

// Disable implements the power controller: outputs off.
func (f *Fleet) Disable(stationID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.stations[stationID]
	if !ok {
		return fmt.Errorf("sim: unknown station %d", stationID)
	}
	s.mode = modeIdle
	s.currentMA = 0
	return nil
}

// Dock places a battery on an empty station.
func (f *Fleet) Dock(stationID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.stations[stationID]
	if !ok {
		return fmt.Errorf("sim: unknown station %d", stationID)
	}
	if s.docked {
		return fmt.Errorf("sim: station %d already docked", stationID)
	}
	cfg := PackModel(stationID)
	s.docked = true
	s.cfg = &cfg
	s.voltageMV = float64(5500 + f.rng.Intn(1001))
	s.tempC = 22.0 + f.rng.Float64()*4.0
	s.mode = modeIdle
	s.currentMA = 0
	s.elapsedS = 0
	return nil
}

// Undock removes the battery from a station.
func (f *Fleet) Undock(stationID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.stations[stationID]
	if !ok {
		return fmt.Errorf("sim: unknown station %d", stationID)
	}
	s.docked = false
	s.cfg = nil
	s.mode = modeIdle
	s.currentMA = 0
	s.fault = ""
	return nil
}

func (f *Fleet) station(id int) (*station, error) {
	s, ok := f.stations[id]
	if !ok {
		return nil, fmt.Errorf("sim: unknown station %d", id)
	}
	if !s.docked {
		return nil, fmt.Errorf("sim: station %d has no battery docked", id)
	}
	if s.fault != "" {
		return nil, fmt.Errorf("sim: station %d faulted: %s", id, s.fault)
	}
	return s, nil
}

func (f *Fleet) noise(r float64) float64 {
	return (f.rng.Float64()*2 - 1) * r
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
