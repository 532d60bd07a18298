package service

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"cellbench/backend/services/bench-server/internal/metrics"
	"cellbench/backend/services/bench-server/internal/models"
)

var (
	// ErrStationNotFound means the station id is outside the configured bench.
	ErrStationNotFound = errors.New("station not found")
	// ErrNotReady means the station state does not allow the operation.
	ErrNotReady = errors.New("station not ready")
	// ErrInvalidCommand means the command or its parameters were rejected.
	ErrInvalidCommand = errors.New("invalid command")
)

// PowerController drives the charge/discharge hardware behind a
// station. The simulator implements it; real SCPI drivers would too.
type PowerController interface {
	SetCharge(stationID, voltageMV, currentMA int) error
	SetDischarge(stationID, currentMA, voltageMinMV int) error
	Disable(stationID int) error
}

// StationManager holds the authoritative live state of every bay and
// validates operator commands against the docked battery's EEPROM
// parameters. Events are emitted outside the lock.
type StationManager struct {
	mu       sync.RWMutex
	stations map[int]models.StationStatus
	count    int

	power  PowerController
	events Events
	logger *zap.Logger
}

// NewStationManager seeds count empty stations.
func NewStationManager(count int, power PowerController, events Events, logger *zap.Logger) *StationManager {
	stations := make(map[int]models.StationStatus, count)
	for id := 1; id <= count; id++ {
		stations[id] = models.StationStatus{StationID: id, State: models.StateEmpty}
	}
	return &StationManager{
		stations: stations,
		count:    count,
		power:    power,
		events:   events,
		logger:   logger,
	}
}

// Count returns the configured number of stations.
func (m *StationManager) Count() int {
	return m.count
}

// Apply replaces one station's live status and fans the change out.
// A transition into the error state also raises an alert.
func (m *StationManager) Apply(status models.StationStatus) {
	m.mu.Lock()
	prev, known := m.stations[status.StationID]
	m.stations[status.StationID] = status
	m.refreshStateGauges()
	m.mu.Unlock()

	m.events.StationChanged(status)

	if status.State == models.StateError && (!known || prev.State != models.StateError) {
		msg := fmt.Sprintf("station %d entered error state", status.StationID)
		if status.ErrorMessage != nil {
			msg = fmt.Sprintf("station %d: %s", status.StationID, *status.ErrorMessage)
		}
		m.events.Alert("error", msg)
		m.logger.Warn("station error", zap.Int("station_id", status.StationID))
	}
}

// UpdateTelemetry merges a hardware sample into the live view. Dynamic
// fields are replaced wholesale; state only moves on dock changes and
// faults, so transitions driven by commands and jobs stay authoritative.
// Continuous samples ride the periodic snapshot broadcast, discrete
// transitions fan out immediately.
func (m *StationManager) UpdateTelemetry(tel models.Telemetry) {
	m.mu.Lock()
	st, ok := m.stations[tel.StationID]
	if !ok {
		m.mu.Unlock()
		return
	}

	st.VoltageMV = tel.VoltageMV
	st.CurrentMA = tel.CurrentMA
	st.TemperatureC = tel.TemperatureC
	st.TemperatureValid = tel.TemperatureValid
	st.ElapsedTimeS = tel.ElapsedTimeS

	var changed *models.StationStatus
	var alert string

	switch {
	case tel.EEPROMPresent && !st.EEPROMPresent:
		st.EEPROMPresent = true
		st.BatteryConfig = tel.BatteryConfig
		if st.State == models.StateEmpty {
			st.State = models.StateReady
		}
		m.stations[st.StationID] = st
		m.refreshStateGauges()
		changed = &st

	case !tel.EEPROMPresent && st.EEPROMPresent:
		st.EEPROMPresent = false
		st.BatteryConfig = nil
		if st.State == models.StateReady || st.State == models.StateComplete {
			st.State = models.StateEmpty
		}
		m.stations[st.StationID] = st
		m.refreshStateGauges()
		changed = &st

	case tel.Fault != nil && st.State != models.StateError:
		st.State = models.StateError
		st.ErrorMessage = tel.Fault
		m.stations[st.StationID] = st
		m.refreshStateGauges()
		changed = &st
		alert = fmt.Sprintf("station %d: %s", st.StationID, *tel.Fault)

	default:
		m.stations[st.StationID] = st
	}
	m.mu.Unlock()

	if changed != nil {
		m.events.StationChanged(*changed)
	}
	if alert != "" {
		m.events.Alert("error", alert)
		m.logger.Warn("station fault", zap.Int("station_id", tel.StationID))
	}
}

// Snapshot returns every station ordered by id.
func (m *StationManager) Snapshot() []models.StationStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.StationStatus, 0, len(m.stations))
	for _, st := range m.stations {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StationID < out[j].StationID })
	return out
}

// Get returns one station's status.
func (m *StationManager) Get(id int) (models.StationStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.stations[id]
	if !ok {
		return models.StationStatus{}, ErrStationNotFound
	}
	return st, nil
}

// ManualControl executes an operator command. Voltage and current are
// checked against the EEPROM battery model before any hardware moves.
func (m *StationManager) ManualControl(cmd models.ManualControlCommand) (string, error) {
	msg, changed, err := m.manualControl(cmd)
	if changed != nil {
		m.events.StationChanged(*changed)
	}
	return msg, err
}

func (m *StationManager) manualControl(cmd models.ManualControlCommand) (string, *models.StationStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.stations[cmd.StationID]
	if !ok {
		return "", nil, ErrStationNotFound
	}

	// Stop is allowed from any state.
	if cmd.Command == models.CommandStop {
		if err := m.power.Disable(cmd.StationID); err != nil {
			return "", nil, fmt.Errorf("disable station %d: %w", cmd.StationID, err)
		}
		if st.State == models.StateRunning {
			return "Stopped", m.setStateLocked(st, models.StateReady), nil
		}
		return "Stopped", nil, nil
	}

	if st.State != models.StateReady && st.State != models.StateRunning {
		return "", nil, fmt.Errorf("station %d in state %s: %w", cmd.StationID, st.State, ErrNotReady)
	}

	if cfg := st.BatteryConfig; cfg != nil {
		if cmd.VoltageMV != nil && *cmd.VoltageMV > cfg.ChargeVoltageLimitMV {
			return "", nil, fmt.Errorf("voltage %dmV exceeds EEPROM limit %dmV: %w",
				*cmd.VoltageMV, cfg.ChargeVoltageLimitMV, ErrInvalidCommand)
		}
		maxCurrent := cfg.StandardChargeCurrentMA
		if cfg.CapTestDischargeCurrentMA > maxCurrent {
			maxCurrent = cfg.CapTestDischargeCurrentMA
		}
		if cfg.FastDischargeCurrentMA > maxCurrent {
			maxCurrent = cfg.FastDischargeCurrentMA
		}
		if cmd.CurrentMA != nil && *cmd.CurrentMA > maxCurrent {
			return "", nil, fmt.Errorf("current %dmA exceeds EEPROM limit %dmA: %w",
				*cmd.CurrentMA, maxCurrent, ErrInvalidCommand)
		}
	}

	switch cmd.Command {
	case models.CommandCharge:
		if cmd.VoltageMV == nil || cmd.CurrentMA == nil {
			return "", nil, fmt.Errorf("charge requires voltage_mv and current_ma: %w", ErrInvalidCommand)
		}
		if err := m.power.SetCharge(cmd.StationID, *cmd.VoltageMV, *cmd.CurrentMA); err != nil {
			return "", nil, fmt.Errorf("set charge on station %d: %w", cmd.StationID, err)
		}
		msg := fmt.Sprintf("Charging at %dmA, limit %dmV", *cmd.CurrentMA, *cmd.VoltageMV)
		return msg, m.setStateLocked(st, models.StateRunning), nil

	case models.CommandDischarge:
		if cmd.CurrentMA == nil {
			return "", nil, fmt.Errorf("discharge requires current_ma: %w", ErrInvalidCommand)
		}
		endMV := 0
		if cmd.VoltageMinMV != nil {
			endMV = *cmd.VoltageMinMV
		}
		if err := m.power.SetDischarge(cmd.StationID, *cmd.CurrentMA, endMV); err != nil {
			return "", nil, fmt.Errorf("set discharge on station %d: %w", cmd.StationID, err)
		}
		msg := fmt.Sprintf("Discharging at %dmA, end voltage %dmV", *cmd.CurrentMA, endMV)
		return msg, m.setStateLocked(st, models.StateRunning), nil

	case models.CommandWait:
		if err := m.power.Disable(cmd.StationID); err != nil {
			return "", nil, fmt.Errorf("disable station %d: %w", cmd.StationID, err)
		}
		duration := 60
		if cmd.DurationMin != nil {
			duration = *cmd.DurationMin
		}
		msg := fmt.Sprintf("Timed wait started, %d minutes", duration)
		return msg, m.setStateLocked(st, models.StateRunning), nil

	default:
		return "", nil, fmt.Errorf("unknown command %q: %w", cmd.Command, ErrInvalidCommand)
	}
}

// MarkRunning binds a station to a freshly started session.
func (m *StationManager) MarkRunning(stationID int, sessionID int64, workOrderItemID *int64) error {
	changed, err := func() (*models.StationStatus, error) {
		m.mu.Lock()
		defer m.mu.Unlock()

		st, ok := m.stations[stationID]
		if !ok {
			return nil, ErrStationNotFound
		}
		if st.State != models.StateReady {
			return nil, fmt.Errorf("station %d in state %s: %w", stationID, st.State, ErrNotReady)
		}
		st.SessionID = &sessionID
		st.WorkOrderItemID = workOrderItemID
		return m.setStateLocked(st, models.StateRunning), nil
	}()
	if changed != nil {
		m.events.StationChanged(*changed)
	}
	return err
}

// SetPhase updates the running test phase label shown on dashboards.
func (m *StationManager) SetPhase(stationID int, phase string) {
	m.mu.Lock()
	st, ok := m.stations[stationID]
	if !ok {
		m.mu.Unlock()
		return
	}
	st.TestPhase = &phase
	m.stations[stationID] = st
	m.mu.Unlock()

	m.events.StationChanged(st)
}

// Finish releases a station at the end of a run. Failed and aborted
// runs leave the battery docked and the station ready for another try.
func (m *StationManager) Finish(stationID int, result string) {
	m.mu.Lock()
	st, ok := m.stations[stationID]
	if !ok {
		m.mu.Unlock()
		return
	}
	st.SessionID = nil
	st.TestPhase = nil
	next := models.StateComplete
	if result == models.SessionFailed || result == models.SessionAborted {
		next = models.StateReady
	}
	changed := m.setStateLocked(st, next)
	m.mu.Unlock()

	if err := m.power.Disable(stationID); err != nil {
		m.logger.Warn("disable after finish", zap.Int("station_id", stationID), zap.Error(err))
	}
	m.events.StationChanged(*changed)
}

// Stop halts any activity on the station.
func (m *StationManager) Stop(stationID int) error {
	changed, err := func() (*models.StationStatus, error) {
		m.mu.Lock()
		defer m.mu.Unlock()

		st, ok := m.stations[stationID]
		if !ok {
			return nil, ErrStationNotFound
		}
		if err := m.power.Disable(stationID); err != nil {
			return nil, fmt.Errorf("disable station %d: %w", stationID, err)
		}
		if st.State != models.StateRunning {
			return nil, nil
		}
		return m.setStateLocked(st, models.StateReady), nil
	}()
	if changed != nil {
		m.events.StationChanged(*changed)
	}
	return err
}

// Reset clears an error state back to empty.
func (m *StationManager) Reset(stationID int) error {
	changed, err := func() (*models.StationStatus, error) {
		m.mu.Lock()
		defer m.mu.Unlock()

		st, ok := m.stations[stationID]
		if !ok {
			return nil, ErrStationNotFound
		}
		if st.State != models.StateError {
			return nil, nil
		}
		st.ErrorMessage = nil
		return m.setStateLocked(st, models.StateEmpty), nil
	}()
	if changed != nil {
		m.events.StationChanged(*changed)
	}
	return err
}

// ReadEEPROM returns the docked battery's model parameters, or nil
// when no pack is docked.
func (m *StationManager) ReadEEPROM(stationID int) (*models.BatteryConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.stations[stationID]
	if !ok {
		return nil, ErrStationNotFound
	}
	if !st.EEPROMPresent || st.BatteryConfig == nil {
		return nil, nil
	}
	cfg := *st.BatteryConfig
	return &cfg, nil
}

// setStateLocked commits a state change and returns the stored status
// so callers can emit it after releasing the lock.
func (m *StationManager) setStateLocked(st models.StationStatus, next models.StationState) *models.StationStatus {
	st.State = next
	m.stations[st.StationID] = st
	m.refreshStateGauges()
	return &st
}

// refreshStateGauges recounts stations per state. Callers hold m.mu.
func (m *StationManager) refreshStateGauges() {
	counts := map[models.StationState]int{
		models.StateEmpty: 0, models.StateDockDetected: 0, models.StateReady: 0,
		models.StateRunning: 0, models.StateComplete: 0, models.StateError: 0,
	}
	for _, st := range m.stations {
		counts[st.State]++
	}
	for state, n := range counts {
		metrics.StationState.WithLabelValues(string(state)).Set(float64(n))
	}
}
