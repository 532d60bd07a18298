package models

// StationState is the per-station state machine value streamed to dashboards.
type StationState string

const (
	StateEmpty        StationState = "empty"
	StateDockDetected StationState = "dock_detected"
	StateReady        StationState = "ready"
	StateRunning      StationState = "running"
	StateComplete     StationState = "complete"
	StateError        StationState = "error"
)

// BatteryType is the chemistry code stored in the dock EEPROM.
type BatteryType int

const (
	BatteryNiCd BatteryType = iota
	BatteryNiMH
	BatteryLiFePO4
	BatteryLiIon
	BatterySLA
)

// BatteryConfig is the battery model block read from the dock EEPROM.
// Per-unit data (serial number, test history) lives in the database;
// everything needed to run an unattended test is on the dock itself.
type BatteryConfig struct {
	FormatVersion             int         `json:"format_version"`
	BatteryType               BatteryType `json:"battery_type"`
	NominalCapacityMAH        int         `json:"nominal_capacity_mah"`
	CellCount                 int         `json:"cell_count"`
	NominalVoltageMV          int         `json:"nominal_voltage_mv"`
	ChargeVoltageLimitMV      int         `json:"charge_voltage_limit_mv"`
	StandardChargeCurrentMA   int         `json:"standard_charge_current_ma"`
	StandardChargeDurationMin int         `json:"standard_charge_duration_min"`
	TrickleChargeCurrentMA    int         `json:"trickle_charge_current_ma"`
	CapTestDischargeCurrentMA int         `json:"cap_test_discharge_current_ma"`
	CapTestEndVoltageMV       int         `json:"cap_test_end_voltage_mv"`
	CapTestMaxDurationMin     int         `json:"cap_test_max_duration_min"`
	CapTestPassMinCapacityPct int         `json:"cap_test_pass_min_capacity_pct"`
	FastDischargeEnabled      bool        `json:"fast_discharge_enabled"`
	FastDischargeCurrentMA    int         `json:"fast_discharge_current_ma"`
	FastDischargeEndVoltageMV int         `json:"fast_discharge_end_voltage_mv"`
	MaxChargeTempC            float64     `json:"max_charge_temp_c"`
	MaxDischargeTempC         float64     `json:"max_discharge_temp_c"`
	EmergencyTempMaxC         float64     `json:"emergency_temp_max_c"`
	AbsoluteMinVoltageMV      int         `json:"absolute_min_voltage_mv"`
	PartNumber                string      `json:"part_number"`
	ModelDescription          string      `json:"model_description"`
	ManufacturerCode          string      `json:"manufacturer_code"`
}

// StationStatus is the live view of one bay, broadcast over the
// websocket feed and served by the stations API.
type StationStatus struct {
	StationID        int            `json:"station_id"`
	State            StationState   `json:"state"`
	TemperatureC     *float64       `json:"temperature_c"`
	TemperatureValid bool           `json:"temperature_valid"`
	VoltageMV        *int           `json:"voltage_mv"`
	CurrentMA        *int           `json:"current_ma"`
	EEPROMPresent    bool           `json:"eeprom_present"`
	ErrorMessage     *string        `json:"error_message"`
	SessionID        *int64         `json:"session_id"`
	WorkOrderItemID  *int64         `json:"work_order_item_id"`
	TestPhase        *string        `json:"test_phase"`
	ElapsedTimeS     *float64       `json:"elapsed_time_s"`
	BatteryConfig    *BatteryConfig `json:"battery_config"`
}

// Telemetry is one hardware sample merged into the live station view.
type Telemetry struct {
	StationID        int
	VoltageMV        *int
	CurrentMA        *int
	TemperatureC     *float64
	TemperatureValid bool
	EEPROMPresent    bool
	BatteryConfig    *BatteryConfig
	ElapsedTimeS     *float64
	Fault            *string
}

// ManualControlCommand drives one station by hand. Limits are checked
// against the docked battery's EEPROM parameters before execution.
type ManualControlCommand struct {
	StationID    int    `json:"station_id"`
	Command      string `json:"command"`
	VoltageMV    *int   `json:"voltage_mv,omitempty"`
	CurrentMA    *int   `json:"current_ma,omitempty"`
	VoltageMinMV *int   `json:"voltage_min_mv,omitempty"`
	DurationMin  *int   `json:"duration_min,omitempty"`
}

// Manual control command verbs.
const (
	CommandCharge    = "charge"
	CommandDischarge = "discharge"
	CommandWait      = "wait"
	CommandStop      = "stop"
)

// RecipeStartCommand starts an automated test run on a station.
type RecipeStartCommand struct {
	StationID       int    `json:"station_id"`
	RecipeID        int64  `json:"recipe_id"`
	WorkOrderItemID *int64 `json:"work_order_item_id,omitempty"`
	Notes           string `json:"notes,omitempty"`
}
