package service

import (
	"encoding/json"
	"fmt"

	"cellbench/backend/services/bench-server/internal/models"
)

// Step types a recipe can contain.
const (
	StepCharge         = "charge"
	StepDischarge      = "discharge"
	StepRest           = "rest"
	StepWaitTemp       = "wait_temp"
	StepOperatorAction = "operator_action"
)

// stepParams are the resolved knobs stored with each job task. EEPROM
// values fill the defaults; step overrides win field by field.
type stepParams struct {
	CurrentMA          int     `json:"current_ma,omitempty"`
	VoltageLimitMV     int     `json:"voltage_limit_mv,omitempty"`
	VoltageMinMV       int     `json:"voltage_min_mv,omitempty"`
	DurationMin        int     `json:"duration_min,omitempty"`
	TempMaxC           float64 `json:"temp_max_c,omitempty"`
	TempTargetC        float64 `json:"temp_target_c,omitempty"`
	TimeoutMin         int     `json:"timeout_min,omitempty"`
	IsCapacityTest     bool    `json:"is_capacity_test,omitempty"`
	PassMinCapacityPct int     `json:"pass_min_capacity_pct,omitempty"`
}

// resolveStepParams fills a step's parameters from the docked battery's
// EEPROM block, then overlays the step's explicit overrides.
func resolveStepParams(step models.RecipeStep, cfg *models.BatteryConfig) (json.RawMessage, error) {
	var p stepParams

	if step.ParamSource == models.ParamSourceEEPROM && cfg != nil {
		switch step.StepType {
		case StepCharge:
			p.CurrentMA = cfg.StandardChargeCurrentMA
			p.VoltageLimitMV = cfg.ChargeVoltageLimitMV
			p.DurationMin = cfg.StandardChargeDurationMin
			p.TempMaxC = cfg.MaxChargeTempC
		case StepDischarge:
			p.CurrentMA = cfg.CapTestDischargeCurrentMA
			p.VoltageMinMV = cfg.CapTestEndVoltageMV
			p.DurationMin = cfg.CapTestMaxDurationMin
			p.TempMaxC = cfg.MaxDischargeTempC
		case StepRest:
			p.DurationMin = 60
		case StepWaitTemp:
			p.TempTargetC = cfg.MaxChargeTempC
			p.TimeoutMin = 120
		}
	}

	if len(step.ParamOverrides) > 0 {
		if err := json.Unmarshal(step.ParamOverrides, &p); err != nil {
			return nil, fmt.Errorf("step %d overrides: %w", step.StepNumber, err)
		}
	}

	if p.IsCapacityTest && p.PassMinCapacityPct == 0 && cfg != nil {
		p.PassMinCapacityPct = cfg.CapTestPassMinCapacityPct
	}

	return json.Marshal(p)
}

// buildJobTasks expands a recipe into the session's ordered task list.
func buildJobTasks(recipe *models.Recipe, sessionID int64, cfg *models.BatteryConfig) ([]models.JobTask, error) {
	tasks := make([]models.JobTask, 0, len(recipe.Steps))
	for i, step := range recipe.Steps {
		params, err := resolveStepParams(step, cfg)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, models.JobTask{
			SessionID:   sessionID,
			TaskNumber:  i + 1,
			StepType:    step.StepType,
			Label:       step.Label,
			Description: step.Description,
			IsAutomated: step.StepType != StepOperatorAction,
			Status:      models.TaskPending,
			Params:      params,
		})
	}
	return tasks, nil
}
