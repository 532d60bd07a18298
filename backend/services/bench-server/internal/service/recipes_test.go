package service

import (
	"encoding/json"
	"testing"

	"cellbench/backend/services/bench-server/internal/models"
)

func TestResolveStepParamsFromEEPROM(t *testing.T) {
	cfg := testPack()
	step := models.RecipeStep{StepNumber: 1, StepType: StepCharge, ParamSource: models.ParamSourceEEPROM}

	raw, err := resolveStepParams(step, cfg)
	if err != nil {
		t.Fatalf("resolve params: %v", err)
	}

	var p stepParams
	if err := json.Unmarshal(raw, &p); err != nil {
		t.Fatalf("decode params: %v", err)
	}
	if p.CurrentMA != cfg.StandardChargeCurrentMA {
		t.Fatalf("expected charge current %d, got %d", cfg.StandardChargeCurrentMA, p.CurrentMA)
	}
	if p.VoltageLimitMV != cfg.ChargeVoltageLimitMV {
		t.Fatalf("expected voltage limit %d, got %d", cfg.ChargeVoltageLimitMV, p.VoltageLimitMV)
	}
	if p.DurationMin != cfg.StandardChargeDurationMin {
		t.Fatalf("expected duration %d, got %d", cfg.StandardChargeDurationMin, p.DurationMin)
	}
	if p.TempMaxC != cfg.MaxChargeTempC {
		t.Fatalf("expected temp max %v, got %v", cfg.MaxChargeTempC, p.TempMaxC)
	}
}

func TestResolveStepParamsOverridesWin(t *testing.T) {
	cfg := testPack()
	step := models.RecipeStep{
		StepNumber:     2,
		StepType:       StepDischarge,
		ParamSource:    models.ParamSourceEEPROM,
		ParamOverrides: json.RawMessage(`{"current_ma":1000}`),
	}

	raw, err := resolveStepParams(step, cfg)
	if err != nil {
		t.Fatalf("resolve params: %v", err)
	}

	var p stepParams
	if err := json.Unmarshal(raw, &p); err != nil {
		t.Fatalf("decode params: %v", err)
	}
	if p.CurrentMA != 1000 {
		t.Fatalf("override lost, expected 1000, got %d", p.CurrentMA)
	}
	if p.VoltageMinMV != cfg.CapTestEndVoltageMV {
		t.Fatalf("expected EEPROM end voltage %d, got %d", cfg.CapTestEndVoltageMV, p.VoltageMinMV)
	}
}

func TestResolveStepParamsCapacityFloorDefault(t *testing.T) {
	cfg := testPack()
	step := models.RecipeStep{
		StepNumber:     1,
		StepType:       StepDischarge,
		ParamSource:    models.ParamSourceEEPROM,
		ParamOverrides: json.RawMessage(`{"is_capacity_test":true}`),
	}

	raw, err := resolveStepParams(step, cfg)
	if err != nil {
		t.Fatalf("resolve params: %v", err)
	}

	var p stepParams
	if err := json.Unmarshal(raw, &p); err != nil {
		t.Fatalf("decode params: %v", err)
	}
	if p.PassMinCapacityPct != cfg.CapTestPassMinCapacityPct {
		t.Fatalf("expected pass floor %d%%, got %d%%", cfg.CapTestPassMinCapacityPct, p.PassMinCapacityPct)
	}
}

func TestResolveStepParamsRejectsBadOverrides(t *testing.T) {
	step := models.RecipeStep{
		StepNumber:     3,
		StepType:       StepCharge,
		ParamSource:    models.ParamSourceFixed,
		ParamOverrides: json.RawMessage(`{"current_ma":"plenty"}`),
	}
	if _, err := resolveStepParams(step, testPack()); err == nil {
		t.Fatalf("expected malformed overrides to fail")
	}
}

func TestBuildJobTasksExpandsRecipe(t *testing.T) {
	recipe := &models.Recipe{
		ID:   3,
		Name: "Full Test",
		Steps: []models.RecipeStep{
			{StepNumber: 1, StepType: StepCharge, Label: "Standard Charge", ParamSource: models.ParamSourceEEPROM},
			{StepNumber: 2, StepType: StepOperatorAction, Label: "Inspect pack", Description: "Check the case", ParamSource: models.ParamSourceFixed},
			{StepNumber: 3, StepType: StepDischarge, Label: "Capacity Discharge", ParamSource: models.ParamSourceEEPROM},
		},
	}

	tasks, err := buildJobTasks(recipe, 42, testPack())
	if err != nil {
		t.Fatalf("build tasks: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(tasks))
	}
	for i, task := range tasks {
		if task.SessionID != 42 {
			t.Fatalf("task %d bound to session %d", i, task.SessionID)
		}
		if task.TaskNumber != i+1 {
			t.Fatalf("expected task number %d, got %d", i+1, task.TaskNumber)
		}
		if task.Status != models.TaskPending {
			t.Fatalf("expected pending, got %s", task.Status)
		}
		if len(task.Params) == 0 {
			t.Fatalf("task %d missing params", i)
		}
	}
	if tasks[0].IsAutomated != true || tasks[2].IsAutomated != true {
		t.Fatalf("hardware steps must be automated")
	}
	if tasks[1].IsAutomated {
		t.Fatalf("operator actions must not be automated")
	}
	if tasks[1].Description != "Check the case" {
		t.Fatalf("description lost: %q", tasks[1].Description)
	}
}
