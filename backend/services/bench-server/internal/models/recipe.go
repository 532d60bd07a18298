package models

import "encoding/json"

// Recipe step parameter sources.
const (
	ParamSourceEEPROM = "eeprom"
	ParamSourceFixed  = "fixed"
)

// RecipeStep is one step of a test procedure. EEPROM-sourced steps
// resolve their parameters from the docked battery at start time;
// fixed steps carry them in ParamOverrides.
type RecipeStep struct {
	ID             int64           `db:"id" json:"id"`
	RecipeID       int64           `db:"recipe_id" json:"recipe_id"`
	StepNumber     int             `db:"step_number" json:"step_number"`
	StepType       string          `db:"step_type" json:"step_type"`
	Label          string          `db:"label" json:"label"`
	Description    string          `db:"description" json:"description"`
	ParamSource    string          `db:"param_source" json:"param_source"`
	ParamOverrides json.RawMessage `db:"param_overrides" json:"param_overrides,omitempty"`
}

// Recipe is a test procedure derived from a component maintenance
// manual section.
type Recipe struct {
	ID           int64        `db:"id" json:"id"`
	Name         string       `db:"name" json:"name"`
	Description  string       `db:"description" json:"description"`
	RecipeType   string       `db:"recipe_type" json:"recipe_type"`
	CMMReference string       `db:"cmm_reference" json:"cmm_reference,omitempty"`
	IsDefault    bool         `db:"is_default" json:"is_default"`
	IsActive     bool         `db:"is_active" json:"is_active"`
	Steps        []RecipeStep `db:"-" json:"steps"`
}
