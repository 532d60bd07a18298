package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cellbench/backend/services/bench-server/internal/models"
)

// RecipeRepository handles persistence of test recipes and their steps.
type RecipeRepository struct {
	db *sql.DB
}

// NewRecipeRepository returns repository.
func NewRecipeRepository(db *sql.DB) *RecipeRepository {
	return &RecipeRepository{db: db}
}

// Create inserts a recipe with its steps in one transaction.
func (r *RecipeRepository) Create(ctx context.Context, recipe *models.Recipe) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const recipeQuery = `
		INSERT INTO recipes (name, description, recipe_type, cmm_reference, is_default, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id
	`
	err = tx.QueryRowContext(ctx, recipeQuery,
		recipe.Name,
		recipe.Description,
		recipe.RecipeType,
		recipe.CMMReference,
		recipe.IsDefault,
		recipe.IsActive,
	).Scan(&recipe.ID)
	if err != nil {
		return err
	}

	const stepQuery = `
		INSERT INTO recipe_steps (recipe_id, step_number, step_type, label, description, param_source, param_overrides)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	for i := range recipe.Steps {
		step := &recipe.Steps[i]
		step.RecipeID = recipe.ID
		overrides := step.ParamOverrides
		if len(overrides) == 0 {
			overrides = []byte("{}")
		}
		err := tx.QueryRowContext(ctx, stepQuery,
			step.RecipeID,
			step.StepNumber,
			step.StepType,
			step.Label,
			step.Description,
			step.ParamSource,
			[]byte(overrides),
		).Scan(&step.ID)
		if err != nil {
			return fmt.Errorf("insert step %d: %w", step.StepNumber, err)
		}
	}

	return tx.Commit()
}

// GetByID fetches a recipe with its steps in order.
func (r *RecipeRepository) GetByID(ctx context.Context, id int64) (*models.Recipe, error) {
	const query = `
		SELECT id, name, COALESCE(description, ''), recipe_type, COALESCE(cmm_reference, ''), is_default, is_active
		FROM recipes
		WHERE id = $1
	`
	var recipe models.Recipe
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&recipe.ID,
		&recipe.Name,
		&recipe.Description,
		&recipe.RecipeType,
		&recipe.CMMReference,
		&recipe.IsDefault,
		&recipe.IsActive,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	steps, err := r.listSteps(ctx, id)
	if err != nil {
		return nil, err
	}
	recipe.Steps = steps
	return &recipe, nil
}

// List returns recipes without their steps, active ones first.
func (r *RecipeRepository) List(ctx context.Context, activeOnly bool) ([]models.Recipe, error) {
	const query = `
		SELECT id, name, COALESCE(description, ''), recipe_type, COALESCE(cmm_reference, ''), is_default, is_active
		FROM recipes
		WHERE NOT $1 OR is_active
		ORDER BY is_active DESC, name
	`
	rows, err := r.db.QueryContext(ctx, query, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recipes []models.Recipe
	for rows.Next() {
		var recipe models.Recipe
		if err := rows.Scan(
			&recipe.ID,
			&recipe.Name,
			&recipe.Description,
			&recipe.RecipeType,
			&recipe.CMMReference,
			&recipe.IsDefault,
			&recipe.IsActive,
		); err != nil {
			return nil, err
		}
		recipes = append(recipes, recipe)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return recipes, nil
}

func (r *RecipeRepository) listSteps(ctx context.Context, recipeID int64) ([]models.RecipeStep, error) {
	const query = `
		SELECT id, recipe_id, step_number, step_type, label, COALESCE(description, ''), param_source, param_overrides
		FROM recipe_steps
		WHERE recipe_id = $1
		ORDER BY step_number
	`
	rows, err := r.db.QueryContext(ctx, query, recipeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []models.RecipeStep
	for rows.Next() {
		var step models.RecipeStep
		var overrides []byte
		if err := rows.Scan(
			&step.ID,
			&step.RecipeID,
			&step.StepNumber,
			&step.StepType,
			&step.Label,
			&step.Description,
			&step.ParamSource,
			&overrides,
		); err != nil {
			return nil, err
		}
		step.ParamOverrides = overrides
		steps = append(steps, step)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return steps, nil
}
