package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"cellbench/backend/libs/clock"
	"cellbench/backend/services/bench-server/internal/models"
	"cellbench/backend/services/bench-server/internal/redisstore"
)

var (
	// ErrRunActive means the station is already executing a job.
	ErrRunActive = errors.New("run already active on station")
	// ErrNoActiveRun means there is nothing to abort on the station.
	ErrNoActiveRun = errors.New("no active run on station")
	// ErrNoBattery means the station has no readable battery docked.
	ErrNoBattery = errors.New("no battery docked")
	// ErrTaskNotAwaiting means the task is not waiting for technician input.
	ErrTaskNotAwaiting = errors.New("task not awaiting input")
)

// Step results recorded on completed tasks.
const (
	resultPass = "pass"
	resultFail = "fail"
)

// SessionStore is the session persistence used by the runner.
type SessionStore interface {
	Create(ctx context.Context, s *models.BenchSession) error
	Finish(ctx context.Context, id int64, status, overallResult string, completedAt time.Time) error
}

// TaskStore is the job task persistence used by the runner.
type TaskStore interface {
	CreateBatch(ctx context.Context, tasks []models.JobTask) ([]models.JobTask, error)
	MarkStarted(ctx context.Context, id int64, status string, startedAt time.Time) error
	SetStatus(ctx context.Context, id int64, status string) error
	Complete(ctx context.Context, id int64, status string, result models.ManualResult, completedAt time.Time) error
}

// RecipeStore loads recipes with their steps.
type RecipeStore interface {
	GetByID(ctx context.Context, id int64) (*models.Recipe, error)
}

type manualOutcome struct {
	status string
	result models.ManualResult
}

type run struct {
	sessionID int64
	cancel    context.CancelFunc
}

// TaskRunner executes recipe jobs on stations: automated steps run on
// clock timers, manual steps block until a technician submits a result.
type TaskRunner struct {
	stations *StationManager
	power    PowerController
	sessions SessionStore
	tasks    TaskStore
	recipes  RecipeStore
	active   *redisstore.Store
	events   Events
	clk      clock.Clock
	logger   *zap.Logger

	mu      sync.Mutex
	runs    map[int]*run
	waiters map[int64]chan manualOutcome
	wg      sync.WaitGroup
}

// NewTaskRunner builds the runner. active may be nil when redis is not
// configured.
func NewTaskRunner(
	stations *StationManager,
	power PowerController,
	sessions SessionStore,
	tasks TaskStore,
	recipes RecipeStore,
	active *redisstore.Store,
	events Events,
	clk clock.Clock,
	logger *zap.Logger,
) *TaskRunner {
	return &TaskRunner{
		stations: stations,
		power:    power,
		sessions: sessions,
		tasks:    tasks,
		recipes:  recipes,
		active:   active,
		events:   events,
		clk:      clk,
		logger:   logger,
		runs:     make(map[int]*run),
		waiters:  make(map[int64]chan manualOutcome),
	}
}

// StartRecipe allocates a session, expands the recipe into job tasks
// and launches execution on the station.
func (r *TaskRunner) StartRecipe(ctx context.Context, cmd models.RecipeStartCommand) (*models.BenchSession, error) {
	recipe, err := r.recipes.GetByID(ctx, cmd.RecipeID)
	if err != nil {
		return nil, fmt.Errorf("load recipe %d: %w", cmd.RecipeID, err)
	}

	st, err := r.stations.Get(cmd.StationID)
	if err != nil {
		return nil, err
	}
	if st.State != models.StateReady {
		return nil, fmt.Errorf("station %d in state %s: %w", cmd.StationID, st.State, ErrNotReady)
	}
	if st.BatteryConfig == nil {
		return nil, ErrNoBattery
	}

	r.mu.Lock()
	if _, busy := r.runs[cmd.StationID]; busy {
		r.mu.Unlock()
		return nil, ErrRunActive
	}
	r.runs[cmd.StationID] = nil
	r.mu.Unlock()

	session := &models.BenchSession{
		StationID:       cmd.StationID,
		WorkOrderItemID: cmd.WorkOrderItemID,
		RecipeID:        recipe.ID,
		Status:          models.SessionRunning,
		Notes:           cmd.Notes,
	}
	if err := r.sessions.Create(ctx, session); err != nil {
		r.release(cmd.StationID)
		return nil, fmt.Errorf("create session: %w", err)
	}

	tasks, err := buildJobTasks(recipe, session.ID, st.BatteryConfig)
	if err == nil {
		tasks, err = r.tasks.CreateBatch(ctx, tasks)
	}
	if err == nil {
		err = r.stations.MarkRunning(cmd.StationID, session.ID, cmd.WorkOrderItemID)
	}
	if err != nil {
		r.release(cmd.StationID)
		if finishErr := r.sessions.Finish(ctx, session.ID, models.SessionAborted, "", r.clk.Now()); finishErr != nil {
			r.logger.Warn("abort orphan session", zap.Int64("session_id", session.ID), zap.Error(finishErr))
		}
		return nil, err
	}

	if r.active != nil {
		cacheErr := r.active.Save(ctx, redisstore.ActiveSession{
			SessionID:       session.ID,
			StationID:       cmd.StationID,
			WorkOrderItemID: cmd.WorkOrderItemID,
			RecipeID:        recipe.ID,
			Phase:           recipe.Name,
			StartedAt:       session.StartedAt,
		})
		if cacheErr != nil {
			r.logger.Warn("cache active session", zap.Error(cacheErr))
		}
	}

	runCtx, cancel := context.WithCancel(context.Background())
	r.mu.Lock()
	r.runs[cmd.StationID] = &run{sessionID: session.ID, cancel: cancel}
	r.mu.Unlock()

	r.logger.Info("job started",
		zap.Int("station_id", cmd.StationID),
		zap.Int64("session_id", session.ID),
		zap.String("recipe", recipe.Name),
		zap.Int("tasks", len(tasks)))

	r.wg.Add(1)
	go r.runJob(runCtx, cmd.StationID, session.ID, tasks)

	return session, nil
}

// Abort cancels the job running on a station.
func (r *TaskRunner) Abort(stationID int) error {
	r.mu.Lock()
	rn := r.runs[stationID]
	r.mu.Unlock()
	if rn == nil {
		return ErrNoActiveRun
	}
	rn.cancel()
	return nil
}

// SubmitManualResult delivers a technician's result to the awaiting step.
func (r *TaskRunner) SubmitManualResult(taskID int64, result models.ManualResult) error {
	ch, err := r.takeWaiter(taskID)
	if err != nil {
		return err
	}
	if result.StepResult == "" {
		result.StepResult = resultPass
	}
	ch <- manualOutcome{status: models.TaskCompleted, result: result}
	return nil
}

// SkipTask skips the awaiting step without a result.
func (r *TaskRunner) SkipTask(taskID int64) error {
	ch, err := r.takeWaiter(taskID)
	if err != nil {
		return err
	}
	ch <- manualOutcome{status: models.TaskSkipped}
	return nil
}

// Close aborts every running job and waits for the runners to drain.
func (r *TaskRunner) Close() {
	r.mu.Lock()
	for _, rn := range r.runs {
		if rn != nil {
			rn.cancel()
		}
	}
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *TaskRunner) takeWaiter(taskID int64) (chan manualOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.waiters[taskID]
	if !ok {
		return nil, ErrTaskNotAwaiting
	}
	delete(r.waiters, taskID)
	return ch, nil
}

func (r *TaskRunner) release(stationID int) {
	r.mu.Lock()
	delete(r.runs, stationID)
	r.mu.Unlock()
}

func (r *TaskRunner) runJob(ctx context.Context, stationID int, sessionID int64, tasks []models.JobTask) {
	defer r.wg.Done()

	ctx, span := otel.Tracer("task-runner").Start(ctx, "RunJob")
	defer span.End()
	span.SetAttributes(attribute.Int("station.id", stationID))
	span.SetAttributes(attribute.Int64("session.id", sessionID))

	overall := resultPass
	var aborted, failed bool

	i := 0
	for ; i < len(tasks); i++ {
		res, err := r.runTask(ctx, stationID, &tasks[i])
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				aborted = true
			} else {
				r.logger.Error("task failed",
					zap.Int64("task_id", tasks[i].ID), zap.Error(err))
				failed = true
			}
			break
		}
		if res == resultFail {
			overall = resultFail
		}
	}

	cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if i < len(tasks) {
		terminal := models.TaskAborted
		if failed {
			terminal = models.TaskFailed
		}
		if err := r.tasks.SetStatus(cleanupCtx, tasks[i].ID, terminal); err != nil {
			r.logger.Warn("mark interrupted task", zap.Int64("task_id", tasks[i].ID), zap.Error(err))
		}
		for j := i + 1; j < len(tasks); j++ {
			if err := r.tasks.SetStatus(cleanupCtx, tasks[j].ID, models.TaskAborted); err != nil {
				r.logger.Warn("mark aborted task", zap.Int64("task_id", tasks[j].ID), zap.Error(err))
			}
		}
	}

	status := models.SessionCompleted
	switch {
	case aborted:
		status, overall = models.SessionAborted, ""
	case failed:
		status, overall = models.SessionFailed, resultFail
	}

	if err := r.sessions.Finish(cleanupCtx, sessionID, status, overall, r.clk.Now()); err != nil {
		r.logger.Error("finish session", zap.Int64("session_id", sessionID), zap.Error(err))
	}
	if r.active != nil {
		if err := r.active.Delete(cleanupCtx, stationID); err != nil {
			r.logger.Warn("drop active session cache", zap.Int("station_id", stationID), zap.Error(err))
		}
	}
	r.stations.Finish(stationID, status)
	r.release(stationID)

	r.logger.Info("job finished",
		zap.Int("station_id", stationID),
		zap.Int64("session_id", sessionID),
		zap.String("status", status),
		zap.String("overall", overall))
	if status == models.SessionCompleted {
		r.events.Alert("info", fmt.Sprintf("station %d job finished: %s", stationID, overall))
	}
}

func (r *TaskRunner) runTask(ctx context.Context, stationID int, t *models.JobTask) (string, error) {
	r.stations.SetPhase(stationID, t.Label)

	if !t.IsAutomated {
		return r.runManualTask(ctx, stationID, t)
	}

	var p stepParams
	if len(t.Params) > 0 {
		if err := json.Unmarshal(t.Params, &p); err != nil {
			return "", fmt.Errorf("task %d params: %w", t.ID, err)
		}
	}

	if err := r.tasks.MarkStarted(ctx, t.ID, models.TaskInProgress, r.clk.Now()); err != nil {
		return "", err
	}

	switch t.StepType {
	case StepCharge:
		if err := r.power.SetCharge(stationID, p.VoltageLimitMV, p.CurrentMA); err != nil {
			return "", fmt.Errorf("set charge: %w", err)
		}
	case StepDischarge:
		if err := r.power.SetDischarge(stationID, p.CurrentMA, p.VoltageMinMV); err != nil {
			return "", fmt.Errorf("set discharge: %w", err)
		}
	default:
		if err := r.power.Disable(stationID); err != nil {
			return "", fmt.Errorf("disable outputs: %w", err)
		}
	}

	duration := time.Duration(p.DurationMin) * time.Minute
	if t.StepType == StepWaitTemp && p.TimeoutMin > 0 {
		duration = time.Duration(p.TimeoutMin) * time.Minute
	}
	if duration > 0 {
		timer := r.clk.NewTimer(duration)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	res, measured := r.judgeStep(stationID, t.StepType, p, duration)
	err := r.tasks.Complete(ctx, t.ID, models.TaskCompleted,
		models.ManualResult{MeasuredValues: measured, StepResult: res}, r.clk.Now())
	if err != nil {
		return "", err
	}
	return res, nil
}

func (r *TaskRunner) runManualTask(ctx context.Context, stationID int, t *models.JobTask) (string, error) {
	if err := r.tasks.MarkStarted(ctx, t.ID, models.TaskAwaitingInput, r.clk.Now()); err != nil {
		return "", err
	}

	ch := make(chan manualOutcome, 1)
	r.mu.Lock()
	r.waiters[t.ID] = ch
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.waiters, t.ID)
		r.mu.Unlock()
	}()

	r.events.AwaitingInput(stationID, t.Awaiting())
	r.logger.Info("awaiting technician input",
		zap.Int("station_id", stationID),
		zap.Int64("task_id", t.ID),
		zap.String("label", t.Label))

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case out := <-ch:
		if err := r.tasks.Complete(ctx, t.ID, out.status, out.result, r.clk.Now()); err != nil {
			return "", err
		}
		return out.result.StepResult, nil
	}
}

type measuredSnapshot struct {
	VoltageMV    *int     `json:"voltage_mv,omitempty"`
	CurrentMA    *int     `json:"current_ma,omitempty"`
	TemperatureC *float64 `json:"temperature_c,omitempty"`
	CapacityMAH  int      `json:"capacity_mah,omitempty"`
}

// judgeStep snapshots live telemetry at step completion. Capacity test
// discharges additionally compute delivered capacity against the pass
// threshold from the EEPROM block.
func (r *TaskRunner) judgeStep(stationID int, stepType string, p stepParams, d time.Duration) (string, json.RawMessage) {
	var snap measuredSnapshot
	st, err := r.stations.Get(stationID)
	if err == nil {
		snap.VoltageMV = st.VoltageMV
		snap.CurrentMA = st.CurrentMA
		snap.TemperatureC = st.TemperatureC
	}

	res := resultPass
	if stepType == StepDischarge && p.IsCapacityTest {
		snap.CapacityMAH = p.CurrentMA * int(d.Minutes()) / 60
		if err == nil && st.BatteryConfig != nil && p.PassMinCapacityPct > 0 {
			floor := st.BatteryConfig.NominalCapacityMAH * p.PassMinCapacityPct / 100
			if snap.CapacityMAH < floor {
				res = resultFail
			}
		}
	}

	data, marshalErr := json.Marshal(snap)
	if marshalErr != nil {
		return res, nil
	}
	return res, data
}
