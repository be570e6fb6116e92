package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/jobweave/jobweave/internal/coordinator"
	"github.com/jobweave/jobweave/internal/fileutil"
	"github.com/jobweave/jobweave/internal/models"
)

// CreateWorkflow persists a Workflow aggregate (workflow row, its
// variable definitions and command groups) in one transaction.
// Foreign-key cascade delete is declared in the schema (spec.md §4.5).
func (s *Store) CreateWorkflow(ctx context.Context, wf *models.Workflow) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO workflow (id, created_at, directory) VALUES (?, ?, ?)`,
			wf.ID, wf.CreatedAt, wf.Directory,
		)
		if err != nil {
			return classifyErr(err)
		}

		for name, v := range wf.Variables {
			dataJSON, err := json.Marshal(v.Data)
			if err != nil {
				return fmt.Errorf("marshal variable data: %w", err)
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO variable_definition
					(workflow_id, name, variant, template, data_json, file_regex_pattern, file_regex_group, file_regex_type, file_regex_subset)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				wf.ID, name, v.Variant, v.Template, string(dataJSON), v.FileRegexPattern, v.FileRegexGroup, v.FileRegexType, v.FileRegexSubset,
			)
			if err != nil {
				return classifyErr(err)
			}
		}

		for i := range wf.CommandGroups {
			g := &wf.CommandGroups[i]
			commandsJSON, err := json.Marshal(g.Commands)
			if err != nil {
				return fmt.Errorf("marshal commands: %w", err)
			}
			optionsJSON, err := json.Marshal(g.Options)
			if err != nil {
				return fmt.Errorf("marshal options: %w", err)
			}
			modulesJSON, err := json.Marshal(g.Modules)
			if err != nil {
				return fmt.Errorf("marshal modules: %w", err)
			}
			res, err := tx.ExecContext(ctx,
				`INSERT INTO command_group
					(workflow_id, idx, exec_order, sub_order, commands_json, directory, options_json, modules_json, job_array, parallel_variables, profile_name, profile_order)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				wf.ID, g.Index, g.ExecOrder, g.SubOrder, string(commandsJSON), g.Directory, string(optionsJSON), string(modulesJSON), g.JobArray, g.ParallelVariables, g.ProfileName, g.ProfileOrder,
			)
			if err != nil {
				return classifyErr(err)
			}
			id, err := res.LastInsertId()
			if err != nil {
				return err
			}
			g.ID = id
		}
		return nil
	})
}

// GetWorkflowIDByDirectory returns the id of a previously-created
// workflow rooted at directory, if one exists, for make_workflow's
// idempotency-under-a-workflow-directory-lock rule (spec.md §4.7).
func (s *Store) GetWorkflowIDByDirectory(ctx context.Context, directory string) (string, error) {
	if err := s.requireSchema(ctx); err != nil {
		return "", err
	}
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM workflow WHERE directory = ? ORDER BY created_at DESC LIMIT 1`, directory).Scan(&id)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%w: workflow for directory %q", ErrNotFound, directory)
	}
	return id, classifyErr(err)
}

// GetSubmissionWorkflowID looks up the workflow a submission belongs
// to, letting callers resolve a jobscript id of the form
// "<submission-id>:<command-group-index>" back to the workflow id
// WriteCmd needs (spec.md §4.7 write_cmd is addressed by jobscript id,
// not workflow id).
func (s *Store) GetSubmissionWorkflowID(ctx context.Context, submissionID string) (string, error) {
	if err := s.requireSchema(ctx); err != nil {
		return "", err
	}
	var workflowID string
	err := s.db.QueryRowContext(ctx, `SELECT workflow_id FROM submission WHERE id = ?`, submissionID).Scan(&workflowID)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%w: submission %q", ErrNotFound, submissionID)
	}
	return workflowID, classifyErr(err)
}

// TaskWorkingDir computes the on-disk directory spec.md's persisted
// state layout assigns to one task: <group-or-workflow-directory>/
// .jobweave/tasks/<zero-padded-index>, using fileutil.PadWidth over
// every task ever created for the command group so a task's
// subdirectory name never depends on which subset of tasks a later
// submission's ranges happened to select (spec.md §6.4, archive).
func (s *Store) TaskWorkingDir(ctx context.Context, taskID int64) (string, error) {
	if err := s.requireSchema(ctx); err != nil {
		return "", err
	}
	var idx int
	var commandGroupID int64
	var groupDir, workflowDir string
	err := s.db.QueryRowContext(ctx, `
		SELECT t.idx, t.command_group_id, g.directory, w.directory
		FROM task t
		JOIN command_group g ON g.id = t.command_group_id
		JOIN workflow w ON w.id = g.workflow_id
		WHERE t.id = ?`, taskID,
	).Scan(&idx, &commandGroupID, &groupDir, &workflowDir)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%w: task %d", ErrNotFound, taskID)
	}
	if err != nil {
		return "", classifyErr(err)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM task WHERE command_group_id = ?`, commandGroupID).Scan(&total); err != nil {
		return "", classifyErr(err)
	}

	dir := groupDir
	if dir == "" {
		dir = workflowDir
	}
	width := fileutil.PadWidth(total)
	return filepath.Join(dir, ".jobweave", "tasks", fileutil.ZeroPad(idx, width)), nil
}

// GetWorkflow loads a Workflow aggregate by id.
func (s *Store) GetWorkflow(ctx context.Context, id string) (*models.Workflow, error) {
	if err := s.requireSchema(ctx); err != nil {
		return nil, err
	}
	wf := &models.Workflow{ID: id, Variables: map[string]models.VariableRef{}}
	row := s.db.QueryRowContext(ctx, `SELECT created_at, directory FROM workflow WHERE id = ?`, id)
	if err := row.Scan(&wf.CreatedAt, &wf.Directory); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: workflow %q", ErrNotFound, id)
		}
		return nil, classifyErr(err)
	}

	varRows, err := s.db.QueryContext(ctx,
		`SELECT name, variant, template, data_json, file_regex_pattern, file_regex_group, file_regex_type, file_regex_subset
		 FROM variable_definition WHERE workflow_id = ?`, id)
	if err != nil {
		return nil, classifyErr(err)
	}
	defer varRows.Close()
	for varRows.Next() {
		var v models.VariableRef
		var dataJSON string
		if err := varRows.Scan(&v.Name, &v.Variant, &v.Template, &dataJSON, &v.FileRegexPattern, &v.FileRegexGroup, &v.FileRegexType, &v.FileRegexSubset); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(dataJSON), &v.Data); err != nil {
			return nil, err
		}
		wf.Variables[v.Name] = v
	}

	groupRows, err := s.db.QueryContext(ctx,
		`SELECT id, idx, exec_order, sub_order, commands_json, directory, options_json, modules_json, job_array, parallel_variables, profile_name, profile_order
		 FROM command_group WHERE workflow_id = ? ORDER BY exec_order, sub_order, idx`, id)
	if err != nil {
		return nil, classifyErr(err)
	}
	defer groupRows.Close()
	for groupRows.Next() {
		var g models.CommandGroup
		var commandsJSON, optionsJSON, modulesJSON string
		if err := groupRows.Scan(&g.ID, &g.Index, &g.ExecOrder, &g.SubOrder, &commandsJSON, &g.Directory, &optionsJSON, &modulesJSON, &g.JobArray, &g.ParallelVariables, &g.ProfileName, &g.ProfileOrder); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(commandsJSON), &g.Commands); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(optionsJSON), &g.Options); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(modulesJSON), &g.Modules); err != nil {
			return nil, err
		}
		wf.CommandGroups = append(wf.CommandGroups, g)
	}
	return wf, nil
}

// CreateVariableValues persists the resolved per-task value vector for
// each directly-referenced variable of a command group, an audit trail
// queryable by the stat/show-stats CLI operations without needing to
// re-run resolution (spec.md §4.2 Phase B materializes these as value
// files; this is the same data, indexed for lookup).
func (s *Store) CreateVariableValues(ctx context.Context, commandGroupID int64, values map[string][]string) error {
	if err := s.requireSchema(ctx); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for name, rows := range values {
			for i, v := range rows {
				_, err := tx.ExecContext(ctx,
					`INSERT OR REPLACE INTO variable_value (command_group_id, variable_name, row_index, value) VALUES (?, ?, ?, ?)`,
					commandGroupID, name, i, v,
				)
				if err != nil {
					return classifyErr(err)
				}
			}
		}
		return nil
	})
}

// VariableValues returns the persisted per-task value vector for one
// variable of a command group, in row order.
func (s *Store) VariableValues(ctx context.Context, commandGroupID int64, variableName string) ([]string, error) {
	if err := s.requireSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT value FROM variable_value WHERE command_group_id = ? AND variable_name = ? ORDER BY row_index`,
		commandGroupID, variableName,
	)
	if err != nil {
		return nil, classifyErr(err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// CreateTasks inserts one task row per index in indices for the given
// command group (and optional iteration), all pending.
func (s *Store) CreateTasks(ctx context.Context, commandGroupID, iterationID int64, indices []int) ([]int64, error) {
	if err := s.requireSchema(ctx); err != nil {
		return nil, err
	}
	var ids []int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, idx := range indices {
			var iterArg any
			if iterationID != 0 {
				iterArg = iterationID
			}
			res, err := tx.ExecContext(ctx,
				`INSERT INTO task (command_group_id, iteration_id, idx, status) VALUES (?, ?, ?, ?)`,
				commandGroupID, iterArg, idx, models.TaskPending,
			)
			if err != nil {
				return classifyErr(err)
			}
			id, err := res.LastInsertId()
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// SetTaskStatus transitions a task's status directly, validating the
// state machine (used to mark a task submitted once its jobscript is
// dispatched — spec.md §4.7 submit_workflow).
func (s *Store) SetTaskStatus(ctx context.Context, taskID int64, to models.TaskStatus) error {
	if err := s.requireSchema(ctx); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var from models.TaskStatus
		if err := tx.QueryRowContext(ctx, `SELECT status FROM task WHERE id = ?`, taskID).Scan(&from); err != nil {
			if err == sql.ErrNoRows {
				return fmt.Errorf("%w: task %d", ErrNotFound, taskID)
			}
			return classifyErr(err)
		}
		if from.Terminal() {
			return nil // cancel on an already-terminal task is a no-op (spec.md §5)
		}
		if err := models.ValidateTransition(from, to); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE task SET status = ? WHERE id = ?`, to, taskID)
		return classifyErr(err)
	})
}

// CancelTask transitions a non-terminal task straight to failed,
// without going through SetTaskEnd's event-keyed idempotency, and
// records reason in cancel_reason. If the task had already reached
// running (started_at set), endedAt is recorded too; a task cancelled
// before it ever started gets no start/end timestamps, only the
// reason (spec.md §4.7 kill, §5, scenario S6).
func (s *Store) CancelTask(ctx context.Context, taskID int64, endedAt time.Time, reason string) error {
	if err := s.requireSchema(ctx); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var from models.TaskStatus
		if err := tx.QueryRowContext(ctx, `SELECT status FROM task WHERE id = ?`, taskID).Scan(&from); err != nil {
			if err == sql.ErrNoRows {
				return fmt.Errorf("%w: task %d", ErrNotFound, taskID)
			}
			return classifyErr(err)
		}
		if from.Terminal() {
			return nil // cancel on an already-terminal task is a no-op (spec.md §5)
		}
		if err := models.ValidateTransition(from, models.TaskFailed); err != nil {
			return err
		}
		if from == models.TaskRunning {
			_, err := tx.ExecContext(ctx,
				`UPDATE task SET status = ?, ended_at = ?, cancel_reason = ? WHERE id = ?`,
				models.TaskFailed, endedAt, reason, taskID)
			return classifyErr(err)
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE task SET status = ?, cancel_reason = ? WHERE id = ?`,
			models.TaskFailed, reason, taskID)
		return classifyErr(err)
	})
}

// TaskStatus returns a single task's current status.
func (s *Store) TaskStatus(ctx context.Context, taskID int64) (models.TaskStatus, error) {
	if err := s.requireSchema(ctx); err != nil {
		return "", err
	}
	var status models.TaskStatus
	err := s.db.QueryRowContext(ctx, `SELECT status FROM task WHERE id = ?`, taskID).Scan(&status)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%w: task %d", ErrNotFound, taskID)
	}
	return status, classifyErr(err)
}

// GetTask returns one task's full row, including the start/end
// timestamps and cancel_reason kill records (spec.md §4.7, §5).
func (s *Store) GetTask(ctx context.Context, taskID int64) (*models.Task, error) {
	if err := s.requireSchema(ctx); err != nil {
		return nil, err
	}
	var t models.Task
	var iterationID sql.NullInt64
	var cancelReason sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, command_group_id, iteration_id, idx, scheduler_task_id, status, started_at, ended_at, exit_code, cancel_reason, archived
		 FROM task WHERE id = ?`, taskID,
	).Scan(&t.ID, &t.CommandGroupID, &iterationID, &t.Index, &t.SchedulerTaskID, &t.Status, &t.StartedAt, &t.EndedAt, &t.ExitCode, &cancelReason, &t.Archived)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: task %d", ErrNotFound, taskID)
	}
	if err != nil {
		return nil, classifyErr(err)
	}
	t.IterationID = iterationID.Int64
	t.CancelReason = cancelReason.String
	return &t, nil
}

// NonTerminalTaskIDs returns the ids of all tasks belonging to a
// workflow (via its command groups) that are not yet in a terminal
// state — the set kill() must transition to failed.
func (s *Store) NonTerminalTaskIDs(ctx context.Context, workflowID string) ([]int64, error) {
	if err := s.requireSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id FROM task t
		 JOIN command_group g ON g.id = t.command_group_id
		 WHERE g.workflow_id = ? AND t.status NOT IN (?, ?)`,
		workflowID, models.TaskComplete, models.TaskFailed,
	)
	if err != nil {
		return nil, classifyErr(err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// CreateSubmission persists a Submission record.
func (s *Store) CreateSubmission(ctx context.Context, sub *models.Submission) error {
	if err := s.requireSchema(ctx); err != nil {
		return err
	}
	rangesJSON, err := json.Marshal(sub.Ranges)
	if err != nil {
		return err
	}
	handlesJSON, err := json.Marshal(sub.SchedulerHandles)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO submission (id, workflow_id, ranges_json, created_at, handles_json) VALUES (?, ?, ?, ?, ?)`,
		sub.ID, sub.WorkflowID, string(rangesJSON), sub.CreatedAt, string(handlesJSON),
	)
	return classifyErr(err)
}

// UpdateSubmissionHandles persists the scheduler handles recorded so
// far for a submission, used by the partial-dispatch-failure recovery
// path in spec.md §4.7/§7.4.
func (s *Store) UpdateSubmissionHandles(ctx context.Context, submissionID string, handles map[int64]string) error {
	if err := s.requireSchema(ctx); err != nil {
		return err
	}
	handlesJSON, err := json.Marshal(handles)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `UPDATE submission SET handles_json = ? WHERE id = ?`, string(handlesJSON), submissionID)
	return classifyErr(err)
}

// CreateArchiveOperation opens an archive operation for a task,
// rejecting a second concurrent one (spec.md §3: "at-most-one-active
// -per-task lock").
func (s *Store) CreateArchiveOperation(ctx context.Context, taskID int64, startedAt time.Time) (int64, error) {
	if err := s.requireSchema(ctx); err != nil {
		return 0, err
	}
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var activeCount int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM archive_operation WHERE task_id = ? AND ended_at IS NULL`, taskID,
		).Scan(&activeCount)
		if err != nil {
			return classifyErr(err)
		}
		if activeCount > 0 {
			return fmt.Errorf("%w: task %d already has an active archive operation", ErrConstraintViolation, taskID)
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO archive_operation (task_id, started_at) VALUES (?, ?)`, taskID, startedAt,
		)
		if err != nil {
			return classifyErr(err)
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// EndArchiveOperation closes an archive operation.
func (s *Store) EndArchiveOperation(ctx context.Context, id int64, endedAt time.Time, succeeded bool, location string) error {
	if err := s.requireSchema(ctx); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE archive_operation SET ended_at = ?, succeeded = ?, location = ? WHERE id = ?`,
		endedAt, succeeded, location, id,
	)
	return classifyErr(err)
}

// LoadWatermark and SaveWatermark implement internal/coordinator's
// WatermarkStore against the coordinator_watermark table, so a
// coordinator's catch-up state survives a jobweave process restart the
// same way every other piece of submission state does.
func (s *Store) LoadWatermark(ctx context.Context, workflowID string) (*coordinator.Watermark, error) {
	if err := s.requireSchema(ctx); err != nil {
		return nil, err
	}
	var wm coordinator.Watermark
	err := s.db.QueryRowContext(ctx,
		`SELECT workflow_id, last_tick FROM coordinator_watermark WHERE workflow_id = ?`, workflowID,
	).Scan(&wm.WorkflowID, &wm.LastTick)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classifyErr(err)
	}
	return &wm, nil
}

func (s *Store) SaveWatermark(ctx context.Context, wm *coordinator.Watermark) error {
	if err := s.requireSchema(ctx); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO coordinator_watermark (workflow_id, last_tick) VALUES (?, ?)
		 ON CONFLICT(workflow_id) DO UPDATE SET last_tick = excluded.last_tick`,
		wm.WorkflowID, wm.LastTick,
	)
	return classifyErr(err)
}
