// Package submission implements the controller operations from spec.md
// §4.7: make_workflow, submit_workflow, write_cmd, kill, clean. It is
// the integration point wiring internal/variable, internal/resolver,
// internal/cmdgroup, internal/channel, internal/jobscript,
// internal/bridge and internal/store together,
// grounded on the teacher's controller-shaped CLI commands
// (cmd/dagu.go / cmd_v2/start.go dispatching an agent against a DAG)
// generalized from "run a DAG" to "submit a workflow".
package submission

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jobweave/jobweave/internal/bridge"
	"github.com/jobweave/jobweave/internal/channel"
	"github.com/jobweave/jobweave/internal/cmdgroup"
	"github.com/jobweave/jobweave/internal/declaration"
	"github.com/jobweave/jobweave/internal/jobscript"
	"github.com/jobweave/jobweave/internal/logger"
	"github.com/jobweave/jobweave/internal/models"
	"github.com/jobweave/jobweave/internal/resolver"
	"github.com/jobweave/jobweave/internal/store"
	"github.com/jobweave/jobweave/internal/variable"
)

// Declaration-level errors, exit code 2 at the CLI per spec.md §6.2.
var (
	ErrValidation = errors.New("workflow declaration is invalid")
)

// Controller implements the submission operations. Store is always
// required; Scanner and Bridge are used by SubmitWorkflow (Scanner also
// by WriteCmd). Log may be nil, and a zero SubmitSubdirCount leaves
// tasks unbucketed. Archiving is driven by the CLI's archive command,
// not this package.
type Controller struct {
	Store             *store.Store
	Scanner           resolver.Scanner
	Bridge            bridge.Bridge
	Log               logger.Logger
	SubmitSubdirCount int
}

// MakeWorkflow validates decl, persists it, and returns its id.
// Idempotent under a workflow-directory lock: calling it twice for the
// same workingDir returns the existing workflow's id rather than
// creating a duplicate (spec.md §4.7).
func (c *Controller) MakeWorkflow(ctx context.Context, decl *declaration.Declaration, workingDir string) (string, error) {
	vars, err := decl.ResolveVariables()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := variable.Validate(vars); err != nil {
		return "", fmt.Errorf("%w: %v", ErrValidation, err)
	}
	groups, err := decl.ResolveCommandGroups()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := referencesDefined(groups, vars); err != nil {
		return "", fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := validateTopology(groups); err != nil {
		return "", fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if err := c.Store.CreateAll(ctx); err != nil {
		return "", fmt.Errorf("create schema: %w", err)
	}

	if existing, err := c.Store.GetWorkflowIDByDirectory(ctx, workingDir); err == nil {
		return existing, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("check existing workflow: %w", err)
	}

	wf := &models.Workflow{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Directory: workingDir,
		Variables: make(map[string]models.VariableRef, len(vars)),
	}
	for name, v := range vars {
		ref := models.VariableRef{Name: name, Variant: v.Variant.String(), Template: v.Template}
		switch v.Variant {
		case variable.VariantData:
			ref.Data = v.Data
		case variable.VariantFileRegex:
			ref.FileRegexPattern = v.Regex.Pattern
			ref.FileRegexGroup = v.Regex.Group
			ref.FileRegexType = valueTypeName(v.Regex.Type)
			ref.FileRegexSubset = v.Regex.Subset
		}
		wf.Variables[name] = ref
	}
	for _, g := range groups {
		wf.CommandGroups = append(wf.CommandGroups, models.CommandGroup{
			Index: g.Index, ExecOrder: g.ExecOrder, SubOrder: g.SubOrder,
			Commands: g.Commands, Directory: g.Directory, Options: g.Options,
			Modules: g.Modules, JobArray: g.JobArray, ParallelVariables: g.ParallelVariables,
			ProfileName: g.ProfileName, ProfileOrder: g.ProfileOrder,
		})
	}

	if err := c.Store.CreateWorkflow(ctx, wf); err != nil {
		return "", fmt.Errorf("persist workflow: %w", err)
	}
	return wf.ID, nil
}

// referencesDefined checks that every <<name>> a command group refers
// to names a declared variable, the command-template counterpart of
// variable.Validate's check that one variable's template only refers
// to other declared variables (spec.md §4.1/§4.3).
func referencesDefined(groups []*cmdgroup.CommandGroup, vars map[string]*variable.Variable) error {
	for _, g := range groups {
		for _, ref := range g.ReferencedVariables() {
			if _, ok := vars[ref]; !ok {
				return fmt.Errorf("%w: command group %d references undefined %q", variable.ErrUndefinedReference, g.Index, ref)
			}
		}
	}
	return nil
}

// validateTopology checks the channel-split invariant at make time,
// independent of task-range selection or variable-product lengths
// (both only matter at submit time) — spec.md §7.1 "illegal channel
// topology (split after merge)" is a declaration error, fatal at make
// time, not submit time.
func validateTopology(groups []*cmdgroup.CommandGroup) error {
	cgs := make([]channel.Group, len(groups))
	for i, g := range groups {
		cgs[i] = channel.Group{ID: i, ExecOrder: g.ExecOrder, SubOrder: g.SubOrder, DeclarationOrder: g.Index}
	}
	_, err := channel.Schedule(cgs, nil)
	return err
}

// SubmitWorkflow resolves Phase-A variables, schedules channels,
// emits jobscripts, persists the submission, and dispatches to the
// bridge with computed hold dependencies. On a partial dispatch failure
// it returns the submission id together with the error and persists
// the handles dispatched so far: the failing group's tasks stay
// `pending` (not `failed`), and groups after it get no task rows. A
// later SubmitWorkflow call creates a new submission with new task
// rows for every group; it does not resume this one.
func (c *Controller) SubmitWorkflow(ctx context.Context, workflowID string, ranges []channel.Range) (string, error) {
	wf, err := c.Store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return "", err
	}
	vars, err := varsFromWorkflow(wf)
	if err != nil {
		return "", err
	}

	cgs := make([]channel.Group, len(wf.CommandGroups))
	resolvedByGroup := make(map[int]map[string]*resolver.Resolved, len(wf.CommandGroups))
	res := resolver.New(vars, c.Scanner)

	for i, g := range wf.CommandGroups {
		refs := (&cmdgroup.CommandGroup{Commands: g.Commands}).ReferencedVariables()
		resolved, err := res.ResolveReachable(ctx, refs, wf.Directory)
		if err != nil {
			return "", fmt.Errorf("resolve command group %d: %w", g.Index, err)
		}
		resolvedByGroup[i] = resolved

		for _, ref := range refs {
			if resolved[ref].Deferred {
				return "", fmt.Errorf("command group %d: variable %q is deferred (working directory not yet populated); submit cannot determine its task count", g.Index, ref)
			}
		}

		productLength := 1
		if len(refs) > 0 {
			combined, err := resolver.Combine(resolved, refs)
			if err != nil {
				return "", fmt.Errorf("combine command group %d: %w", g.Index, err)
			}
			productLength = len(combined.Columns[refs[0]])
		}
		cgs[i] = channel.Group{ID: i, ExecOrder: g.ExecOrder, SubOrder: g.SubOrder, ProductLength: productLength, DeclarationOrder: g.Index}
	}

	scheduled, err := channel.Schedule(cgs, ranges)
	if err != nil {
		return "", fmt.Errorf("schedule channels: %w", err)
	}

	sub := &models.Submission{
		ID:               uuid.NewString(),
		WorkflowID:       workflowID,
		CreatedAt:        time.Now().UTC(),
		SchedulerHandles: make(map[int64]string),
	}
	for _, r := range ranges {
		sub.Ranges = append(sub.Ranges, [3]int{r.Start, r.End, r.Step})
	}
	if err := c.Store.CreateSubmission(ctx, sub); err != nil {
		return "", fmt.Errorf("persist submission: %w", err)
	}

	handlesByGroup := make(map[int]bridge.Handle, len(scheduled))
	var dispatchErr error
	for _, sched := range scheduled {
		g := wf.CommandGroups[sched.Group.ID]
		taskIDs, err := c.Store.CreateTasks(ctx, g.ID, 0, sched.TaskIndices)
		if err != nil {
			dispatchErr = fmt.Errorf("create tasks for group %d: %w", g.Index, err)
			break
		}

		resolved := resolvedByGroup[sched.Group.ID]
		valueDir := filepath.Join(wf.Directory, ".jobweave", "values", fmt.Sprintf("%d", g.Index))
		var varFiles map[string]string
		if len(resolved) > 0 {
			varFiles, err = resolver.WriteValueFiles(valueDir, resolved)
			if err != nil {
				dispatchErr = fmt.Errorf("write value files for group %d: %w", g.Index, err)
				break
			}
			values := make(map[string][]string, len(resolved))
			for name, r := range resolved {
				values[name] = r.Values
			}
			if err := c.Store.CreateVariableValues(ctx, g.ID, values); err != nil {
				dispatchErr = fmt.Errorf("record variable values for group %d: %w", g.Index, err)
				break
			}
		}

		cg := &cmdgroup.CommandGroup{
			Index: g.Index, Directory: g.Directory, Options: g.Options,
			Modules: g.Modules, ParallelVariables: g.ParallelVariables,
		}
		script, err := jobscript.Build(cg, sched.TaskIndices, varFiles, c.SubmitSubdirCount)
		if err != nil {
			dispatchErr = fmt.Errorf("build jobscript for group %d: %w", g.Index, err)
			break
		}

		jobscriptID := fmt.Sprintf("%s:%d", sub.ID, g.Index)
		var holdOn []bridge.Handle
		for _, depID := range sched.DependsOn {
			if h, ok := handlesByGroup[depID]; ok {
				holdOn = append(holdOn, h)
			}
		}

		scriptText := fmt.Sprintf("%s\n%s\n", joinLines(script.RenderHeader()), joinLines(script.RenderBody(jobscriptID, g.ParallelVariables)))
		handle, err := c.Bridge.Dispatch(ctx, scriptText, holdOn)
		if err != nil {
			dispatchErr = fmt.Errorf("%w: group %d: %v", bridge.ErrDispatchFailed, g.Index, err)
			break
		}
		handlesByGroup[sched.Group.ID] = handle
		sub.SchedulerHandles[g.ID] = string(handle)

		for _, taskID := range taskIDs {
			if err := c.Store.SetTaskStatus(ctx, taskID, models.TaskSubmitted); err != nil {
				dispatchErr = fmt.Errorf("mark group %d submitted: %w", g.Index, err)
				break
			}
		}
		if dispatchErr != nil {
			break
		}
	}

	// Always persist whatever handles were recorded so far, even on
	// partial failure: the failing group's tasks remain `pending`
	// rather than being marked failed.
	if err := c.Store.UpdateSubmissionHandles(ctx, sub.ID, sub.SchedulerHandles); err != nil {
		if c.Log != nil {
			c.Log.Errorf("persist partial submission handles: %v", err)
		}
	}
	if dispatchErr != nil {
		return sub.ID, dispatchErr
	}
	return sub.ID, nil
}

func varsFromWorkflow(wf *models.Workflow) (map[string]*variable.Variable, error) {
	out := make(map[string]*variable.Variable, len(wf.Variables))
	for name, ref := range wf.Variables {
		v := &variable.Variable{Name: name, Template: ref.Template}
		switch ref.Variant {
		case "data":
			v.Variant = variable.VariantData
			v.Data = ref.Data
		case "file_regex":
			v.Variant = variable.VariantFileRegex
			vt, err := valueTypeFromName(ref.FileRegexType)
			if err != nil {
				return nil, fmt.Errorf("variable %q: %w", name, err)
			}
			v.Regex = variable.FileRegex{
				Pattern: ref.FileRegexPattern,
				Group:   ref.FileRegexGroup,
				Type:    vt,
				Subset:  ref.FileRegexSubset,
			}
		default:
			return nil, fmt.Errorf("variable %q: unknown persisted variant %q", name, ref.Variant)
		}
		out[name] = v
	}
	return out, nil
}

func valueTypeName(t variable.ValueType) string {
	switch t {
	case variable.ValueTypeInt:
		return "int"
	case variable.ValueTypeFloat:
		return "float"
	case variable.ValueTypeBool:
		return "bool"
	default:
		return "string"
	}
}

func valueTypeFromName(name string) (variable.ValueType, error) {
	switch name {
	case "string", "":
		return variable.ValueTypeString, nil
	case "int":
		return variable.ValueTypeInt, nil
	case "float":
		return variable.ValueTypeFloat, nil
	case "bool":
		return variable.ValueTypeBool, nil
	default:
		return 0, fmt.Errorf("unknown file_regex type %q", name)
	}
}

func joinLines(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}

// WriteCmd is the runtime operation a jobscript invokes: it loads the
// workflow, performs Phase-B resolution for the owning command group,
// and returns the concrete shell command text for taskIndex (the CLI
// prints it). It writes no command file itself.
func (c *Controller) WriteCmd(ctx context.Context, workflowID string, commandGroupIndex, taskIndex int) (string, error) {
	wf, err := c.Store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return "", err
	}
	if commandGroupIndex < 0 || commandGroupIndex >= len(wf.CommandGroups) {
		return "", fmt.Errorf("command group index %d out of range", commandGroupIndex)
	}
	g := wf.CommandGroups[commandGroupIndex]

	vars, err := varsFromWorkflow(wf)
	if err != nil {
		return "", err
	}
	refs := (&cmdgroup.CommandGroup{Commands: g.Commands}).ReferencedVariables()
	res := resolver.New(vars, c.Scanner)
	resolved, err := res.ResolveReachable(ctx, refs, wf.Directory)
	if err != nil {
		return "", fmt.Errorf("resolve command group %d at runtime: %w", commandGroupIndex, err)
	}
	for name, r := range resolved {
		if r.Deferred {
			return "", fmt.Errorf("variable %q still deferred at runtime for group %d", name, commandGroupIndex)
		}
	}

	if taskIndex < 0 {
		return "", fmt.Errorf("task index %d must be non-negative", taskIndex)
	}
	var lines []string
	for _, cmdTmpl := range g.Commands {
		line := cmdTmpl
		for _, ref := range refs {
			r := resolved[ref]
			if taskIndex >= len(r.Values) {
				return "", fmt.Errorf("task index %d out of range for variable %q (%d values)", taskIndex, ref, len(r.Values))
			}
			line = strings.ReplaceAll(line, "<<"+ref+">>", r.Values[taskIndex])
		}
		lines = append(lines, line)
	}
	return joinLines(lines) + "\n", nil
}

// killReason is the cancel_reason recorded against every task kill
// transitions to failed (spec.md §5, scenario S6).
const killReason = "killed"

// Kill transitions every non-terminal task of workflowID to failed,
// recording killReason against each and, for a task already running,
// an end timestamp; a task that never started gets no start/end
// timestamps, only the reason. It does not itself reach into the
// scheduler: a dispatched job left running after this call will still
// write its own terminal SetTaskEnd, which is a no-op once the task is
// already failed (SetTaskEnd leaves a terminal task unchanged) —
// spec.md §4.7, §5.
func (c *Controller) Kill(ctx context.Context, workflowID string) error {
	taskIDs, err := c.Store.NonTerminalTaskIDs(ctx, workflowID)
	if err != nil {
		return fmt.Errorf("list non-terminal tasks: %w", err)
	}
	now := time.Now().UTC()
	for _, id := range taskIDs {
		if err := c.Store.CancelTask(ctx, id, now, killReason); err != nil {
			return fmt.Errorf("cancel task %d: %w", id, err)
		}
	}
	return nil
}

// Clean removes generated artifacts (emitted jobscripts, value files,
// per-task subdirectories) from workingDir. Caller is responsible for
// obtaining user confirmation before calling Clean (spec.md §4.7).
func (c *Controller) Clean(workingDir string) error {
	dir := filepath.Join(workingDir, ".jobweave")
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}
	return os.RemoveAll(dir)
}
