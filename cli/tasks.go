// ABOUTME: Task CLI commands
// ABOUTME: List, add, move, complete and delete tasks with overdue highlighting
package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/harperreed/leadlab/models"
	"github.com/harperreed/leadlab/services"
)

func newTasksCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task"},
		Short:   "Manage tasks",
	}
	cmd.AddCommand(
		newTasksListCommand(rt),
		newTasksAddCommand(rt),
		newTasksMoveCommand(rt),
		newTasksDoneCommand(rt),
		newTasksDeleteCommand(rt),
	)
	return cmd
}

func taskStatusList() string {
	names := make([]string, len(models.TaskStatuses))
	for i, s := range models.TaskStatuses {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

func parseTaskStatus(s string) (models.TaskStatus, error) {
	st, ok := models.ParseTaskStatus(s)
	if !ok {
		return "", fmt.Errorf("invalid status %q (valid: %s)", s, taskStatusList())
	}
	return st, nil
}

// sortTasks puts the earliest due date first and undated tasks last.
func sortTasks(tasks []models.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i].DueDate, tasks[j].DueDate
		switch {
		case a.IsZero():
			return false
		case b.IsZero():
			return true
		}
		return a.Before(b.Time)
	})
}

func newTasksListCommand(rt *runtime) *cobra.Command {
	var (
		status, lead string
		mine         bool
		overdue      bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks by due date",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := rt.session(ctx)
			if err != nil {
				return err
			}
			var filter services.TaskFilter
			if status != "" {
				if filter.Status, err = parseTaskStatus(status); err != nil {
					return err
				}
			}
			if lead != "" {
				id, err := parseID("lead", lead)
				if err != nil {
					return err
				}
				filter.LeadID = &id
			}
			if mine {
				filter.AssignedTo = &a.Auth.Snapshot().User.ID
			}
			tasks, err := a.Services.Tasks.List(ctx, filter)
			if err != nil {
				return failure(err, "load tasks")
			}
			now := time.Now()
			if overdue {
				kept := tasks[:0]
				for _, t := range tasks {
					if t.Overdue(now) {
						kept = append(kept, t)
					}
				}
				tasks = kept
			}
			sortTasks(tasks)
			return rt.emit(cmd, tasks, func(w io.Writer) {
				if len(tasks) == 0 {
					empty(w, "tasks")
					return
				}
				rows := make([][]string, 0, len(tasks))
				for _, t := range tasks {
					due := dateOrDash(t.DueDate)
					if t.Overdue(now) {
						due = warnStyle.Render(due + " !")
					}
					rows = append(rows, []string{t.Title, t.Status.Label(), t.Priority.Label(), due, t.ID.String()})
				}
				table(w, []string{"TITLE", "STATUS", "PRIORITY", "DUE", "ID"}, rows)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&status, "status", "", "Filter by status ("+taskStatusList()+")")
	f.StringVar(&lead, "lead", "", "Filter by lead id")
	f.BoolVar(&mine, "mine", false, "Only tasks assigned to me")
	f.BoolVar(&overdue, "overdue", false, "Only overdue tasks")
	return cmd
}

func newTasksAddCommand(rt *runtime) *cobra.Command {
	var (
		form models.TaskForm
		me   bool
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := rt.session(ctx)
			if err != nil {
				return err
			}
			if me {
				form.AssignedToID = a.Auth.Snapshot().User.ID.String()
			}
			task, err := a.Services.Tasks.Create(ctx, form)
			if err != nil {
				return failure(err, "create the task")
			}
			return rt.emit(cmd, task, func(w io.Writer) {
				done(w, fmt.Sprintf("Task created: %s (ID: %s)", task.Title, task.ID),
					"Priority: "+task.Priority.Label(),
					"Due: "+dateOrDash(task.DueDate))
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&form.Title, "title", "", "Task title (required)")
	f.StringVar(&form.Description, "description", "", "Description")
	f.StringVar(&form.Status, "status", string(models.TaskTodo), "Status ("+taskStatusList()+")")
	f.StringVar(&form.Priority, "priority", string(models.PriorityMedium), "Priority: low, medium, high, urgent")
	f.StringVar(&form.DueDate, "due", "", "Due date like 2024-06-25")
	f.StringVar(&form.LeadID, "lead", "", "Lead id")
	f.StringVar(&form.AssignedToID, "assignee", "", "Assigned user id")
	f.BoolVar(&me, "me", false, "Assign to me")
	return cmd
}

func (rt *runtime) setTaskStatus(cmd *cobra.Command, arg string, status models.TaskStatus) error {
	ctx := cmd.Context()
	a, err := rt.session(ctx)
	if err != nil {
		return err
	}
	id, err := parseID("task", arg)
	if err != nil {
		return err
	}
	task, err := a.Services.Tasks.UpdateStatus(ctx, id, status)
	if err != nil {
		return failure(err, "update task status")
	}
	return rt.emit(cmd, task, func(w io.Writer) {
		done(w, fmt.Sprintf("Task %s is now %s", task.Title, task.Status.Label()))
	})
}

func newTasksMoveCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "move ID STATUS",
		Short: "Change a task's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := parseTaskStatus(args[1])
			if err != nil {
				return err
			}
			return rt.setTaskStatus(cmd, args[0], status)
		},
	}
}

func newTasksDoneCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "done ID",
		Short: "Mark a task done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.setTaskStatus(cmd, args[0], models.TaskDone)
		},
	}
}

func newTasksDeleteCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.remove(cmd, "task", args[0], func(ctx context.Context, svc *services.Services, id uuid.UUID) error {
				return svc.Tasks.Remove(ctx, id)
			})
		},
	}
}
