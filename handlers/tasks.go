// ABOUTME: Task MCP tool handlers
// ABOUTME: Implements create_task, find_tasks and complete_task tools
package handlers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/leadlab/models"
	"github.com/harperreed/leadlab/services"
)

type TaskHandlers struct {
	svc *services.Services
	now func() time.Time
}

func NewTaskHandlers(svc *services.Services) *TaskHandlers {
	return &TaskHandlers{svc: svc, now: time.Now}
}

type CreateTaskInput struct {
	Title       string `json:"title" jsonschema:"Task title (required)"`
	Description string `json:"description,omitempty" jsonschema:"Details"`
	Priority    string `json:"priority,omitempty" jsonschema:"low, medium, high or urgent (default medium)"`
	DueDate     string `json:"due_date,omitempty" jsonschema:"Due date in ISO 8601 format"`
	LeadID      string `json:"lead_id,omitempty" jsonschema:"Lead the task is about"`
	AssignedTo  string `json:"assigned_to,omitempty" jsonschema:"User id to assign"`
}

type TaskOutput struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Status   string  `json:"status"`
	Priority string  `json:"priority"`
	DueDate  string  `json:"due_date,omitempty"`
	Overdue  bool    `json:"overdue"`
	LeadID   *string `json:"lead_id,omitempty"`
}

type FindTasksInput struct {
	Status      string `json:"status,omitempty" jsonschema:"todo, in_progress, review or done"`
	LeadID      string `json:"lead_id,omitempty" jsonschema:"Only tasks for this lead"`
	OverdueOnly bool   `json:"overdue_only,omitempty" jsonschema:"Only unfinished tasks past their due date"`
}

type FindTasksOutput struct {
	Tasks []TaskOutput `json:"tasks"`
	Count int          `json:"count"`
}

type CompleteTaskInput struct {
	ID string `json:"id" jsonschema:"Task id (required)"`
}

func (h *TaskHandlers) CreateTask(ctx context.Context, _ *mcp.CallToolRequest, input CreateTaskInput) (*mcp.CallToolResult, TaskOutput, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, TaskOutput{}, fmt.Errorf("title is required")
	}
	task, err := h.svc.Tasks.Create(ctx, models.TaskForm{
		Title:        input.Title,
		Description:  input.Description,
		Priority:     input.Priority,
		DueDate:      input.DueDate,
		LeadID:       input.LeadID,
		AssignedToID: input.AssignedTo,
	})
	if err != nil {
		return nil, TaskOutput{}, fmt.Errorf("failed to create task: %w", err)
	}
	return nil, h.taskToOutput(task), nil
}

func (h *TaskHandlers) FindTasks(ctx context.Context, _ *mcp.CallToolRequest, input FindTasksInput) (*mcp.CallToolResult, FindTasksOutput, error) {
	var filter services.TaskFilter
	if input.Status != "" {
		status, ok := models.ParseTaskStatus(input.Status)
		if !ok {
			return nil, FindTasksOutput{}, fmt.Errorf("invalid status: %s", input.Status)
		}
		filter.Status = status
	}
	if input.LeadID != "" {
		id, err := parseUUID("lead_id", input.LeadID)
		if err != nil {
			return nil, FindTasksOutput{}, err
		}
		filter.LeadID = &id
	}
	tasks, err := h.svc.Tasks.List(ctx, filter)
	if err != nil {
		return nil, FindTasksOutput{}, fmt.Errorf("failed to find tasks: %w", err)
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i].DueDate, tasks[j].DueDate
		if a.IsZero() != b.IsZero() {
			return b.IsZero()
		}
		return a.Before(b.Time)
	})

	out := FindTasksOutput{Tasks: []TaskOutput{}}
	for i := range tasks {
		t := h.taskToOutput(&tasks[i])
		if input.OverdueOnly && !t.Overdue {
			continue
		}
		out.Tasks = append(out.Tasks, t)
	}
	out.Count = len(out.Tasks)
	return nil, out, nil
}

func (h *TaskHandlers) CompleteTask(ctx context.Context, _ *mcp.CallToolRequest, input CompleteTaskInput) (*mcp.CallToolResult, TaskOutput, error) {
	id, err := parseUUID("id", input.ID)
	if err != nil {
		return nil, TaskOutput{}, err
	}
	task, err := h.svc.Tasks.UpdateStatus(ctx, id, models.TaskDone)
	if err != nil {
		return nil, TaskOutput{}, fmt.Errorf("failed to complete task: %w", err)
	}
	return nil, h.taskToOutput(task), nil
}

func (h *TaskHandlers) taskToOutput(t *models.Task) TaskOutput {
	out := TaskOutput{
		ID:       t.ID.String(),
		Title:    t.Title,
		Status:   string(t.Status),
		Priority: string(t.Priority),
		DueDate:  t.DueDate.Date(),
		Overdue:  t.Overdue(h.now()),
	}
	if t.LeadID != nil {
		s := t.LeadID.String()
		out.LeadID = &s
	}
	return out
}
