// ABOUTME: Tests for dashboard statistics and the pipeline graph
// ABOUTME: Uses fixed clocks so staleness and due dates are deterministic
package viz

import (
	"context"
	"testing"
	"time"

	"github.com/goccy/go-graphviz"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/leadlab/models"
)

var now = time.Date(2024, 6, 25, 12, 0, 0, 0, time.UTC)

func sampleInput() Input {
	stageA := models.Stage{ID: uuid.New(), Name: "New", Position: 0}
	stageB := models.Stage{ID: uuid.New(), Name: "Contacted", Position: 1}
	lead := models.Lead{ID: uuid.New(), FirstName: "Ada", LastName: "Lovelace", Company: "Acme", StageID: &stageB.ID}
	return Input{
		Stages: []models.Stage{stageA, stageB},
		Leads: []models.Lead{
			lead,
			{ID: uuid.New(), FirstName: "Grace", StageID: &stageB.ID},
			{ID: uuid.New(), FirstName: "Linus"},
		},
		LeadTotal: 3,
		Deals: []models.Deal{
			{ID: uuid.New(), Name: "Big", Amount: 50000, Status: models.DealProposal, LeadID: &lead.ID, UpdatedAt: models.NewTime(now.AddDate(0, 0, -30))},
			{ID: uuid.New(), Name: "Fresh", Amount: 1000, Status: models.DealLead, UpdatedAt: models.NewTime(now.AddDate(0, 0, -1))},
			{ID: uuid.New(), Name: "Done", Amount: 2500, Status: models.DealWon},
			{ID: uuid.New(), Name: "Gone", Amount: 900, Status: models.DealLost},
			{ID: uuid.New(), Name: "Gone too", Amount: 100, Status: models.DealLost},
		},
		Tasks: []models.Task{
			{Title: "Late", Status: models.TaskTodo, DueDate: models.NewTime(now.AddDate(0, 0, -2))},
			{Title: "Today", Status: models.TaskInProgress, DueDate: models.NewTime(now.Add(3 * time.Hour))},
			{Title: "Finished", Status: models.TaskDone, DueDate: models.NewTime(now.AddDate(0, 0, -5))},
			{Title: "Someday", Status: models.TaskTodo},
		},
		Unread: 4,
	}
}

func TestCompute(t *testing.T) {
	stats := Compute(sampleInput(), now)

	require.Len(t, stats.Pipeline, len(models.DealStatuses))
	assert.Equal(t, models.DealLead, stats.Pipeline[0].Status)
	assert.Equal(t, 1, stats.Pipeline[0].Count)
	assert.Equal(t, 2, stats.Pipeline[5].Count)
	assert.InDelta(t, 51000, stats.OpenValue, 0.01)
	assert.InDelta(t, 2500, stats.WonValue, 0.01)
	assert.InDelta(t, 1.0/3.0, stats.WinRate, 0.0001)

	assert.Equal(t, []StageStats{{Name: "New"}, {Name: "Contacted", Count: 2}, {Name: "Unstaged", Count: 1}}, stats.LeadsByStage)

	assert.Equal(t, 3, stats.OpenTasks)
	assert.Equal(t, 1, stats.OverdueTasks)
	assert.Equal(t, 1, stats.DueToday)
	require.Len(t, stats.Upcoming, 2)
	assert.Equal(t, "Late", stats.Upcoming[0].Title)

	require.Len(t, stats.StaleDeals, 1)
	assert.Equal(t, "Big", stats.StaleDeals[0].Name)
	assert.Equal(t, 30, stats.StaleDeals[0].DaysSince)
}

func TestRenderDashboard(t *testing.T) {
	out := RenderDashboard(Compute(sampleInput(), now))

	assert.Contains(t, out, "LEADLAB DASHBOARD")
	assert.Contains(t, out, "Proposal")
	assert.Contains(t, out, "$50.0K")
	assert.Contains(t, out, "3 leads")
	assert.Contains(t, out, "4 unread")
	assert.Contains(t, out, "1 tasks overdue")
	assert.Contains(t, out, "1 deals - stale")
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "$999", Money(999))
	assert.Equal(t, "$1.5K", Money(1500))
	assert.Equal(t, "$2.3M", Money(2_300_000))
}

func TestPipelineGraph(t *testing.T) {
	dot, err := PipelineGraph(context.Background(), sampleInput(), graphviz.XDOT)
	require.NoError(t, err)

	assert.Contains(t, dot, "LeadLab Pipeline")
	assert.Contains(t, dot, "Contacted")
	assert.Contains(t, dot, "Acme")
	assert.Contains(t, dot, "Big")
}
