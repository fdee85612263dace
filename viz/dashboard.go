// ABOUTME: Dashboard statistics computed from leads, deals, tasks and notifications
// ABOUTME: Renders the terminal overview with pipeline bars and attention items
package viz

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/harperreed/leadlab/models"
	"github.com/harperreed/leadlab/services"
)

const (
	staleDealDays = 14
	upcomingTasks = 5
	fetchLimit    = 1000
)

// Input is everything the dashboard is computed from.
type Input struct {
	Leads     []models.Lead
	LeadTotal int
	Stages    []models.Stage
	Deals     []models.Deal
	Tasks     []models.Task
	Unread    int
}

type Stats struct {
	Pipeline     []StatusStats
	LeadsByStage []StageStats

	TotalLeads int
	TotalDeals int
	OpenValue  float64
	WonValue   float64
	WinRate    float64

	OpenTasks    int
	OverdueTasks int
	DueToday     int
	Upcoming     []models.Task

	StaleDeals []StaleDeal
	Unread     int
}

type StatusStats struct {
	Status models.DealStatus `json:"status"`
	Count  int               `json:"count"`
	Amount float64           `json:"amount"`
}

type StageStats struct {
	Name  string
	Count int
}

type StaleDeal struct {
	Name      string
	DaysSince int
}

// Load fetches the dashboard inputs concurrently.
func Load(ctx context.Context, svc *services.Services) (Input, error) {
	var in Input
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		page, err := svc.Leads.List(ctx, services.LeadFilter{Paging: services.Paging{Limit: fetchLimit}})
		if err != nil {
			return fmt.Errorf("failed to fetch leads: %w", err)
		}
		in.Leads, in.LeadTotal = page.Items, page.Total
		return nil
	})
	g.Go(func() error {
		stages, err := svc.Stages.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch stages: %w", err)
		}
		in.Stages = stages
		return nil
	})
	g.Go(func() error {
		deals, err := svc.Deals.List(ctx, services.DealFilter{Paging: services.Paging{Limit: fetchLimit}})
		if err != nil {
			return fmt.Errorf("failed to fetch deals: %w", err)
		}
		in.Deals = deals
		return nil
	})
	g.Go(func() error {
		tasks, err := svc.Tasks.List(ctx, services.TaskFilter{Paging: services.Paging{Limit: fetchLimit}})
		if err != nil {
			return fmt.Errorf("failed to fetch tasks: %w", err)
		}
		in.Tasks = tasks
		return nil
	})
	g.Go(func() error {
		// The bell is decorative here; a failure just shows zero.
		n, err := svc.Notifications.UnreadCount(ctx)
		if err == nil {
			in.Unread = n
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Input{}, err
	}
	return in, nil
}

func Compute(in Input, now time.Time) Stats {
	stats := Stats{
		TotalLeads: in.LeadTotal,
		TotalDeals: len(in.Deals),
		Unread:     in.Unread,
	}
	if stats.TotalLeads < len(in.Leads) {
		stats.TotalLeads = len(in.Leads)
	}

	byStatus := make(map[models.DealStatus]*StatusStats, len(models.DealStatuses))
	for _, s := range models.DealStatuses {
		stats.Pipeline = append(stats.Pipeline, StatusStats{Status: s})
	}
	for i := range stats.Pipeline {
		byStatus[stats.Pipeline[i].Status] = &stats.Pipeline[i]
	}
	for _, d := range in.Deals {
		ps, ok := byStatus[d.Status]
		if !ok {
			continue
		}
		ps.Count++
		ps.Amount += d.Amount
		switch {
		case d.Status == models.DealWon:
			stats.WonValue += d.Amount
		case !d.Status.Closed():
			stats.OpenValue += d.Amount
			if last := d.UpdatedAt.Time; !last.IsZero() {
				if days := int(now.Sub(last).Hours() / 24); days > staleDealDays {
					stats.StaleDeals = append(stats.StaleDeals, StaleDeal{Name: d.Name, DaysSince: days})
				}
			}
		}
	}
	won, lost := byStatus[models.DealWon].Count, byStatus[models.DealLost].Count
	if won+lost > 0 {
		stats.WinRate = float64(won) / float64(won+lost)
	}

	stats.LeadsByStage = leadsByStage(in.Stages, in.Leads)

	year, month, day := now.Date()
	for _, t := range in.Tasks {
		if t.Status == models.TaskDone {
			continue
		}
		stats.OpenTasks++
		if t.Overdue(now) {
			stats.OverdueTasks++
		}
		if !t.DueDate.IsZero() {
			y, m, d := t.DueDate.In(now.Location()).Date()
			if y == year && m == month && d == day {
				stats.DueToday++
			}
			stats.Upcoming = append(stats.Upcoming, t)
		}
	}
	sort.SliceStable(stats.Upcoming, func(i, j int) bool {
		return stats.Upcoming[i].DueDate.Before(stats.Upcoming[j].DueDate.Time)
	})
	if len(stats.Upcoming) > upcomingTasks {
		stats.Upcoming = stats.Upcoming[:upcomingTasks]
	}
	sort.SliceStable(stats.StaleDeals, func(i, j int) bool {
		return stats.StaleDeals[i].DaysSince > stats.StaleDeals[j].DaysSince
	})
	return stats
}

func leadsByStage(stages []models.Stage, leads []models.Lead) []StageStats {
	index := make(map[uuid.UUID]int, len(stages))
	out := make([]StageStats, 0, len(stages)+1)
	for i, s := range stages {
		index[s.ID] = i
		out = append(out, StageStats{Name: s.Name})
	}
	unstaged := 0
	for _, l := range leads {
		if l.StageID == nil {
			unstaged++
			continue
		}
		if i, ok := index[*l.StageID]; ok {
			out[i].Count++
		} else {
			unstaged++
		}
	}
	if unstaged > 0 {
		out = append(out, StageStats{Name: "Unstaged", Count: unstaged})
	}
	return out
}

func RenderDashboard(stats Stats) string {
	var out strings.Builder

	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	out.WriteString("  LEADLAB DASHBOARD\n")
	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	out.WriteString("DEAL PIPELINE\n")
	renderPipeline(&out, stats.Pipeline)
	out.WriteString("\n")

	if len(stats.LeadsByStage) > 0 {
		out.WriteString("LEADS BY STAGE\n")
		renderStages(&out, stats.LeadsByStage)
		out.WriteString("\n")
	}

	out.WriteString("STATS\n")
	out.WriteString(fmt.Sprintf("  👤 %d leads  💼 %d deals  ✅ %d open tasks  🔔 %d unread\n",
		stats.TotalLeads, stats.TotalDeals, stats.OpenTasks, stats.Unread))
	out.WriteString(fmt.Sprintf("  Open pipeline %s  Won %s  Win rate %.0f%%\n\n",
		Money(stats.OpenValue), Money(stats.WonValue), stats.WinRate*100))

	if stats.OverdueTasks > 0 || stats.DueToday > 0 || len(stats.StaleDeals) > 0 {
		out.WriteString("NEEDS ATTENTION\n")
		if stats.OverdueTasks > 0 {
			out.WriteString(fmt.Sprintf("  ⚠️  %d tasks overdue\n", stats.OverdueTasks))
		}
		if stats.DueToday > 0 {
			out.WriteString(fmt.Sprintf("  📅 %d tasks due today\n", stats.DueToday))
		}
		if len(stats.StaleDeals) > 0 {
			out.WriteString(fmt.Sprintf("  ⚠️  %d deals - stale (no activity in %d+ days)\n", len(stats.StaleDeals), staleDealDays))
		}
	}

	return out.String()
}

func renderPipeline(out *strings.Builder, pipeline []StatusStats) {
	maxCount := 1
	for _, ps := range pipeline {
		if ps.Count > maxCount {
			maxCount = ps.Count
		}
	}
	for _, ps := range pipeline {
		out.WriteString(fmt.Sprintf("  %-12s %s  %2d (%s)\n",
			ps.Status.Label(), bar(ps.Count, maxCount), ps.Count, Money(ps.Amount)))
	}
}

func renderStages(out *strings.Builder, stages []StageStats) {
	maxCount := 1
	for _, s := range stages {
		if s.Count > maxCount {
			maxCount = s.Count
		}
	}
	for _, s := range stages {
		out.WriteString(fmt.Sprintf("  %-12s %s  %2d\n", truncate(s.Name, 12), bar(s.Count, maxCount), s.Count))
	}
}

func bar(count, maxCount int) string {
	n := (count * 10) / maxCount
	return strings.Repeat("█", n) + strings.Repeat("░", 10-n)
}

// Money formats an amount as $1.2K / $3.4M style.
func Money(amount float64) string {
	switch {
	case amount >= 1_000_000:
		return fmt.Sprintf("$%.1fM", amount/1_000_000)
	case amount >= 1_000:
		return fmt.Sprintf("$%.1fK", amount/1_000)
	}
	return fmt.Sprintf("$%.0f", amount)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
