package services

import (
	"errors"
	"sort"
	"time"

	"github.com/creatorflow/creatorflow/internal/models"
	"gorm.io/gorm"
)

// ErrInvalidPeriod is returned for productivity periods other than
// week/month/year instead of silently computing with undefined bounds.
var ErrInvalidPeriod = errors.New("invalid_period")

const (
	DefaultActivityLimit = 10
	DefaultDeadlineDays  = 7
	DefaultDeadlineLimit = 10
)

// DashboardService aggregates read-only statistics across the four entity
// collections. Sub-queries are independent reads, not a transaction; that is
// acceptable for a stats dashboard.
type DashboardService struct {
	db *gorm.DB
}

func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db}
}

// Overview is the structured snapshot returned by GET /dashboard/overview.
type Overview struct {
	Projects EntityOverview  `json:"projects"`
	Tasks    EntityOverview  `json:"tasks"`
	Clients  ClientOverview  `json:"clients"`
	Invoices InvoiceOverview `json:"invoices"`
	Overdue  OverdueSummary  `json:"overdue"`
}

type EntityOverview struct {
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"by_status"`
}

type ClientOverview struct {
	Total            int64 `json:"total"`
	Active           int64 `json:"active"`
	CreatedThisMonth int64 `json:"created_this_month"`
}

type InvoiceBucket struct {
	Count  int64   `json:"count"`
	Amount float64 `json:"amount"`
}

type InvoiceOverview struct {
	Total         int64                    `json:"total"`
	ByStatus      map[string]InvoiceBucket `json:"by_status"`
	TotalRevenue  float64                  `json:"total_revenue"`
	PendingAmount float64                  `json:"pending_amount"`
}

type OverdueSummary struct {
	Projects int64 `json:"projects"`
	Tasks    int64 `json:"tasks"`
	Invoices int64 `json:"invoices"`
}

type statusCountRow struct {
	Status string
	Count  int64
}

type statusAmountRow struct {
	Status string
	Count  int64
	Amount float64
}

// Overview fans out grouped counts and sums across all collections for one
// user. Archived projects and tasks are excluded everywhere.
func (s *DashboardService) Overview(userID uint, now time.Time) (*Overview, error) {
	out := &Overview{
		Projects: EntityOverview{ByStatus: map[string]int64{}},
		Tasks:    EntityOverview{ByStatus: map[string]int64{}},
		Invoices: InvoiceOverview{ByStatus: map[string]InvoiceBucket{}},
	}

	var rows []statusCountRow
	if err := s.db.Model(&models.Project{}).
		Select("status, count(*) as count").
		Where("user_id = ? AND is_archived = ?", userID, false).
		Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		out.Projects.ByStatus[r.Status] = r.Count
		out.Projects.Total += r.Count
	}

	rows = rows[:0]
	if err := s.db.Model(&models.Task{}).
		Select("status, count(*) as count").
		Where("user_id = ? AND is_archived = ?", userID, false).
		Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		out.Tasks.ByStatus[r.Status] = r.Count
		out.Tasks.Total += r.Count
	}

	if err := s.db.Model(&models.Client{}).
		Where("user_id = ?", userID).
		Count(&out.Clients.Total).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Client{}).
		Where("user_id = ? AND status = ?", userID, models.ClientStatusActive).
		Count(&out.Clients.Active).Error; err != nil {
		return nil, err
	}
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	if err := s.db.Model(&models.Client{}).
		Where("user_id = ? AND created_at >= ?", userID, monthStart).
		Count(&out.Clients.CreatedThisMonth).Error; err != nil {
		return nil, err
	}

	var invRows []statusAmountRow
	if err := s.db.Model(&models.Invoice{}).
		Select("status, count(*) as count, coalesce(sum(total), 0) as amount").
		Where("user_id = ?", userID).
		Group("status").Scan(&invRows).Error; err != nil {
		return nil, err
	}
	for _, r := range invRows {
		out.Invoices.ByStatus[r.Status] = InvoiceBucket{Count: r.Count, Amount: r.Amount}
		out.Invoices.Total += r.Count
		switch models.InvoiceStatus(r.Status) {
		case models.InvoiceStatusPaid:
			out.Invoices.TotalRevenue += r.Amount
		case models.InvoiceStatusSent, models.InvoiceStatusViewed:
			out.Invoices.PendingAmount += r.Amount
		}
	}
	out.Invoices.TotalRevenue = Round2(out.Invoices.TotalRevenue)
	out.Invoices.PendingAmount = Round2(out.Invoices.PendingAmount)

	if err := s.db.Model(&models.Project{}).
		Where("user_id = ? AND is_archived = ? AND status NOT IN ? AND due_date < ?",
			userID, false, []models.ProjectStatus{models.ProjectStatusCompleted, models.ProjectStatusCancelled}, now).
		Count(&out.Overdue.Projects).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Task{}).
		Where("user_id = ? AND is_archived = ? AND status NOT IN ? AND due_date < ?",
			userID, false, []models.TaskStatus{models.TaskStatusCompleted, models.TaskStatusCancelled}, now).
		Count(&out.Overdue.Tasks).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Invoice{}).
		Where("user_id = ? AND status IN ? AND due_date < ?", userID, models.PendingInvoiceStatuses, now).
		Count(&out.Overdue.Invoices).Error; err != nil {
		return nil, err
	}

	return out, nil
}

// ActivityItem is one entry of the merged recent-activity feed.
type ActivityItem struct {
	Type      string    `json:"type"` // project, task or invoice
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RecentActivity merges the most-recently-updated projects, tasks and
// invoices into one feed sorted descending by update time and truncated to
// limit.
func (s *DashboardService) RecentActivity(userID uint, limit int) ([]ActivityItem, error) {
	if limit <= 0 {
		limit = DefaultActivityLimit
	}

	items := make([]ActivityItem, 0, 3*limit)

	var projects []models.Project
	if err := s.db.Where("user_id = ? AND is_archived = ?", userID, false).
		Order("updated_at DESC").Limit(limit).Find(&projects).Error; err != nil {
		return nil, err
	}
	for _, p := range projects {
		items = append(items, ActivityItem{Type: "project", ID: p.ID, Title: p.Title, Status: string(p.Status), UpdatedAt: p.UpdatedAt})
	}

	var tasks []models.Task
	if err := s.db.Where("user_id = ? AND is_archived = ?", userID, false).
		Order("updated_at DESC").Limit(limit).Find(&tasks).Error; err != nil {
		return nil, err
	}
	for _, t := range tasks {
		items = append(items, ActivityItem{Type: "task", ID: t.ID, Title: t.Title, Status: string(t.Status), UpdatedAt: t.UpdatedAt})
	}

	var invoices []models.Invoice
	if err := s.db.Where("user_id = ?", userID).
		Order("updated_at DESC").Limit(limit).Find(&invoices).Error; err != nil {
		return nil, err
	}
	for _, inv := range invoices {
		items = append(items, ActivityItem{Type: "invoice", ID: inv.ID, Title: inv.Number, Status: string(inv.Status), UpdatedAt: inv.UpdatedAt})
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].UpdatedAt.After(items[j].UpdatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// DeadlineItem is one entry of the merged upcoming-deadlines feed. Task
// entries carry the parent project's client for display.
type DeadlineItem struct {
	Type     string         `json:"type"`
	ID       uint           `json:"id"`
	Title    string         `json:"title"`
	Status   string         `json:"status"`
	Priority string         `json:"priority"`
	DueDate  time.Time      `json:"due_date"`
	Client   *models.Client `json:"client,omitempty"`
}

// UpcomingDeadlines merges non-archived, non-terminal projects and tasks due
// within [now, now+days], sorted ascending by due date, truncated to limit.
func (s *DashboardService) UpcomingDeadlines(userID uint, days, limit int, now time.Time) ([]DeadlineItem, error) {
	if days <= 0 {
		days = DefaultDeadlineDays
	}
	if limit <= 0 {
		limit = DefaultDeadlineLimit
	}
	horizon := now.AddDate(0, 0, days)

	items := make([]DeadlineItem, 0, 2*limit)

	var projects []models.Project
	if err := s.db.Preload("Client").
		Where("user_id = ? AND is_archived = ? AND status NOT IN ? AND due_date >= ? AND due_date <= ?",
			userID, false, []models.ProjectStatus{models.ProjectStatusCompleted, models.ProjectStatusCancelled}, now, horizon).
		Find(&projects).Error; err != nil {
		return nil, err
	}
	for i := range projects {
		p := &projects[i]
		items = append(items, DeadlineItem{
			Type: "project", ID: p.ID, Title: p.Title,
			Status: string(p.Status), Priority: string(p.Priority),
			DueDate: *p.DueDate, Client: p.Client,
		})
	}

	var tasks []models.Task
	if err := s.db.Preload("Project.Client").
		Where("user_id = ? AND is_archived = ? AND status NOT IN ? AND due_date >= ? AND due_date <= ?",
			userID, false, []models.TaskStatus{models.TaskStatusCompleted, models.TaskStatusCancelled}, now, horizon).
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	for i := range tasks {
		t := &tasks[i]
		item := DeadlineItem{
			Type: "task", ID: t.ID, Title: t.Title,
			Status: string(t.Status), Priority: string(t.Priority),
			DueDate: *t.DueDate,
		}
		if t.Project != nil {
			item.Client = t.Project.Client
		}
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].DueDate.Before(items[j].DueDate)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// ProductivityStats is the per-period output of GET /dashboard/productivity-stats.
type ProductivityStats struct {
	Period             string    `json:"period"`
	StartDate          time.Time `json:"start_date"`
	EndDate            time.Time `json:"end_date"`
	TasksCompleted     int64     `json:"tasks_completed"`
	ProjectsCompleted  int64     `json:"projects_completed"`
	TotalHours         float64   `json:"total_hours"`
	Revenue            float64   `json:"revenue"`
	AverageHoursPerDay float64   `json:"average_hours_per_day"`
}

// periodBounds resolves a period name to date bounds and the day divisor for
// the hours average. Unrecognized periods are rejected.
func periodBounds(period string, now time.Time) (start time.Time, days float64, err error) {
	switch period {
	case "week":
		return now.AddDate(0, 0, -7), 7, nil
	case "month":
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), 30, nil
	case "year":
		return time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location()), 365, nil
	default:
		return time.Time{}, 0, ErrInvalidPeriod
	}
}

// Productivity computes completion counts, logged hours and paid revenue
// within the period's bounds.
func (s *DashboardService) Productivity(userID uint, period string, now time.Time) (*ProductivityStats, error) {
	start, days, err := periodBounds(period, now)
	if err != nil {
		return nil, err
	}

	out := &ProductivityStats{Period: period, StartDate: start, EndDate: now}

	if err := s.db.Model(&models.Task{}).
		Where("user_id = ? AND status = ? AND completed_date >= ? AND completed_date <= ?",
			userID, models.TaskStatusCompleted, start, now).
		Count(&out.TasksCompleted).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Project{}).
		Where("user_id = ? AND status = ? AND completed_date >= ? AND completed_date <= ?",
			userID, models.ProjectStatusCompleted, start, now).
		Count(&out.ProjectsCompleted).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Task{}).
		Select("coalesce(sum(actual_hours), 0)").
		Where("user_id = ? AND updated_at >= ? AND updated_at <= ?", userID, start, now).
		Scan(&out.TotalHours).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Invoice{}).
		Select("coalesce(sum(total), 0)").
		Where("user_id = ? AND status = ? AND paid_date >= ? AND paid_date <= ?",
			userID, models.InvoiceStatusPaid, start, now).
		Scan(&out.Revenue).Error; err != nil {
		return nil, err
	}

	out.TotalHours = Round2(out.TotalHours)
	out.Revenue = Round2(out.Revenue)
	out.AverageHoursPerDay = Round2(out.TotalHours / days)
	return out, nil
}

// InvoiceStats backs GET /invoices/stats/overview.
type InvoiceStats struct {
	TotalInvoices   int64   `json:"totalInvoices"`
	PaidInvoices    int64   `json:"paidInvoices"`
	PendingInvoices int64   `json:"pendingInvoices"`
	OverdueInvoices int64   `json:"overdueInvoices"`
	TotalRevenue    float64 `json:"totalRevenue"`
	PendingAmount   float64 `json:"pendingAmount"`
}

// InvoiceStats groups invoices by status and buckets paid into revenue and
// sent/viewed into the pending amount. Overdue counts pending invoices past
// their due date at read time.
func (s *DashboardService) InvoiceStats(userID uint, now time.Time) (*InvoiceStats, error) {
	out := &InvoiceStats{}

	var rows []statusAmountRow
	if err := s.db.Model(&models.Invoice{}).
		Select("status, count(*) as count, coalesce(sum(total), 0) as amount").
		Where("user_id = ?", userID).
		Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		out.TotalInvoices += r.Count
		switch models.InvoiceStatus(r.Status) {
		case models.InvoiceStatusPaid:
			out.PaidInvoices += r.Count
			out.TotalRevenue += r.Amount
		case models.InvoiceStatusSent, models.InvoiceStatusViewed:
			out.PendingInvoices += r.Count
			out.PendingAmount += r.Amount
		}
	}
	out.TotalRevenue = Round2(out.TotalRevenue)
	out.PendingAmount = Round2(out.PendingAmount)

	if err := s.db.Model(&models.Invoice{}).
		Where("user_id = ? AND status IN ? AND due_date < ?", userID, models.PendingInvoiceStatuses, now).
		Count(&out.OverdueInvoices).Error; err != nil {
		return nil, err
	}
	return out, nil
}
