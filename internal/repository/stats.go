package repository

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"todo-api/internal/models"
	"todo-api/pkg/logger"
)

// StatsRepo computes aggregate reports. All queries are read-only; each uses
// its own now(), so a report spanning several queries can carry minor skew.
type StatsRepo struct {
	db *sqlx.DB
}

func NewStatsRepo(db *sqlx.DB) *StatsRepo {
	return &StatsRepo{db: db}
}

// priorityOrder is the fixed enumeration order of todos_by_priority.
var priorityOrder = []string{models.PriorityHigh, models.PriorityMedium, models.PriorityLow}

// PriorityBucket is one row of todos_by_priority.
type PriorityBucket struct {
	Priority  string `json:"priority" db:"priority"`
	Count     int    `json:"count" db:"count"`
	Completed int    `json:"completed" db:"completed"`
	Pending   int    `json:"pending" db:"pending"`
}

// CategoryBucket is one row of the overview category_breakdown.
type CategoryBucket struct {
	CategoryName string `json:"category_name" db:"category_name"`
	TotalTodos   int    `json:"total_todos" db:"total_todos"`
}

// ActivityDay counts todos created on one calendar date.
type ActivityDay struct {
	Date         string `json:"date"`
	TodosCreated int    `json:"todos_created"`
}

// CompletionDay counts todos completed on one calendar date.
type CompletionDay struct {
	Date           string `json:"date"`
	TodosCompleted int    `json:"todos_completed"`
}

// Overview is the §overview snapshot for one user.
type Overview struct {
	TotalUsers        int              `json:"total_users"`
	TotalCategories   int              `json:"total_categories"`
	TotalTodos        int              `json:"total_todos"`
	CompletedTodos    int              `json:"completed_todos"`
	PendingTodos      int              `json:"pending_todos"`
	OverdueTodos      int              `json:"overdue_todos"`
	CompletionRate    float64          `json:"completion_rate"`
	TodosByPriority   []PriorityBucket `json:"todos_by_priority"`
	PriorityBreakdown map[string]int   `json:"priority_breakdown"`
	CategoryBreakdown []CategoryBucket `json:"category_breakdown"`
	RecentActivity    []ActivityDay    `json:"recent_activity"`
	CompletionRates   []CompletionDay  `json:"completion_rates"`
}

// fillPriorityBuckets maps grouped rows onto the fixed high/medium/low order,
// inserting zero buckets for priorities with no todos.
func fillPriorityBuckets(rows []PriorityBucket) []PriorityBucket {
	byPriority := make(map[string]PriorityBucket, len(rows))
	for _, r := range rows {
		byPriority[r.Priority] = r
	}
	out := make([]PriorityBucket, 0, len(priorityOrder))
	for _, p := range priorityOrder {
		b, ok := byPriority[p]
		if !ok {
			b = PriorityBucket{Priority: p}
		}
		out = append(out, b)
	}
	return out
}

// Overview computes the per-user overview snapshot.
func (r *StatsRepo) Overview(ctx context.Context, userID string) (*Overview, error) {
	var o Overview
	err := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users) AS total_users,
			(SELECT COUNT(DISTINCT t.category_id) FROM todos t WHERE t.user_id = $1 AND t.category_id IS NOT NULL) AS total_categories,
			(SELECT COUNT(*) FROM todos WHERE user_id = $1) AS total_todos,
			(SELECT COUNT(*) FROM todos WHERE completed = true AND user_id = $1) AS completed_todos,
			(SELECT COUNT(*) FROM todos WHERE completed = false AND user_id = $1) AS pending_todos,
			(SELECT COUNT(*) FROM todos WHERE due_date < CURRENT_TIMESTAMP AND completed = false AND user_id = $1) AS overdue_todos
	`, userID).Scan(&o.TotalUsers, &o.TotalCategories, &o.TotalTodos, &o.CompletedTodos, &o.PendingTodos, &o.OverdueTodos)
	if err != nil {
		logger.Error(ctx, "Overview counts failed", "error", err)
		return nil, err
	}
	o.CompletionRate = rate(o.CompletedTodos, o.TotalTodos)

	var priorities []PriorityBucket
	err = r.db.SelectContext(ctx, &priorities, `
		SELECT priority,
		       COUNT(*) AS count,
		       COUNT(*) FILTER (WHERE completed = true) AS completed,
		       COUNT(*) FILTER (WHERE completed = false) AS pending
		FROM todos
		WHERE user_id = $1
		GROUP BY priority
		ORDER BY CASE priority WHEN 'high' THEN 1 WHEN 'medium' THEN 2 WHEN 'low' THEN 3 END
	`, userID)
	if err != nil {
		logger.Error(ctx, "Overview priorities failed", "error", err)
		return nil, err
	}
	o.TodosByPriority = fillPriorityBuckets(priorities)
	o.PriorityBreakdown = make(map[string]int, len(o.TodosByPriority))
	for _, b := range o.TodosByPriority {
		o.PriorityBreakdown[b.Priority] = b.Count
	}

	o.RecentActivity = []ActivityDay{}
	rows, err := r.db.QueryContext(ctx, `
		SELECT DATE(created_at) AS date, COUNT(*) AS todos_created
		FROM todos
		WHERE created_at >= CURRENT_DATE - INTERVAL '7 days' AND user_id = $1
		GROUP BY DATE(created_at)
		ORDER BY date DESC
	`, userID)
	if err != nil {
		logger.Error(ctx, "Overview recent activity failed", "error", err)
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var d time.Time
		var n int
		if err := rows.Scan(&d, &n); err != nil {
			return nil, err
		}
		o.RecentActivity = append(o.RecentActivity, ActivityDay{Date: d.Format("2006-01-02"), TodosCreated: n})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	o.CompletionRates = []CompletionDay{}
	rows, err = r.db.QueryContext(ctx, `
		SELECT DATE(updated_at) AS date, COUNT(*) AS todos_completed
		FROM todos
		WHERE completed = true AND updated_at >= CURRENT_DATE - INTERVAL '7 days' AND user_id = $1
		GROUP BY DATE(updated_at)
		ORDER BY date DESC
	`, userID)
	if err != nil {
		logger.Error(ctx, "Overview completion rates failed", "error", err)
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var d time.Time
		var n int
		if err := rows.Scan(&d, &n); err != nil {
			return nil, err
		}
		o.CompletionRates = append(o.CompletionRates, CompletionDay{Date: d.Format("2006-01-02"), TodosCompleted: n})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	o.CategoryBreakdown = []CategoryBucket{}
	err = r.db.SelectContext(ctx, &o.CategoryBreakdown, `
		SELECT COALESCE(c.name, 'Uncategorized') AS category_name,
		       COUNT(t.id) AS total_todos
		FROM (
			SELECT id, name FROM categories WHERE user_id = $1
			UNION ALL
			SELECT NULL AS id, 'Uncategorized' AS name
		) c
		LEFT JOIN todos t ON t.category_id IS NOT DISTINCT FROM c.id AND t.user_id = $1
		GROUP BY c.id, c.name
		ORDER BY total_todos DESC
	`, userID)
	if err != nil {
		logger.Error(ctx, "Overview category breakdown failed", "error", err)
		return nil, err
	}
	return &o, nil
}

// TodoStatsFilter holds the optional filters of GET /api/stats/todos.
type TodoStatsFilter struct {
	UserID     string
	CategoryID string
	DateFrom   *time.Time
	DateTo     *time.Time
}

func (f TodoStatsFilter) conditions() []sq.Sqlizer {
	var conds []sq.Sqlizer
	if f.UserID != "" {
		conds = append(conds, sq.Eq{"t.user_id": f.UserID})
	}
	if f.CategoryID != "" {
		conds = append(conds, sq.Eq{"t.category_id": f.CategoryID})
	}
	if f.DateFrom != nil {
		conds = append(conds, sq.GtOrEq{"t.created_at": *f.DateFrom})
	}
	if f.DateTo != nil {
		conds = append(conds, sq.LtOrEq{"t.created_at": *f.DateTo})
	}
	return conds
}

// condFragment renders the filter as a question-mark SQL fragment so it can be
// spliced into either a WHERE clause or a JOIN condition, then rebound.
func (f TodoStatsFilter) condFragment() (string, []interface{}, error) {
	conds := f.conditions()
	if len(conds) == 0 {
		return "", nil, nil
	}
	return sq.And(conds).ToSql()
}

// TodoBasicStats is the fixed counts block of the detailed todo report.
type TodoBasicStats struct {
	Total                  int      `json:"total" db:"total"`
	Completed              int      `json:"completed" db:"completed"`
	Pending                int      `json:"pending" db:"pending"`
	Overdue                int      `json:"overdue" db:"overdue"`
	HighPriority           int      `json:"high_priority" db:"high_priority"`
	MediumPriority         int      `json:"medium_priority" db:"medium_priority"`
	LowPriority            int      `json:"low_priority" db:"low_priority"`
	AvgCompletionTimeHours *float64 `json:"avg_completion_time_hours" db:"avg_completion_time_hours"`
}

// CategoryStatRow is one category in the detailed todo report.
type CategoryStatRow struct {
	CategoryName   string `json:"category_name" db:"category_name"`
	CategoryColor  string `json:"category_color" db:"category_color"`
	TotalTodos     int    `json:"total_todos" db:"total_todos"`
	CompletedTodos int    `json:"completed_todos" db:"completed_todos"`
	PendingTodos   int    `json:"pending_todos" db:"pending_todos"`
}

// MonthlyTrend is one calendar month of creations/completions.
type MonthlyTrend struct {
	Month     time.Time `json:"month" db:"month"`
	Created   int       `json:"created" db:"created"`
	Completed int       `json:"completed" db:"completed"`
}

// TopUser is one row of the top-10 ranking; CompletionRate is a percentage
// and nil when the user has no todos.
type TopUser struct {
	Username       string   `json:"username" db:"username"`
	FirstName      *string  `json:"first_name" db:"first_name"`
	LastName       *string  `json:"last_name" db:"last_name"`
	TotalTodos     int      `json:"total_todos" db:"total_todos"`
	CompletedTodos int      `json:"completed_todos" db:"completed_todos"`
	CompletionRate *float64 `json:"completion_rate" db:"completion_rate"`
}

// TodoStatsReport is the GET /api/stats/todos payload.
type TodoStatsReport struct {
	BasicStats    TodoBasicStats    `json:"basic_stats"`
	ByCategory    []CategoryStatRow `json:"by_category"`
	MonthlyTrends []MonthlyTrend    `json:"monthly_trends"`
	TopUsers      []TopUser         `json:"top_users"`
}

// TodoStats computes the detailed todo report under the given filters.
// Top users are only ranked when no specific owner filter is supplied.
func (r *StatsRepo) TodoStats(ctx context.Context, f TodoStatsFilter) (*TodoStatsReport, error) {
	frag, args, err := f.condFragment()
	if err != nil {
		return nil, err
	}

	report := &TodoStatsReport{
		ByCategory:    []CategoryStatRow{},
		MonthlyTrends: []MonthlyTrend{},
		TopUsers:      []TopUser{},
	}

	where := ""
	if frag != "" {
		where = " WHERE " + frag
	}
	query := r.db.Rebind(`
		SELECT COUNT(*) AS total,
		       COUNT(*) FILTER (WHERE t.completed = true) AS completed,
		       COUNT(*) FILTER (WHERE t.completed = false) AS pending,
		       COUNT(*) FILTER (WHERE t.due_date < CURRENT_TIMESTAMP AND t.completed = false) AS overdue,
		       COUNT(*) FILTER (WHERE t.priority = 'high') AS high_priority,
		       COUNT(*) FILTER (WHERE t.priority = 'medium') AS medium_priority,
		       COUNT(*) FILTER (WHERE t.priority = 'low') AS low_priority,
		       AVG(CASE WHEN t.completed = true THEN EXTRACT(EPOCH FROM (t.updated_at - t.created_at))/3600 END) AS avg_completion_time_hours
		FROM todos t` + where)
	if err := r.db.GetContext(ctx, &report.BasicStats, query, args...); err != nil {
		logger.Error(ctx, "Todo stats basic failed", "error", err)
		return nil, err
	}

	joinCond := ""
	if frag != "" {
		joinCond = " AND " + frag
	}
	query = r.db.Rebind(`
		SELECT c.name AS category_name,
		       c.color AS category_color,
		       COUNT(t.id) AS total_todos,
		       COUNT(t.id) FILTER (WHERE t.completed = true) AS completed_todos,
		       COUNT(t.id) FILTER (WHERE t.completed = false) AS pending_todos
		FROM categories c
		LEFT JOIN todos t ON c.id = t.category_id` + joinCond + `
		GROUP BY c.id, c.name, c.color
		HAVING COUNT(t.id) > 0
		ORDER BY total_todos DESC`)
	if err := r.db.SelectContext(ctx, &report.ByCategory, query, args...); err != nil {
		logger.Error(ctx, "Todo stats by category failed", "error", err)
		return nil, err
	}

	trendWhere := " WHERE t.created_at >= CURRENT_DATE - INTERVAL '6 months'"
	if frag != "" {
		trendWhere = " WHERE " + frag + " AND t.created_at >= CURRENT_DATE - INTERVAL '6 months'"
	}
	query = r.db.Rebind(`
		SELECT DATE_TRUNC('month', t.created_at) AS month,
		       COUNT(*) AS created,
		       COUNT(*) FILTER (WHERE t.completed = true) AS completed
		FROM todos t` + trendWhere + `
		GROUP BY DATE_TRUNC('month', t.created_at)
		ORDER BY month DESC`)
	if err := r.db.SelectContext(ctx, &report.MonthlyTrends, query, args...); err != nil {
		logger.Error(ctx, "Todo stats trends failed", "error", err)
		return nil, err
	}

	if f.UserID == "" {
		query = r.db.Rebind(`
			SELECT u.username, u.first_name, u.last_name,
			       COUNT(t.id) AS total_todos,
			       COUNT(t.id) FILTER (WHERE t.completed = true) AS completed_todos,
			       ROUND((COUNT(t.id) FILTER (WHERE t.completed = true)::decimal / NULLIF(COUNT(t.id), 0) * 100), 2) AS completion_rate
			FROM users u
			LEFT JOIN todos t ON u.id = t.user_id` + joinCond + `
			GROUP BY u.id, u.username, u.first_name, u.last_name
			HAVING COUNT(t.id) > 0
			ORDER BY total_todos DESC
			LIMIT 10`)
		if err := r.db.SelectContext(ctx, &report.TopUsers, query, args...); err != nil {
			logger.Error(ctx, "Todo stats top users failed", "error", err)
			return nil, err
		}
	}
	return report, nil
}

// UserSummary is the global user counts block.
type UserSummary struct {
	TotalUsers         int `json:"total_users" db:"total_users"`
	NewUsersLast30Days int `json:"new_users_last_30_days" db:"new_users_last_30_days"`
	NewUsersLast7Days  int `json:"new_users_last_7_days" db:"new_users_last_7_days"`
}

// UserActivity is one per-user activity row.
type UserActivity struct {
	ID              string     `json:"id" db:"id"`
	Username        string     `json:"username" db:"username"`
	FirstName       *string    `json:"first_name" db:"first_name"`
	LastName        *string    `json:"last_name" db:"last_name"`
	JoinedDate      time.Time  `json:"joined_date" db:"joined_date"`
	TotalTodos      int        `json:"total_todos" db:"total_todos"`
	CompletedTodos  int        `json:"completed_todos" db:"completed_todos"`
	PendingTodos    int        `json:"pending_todos" db:"pending_todos"`
	TodosLast7Days  int        `json:"todos_last_7_days" db:"todos_last_7_days"`
	CompletionRate  *float64   `json:"completion_rate" db:"completion_rate"`
	LastTodoCreated *time.Time `json:"last_todo_created" db:"last_todo_created"`
}

// RegistrationTrend is one month of signups.
type RegistrationTrend struct {
	Month    time.Time `json:"month" db:"month"`
	NewUsers int       `json:"new_users" db:"new_users"`
}

// ActiveUser is one row of the 30-day most-active ranking.
type ActiveUser struct {
	Username            string  `json:"username" db:"username"`
	FirstName           *string `json:"first_name" db:"first_name"`
	LastName            *string `json:"last_name" db:"last_name"`
	TodosLast30Days     int     `json:"todos_last_30_days" db:"todos_last_30_days"`
	CompletedLast30Days int     `json:"completed_last_30_days" db:"completed_last_30_days"`
}

// UserStatsReport is the GET /api/stats/users payload.
type UserStatsReport struct {
	Summary            UserSummary         `json:"summary"`
	UserActivity       []UserActivity      `json:"user_activity"`
	RegistrationTrends []RegistrationTrend `json:"registration_trends"`
	MostActiveUsers    []ActiveUser        `json:"most_active_users"`
}

// UserStats computes the global user report.
func (r *StatsRepo) UserStats(ctx context.Context) (*UserStatsReport, error) {
	report := &UserStatsReport{
		UserActivity:       []UserActivity{},
		RegistrationTrends: []RegistrationTrend{},
		MostActiveUsers:    []ActiveUser{},
	}
	err := r.db.GetContext(ctx, &report.Summary, `
		SELECT COUNT(*) AS total_users,
		       COUNT(*) FILTER (WHERE created_at >= CURRENT_DATE - INTERVAL '30 days') AS new_users_last_30_days,
		       COUNT(*) FILTER (WHERE created_at >= CURRENT_DATE - INTERVAL '7 days') AS new_users_last_7_days
		FROM users`)
	if err != nil {
		logger.Error(ctx, "User stats summary failed", "error", err)
		return nil, err
	}

	err = r.db.SelectContext(ctx, &report.UserActivity, `
		SELECT u.id, u.username, u.first_name, u.last_name,
		       u.created_at AS joined_date,
		       COUNT(t.id) AS total_todos,
		       COUNT(t.id) FILTER (WHERE t.completed = true) AS completed_todos,
		       COUNT(t.id) FILTER (WHERE t.completed = false) AS pending_todos,
		       COUNT(t.id) FILTER (WHERE t.created_at >= CURRENT_DATE - INTERVAL '7 days') AS todos_last_7_days,
		       ROUND((COUNT(t.id) FILTER (WHERE t.completed = true)::decimal / NULLIF(COUNT(t.id), 0) * 100), 2) AS completion_rate,
		       MAX(t.created_at) AS last_todo_created
		FROM users u
		LEFT JOIN todos t ON u.id = t.user_id
		GROUP BY u.id, u.username, u.first_name, u.last_name, u.created_at
		ORDER BY total_todos DESC`)
	if err != nil {
		logger.Error(ctx, "User stats activity failed", "error", err)
		return nil, err
	}

	err = r.db.SelectContext(ctx, &report.RegistrationTrends, `
		SELECT DATE_TRUNC('month', created_at) AS month, COUNT(*) AS new_users
		FROM users
		WHERE created_at >= CURRENT_DATE - INTERVAL '6 months'
		GROUP BY DATE_TRUNC('month', created_at)
		ORDER BY month DESC`)
	if err != nil {
		logger.Error(ctx, "User stats registrations failed", "error", err)
		return nil, err
	}

	err = r.db.SelectContext(ctx, &report.MostActiveUsers, `
		SELECT u.username, u.first_name, u.last_name,
		       COUNT(t.id) AS todos_last_30_days,
		       COUNT(t.id) FILTER (WHERE t.completed = true) AS completed_last_30_days
		FROM users u
		INNER JOIN todos t ON u.id = t.user_id
		WHERE t.created_at >= CURRENT_DATE - INTERVAL '30 days'
		GROUP BY u.id, u.username, u.first_name, u.last_name
		ORDER BY todos_last_30_days DESC
		LIMIT 10`)
	if err != nil {
		logger.Error(ctx, "User stats most active failed", "error", err)
		return nil, err
	}
	return report, nil
}

// CategoryUsage is one category (or the synthetic Uncategorized bucket) in the
// category report. CompletionRate is a fraction here, not a percentage.
type CategoryUsage struct {
	ID              *string    `json:"id" db:"id"`
	Name            string     `json:"name" db:"name"`
	Color           string     `json:"color" db:"color"`
	CreatedAt       *time.Time `json:"created_at" db:"created_at"`
	TotalTodos      int        `json:"total_todos" db:"total_todos"`
	CompletedTodos  int        `json:"completed_todos" db:"completed_todos"`
	PendingTodos    int        `json:"pending_todos" db:"pending_todos"`
	TodosLast30Days int        `json:"todos_last_30_days" db:"todos_last_30_days"`
	CompletionRate  float64    `json:"completion_rate" db:"-"`
	UniqueUsers     int        `json:"unique_users" db:"unique_users"`
}

// CategoryTrend is one category-month creation count.
type CategoryTrend struct {
	CategoryName string    `json:"category_name" db:"category_name"`
	Month        time.Time `json:"month" db:"month"`
	TodosCreated int       `json:"todos_created" db:"todos_created"`
}

// CategoryStatsReport is the GET /api/stats/categories payload.
type CategoryStatsReport struct {
	Categories         []CategoryUsage `json:"categories"`
	UncategorizedTodos int             `json:"uncategorized_todos"`
	CategoryTrends     []CategoryTrend `json:"category_trends"`
}

// CategoryStats computes the per-owner category report, appending the
// synthetic Uncategorized bucket when uncategorized todos exist.
func (r *StatsRepo) CategoryStats(ctx context.Context, userID string) (*CategoryStatsReport, error) {
	report := &CategoryStatsReport{
		Categories:     []CategoryUsage{},
		CategoryTrends: []CategoryTrend{},
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.color, c.created_at,
		       COUNT(t.id) AS total_todos,
		       COUNT(t.id) FILTER (WHERE t.completed = true) AS completed_todos,
		       COUNT(t.id) FILTER (WHERE t.completed = false) AS pending_todos,
		       COUNT(t.id) FILTER (WHERE t.created_at >= CURRENT_DATE - INTERVAL '30 days') AS todos_last_30_days,
		       COUNT(DISTINCT t.user_id) AS unique_users
		FROM categories c
		LEFT JOIN todos t ON c.id = t.category_id AND t.user_id = $1
		WHERE c.user_id = $1
		GROUP BY c.id, c.name, c.color, c.created_at
		ORDER BY total_todos DESC`, userID)
	if err != nil {
		logger.Error(ctx, "Category stats failed", "error", err)
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var c CategoryUsage
		if err := rows.Scan(&c.ID, &c.Name, &c.Color, &c.CreatedAt,
			&c.TotalTodos, &c.CompletedTodos, &c.PendingTodos, &c.TodosLast30Days, &c.UniqueUsers); err != nil {
			return nil, err
		}
		c.CompletionRate = rate(c.CompletedTodos, c.TotalTodos)
		report.Categories = append(report.Categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var uncategorized struct {
		Total     int `db:"total"`
		Completed int `db:"completed"`
		Recent    int `db:"recent"`
	}
	err = r.db.GetContext(ctx, &uncategorized, `
		SELECT COUNT(*) AS total,
		       COUNT(*) FILTER (WHERE completed = true) AS completed,
		       COUNT(*) FILTER (WHERE created_at >= CURRENT_DATE - INTERVAL '30 days') AS recent
		FROM todos
		WHERE category_id IS NULL AND user_id = $1`, userID)
	if err != nil {
		logger.Error(ctx, "Category stats uncategorized failed", "error", err)
		return nil, err
	}
	report.UncategorizedTodos = uncategorized.Total
	if uncategorized.Total > 0 {
		report.Categories = append(report.Categories, CategoryUsage{
			ID:              nil,
			Name:            "Uncategorized",
			Color:           "#6B7280",
			TotalTodos:      uncategorized.Total,
			CompletedTodos:  uncategorized.Completed,
			PendingTodos:    uncategorized.Total - uncategorized.Completed,
			TodosLast30Days: uncategorized.Recent,
			CompletionRate:  rate(uncategorized.Completed, uncategorized.Total),
			UniqueUsers:     1,
		})
	}

	err = r.db.SelectContext(ctx, &report.CategoryTrends, `
		SELECT c.name AS category_name,
		       DATE_TRUNC('month', t.created_at) AS month,
		       COUNT(t.id) AS todos_created
		FROM categories c
		INNER JOIN todos t ON c.id = t.category_id
		WHERE t.created_at >= CURRENT_DATE - INTERVAL '6 months' AND t.user_id = $1
		GROUP BY c.id, c.name, DATE_TRUNC('month', t.created_at)
		ORDER BY month DESC, todos_created DESC`, userID)
	if err != nil {
		logger.Error(ctx, "Category stats trends failed", "error", err)
		return nil, err
	}
	return report, nil
}

// TrendPoint is one bucket of the trends report.
type TrendPoint struct {
	Date           time.Time `json:"date" db:"date"`
	CreatedCount   int       `json:"created_count" db:"created_count"`
	CompletedCount int       `json:"completed_count" db:"completed_count"`
}

// TrendDays maps a validated period to its day count.
var TrendDays = map[string]int{"7d": 7, "30d": 30, "90d": 90}

// Trends buckets the owner's creations/completions into daily or weekly
// groups over the trailing window, most recent first. period and granularity
// must already be validated by the caller.
func (r *StatsRepo) Trends(ctx context.Context, userID, period, granularity string) ([]TrendPoint, error) {
	days := TrendDays[period]
	truncUnit := "day"
	limit := days
	if granularity == "weekly" {
		truncUnit = "week"
		limit = int(math.Ceil(float64(days) / 7))
	}
	points := []TrendPoint{}
	// truncUnit and limit come from the whitelist above, never from input.
	err := r.db.SelectContext(ctx, &points, `
		SELECT DATE_TRUNC($2, created_at) AS date,
		       COUNT(*) AS created_count,
		       COUNT(*) FILTER (WHERE completed = true) AS completed_count
		FROM todos
		WHERE created_at >= CURRENT_DATE - make_interval(days => $3) AND user_id = $1
		GROUP BY DATE_TRUNC($2, created_at)
		ORDER BY date DESC
		LIMIT $4`, userID, truncUnit, days, limit)
	if err != nil {
		logger.Error(ctx, "Trends failed", "error", err)
		return nil, err
	}
	return points, nil
}

// DailyProductivity is one day of the 30-day productivity breakdown.
type DailyProductivity struct {
	Date                string  `json:"date"`
	TodosCreated        int     `json:"todos_created"`
	TodosCompleted      int     `json:"todos_completed"`
	DailyCompletionRate float64 `json:"daily_completion_rate"`
}

// Productivity is the GET /api/stats/productivity payload. CompletionRate and
// OverdueRate are integer percentages; the score is always within [0, 100].
type Productivity struct {
	AvgCompletionTimeHours float64             `json:"avg_completion_time_hours"`
	ProductivityScore      int                 `json:"productivity_score"`
	CompletionRate         int                 `json:"completion_rate"`
	OverdueRate            int                 `json:"overdue_rate"`
	BestCategory           *string             `json:"best_category"`
	CurrentStreakDays      int                 `json:"current_streak_days"`
	LongestStreakDays      int                 `json:"longest_streak_days"`
	DailyProductivity      []DailyProductivity `json:"daily_productivity"`
}

// productivityScore weights completion 70% and on-time performance 30%.
// Both rates fall back to 0 when the user has no todos.
func productivityScore(completed, overdue, total int) int {
	var completionRate, overdueRate float64
	if total > 0 {
		completionRate = float64(completed) / float64(total)
		overdueRate = float64(overdue) / float64(total)
	}
	return int(math.Round(completionRate*70 + (1-overdueRate)*30))
}

// Productivity computes the per-user productivity report, including
// completion streaks via consecutive-date grouping.
func (r *StatsRepo) Productivity(ctx context.Context, userID string) (*Productivity, error) {
	p := &Productivity{DailyProductivity: []DailyProductivity{}}

	var avgHours *float64
	err := r.db.GetContext(ctx, &avgHours, `
		SELECT AVG(EXTRACT(EPOCH FROM (updated_at - created_at)) / 3600)
		FROM todos
		WHERE completed = true AND user_id = $1`, userID)
	if err != nil {
		logger.Error(ctx, "Productivity avg time failed", "error", err)
		return nil, err
	}
	if avgHours != nil {
		p.AvgCompletionTimeHours = *avgHours
	}

	var total, completed, overdue int
	err = r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) AS total_todos,
		       COUNT(*) FILTER (WHERE completed = true) AS completed_todos,
		       COUNT(*) FILTER (WHERE due_date < CURRENT_TIMESTAMP AND completed = false) AS overdue_todos
		FROM todos
		WHERE user_id = $1`, userID).Scan(&total, &completed, &overdue)
	if err != nil {
		logger.Error(ctx, "Productivity counts failed", "error", err)
		return nil, err
	}
	p.ProductivityScore = productivityScore(completed, overdue, total)
	if total > 0 {
		p.CompletionRate = int(math.Round(float64(completed) / float64(total) * 100))
		p.OverdueRate = int(math.Round(float64(overdue) / float64(total) * 100))
	}

	err = r.db.GetContext(ctx, &p.BestCategory, `
		SELECT c.name
		FROM categories c
		INNER JOIN todos t ON c.id = t.category_id
		WHERE t.user_id = $1
		GROUP BY c.id, c.name
		HAVING COUNT(t.id) >= 2
		ORDER BY ROUND((COUNT(t.id) FILTER (WHERE t.completed = true)::decimal / NULLIF(COUNT(t.id), 0) * 100), 2) DESC,
		         COUNT(t.id) DESC
		LIMIT 1`, userID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		logger.Error(ctx, "Productivity best category failed", "error", err)
		return nil, err
	}

	// Current streak: consecutive completion dates grouped by subtracting
	// row_number days from each date (descending).
	err = r.db.GetContext(ctx, &p.CurrentStreakDays, `
		WITH daily_completions AS (
			SELECT DATE(updated_at) AS completion_date
			FROM todos
			WHERE completed = true AND user_id = $1
			  AND updated_at >= CURRENT_DATE - INTERVAL '30 days'
			GROUP BY DATE(updated_at)
			ORDER BY completion_date DESC
		),
		streak_calc AS (
			SELECT completion_date,
			       completion_date - (ROW_NUMBER() OVER (ORDER BY completion_date DESC))::int * INTERVAL '1 day' AS streak_group
			FROM daily_completions
		)
		SELECT COUNT(*)
		FROM streak_calc
		WHERE streak_group = (SELECT streak_group FROM streak_calc LIMIT 1)`, userID)
	if err != nil {
		logger.Error(ctx, "Productivity current streak failed", "error", err)
		return nil, err
	}

	// Longest streak: same grouping over all time, ascending.
	err = r.db.GetContext(ctx, &p.LongestStreakDays, `
		WITH daily_completions AS (
			SELECT DATE(updated_at) AS completion_date
			FROM todos
			WHERE completed = true AND user_id = $1
			GROUP BY DATE(updated_at)
			ORDER BY completion_date
		),
		streak_calc AS (
			SELECT completion_date,
			       completion_date - (ROW_NUMBER() OVER (ORDER BY completion_date))::int * INTERVAL '1 day' AS streak_group
			FROM daily_completions
		),
		streak_lengths AS (
			SELECT COUNT(*) AS streak_length
			FROM streak_calc
			GROUP BY streak_group
		)
		SELECT COALESCE(MAX(streak_length), 0)
		FROM streak_lengths`, userID)
	if err != nil {
		logger.Error(ctx, "Productivity longest streak failed", "error", err)
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT DATE(created_at) AS date,
		       COUNT(*) AS todos_created,
		       COUNT(*) FILTER (WHERE completed = true) AS todos_completed,
		       ROUND((COUNT(*) FILTER (WHERE completed = true)::decimal / NULLIF(COUNT(*), 0) * 100), 2) AS daily_completion_rate
		FROM todos
		WHERE created_at >= CURRENT_DATE - INTERVAL '30 days' AND user_id = $1
		GROUP BY DATE(created_at)
		ORDER BY date DESC`, userID)
	if err != nil {
		logger.Error(ctx, "Productivity daily failed", "error", err)
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var d time.Time
		var dp DailyProductivity
		if err := rows.Scan(&d, &dp.TodosCreated, &dp.TodosCompleted, &dp.DailyCompletionRate); err != nil {
			return nil, err
		}
		dp.Date = d.Format("2006-01-02")
		p.DailyProductivity = append(p.DailyProductivity, dp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return p, nil
}
