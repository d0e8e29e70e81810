package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todo-api/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func TestRate(t *testing.T) {
	assert.Equal(t, 0.0, rate(0, 0))
	assert.Equal(t, 0.0, rate(5, 0))
	assert.Equal(t, 0.25, rate(1, 4))
	assert.Equal(t, 1.0, rate(3, 3))
	assert.Equal(t, 0.33, rate(1, 3))
	assert.Equal(t, 0.67, rate(2, 3))
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 0.67, round2(2.0/3.0))
	assert.Equal(t, 1.0, round2(0.999))
	assert.Equal(t, 0.0, round2(0))
}

func TestProductivityScore(t *testing.T) {
	t.Run("no todos falls back to the on-time floor", func(t *testing.T) {
		assert.Equal(t, 30, productivityScore(0, 0, 0))
	})
	t.Run("everything completed, nothing overdue", func(t *testing.T) {
		assert.Equal(t, 100, productivityScore(10, 0, 10))
	})
	t.Run("nothing completed, everything overdue", func(t *testing.T) {
		assert.Equal(t, 0, productivityScore(0, 10, 10))
	})
	t.Run("mixed", func(t *testing.T) {
		// 0.5*70 + (1-0.25)*30 = 57.5 rounds to 58
		assert.Equal(t, 58, productivityScore(2, 1, 4))
	})
	t.Run("stays within bounds", func(t *testing.T) {
		for completed := 0; completed <= 4; completed++ {
			for overdue := 0; overdue <= 4; overdue++ {
				score := productivityScore(completed, overdue, 4)
				assert.GreaterOrEqual(t, score, 0)
				assert.LessOrEqual(t, score, 100)
			}
		}
	})
}

func TestFillPriorityBuckets(t *testing.T) {
	t.Run("empty input yields zero buckets in fixed order", func(t *testing.T) {
		got := fillPriorityBuckets(nil)
		require.Len(t, got, 3)
		assert.Equal(t, models.PriorityHigh, got[0].Priority)
		assert.Equal(t, models.PriorityMedium, got[1].Priority)
		assert.Equal(t, models.PriorityLow, got[2].Priority)
		for _, b := range got {
			assert.Zero(t, b.Count)
			assert.Zero(t, b.Completed)
			assert.Zero(t, b.Pending)
		}
	})

	t.Run("partial input keeps counts and zero-fills the rest", func(t *testing.T) {
		got := fillPriorityBuckets([]PriorityBucket{
			{Priority: models.PriorityMedium, Count: 4, Completed: 1, Pending: 3},
		})
		require.Len(t, got, 3)
		assert.Equal(t, PriorityBucket{Priority: models.PriorityHigh}, got[0])
		assert.Equal(t, 4, got[1].Count)
		assert.Equal(t, 1, got[1].Completed)
		assert.Equal(t, PriorityBucket{Priority: models.PriorityLow}, got[2])
	})
}

func TestOverview(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStatsRepo(db)
	day := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("total_users").WithArgs("u1").WillReturnRows(
		sqlmock.NewRows([]string{"total_users", "total_categories", "total_todos", "completed_todos", "pending_todos", "overdue_todos"}).
			AddRow(3, 1, 4, 1, 3, 1))
	mock.ExpectQuery("GROUP BY priority").WithArgs("u1").WillReturnRows(
		sqlmock.NewRows([]string{"priority", "count", "completed", "pending"}).
			AddRow("medium", 4, 1, 3))
	mock.ExpectQuery("todos_created").WithArgs("u1").WillReturnRows(
		sqlmock.NewRows([]string{"date", "todos_created"}).AddRow(day, 2))
	mock.ExpectQuery("todos_completed").WithArgs("u1").WillReturnRows(
		sqlmock.NewRows([]string{"date", "todos_completed"}).AddRow(day, 1))
	mock.ExpectQuery("Uncategorized").WithArgs("u1").WillReturnRows(
		sqlmock.NewRows([]string{"category_name", "total_todos"}).
			AddRow("Work", 3).AddRow("Uncategorized", 1))

	o, err := repo.Overview(context.Background(), "u1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, 4, o.TotalTodos)
	assert.Equal(t, 0.25, o.CompletionRate)

	require.Len(t, o.TodosByPriority, 3)
	assert.Equal(t, models.PriorityHigh, o.TodosByPriority[0].Priority)
	assert.Equal(t, 4, o.TodosByPriority[1].Count)
	assert.Equal(t, models.PriorityLow, o.TodosByPriority[2].Priority)
	assert.Equal(t, map[string]int{"high": 0, "medium": 4, "low": 0}, o.PriorityBreakdown)

	require.Len(t, o.RecentActivity, 1)
	assert.Equal(t, "2026-08-30", o.RecentActivity[0].Date)
	assert.Equal(t, 2, o.RecentActivity[0].TodosCreated)
	require.Len(t, o.CompletionRates, 1)
	assert.Equal(t, 1, o.CompletionRates[0].TodosCompleted)

	require.Len(t, o.CategoryBreakdown, 2)
	assert.Equal(t, "Work", o.CategoryBreakdown[0].CategoryName)
	assert.Equal(t, "Uncategorized", o.CategoryBreakdown[1].CategoryName)
}

func TestProductivity(t *testing.T) {
	day := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	t.Run("streaks survive a gap in the completion history", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewStatsRepo(db)

		// Completion history: three consecutive days, a two-day gap, then
		// one more day. The grouping queries report the run since the gap
		// as the current streak and the earlier run as the longest.
		mock.ExpectQuery("3600").WithArgs("u1").WillReturnRows(
			sqlmock.NewRows([]string{"avg"}).AddRow(2.5))
		mock.ExpectQuery("overdue_todos").WithArgs("u1").WillReturnRows(
			sqlmock.NewRows([]string{"total_todos", "completed_todos", "overdue_todos"}).
				AddRow(6, 4, 1))
		mock.ExpectQuery("INNER JOIN todos").WithArgs("u1").WillReturnRows(
			sqlmock.NewRows([]string{"name"}).AddRow("Work"))
		mock.ExpectQuery("streak_group =").WithArgs("u1").WillReturnRows(
			sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectQuery("streak_lengths").WithArgs("u1").WillReturnRows(
			sqlmock.NewRows([]string{"coalesce"}).AddRow(3))
		mock.ExpectQuery("daily_completion_rate").WithArgs("u1").WillReturnRows(
			sqlmock.NewRows([]string{"date", "todos_created", "todos_completed", "daily_completion_rate"}).
				AddRow(day, 2, 1, 50.0))

		p, err := repo.Productivity(context.Background(), "u1")
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())

		assert.Equal(t, 1, p.CurrentStreakDays)
		assert.Equal(t, 3, p.LongestStreakDays)
		assert.LessOrEqual(t, p.CurrentStreakDays, p.LongestStreakDays)

		assert.Equal(t, 2.5, p.AvgCompletionTimeHours)
		// 4/6*70 + (1-1/6)*30 = 71.67 rounds to 72
		assert.Equal(t, 72, p.ProductivityScore)
		assert.Equal(t, 67, p.CompletionRate)
		assert.Equal(t, 17, p.OverdueRate)
		require.NotNil(t, p.BestCategory)
		assert.Equal(t, "Work", *p.BestCategory)

		require.Len(t, p.DailyProductivity, 1)
		assert.Equal(t, "2026-08-30", p.DailyProductivity[0].Date)
		assert.Equal(t, 2, p.DailyProductivity[0].TodosCreated)
		assert.Equal(t, 50.0, p.DailyProductivity[0].DailyCompletionRate)
	})

	t.Run("no completions yields zero streaks and no best category", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewStatsRepo(db)

		mock.ExpectQuery("3600").WithArgs("u1").WillReturnRows(
			sqlmock.NewRows([]string{"avg"}).AddRow(nil))
		mock.ExpectQuery("overdue_todos").WithArgs("u1").WillReturnRows(
			sqlmock.NewRows([]string{"total_todos", "completed_todos", "overdue_todos"}).
				AddRow(0, 0, 0))
		mock.ExpectQuery("INNER JOIN todos").WithArgs("u1").WillReturnRows(
			sqlmock.NewRows([]string{"name"}))
		mock.ExpectQuery("streak_group =").WithArgs("u1").WillReturnRows(
			sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery("streak_lengths").WithArgs("u1").WillReturnRows(
			sqlmock.NewRows([]string{"coalesce"}).AddRow(0))
		mock.ExpectQuery("daily_completion_rate").WithArgs("u1").WillReturnRows(
			sqlmock.NewRows([]string{"date", "todos_created", "todos_completed", "daily_completion_rate"}))

		p, err := repo.Productivity(context.Background(), "u1")
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())

		assert.Zero(t, p.CurrentStreakDays)
		assert.Zero(t, p.LongestStreakDays)
		assert.Zero(t, p.AvgCompletionTimeHours)
		assert.Nil(t, p.BestCategory)
		// Nothing completed, nothing overdue: the on-time floor alone.
		assert.Equal(t, 30, p.ProductivityScore)
		assert.Empty(t, p.DailyProductivity)
	})
}

func TestTodoStatsFilterFragment(t *testing.T) {
	t.Run("empty filter renders nothing", func(t *testing.T) {
		frag, args, err := TodoStatsFilter{}.condFragment()
		require.NoError(t, err)
		assert.Empty(t, frag)
		assert.Empty(t, args)
	})

	t.Run("filters join with AND in declaration order", func(t *testing.T) {
		from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		f := TodoStatsFilter{UserID: "u1", CategoryID: "c1", DateFrom: &from}
		frag, args, err := f.condFragment()
		require.NoError(t, err)
		assert.Equal(t, "(t.user_id = ? AND t.category_id = ? AND t.created_at >= ?)", frag)
		assert.Equal(t, []interface{}{"u1", "c1", from}, args)
	})
}

func TestTodoStatsSkipsTopUsersWhenUserFiltered(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStatsRepo(db)

	basicCols := []string{"total", "completed", "pending", "overdue",
		"high_priority", "medium_priority", "low_priority", "avg_completion_time_hours"}
	mock.ExpectQuery("avg_completion_time_hours").WithArgs("u1").WillReturnRows(
		sqlmock.NewRows(basicCols).AddRow(4, 1, 3, 1, 1, 2, 1, nil))
	mock.ExpectQuery("category_color").WithArgs("u1").WillReturnRows(
		sqlmock.NewRows([]string{"category_name", "category_color", "total_todos", "completed_todos", "pending_todos"}))
	mock.ExpectQuery("DATE_TRUNC").WithArgs("u1").WillReturnRows(
		sqlmock.NewRows([]string{"month", "created", "completed"}))

	report, err := repo.TodoStats(context.Background(), TodoStatsFilter{UserID: "u1"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, 4, report.BasicStats.Total)
	assert.Nil(t, report.BasicStats.AvgCompletionTimeHours)
	assert.Empty(t, report.TopUsers)
	assert.NotNil(t, report.ByCategory)
	assert.NotNil(t, report.MonthlyTrends)
}

func TestTrendsQueryShape(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStatsRepo(db)

	t.Run("daily buckets limit to the day count", func(t *testing.T) {
		mock.ExpectQuery("make_interval").WithArgs("u1", "day", 7, 7).WillReturnRows(
			sqlmock.NewRows([]string{"date", "created_count", "completed_count"}))
		_, err := repo.Trends(context.Background(), "u1", "7d", "daily")
		require.NoError(t, err)
	})

	t.Run("weekly buckets limit to the rounded-up week count", func(t *testing.T) {
		mock.ExpectQuery("make_interval").WithArgs("u1", "week", 30, 5).WillReturnRows(
			sqlmock.NewRows([]string{"date", "created_count", "completed_count"}))
		_, err := repo.Trends(context.Background(), "u1", "30d", "weekly")
		require.NoError(t, err)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}
