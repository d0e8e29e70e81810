// Seed populates the database with demo users, categories and todos.
// Run from project root: go run ./scripts/seed
package main

import (
	"bufio"
	"context"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"todo-api/internal/database"
	"todo-api/internal/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	userCount     = 5
	categoryCount = 4
	todosPerUser  = 50
)

var categoryNames = [categoryCount]string{"Work", "Personal", "Shopping", "Health"}
var categoryColors = [categoryCount]string{"#dc3545", "#007bff", "#28a745", "#ffc107"}

func main() {
	loadEnvFile(".env")

	ctx := context.Background()
	db := database.InitDB(ctx)
	if db == nil {
		fmt.Fprintln(os.Stderr, "DATABASE_URL not set or DB connection failed")
		os.Exit(1)
	}

	if err := database.MigrateOrCreateSchema(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Schema failed:", err)
		os.Exit(1)
	}

	start := time.Now()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Hash failed:", err)
		os.Exit(1)
	}

	priorities := []string{models.PriorityHigh, models.PriorityMedium, models.PriorityLow}
	todoTotal := 0

	for u := 1; u <= userCount; u++ {
		userID := uuid.New().String()
		_, err := db.ExecContext(ctx, `
			INSERT INTO users (id, username, email, password, first_name, last_name, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())`,
			userID,
			fmt.Sprintf("user%d", u),
			fmt.Sprintf("user%d@example.com", u),
			string(hash),
			fmt.Sprintf("User%d", u),
			"Demo",
		)
		if err != nil {
			fmt.Fprintln(os.Stderr, "User insert failed:", err)
			os.Exit(1)
		}

		categoryIDs := make([]string, 0, categoryCount)
		for ci := 0; ci < categoryCount; ci++ {
			cid := uuid.New().String()
			_, err := db.ExecContext(ctx, `
				INSERT INTO categories (id, name, color, user_id, created_at)
				VALUES ($1, $2, $3, $4, NOW())`,
				cid, categoryNames[ci], categoryColors[ci], userID,
			)
			if err != nil {
				fmt.Fprintln(os.Stderr, "Category insert failed:", err)
				os.Exit(1)
			}
			categoryIDs = append(categoryIDs, cid)
		}

		args := make([]interface{}, 0, todosPerUser*8)
		placeholders := make([]string, 0, todosPerUser)
		for i := 0; i < todosPerUser; i++ {
			n := i + 1
			base := 8 * i
			placeholders = append(placeholders, fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,NOW(),NOW())",
				base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8))

			// Roughly a third completed, a fifth uncategorized, some overdue.
			var categoryID interface{}
			if rand.Intn(5) > 0 {
				categoryID = categoryIDs[rand.Intn(categoryCount)]
			}
			var dueDate interface{}
			if rand.Intn(2) == 0 {
				dueDate = time.Now().AddDate(0, 0, rand.Intn(21)-7)
			}
			args = append(args,
				uuid.New().String(),
				fmt.Sprintf("Todo %d for user%d", n, u),
				fmt.Sprintf("Description for todo %d", n),
				rand.Intn(3) == 0,
				priorities[rand.Intn(len(priorities))],
				dueDate,
				userID,
				categoryID,
			)
		}
		q := `INSERT INTO todos (id, title, description, completed, priority, due_date, user_id, category_id, created_at, updated_at) VALUES ` +
			strings.Join(placeholders, ",")
		if _, err := db.ExecContext(ctx, q, args...); err != nil {
			fmt.Fprintln(os.Stderr, "Todo insert failed:", err)
			os.Exit(1)
		}
		todoTotal += todosPerUser
		fmt.Printf("\rSeeded %d / %d users", u, userCount)
	}

	fmt.Printf("\nDone: %d users, %d todos in %v\n", userCount, todoTotal, time.Since(start))
}

func loadEnvFile(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.Index(line, "=")
		if idx <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])
		if strings.HasPrefix(val, `"`) && strings.HasSuffix(val, `"`) {
			val = strings.Trim(val, `"`)
		} else if strings.HasPrefix(val, "'") && strings.HasSuffix(val, "'") {
			val = strings.Trim(val, "'")
		}
		if key != "" && os.Getenv(key) == "" {
			_ = os.Setenv(key, val)
		}
	}
}
