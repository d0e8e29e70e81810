package repository

import (
	"math"

	sq "github.com/Masterminds/squirrel"
)

// psql builds statements with Postgres dollar placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// round2 rounds to 2 decimal places. Rates are always reported this way.
func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// rate returns completed/total rounded to 2 decimals, 0 when total is 0.
func rate(completed, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(completed) / float64(total))
}
