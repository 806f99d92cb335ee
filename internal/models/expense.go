package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryFood          Category = "food"
	CategoryTransport     Category = "transport"
	CategoryEntertainment Category = "entertainment"
	CategoryUtilities     Category = "utilities"
	CategoryHealthcare    Category = "healthcare"
	CategoryShopping      Category = "shopping"
	CategoryOther         Category = "other"
)

var categories = []Category{
	CategoryFood,
	CategoryTransport,
	CategoryEntertainment,
	CategoryUtilities,
	CategoryHealthcare,
	CategoryShopping,
	CategoryOther,
}

// ValidCategory reports whether s is one of the fixed category values.
// Categories are stored lowercase; s is expected to be lowercase already.
func ValidCategory(s string) bool {
	for _, c := range categories {
		if s == string(c) {
			return true
		}
	}
	return false
}

// CategoryNames returns the fixed category set as strings, for error messages.
func CategoryNames() []string {
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = string(c)
	}
	return names
}

// Expense is a single immutable ledger row. Amount is an exact decimal
// with two fractional digits; Date carries no time-of-day component.
type Expense struct {
	ID          uuid.UUID       `db:"id"`
	Amount      decimal.Decimal `db:"amount"`
	Category    Category        `db:"category"`
	Description string          `db:"description"`
	Date        time.Time       `db:"date"`
	CreatedAt   time.Time       `db:"created_at"`
}
