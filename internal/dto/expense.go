package dto

// CreateExpenseRequest is the inbound create-expense body. Amount is a
// decimal string with exactly two fractional digits, date is YYYY-MM-DD.
type CreateExpenseRequest struct {
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

type ExpenseResponse struct {
	ID          string `json:"id"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Date        string `json:"date"`
	CreatedAt   string `json:"created_at"`
}

// ListExpensesResponse carries the matching rows plus their exact decimal
// total; Count always equals len(Expenses).
type ListExpensesResponse struct {
	Expenses []ExpenseResponse `json:"expenses"`
	Total    string            `json:"total"`
	Count    int               `json:"count"`
}
