package allocation

import (
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func inv(id, issued, due string) Invoice {
	return Invoice{
		ID:            InvoiceID(id),
		InvoiceNumber: id,
		IssueDate:     day(issued),
		TotalAmount:   dec(due),
		AmountDue:     dec(due),
	}
}
