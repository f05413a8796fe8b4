package cli

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/fintrack/internal/client/models"
	"github.com/dmitrijs2005/fintrack/internal/client/services"
	"github.com/dmitrijs2005/fintrack/internal/common"
	"github.com/shopspring/decimal"
)

var (
	getTextOrDefault = GetTextOrDefault
	getAmount        = GetAmount
)

func (a *App) readExpense(cur models.Expense) (services.ExpenseInput, error) {
	var in services.ExpenseInput
	var err error

	if in.Amount, err = getAmount(a.reader, "Amount", cur.Amount, a.out); err != nil {
		return in, err
	}
	if in.Category, err = getTextOrDefault(a.reader, "Category", cur.Category, a.out); err != nil {
		return in, err
	}
	if in.Description, err = getTextOrDefault(a.reader, "Description", cur.Description, a.out); err != nil {
		return in, err
	}
	prompt := "Date (YYYY-MM-DD, empty for today)"
	if cur.Date != "" {
		prompt = "Date (YYYY-MM-DD)"
	}
	if in.Date, err = getTextOrDefault(a.reader, prompt, cur.Date, a.out); err != nil {
		return in, err
	}
	return in, nil
}

func (a *App) AddExpense(ctx context.Context) error {
	in, err := a.readExpense(models.Expense{Amount: decimal.Zero})
	if err != nil {
		return a.fail(ctx, "Add", err)
	}
	e, err := a.expenses.Add(ctx, in)
	if err != nil {
		return a.fail(ctx, "Add", err)
	}
	fmt.Fprintf(a.out, "Saved expense %s\n", shortID(e.ID))
	return nil
}

func (a *App) ListExpenses(ctx context.Context) error {
	items, err := a.expenses.List(ctx)
	if err != nil {
		return a.fail(ctx, "List", err)
	}
	if len(items) == 0 {
		fmt.Fprintln(a.out, "No expenses yet")
		return nil
	}
	total := decimal.Zero
	pending := 0
	for _, e := range items {
		fmt.Fprintln(a.out, formatExpense(e))
		total = total.Add(e.Amount)
		if !e.Synced {
			pending++
		}
	}
	fmt.Fprintf(a.out, "Total: %s", total.StringFixed(2))
	if pending > 0 {
		fmt.Fprintf(a.out, " (%d not synced, marked *)", pending)
	}
	fmt.Fprintln(a.out)
	return nil
}

// findExpense accepts a full id or a unique prefix of one, as shown by list.
func (a *App) findExpense(ctx context.Context, prefix string) (models.Expense, error) {
	items, err := a.expenses.List(ctx)
	if err != nil {
		return models.Expense{}, err
	}
	var found []models.Expense
	for _, e := range items {
		if e.ID == prefix {
			return e, nil
		}
		if strings.HasPrefix(e.ID, prefix) {
			found = append(found, e)
		}
	}
	switch len(found) {
	case 0:
		return models.Expense{}, common.ErrorNotFound
	case 1:
		return found[0], nil
	default:
		return models.Expense{}, fmt.Errorf("id prefix %q is ambiguous", prefix)
	}
}

func (a *App) EditExpense(ctx context.Context, id string) error {
	cur, err := a.findExpense(ctx, id)
	if err != nil {
		return a.fail(ctx, "Edit", err)
	}
	in, err := a.readExpense(cur)
	if err != nil {
		return a.fail(ctx, "Edit", err)
	}
	if _, err := a.expenses.Update(ctx, cur.ID, in); err != nil {
		return a.fail(ctx, "Edit", err)
	}
	fmt.Fprintf(a.out, "Updated expense %s\n", shortID(cur.ID))
	return nil
}

func (a *App) DeleteExpense(ctx context.Context, id string) error {
	cur, err := a.findExpense(ctx, id)
	if err != nil {
		return a.fail(ctx, "Delete", err)
	}
	if err := a.expenses.Delete(ctx, cur.ID); err != nil {
		return a.fail(ctx, "Delete", err)
	}
	fmt.Fprintf(a.out, "Deleted expense %s\n", shortID(cur.ID))
	return nil
}

func (a *App) AttachReceipt(ctx context.Context, id, path string) error {
	cur, err := a.findExpense(ctx, id)
	if err != nil {
		return a.fail(ctx, "Receipt", err)
	}
	f, err := os.Open(path)
	if err != nil {
		return a.fail(ctx, "Receipt", err)
	}
	defer f.Close()

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	u, err := a.expenses.AttachReceipt(ctx, cur.ID, contentType, f)
	if err != nil {
		return a.fail(ctx, "Receipt", err)
	}
	fmt.Fprintf(a.out, "Receipt stored as %s\n", u.Key)
	return nil
}

func (a *App) ShowReceipt(ctx context.Context, id string) error {
	cur, err := a.findExpense(ctx, id)
	if err != nil {
		return a.fail(ctx, "Receipt", err)
	}
	u, err := a.expenses.ReceiptURL(ctx, cur.ID)
	if err != nil {
		return a.fail(ctx, "Receipt", err)
	}
	fmt.Fprintf(a.out, "%s\n(valid until %s)\n", u.URL, formatTime(&u.ExpiresAt))
	return nil
}
