package api

import (
	"context"
	"net/http"
	"time"

	"github.com/budgie-app/budgie/internal/model"
	"github.com/budgie-app/budgie/internal/period"
)

const budgetsPath = "/api/budgets"

// BudgetBody is the wire shape of a budget create or update. Period is the
// first instant of the budgeted month.
type BudgetBody struct {
	Category string    `json:"category"`
	Amount   int64     `json:"amount"`
	Period   time.Time `json:"period"`
}

func (c *Client) ListBudgets(ctx context.Context) ([]model.Budget, error) {
	return fetchList(ctx, c, model.ResourceBudgets, "", budgetsPath, nil, model.DecodeBudget)
}

// BudgetUtilization returns every budget in p with the spend recorded against it.
func (c *Client) BudgetUtilization(ctx context.Context, p period.Period) ([]model.BudgetUtilization, error) {
	key := p.String()
	return fetchList(ctx, c, model.ResourceBudgetUtilization, key, budgetsPath+"/utilization/"+key, nil, model.DecodeBudgetUtilization)
}

func (c *Client) CreateBudget(ctx context.Context, body BudgetBody) (model.Budget, error) {
	return write(ctx, c, model.ResourceBudgets, OpCreate, http.MethodPost, budgetsPath, body, model.DecodeBudget)
}

func (c *Client) UpdateBudget(ctx context.Context, id string, body BudgetBody) (model.Budget, error) {
	return write(ctx, c, model.ResourceBudgets, OpUpdate, http.MethodPut, itemPath(budgetsPath, id), body, model.DecodeBudget)
}

func (c *Client) DeleteBudget(ctx context.Context, id string) error {
	return remove(ctx, c, model.ResourceBudgets, itemPath(budgetsPath, id))
}
