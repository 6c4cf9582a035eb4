package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/budgie-app/budgie/internal/model"
)

const transactionsPath = "/api/transactions"

// Transaction list filters, sent as query parameters.
const (
	QueryCategory = "category"
	QueryPeriod   = "period"
)

// TransactionBody is the wire shape of a transaction create or update.
type TransactionBody struct {
	Type        model.TransactionType `json:"type"`
	Vendor      string                `json:"vendor"`
	Description string                `json:"description"`
	CategoryID  string                `json:"category_id"`
	Amount      int64                 `json:"amount"`
	Date        time.Time             `json:"date"`
}

// ListTransactions returns the transactions matching query (see QueryCategory
// and QueryPeriod). A nil query lists everything.
func (c *Client) ListTransactions(ctx context.Context, query url.Values) ([]model.Transaction, error) {
	return fetchList(ctx, c, model.ResourceTransactions, query.Encode(), transactionsPath, query, model.DecodeTransaction)
}

func (c *Client) CreateTransaction(ctx context.Context, body TransactionBody) (model.Transaction, error) {
	return write(ctx, c, model.ResourceTransactions, OpCreate, http.MethodPost, transactionsPath, body, model.DecodeTransaction)
}

func (c *Client) UpdateTransaction(ctx context.Context, id string, body TransactionBody) (model.Transaction, error) {
	return write(ctx, c, model.ResourceTransactions, OpUpdate, http.MethodPut, itemPath(transactionsPath, id), body, model.DecodeTransaction)
}

func (c *Client) DeleteTransaction(ctx context.Context, id string) error {
	return remove(ctx, c, model.ResourceTransactions, itemPath(transactionsPath, id))
}
