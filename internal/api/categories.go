package api

import (
	"context"
	"net/http"

	"github.com/budgie-app/budgie/internal/model"
)

const categoriesPath = "/api/categories"

// CategoryBody is the wire shape of a category create or rename.
type CategoryBody struct {
	Name string `json:"name"`
}

func (c *Client) ListCategories(ctx context.Context) ([]model.Category, error) {
	return fetchList(ctx, c, model.ResourceCategories, "", categoriesPath, nil, model.DecodeCategory)
}

func (c *Client) CreateCategory(ctx context.Context, body CategoryBody) (model.Category, error) {
	return write(ctx, c, model.ResourceCategories, OpCreate, http.MethodPost, categoriesPath, body, model.DecodeCategory)
}

func (c *Client) UpdateCategory(ctx context.Context, id string, body CategoryBody) (model.Category, error) {
	return write(ctx, c, model.ResourceCategories, OpUpdate, http.MethodPut, itemPath(categoriesPath, id), body, model.DecodeCategory)
}

func (c *Client) DeleteCategory(ctx context.Context, id string) error {
	return remove(ctx, c, model.ResourceCategories, itemPath(categoriesPath, id))
}
