package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// Category buckets transactions for reporting.
type Category struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	CategoryType string `json:"category_type"` // "income" or "expense"
	IsSystem     bool   `json:"is_system"`
	CreatedAt    string `json:"created_at"`
}

type CategoryCreate struct {
	Name         string `json:"name"`
	CategoryType string `json:"category_type"`
}

type CategoryUpdate struct {
	Name         *string `json:"name,omitempty"`
	CategoryType *string `json:"category_type,omitempty"`
}

// Transaction is a single income/expense record. Amounts and tax rates are
// decimal strings, as the backend serializes them.
type Transaction struct {
	ID              int64   `json:"id"`
	Amount          string  `json:"amount"`
	TransactionType string  `json:"transaction_type"`
	Category        *int64  `json:"category"`
	CategoryName    *string `json:"category_name"`
	Description     string  `json:"description"`
	TransactionDate string  `json:"transaction_date"`
	CreatedAt       string  `json:"created_at"`
	PaymentMethod   string  `json:"payment_method"` // "cash" or "non_cash"
	IsBusiness      bool    `json:"is_business"`
	IsTaxable       bool    `json:"is_taxable"`
	ActivityCode    *int64  `json:"activity_code"`
	CashTaxRate     *string `json:"cash_tax_rate"`
	NonCashTaxRate  *string `json:"non_cash_tax_rate"`
}

type TransactionCreate struct {
	Amount          string `json:"amount"`
	TransactionType string `json:"transaction_type"`
	Category        *int64 `json:"category,omitempty"`
	Description     string `json:"description,omitempty"`
	TransactionDate string `json:"transaction_date"`
	PaymentMethod   string `json:"payment_method"`
	IsBusiness      bool   `json:"is_business"`
	IsTaxable       bool   `json:"is_taxable"`
	ActivityCode    *int64 `json:"activity_code,omitempty"`
}

// TransactionFilter narrows GET /api/finance/transactions/.
type TransactionFilter struct {
	TransactionType string
	Category        int64
	DateFrom        string
	DateTo          string
	Limit           int
	Offset          int
}

// TransactionsPage is the paginated listing envelope.
type TransactionsPage struct {
	Count    int           `json:"count"`
	Next     *string       `json:"next"`
	Previous *string       `json:"previous"`
	Results  []Transaction `json:"results"`
}

func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	return getList[Category](ctx, c, "/finance/categories/")
}

func (c *Client) CreateCategory(ctx context.Context, create CategoryCreate) (*Category, error) {
	var category Category
	if err := c.Post(ctx, "/finance/categories/", create, &category); err != nil {
		return nil, err
	}
	return &category, nil
}

func (c *Client) UpdateCategory(ctx context.Context, id int64, update CategoryUpdate) (*Category, error) {
	var category Category
	if err := c.Patch(ctx, fmt.Sprintf("/finance/categories/%d/", id), update, &category); err != nil {
		return nil, err
	}
	return &category, nil
}

func (c *Client) DeleteCategory(ctx context.Context, id int64) error {
	return c.Delete(ctx, fmt.Sprintf("/finance/categories/%d/", id))
}

func (c *Client) ListTransactions(ctx context.Context, filter TransactionFilter) (TransactionsPage, error) {
	q := url.Values{}
	if filter.TransactionType != "" {
		q.Set("transaction_type", filter.TransactionType)
	}
	if filter.Category != 0 {
		q.Set("category", strconv.FormatInt(filter.Category, 10))
	}
	if filter.DateFrom != "" {
		q.Set("date_from", filter.DateFrom)
	}
	if filter.DateTo != "" {
		q.Set("date_to", filter.DateTo)
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Offset > 0 {
		q.Set("offset", strconv.Itoa(filter.Offset))
	}

	path := "/finance/transactions/"
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var page TransactionsPage
	err := c.Get(ctx, path, &page)
	return page, err
}

func (c *Client) CreateTransaction(ctx context.Context, create TransactionCreate) (*Transaction, error) {
	var tx Transaction
	if err := c.Post(ctx, "/finance/transactions/", create, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

func (c *Client) DeleteTransaction(ctx context.Context, id int64) error {
	return c.Delete(ctx, fmt.Sprintf("/finance/transactions/%d/", id))
}
