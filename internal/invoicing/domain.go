// Package invoicing holds the invoice worklist domain shared by the list and form sides.
package invoicing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// InvoiceSummary is one row of the worklist as returned by the remote search endpoint.
type InvoiceSummary struct {
	ID           string          `json:"id"`
	CustomerName string          `json:"customerToFullName"`
	No           string          `json:"no"`
	CreationTime Timestamp       `json:"creationTime"`
	DueDateTime  Timestamp       `json:"dueDateTime"`
	Amount       decimal.Decimal `json:"amount"`
	Status       StatusCode      `json:"status"`
}

// InvoicePage is a single page of search results.
type InvoicePage struct {
	Rows      []InvoiceSummary `json:"result"`
	Page      int              `json:"page"`
	PageSize  int              `json:"rowsPerPage"`
	TotalRows int              `json:"totalRows"`
}

// Empty reports whether the page carries no rows.
func (p InvoicePage) Empty() bool {
	return len(p.Rows) == 0
}

// InvoiceDetail is a persisted invoice line as the remote API returns it.
type InvoiceDetail struct {
	Title                string          `json:"title"`
	Description          string          `json:"description"`
	CategoryID           string          `json:"categoryId"`
	Quantity             decimal.Decimal `json:"quantity"`
	Price                decimal.Decimal `json:"price"`
	CreationTime         string          `json:"creationTime,omitempty"`
	LastModificationTime string          `json:"lastModificationTime,omitempty"`
}

// Invoice is the full invoice record used for edit hydration.
type Invoice struct {
	ID                 string          `json:"id"`
	No                 string          `json:"no"`
	Amount             decimal.Decimal `json:"amount"`
	CreationTime       Timestamp       `json:"creationTime"`
	DueDateTime        Timestamp       `json:"dueDateTime"`
	Status             StatusCode      `json:"status"`
	CustomerFromID     string          `json:"customerFromId"`
	CustomerToID       string          `json:"customerToId"`
	CustomerToFullName string          `json:"customerToFullName"`
	Shipping           decimal.Decimal `json:"shipping"`
	Discount           decimal.Decimal `json:"discount"`
	Taxes              decimal.Decimal `json:"taxes"`
	Details            []InvoiceDetail `json:"details"`
}

// Customer is reference data used by the sender/recipient selectors.
type Customer struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	LastName string `json:"lastName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

// FullName joins name and last name the way the search endpoint indexes customers.
func (c Customer) FullName() string {
	return strings.TrimSpace(c.Name + " " + c.LastName)
}

// CategoryService is a billable service category a line item can reference.
type CategoryService struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// StatusOption is one entry of the remote status list.
type StatusOption struct {
	Text  string     `json:"text"`
	Value StatusCode `json:"value"`
}
