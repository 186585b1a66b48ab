package invoicing

import "encoding/json"

// InvoicePayload is the create/update body sent to the invoice API. Amounts are
// json.Number so they travel as JSON numbers without float rounding.
type InvoicePayload struct {
	CustomerFromID     string          `json:"customerFromId"`
	CustomerToID       string          `json:"customerToId"`
	CustomerToFullName string          `json:"customerToFullName"`
	Shipping           json.Number     `json:"shipping"`
	Discount           json.Number     `json:"discount"`
	Taxes              json.Number     `json:"taxes"`
	Status             StatusCode      `json:"status"`
	DueDateTime        string          `json:"dueDateTime"`
	Details            []DetailPayload `json:"details"`
}

// DetailPayload is one line of an InvoicePayload.
type DetailPayload struct {
	Title                string      `json:"title"`
	Description          string      `json:"description"`
	CategoryID           string      `json:"categoryId"`
	Quantity             json.Number `json:"quantity"`
	Price                json.Number `json:"price"`
	CreationTime         string      `json:"creationTime"`
	LastModificationTime string      `json:"lastModificationTime"`
}
