package form

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/invoice-worklist/internal/invoicing"
	"github.com/odyssey-erp/invoice-worklist/internal/invoicing/lineitems"
)

var invoiceNoPattern = regexp.MustCompile(`^INV-\d{4}$`)

type messageKey struct {
	field string
	tag   string
}

var messages = map[messageKey]string{
	{"customerFromId", "required"}: "Debe seleccionar un remitente",
	{"customerToId", "required"}:   "Debe seleccionar un destinatario",
	{"no", "invoiceno"}:            "El formato debe ser INV-XXXX",
	{"creationTime", "required"}:   "La fecha es requerida",
	{"dueDateTime", "required"}:    "La fecha es requerida",
	{"status", "required"}:         "El estado es obligatorio",
	{"status", "invoicestatus"}:    "El estado es obligatorio",
	{"details", "min"}:             "Debe haber al menos un elemento",
	{"title", "required"}:          "El título es obligatorio",
	{"categoryId", "required"}:     "El servicio es obligatorio",
	{"quantity", "gte"}:            "Mínimo 1",
	{"price", "gt"}:                "Precio requerido",
}

type draftInput struct {
	No             string     `json:"no" validate:"omitempty,invoiceno"`
	CustomerFromID string     `json:"customerFromId" validate:"required"`
	CustomerToID   string     `json:"customerToId" validate:"required"`
	CreationTime   time.Time  `json:"creationTime" validate:"required"`
	DueDateTime    time.Time  `json:"dueDateTime" validate:"required"`
	Status         string     `json:"status" validate:"required,invoicestatus"`
	Details        []rowInput `json:"details" validate:"min=1,dive"`
}

type rowInput struct {
	Title      string          `json:"title" validate:"required"`
	CategoryID string          `json:"categoryId" validate:"required"`
	Quantity   decimal.Decimal `json:"quantity" validate:"gte=1"`
	Price      decimal.Decimal `json:"price" validate:"gt=0"`
}

// Schema holds the draft validation rules.
type Schema struct {
	validate *validator.Validate
}

// NewSchema builds the rule set.
func NewSchema() *Schema {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	_ = v.RegisterValidation("invoiceno", func(fl validator.FieldLevel) bool {
		return invoiceNoPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("invoicestatus", func(fl validator.FieldLevel) bool {
		return invoicing.StatusCode(fl.Field().String()).Valid()
	})
	return &Schema{validate: v}
}

// Validate checks a whole draft. Keys are dotted paths such as "details.0.title".
func (s *Schema) Validate(d Draft) map[string]string {
	input := draftInput{
		No:             strings.TrimSpace(d.No),
		CustomerFromID: d.CustomerFromID,
		CustomerToID:   d.CustomerToID,
		CreationTime:   d.CreationTime,
		DueDateTime:    d.DueDateTime,
		Status:         string(d.Status),
		Details:        make([]rowInput, 0, len(d.LineItems)),
	}
	for _, item := range d.LineItems {
		input.Details = append(input.Details, toRowInput(item))
	}
	return s.collect(input)
}

// ValidateRow checks one line item. Keys are bare field names.
func (s *Schema) ValidateRow(item lineitems.LineItem) lineitems.RowErrors {
	errs := s.collect(toRowInput(item))
	if len(errs) == 0 {
		return nil
	}
	return lineitems.RowErrors(errs)
}

func (s *Schema) collect(input any) map[string]string {
	err := s.validate.Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return map[string]string{"general": err.Error()}
	}
	out := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		key := fieldPath(fe.Namespace())
		if _, seen := out[key]; seen {
			continue
		}
		out[key] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	if msg, ok := messages[messageKey{field: fe.Field(), tag: fe.Tag()}]; ok {
		return msg
	}
	return fe.Error()
}

// fieldPath turns "draftInput.details[0].title" into "details.0.title".
func fieldPath(namespace string) string {
	_, rest, found := strings.Cut(namespace, ".")
	if !found {
		rest = namespace
	}
	rest = strings.ReplaceAll(rest, "[", ".")
	return strings.ReplaceAll(rest, "]", "")
}

func toRowInput(item lineitems.LineItem) rowInput {
	return rowInput{
		Title:      item.Title,
		CategoryID: item.CategoryID,
		Quantity:   item.Quantity,
		Price:      item.UnitPrice,
	}
}
