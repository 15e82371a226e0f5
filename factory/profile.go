/*
Package factory converts incoming JSON payloads into validated engine inputs.

PURPOSE:
  The HTTP layer hands raw request structs to this package; the factory
  validates field formats (names, enum values, money strings, uuids) and
  produces the typed specs the pricing engine and catalog stores consume.
  Validation failures come back as a field -> messages map so the UI can
  highlight individual inputs, mirroring the tagged-result contract
  {ok:false, message, fieldErrors}.

VALIDATION:
  Uses validator/v10 struct tags plus a custom "money" tag enforcing the
  wire format ^\d+(\.\d{1,4})?$. Enum whitelists are oneof tags, so an
  unknown priceAdjustMode or incrementMode never reaches the engine.

USAGE:
  f := factory.NewProfileFactory()

  spec, fieldErrs := f.ParseProfile(payload)
  if fieldErrs != nil {
      // 422 with fieldErrors
  }
  profile, err := engine.CreateDraft(ctx, userID, spec)

SEE ALSO:
  - pricing/engine.go: DraftSpec / PreviewInput consumers
  - api/handlers.go: Callers
*/
package factory

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/foboh/pricing-engine/pricing"
)

// =============================================================================
// PAYLOAD TYPES
// =============================================================================

// ProfilePayload is the JSON body for creating a draft profile.
type ProfilePayload struct {
	Name            string        `json:"name" validate:"required,min=2"`
	Description     string        `json:"description" validate:"required"`
	BasedOn         string        `json:"basedOn" validate:"required"`
	PriceAdjustMode string        `json:"priceAdjustMode" validate:"required,oneof=FIXED DYNAMIC"`
	IncrementMode   string        `json:"incrementMode" validate:"required,oneof=INCREASE DECREASE"`
	Items           []ItemPayload `json:"items" validate:"dive"`
}

// ItemPayload is one initial selection in a profile payload.
type ItemPayload struct {
	ProductID  string `json:"productId" validate:"required,uuid4"`
	Adjustment string `json:"adjustment" validate:"required,money"`
}

// ProductPayload is the JSON body for creating or updating a product.
type ProductPayload struct {
	Title                string `json:"title" validate:"required"`
	SKU                  string `json:"sku" validate:"required"`
	Brand                string `json:"brand" validate:"required"`
	CategoryID           string `json:"categoryId" validate:"required,uuid4"`
	SubcategoryID        string `json:"subcategoryId" validate:"required,uuid4"`
	SegmentID            string `json:"segmentId" validate:"required,uuid4"`
	GlobalWholesalePrice string `json:"globalWholesalePrice" validate:"required,money"`
}

// PreviewPayload is the JSON body for an ad-hoc preview.
type PreviewPayload struct {
	BasedOn         string            `json:"basedOn" validate:"required"`
	PriceAdjustMode string            `json:"priceAdjustMode" validate:"required,oneof=FIXED DYNAMIC"`
	IncrementMode   string            `json:"incrementMode" validate:"required,oneof=INCREASE DECREASE"`
	ProductIDs      []string          `json:"productIds" validate:"required,min=1,dive,uuid4"`
	Adjustments     map[string]string `json:"adjustments" validate:"dive,money"`
}

// =============================================================================
// FACTORY
// =============================================================================

// ProfileFactory validates payloads and builds engine inputs.
type ProfileFactory struct {
	validate *validator.Validate
}

// NewProfileFactory creates a factory with the money tag registered.
func NewProfileFactory() *ProfileFactory {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Non-negative numeric string, up to 4 decimal places.
	v.RegisterValidation("money", func(fl validator.FieldLevel) bool {
		return pricing.ValidMoneyString(fl.Field().String())
	})
	// Report errors under the JSON field names the client sent.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &ProfileFactory{validate: v}
}

// FieldErrors maps JSON field paths to human-readable messages.
type FieldErrors map[string][]string

// ParseProfile validates a profile payload and builds a DraftSpec.
// The second return is nil on success.
func (f *ProfileFactory) ParseProfile(p ProfilePayload) (pricing.DraftSpec, FieldErrors) {
	if errs := f.check(p); errs != nil {
		return pricing.DraftSpec{}, errs
	}

	spec := pricing.DraftSpec{
		Name:            p.Name,
		Description:     p.Description,
		BasedOn:         p.BasedOn,
		PriceAdjustMode: pricing.PriceAdjustMode(p.PriceAdjustMode),
		IncrementMode:   pricing.IncrementMode(p.IncrementMode),
		Adjustments:     make(map[pricing.ProductID]string, len(p.Items)),
	}
	for _, item := range p.Items {
		spec.Adjustments[pricing.ProductID(item.ProductID)] = item.Adjustment
	}
	return spec, nil
}

// ParsePreview validates a preview payload and builds a PreviewInput.
func (f *ProfileFactory) ParsePreview(p PreviewPayload) (pricing.PreviewInput, FieldErrors) {
	if errs := f.check(p); errs != nil {
		return pricing.PreviewInput{}, errs
	}

	in := pricing.PreviewInput{
		BasedOn:         p.BasedOn,
		PriceAdjustMode: pricing.PriceAdjustMode(p.PriceAdjustMode),
		IncrementMode:   pricing.IncrementMode(p.IncrementMode),
		ProductIDs:      make([]pricing.ProductID, 0, len(p.ProductIDs)),
		Adjustments:     make(map[pricing.ProductID]string, len(p.Adjustments)),
	}
	for _, id := range p.ProductIDs {
		in.ProductIDs = append(in.ProductIDs, pricing.ProductID(id))
	}
	for id, adj := range p.Adjustments {
		in.Adjustments[pricing.ProductID(id)] = adj
	}
	return in, nil
}

// CheckProduct validates a product payload. Returns nil when valid.
func (f *ProfileFactory) CheckProduct(p ProductPayload) FieldErrors {
	return f.check(p)
}

// CheckAdjustment validates a lone adjustment string (item upsert).
func (f *ProfileFactory) CheckAdjustment(adjustment string) FieldErrors {
	if pricing.ValidMoneyString(adjustment) {
		return nil
	}
	return FieldErrors{"adjustment": {messageFor("money")}}
}

func (f *ProfileFactory) check(payload any) FieldErrors {
	err := f.validate.Struct(payload)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return FieldErrors{"_": {err.Error()}}
	}

	fieldErrs := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		field := jsonPath(fe.Namespace())
		fieldErrs[field] = append(fieldErrs[field], messageFor(fe.Tag()))
	}
	return fieldErrs
}

// jsonPath strips the payload type prefix from a validator namespace,
// e.g. "ProfilePayload.items[0].adjustment" -> "items[0].adjustment".
func jsonPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func messageFor(tag string) string {
	switch tag {
	case "required":
		return "This field is required"
	case "min":
		return "Too short"
	case "uuid4":
		return "Must be a valid id"
	case "oneof":
		return "Unknown value"
	case "money":
		return "Enter a valid number (up to 4 decimals)"
	default:
		return "Invalid value"
	}
}
