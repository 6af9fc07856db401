// Package catalog models remote catalog payloads: the tagged-union Object
// type, its per-type data records, money values, and client-temporary ids.
// It is transport-independent — the square package handles the wire.
package catalog

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ObjectType discriminates the Object union. Exactly one data field matching
// the type may be set.
type ObjectType string

const (
	TypeItem          ObjectType = "ITEM"
	TypeItemVariation ObjectType = "ITEM_VARIATION"
	TypeCategory      ObjectType = "CATEGORY"
	TypeTax           ObjectType = "TAX"
)

// PricingFixed is the only pricing type this service produces.
const PricingFixed = "FIXED_PRICING"

// Object is a remote catalog object: an ITEM, ITEM_VARIATION, CATEGORY, or
// TAX, discriminated by Type. On create, ID carries a client-temporary id and
// Version is nil; on update, ID is the real remote id and Version must equal
// the last version fetched from the remote.
type Object struct {
	Type                  ObjectType `json:"type"`
	ID                    string     `json:"id"`
	Version               *int64     `json:"version,omitempty"`
	PresentAtAllLocations bool       `json:"present_at_all_locations,omitempty"`

	ItemData          *ItemData          `json:"item_data,omitempty"`
	ItemVariationData *ItemVariationData `json:"item_variation_data,omitempty"`
	CategoryData      *CategoryData      `json:"category_data,omitempty"`
	TaxData           *TaxData           `json:"tax_data,omitempty"`
}

// ItemData is the payload of an ITEM object. Variations nest as full Objects,
// each carrying its own temporary or resolved id.
type ItemData struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	IsTaxable   bool           `json:"is_taxable,omitempty"`
	TaxIDs      []string       `json:"tax_ids,omitempty"`
	Categories  []ItemCategory `json:"categories,omitempty"`
	Variations  []*Object      `json:"variations,omitempty"`
}

// ItemCategory references a remote CATEGORY from an item.
type ItemCategory struct {
	ID string `json:"id"`
}

// ItemVariationData is the payload of an ITEM_VARIATION object. ItemID is the
// parent item's id — the temporary id of the parent when both are created in
// one request.
type ItemVariationData struct {
	Name        string `json:"name"`
	ItemID      string `json:"item_id,omitempty"`
	PricingType string `json:"pricing_type,omitempty"`
	PriceMoney  *Money `json:"price_money,omitempty"`
	IsTaxable   bool   `json:"is_taxable,omitempty"`
}

// CategoryData is the payload of a CATEGORY object.
type CategoryData struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsTopLevel  bool   `json:"is_top_level,omitempty"`
}

// TaxData is the payload of a TAX object. Percentage is a decimal string as
// required by the remote API, e.g. "5.5".
type TaxData struct {
	Name             string `json:"name"`
	Percentage       string `json:"percentage"`
	InclusionType    string `json:"inclusion_type,omitempty"`
	CalculationPhase string `json:"calculation_phase,omitempty"`
	Enabled          bool   `json:"enabled"`
}

// Tax inclusion types accepted by the remote.
const (
	TaxAdditive  = "ADDITIVE"
	TaxInclusive = "INCLUSIVE"
)

// NewTempID returns a fresh client-temporary id for the given kind, e.g.
// "#item_3f1c...". Every id is unique, so distinct objects in one request
// graph can never collide — the remote merges objects that share an id.
func NewTempID(kind string) string {
	return "#" + kind + "_" + uuid.NewString()
}

// IsTempID reports whether id is a client-temporary id rather than a real
// remote id.
func IsTempID(id string) bool { return strings.HasPrefix(id, "#") }

// Validate checks the union invariants: non-empty id and exactly the data
// field matching Type populated.
func (o *Object) Validate() error {
	if o.ID == "" {
		return fmt.Errorf("catalog object of type %s has an empty id", o.Type)
	}

	var want, got int
	check := func(match bool, set bool) {
		if match {
			want++
			if set {
				got++
			}
		} else if set {
			got = -100 // wrong payload for the type
		}
	}
	check(o.Type == TypeItem, o.ItemData != nil)
	check(o.Type == TypeItemVariation, o.ItemVariationData != nil)
	check(o.Type == TypeCategory, o.CategoryData != nil)
	check(o.Type == TypeTax, o.TaxData != nil)

	if want != 1 {
		return fmt.Errorf("unknown catalog object type %q", o.Type)
	}
	if got != 1 {
		return fmt.Errorf("catalog object %s has data not matching type %s", o.ID, o.Type)
	}

	for _, v := range o.variations() {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// variations returns the nested variation objects, or nil for non-items.
func (o *Object) variations() []*Object {
	if o.ItemData == nil {
		return nil
	}
	return o.ItemData.Variations
}

// FindVariation returns the nested variation with the given id, or nil.
func (o *Object) FindVariation(id string) *Object {
	for _, v := range o.variations() {
		if v.ID == id {
			return v
		}
	}
	return nil
}

// FindVariationByName returns the nested variation whose data name matches,
// or nil. Used to resolve returned variation ids when the response carries no
// id mappings.
func (o *Object) FindVariationByName(name string) *Object {
	for _, v := range o.variations() {
		if v.ItemVariationData != nil && v.ItemVariationData.Name == name {
			return v
		}
	}
	return nil
}
