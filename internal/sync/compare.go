package sync

import "github.com/BrandonGoding/squaresync/internal/catalog"

// objectChanged reports whether the desired request graph differs from the
// fetched remote object in any field we own. Versions and ids are ignored:
// the desired graph carries temporary ids for new variations and no versions
// at all. A remote object missing the payload for its type always counts as
// changed so the upsert can repair it.
func objectChanged(desired, remote *catalog.Object) bool {
	if remote == nil || desired.Type != remote.Type {
		return true
	}
	switch desired.Type {
	case catalog.TypeCategory:
		return categoryChanged(desired.CategoryData, remote.CategoryData)
	case catalog.TypeTax:
		return taxChanged(desired.TaxData, remote.TaxData)
	case catalog.TypeItem:
		return itemChanged(desired, remote)
	case catalog.TypeItemVariation:
		return variationChanged(desired.ItemVariationData, remote.ItemVariationData)
	}
	return true
}

func categoryChanged(d, r *catalog.CategoryData) bool {
	if d == nil || r == nil {
		return true
	}
	return d.Name != r.Name || d.Description != r.Description
}

func taxChanged(d, r *catalog.TaxData) bool {
	if d == nil || r == nil {
		return true
	}
	return d.Name != r.Name ||
		d.Percentage != r.Percentage ||
		d.InclusionType != r.InclusionType ||
		d.Enabled != r.Enabled
}

func itemChanged(desired, remote *catalog.Object) bool {
	d, r := desired.ItemData, remote.ItemData
	if d == nil || r == nil {
		return true
	}
	if d.Name != r.Name || d.Description != r.Description || d.IsTaxable != r.IsTaxable {
		return true
	}
	if !sameStringSet(d.TaxIDs, r.TaxIDs) || !sameCategorySet(d.Categories, r.Categories) {
		return true
	}
	if len(d.Variations) != len(r.Variations) {
		return true
	}
	for _, dv := range d.Variations {
		rv := remote.FindVariation(dv.ID)
		if rv == nil && dv.ItemVariationData != nil {
			rv = remote.FindVariationByName(dv.ItemVariationData.Name)
		}
		if rv == nil || variationChanged(dv.ItemVariationData, rv.ItemVariationData) {
			return true
		}
	}
	return false
}

func variationChanged(d, r *catalog.ItemVariationData) bool {
	if d == nil || r == nil {
		return true
	}
	if d.Name != r.Name {
		return true
	}
	switch {
	case d.PriceMoney == nil && r.PriceMoney == nil:
		return false
	case d.PriceMoney == nil || r.PriceMoney == nil:
		return true
	}
	return d.PriceMoney.Amount != r.PriceMoney.Amount || d.PriceMoney.Currency != r.PriceMoney.Currency
}

func sameStringSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]bool, len(a))
	for _, s := range a {
		seen[s] = true
	}
	for _, s := range b {
		if !seen[s] {
			return false
		}
	}
	return true
}

func sameCategorySet(a, b []catalog.ItemCategory) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]bool, len(a))
	for _, c := range a {
		seen[c.ID] = true
	}
	for _, c := range b {
		if !seen[c.ID] {
			return false
		}
	}
	return true
}
