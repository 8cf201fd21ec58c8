// Package category provides derivation helpers over the flat category list
// served by the catalog. Categories form a two-level tree: main categories
// (no parent) and their subcategories. The parent field is polymorphic on
// the wire (absent, bare id string, or embedded object); every comparison
// goes through ParentID so the normalization lives in one place.
package category

import (
	"encoding/json"
	"errors"
)

var (
	ErrHasSubcategories = errors.New("category has subcategories")
	ErrHasProducts      = errors.New("category has associated products")
)

// ParentRef identifies a category's parent. It decodes from either a bare
// id string or an embedded category object carrying an _id field.
type ParentRef struct {
	ID   string `json:"_id"`
	Name string `json:"name,omitempty"`
}

func (p *ParentRef) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = ParentRef{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*p = ParentRef{ID: id}
		return nil
	}
	type plain ParentRef
	var ref plain
	if err := json.Unmarshal(data, &ref); err != nil {
		return err
	}
	*p = ParentRef(ref)
	return nil
}

// Category is one node of the two-level catalog tree.
type Category struct {
	ID          string     `json:"_id"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug,omitempty"`
	Description string     `json:"description,omitempty"`
	Parent      *ParentRef `json:"parent,omitempty"`
	SortOrder   int        `json:"sort_order,omitempty"`
	IsActive    bool       `json:"is_active,omitempty"`
}

// ParentID returns the normalized parent id, or "" for a main category.
func (c Category) ParentID() string {
	if c.Parent == nil {
		return ""
	}
	return c.Parent.ID
}

// MainCategories returns the categories with no parent.
func MainCategories(categories []Category) []Category {
	out := make([]Category, 0, len(categories))
	for _, c := range categories {
		if c.ParentID() == "" {
			out = append(out, c)
		}
	}
	return out
}

// Subcategories returns the categories whose parent is parentID, regardless
// of whether the parent arrived as a string or an embedded object.
func Subcategories(categories []Category, parentID string) []Category {
	if parentID == "" {
		return nil
	}
	out := make([]Category, 0, len(categories))
	for _, c := range categories {
		if c.ParentID() == parentID {
			out = append(out, c)
		}
	}
	return out
}

// CheckDelete is the client-side deletion guard: a category with
// subcategories can not be deleted. The server remains the final authority
// and may still reject for other reasons.
func CheckDelete(categories []Category, id string) error {
	if len(Subcategories(categories, id)) > 0 {
		return ErrHasSubcategories
	}
	return nil
}

// CheckDeleteWithProducts is the stricter guard used by the flat admin
// listing, which additionally requires the category to have no products.
func CheckDeleteWithProducts(categories []Category, id string, productCount int) error {
	if err := CheckDelete(categories, id); err != nil {
		return err
	}
	if productCount > 0 {
		return ErrHasProducts
	}
	return nil
}
