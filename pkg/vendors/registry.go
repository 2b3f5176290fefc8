// Package vendors knows which vendors clover accepts and where their raw data lives.
package vendors

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectolinq"

	"github.com/Ramsey-B/clover/pkg/database"
)

// Vendor binds a vendor to its raw table and its slice of the harmonised ledger.
type Vendor struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Table       string `json:"table"`
	ProductLine string `json:"product_line"`
	DataSource  string `json:"data_source"`
}

type Registry struct {
	vendors map[string]Vendor
}

// NewRegistry builds a registry. Table names are placed in SQL unbound, so
// anything that is not a plain identifier is rejected here.
func NewRegistry(vendors ...Vendor) (*Registry, error) {
	r := &Registry{vendors: make(map[string]Vendor, len(vendors))}
	for _, v := range vendors {
		key := normalizeName(v.Name)
		if key == "" {
			return nil, fmt.Errorf("vendor name is required")
		}
		if !database.ValidTableName(v.Table) {
			return nil, fmt.Errorf("vendor %s: invalid table name %q", v.Name, v.Table)
		}
		if v.ProductLine == "" {
			return nil, fmt.Errorf("vendor %s: product line is required", v.Name)
		}
		if v.DataSource == "" {
			v.DataSource = v.Table
		}
		if _, exists := r.vendors[key]; exists {
			return nil, fmt.Errorf("vendor %s registered twice", v.Name)
		}
		v.Name = key
		r.vendors[key] = v
	}
	return r, nil
}

// Bundled is the built-in vendor list.
func Bundled() []Vendor {
	return []Vendor{
		{Name: "ternio", DisplayName: "Ternio", Table: "master_ternio_sales", ProductLine: "Miscellaneous"},
		{Name: "chemence", DisplayName: "Chemence", Table: "master_chemence_sales", ProductLine: "Chemence"},
		{Name: "novo", DisplayName: "Novo", Table: "master_novo_sales", ProductLine: "Novo"},
		{Name: "sunoptic", DisplayName: "Sunoptic", Table: "master_sunoptic_sales", ProductLine: "Sunoptic"},
		{Name: "summit_medical", DisplayName: "Summit Medical", Table: "master_summit_medical_sales", ProductLine: "Summit Medical"},
	}
}

// Default returns a registry of the bundled vendors.
func Default() *Registry {
	r, err := NewRegistry(Bundled()...)
	if err != nil {
		panic(err)
	}
	return r
}

// Get looks a vendor up by name. "Summit Medical" and "summit_medical" are the same vendor.
func (r *Registry) Get(name string) (Vendor, error) {
	v, ok := r.vendors[normalizeName(name)]
	if !ok {
		return Vendor{}, httperror.NewHTTPErrorf(http.StatusNotFound, "unknown vendor %q", name)
	}
	return v, nil
}

// List returns every vendor sorted by name.
func (r *Registry) List() []Vendor {
	out := ectolinq.Values(r.vendors)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ByProductLine returns the vendors that feed productLine.
func (r *Registry) ByProductLine(productLine string) []Vendor {
	return ectolinq.Filter(r.List(), func(v Vendor) bool {
		return v.ProductLine == productLine
	})
}

// ProductLines returns the distinct product lines.
func (r *Registry) ProductLines() []string {
	out := ectolinq.Distinct(ectolinq.Map(r.List(), func(v Vendor) string {
		return v.ProductLine
	}))
	sort.Strings(out)
	return out
}

// Validate checks that table carries every column vendorName's raw table needs.
func (r *Registry) Validate(table Table, vendorName string) (bool, []string) {
	if _, err := r.Get(vendorName); err != nil {
		return false, nil
	}
	missing := table.MissingColumns(RequiredColumns)
	return len(missing) == 0, missing
}

func normalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Join(strings.FieldsFunc(name, func(r rune) bool { return r == ' ' || r == '-' || r == '_' }), "_")
}
