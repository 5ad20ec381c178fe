// Package suppliers lists the Slovenian electricity suppliers an operator
// can store prices for.
package suppliers

import (
	"encoding/json"
	"os"

	"github.com/bher20/slotariff/internal/storage"
)

type Descriptor struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Env replaces the built-in list with a JSON array of descriptors.
const Env = "SLOTARIFF_SUPPLIERS_JSON"

// Other is the catch-all key for suppliers not in the list.
const Other = "other"

func defaultSuppliers() []Descriptor {
	return []Descriptor{
		{Key: "gen_i", Name: "GEN-I"},
		{Key: "petrol", Name: "Petrol"},
		{Key: "elektro_energija", Name: "Elektro energija"},
		{Key: "eco_energy", Name: "ECO energy"},
		{Key: "elektro_ljubljana", Name: "Elektro Ljubljana (osnovni dobavitelj)"},
		{Key: "elektro_maribor", Name: "Elektro Maribor (osnovni dobavitelj)"},
		{Key: "elektro_celje", Name: "Elektro Celje (osnovni dobavitelj)"},
		{Key: "elektro_gorenjska", Name: "Elektro Gorenjska (osnovni dobavitelj)"},
		{Key: "elektro_primorska", Name: "Elektro Primorska (osnovni dobavitelj)"},
		{Key: Other, Name: "Drug dobavitelj"},
	}
}

// List returns the supplier list, honouring the environment override. A
// malformed or empty override is ignored.
func List() []Descriptor {
	raw := os.Getenv(Env)
	if raw == "" {
		return defaultSuppliers()
	}
	var out []Descriptor
	if err := json.Unmarshal([]byte(raw), &out); err != nil || len(out) == 0 {
		return defaultSuppliers()
	}
	return out
}

func Get(key string) (Descriptor, bool) {
	for _, d := range List() {
		if d.Key == key {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Records converts the list for seeding storage.
func Records() []storage.Supplier {
	list := List()
	out := make([]storage.Supplier, 0, len(list))
	for _, d := range list {
		out = append(out, storage.Supplier{Key: d.Key, Name: d.Name})
	}
	return out
}
