// Package schema loads model and relation declarations from HCL files.
//
//	model "users" {}
//	model "profiles" {}
//
//	has_one "users" {
//	  model       = "profiles"
//	  as          = "profile"
//	  foreign_key = "user_id"
//	}
//
//	record "users" {
//	  values = { name = "alice" }
//	}
package schema

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/mickamy/hasone/hasone"
	"github.com/mickamy/hasone/orm"
)

// File is a decoded schema file.
type File struct {
	Models  []*Model  `hcl:"model,block"`
	HasOnes []*HasOne `hcl:"has_one,block"`
	Records []*Record `hcl:"record,block"`
}

// Model declares a table.
type Model struct {
	Table string `hcl:"table,label"`
}

// HasOne declares a has-one relation from the owner table to Model.
type HasOne struct {
	Owner      string `hcl:"owner,label"`
	Model      string `hcl:"model"`
	As         string `hcl:"as,optional"`
	ForeignKey string `hcl:"foreign_key,optional"`
	Immutable  bool   `hcl:"immutable,optional"`
}

// Record is a row created when the schema is applied.
type Record struct {
	Table  string    `hcl:"table,label"`
	Values cty.Value `hcl:"values"`
}

// Load parses and decodes the schema file at path.
func Load(path string) (*File, error) {
	parser := hclparse.NewParser()
	f, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("schema: parse %s: %w", path, diags)
	}
	return decode(f, path)
}

// Parse decodes a schema from src. filename is used in diagnostics.
func Parse(src []byte, filename string) (*File, error) {
	parser := hclparse.NewParser()
	f, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("schema: parse %s: %w", filename, diags)
	}
	return decode(f, filename)
}

func decode(f *hcl.File, filename string) (*File, error) {
	var file File
	if diags := gohcl.DecodeBody(f.Body, nil, &file); diags.HasErrors() {
		return nil, fmt.Errorf("schema: decode %s: %w", filename, diags)
	}
	if err := file.validate(); err != nil {
		return nil, fmt.Errorf("schema: %s: %w", filename, err)
	}
	return &file, nil
}

func (f *File) validate() error {
	tables := make(map[string]bool, len(f.Models))
	for _, m := range f.Models {
		if m.Table == "" {
			return errors.New("model with empty table name")
		}
		if tables[m.Table] {
			return fmt.Errorf("model %q declared twice", m.Table)
		}
		tables[m.Table] = true
	}
	for _, h := range f.HasOnes {
		if !tables[h.Owner] {
			return fmt.Errorf("has_one %q: unknown owner model", h.Owner)
		}
		if !tables[h.Model] {
			return fmt.Errorf("has_one %q: unknown model %q", h.Owner, h.Model)
		}
	}
	for _, r := range f.Records {
		if !tables[r.Table] {
			return fmt.Errorf("record %q: unknown model", r.Table)
		}
		if r.Values.IsNull() || !(r.Values.Type().IsObjectType() || r.Values.Type().IsMapType()) {
			return fmt.Errorf("record %q: values must be an object", r.Table)
		}
	}
	return nil
}

// Apply creates the declared models on m, registers the relations and
// creates the records, returning them in file order. The has-one middleware
// is installed when m lacks it.
func (f *File) Apply(ctx context.Context, m *orm.Modeller) ([]*orm.Record, error) {
	if _, ok := m.Capability(hasone.Capability); !ok {
		m.Use(hasone.Middleware)
	}
	for _, mdl := range f.Models {
		m.CreateModel(mdl.Table)
	}
	for _, h := range f.HasOnes {
		owner, _ := m.Model(h.Owner)
		child, _ := m.Model(h.Model)
		err := hasone.Register(owner, hasone.Config{
			Model:      child,
			As:         h.As,
			ForeignKey: h.ForeignKey,
			Immutable:  h.Immutable,
		})
		if err != nil {
			return nil, fmt.Errorf("schema: has_one %q: %w", h.Owner, err)
		}
	}

	recs := make([]*orm.Record, 0, len(f.Records))
	for _, r := range f.Records {
		values, err := ctyToNative(r.Values)
		if err != nil {
			return nil, fmt.Errorf("schema: record %q: %w", r.Table, err)
		}
		mdl, _ := m.Model(r.Table)
		rec, err := mdl.Create(ctx, orm.Fields(values.(map[string]any)))
		if err != nil {
			return nil, fmt.Errorf("schema: record %q: %w", r.Table, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// ctyToNative converts v to plain Go values. Whole numbers become int64,
// other numbers float64.
func ctyToNative(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil

	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact {
				return i, nil
			}
		}
		f, _ := bf.Float64()
		return f, nil

	case ty == cty.Bool:
		return v.True(), nil

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		out := make([]any, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, e := it.Element()
			n, err := ctyToNative(e)
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		}
		return out, nil

	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any)
		for it := v.ElementIterator(); it.Next(); {
			k, e := it.Element()
			n, err := ctyToNative(e)
			if err != nil {
				return nil, fmt.Errorf("in attribute %q: %w", k.AsString(), err)
			}
			out[k.AsString()] = n
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unsupported type %s", ty.FriendlyName())
	}
}
