package catalog

import (
	"encoding/json"
	"os"

	"goDB/internal/dberr"
)

// jsonColumnType mirrors ColumnType for JSON (its Kind needs a string tag
// rather than a bare int so meta.json stays human-readable).
type jsonColumnType struct {
	Kind  string `json:"kind"`
	Width int    `json:"width,omitempty"`
}

type jsonValue struct {
	Kind string  `json:"kind"`
	I32  int32   `json:"i32,omitempty"`
	F64  float64 `json:"f64,omitempty"`
	Str  string  `json:"str,omitempty"`
}

type jsonColumn struct {
	Name     string          `json:"name"`
	Type     jsonColumnType  `json:"type"`
	Nullable bool            `json:"nullable"`
	Default  *jsonValue      `json:"default,omitempty"`
}

type jsonConstraint struct {
	Kind       string   `json:"kind"`
	Name       string   `json:"name,omitempty"`
	Columns    []string `json:"columns"`
	RefTable   string   `json:"ref_table,omitempty"`
	RefColumns []string `json:"ref_columns,omitempty"`
}

type jsonReferredConstraint struct {
	ReferringTable string         `json:"referring_table"`
	Constraint     jsonConstraint `json:"constraint"`
}

type jsonIndexSchema struct {
	Explicit bool     `json:"explicit"`
	Name     string   `json:"name"`
	Columns  []string `json:"columns"`
	Pages    uint32   `json:"pages"`
	FreeHead uint32   `json:"free"`
	Root     uint32   `json:"root"`
}

// jsonTableSchema is the exact shape of meta.json from spec.md §6:
// {pages, free, full, columns[], constraints[], referred_constraints[], indexes[]}.
type jsonTableSchema struct {
	Pages               uint32                   `json:"pages"`
	Free                uint32                   `json:"free"`
	Full                uint32                   `json:"full"`
	Columns             []jsonColumn             `json:"columns"`
	Constraints         []jsonConstraint         `json:"constraints"`
	ReferredConstraints []jsonReferredConstraint `json:"referred_constraints"`
	Indexes             []jsonIndexSchema        `json:"indexes"`
}

func kindToString(k Kind) string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindText:
		return "text"
	case KindDate:
		return "date"
	default:
		return "null"
	}
}

func kindFromString(s string) Kind {
	switch s {
	case "int":
		return KindInt
	case "float":
		return KindFloat
	case "text":
		return KindText
	case "date":
		return KindDate
	default:
		return KindNull
	}
}

func toJSONValue(v Value) jsonValue {
	return jsonValue{Kind: kindToString(v.Kind), I32: v.I32, F64: v.F64, Str: v.Str}
}

func fromJSONValue(v jsonValue) Value {
	return Value{Kind: kindFromString(v.Kind), I32: v.I32, F64: v.F64, Str: v.Str}
}

func toJSONSchema(s *TableSchema) jsonTableSchema {
	out := jsonTableSchema{Pages: s.Pages, Free: s.FreeHead, Full: s.FullHead}

	for _, c := range s.Columns {
		jc := jsonColumn{
			Name:     c.Name,
			Type:     jsonColumnType{Kind: kindToString(c.Type.Kind), Width: c.Type.Width},
			Nullable: c.Nullable,
		}
		if c.Default != nil {
			d := toJSONValue(*c.Default)
			jc.Default = &d
		}
		out.Columns = append(out.Columns, jc)
	}

	for _, c := range s.Constraints {
		out.Constraints = append(out.Constraints, toJSONConstraint(c))
	}
	for _, rc := range s.ReferredConstraints {
		out.ReferredConstraints = append(out.ReferredConstraints, jsonReferredConstraint{
			ReferringTable: rc.ReferringTable,
			Constraint:     toJSONConstraint(rc.Constraint),
		})
	}
	for _, idx := range s.Indexes {
		out.Indexes = append(out.Indexes, jsonIndexSchema{
			Explicit: idx.Explicit,
			Name:     idx.Name,
			Columns:  idx.Columns,
			Pages:    idx.Pages,
			FreeHead: idx.FreeHead,
			Root:     idx.Root,
		})
	}
	return out
}

func toJSONConstraint(c Constraint) jsonConstraint {
	return jsonConstraint{
		Kind:       string(c.Kind),
		Name:       c.Name,
		Columns:    c.Columns,
		RefTable:   c.RefTable,
		RefColumns: c.RefColumns,
	}
}

func fromJSONConstraint(jc jsonConstraint) Constraint {
	return Constraint{
		Kind:       ConstraintKind(jc.Kind),
		Name:       jc.Name,
		Columns:    jc.Columns,
		RefTable:   jc.RefTable,
		RefColumns: jc.RefColumns,
	}
}

func fromJSONSchema(j jsonTableSchema) *TableSchema {
	s := &TableSchema{Pages: j.Pages, FreeHead: j.Free, FullHead: j.Full}

	for _, jc := range j.Columns {
		c := Column{
			Name:     jc.Name,
			Type:     ColumnType{Kind: kindFromString(jc.Type.Kind), Width: jc.Type.Width},
			Nullable: jc.Nullable,
		}
		if jc.Default != nil {
			v := fromJSONValue(*jc.Default)
			c.Default = &v
		}
		s.Columns = append(s.Columns, c)
	}

	for _, jc := range j.Constraints {
		s.Constraints = append(s.Constraints, fromJSONConstraint(jc))
	}
	for _, jrc := range j.ReferredConstraints {
		s.ReferredConstraints = append(s.ReferredConstraints, ReferredConstraint{
			ReferringTable: jrc.ReferringTable,
			Constraint:     fromJSONConstraint(jrc.Constraint),
		})
	}
	for _, ji := range j.Indexes {
		s.Indexes = append(s.Indexes, IndexSchema{
			Explicit: ji.Explicit,
			Name:     ji.Name,
			Columns:  ji.Columns,
			Pages:    ji.Pages,
			FreeHead: ji.FreeHead,
			Root:     ji.Root,
		})
	}
	return s
}

// SaveIndexSchema writes the <name>.index.json sidecar for one index. The
// same data also rides along inside the table's meta.json indexes[] array;
// this sidecar is spec.md §6's "<idx>.index.json per index" file, kept
// for tooling that wants to inspect one index without the whole table.
func SaveIndexSchema(path string, idx *IndexSchema) error {
	j := jsonIndexSchema{
		Explicit: idx.Explicit,
		Name:     idx.Name,
		Columns:  idx.Columns,
		Pages:    idx.Pages,
		FreeHead: idx.FreeHead,
		Root:     idx.Root,
	}
	data, err := json.MarshalIndent(j, "", "  ")
	if err != nil {
		return dberr.Wrap(dberr.KindIO, err, "marshal index schema")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return dberr.Wrap(dberr.KindIO, err, "write %s", path)
	}
	return nil
}

// LoadIndexSchema reads the <name>.index.json sidecar for one index.
func LoadIndexSchema(path string) (*IndexSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, dberr.Wrap(dberr.KindIO, err, "read %s", path)
	}
	var j jsonIndexSchema
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, dberr.Wrap(dberr.KindIO, err, "parse %s", path)
	}
	return &IndexSchema{
		Explicit: j.Explicit, Name: j.Name, Columns: j.Columns,
		Pages: j.Pages, FreeHead: j.FreeHead, Root: j.Root,
	}, nil
}

// SaveTableSchema writes the meta.json sidecar for a table.
func SaveTableSchema(path string, s *TableSchema) error {
	data, err := json.MarshalIndent(toJSONSchema(s), "", "  ")
	if err != nil {
		return dberr.Wrap(dberr.KindIO, err, "marshal table schema")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return dberr.Wrap(dberr.KindIO, err, "write %s", path)
	}
	return nil
}

// LoadTableSchema reads and validates the meta.json sidecar for a table,
// then computes its derived layout quantities.
func LoadTableSchema(path string) (*TableSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, dberr.Wrap(dberr.KindIO, err, "read %s", path)
	}
	var j jsonTableSchema
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, dberr.Wrap(dberr.KindIO, err, "parse %s", path)
	}
	s := fromJSONSchema(j)
	if err := validateSchemaReferences(s); err != nil {
		return nil, err
	}
	if err := s.Prepare(); err != nil {
		return nil, err
	}
	return s, nil
}

// validateSchemaReferences checks that every constraint/index column
// reference in the loaded schema still names a current column.
func validateSchemaReferences(s *TableSchema) error {
	names := make(map[string]bool, len(s.Columns))
	for _, c := range s.Columns {
		names[c.Name] = true
	}
	checkCols := func(cols []string) error {
		for _, c := range cols {
			if !names[c] {
				return dberr.New(dberr.KindColumnNotFound, "schema references unknown column %q", c)
			}
		}
		return nil
	}
	for _, c := range s.Constraints {
		if err := checkCols(c.Columns); err != nil {
			return err
		}
	}
	for _, idx := range s.Indexes {
		if err := checkCols(idx.Columns); err != nil {
			return err
		}
	}
	return nil
}
