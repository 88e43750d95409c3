package main

import (
	"bytes"
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/printer"
	"go/token"
	"os"

	"github.com/BurntSushi/toml"
)

// Placement decides where instances of a table live.
const (
	PlacementStatic = "static" // one package variable, plus Place
	PlacementArena  = "arena"  // only Place; instances live in raw memory
)

// Def is a table definition file.
type Def struct {
	Package   string    `toml:"package"`
	Table     string    `toml:"table"`
	Doc       string    `toml:"doc"`
	Placement string    `toml:"placement"`
	Slots     []SlotDef `toml:"slot"`
}

// SlotDef is one entry. Exactly one of Func and Vector is set: Func slots
// hold function vectors of that signature, Vector slots hold a plain
// address-shaped type.
type SlotDef struct {
	Name    string `toml:"name"`
	Label   string `toml:"label"`
	Func    string `toml:"func"`
	Vector  string `toml:"vector"`
	Default string `toml:"default"`
	Doc     string `toml:"doc"`

	sig *signature
}

type param struct {
	name, typ string
}

type signature struct {
	params []param
	result string // empty when the function returns nothing
}

// LoadDef reads and validates a definition file.
func LoadDef(path string) (*Def, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseDef(data)
}

// ParseDef decodes and validates a definition.
func ParseDef(data []byte) (*Def, error) {
	var def Def
	md, err := toml.Decode(string(data), &def)
	if err != nil {
		return nil, fmt.Errorf("parse definition: %w", err)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return nil, fmt.Errorf("unknown keys in definition: %v", undec)
	}
	if def.Placement == "" {
		def.Placement = PlacementStatic
	}
	if err := def.validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

func (d *Def) validate() error {
	if !token.IsIdentifier(d.Package) {
		return fmt.Errorf("package %q is not an identifier", d.Package)
	}
	if !token.IsIdentifier(d.Table) || !token.IsExported(d.Table) {
		return fmt.Errorf("table %q must be an exported identifier", d.Table)
	}
	if d.Placement != PlacementStatic && d.Placement != PlacementArena {
		return fmt.Errorf("table %s: placement %q is neither %q nor %q", d.Table, d.Placement, PlacementStatic, PlacementArena)
	}
	if len(d.Slots) == 0 {
		return fmt.Errorf("table %s has no slots", d.Table)
	}
	if len(d.Slots) > 256 {
		return fmt.Errorf("table %s has %d slots, at most 256 fit a SlotID", d.Table, len(d.Slots))
	}

	seen := make(map[string]bool)
	for i := range d.Slots {
		s := &d.Slots[i]
		if !token.IsIdentifier(s.Name) || !token.IsExported(s.Name) {
			return fmt.Errorf("slot %d: name %q must be an exported identifier", i, s.Name)
		}
		if seen[s.Name] {
			return fmt.Errorf("slot %s defined twice", s.Name)
		}
		seen[s.Name] = true
		if s.Label == "" {
			s.Label = s.Name
		}

		switch {
		case s.Func != "" && s.Vector != "":
			return fmt.Errorf("slot %s: func and vector are exclusive", s.Name)
		case s.Func != "":
			sig, err := parseSignature(s.Func)
			if err != nil {
				return fmt.Errorf("slot %s: %w", s.Name, err)
			}
			s.sig = sig
			if s.Default == "" {
				return fmt.Errorf("slot %s: function slots need a default", s.Name)
			}
		case s.Vector != "":
			if s.Default == "" {
				s.Default = "0"
			}
		default:
			return fmt.Errorf("slot %s: one of func or vector is required", s.Name)
		}
	}
	return nil
}

var errSignature = errors.New("unsupported signature")

// parseSignature reads a func type literal such as
// "func(port uint16) uint8".
func parseSignature(src string) (*signature, error) {
	expr, err := parser.ParseExpr(src)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", src, err)
	}
	ft, ok := expr.(*ast.FuncType)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a func type", errSignature, src)
	}

	sig := &signature{}
	if ft.Params != nil {
		for _, field := range ft.Params.List {
			if _, ok := field.Type.(*ast.Ellipsis); ok {
				return nil, fmt.Errorf("%w: variadic %q", errSignature, src)
			}
			typ := exprString(field.Type)
			if len(field.Names) == 0 {
				sig.params = append(sig.params, param{name: fmt.Sprintf("p%d", len(sig.params)), typ: typ})
				continue
			}
			for _, n := range field.Names {
				sig.params = append(sig.params, param{name: n.Name, typ: typ})
			}
		}
	}
	if ft.Results != nil {
		n := 0
		for _, field := range ft.Results.List {
			n += max(len(field.Names), 1)
		}
		if n > 1 {
			return nil, fmt.Errorf("%w: %q returns %d values", errSignature, src, n)
		}
		if n == 1 {
			sig.result = exprString(ft.Results.List[0].Type)
		}
	}
	return sig, nil
}

func exprString(e ast.Expr) string {
	var buf bytes.Buffer
	printer.Fprint(&buf, token.NewFileSet(), e)
	return buf.String()
}
