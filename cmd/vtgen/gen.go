package main

import (
	"bytes"
	"fmt"
	"go/format"
	"io"
	"strings"
)

// names the helpers use for their own locals
var reservedParams = map[string]bool{"t": true, "vec": true, "err": true}

// Generate renders def as a formatted Go source file. source is the
// definition's file name, quoted in the header.
func Generate(def *Def, source, vtablePath string) ([]byte, error) {
	for _, s := range def.Slots {
		if s.sig == nil {
			continue
		}
		for _, p := range s.sig.params {
			if reservedParams[p.name] {
				return nil, fmt.Errorf("slot %s: parameter name %q is reserved", s.Name, p.name)
			}
		}
	}

	var buf bytes.Buffer
	g := &gen{w: &buf, def: def}
	g.header(source, vtablePath)
	g.types()
	g.ids()
	g.selectors()
	g.layout()
	g.constructors()
	for _, s := range def.Slots {
		g.helpers(s)
	}

	out, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("format generated code for %s: %w\n%s", def.Table, err, buf.Bytes())
	}
	return out, nil
}

type gen struct {
	w   io.Writer
	def *Def
}

func (g *gen) p(format string, args ...any) {
	fmt.Fprintf(g.w, format, args...)
}

func (g *gen) slotsType() string { return g.def.Table + "Slots" }
func (g *gen) tableType() string { return g.def.Table + "Table" }

// vectorType is the V of a slot's Entry[V].
func vectorType(s SlotDef) string {
	if s.sig != nil {
		return "vtable.Fn[" + s.Name + "Fn]"
	}
	return s.Vector
}

func comment(w io.Writer, indent, text string) {
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		fmt.Fprintf(w, "%s// %s\n", indent, strings.TrimSpace(line))
	}
}

func (g *gen) header(source, vtablePath string) {
	g.p("// Code generated by vtgen from %s. DO NOT EDIT.\n\n", source)
	g.p("package %s\n\n", g.def.Package)
	g.p("import (\n\t\"unsafe\"\n\n\t%q\n)\n\n", vtablePath)
}

func (g *gen) types() {
	for _, s := range g.def.Slots {
		if s.sig != nil {
			g.p("// %sFn is the signature of the %s slot.\n", s.Name, s.Label)
			g.p("type %sFn = %s\n\n", s.Name, s.Func)
		}
	}

	g.p("// %s is the entry set of the %s table. Field order is the binary\n", g.slotsType(), g.def.Table)
	g.p("// layout shared by every unit that references the table.\n")
	if g.def.Doc != "" {
		g.p("//\n")
		comment(g.w, "", g.def.Doc)
	}
	g.p("type %s struct {\n", g.slotsType())
	for _, s := range g.def.Slots {
		if s.Doc != "" {
			comment(g.w, "\t", s.Doc)
		}
		g.p("\t%s vtable.Entry[%s]\n", s.Name, vectorType(s))
	}
	g.p("}\n\n")

	g.p("// %s is one instance of the %s table.\n", g.tableType(), g.def.Table)
	g.p("type %s = vtable.Table[%s]\n\n", g.tableType(), g.slotsType())
}

func (g *gen) ids() {
	g.p("const (\n")
	for i, s := range g.def.Slots {
		if i == 0 {
			g.p("\t%s%sID vtable.SlotID = iota\n", g.def.Table, s.Name)
			continue
		}
		g.p("\t%s%sID\n", g.def.Table, s.Name)
	}
	g.p(")\n\n")
}

func (g *gen) selectors() {
	g.p("// Slot selectors of the %s table.\n", g.def.Table)
	g.p("var (\n")
	for _, s := range g.def.Slots {
		v := vectorType(s)
		g.p("\t%s%s = vtable.DefineSlot(%s%sID, %q, func(s *%s) *vtable.Entry[%s] { return &s.%s })\n",
			g.def.Table, s.Name, g.def.Table, s.Name, s.Label, g.slotsType(), v, s.Name)
	}
	g.p(")\n\n")
}

func (g *gen) layout() {
	g.p("func init() {\n")
	g.p("\tvar s %s\n", g.slotsType())
	g.p("\tconst w = unsafe.Sizeof(uintptr(0))\n")
	g.p("\tif unsafe.Sizeof(s) != %d*w", len(g.def.Slots))
	for i, s := range g.def.Slots {
		g.p(" ||\n\t\tunsafe.Offsetof(s.%s) != %d*w", s.Name, i)
	}
	g.p(" {\n")
	g.p("\t\tpanic(%q)\n", g.def.Package+": "+g.slotsType()+" layout does not match its definition")
	g.p("\t}\n}\n\n")
}

func (g *gen) constructors() {
	g.p("// Default%s returns the entry set holding every slot's default.\n", g.slotsType())
	g.p("func Default%s() %s {\n", g.slotsType(), g.slotsType())
	g.p("\treturn %s{\n", g.slotsType())
	for _, s := range g.def.Slots {
		if s.sig != nil {
			g.p("\t\t%s: vtable.NewEntry(vtable.FnOf[%sFn](%s)),\n", s.Name, s.Name, s.Default)
			continue
		}
		g.p("\t\t%s: vtable.NewEntry[%s](%s),\n", s.Name, s.Vector, s.Default)
	}
	g.p("\t}\n}\n\n")

	g.p("// Place%s writes a fresh %s table holding the defaults at addr.\n", g.def.Table, g.def.Table)
	g.p("func Place%s(addr uintptr) (*%s, error) {\n", g.def.Table, g.tableType())
	g.p("\treturn vtable.Place(addr, Default%s())\n}\n\n", g.slotsType())

	if g.def.Placement == PlacementStatic {
		g.p("// %s is the static %s table instance.\n", g.def.Table, g.def.Table)
		g.p("var %s = vtable.New(Default%s())\n\n", g.def.Table, g.slotsType())
	}
}

func (g *gen) helpers(s SlotDef) {
	static := g.def.Placement == PlacementStatic
	sel := g.def.Table + s.Name
	v := vectorType(s)

	if s.sig == nil {
		g.p("// %sOn returns the %s vector of t, re-based to where t sits.\n", s.Name, s.Label)
		g.p("func %sOn(t *%s) (%s, error) {\n", s.Name, g.tableType(), v)
		g.p("\treturn vtable.Dispatch(t, %s, func(vec %s) %s { return vec })\n}\n\n", sel, v, v)
		if static {
			g.p("// %s returns the %s vector of the static %s table.\n", s.Name, s.Label, g.def.Table)
			g.p("func %s() (%s, error) {\n\treturn %sOn(&%s)\n}\n\n", s.Name, v, s.Name, g.def.Table)
		}
		g.setters(s, s.Vector, "vec")
		return
	}

	var decl, args []string
	for _, p := range s.sig.params {
		decl = append(decl, p.name+" "+p.typ)
		args = append(args, p.name)
	}
	params := strings.Join(decl, ", ")
	call := "vec.Func()(" + strings.Join(args, ", ") + ")"
	lead := ""
	if params != "" {
		lead = ", " + params
	}

	g.p("// %sOn calls the %s vector of t.\n", s.Name, s.Label)
	if s.sig.result == "" {
		g.p("func %sOn(t *%s%s) error {\n", s.Name, g.tableType(), lead)
		g.p("\t_, err := vtable.Dispatch(t, %s, func(vec %s) struct{} {\n", sel, v)
		g.p("\t\t%s\n\t\treturn struct{}{}\n\t})\n", call)
		g.p("\treturn err\n}\n\n")
		if static {
			g.p("// %s calls the %s vector of the static %s table.\n", s.Name, s.Label, g.def.Table)
			g.p("func %s(%s) error {\n\treturn %sOn(&%s%s)\n}\n\n", s.Name, params, s.Name, g.def.Table, joinLead(args))
		}
	} else {
		r := s.sig.result
		g.p("func %sOn(t *%s%s) (%s, error) {\n", s.Name, g.tableType(), lead, r)
		g.p("\treturn vtable.Dispatch(t, %s, func(vec %s) %s {\n", sel, v, r)
		g.p("\t\treturn %s\n\t})\n}\n\n", call)
		if static {
			g.p("// %s calls the %s vector of the static %s table.\n", s.Name, s.Label, g.def.Table)
			g.p("func %s(%s) (%s, error) {\n\treturn %sOn(&%s%s)\n}\n\n", s.Name, params, r, s.Name, g.def.Table, joinLead(args))
		}
	}
	g.setters(s, s.Name+"Fn", "vtable.FnOf(vec)")
}

// setters emits Set<Name>On and, for static tables, Set<Name>. arg is the
// parameter type and conv turns the parameter into the stored vector.
func (g *gen) setters(s SlotDef, arg, conv string) {
	note := ""
	if s.sig != nil {
		note = " vec must be a top-level function; closures and method values panic."
	}
	g.p("// Set%sOn replaces the %s vector of t.%s\n", s.Name, s.Label, note)
	g.p("func Set%sOn(t *%s, vec %s) error {\n", s.Name, g.tableType(), arg)
	g.p("\treturn vtable.Modify(t, %s%s, %s)\n}\n\n", g.def.Table, s.Name, conv)
	if g.def.Placement == PlacementStatic {
		g.p("// Set%s replaces the %s vector of the static %s table.%s\n", s.Name, s.Label, g.def.Table, note)
		g.p("func Set%s(vec %s) error {\n\treturn Set%sOn(&%s, vec)\n}\n\n", s.Name, arg, s.Name, g.def.Table)
	}
}

func joinLead(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return ", " + strings.Join(args, ", ")
}
