package mir

// PrimitiveTagTypes maps the fixed primitive variant tags (section 4.6's
// tagFor table: None/Boolean/Number/String) to their MIR type. Shared by
// every pass that needs to recover a Case alternative binder's type from
// its matched tag (section 4.8, section 4.9), since mir.Alternative itself
// carries no type field (only the tag list and a binder name).
var PrimitiveTagTypes = map[string]Type{
	"None":    TNone{},
	"Boolean": TBoolean{},
	"Number":  TNumber{},
	"String":  TString{},
}

// TypeForTags recovers the binder type for a Case alternative matching the
// given tag set. A single-tag alternative whose tag is a known primitive or
// a record defined in the module resolves exactly; anything else
// (synthesized variant-payload records not present in records, multi-tag
// alternatives, or the default arm) falls back to the unconstrained top
// type, since this core's MIR carries no richer union-residual encoding at
// this layer (see DESIGN.md).
func TypeForTags(tags []string, records map[string]bool) Type {
	if len(tags) == 1 {
		if t, ok := PrimitiveTagTypes[tags[0]]; ok {
			return t
		}
		if records[tags[0]] {
			return TRecord{Name: tags[0]}
		}
	}
	return TVariant{Tag: "Any"}
}
