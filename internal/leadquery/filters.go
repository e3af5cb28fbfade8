package leadquery

// Text condition operators used by the view-level filter editor.
const (
	TextEquals      = "equals"
	TextNotEquals   = "notEquals"
	TextContains    = "contains"
	TextNotContains = "notContains"
	TextStartsWith  = "startsWith"
	TextEndsWith    = "endsWith"
	TextIsEmpty     = "isEmpty"
	TextIsNotEmpty  = "isNotEmpty"
	TextGreater     = "gt"
	TextGreaterEq   = "gte"
	TextLess        = "lt"
	TextLessEq      = "lte"
)

// TextCondition is a single operator+value entry in a per-field condition list.
type TextCondition struct {
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

// FilterState is the view-level filter model: per-field accepted value sets
// (column filters) and per-field ordered text conditions. Paired date-range
// fields (createdAt / createdAtEnd, ...) live in Columns with a single value
// each and are combined by the translator.
type FilterState struct {
	Columns    map[string][]string        `json:"columns,omitempty"`
	Conditions map[string][]TextCondition `json:"conditions,omitempty"`
}

// Clone returns a deep copy.
func (f FilterState) Clone() FilterState {
	out := FilterState{}
	if f.Columns != nil {
		out.Columns = make(map[string][]string, len(f.Columns))
		for k, v := range f.Columns {
			out.Columns[k] = append([]string{}, v...)
		}
	}
	if f.Conditions != nil {
		out.Conditions = make(map[string][]TextCondition, len(f.Conditions))
		for k, v := range f.Conditions {
			out.Conditions[k] = append([]TextCondition{}, v...)
		}
	}
	return out
}

// Merge applies a partial filter state. A key present with an empty slice
// clears that field's filter; absent keys are left untouched.
func (f *FilterState) Merge(patch FilterState) {
	for k, v := range patch.Columns {
		if f.Columns == nil {
			f.Columns = make(map[string][]string)
		}
		if len(v) == 0 {
			delete(f.Columns, k)
			continue
		}
		f.Columns[k] = append([]string{}, v...)
	}
	for k, v := range patch.Conditions {
		if f.Conditions == nil {
			f.Conditions = make(map[string][]TextCondition)
		}
		if len(v) == 0 {
			delete(f.Conditions, k)
			continue
		}
		f.Conditions[k] = append([]TextCondition{}, v...)
	}
}

// Empty reports whether no filter is active.
func (f FilterState) Empty() bool {
	return len(f.Columns) == 0 && len(f.Conditions) == 0
}
