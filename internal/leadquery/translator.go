package leadquery

import (
	"github.com/SkCo-Dali/dali-crm/internal/leads"
)

// datePairs lists the paired date-range fields: lower-bound field → its
// upper-bound companion. The pair collapses to a single range condition on
// the lower field's backend name.
var datePairs = map[string]string{
	"createdAt":               "createdAtEnd",
	"updatedAt":               "updatedAtEnd",
	"nextFollowUp":            "nextFollowUpEnd",
	"lastInteraction":         "lastInteractionEnd",
	"lastGestorInteractionAt": "lastGestorInteractionAtEnd",
}

// Translate converts view-level filter state into the backend condition map.
// Pure function of its input.
func Translate(f FilterState) leads.Filters {
	out := leads.Filters{}
	handled := make(map[string]bool)

	// Paired date-range fields collapse into one range condition each.
	for start, end := range datePairs {
		from := firstColumnValue(f, start)
		to := firstColumnValue(f, end)
		if from == "" && to == "" {
			continue
		}
		handled[start] = true
		handled[end] = true

		field := MapField(start)
		from = normalizeRangeBound(from, false)
		to = normalizeRangeBound(to, true)

		switch {
		case from != "" && to != "":
			out[field] = leads.Condition{Op: leads.OpBetween, From: from, To: to}
		case from != "":
			out[field] = leads.Condition{Op: leads.OpGte, Value: from}
		default:
			out[field] = leads.Condition{Op: leads.OpLte, Value: to}
		}
	}

	// Column filters: one accepted value is equality, several are membership.
	for col, values := range f.Columns {
		if handled[col] || len(values) == 0 {
			continue
		}
		field := MapField(col)
		if len(values) == 1 {
			out[field] = leads.Condition{Op: leads.OpEq, Value: values[0]}
		} else {
			out[field] = leads.Condition{Op: leads.OpIn, Values: append([]string{}, values...)}
		}
	}

	// Text conditions: only the first condition per field is honored.
	// Known limitation carried over from the legacy filter editor; whether
	// additional conditions should AND-combine is still undecided.
	for col, conds := range f.Conditions {
		if len(conds) == 0 {
			continue
		}
		cond, ok := translateTextCondition(conds[0])
		if !ok {
			continue
		}
		out[MapField(col)] = cond
	}

	return out
}

func translateTextCondition(tc TextCondition) (leads.Condition, bool) {
	switch tc.Operator {
	case TextEquals:
		return leads.Condition{Op: leads.OpEq, Value: tc.Value}, true
	case TextNotEquals:
		return leads.Condition{Op: leads.OpNin, Values: []string{tc.Value}}, true
	case TextContains:
		return leads.Condition{Op: leads.OpContains, Value: tc.Value}, true
	case TextNotContains:
		return leads.Condition{Op: leads.OpNContains, Value: tc.Value}, true
	case TextStartsWith:
		return leads.Condition{Op: leads.OpStartsWith, Value: tc.Value}, true
	case TextEndsWith:
		return leads.Condition{Op: leads.OpEndsWith, Value: tc.Value}, true
	case TextIsEmpty:
		return leads.Condition{Op: leads.OpIsNull}, true
	case TextIsNotEmpty:
		return leads.Condition{Op: leads.OpNotNull}, true
	case TextGreater:
		return leads.Condition{Op: leads.OpGt, Value: tc.Value}, true
	case TextGreaterEq:
		return leads.Condition{Op: leads.OpGte, Value: tc.Value}, true
	case TextLess:
		return leads.Condition{Op: leads.OpLt, Value: tc.Value}, true
	case TextLessEq:
		return leads.Condition{Op: leads.OpLte, Value: tc.Value}, true
	default:
		return leads.Condition{}, false
	}
}

// normalizeRangeBound expands date-only values (10-char ISO date) to the start
// or end of that day.
func normalizeRangeBound(v string, upper bool) string {
	if len(v) != 10 {
		return v
	}
	if upper {
		return v + "T23:59:59"
	}
	return v + "T00:00:00"
}

func firstColumnValue(f FilterState, col string) string {
	values := f.Columns[col]
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
