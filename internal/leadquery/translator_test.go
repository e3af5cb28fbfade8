package leadquery

import (
	"reflect"
	"testing"

	"github.com/SkCo-Dali/dali-crm/internal/leads"
)

func TestTranslateSingleValueIsEq(t *testing.T) {
	got := Translate(FilterState{Columns: map[string][]string{"stage": {"won"}}})

	want := leads.Filters{"Stage": {Op: leads.OpEq, Value: "won"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestTranslateMultipleValuesIsIn(t *testing.T) {
	got := Translate(FilterState{Columns: map[string][]string{"source": {"web", "referral"}}})

	cond := got["Source"]
	if cond.Op != leads.OpIn {
		t.Errorf("expected in, got %s", cond.Op)
	}
	if !reflect.DeepEqual(cond.Values, []string{"web", "referral"}) {
		t.Errorf("unexpected values: %v", cond.Values)
	}
}

func TestTranslateDateRangeBetween(t *testing.T) {
	got := Translate(FilterState{Columns: map[string][]string{
		"createdAt":    {"2024-01-01"},
		"createdAtEnd": {"2024-01-31"},
	}})

	cond := got["CreatedAt"]
	if cond.Op != leads.OpBetween {
		t.Fatalf("expected between, got %s", cond.Op)
	}
	if cond.From != "2024-01-01T00:00:00" {
		t.Errorf("lower bound must normalize to start of day, got %q", cond.From)
	}
	if cond.To != "2024-01-31T23:59:59" {
		t.Errorf("upper bound must normalize to end of day, got %q", cond.To)
	}
}

func TestTranslateDateRangeSingleBound(t *testing.T) {
	lower := Translate(FilterState{Columns: map[string][]string{"updatedAt": {"2024-02-01"}}})
	if cond := lower["UpdatedAt"]; cond.Op != leads.OpGte || cond.Value != "2024-02-01T00:00:00" {
		t.Errorf("unexpected lower-only condition: %+v", cond)
	}

	upper := Translate(FilterState{Columns: map[string][]string{"updatedAtEnd": {"2024-02-29"}}})
	if cond := upper["UpdatedAt"]; cond.Op != leads.OpLte || cond.Value != "2024-02-29T23:59:59" {
		t.Errorf("unexpected upper-only condition: %+v", cond)
	}
}

func TestTranslateDateWithTimeComponentUntouched(t *testing.T) {
	got := Translate(FilterState{Columns: map[string][]string{
		"createdAt": {"2024-01-01T08:30:00"},
	}})

	if cond := got["CreatedAt"]; cond.Value != "2024-01-01T08:30:00" {
		t.Errorf("values with a time component must pass through, got %q", cond.Value)
	}
}

func TestTranslateOnlyFirstTextCondition(t *testing.T) {
	got := Translate(FilterState{Conditions: map[string][]TextCondition{
		"name": {
			{Operator: TextContains, Value: "ana"},
			{Operator: TextStartsWith, Value: "b"},
		},
	}})

	cond := got["Name"]
	if cond.Op != leads.OpContains || cond.Value != "ana" {
		t.Errorf("only the first condition per field is honored, got %+v", cond)
	}
}

func TestTranslateTextOperators(t *testing.T) {
	tests := []struct {
		operator string
		wantOp   string
	}{
		{TextEquals, leads.OpEq},
		{TextNotEquals, leads.OpNin},
		{TextContains, leads.OpContains},
		{TextNotContains, leads.OpNContains},
		{TextStartsWith, leads.OpStartsWith},
		{TextEndsWith, leads.OpEndsWith},
		{TextIsEmpty, leads.OpIsNull},
		{TextIsNotEmpty, leads.OpNotNull},
		{TextGreater, leads.OpGt},
		{TextLessEq, leads.OpLte},
	}
	for _, tt := range tests {
		t.Run(tt.operator, func(t *testing.T) {
			got := Translate(FilterState{Conditions: map[string][]TextCondition{
				"notes": {{Operator: tt.operator, Value: "x"}},
			}})
			if got["Notes"].Op != tt.wantOp {
				t.Errorf("expected %s, got %s", tt.wantOp, got["Notes"].Op)
			}
		})
	}
}

func TestTranslateNotEqualsBecomesNin(t *testing.T) {
	got := Translate(FilterState{Conditions: map[string][]TextCondition{
		"stage": {{Operator: TextNotEquals, Value: "lost"}},
	}})

	cond := got["Stage"]
	if cond.Op != leads.OpNin || !reflect.DeepEqual(cond.Values, []string{"lost"}) {
		t.Errorf("unexpected condition: %+v", cond)
	}
}

func TestTranslateUnknownOperatorSkipped(t *testing.T) {
	got := Translate(FilterState{Conditions: map[string][]TextCondition{
		"name": {{Operator: "regex", Value: ".*"}},
	}})
	if len(got) != 0 {
		t.Errorf("unknown operators must be skipped, got %v", got)
	}
}

func TestTranslateUnmappedFieldPassesThrough(t *testing.T) {
	got := Translate(FilterState{Columns: map[string][]string{"customField": {"x"}}})
	if _, ok := got["customField"]; !ok {
		t.Errorf("unmapped field names pass through unchanged, got %v", got)
	}
}

func TestTranslatePure(t *testing.T) {
	in := FilterState{Columns: map[string][]string{"stage": {"won"}}}
	Translate(in)
	Translate(in)
	if !reflect.DeepEqual(in.Columns["stage"], []string{"won"}) {
		t.Error("Translate must not mutate its input")
	}
}

func TestMapField(t *testing.T) {
	if MapField("lastInteraction") != "LastInteractionAt" {
		t.Error("lastInteraction should map to LastInteractionAt")
	}
	if MapField("somethingElse") != "somethingElse" {
		t.Error("unmapped names pass through")
	}
}

func TestFilterStateMerge(t *testing.T) {
	f := FilterState{Columns: map[string][]string{"stage": {"won"}, "source": {"web"}}}

	f.Merge(FilterState{Columns: map[string][]string{
		"stage":  {"lost"},
		"source": {},
	}})

	if !reflect.DeepEqual(f.Columns["stage"], []string{"lost"}) {
		t.Errorf("merge should replace values, got %v", f.Columns["stage"])
	}
	if _, ok := f.Columns["source"]; ok {
		t.Error("empty slice should clear the field filter")
	}
}
