package leads

import (
	"reflect"
	"testing"
)

func TestNormalizeParsesJSONArrays(t *testing.T) {
	raw := RawLead{
		ID:                 "lead-1",
		Tags:               `["a","b"]`,
		SelectedPortfolios: `["alpha"]`,
	}

	lead, warns := Normalize(raw)

	if !reflect.DeepEqual(lead.Tags, []string{"a", "b"}) {
		t.Errorf("expected tags [a b], got %v", lead.Tags)
	}
	if !reflect.DeepEqual(lead.Portfolios, []string{"alpha"}) {
		t.Errorf("expected portfolios [alpha], got %v", lead.Portfolios)
	}
	if len(warns) != 0 {
		t.Errorf("expected no warnings, got %v", warns)
	}
}

func TestNormalizeMalformedTagsDefaultsEmpty(t *testing.T) {
	lead, warns := Normalize(RawLead{ID: "lead-2", Tags: "not json"})

	if len(lead.Tags) != 0 {
		t.Errorf("expected empty tags, got %v", lead.Tags)
	}
	if len(warns) != 1 || warns[0].Field != "Tags" {
		t.Fatalf("expected one Tags warning, got %v", warns)
	}
	if warns[0].LeadID != "lead-2" {
		t.Errorf("warning should carry the lead id, got %q", warns[0].LeadID)
	}
}

func TestNormalizeNumericCoercion(t *testing.T) {
	raw := RawLead{
		DocumentNumber: "12345",
		Value:          "99.5",
		Age:            "",
		Tags:           "null",
	}

	lead, warns := Normalize(raw)

	if lead.DocumentNumber != 12345 {
		t.Errorf("expected document number 12345, got %d", lead.DocumentNumber)
	}
	if lead.Value != 99.5 {
		t.Errorf("expected value 99.5, got %f", lead.Value)
	}
	if lead.Age != nil {
		t.Errorf("expected absent age, got %v", *lead.Age)
	}
	if lead.Tags == nil || len(lead.Tags) != 0 {
		t.Errorf("expected empty tags for null input, got %v", lead.Tags)
	}
	if len(warns) != 0 {
		t.Errorf("empty values are not warnings, got %v", warns)
	}
}

func TestNormalizeBadNumbersWarnAndDefault(t *testing.T) {
	lead, warns := Normalize(RawLead{DocumentNumber: "abc", Value: "x", Age: "young"})

	if lead.DocumentNumber != 0 || lead.Value != 0 || lead.Age != nil {
		t.Errorf("expected zero defaults, got %d %f %v", lead.DocumentNumber, lead.Value, lead.Age)
	}
	if len(warns) != 3 {
		t.Fatalf("expected 3 warnings, got %v", warns)
	}
}

func TestNormalizeAdditionalInfo(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want map[string]any
	}{
		{"object", `{"city":"Bogota"}`, map[string]any{"city": "Bogota"}},
		{"scalar", `"vip"`, map[string]any{"value": "vip"}},
		{"empty", "", nil},
		{"null", "null", nil},
		{"garbage", "{broken", map[string]any{"value": "{broken"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lead, _ := Normalize(RawLead{AdditionalInfo: tt.in})
			if !reflect.DeepEqual(lead.AdditionalInfo, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, lead.AdditionalInfo)
			}
		})
	}
}

func TestNormalizeDuplicateMetadataVerbatim(t *testing.T) {
	key := "ana@skandia.co"
	raw := RawLead{
		IsDuplicate:       true,
		IsDupByEmail:      true,
		DuplicateEmailKey: &key,
		DuplicateBy:       []string{"email"},
	}

	lead, _ := Normalize(raw)

	if !lead.IsDuplicate || !lead.IsDupByEmail {
		t.Error("duplicate flags should pass through")
	}
	if lead.IsDupByPhone || lead.IsDupByDocumentNumber {
		t.Error("absent flags should default false")
	}
	if lead.DuplicateEmailKey == nil || *lead.DuplicateEmailKey != key {
		t.Error("duplicate key should pass through")
	}
	if lead.DuplicatePhoneKey != nil {
		t.Error("absent keys should stay nil")
	}
	if !reflect.DeepEqual(lead.DuplicateBy, []string{"email"}) {
		t.Errorf("expected duplicateBy [email], got %v", lead.DuplicateBy)
	}
}

func TestNormalizeAllCollectsWarnings(t *testing.T) {
	leads, warns := NormalizeAll([]RawLead{
		{ID: "a", Tags: `["ok"]`},
		{ID: "b", Tags: "broken", Value: "bad"},
	})

	if len(leads) != 2 {
		t.Fatalf("one bad record must not drop the page, got %d leads", len(leads))
	}
	if len(warns) != 2 {
		t.Fatalf("expected 2 warnings, got %v", warns)
	}
}
