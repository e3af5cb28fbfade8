package leads

import (
	"encoding/json"
	"strconv"
	"strings"
)

// FieldWarning reports a raw field that could not be parsed and was replaced
// by its default. Warnings are surfaced (logged, counted) but never abort a
// record or a page load.
type FieldWarning struct {
	LeadID string
	Field  string
	Reason string
}

// Normalize maps a raw wire record into a Lead. Every malformed field degrades
// independently to a safe default; Normalize never fails.
func Normalize(raw RawLead) (Lead, []FieldWarning) {
	warn := newWarnSink(raw.ID)

	lead := Lead{
		ID:                raw.ID,
		Name:              raw.Name,
		FirstName:         raw.FirstName,
		Email:             raw.Email,
		AlternateEmail:    raw.AlternateEmail,
		Phone:             raw.Phone,
		Company:           raw.Company,
		Occupation:        raw.Occupation,
		DocumentType:      raw.DocumentType,
		Source:            raw.Source,
		Campaign:          raw.Campaign,
		Product:           raw.Product,
		Stage:             raw.Stage,
		Priority:          raw.Priority,
		AssignedTo:        raw.AssignedTo,
		AssignedToName:    raw.AssignedToName,
		CreatedBy:         raw.CreatedBy,
		Notes:             raw.Notes,
		CreatedAt:         raw.CreatedAt,
		UpdatedAt:         raw.UpdatedAt,
		LastInteractionAt: raw.LastInteractionAt,
		NextFollowUp:      raw.NextFollowUp,
	}

	lead.DocumentNumber = warn.parseInt("DocumentNumber", raw.DocumentNumber)
	lead.Value = warn.parseFloat("Value", raw.Value)
	lead.Age = warn.parseOptionalInt("Age", raw.Age)
	lead.Tags = warn.parseStringArray("Tags", raw.Tags)
	lead.Portfolios = warn.parseStringArray("SelectedPortfolios", raw.SelectedPortfolios)
	lead.AdditionalInfo = warn.parseInfoMap("AdditionalInfo", raw.AdditionalInfo)

	// Duplicate metadata passes through verbatim; absent values already
	// decoded to false/nil by the wire layer.
	lead.IsDuplicate = raw.IsDuplicate
	lead.IsDupByEmail = raw.IsDupByEmail
	lead.IsDupByDocumentNumber = raw.IsDupByDocumentNumber
	lead.IsDupByPhone = raw.IsDupByPhone
	lead.DuplicateEmailKey = raw.DuplicateEmailKey
	lead.DuplicateDocumentNumberKey = raw.DuplicateDocumentNumberKey
	lead.DuplicatePhoneKey = raw.DuplicatePhoneKey
	lead.DuplicateBy = raw.DuplicateBy
	if lead.DuplicateBy == nil {
		lead.DuplicateBy = []string{}
	}

	return lead, warn.warnings
}

type warnSink struct {
	leadID   string
	warnings []FieldWarning
}

func newWarnSink(leadID string) *warnSink {
	return &warnSink{leadID: leadID}
}

func (w *warnSink) add(field, reason string) {
	w.warnings = append(w.warnings, FieldWarning{LeadID: w.leadID, Field: field, Reason: reason})
}

// parseInt coerces a numeric string, defaulting to 0.
func (w *warnSink) parseInt(field, s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		w.add(field, "non-numeric value")
		return 0
	}
	return n
}

// parseFloat coerces a numeric string, defaulting to 0.
func (w *warnSink) parseFloat(field, s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		w.add(field, "non-numeric value")
		return 0
	}
	return f
}

// parseOptionalInt coerces an optional numeric string; empty stays absent.
func (w *warnSink) parseOptionalInt(field, s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		w.add(field, "non-numeric value")
		return nil
	}
	return &n
}

// parseStringArray decodes a JSON-encoded array of strings, defaulting to
// an empty slice on null, empty, or malformed input.
func (w *warnSink) parseStringArray(field, s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" {
		return []string{}
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		w.add(field, "malformed JSON array")
		return []string{}
	}
	if out == nil {
		return []string{}
	}
	return out
}

// parseInfoMap decodes the free-form additional-info payload. A JSON object is
// used as-is; a bare JSON scalar is kept under "value"; a non-JSON string is
// kept verbatim under "value"; empty input yields nil.
func (w *warnSink) parseInfoMap(field, s string) map[string]any {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" {
		return nil
	}

	var decoded any
	if err := json.Unmarshal([]byte(s), &decoded); err != nil {
		w.add(field, "malformed JSON object")
		return map[string]any{"value": s}
	}

	switch v := decoded.(type) {
	case map[string]any:
		return v
	default:
		return map[string]any{"value": v}
	}
}

// NormalizeAll maps a page of raw records, collecting all field warnings.
func NormalizeAll(raws []RawLead) ([]Lead, []FieldWarning) {
	out := make([]Lead, 0, len(raws))
	var all []FieldWarning
	for _, raw := range raws {
		lead, warns := Normalize(raw)
		out = append(out, lead)
		all = append(all, warns...)
	}
	return out, all
}
