package leads

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Lead is the normalized CRM lead record consumed by views and exports.
type Lead struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	FirstName      string         `json:"firstName"`
	Email          string         `json:"email"`
	AlternateEmail string         `json:"alternateEmail"`
	Phone          string         `json:"phone"`
	Company        string         `json:"company"`
	Occupation     string         `json:"occupation"`
	DocumentType   string         `json:"documentType"`
	DocumentNumber int64          `json:"documentNumber"`
	Source         string         `json:"source"`
	Campaign       string         `json:"campaign"`
	Product        string         `json:"product"`
	Stage          string         `json:"stage"`
	Priority       string         `json:"priority"`
	Value          float64        `json:"value"`
	Age            *int           `json:"age,omitempty"`
	Tags           []string       `json:"tags"`
	Portfolios     []string       `json:"portfolios"`
	AdditionalInfo map[string]any `json:"additionalInfo,omitempty"`
	AssignedTo     string         `json:"assignedTo"`
	AssignedToName string         `json:"assignedToName"`
	CreatedBy      string         `json:"createdBy"`
	Notes          string         `json:"notes"`

	// ISO-8601 timestamps, passed through as strings.
	CreatedAt         string `json:"createdAt"`
	UpdatedAt         string `json:"updatedAt"`
	LastInteractionAt string `json:"lastInteractionAt"`
	NextFollowUp      string `json:"nextFollowUp"`

	// Duplicate detection metadata, computed by the backend.
	// IsDuplicate is true iff at least one per-field flag is true; each key
	// is non-nil iff its flag is true.
	IsDuplicate                bool     `json:"isDuplicate"`
	IsDupByEmail               bool     `json:"isDupByEmail"`
	IsDupByDocumentNumber      bool     `json:"isDupByDocumentNumber"`
	IsDupByPhone               bool     `json:"isDupByPhone"`
	DuplicateEmailKey          *string  `json:"duplicateEmailKey"`
	DuplicateDocumentNumberKey *string  `json:"duplicateDocumentNumberKey"`
	DuplicatePhoneKey          *string  `json:"duplicatePhoneKey"`
	DuplicateBy                []string `json:"duplicateBy"`
}

// RawLead is the flat, string-typed wire shape returned by the lead store.
// Array-valued fields and AdditionalInfo arrive as JSON-encoded strings and
// must be parsed defensively.
type RawLead struct {
	ID                         string   `json:"Id"`
	Name                       string   `json:"Name"`
	FirstName                  string   `json:"FirstName"`
	Email                      string   `json:"Email"`
	AlternateEmail             string   `json:"AlternateEmail"`
	Phone                      string   `json:"Phone"`
	Company                    string   `json:"Company"`
	Occupation                 string   `json:"Occupation"`
	DocumentType               string   `json:"DocumentType"`
	DocumentNumber             string   `json:"DocumentNumber"`
	Source                     string   `json:"Source"`
	Campaign                   string   `json:"Campaign"`
	Product                    string   `json:"Product"`
	Stage                      string   `json:"Stage"`
	Priority                   string   `json:"Priority"`
	Value                      string   `json:"Value"`
	Age                        string   `json:"Age"`
	Tags                       string   `json:"Tags"`
	SelectedPortfolios         string   `json:"SelectedPortfolios"`
	AdditionalInfo             string   `json:"AdditionalInfo"`
	AssignedTo                 string   `json:"AssignedTo"`
	AssignedToName             string   `json:"AssignedToName"`
	CreatedBy                  string   `json:"CreatedBy"`
	Notes                      string   `json:"Notes"`
	CreatedAt                  string   `json:"CreatedAt"`
	UpdatedAt                  string   `json:"UpdatedAt"`
	LastInteractionAt          string   `json:"LastInteractionAt"`
	NextFollowUp               string   `json:"NextFollowUp"`
	IsDuplicate                bool     `json:"IsDuplicate"`
	IsDupByEmail               bool     `json:"IsDupByEmail"`
	IsDupByDocumentNumber      bool     `json:"IsDupByDocumentNumber"`
	IsDupByPhone               bool     `json:"IsDupByPhone"`
	DuplicateEmailKey          *string  `json:"DuplicateEmailKey"`
	DuplicateDocumentNumberKey *string  `json:"DuplicateDocumentNumberKey"`
	DuplicatePhoneKey          *string  `json:"DuplicatePhoneKey"`
	DuplicateBy                []string `json:"DuplicateBy"`
}

// Wire converts a lead to the flat wire shape emitted by the list endpoints.
// Numeric fields become strings and array-valued fields become JSON-encoded
// strings, matching what Normalize expects on the way back in.
func (l *Lead) Wire() RawLead {
	raw := RawLead{
		ID:                         l.ID,
		Name:                       l.Name,
		FirstName:                  l.FirstName,
		Email:                      l.Email,
		AlternateEmail:             l.AlternateEmail,
		Phone:                      l.Phone,
		Company:                    l.Company,
		Occupation:                 l.Occupation,
		DocumentType:               l.DocumentType,
		Source:                     l.Source,
		Campaign:                   l.Campaign,
		Product:                    l.Product,
		Stage:                      l.Stage,
		Priority:                   l.Priority,
		AssignedTo:                 l.AssignedTo,
		AssignedToName:             l.AssignedToName,
		CreatedBy:                  l.CreatedBy,
		Notes:                      l.Notes,
		CreatedAt:                  l.CreatedAt,
		UpdatedAt:                  l.UpdatedAt,
		LastInteractionAt:          l.LastInteractionAt,
		NextFollowUp:               l.NextFollowUp,
		IsDuplicate:                l.IsDuplicate,
		IsDupByEmail:               l.IsDupByEmail,
		IsDupByDocumentNumber:      l.IsDupByDocumentNumber,
		IsDupByPhone:               l.IsDupByPhone,
		DuplicateEmailKey:          l.DuplicateEmailKey,
		DuplicateDocumentNumberKey: l.DuplicateDocumentNumberKey,
		DuplicatePhoneKey:          l.DuplicatePhoneKey,
		DuplicateBy:                l.DuplicateBy,
	}
	if l.DocumentNumber != 0 {
		raw.DocumentNumber = strconv.FormatInt(l.DocumentNumber, 10)
	}
	if l.Value != 0 {
		raw.Value = strconv.FormatFloat(l.Value, 'f', -1, 64)
	}
	if l.Age != nil {
		raw.Age = strconv.Itoa(*l.Age)
	}
	if len(l.Tags) > 0 {
		b, _ := json.Marshal(l.Tags)
		raw.Tags = string(b)
	}
	if len(l.Portfolios) > 0 {
		b, _ := json.Marshal(l.Portfolios)
		raw.SelectedPortfolios = string(b)
	}
	if len(l.AdditionalInfo) > 0 {
		b, _ := json.Marshal(l.AdditionalInfo)
		raw.AdditionalInfo = string(b)
	}
	if raw.DuplicateBy == nil {
		raw.DuplicateBy = []string{}
	}
	return raw
}

// CreateLeadRequest is the request body for creating a lead.
type CreateLeadRequest struct {
	Name           string   `json:"name"`
	FirstName      string   `json:"firstName"`
	Email          string   `json:"email"`
	AlternateEmail string   `json:"alternateEmail"`
	Phone          string   `json:"phone"`
	Company        string   `json:"company"`
	Occupation     string   `json:"occupation"`
	DocumentType   string   `json:"documentType"`
	DocumentNumber int64    `json:"documentNumber"`
	Source         string   `json:"source"`
	Campaign       string   `json:"campaign"`
	Product        string   `json:"product"`
	Stage          string   `json:"stage"`
	Priority       string   `json:"priority"`
	Value          float64  `json:"value"`
	Age            *int     `json:"age,omitempty"`
	Tags           []string `json:"tags"`
	Portfolios     []string `json:"portfolios"`
	AssignedTo     string   `json:"assignedTo"`
	AssignedToName string   `json:"assignedToName"`
	CreatedBy      string   `json:"-"`
	Notes          string   `json:"notes"`
	NextFollowUp   string   `json:"nextFollowUp"`
}

// Validate validates the create lead request
func (r *CreateLeadRequest) Validate() error {
	if strings.TrimSpace(r.CreatedBy) == "" {
		return ErrMissingCreator
	}
	if strings.TrimSpace(r.Name) == "" {
		return ErrInvalidName
	}
	if r.Email == "" && r.Phone == "" {
		return ErrMissingContact
	}
	return nil
}

// UpdateLeadRequest contains optional fields for patching a lead.
type UpdateLeadRequest struct {
	Name           *string  `json:"name,omitempty"`
	FirstName      *string  `json:"firstName,omitempty"`
	Email          *string  `json:"email,omitempty"`
	AlternateEmail *string  `json:"alternateEmail,omitempty"`
	Phone          *string  `json:"phone,omitempty"`
	Stage          *string  `json:"stage,omitempty"`
	Priority       *string  `json:"priority,omitempty"`
	Product        *string  `json:"product,omitempty"`
	Value          *float64 `json:"value,omitempty"`
	AssignedTo     *string  `json:"assignedTo,omitempty"`
	AssignedToName *string  `json:"assignedToName,omitempty"`
	Notes          *string  `json:"notes,omitempty"`
	NextFollowUp   *string  `json:"nextFollowUp,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	Portfolios     []string `json:"portfolios,omitempty"`
}

// Empty reports whether the patch carries no changes.
func (r *UpdateLeadRequest) Empty() bool {
	return r.Name == nil && r.FirstName == nil && r.Email == nil &&
		r.AlternateEmail == nil && r.Phone == nil && r.Stage == nil &&
		r.Priority == nil && r.Product == nil && r.Value == nil &&
		r.AssignedTo == nil && r.AssignedToName == nil && r.Notes == nil &&
		r.NextFollowUp == nil && r.Tags == nil && r.Portfolios == nil
}

// Page is one page of leads with pagination counters.
type Page struct {
	Items      []Lead `json:"items"`
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
	Total      int    `json:"total"`
	TotalPages int    `json:"total_pages"`
}

// TotalPagesFor derives the page count when the store does not supply one.
func TotalPagesFor(total, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}
