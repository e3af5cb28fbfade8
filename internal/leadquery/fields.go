// Package leadquery implements the client-side lead query layer: translation
// of view-level filter state into the backend query contract, request
// deduplication, pagination bookkeeping, and the query orchestrator that ties
// them together.
package leadquery

// fieldMap translates view-level field names to backend field names. Names
// not present pass through unchanged.
var fieldMap = map[string]string{
	"name":                       "Name",
	"firstName":                  "FirstName",
	"email":                      "Email",
	"phone":                      "Phone",
	"company":                    "Company",
	"occupation":                 "Occupation",
	"source":                     "Source",
	"campaign":                   "Campaign",
	"product":                    "Product",
	"stage":                      "Stage",
	"priority":                   "Priority",
	"value":                      "Value",
	"assignedTo":                 "AssignedTo",
	"assignedToName":             "AssignedToName",
	"createdAt":                  "CreatedAt",
	"updatedAt":                  "UpdatedAt",
	"nextFollowUp":               "NextFollowUp",
	"lastInteraction":            "LastInteractionAt",
	"lastGestorInteractionAt":    "LastGestorInteractionAt",
	"notes":                      "Notes",
	"tags":                       "Tags",
	"documentNumber":             "DocumentNumber",
	"documentType":               "DocumentType",
	"alternateEmail":             "AlternateEmail",
	"isDuplicate":                "IsDuplicate",
	"isDupByEmail":               "IsDupByEmail",
	"isDupByDocumentNumber":      "IsDupByDocumentNumber",
	"isDupByPhone":               "IsDupByPhone",
	"duplicateEmailKey":          "DuplicateEmailKey",
	"duplicateDocumentNumberKey": "DuplicateDocumentNumberKey",
	"duplicatePhoneKey":          "DuplicatePhoneKey",
}

// MapField translates a view field name to its backend name. Unmapped names
// pass through unchanged.
func MapField(name string) string {
	if mapped, ok := fieldMap[name]; ok {
		return mapped
	}
	return name
}
