package outreach

import (
	"regexp"
	"strconv"

	"github.com/SkCo-Dali/dali-crm/internal/leads"
)

var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z]+)\}`)

// RenderTemplate substitutes {field} placeholders in a campaign template with
// values from the lead. Unknown placeholders are left verbatim so template
// mistakes surface in dry runs instead of silently vanishing.
func RenderTemplate(template string, lead *leads.Lead) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		field := match[1 : len(match)-1]
		value, ok := leadField(lead, field)
		if !ok {
			return match
		}
		return value
	})
}

func leadField(lead *leads.Lead, field string) (string, bool) {
	switch field {
	case "name":
		return lead.Name, true
	case "firstName":
		if lead.FirstName != "" {
			return lead.FirstName, true
		}
		return lead.Name, true
	case "email":
		return lead.Email, true
	case "phone":
		return lead.Phone, true
	case "company":
		return lead.Company, true
	case "product":
		return lead.Product, true
	case "campaign":
		return lead.Campaign, true
	case "stage":
		return lead.Stage, true
	case "assignedToName":
		return lead.AssignedToName, true
	case "value":
		return strconv.FormatFloat(lead.Value, 'f', -1, 64), true
	default:
		return "", false
	}
}
