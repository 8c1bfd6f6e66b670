package rules

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"crm/internal/domain"
	"crm/models"

	"github.com/go-playground/validator/v10"
)

const (
	MaxOrganizationNameLength = 255
	MaxDescriptionLength      = 500
	MaxSegmentLength          = 100
)

// TypePolicy - что разрешено организации данного типа
type TypePolicy struct {
	Type                 models.OrganizationType `json:"type"`
	CanHaveOpportunities bool                    `json:"canHaveOpportunities"`
	CanBePrincipal       bool                    `json:"canBePrincipal"`
	CanBeDistributor     bool                    `json:"canBeDistributor"`
	RequiresManager      bool                    `json:"requiresManager"`
	DefaultPriority      models.Priority         `json:"defaultPriority"`
}

var typePolicies = map[models.OrganizationType]TypePolicy{
	models.OrganizationCustomer: {
		Type:                 models.OrganizationCustomer,
		CanHaveOpportunities: true,
		RequiresManager:      true,
		DefaultPriority:      models.PriorityB,
	},
	models.OrganizationPrincipal: {
		Type:                 models.OrganizationPrincipal,
		CanHaveOpportunities: true,
		CanBePrincipal:       true,
		RequiresManager:      true,
		DefaultPriority:      models.PriorityA,
	},
	models.OrganizationDistributor: {
		Type:                 models.OrganizationDistributor,
		CanHaveOpportunities: true,
		CanBeDistributor:     true,
		RequiresManager:      true,
		DefaultPriority:      models.PriorityA,
	},
	models.OrganizationProspect: {
		Type:                 models.OrganizationProspect,
		CanHaveOpportunities: true,
		DefaultPriority:      models.PriorityC,
	},
	models.OrganizationVendor: {
		Type:            models.OrganizationVendor,
		DefaultPriority: models.PriorityD,
	},
	models.OrganizationSupplier: {
		Type:            models.OrganizationSupplier,
		DefaultPriority: models.PriorityC,
	},
}

// DefaultKeySegments - сегменты, где низкий приоритет считается подозрительным
var DefaultKeySegments = []string{"Fine Dining", "Healthcare", "Education", "Hospitality", "Corporate Catering"}

var (
	validate = validator.New()

	phonePattern = regexp.MustCompile(`^\+?[0-9\s().\-]{7,20}$`)
)

// PolicyFor возвращает политику типа; ok=false для неизвестного типа
func PolicyFor(t models.OrganizationType) (TypePolicy, bool) {
	p, ok := typePolicies[t]
	return p, ok
}

// OrganizationDefaults - значения по умолчанию для нового типа организации
type OrganizationDefaults struct {
	Priority      models.Priority `json:"priority"`
	IsPrincipal   bool            `json:"isPrincipal"`
	IsDistributor bool            `json:"isDistributor"`
}

func GetDefaults(t models.OrganizationType) OrganizationDefaults {
	p, ok := typePolicies[t]
	if !ok {
		return OrganizationDefaults{Priority: models.PriorityC}
	}
	return OrganizationDefaults{
		Priority:      p.DefaultPriority,
		IsPrincipal:   p.CanBePrincipal,
		IsDistributor: p.CanBeDistributor,
	}
}

// ValidationContext - дополнительные условия проверки, задаваемые вызывающим
type ValidationContext struct {
	// для проверки уникальности имени; запись с ExcludeID не учитывается
	ExistingOrganizations  []models.Organization
	ExcludeID              string
	RequireCompleteAddress bool
}

// ValidateOrganizationData проверяет данные организации и возвращает первое нарушение
func ValidateOrganizationData(in models.OrganizationInput, vc ValidationContext) error {
	name := deref(in.Name)
	if strings.TrimSpace(name) == "" {
		return domain.NewViolation(domain.CodeRequiredName, "Organization name is required")
	}
	if in.Type == nil || *in.Type == "" {
		return domain.NewViolation(domain.CodeRequiredType, "Organization type is required")
	}
	segment := deref(in.Segment)
	if strings.TrimSpace(segment) == "" {
		return domain.NewViolation(domain.CodeRequiredSegment, "Segment is required")
	}
	if utf8.RuneCountInString(name) > MaxOrganizationNameLength {
		return domain.NewViolation(domain.CodeNameTooLong, "Organization name must be %d characters or less", MaxOrganizationNameLength)
	}
	for _, existing := range vc.ExistingOrganizations {
		if existing.ID == vc.ExcludeID && vc.ExcludeID != "" {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(existing.Name), strings.TrimSpace(name)) {
			return domain.NewViolation(domain.CodeDuplicateName, "Organization with name %q already exists", strings.TrimSpace(name))
		}
	}
	if !in.Type.Valid() {
		return domain.NewViolation(domain.CodeInvalidType, "Invalid organization type: %s", *in.Type)
	}
	if in.Priority != nil && !in.Priority.Valid() {
		return domain.NewViolation(domain.CodeInvalidPriority, "Invalid priority: %s", *in.Priority)
	}
	if email := strings.TrimSpace(deref(in.Email)); email != "" {
		if err := validate.Var(email, "email"); err != nil {
			return domain.NewViolation(domain.CodeInvalidEmail, "Invalid email format")
		}
	}
	if phone := strings.TrimSpace(deref(in.Phone)); phone != "" && !validPhone(phone) {
		return domain.NewViolation(domain.CodeInvalidPhone, "Invalid phone format")
	}
	policy := typePolicies[*in.Type]
	if in.IsPrincipal != nil && *in.IsPrincipal && !policy.CanBePrincipal {
		return domain.NewViolation(domain.CodeInvalidPrincipal, "Organization of type %s cannot be a principal", *in.Type)
	}
	if in.IsDistributor != nil && *in.IsDistributor && !policy.CanBeDistributor {
		return domain.NewViolation(domain.CodeInvalidDistributor, "Organization of type %s cannot be a distributor", *in.Type)
	}
	if vc.RequireCompleteAddress && !addressComplete(in) {
		return domain.NewViolation(domain.CodeIncompleteAddress, "Complete address is required")
	}
	if utf8.RuneCountInString(deref(in.Description)) > MaxDescriptionLength {
		return domain.NewViolation(domain.CodeDescriptionTooLong, "Description must be %d characters or less", MaxDescriptionLength)
	}
	if utf8.RuneCountInString(deref(in.Notes)) > MaxDescriptionLength {
		return domain.NewViolation(domain.CodeNotesTooLong, "Notes must be %d characters or less", MaxDescriptionLength)
	}
	if utf8.RuneCountInString(segment) > MaxSegmentLength {
		return domain.NewViolation(domain.CodeSegmentTooLong, "Segment must be %d characters or less", MaxSegmentLength)
	}
	return nil
}

// BusinessContext - сведения о связях организации для мягкой проверки
type BusinessContext struct {
	OpportunityCount int
	KeySegments      []string
}

// BusinessValidation разделяет "надо исправить" (Issues) и "стоит проверить"
// (Warnings, Suggestions). IsValid зависит только от Issues.
type BusinessValidation struct {
	IsValid     bool     `json:"isValid"`
	Issues      []string `json:"issues"`
	Warnings    []string `json:"warnings"`
	Suggestions []string `json:"suggestions"`
}

// ValidateOrganizationBusiness выполняет мягкую проверку согласованности и никогда не падает
func ValidateOrganizationBusiness(org models.Organization, bc BusinessContext) BusinessValidation {
	res := BusinessValidation{Issues: []string{}, Warnings: []string{}, Suggestions: []string{}}
	policy, known := typePolicies[org.Type]
	if !known {
		res.Issues = append(res.Issues, fmt.Sprintf("Unknown organization type %q", org.Type))
	}

	if org.IsPrincipal && org.Type != models.OrganizationPrincipal {
		res.Issues = append(res.Issues, fmt.Sprintf("Organization is flagged as principal but its type is %s", org.Type))
	}
	if org.IsDistributor && org.Type != models.OrganizationDistributor {
		res.Issues = append(res.Issues, fmt.Sprintf("Organization is flagged as distributor but its type is %s", org.Type))
	}
	if known && !policy.CanHaveOpportunities && bc.OpportunityCount > 0 {
		res.Issues = append(res.Issues, fmt.Sprintf("Organizations of type %s cannot hold opportunities (found %d)", org.Type, bc.OpportunityCount))
	}

	if org.Type == models.OrganizationPrincipal && !org.IsPrincipal {
		res.Warnings = append(res.Warnings, "Principal organization is not flagged as principal")
	}
	if org.Type == models.OrganizationDistributor && !org.IsDistributor {
		res.Warnings = append(res.Warnings, "Distributor organization is not flagged as distributor")
	}
	if known && policy.RequiresManager && (org.ManagerID == nil || strings.TrimSpace(*org.ManagerID) == "") {
		res.Warnings = append(res.Warnings, fmt.Sprintf("Organizations of type %s should have an assigned manager", org.Type))
	}
	keySegments := bc.KeySegments
	if keySegments == nil {
		keySegments = DefaultKeySegments
	}
	if isKeySegment(org.Segment, keySegments) && (org.Priority == models.PriorityC || org.Priority == models.PriorityD) {
		res.Warnings = append(res.Warnings, fmt.Sprintf("Key segment %s has low priority %s", org.Segment, org.Priority))
	}
	if org.Type == models.OrganizationProspect && org.Priority == models.PriorityA {
		res.Warnings = append(res.Warnings, "Prospect has priority A; confirm qualification")
	}

	if org.Type == models.OrganizationPrincipal && strings.TrimSpace(org.Industry) == "" {
		res.Suggestions = append(res.Suggestions, "Set an industry for principal organizations")
	}
	if strings.TrimSpace(org.Email) == "" && strings.TrimSpace(org.Phone) == "" {
		res.Suggestions = append(res.Suggestions, "Add an email or phone number")
	}
	if known && policy.CanHaveOpportunities && org.Type != models.OrganizationProspect && strings.TrimSpace(org.Website) == "" {
		res.Suggestions = append(res.Suggestions, "Add a website")
	}
	if !addressComplete(org.Input()) {
		res.Suggestions = append(res.Suggestions, "Complete the address")
	}

	res.IsValid = len(res.Issues) == 0
	return res
}

func isKeySegment(segment string, keySegments []string) bool {
	for _, k := range keySegments {
		if strings.EqualFold(strings.TrimSpace(segment), k) {
			return true
		}
	}
	return false
}

func validPhone(phone string) bool {
	if !phonePattern.MatchString(phone) {
		return false
	}
	digits := 0
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 7
}

func addressComplete(in models.OrganizationInput) bool {
	for _, part := range []*string{in.AddressLine1, in.City, in.State, in.PostalCode} {
		if strings.TrimSpace(deref(part)) == "" {
			return false
		}
	}
	return true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
