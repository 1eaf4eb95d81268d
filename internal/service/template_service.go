package service

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Raymond9734/bulk-sms-sender/internal/models"
)

// TemplateService handles message template rendering and validation
type TemplateService interface {
	Render(template string, customer *models.Customer) (string, error)
	ValidateTemplate(template string) error
	ExtractPlaceholders(template string) []string
}

// Placeholders understood by the renderer
var validPlaceholders = []string{"name", "first_name", "phone", "id"}

type templateService struct {
	placeholderPattern *regexp.Regexp
}

// NewTemplateService creates a new template service
func NewTemplateService() TemplateService {
	return &templateService{
		placeholderPattern: regexp.MustCompile(`\{([a-z_]+)\}`),
	}
}

// Render replaces placeholders in template with customer data.
// Unknown placeholders render as empty strings.
func (s *templateService) Render(template string, customer *models.Customer) (string, error) {
	if customer == nil {
		return "", models.ErrInvalidInput("customer cannot be nil")
	}

	fieldMap := map[string]string{
		"name":       customer.Name,
		"first_name": firstName(customer.Name),
		"phone":      customer.Phone,
		"id":         customer.ID,
	}

	result := s.placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		return fieldMap[strings.Trim(match, "{}")]
	})

	return result, nil
}

// ValidateTemplate checks that the template is non-empty and only uses known placeholders
func (s *templateService) ValidateTemplate(template string) error {
	if strings.TrimSpace(template) == "" {
		return models.ErrInvalidInput("template cannot be empty")
	}

	known := make(map[string]bool, len(validPlaceholders))
	for _, p := range validPlaceholders {
		known[p] = true
	}

	var invalid []string
	for _, placeholder := range s.ExtractPlaceholders(template) {
		if !known[placeholder] {
			invalid = append(invalid, placeholder)
		}
	}

	if len(invalid) > 0 {
		return models.ErrInvalidInput(
			fmt.Sprintf("invalid placeholders: %s. Valid placeholders are: %s",
				strings.Join(invalid, ", "), strings.Join(validPlaceholders, ", ")),
		)
	}

	return nil
}

// ExtractPlaceholders returns all placeholders found in template
func (s *templateService) ExtractPlaceholders(template string) []string {
	matches := s.placeholderPattern.FindAllStringSubmatch(template, -1)
	placeholders := make([]string, 0, len(matches))

	for _, match := range matches {
		if len(match) > 1 {
			placeholders = append(placeholders, match[1])
		}
	}

	return placeholders
}

func firstName(name string) string {
	if fields := strings.Fields(name); len(fields) > 0 {
		return fields[0]
	}
	return ""
}
