package models

import "strings"

// Customer represents a recipient in the customer list
type Customer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// CustomerFilter holds filtering options for listing customers
type CustomerFilter struct {
	Name     string
	Phone    string
	Page     int
	PageSize int
}

// Validate performs basic validation on customer data
func (c *Customer) Validate() error {
	if c.Phone == "" {
		return ErrInvalidInput("phone is required")
	}
	return nil
}

// NormalizePhone strips the separators people type into phone numbers.
// The leading '+' is kept; digits are not otherwise checked.
func NormalizePhone(phone string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.', '\t':
			return -1
		}
		return r
	}, strings.TrimSpace(phone))
}
