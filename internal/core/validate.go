package core

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

// Validator collects field errors and reports them as one ValidationError.
type Validator struct {
	errors []string
}

func (v *Validator) add(field, msg string) {
	v.errors = append(v.errors, fmt.Sprintf("%s: %s", field, msg))
}

// Check records msg for field when ok is false.
func (v *Validator) Check(ok bool, field, msg string) {
	if !ok {
		v.add(field, msg)
	}
}

// Length checks that s has between min and max characters (max <= 0 means unbounded).
func (v *Validator) Length(s, field string, min, max int, msg string) {
	n := utf8.RuneCountInString(s)
	if n < min || (max > 0 && n > max) {
		v.add(field, msg)
	}
}

func (v *Validator) Email(s, field string) {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s || !strings.Contains(s[strings.LastIndex(s, "@")+1:], ".") {
		v.add(field, "Invalid email format")
	}
}

// Err returns nil when every check passed.
func (v *Validator) Err() error {
	if len(v.errors) == 0 {
		return nil
	}
	return ValidationError("%s", strings.Join(v.errors, ", "))
}

// ValidatePage enforces page >= 1 and 1 <= limit <= 100.
func ValidatePage(page, limit int) error {
	if page < 1 {
		return ValidationError("Page must be greater than 0")
	}
	if limit < 1 || limit > 100 {
		return ValidationError("Limit must be between 1 and 100")
	}
	return nil
}

func ValidateTransactionType(t TransactionType) error {
	if !t.IsValid() {
		return ValidationError("Transaction type must be 'income' or 'expense'")
	}
	return nil
}

func ValidatePeriodType(p PeriodType) error {
	if !p.IsValid() {
		return ValidationError("Period type must be 'weekly', 'monthly', 'quarterly', or 'yearly'")
	}
	return nil
}

// ParseDateField parses a YYYY-MM-DD value, naming the field on failure.
func ParseDateField(field, s string) (Date, error) {
	d, err := ParseDate(s)
	if err != nil {
		return Date{}, ValidationError("Invalid %s format. Use YYYY-MM-DD", field)
	}
	return d, nil
}
