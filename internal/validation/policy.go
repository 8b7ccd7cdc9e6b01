// Package validation checks signup fields against the configured account policy.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"gopher-auth/internal/config"
)

type Policy struct {
	cfg      config.PolicyConfig
	username *regexp.Regexp
	validate *validator.Validate
}

func NewPolicy(cfg config.PolicyConfig) (*Policy, error) {
	var pattern *regexp.Regexp
	if cfg.UsernamePattern != "" {
		compiled, err := regexp.Compile(cfg.UsernamePattern)
		if err != nil {
			return nil, fmt.Errorf("compile username pattern failed: %w", err)
		}
		pattern = compiled
	}
	return &Policy{
		cfg:      cfg,
		username: pattern,
		validate: validator.New(),
	}, nil
}

func (p *Policy) ValidateFullName(fullName string) error {
	if p.cfg.FullNameMaxLength > 0 && utf8.RuneCountInString(fullName) > p.cfg.FullNameMaxLength {
		return fmt.Errorf("Full name must be at most %d characters long", p.cfg.FullNameMaxLength)
	}
	return nil
}

func (p *Policy) ValidateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n < p.cfg.UsernameMinLength || n > p.cfg.UsernameMaxLength {
		return fmt.Errorf("Username must be between %d and %d characters long", p.cfg.UsernameMinLength, p.cfg.UsernameMaxLength)
	}
	if p.username != nil && !p.username.MatchString(username) {
		return errors.New("Username contains invalid characters")
	}
	return nil
}

// ValidatePassword measures length in bytes since bcrypt truncates past 72.
func (p *Policy) ValidatePassword(password string) error {
	if len(password) < p.cfg.PasswordMinLength || len(password) > p.cfg.PasswordMaxLength {
		return fmt.Errorf("Password must be between %d and %d characters long", p.cfg.PasswordMinLength, p.cfg.PasswordMaxLength)
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}

	switch {
	case p.cfg.PasswordRequireUpper && !upper:
		return errors.New("Password must contain at least one uppercase letter")
	case p.cfg.PasswordRequireLower && !lower:
		return errors.New("Password must contain at least one lowercase letter")
	case p.cfg.PasswordRequireDigit && !digit:
		return errors.New("Password must contain at least one number")
	case p.cfg.PasswordRequireSpecial && !special:
		return errors.New("Password must contain at least one special character")
	}
	return nil
}

func (p *Policy) ValidateEmail(email string) error {
	if p.cfg.EmailMaxLength > 0 && len(email) > p.cfg.EmailMaxLength {
		return fmt.Errorf("Email must be at most %d characters long", p.cfg.EmailMaxLength)
	}
	if err := p.validate.Var(email, "required,email"); err != nil {
		return errors.New("Invalid email format")
	}
	return nil
}
