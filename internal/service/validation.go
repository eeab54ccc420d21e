package service

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-pricing-service/internal/pricing"
)

const (
	maxPromoCodeLength    = 32
	maxInstructionsLength = 1000
)

// ValidatePromoCodeUpsert validates an admin promo code write and returns the
// normalized code.
func ValidatePromoCodeUpsert(code string, discount int64) (string, error) {
	normalized, err := ValidatePromoCode(code)
	if err != nil {
		return "", err
	}

	if discount <= 0 {
		return "", errors.NewValidationError("discount", "discount must be positive")
	}

	return normalized, nil
}

// ValidatePromoCode checks the shape of an admin-supplied code. Customers may
// type anything; only codes stored in the catalog are held to this.
func ValidatePromoCode(code string) (string, error) {
	normalized := pricing.NormalizeCode(code)
	if normalized == "" {
		return "", errors.NewValidationError("code", "promo code is required")
	}

	if len(normalized) > maxPromoCodeLength {
		return "", errors.NewValidationError("code", "promo code too long (max 32 characters)")
	}

	for _, r := range normalized {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return "", errors.NewValidationError("code", "promo code may only contain letters, digits, '-' and '_'")
		}
	}

	return normalized, nil
}

// ParseMode parses a fulfillment mode from a request body.
func ParseMode(raw string) (pricing.FulfillmentMode, error) {
	mode, err := pricing.ParseFulfillmentMode(raw)
	if err != nil {
		return 0, errors.NewValidationError("mode", "mode must be \"delivery\" or \"pickup\"")
	}
	return mode, nil
}

// SanitizeInstructions trims special instructions and caps their length. The
// result never ends in whitespace, even when the cap falls inside a gap.
func SanitizeInstructions(instructions string) string {
	instructions = strings.TrimSpace(instructions)

	if utf8.RuneCountInString(instructions) > maxInstructionsLength {
		instructions = string([]rune(instructions)[:maxInstructionsLength])
		instructions = strings.TrimRightFunc(instructions, unicode.IsSpace)
	}

	return instructions
}
