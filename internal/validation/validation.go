package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/kjstillabower/weather-widget/internal/models"
)

// ErrInvalidInput is wrapped by every error in this package. Input errors are
// rejected before any fetch is issued.
var ErrInvalidInput = errors.New("invalid input")

// ErrCityEmpty is returned when the city is empty or whitespace-only after trim.
var ErrCityEmpty = fmt.Errorf("%w: city is required", ErrInvalidInput)

// ErrCityTooShort is returned when the city length is below the minimum.
var ErrCityTooShort = fmt.Errorf("%w: city too short", ErrInvalidInput)

// ErrCityTooLong is returned when the city length exceeds the maximum.
var ErrCityTooLong = fmt.Errorf("%w: city too long", ErrInvalidInput)

// ErrCityInvalidChars is returned when the city contains disallowed characters.
var ErrCityInvalidChars = fmt.Errorf("%w: city contains invalid characters", ErrInvalidInput)

// ErrCoordinatesOutOfRange is returned for latitude outside [-90, 90] or
// longitude outside [-180, 180].
var ErrCoordinatesOutOfRange = fmt.Errorf("%w: coordinates out of range", ErrInvalidInput)

// ValidateCity trims the input, enforces length bounds (minLen, maxLen in runes),
// and restricts to allowed characters: letters (Unicode), digits, space, comma,
// hyphen, period, apostrophe. Returns the trimmed string. Case is preserved;
// case-insensitive matching is the provider's concern.
func ValidateCity(input string, minLen, maxLen int) (string, error) {
	s := strings.TrimSpace(input)
	r := []rune(s)
	n := len(r)
	if n == 0 {
		return "", ErrCityEmpty
	}
	if minLen > 0 && n < minLen {
		return "", ErrCityTooShort
	}
	if maxLen > 0 && n > maxLen {
		return "", ErrCityTooLong
	}
	for _, c := range r {
		if !isAllowedCityRune(c) {
			return "", ErrCityInvalidChars
		}
	}
	return s, nil
}

// isAllowedCityRune returns true for letters (Unicode), digits, space, comma, hyphen, period, apostrophe.
func isAllowedCityRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsNumber(r) {
		return true
	}
	switch r {
	case ' ', ',', '-', '.', '\'':
		return true
	}
	return false
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateCoordinates checks that c lies within geographic ranges.
func ValidateCoordinates(c models.Coordinates) error {
	if err := structValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s", ErrCoordinatesOutOfRange, verrs[0].Field())
		}
		return fmt.Errorf("%w: %v", ErrCoordinatesOutOfRange, err)
	}
	return nil
}

// IsInputError reports whether err is a validation failure from this package.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
