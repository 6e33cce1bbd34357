// Package phone resolves international calling codes for hub contact fields.
package phone

import (
	"errors"
	"sort"
	"strings"
)

// ErrUnknownCountry signals that no calling code matches.
var ErrUnknownCountry = errors.New("phone: unknown country")

// byDialLength holds Countries ordered by descending dial-code length, stable
// on table order so ties keep the preferred country.
var byDialLength = func() []Country {
	out := make([]Country, len(Countries))
	copy(out, Countries)
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].DialCode) > len(out[j].DialCode)
	})
	return out
}()

// FindCountryByDialCode returns the country whose calling code prefixes the
// number, preferring the longest code: +1242... is the Bahamas, not the US.
func FindCountryByDialCode(number string) (Country, bool) {
	digits := Digits(number)
	if digits == "" {
		return Country{}, false
	}
	for _, c := range byDialLength {
		if strings.HasPrefix(digits, c.DialCode[1:]) {
			return c, true
		}
	}
	return Country{}, false
}

// FindCountryByISO looks a country up by its two-letter code.
func FindCountryByISO(iso string) (Country, bool) {
	iso = strings.ToUpper(strings.TrimSpace(iso))
	for _, c := range Countries {
		if c.ISO == iso {
			return c, true
		}
	}
	return Country{}, false
}

// Normalize returns number in +<digits> form. Numbers without an explicit
// international prefix are assumed to belong to defaultISO.
func Normalize(number, defaultISO string) (string, error) {
	trimmed := strings.TrimSpace(number)
	digits := Digits(trimmed)
	if digits == "" {
		return "", errors.New("phone: empty number")
	}
	switch {
	case strings.HasPrefix(trimmed, "+"):
		return "+" + digits, nil
	case strings.HasPrefix(digits, "00"):
		return "+" + digits[2:], nil
	}
	c, ok := FindCountryByISO(defaultISO)
	if !ok {
		return "", ErrUnknownCountry
	}
	return c.DialCode + strings.TrimLeft(digits, "0"), nil
}

// Digits strips everything but ASCII digits.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
