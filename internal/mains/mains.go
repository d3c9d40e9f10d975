// Package mains resolves the electrical mains frequency whose hum the noise
// reducer can notch out. The frequency is given explicitly (50 or 60) or
// guessed from the system timezone.
package mains

import (
	"fmt"
	"strings"

	tz "github.com/medama-io/go-timezone-country"
	"github.com/thlib/go-timezone-local/tzlocal"
)

// Mode selects how the hum frequency is chosen
type Mode string

// Dehum modes accepted on the command line and in the config file
const (
	ModeOff  Mode = "off"
	ModeAuto Mode = "auto"
	Mode50   Mode = "50"
	Mode60   Mode = "60"
)

// fallbackHz is used when the timezone cannot be mapped to a country.
// 50 Hz covers most of the world's population.
const fallbackHz = 50

// ParseMode validates a dehum setting. The empty string means off.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", ModeOff:
		return ModeOff, nil
	case ModeAuto, Mode50, Mode60:
		return m, nil
	default:
		return "", fmt.Errorf("invalid dehum mode %q (want off, auto, 50 or 60)", s)
	}
}

// Resolve returns the hum frequency in Hz for a mode, or 0 when hum suppression is off
func Resolve(m Mode) float64 {
	switch m {
	case Mode50:
		return 50
	case Mode60:
		return 60
	case ModeAuto:
		return float64(Frequency())
	default:
		return 0
	}
}

// Frequency returns the local mains frequency in Hz (50 or 60) based on the
// runtime timezone, falling back to 50 Hz.
func Frequency() int {
	timezone, err := tzlocal.RuntimeTZ()
	if err != nil {
		return fallbackHz
	}
	return FrequencyForTimezone(timezone)
}

// FrequencyForTimezone returns the mains frequency for an IANA timezone
func FrequencyForTimezone(timezone string) int {
	// No country association
	if timezone == "UTC" || timezone == "GMT" || strings.HasPrefix(timezone, "Etc/") {
		return fallbackHz
	}

	tzMap, err := tz.NewTimezoneCountryMap()
	if err != nil {
		return fallbackHz
	}
	country, err := tzMap.GetCountry(timezone)
	if err != nil {
		return fallbackHz
	}
	return frequencyForCountry(country)
}

func frequencyForCountry(country string) int {
	// Japan is split by region; the Tokyo side is 50 Hz
	if country == "Japan" {
		return 50
	}
	if sixtyHertz[country] {
		return 60
	}
	return 50
}

// sixtyHertz lists countries on 60 Hz mains; everything else is 50 Hz.
// Source: https://en.wikipedia.org/wiki/Mains_electricity_by_country
var sixtyHertz = countrySet(
	// North and Central America
	"United States", "Canada", "Mexico", "Belize", "Costa Rica", "El Salvador",
	"Guatemala", "Honduras", "Nicaragua", "Panama",
	// Caribbean
	"Bahamas", "Barbados", "Cayman Islands", "Cuba", "Dominican Republic", "Haiti",
	"Jamaica", "Puerto Rico", "Trinidad and Tobago", "U.S. Virgin Islands",
	// South America, where 60 Hz predominates
	"Brazil", "Colombia", "Ecuador", "Guyana", "Peru", "Suriname", "Venezuela",
	// Asia
	"South Korea", "Taiwan", "Philippines", "Saudi Arabia",
	// Pacific
	"Guam", "American Samoa", "Marshall Islands", "Micronesia", "Palau",
)

func countrySet(names ...string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
