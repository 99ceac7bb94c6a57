package fallback

import (
	"strconv"
	"strings"
	"time"

	"field-mapper/internal/rules"
)

// derive composes a value for a target concept from sibling values.
func derive(sib *siblings, concept, target string, now time.Time) (string, []string, bool) {
	switch concept {
	case "full_name":
		return fullName(sib, target)
	case "full_address":
		return fullAddress(sib, target)
	case "age":
		dob, ok := sib.find("date_of_birth", target)
		if !ok {
			return "", nil, false
		}

		t, ok := rules.ParseDate(dob.value)
		if !ok || t.After(now) {
			return "", nil, false
		}

		return strconv.Itoa(now.Year() - t.Year()), []string{dob.name}, true
	default:
		return "", nil, false
	}
}

func fullName(sib *siblings, target string) (string, []string, bool) {
	first, ok1 := sib.find("first_name", target)
	last, ok2 := sib.find("last_name", target)

	if !ok1 || !ok2 {
		return "", nil, false
	}

	value := strings.TrimSpace(first.value) + " " + strings.TrimSpace(last.value)

	return value, []string{first.name, last.name}, true
}

func fullAddress(sib *siblings, target string) (string, []string, bool) {
	street, ok1 := sib.find("street", target)
	city, ok2 := sib.find("city", target)
	state, ok3 := sib.find("state", target)

	if !ok1 || !ok2 || !ok3 {
		return "", nil, false
	}

	value := strings.TrimSpace(street.value) + ", " + strings.TrimSpace(city.value) + ", " + strings.TrimSpace(state.value)
	inputs := []string{street.name, city.name, state.name}

	if zip, ok := sib.find("zip", target); ok {
		value += " " + strings.TrimSpace(zip.value)
		inputs = append(inputs, zip.name)
	}

	return value, inputs, true
}
