package rules

// npiPrefixSum is the Luhn contribution of the "80840" card issuer prefix
// that NPIs are implicitly issued under.
const npiPrefixSum = 24

// ValidNPI reports whether s holds a 10-digit National Provider Identifier
// with a correct check digit. Non-digit characters are ignored.
func ValidNPI(s string) bool {
	digits := onlyDigits(s)
	if len(digits) != 10 {
		return false
	}

	check := int(digits[9] - '0')
	sum := npiPrefixSum
	double := true

	for i := 8; i >= 0; i-- {
		d := int(digits[i] - '0')

		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}

		sum += d
		double = !double
	}

	return (10-sum%10)%10 == check
}

func onlyDigits(s string) string {
	b := make([]byte, 0, len(s))

	for i := range len(s) {
		if s[i] >= '0' && s[i] <= '9' {
			b = append(b, s[i])
		}
	}

	return string(b)
}
