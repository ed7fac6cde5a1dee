package domain

// IsValidTaxID checks an 11-digit individual tax id: all digits, not a
// single repeated digit, and both mod-11 check digits correct.
func IsValidTaxID(id string) bool {
	if len(id) != 11 {
		return false
	}

	var digits [11]int
	allEqual := true
	for i := 0; i < 11; i++ {
		c := id[i]
		if c < '0' || c > '9' {
			return false
		}
		digits[i] = int(c - '0')
		if i > 0 && c != id[i-1] {
			allEqual = false
		}
	}
	if allEqual {
		return false
	}

	return checkDigit(digits[:9], 10) == digits[9] &&
		checkDigit(digits[:10], 11) == digits[10]
}

func checkDigit(digits []int, firstWeight int) int {
	sum := 0
	for i, d := range digits {
		sum += d * (firstWeight - i)
	}
	rem := sum % 11
	if rem < 2 {
		return 0
	}
	return 11 - rem
}
