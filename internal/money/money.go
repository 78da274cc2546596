// Package money formats whole-unit amounts for display and parses them back.
// Amounts are whole currency units; there is no minor-unit handling here.
package money

import "strings"

// Format renders a non-negative amount with a comma every three digits,
// counting from the right: 1234567 -> "1,234,567".
func Format(amount int64) string {
	digits := []byte(itoa(amount))

	var b strings.Builder
	b.Grow(len(digits) + len(digits)/3)
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteByte(d)
	}
	return b.String()
}

// Parse strips everything but digits and parses the rest as base 10.
// Empty or digit-free input parses to 0, so Parse never fails on display
// strings ("1,234,567", "$500,000", "abc").
func Parse(display string) int64 {
	var n int64
	for i := 0; i < len(display); i++ {
		c := display[i]
		if c < '0' || c > '9' {
			continue
		}
		n = n*10 + int64(c-'0')
	}
	return n
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
