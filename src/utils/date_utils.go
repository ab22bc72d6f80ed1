package utils

import (
	"log"
	"time"
)

// B3DateFormat is the DD/MM/YYYY format used by B3 exports.
const B3DateFormat = "02/01/2006"

// ParseB3Date parses a date string in the B3 export format.
// Logs and returns zero time if parsing fails; callers treat zero time as
// an invalid date (the validator flags it).
func ParseB3Date(dateStr string) time.Time {
	t, err := time.Parse(B3DateFormat, dateStr)
	if err != nil {
		log.Printf("Error parsing date '%s' with format '%s': %v. Returning zero time.", dateStr, B3DateFormat, err)
		return time.Time{}
	}
	return t
}
