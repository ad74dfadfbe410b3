package phone

import "strings"

// UserPhone is a saved payment phone bound to one network.
type UserPhone struct {
	ID      int64  `json:"id"`
	Phone   string `json:"phone"`
	Network int64  `json:"network"`
}

// Input is the create/update payload.
type Input struct {
	Phone   string `json:"phone" validate:"required,numeric,min=8,max=15"`
	Network int64  `json:"network" validate:"gt=0"`
}

// Normalize strips everything but digits: "+229 01 57455419" becomes "2290157455419".
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Display prefixes a stored number with "+".
func Display(phone string) string {
	if phone == "" || strings.HasPrefix(phone, "+") {
		return phone
	}
	return "+" + phone
}
