package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Direction is the flow a transaction moves money in.
type Direction string

const (
	Deposit    Direction = "deposit"
	Withdrawal Direction = "withdrawal"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool { return d == Deposit || d == Withdrawal }

// Amount accepts both JSON numbers and decimal strings.
type Amount float64

// UnmarshalJSON decodes 1000, 1000.5, "1000.00" and null.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*a = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*a = 0
			return nil
		}
		data = []byte(s)
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("amount %q: %w", data, err)
	}
	*a = Amount(f)
	return nil
}

// Platform is a betting platform with per-direction amount bounds.
type Platform struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Image         string `json:"image,omitempty"`
	Enabled       bool   `json:"enable"`
	MinDeposit    Amount `json:"minimun_deposit"`
	MaxDeposit    Amount `json:"max_deposit"`
	MinWithdrawal Amount `json:"minimun_with"`
	MaxWithdrawal Amount `json:"max_win"`
}

// Bounds returns the inclusive amount range for d.
func (p Platform) Bounds(d Direction) (lo, hi float64) {
	if d == Withdrawal {
		return float64(p.MinWithdrawal), float64(p.MaxWithdrawal)
	}
	return float64(p.MinDeposit), float64(p.MaxDeposit)
}

// Allows reports whether amount is positive and inside the bounds for d.
func (p Platform) Allows(d Direction, amount float64) bool {
	lo, hi := p.Bounds(d)
	return amount > 0 && amount >= lo && amount <= hi
}

// DepositAPIConnect marks networks whose deposits are confirmed by USSD.
const DepositAPIConnect = "connect"

// Network is a mobile-money operator.
type Network struct {
	ID                  int64  `json:"id"`
	Name                string `json:"name"`
	PublicName          string `json:"public_name"`
	Image               string `json:"image,omitempty"`
	ActiveForDeposit    bool   `json:"active_for_deposit"`
	ActiveForWithdrawal bool   `json:"active_for_with"`
	DepositAPI          string `json:"deposit_api"`
}

// ActiveFor reports whether the network accepts d.
func (n Network) ActiveFor(d Direction) bool {
	if d == Withdrawal {
		return n.ActiveForWithdrawal
	}
	return n.ActiveForDeposit
}

// MoovConnect reports whether deposits on n finish with a Moov USSD prompt.
func (n Network) MoovConnect() bool {
	return strings.EqualFold(strings.TrimSpace(n.Name), "moov") && n.DepositAPI == DepositAPIConnect
}

// DisplayName prefers the public name.
func (n Network) DisplayName() string {
	if n.PublicName != "" {
		return n.PublicName
	}
	return n.Name
}

// Settings holds the backend-wide configuration the client needs.
type Settings struct {
	MoovMerchantPhone string `json:"moov_merchant_phone"`
}

// UnmarshalJSON also accepts the legacy moov_marchand_phone spelling.
func (s *Settings) UnmarshalJSON(data []byte) error {
	var raw struct {
		Merchant       *string `json:"moov_merchant_phone"`
		LegacyMerchant *string `json:"moov_marchand_phone"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.MoovMerchantPhone = ""
	if raw.Merchant != nil && strings.TrimSpace(*raw.Merchant) != "" {
		s.MoovMerchantPhone = strings.TrimSpace(*raw.Merchant)
	} else if raw.LegacyMerchant != nil {
		s.MoovMerchantPhone = strings.TrimSpace(*raw.LegacyMerchant)
	}
	return nil
}
