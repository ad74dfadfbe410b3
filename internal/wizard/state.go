// Package wizard collects a deposit or withdrawal step by step. State changes
// only through Transition, which returns a new State.
package wizard

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/congo-pay/mobcash/internal/catalog"
	"github.com/congo-pay/mobcash/internal/identity"
	"github.com/congo-pay/mobcash/internal/phone"
	"github.com/congo-pay/mobcash/internal/transaction"
)

// Step is the active wizard step.
type Step int

const (
	StepPlatform Step = iota + 1
	StepIdentity
	StepNetwork
	StepPhone
	StepAmount
)

func (s Step) String() string {
	switch s {
	case StepPlatform:
		return "platform"
	case StepIdentity:
		return "identity"
	case StepNetwork:
		return "network"
	case StepPhone:
		return "phone"
	case StepAmount:
		return "amount"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

var (
	ErrWrongStep           = errors.New("event not allowed at this step")
	ErrConfirming          = errors.New("confirmation is open")
	ErrNotConfirming       = errors.New("confirmation is not open")
	ErrFirstStep           = errors.New("already at the first step")
	ErrPlatformUnavailable = errors.New("platform not available")
	ErrNoIdentity          = errors.New("no bet identity selected")
	ErrIdentityMismatch    = errors.New("bet identity belongs to another platform")
	ErrNetworkInactive     = errors.New("network not active for this direction")
	ErrPhoneMismatch       = errors.New("phone is bound to another network")
	ErrAmountOutOfBounds   = errors.New("amount outside platform bounds")
	ErrCodeTooShort        = errors.New("withdrawal code too short")
	ErrNotWithdrawal       = errors.New("withdrawal code only applies to withdrawals")
	ErrUnknownEvent        = errors.New("unknown wizard event")
)

// State is an immutable snapshot of the wizard. Zero-valued selections
// (empty platform id, zero identity/network/phone id) are unset.
type State struct {
	Direction      catalog.Direction
	Step           Step
	Platform       catalog.Platform
	Identity       identity.BetIdentity
	Network        catalog.Network
	Phone          phone.UserPhone
	Amount         float64
	WithdrawalCode string
	Confirming     bool

	codeMinLength int
}

// NewState starts a wizard for d at the platform step.
func NewState(d catalog.Direction, codeMinLength int) State {
	if codeMinLength <= 0 {
		codeMinLength = transaction.DefaultWithdrawalCodeMinLength
	}
	return State{Direction: d, Step: StepPlatform, codeMinLength: codeMinLength}
}

// Event is one user action.
type Event interface {
	apply(State) (State, error)
}

type (
	SelectPlatform     struct{ Platform catalog.Platform }
	SelectIdentity     struct{ Identity identity.BetIdentity }
	SelectNetwork      struct{ Network catalog.Network }
	SelectPhone        struct{ Phone phone.UserPhone }
	SetAmount          struct{ Amount float64 }
	SetWithdrawalCode  struct{ Code string }
	Back               struct{}
	OpenConfirmation   struct{}
	CancelConfirmation struct{}
)

// Transition applies e to s. On error s is returned unchanged.
func Transition(s State, e Event) (State, error) {
	if e == nil {
		return s, ErrUnknownEvent
	}
	next, err := e.apply(s)
	if err != nil {
		return s, err
	}
	return next, nil
}

func (s State) editable(step Step) error {
	if s.Confirming {
		return ErrConfirming
	}
	if s.Step != step {
		return fmt.Errorf("%w: %s at %s", ErrWrongStep, step, s.Step)
	}
	return nil
}

func (e SelectPlatform) apply(s State) (State, error) {
	if err := s.editable(StepPlatform); err != nil {
		return s, err
	}
	if e.Platform.ID == "" || !e.Platform.Enabled {
		return s, ErrPlatformUnavailable
	}
	if e.Platform.ID != s.Platform.ID {
		s.Identity = identity.BetIdentity{}
	}
	s.Platform = e.Platform
	s.Step = StepIdentity
	return s, nil
}

func (e SelectIdentity) apply(s State) (State, error) {
	if err := s.editable(StepIdentity); err != nil {
		return s, err
	}
	if e.Identity.ID == 0 {
		return s, ErrNoIdentity
	}
	if e.Identity.App != s.Platform.ID {
		return s, ErrIdentityMismatch
	}
	s.Identity = e.Identity
	s.Step = StepNetwork
	return s, nil
}

func (e SelectNetwork) apply(s State) (State, error) {
	if err := s.editable(StepNetwork); err != nil {
		return s, err
	}
	if e.Network.ID == 0 || !e.Network.ActiveFor(s.Direction) {
		return s, ErrNetworkInactive
	}
	if e.Network.ID != s.Network.ID {
		s.Phone = phone.UserPhone{}
	}
	s.Network = e.Network
	s.Step = StepPhone
	return s, nil
}

func (e SelectPhone) apply(s State) (State, error) {
	if err := s.editable(StepPhone); err != nil {
		return s, err
	}
	if e.Phone.ID == 0 || e.Phone.Network != s.Network.ID {
		return s, ErrPhoneMismatch
	}
	s.Phone = e.Phone
	s.Step = StepAmount
	return s, nil
}

func (e SetAmount) apply(s State) (State, error) {
	if err := s.editable(StepAmount); err != nil {
		return s, err
	}
	s.Amount = e.Amount
	return s, nil
}

func (e SetWithdrawalCode) apply(s State) (State, error) {
	if s.Direction != catalog.Withdrawal {
		return s, ErrNotWithdrawal
	}
	if err := s.editable(StepAmount); err != nil {
		return s, err
	}
	s.WithdrawalCode = strings.TrimSpace(e.Code)
	return s, nil
}

func (Back) apply(s State) (State, error) {
	if s.Confirming {
		return s, ErrConfirming
	}
	if s.Step <= StepPlatform {
		return s, ErrFirstStep
	}
	s.Step--
	return s, nil
}

func (OpenConfirmation) apply(s State) (State, error) {
	if s.Confirming {
		return s, ErrConfirming
	}
	if err := Ready(s); err != nil {
		return s, err
	}
	s.Confirming = true
	return s, nil
}

func (CancelConfirmation) apply(s State) (State, error) {
	if !s.Confirming {
		return s, ErrNotConfirming
	}
	s.Confirming = false
	return s, nil
}

// Ready reports why the terminal action is unavailable, or nil when every
// step's predicate holds.
func Ready(s State) error {
	if s.Step != StepAmount {
		return fmt.Errorf("%w: %s", ErrWrongStep, s.Step)
	}
	if s.Platform.ID == "" || !s.Platform.Enabled {
		return ErrPlatformUnavailable
	}
	if s.Identity.ID == 0 {
		return ErrNoIdentity
	}
	if s.Identity.App != s.Platform.ID {
		return ErrIdentityMismatch
	}
	if s.Network.ID == 0 || !s.Network.ActiveFor(s.Direction) {
		return ErrNetworkInactive
	}
	if s.Phone.ID == 0 || s.Phone.Network != s.Network.ID {
		return ErrPhoneMismatch
	}
	if !s.Platform.Allows(s.Direction, s.Amount) {
		lo, hi := s.Platform.Bounds(s.Direction)
		return fmt.Errorf("%w: %v not in [%v, %v]", ErrAmountOutOfBounds, s.Amount, lo, hi)
	}
	if s.Direction == catalog.Withdrawal && utf8.RuneCountInString(s.WithdrawalCode) < s.codeMinLength {
		return fmt.Errorf("%w: need %d characters", ErrCodeTooShort, s.codeMinLength)
	}
	return nil
}

// CanConfirm reports whether OpenConfirmation would succeed.
func CanConfirm(s State) bool { return !s.Confirming && Ready(s) == nil }

// Summary is what the confirmation view shows.
type Summary struct {
	Direction      catalog.Direction
	Platform       string
	BetID          string
	Network        string
	Phone          string
	Amount         float64
	WithdrawalCode string
}

// Summary describes s for the confirmation view.
func (s State) Summary() Summary {
	sum := Summary{
		Direction: s.Direction,
		Platform:  s.Platform.Name,
		BetID:     s.Identity.UserAppID,
		Network:   s.Network.DisplayName(),
		Phone:     phone.Display(s.Phone.Phone),
		Amount:    s.Amount,
	}
	if s.Direction == catalog.Withdrawal {
		sum.WithdrawalCode = s.WithdrawalCode
	}
	return sum
}

// Request builds the submission payload from s.
func (s State) Request() transaction.Request {
	req := transaction.Request{
		Amount:      s.Amount,
		PhoneNumber: phone.Normalize(s.Phone.Phone),
		App:         s.Platform.ID,
		UserAppID:   s.Identity.UserAppID,
		Network:     s.Network.ID,
		Source:      transaction.SourceWeb,
	}
	if s.Direction == catalog.Withdrawal {
		req.WithdrawalCode = s.WithdrawalCode
	}
	return req
}
