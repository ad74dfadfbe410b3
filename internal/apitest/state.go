package apitest

import (
	"time"
)

// Profile is the account returned by the auth endpoints.
type Profile struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// Platform is a betting platform.
type Platform struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Image         string  `json:"image,omitempty"`
	Enable        bool    `json:"enable"`
	MinDeposit    float64 `json:"minimun_deposit"`
	MaxDeposit    float64 `json:"max_deposit"`
	MinWithdrawal float64 `json:"minimun_with"`
	MaxWithdrawal float64 `json:"max_win"`
}

// Network is a mobile-money operator.
type Network struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	PublicName       string `json:"public_name"`
	Image            string `json:"image,omitempty"`
	ActiveForDeposit bool   `json:"active_for_deposit"`
	ActiveForWith    bool   `json:"active_for_with"`
	DepositAPI       string `json:"deposit_api"`
}

// Account is a platform account the search endpoint can find.
type Account struct {
	App        string
	UserID     int64
	Name       string
	CurrencyID int
}

// Phone is a saved payment phone.
type Phone struct {
	ID      int64  `json:"id"`
	Phone   string `json:"phone"`
	Network int64  `json:"network"`
	owner   string
}

// Identity is a saved bet identity.
type Identity struct {
	ID        int64  `json:"id"`
	UserAppID string `json:"user_app_id"`
	App       string `json:"app"`
	owner     string
}

// Transaction is a submitted deposit or withdrawal.
type Transaction struct {
	ID              int64     `json:"id"`
	Reference       string    `json:"reference"`
	Amount          float64   `json:"amount"`
	TypeTrans       string    `json:"type_trans"`
	Status          string    `json:"status"`
	PhoneNumber     string    `json:"phone_number"`
	Network         int64     `json:"network"`
	App             string    `json:"app"`
	UserAppID       string    `json:"user_app_id"`
	WithdrawalCode  string    `json:"withdriwal_code,omitempty"`
	Source          string    `json:"source"`
	TransactionLink *string   `json:"transaction_link"`
	CreatedAt       time.Time `json:"created_at"`
	IdempotencyKey  string    `json:"-"`
	owner           string
}

// Default fixtures.
const (
	DefaultEmail    = "ada@example.com"
	DefaultPassword = "s3cret-pass"
	PlatformBet     = "1xbet"
	PlatformMel     = "melbet"
	NetworkMTN      = int64(1)
	NetworkMoov     = int64(2)
	MerchantPhone   = "22994000000"
)

func (b *Backend) seed() {
	b.users[DefaultEmail] = &user{
		Profile:      Profile{ID: 1, FirstName: "Ada", LastName: "Lovelace", Email: DefaultEmail, Phone: "22997000000"},
		PasswordHash: hashPassword(DefaultPassword),
	}
	b.platforms = []Platform{
		{ID: PlatformBet, Name: "1xBet", Enable: true, MinDeposit: 200, MaxDeposit: 500000, MinWithdrawal: 500, MaxWithdrawal: 300000},
		{ID: PlatformMel, Name: "Melbet", Enable: true, MinDeposit: 500, MaxDeposit: 100000, MinWithdrawal: 1000, MaxWithdrawal: 100000},
		{ID: "closed", Name: "Closed", Enable: false, MinDeposit: 100, MaxDeposit: 1000, MinWithdrawal: 100, MaxWithdrawal: 1000},
	}
	b.networks = []Network{
		{ID: NetworkMTN, Name: "mtn", PublicName: "MTN", ActiveForDeposit: true, ActiveForWith: true, DepositAPI: "standard"},
		{ID: NetworkMoov, Name: "moov", PublicName: "Moov Money", ActiveForDeposit: true, ActiveForWith: false, DepositAPI: "connect"},
	}
	b.settings = map[string]any{"moov_marchand_phone": MerchantPhone, "minimum_solde": 0}
	b.accounts[PlatformBet+"/12345"] = Account{App: PlatformBet, UserID: 12345, Name: "Ada L.", CurrencyID: SettlementCurrency}
	b.accounts[PlatformBet+"/777"] = Account{App: PlatformBet, UserID: 777, Name: "Euro Player", CurrencyID: 1}
	b.accounts[PlatformMel+"/555"] = Account{App: PlatformMel, UserID: 555, Name: "Ada M.", CurrencyID: SettlementCurrency}
}

// AddUser registers a login.
func (b *Backend) AddUser(profile Profile, password string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if profile.ID == 0 {
		profile.ID = int64(len(b.users) + 1)
	}
	b.users[profile.Email] = &user{Profile: profile, PasswordHash: hashPassword(password)}
}

// AddAccount makes an account findable by the search endpoint.
func (b *Backend) AddAccount(account Account) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accounts[account.App+"/"+itoa(account.UserID)] = account
}

// SetPlatforms replaces the platform list.
func (b *Backend) SetPlatforms(platforms ...Platform) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.platforms = append([]Platform(nil), platforms...)
}

// SetNetworks replaces the network list.
func (b *Backend) SetNetworks(networks ...Network) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.networks = append([]Network(nil), networks...)
}

// SetSettings replaces the settings object.
func (b *Backend) SetSettings(settings map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.settings = settings
}

// Expire invalidates every access token issued so far.
func (b *Backend) Expire() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.generation++
}

// FailRefresh makes the refresh endpoint reject every token.
func (b *Backend) FailRefresh(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failRefresh = fail
}

// RotateRefresh makes refresh responses carry a new refresh token.
func (b *Backend) RotateRefresh(rotate bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rotateRefresh = rotate
}

// Throttle makes submissions fail with 429 and the given wait descriptor
// (for example "0 M:8 S"). An empty descriptor turns it off.
func (b *Backend) Throttle(descriptor string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.throttleWait = descriptor
}

// DepositLink makes deposits return a transaction_link.
func (b *Backend) DepositLink(link string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.depositLink = link
}

// Calls returns how often "METHOD /route" was served.
func (b *Backend) Calls(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[route]
}

// Transactions returns every stored transaction.
func (b *Backend) Transactions() []Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Transaction(nil), b.transactions...)
}

// Identities returns every stored bet identity.
func (b *Backend) Identities() []Identity {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Identity(nil), b.identities...)
}

// Phones returns every stored phone.
func (b *Backend) Phones() []Phone {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Phone(nil), b.phones...)
}
