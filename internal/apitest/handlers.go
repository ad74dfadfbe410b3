package apitest

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/congo-pay/mobcash/internal/middleware"
)

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

func fieldError(c *fiber.Ctx, field, msg string) error {
	return c.Status(http.StatusBadRequest).JSON(fiber.Map{field: []string{msg}})
}

func (b *Backend) userFor(c *fiber.Ctx) *user {
	subject := middleware.SubjectFrom(c)
	for _, u := range b.users {
		if itoa(u.Profile.ID) == subject {
			return u
		}
	}
	return nil
}

func (b *Backend) login(c *fiber.Ctx) error {
	b.hit(c)
	var req struct {
		EmailOrPhone string `json:"email_or_phone"`
		Password     string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	b.mu.Lock()
	var found *user
	for _, u := range b.users {
		if u.Profile.Email == req.EmailOrPhone || u.Profile.Phone == req.EmailOrPhone {
			found = u
			break
		}
	}
	b.mu.Unlock()
	if found == nil || !found.checkPassword(req.Password) {
		return fiber.NewError(http.StatusUnauthorized, "No active account found with the given credentials")
	}

	subject := itoa(found.Profile.ID)
	access, err := b.mint(subject)
	if err != nil {
		return err
	}
	refresh := uuid.NewString()
	b.mu.Lock()
	b.refresh[refresh] = subject
	b.mu.Unlock()
	return c.JSON(fiber.Map{"access": access, "refresh": refresh, "data": found.Profile})
}

func (b *Backend) register(c *fiber.Ctx) error {
	b.hit(c)
	var req struct {
		FirstName  string `json:"first_name"`
		LastName   string `json:"last_name"`
		Email      string `json:"email"`
		Phone      string `json:"phone"`
		Password   string `json:"password"`
		RePassword string `json:"re_password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Email == "" {
		return fieldError(c, "email", "This field is required.")
	}
	if req.Password == "" || req.Password != req.RePassword {
		return fieldError(c, "re_password", "Passwords do not match.")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.users[req.Email]; exists {
		return fieldError(c, "email", "user with this email already exists.")
	}
	profile := Profile{
		ID:        int64(len(b.users) + 1),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
	}
	b.users[req.Email] = &user{Profile: profile, PasswordHash: hashPassword(req.Password)}
	return c.Status(http.StatusCreated).JSON(profile)
}

func (b *Backend) refreshToken(c *fiber.Ctx) error {
	b.hit(c)
	var req struct {
		Refresh string `json:"refresh"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	b.mu.Lock()
	subject, ok := b.refresh[req.Refresh]
	fail, rotate := b.failRefresh, b.rotateRefresh
	b.mu.Unlock()
	if fail || !ok {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{
			"detail": "Token is invalid or expired",
			"code":   "token_not_valid",
		})
	}

	access, err := b.mint(subject)
	if err != nil {
		return err
	}
	out := fiber.Map{"access": access}
	if rotate {
		next := uuid.NewString()
		b.mu.Lock()
		delete(b.refresh, req.Refresh)
		b.refresh[next] = subject
		b.mu.Unlock()
		out["refresh"] = next
	}
	return c.JSON(out)
}

func (b *Backend) me(c *fiber.Ctx) error {
	b.hit(c)
	b.mu.Lock()
	defer b.mu.Unlock()
	u := b.userFor(c)
	if u == nil {
		return fiber.NewError(http.StatusNotFound, "User not found.")
	}
	return c.JSON(u.Profile)
}

func (b *Backend) updateMe(c *fiber.Ctx) error {
	b.hit(c)
	var req Profile
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	u := b.userFor(c)
	if u == nil {
		return fiber.NewError(http.StatusNotFound, "User not found.")
	}
	if req.FirstName != "" {
		u.Profile.FirstName = req.FirstName
	}
	if req.LastName != "" {
		u.Profile.LastName = req.LastName
	}
	if req.Phone != "" {
		u.Profile.Phone = req.Phone
	}
	if req.Email != "" && req.Email != u.Profile.Email {
		delete(b.users, u.Profile.Email)
		u.Profile.Email = req.Email
		b.users[req.Email] = u
	}
	return c.JSON(u.Profile)
}

func (b *Backend) changePassword(c *fiber.Ctx) error {
	b.hit(c)
	var req struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
		RePassword  string `json:"confirm_new_password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	u := b.userFor(c)
	if u == nil {
		return fiber.NewError(http.StatusNotFound, "User not found.")
	}
	if !u.checkPassword(req.OldPassword) {
		return fieldError(c, "old_password", "Wrong password.")
	}
	if req.NewPassword == "" || req.NewPassword != req.RePassword {
		return fieldError(c, "confirm_new_password", "Passwords do not match.")
	}
	u.PasswordHash = hashPassword(req.NewPassword)
	return c.JSON(fiber.Map{"detail": "Password updated."})
}

func (b *Backend) listPlatforms(c *fiber.Ctx) error {
	b.hit(c)
	b.mu.Lock()
	defer b.mu.Unlock()
	return c.JSON(b.platforms)
}

func (b *Backend) listNetworks(c *fiber.Ctx) error {
	b.hit(c)
	b.mu.Lock()
	defer b.mu.Unlock()
	return c.JSON(b.networks)
}

func (b *Backend) getSettings(c *fiber.Ctx) error {
	b.hit(c)
	b.mu.Lock()
	defer b.mu.Unlock()
	return c.JSON(b.settings)
}

func (b *Backend) searchUser(c *fiber.Ctx) error {
	b.hit(c)
	app, userID := c.Query("app"), strings.TrimSpace(c.Query("userid"))
	if userID == "" {
		return fieldError(c, "user_app_id", "This field is required.")
	}
	if app == "" {
		return fieldError(c, "app", "This field is required.")
	}
	b.mu.Lock()
	account, ok := b.accounts[app+"/"+userID]
	b.mu.Unlock()
	if !ok {
		return c.JSON(fiber.Map{"UserId": 0, "Name": "", "CurrencyId": 0})
	}
	return c.JSON(fiber.Map{"UserId": account.UserID, "Name": account.Name, "CurrencyId": account.CurrencyID})
}

func (b *Backend) networkByID(id int64) (Network, bool) {
	for _, n := range b.networks {
		if n.ID == id {
			return n, true
		}
	}
	return Network{}, false
}

func (b *Backend) platformByID(id string) (Platform, bool) {
	for _, p := range b.platforms {
		if p.ID == id {
			return p, true
		}
	}
	return Platform{}, false
}

func (b *Backend) listPhones(c *fiber.Ctx) error {
	b.hit(c)
	network, _ := strconv.ParseInt(c.Query("network"), 10, 64)
	subject := middleware.SubjectFrom(c)
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []Phone{}
	for _, p := range b.phones {
		if p.owner == subject && (network == 0 || p.Network == network) {
			out = append(out, p)
		}
	}
	return c.JSON(out)
}

type phoneBody struct {
	Phone   string `json:"phone"`
	Network int64  `json:"network"`
}

func (b *Backend) checkPhone(req phoneBody) (string, string) {
	if len(req.Phone) < 8 || strings.Trim(req.Phone, "0123456789") != "" {
		return "phone", "Enter a valid phone number."
	}
	if _, ok := b.networkByID(req.Network); !ok {
		return "network", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", req.Network)
	}
	return "", ""
}

func (b *Backend) createPhone(c *fiber.Ctx) error {
	b.hit(c)
	var req phoneBody
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if field, msg := b.checkPhone(req); field != "" {
		return fieldError(c, field, msg)
	}
	phone := Phone{ID: b.id(), Phone: req.Phone, Network: req.Network, owner: middleware.SubjectFrom(c)}
	b.phones = append(b.phones, phone)
	return c.Status(http.StatusCreated).JSON(phone)
}

func (b *Backend) updatePhone(c *fiber.Ctx) error {
	b.hit(c)
	id, _ := strconv.ParseInt(c.Params("id"), 10, 64)
	var req phoneBody
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if field, msg := b.checkPhone(req); field != "" {
		return fieldError(c, field, msg)
	}
	subject := middleware.SubjectFrom(c)
	for i := range b.phones {
		if b.phones[i].ID == id && b.phones[i].owner == subject {
			b.phones[i].Phone, b.phones[i].Network = req.Phone, req.Network
			return c.JSON(b.phones[i])
		}
	}
	return fiber.NewError(http.StatusNotFound, "Not found.")
}

func (b *Backend) deletePhone(c *fiber.Ctx) error {
	b.hit(c)
	id, _ := strconv.ParseInt(c.Params("id"), 10, 64)
	subject := middleware.SubjectFrom(c)
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.phones {
		if b.phones[i].ID == id && b.phones[i].owner == subject {
			b.phones = append(b.phones[:i], b.phones[i+1:]...)
			return c.SendStatus(http.StatusNoContent)
		}
	}
	return fiber.NewError(http.StatusNotFound, "Not found.")
}

func (b *Backend) listIdentities(c *fiber.Ctx) error {
	b.hit(c)
	app := c.Query("bet_app")
	subject := middleware.SubjectFrom(c)
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []Identity{}
	for _, ident := range b.identities {
		if ident.owner == subject && (app == "" || ident.App == app) {
			out = append(out, ident)
		}
	}
	return c.JSON(out)
}

type identityBody struct {
	UserAppID string `json:"user_app_id"`
	App       string `json:"app"`
}

// checkIdentity returns the offending field and its message, or empty strings.
func (b *Backend) checkIdentity(subject string, req identityBody, skipID int64) (string, string) {
	if strings.TrimSpace(req.UserAppID) == "" {
		return "user_app_id", "This field is required."
	}
	if _, ok := b.platformByID(req.App); !ok {
		return "app", "Invalid platform."
	}
	for _, ident := range b.identities {
		if ident.owner == subject && ident.ID != skipID && ident.App == req.App && ident.UserAppID == req.UserAppID {
			return "user_app_id", "This bet id is already registered."
		}
	}
	return "", ""
}

func (b *Backend) createIdentity(c *fiber.Ctx) error {
	b.hit(c)
	var req identityBody
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	subject := middleware.SubjectFrom(c)
	b.mu.Lock()
	defer b.mu.Unlock()
	if field, msg := b.checkIdentity(subject, req, 0); field != "" {
		return fieldError(c, field, msg)
	}
	ident := Identity{ID: b.id(), UserAppID: req.UserAppID, App: req.App, owner: subject}
	b.identities = append(b.identities, ident)
	return c.Status(http.StatusCreated).JSON(ident)
}

func (b *Backend) updateIdentity(c *fiber.Ctx) error {
	b.hit(c)
	id, _ := strconv.ParseInt(c.Params("id"), 10, 64)
	var req identityBody
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	subject := middleware.SubjectFrom(c)
	b.mu.Lock()
	defer b.mu.Unlock()
	if field, msg := b.checkIdentity(subject, req, id); field != "" {
		return fieldError(c, field, msg)
	}
	for i := range b.identities {
		if b.identities[i].ID == id && b.identities[i].owner == subject {
			b.identities[i].UserAppID, b.identities[i].App = req.UserAppID, req.App
			return c.JSON(b.identities[i])
		}
	}
	return fiber.NewError(http.StatusNotFound, "Not found.")
}

func (b *Backend) deleteIdentity(c *fiber.Ctx) error {
	b.hit(c)
	id, _ := strconv.ParseInt(c.Params("id"), 10, 64)
	subject := middleware.SubjectFrom(c)
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.identities {
		if b.identities[i].ID == id && b.identities[i].owner == subject {
			b.identities = append(b.identities[:i], b.identities[i+1:]...)
			return c.SendStatus(http.StatusNoContent)
		}
	}
	return fiber.NewError(http.StatusNotFound, "Not found.")
}

func (b *Backend) history(c *fiber.Ctx) error {
	b.hit(c)
	page := c.QueryInt("page", 1)
	size := c.QueryInt("page_size", 10)
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 10
	}
	typ, status := c.Query("type_trans"), c.Query("status")
	search := strings.ToLower(c.Query("search"))
	subject := middleware.SubjectFrom(c)

	b.mu.Lock()
	matched := []Transaction{}
	for i := len(b.transactions) - 1; i >= 0; i-- {
		tx := b.transactions[i]
		switch {
		case tx.owner != subject,
			typ != "" && tx.TypeTrans != typ,
			status != "" && tx.Status != status,
			search != "" && !strings.Contains(strings.ToLower(tx.Reference+" "+tx.PhoneNumber+" "+tx.UserAppID), search):
			continue
		}
		matched = append(matched, tx)
	}
	b.mu.Unlock()

	start := (page - 1) * size
	if start > len(matched) {
		start = len(matched)
	}
	end := start + size
	if end > len(matched) {
		end = len(matched)
	}

	link := func(p int) any {
		if p < 1 || (p-1)*size >= len(matched) {
			return nil
		}
		q := url.Values{}
		for key, value := range c.Queries() {
			q.Set(key, value)
		}
		q.Set("page", strconv.Itoa(p))
		return c.BaseURL() + c.Path() + "?" + q.Encode()
	}
	return c.JSON(fiber.Map{
		"count":    len(matched),
		"next":     link(page + 1),
		"previous": link(page - 1),
		"results":  matched[start:end],
	})
}

type submissionBody struct {
	Amount         float64 `json:"amount"`
	PhoneNumber    string  `json:"phone_number"`
	App            string  `json:"app"`
	UserAppID      string  `json:"user_app_id"`
	Network        int64   `json:"network"`
	WithdrawalCode string  `json:"withdriwal_code"`
	Source         string  `json:"source"`
}

func (b *Backend) deposit(c *fiber.Ctx) error {
	return b.submit(c, "deposit")
}

func (b *Backend) withdraw(c *fiber.Ctx) error {
	return b.submit(c, "withdrawal")
}

func (b *Backend) submit(c *fiber.Ctx, kind string) error {
	b.hit(c)
	var req submissionBody
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	subject := middleware.SubjectFrom(c)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.throttleWait != "" {
		return c.Status(http.StatusTooManyRequests).JSON(fiber.Map{
			"detail":             "Request was throttled.",
			"error_time_message": b.throttleWait,
		})
	}

	platform, ok := b.platformByID(req.App)
	if !ok || !platform.Enable {
		return fieldError(c, "app", "Invalid platform.")
	}
	network, ok := b.networkByID(req.Network)
	if !ok || (kind == "deposit" && !network.ActiveForDeposit) || (kind == "withdrawal" && !network.ActiveForWith) {
		return fieldError(c, "network", "This network is not available.")
	}
	lo, hi := platform.MinDeposit, platform.MaxDeposit
	if kind == "withdrawal" {
		lo, hi = platform.MinWithdrawal, platform.MaxWithdrawal
	}
	if req.Amount < lo || req.Amount > hi {
		return fieldError(c, "amount", fmt.Sprintf("Amount must be between %.0f and %.0f.", lo, hi))
	}
	if kind == "withdrawal" && strings.TrimSpace(req.WithdrawalCode) == "" {
		return fieldError(c, "withdriwal_code", "This field is required.")
	}
	if req.UserAppID == "" {
		return fieldError(c, "user_app_id", "This field is required.")
	}

	id := b.id()
	tx := Transaction{
		ID:             id,
		Reference:      fmt.Sprintf("%s-%06d", kind, id),
		Amount:         req.Amount,
		TypeTrans:      kind,
		Status:         "pending",
		PhoneNumber:    req.PhoneNumber,
		Network:        req.Network,
		App:            req.App,
		UserAppID:      req.UserAppID,
		WithdrawalCode: req.WithdrawalCode,
		Source:         req.Source,
		CreatedAt:      time.Now().UTC(),
		IdempotencyKey: c.Get(middleware.IdempotencyKeyHeader),
		owner:          subject,
	}
	if kind == "deposit" && b.depositLink != "" {
		link := b.depositLink
		tx.TransactionLink = &link
		tx.Status = "init_payment"
	}
	b.transactions = append(b.transactions, tx)
	return c.Status(http.StatusCreated).JSON(tx)
}
