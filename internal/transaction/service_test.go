package transaction

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/congo-pay/mobcash/internal/apperr"
	"github.com/congo-pay/mobcash/internal/catalog"
	"github.com/congo-pay/mobcash/internal/client"
)

func validRequest() Request {
	return Request{
		Amount:      1000,
		PhoneNumber: "22997000000",
		App:         "1xbet",
		UserAppID:   "12345",
		Network:     1,
	}
}

func TestDepositDefaultsSourceAndKey(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, Options{})

	tx, err := svc.Deposit(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if tx.TypeTrans != catalog.Deposit || tx.Source != SourceWeb || tx.Status != StatusPending {
		t.Fatalf("unexpected transaction %+v", tx)
	}
	reqs := repo.Requests()
	if len(reqs) != 1 || reqs[0].IdempotencyKey == "" || reqs[0].WithdrawalCode != "" {
		t.Fatalf("unexpected request %+v", reqs)
	}
}

func TestInvalidRequestIsNotSent(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, Options{})

	bad := validRequest()
	bad.PhoneNumber = "12"
	bad.Amount = 0
	_, err := svc.Deposit(context.Background(), bad)
	failure, ok := apperr.As(err)
	if !ok || failure.Kind != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if failure.FieldMessage("phone_number") == "" || failure.FieldMessage("amount") == "" {
		t.Fatalf("expected field errors, got %+v", failure.Fields)
	}
	if len(repo.Requests()) != 0 {
		t.Fatal("invalid request must not reach the repository")
	}
}

func TestWithdrawRequiresCode(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, Options{WithdrawalCodeMinLength: 4})

	req := validRequest()
	req.WithdrawalCode = " 12 "
	if _, err := svc.Withdraw(context.Background(), req); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	req.WithdrawalCode = "1234"
	tx, err := svc.Withdraw(context.Background(), req)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if tx.TypeTrans != catalog.Withdrawal {
		t.Fatalf("unexpected type %s", tx.TypeTrans)
	}
	if got := repo.Requests()[0].WithdrawalCode; got != "1234" {
		t.Fatalf("unexpected code %q", got)
	}
}

func TestIdempotencyKeyReusedAcrossRetries(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, Options{})

	req := validRequest()
	req.IdempotencyKey = "submission-1"
	first, _ := svc.Deposit(context.Background(), req)
	second, _ := svc.Deposit(context.Background(), req)
	if first.ID != second.ID {
		t.Fatalf("retry created a second transaction: %d vs %d", first.ID, second.ID)
	}
}

func TestHistoryPaging(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, Options{})
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := svc.Deposit(ctx, validRequest()); err != nil {
			t.Fatalf("deposit: %v", err)
		}
	}
	req := validRequest()
	req.WithdrawalCode = "9999"
	if _, err := svc.Withdraw(ctx, req); err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	page, err := svc.History(ctx, Filter{Page: 1, PageSize: 2, Type: catalog.Deposit})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if page.Count != 3 || len(page.Results) != 2 || !page.HasNext() || page.HasPrevious() {
		t.Fatalf("unexpected first page %+v", page)
	}
	last, _ := svc.History(ctx, Filter{Page: 2, PageSize: 2, Type: catalog.Deposit})
	if len(last.Results) != 1 || last.HasNext() || !last.HasPrevious() {
		t.Fatalf("unexpected last page %+v", last)
	}
}

type recordingAPI struct {
	req  client.Request
	body string
}

func (a *recordingAPI) JSON(_ context.Context, req client.Request, out any) error {
	a.req = req
	return json.Unmarshal([]byte(a.body), out)
}

func TestRemoteRepositoryWire(t *testing.T) {
	api := &recordingAPI{body: `{"id":9,"amount":"1000.00","type_trans":"deposit","status":"init_payment","transaction_link":"https://pay.example/x"}`}
	repo := NewRemoteRepository(api)

	req := validRequest()
	req.Source = SourceWeb
	req.IdempotencyKey = "k-1"
	tx, err := repo.Submit(context.Background(), catalog.Deposit, req)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if api.req.Path != "/mobcash/transaction-deposit" || api.req.Header["Idempotency-Key"] != "k-1" {
		t.Fatalf("unexpected request %+v", api.req)
	}
	body, _ := json.Marshal(api.req.Body)
	var wire map[string]any
	_ = json.Unmarshal(body, &wire)
	if wire["source"] != "web" || wire["phone_number"] != "22997000000" {
		t.Fatalf("unexpected wire body %s", body)
	}
	if _, ok := wire["withdriwal_code"]; ok {
		t.Fatal("deposit must not carry a withdrawal code")
	}
	if !tx.HasLink() || tx.Amount != 1000 || tx.Status != StatusInitPayment {
		t.Fatalf("unexpected transaction %+v", tx)
	}

	api.body = `{"count":0,"next":null,"previous":null,"results":[]}`
	if _, err := repo.History(context.Background(), Filter{Page: 2, Status: StatusPending, Search: "abc"}); err != nil {
		t.Fatalf("history: %v", err)
	}
	q := api.req.Query
	if q.Get("page") != "2" || q.Get("status") != "pending" || q.Get("search") != "abc" || q.Has("page_size") {
		t.Fatalf("unexpected query %v", q)
	}
}
