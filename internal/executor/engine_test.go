package executor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/hlcopy/hlcopybot/internal/domain"
	"github.com/hlcopy/hlcopybot/internal/notify"
)

type fakeSignalStore struct {
	pending  []domain.Signal
	fetchErr error
	deleted  []int64
}

func (f *fakeSignalStore) FetchPending(ctx context.Context) ([]domain.Signal, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.pending, nil
}

func (f *fakeSignalStore) Delete(ctx context.Context, id int64) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeAccount struct {
	snapshot domain.AccountSnapshot
	err      error
	calls    int
}

func (f *fakeAccount) FetchSnapshot(ctx context.Context, wallet string) (domain.AccountSnapshot, error) {
	f.calls++
	if f.err != nil {
		return domain.AccountSnapshot{}, f.err
	}
	return f.snapshot, nil
}

type fakeSubmitter struct {
	attempts []domain.OrderRequest
	// failAt maps leverage values to the error returned for that attempt;
	// leverages not present succeed.
	failAt map[int]error
}

func (f *fakeSubmitter) Submit(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	f.attempts = append(f.attempts, req)
	if err, ok := f.failAt[req.Leverage]; ok {
		return domain.OrderResult{}, err
	}
	return domain.OrderResult{OrderID: "1", FilledSize: 1, AvgPrice: 100}, nil
}

type recordingSender struct {
	titles   []string
	messages []string
	err      error
}

func (r *recordingSender) Send(ctx context.Context, title, message string) error {
	r.titles = append(r.titles, title)
	r.messages = append(r.messages, message)
	return r.err
}

func (r *recordingSender) Name() string { return "recording" }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(store *fakeSignalStore, account *fakeAccount, submitter *fakeSubmitter, sender *recordingSender) *Engine {
	notifier := notify.NewNotifier([]notify.Sender{sender}, nil, testLogger())
	return NewEngine(store, account, submitter, notifier, "0xwallet", 5.0, testLogger())
}

func testSignal(id int64, coin string, side domain.Side, leverage int) domain.Signal {
	return domain.Signal{
		ID:         id,
		Coin:       coin,
		Side:       side,
		Leverage:   leverage,
		DetectedAt: time.Now(),
	}
}

func TestRunCycleAlreadyOpenSkips(t *testing.T) {
	store := &fakeSignalStore{pending: []domain.Signal{testSignal(1, "BTC", domain.SideLong, 10)}}
	account := &fakeAccount{snapshot: domain.AccountSnapshot{
		Equity:    10000,
		Positions: []domain.OpenPosition{{Coin: "BTC", Side: domain.SideLong, Size: 0.5}},
	}}
	submitter := &fakeSubmitter{}
	sender := &recordingSender{}

	engine := newTestEngine(store, account, submitter, sender)
	if err := engine.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle returned error: %v", err)
	}

	if len(submitter.attempts) != 0 {
		t.Fatalf("expected no order attempts, got %d", len(submitter.attempts))
	}
	if len(store.deleted) != 1 || store.deleted[0] != 1 {
		t.Fatalf("expected exactly one delete of id 1, got %v", store.deleted)
	}
	if len(sender.titles) != 1 || !strings.Contains(sender.titles[0], "already open") {
		t.Fatalf("expected one already-open notification, got %v", sender.titles)
	}
}

func TestRunCycleOppositeSideIsNotExisting(t *testing.T) {
	store := &fakeSignalStore{pending: []domain.Signal{testSignal(1, "BTC", domain.SideShort, 10)}}
	account := &fakeAccount{snapshot: domain.AccountSnapshot{
		Equity:    10000,
		Positions: []domain.OpenPosition{{Coin: "BTC", Side: domain.SideLong, Size: 0.5}},
	}}
	submitter := &fakeSubmitter{}
	sender := &recordingSender{}

	engine := newTestEngine(store, account, submitter, sender)
	if err := engine.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle returned error: %v", err)
	}

	if len(submitter.attempts) != 1 {
		t.Fatalf("expected one order attempt for the SHORT, got %d", len(submitter.attempts))
	}
}

func TestRunCycleInsufficientFunds(t *testing.T) {
	store := &fakeSignalStore{pending: []domain.Signal{testSignal(7, "ETH", domain.SideLong, 10)}}
	account := &fakeAccount{snapshot: domain.AccountSnapshot{Equity: 0}}
	submitter := &fakeSubmitter{}
	sender := &recordingSender{}

	engine := newTestEngine(store, account, submitter, sender)
	if err := engine.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle returned error: %v", err)
	}

	if len(submitter.attempts) != 0 {
		t.Fatalf("expected no order attempts, got %d", len(submitter.attempts))
	}
	if len(store.deleted) != 1 || store.deleted[0] != 7 {
		t.Fatalf("expected exactly one delete of id 7, got %v", store.deleted)
	}
	if len(sender.titles) != 1 || !strings.Contains(sender.titles[0], "insufficient funds") {
		t.Fatalf("expected insufficient-funds notification, got %v", sender.titles)
	}
}

func TestRunCycleLadderStopsAtFirstSuccess(t *testing.T) {
	rejected := errors.New("margin limit")
	store := &fakeSignalStore{pending: []domain.Signal{testSignal(3, "BTC", domain.SideLong, 10)}}
	account := &fakeAccount{snapshot: domain.AccountSnapshot{Equity: 10000}}
	submitter := &fakeSubmitter{failAt: map[int]error{10: rejected}}
	sender := &recordingSender{}

	engine := newTestEngine(store, account, submitter, sender)
	if err := engine.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle returned error: %v", err)
	}

	if len(submitter.attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(submitter.attempts))
	}
	if submitter.attempts[0].Leverage != 10 || submitter.attempts[1].Leverage != 5 {
		t.Fatalf("unexpected attempt leverages: %+v", submitter.attempts)
	}
	if len(sender.messages) != 1 || !strings.Contains(sender.messages[0], "Leverage: 5x") {
		t.Fatalf("expected notification with leverage 5x, got %v", sender.messages)
	}
	if !strings.Contains(sender.titles[0], "OPENED") {
		t.Fatalf("expected OPENED title, got %q", sender.titles[0])
	}
}

func TestRunCycleThirdCandidateSucceeds(t *testing.T) {
	rejected := errors.New("rejected")
	store := &fakeSignalStore{pending: []domain.Signal{testSignal(9, "BTC", domain.SideLong, 10)}}
	account := &fakeAccount{snapshot: domain.AccountSnapshot{Equity: 10000}}
	submitter := &fakeSubmitter{failAt: map[int]error{10: rejected, 5: rejected}}
	sender := &recordingSender{}

	engine := newTestEngine(store, account, submitter, sender)
	if err := engine.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle returned error: %v", err)
	}

	if len(submitter.attempts) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(submitter.attempts))
	}
	if submitter.attempts[2].Leverage != 3 {
		t.Fatalf("expected final attempt at leverage 3, got %d", submitter.attempts[2].Leverage)
	}
	if submitter.attempts[2].NotionalUSD != 500 {
		t.Fatalf("expected notional 500, got %v", submitter.attempts[2].NotionalUSD)
	}
	if len(sender.messages) != 1 || !strings.Contains(sender.messages[0], "Leverage: 3x") {
		t.Fatalf("expected notification with leverage 3x, got %v", sender.messages)
	}
	if len(store.deleted) != 1 || store.deleted[0] != 9 {
		t.Fatalf("expected one delete of id 9, got %v", store.deleted)
	}
}

func TestRunCycleLadderExhausted(t *testing.T) {
	rejected := errors.New("rejected")
	store := &fakeSignalStore{pending: []domain.Signal{testSignal(4, "SOL", domain.SideShort, 10)}}
	account := &fakeAccount{snapshot: domain.AccountSnapshot{Equity: 10000}}
	submitter := &fakeSubmitter{failAt: map[int]error{10: rejected, 5: rejected, 3: rejected, 1: rejected}}
	sender := &recordingSender{}

	engine := newTestEngine(store, account, submitter, sender)
	if err := engine.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle returned error: %v", err)
	}

	if len(submitter.attempts) != 4 {
		t.Fatalf("expected 4 attempts, got %d", len(submitter.attempts))
	}
	if len(sender.titles) != 1 || !strings.Contains(sender.titles[0], "FAILED") {
		t.Fatalf("expected FAILED notification, got %v", sender.titles)
	}
	if len(store.deleted) != 1 {
		t.Fatalf("exhausted signal must still be deleted, got %v", store.deleted)
	}
}

func TestRunCycleSnapshotFailureAbortsCycle(t *testing.T) {
	store := &fakeSignalStore{pending: []domain.Signal{
		testSignal(1, "BTC", domain.SideLong, 10),
		testSignal(2, "ETH", domain.SideShort, 10),
	}}
	account := &fakeAccount{err: domain.ErrUpstreamUnavailable}
	submitter := &fakeSubmitter{}
	sender := &recordingSender{}

	engine := newTestEngine(store, account, submitter, sender)
	err := engine.RunCycle(context.Background())
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}

	if len(submitter.attempts) != 0 {
		t.Fatalf("expected no order attempts, got %d", len(submitter.attempts))
	}
	if len(store.deleted) != 0 {
		t.Fatalf("no signals may be deleted on snapshot failure, got %v", store.deleted)
	}
	if len(sender.titles) != 0 {
		t.Fatalf("expected no notifications, got %v", sender.titles)
	}
}

func TestRunCycleIsolatesSignalFailures(t *testing.T) {
	rejected := errors.New("rejected")
	store := &fakeSignalStore{pending: []domain.Signal{
		testSignal(1, "BTC", domain.SideLong, 1), // ladder is just [1], fails
		testSignal(2, "ETH", domain.SideShort, 1),
	}}
	account := &fakeAccount{snapshot: domain.AccountSnapshot{Equity: 10000}}
	submitter := &fakeSubmitter{failAt: map[int]error{}}
	sender := &recordingSender{}

	// Only BTC fails: key on coin via a wrapper.
	coinFail := &coinFailSubmitter{inner: submitter, failCoin: "BTC", err: rejected}

	notifier := notify.NewNotifier([]notify.Sender{sender}, nil, testLogger())
	engine := NewEngine(store, account, coinFail, notifier, "0xwallet", 5.0, testLogger())

	if err := engine.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle returned error: %v", err)
	}

	if len(store.deleted) != 2 {
		t.Fatalf("both signals must be deleted, got %v", store.deleted)
	}
	if len(sender.titles) != 2 {
		t.Fatalf("expected two notifications, got %v", sender.titles)
	}
	if account.calls != 1 {
		t.Fatalf("snapshot must be fetched once per cycle, got %d calls", account.calls)
	}
}

type coinFailSubmitter struct {
	inner    *fakeSubmitter
	failCoin string
	err      error
}

func (c *coinFailSubmitter) Submit(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	if req.Coin == c.failCoin {
		c.inner.attempts = append(c.inner.attempts, req)
		return domain.OrderResult{}, c.err
	}
	return c.inner.Submit(ctx, req)
}

// cancellingSubmitter cancels the loop context right after its first attempt
// and fails any attempt that arrives on an already-cancelled context, the way
// a real HTTP client would.
type cancellingSubmitter struct {
	inner  *fakeSubmitter
	cancel context.CancelFunc
	fired  bool
}

func (c *cancellingSubmitter) Submit(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	if err := ctx.Err(); err != nil {
		c.inner.attempts = append(c.inner.attempts, req)
		return domain.OrderResult{}, err
	}
	res, err := c.inner.Submit(ctx, req)
	if !c.fired {
		c.fired = true
		c.cancel()
	}
	return res, err
}

func TestRunCycleShutdownDoesNotAbortLadder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rejected := errors.New("margin limit")
	store := &fakeSignalStore{pending: []domain.Signal{testSignal(1, "BTC", domain.SideLong, 10)}}
	account := &fakeAccount{snapshot: domain.AccountSnapshot{Equity: 10000}}
	inner := &fakeSubmitter{failAt: map[int]error{10: rejected}}
	// First attempt fails and triggers the shutdown; the remaining rungs
	// must still run and the second one must succeed.
	submitter := &cancellingSubmitter{inner: inner, cancel: cancel}
	sender := &recordingSender{}

	notifier := notify.NewNotifier([]notify.Sender{sender}, nil, testLogger())
	engine := NewEngine(store, account, submitter, notifier, "0xwallet", 5.0, testLogger())

	if err := engine.RunCycle(ctx); err != nil {
		t.Fatalf("RunCycle returned error: %v", err)
	}

	if len(inner.attempts) != 2 {
		t.Fatalf("expected the ladder to continue past the shutdown, got %d attempts", len(inner.attempts))
	}
	if inner.attempts[1].Leverage != 5 {
		t.Fatalf("expected second attempt at leverage 5, got %d", inner.attempts[1].Leverage)
	}
	if len(sender.titles) != 1 || !strings.Contains(sender.titles[0], "OPENED") {
		t.Fatalf("expected OPENED notification, got %v", sender.titles)
	}
	if len(sender.messages) != 1 || !strings.Contains(sender.messages[0], "Leverage: 5x") {
		t.Fatalf("expected notification with leverage 5x, got %v", sender.messages)
	}
	if len(store.deleted) != 1 || store.deleted[0] != 1 {
		t.Fatalf("expected one delete of id 1, got %v", store.deleted)
	}
}

func TestRunCycleNotificationFailureDoesNotBlockDelete(t *testing.T) {
	store := &fakeSignalStore{pending: []domain.Signal{testSignal(5, "BTC", domain.SideLong, 10)}}
	account := &fakeAccount{snapshot: domain.AccountSnapshot{Equity: 10000}}
	submitter := &fakeSubmitter{}
	sender := &recordingSender{err: errors.New("telegram down")}

	engine := newTestEngine(store, account, submitter, sender)
	if err := engine.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle returned error: %v", err)
	}

	if len(store.deleted) != 1 || store.deleted[0] != 5 {
		t.Fatalf("delete must happen despite notification failure, got %v", store.deleted)
	}
}
