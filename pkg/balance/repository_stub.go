package balance

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/klokku/cycleledger/pkg/ledger"
	"github.com/shopspring/decimal"
)

// RepositoryStub keeps accounts in memory. Posted entries go to the ledger stub, so
// read-side tests see them. Transactions are serialized and rolled back on error.
type RepositoryStub struct {
	mu       sync.Mutex
	txMu     sync.Mutex
	accounts map[int]Account
	nextId   int
	entries  *ledger.RepositoryStub
	pending  []ledger.Entry
	inTx     bool
	// FailInsert makes InsertEntry fail, to exercise rollback.
	FailInsert error
}

func NewRepositoryStub(entries *ledger.RepositoryStub) *RepositoryStub {
	return &RepositoryStub{accounts: map[int]Account{}, entries: entries}
}

func (r *RepositoryStub) Cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts = map[int]Account{}
	r.nextId = 0
	r.pending = nil
	r.FailInsert = nil
}

func (r *RepositoryStub) WithTransaction(ctx context.Context, fn func(repo Repository) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.mu.Lock()
	snapshot := maps.Clone(r.accounts)
	r.inTx = true
	r.pending = nil
	r.mu.Unlock()

	err := fn(r)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.inTx = false
	if err != nil {
		r.accounts = snapshot
		r.pending = nil
		return err
	}
	for _, entry := range r.pending {
		r.entries.Add(entry)
	}
	r.pending = nil
	return nil
}

func (r *RepositoryStub) CreateAccount(ctx context.Context, userId int, account Account) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextId++
	account.Id = r.nextId
	account.UserId = userId
	r.accounts[account.Id] = account
	return account, nil
}

func (r *RepositoryStub) GetAccount(ctx context.Context, userId int, id int) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok || account.UserId != userId {
		return Account{}, ErrAccountNotFound
	}
	return account, nil
}

func (r *RepositoryStub) LockAccount(ctx context.Context, userId int, id int) (Account, error) {
	return r.GetAccount(ctx, userId, id)
}

func (r *RepositoryStub) ListAccounts(ctx context.Context, userId int) ([]Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	accounts := []Account{}
	for _, account := range r.accounts {
		if account.UserId == userId {
			accounts = append(accounts, account)
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Id < accounts[j].Id })
	return accounts, nil
}

func (r *RepositoryStub) UpdateAccount(ctx context.Context, userId int, account Account) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.accounts[account.Id]
	if !ok || existing.UserId != userId {
		return Account{}, ErrAccountNotFound
	}
	account.UserId = userId
	r.accounts[account.Id] = account
	return account, nil
}

func (r *RepositoryStub) DeleteAccount(ctx context.Context, userId int, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.accounts[id]
	if !ok || existing.UserId != userId {
		return ErrAccountNotFound
	}
	delete(r.accounts, id)
	return nil
}

func (r *RepositoryStub) TotalBalance(ctx context.Context, userId int) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := decimal.Zero
	for _, account := range r.accounts {
		if account.UserId == userId {
			total = total.Add(account.Amount)
		}
	}
	return total, nil
}

func (r *RepositoryStub) InsertEntry(ctx context.Context, entry ledger.Entry) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailInsert != nil {
		return 0, r.FailInsert
	}
	if !r.inTx {
		return r.entries.Add(entry).Id, nil
	}
	r.pending = append(r.pending, entry)
	return int64(len(r.pending)), nil
}

func (r *RepositoryStub) AdjustBalance(ctx context.Context, userId int, id int, delta decimal.Decimal, at time.Time) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok || account.UserId != userId {
		return Account{}, ErrAccountNotFound
	}
	account.Amount = account.Amount.Add(delta)
	account.LastUpdated = at
	r.accounts[id] = account
	return account, nil
}
