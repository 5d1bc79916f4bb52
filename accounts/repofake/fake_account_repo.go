package fakeaccountrepo

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/jrsteele09/go-launcher-auth/accounts"
)

var _ accounts.Repo = (*FakeAccountRepo)(nil)

type FakeAccountRepo struct {
	accounts map[string]*accounts.Account
	lock     sync.RWMutex
}

func NewFakeAccountRepo() *FakeAccountRepo {
	return &FakeAccountRepo{
		accounts: make(map[string]*accounts.Account),
	}
}

func (ar *FakeAccountRepo) Upsert(account *accounts.Account) error {
	ar.lock.Lock()
	defer ar.lock.Unlock()

	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	ar.accounts[account.ID] = account
	return nil
}

func (ar *FakeAccountRepo) Delete(id string) error {
	ar.lock.Lock()
	defer ar.lock.Unlock()

	if _, ok := ar.accounts[id]; !ok {
		return accounts.NotFoundErr
	}
	delete(ar.accounts, id)
	return nil
}

func (ar *FakeAccountRepo) GetByID(id string) (*accounts.Account, error) {
	ar.lock.RLock()
	defer ar.lock.RUnlock()

	account, ok := ar.accounts[id]
	if !ok {
		return nil, accounts.NotFoundErr
	}
	return account, nil
}

func (ar *FakeAccountRepo) GetBySubject(subject string) (*accounts.Account, error) {
	ar.lock.RLock()
	defer ar.lock.RUnlock()

	for _, account := range ar.accounts {
		if account.Subject == subject {
			return account, nil
		}
	}
	return nil, accounts.NotFoundErr
}

func (ar *FakeAccountRepo) List() ([]*accounts.Account, error) {
	ar.lock.RLock()
	defer ar.lock.RUnlock()

	list := make([]*accounts.Account, 0, len(ar.accounts))
	for _, account := range ar.accounts {
		list = append(list, account)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list, nil
}
