package accounts

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	errorsx "github.com/jrsteele09/go-launcher-auth/internal/errors"
)

const accountsFilename = "accounts.json"

// FileRepo is a JSON-file Repo. The whole account set is held in memory and
// rewritten on every mutation via a temp file and rename, so a crash mid
// write never leaves a truncated store.
type FileRepo struct {
	path string

	lock     sync.RWMutex
	accounts map[string]*Account
}

var _ Repo = (*FileRepo)(nil)

// NewFileRepo loads the account store from dataFolder, creating the folder
// when missing. A missing store file is an empty store.
func NewFileRepo(dataFolder string) (*FileRepo, error) {
	if err := os.MkdirAll(dataFolder, 0o700); err != nil {
		return nil, errorsx.Wrapf(err, "[accounts.NewFileRepo] creating data folder")
	}

	r := &FileRepo{
		path:     filepath.Join(dataFolder, accountsFilename),
		accounts: make(map[string]*Account),
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *FileRepo) load() error {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errorsx.Wrapf(err, "[accounts.load] reading store")
	}
	if len(data) == 0 {
		return nil
	}

	var stored []*Account
	if err := json.Unmarshal(data, &stored); err != nil {
		return errorsx.Wrapf(err, "[accounts.load] decoding store")
	}
	for _, account := range stored {
		r.accounts[account.ID] = account
	}
	log.Debug().Str("component", "accounts").Int("count", len(stored)).Msg("account store loaded")
	return nil
}

// flush writes the full account set to a sibling temp file and renames it
// over the store. Caller holds the write lock.
func (r *FileRepo) flush() error {
	list := r.sortedLocked()
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return errorsx.Wrapf(err, "[accounts.flush] encoding store")
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errorsx.Wrapf(err, "[accounts.flush] writing temp store")
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return errorsx.Wrapf(err, "[accounts.flush] replacing store")
	}
	return nil
}

func (r *FileRepo) sortedLocked() []*Account {
	list := make([]*Account, 0, len(r.accounts))
	for _, account := range r.accounts {
		list = append(list, account)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list
}

func (r *FileRepo) Upsert(account *Account) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.accounts[account.ID] = account
	return r.flush()
}

func (r *FileRepo) Delete(id string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.accounts[id]; !ok {
		return errorsx.Wrapf(NotFoundErr, "[accounts.Delete] %s", id)
	}
	delete(r.accounts, id)
	return r.flush()
}

func (r *FileRepo) GetByID(id string) (*Account, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	account, ok := r.accounts[id]
	if !ok {
		return nil, errorsx.Wrapf(NotFoundErr, "[accounts.GetByID] %s", id)
	}
	copied := *account
	return &copied, nil
}

func (r *FileRepo) GetBySubject(subject string) (*Account, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	for _, account := range r.accounts {
		if account.Subject == subject {
			copied := *account
			return &copied, nil
		}
	}
	return nil, errorsx.Wrapf(NotFoundErr, "[accounts.GetBySubject]")
}

func (r *FileRepo) List() ([]*Account, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	list := r.sortedLocked()
	copies := make([]*Account, len(list))
	for i, account := range list {
		copied := *account
		copies[i] = &copied
	}
	return copies, nil
}
