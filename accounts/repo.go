package accounts

type Repo interface {
	Upsert(account *Account) error
	Delete(id string) error
	GetByID(id string) (*Account, error)
	GetBySubject(subject string) (*Account, error)
	List() ([]*Account, error)
}
