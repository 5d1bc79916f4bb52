package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/argon2"

	errorsx "github.com/jrsteele09/go-launcher-auth/internal/errors"
)

const (
	secretsFilename = "secrets.dat"

	saltLength  = 16
	nonceLength = 12
	keyLength   = 32

	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// sealedFile is the on-disk envelope. The salt is generated once per store
// and kept across rewrites so the derived key stays stable for a passphrase.
type sealedFile struct {
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// FileStore seals a JSON map of secrets with AES-256-GCM under a key derived
// from the passphrase with argon2id. The whole map is resealed on every
// mutation via a temp file and rename.
type FileStore struct {
	path string
	key  []byte
	salt []byte

	lock    sync.RWMutex
	secrets map[string]string
}

var _ Store = (*FileStore)(nil)

// NewFileStore opens or creates the sealed store in dataFolder. A wrong
// passphrase against an existing store fails with InvalidPassphraseErr.
func NewFileStore(dataFolder, passphrase string) (*FileStore, error) {
	if passphrase == "" {
		return nil, errorsx.Wrapf(errorsx.ErrMissingConfiguration, "[secrets.NewFileStore] passphrase")
	}
	if err := os.MkdirAll(dataFolder, 0o700); err != nil {
		return nil, errorsx.Wrapf(err, "[secrets.NewFileStore] creating data folder")
	}

	s := &FileStore{
		path:    filepath.Join(dataFolder, secretsFilename),
		secrets: make(map[string]string),
	}
	if err := s.open(passphrase); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) open(passphrase string) error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.salt = make([]byte, saltLength)
		if _, err := rand.Read(s.salt); err != nil {
			return errorsx.Wrapf(err, "[secrets.open] generating salt")
		}
		s.key = deriveKey(passphrase, s.salt)
		return nil
	}
	if err != nil {
		return errorsx.Wrapf(err, "[secrets.open] reading store")
	}

	var sealed sealedFile
	if err := json.Unmarshal(data, &sealed); err != nil {
		return errorsx.Wrapf(err, "[secrets.open] decoding store")
	}
	s.salt = sealed.Salt
	s.key = deriveKey(passphrase, s.salt)

	plaintext, err := unseal(sealed, s.key)
	if err != nil {
		return errorsx.Wrapf(InvalidPassphraseErr, "[secrets.open]")
	}
	if err := json.Unmarshal(plaintext, &s.secrets); err != nil {
		return errorsx.Wrapf(err, "[secrets.open] decoding secrets")
	}
	return nil
}

// flush reseals the full secret map to disk. Caller holds the write lock.
func (s *FileStore) flush() error {
	plaintext, err := json.Marshal(s.secrets)
	if err != nil {
		return errorsx.Wrapf(err, "[secrets.flush] encoding secrets")
	}

	sealed, err := seal(plaintext, s.key, s.salt)
	if err != nil {
		return err
	}
	data, err := json.Marshal(sealed)
	if err != nil {
		return errorsx.Wrapf(err, "[secrets.flush] encoding store")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errorsx.Wrapf(err, "[secrets.flush] writing temp store")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errorsx.Wrapf(err, "[secrets.flush] replacing store")
	}
	return nil
}

func (s *FileStore) Write(key, secret string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.secrets[key] = secret
	return s.flush()
}

func (s *FileStore) Read(key string) (string, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	secret, ok := s.secrets[key]
	return secret, ok
}

func (s *FileStore) Delete(key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.secrets[key]; !ok {
		return nil
	}
	delete(s.secrets, key)
	return s.flush()
}

func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemory, argonThreads, keyLength)
}

func seal(plaintext, key, salt []byte) (sealedFile, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return sealedFile{}, errorsx.Wrapf(err, "[secrets.seal] cipher")
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return sealedFile{}, errorsx.Wrapf(err, "[secrets.seal] gcm")
	}

	nonce := make([]byte, nonceLength)
	if _, err := rand.Read(nonce); err != nil {
		return sealedFile{}, errorsx.Wrapf(err, "[secrets.seal] nonce")
	}

	return sealedFile{
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: aesgcm.Seal(nil, nonce, plaintext, nil),
	}, nil
}

func unseal(sealed sealedFile, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return aesgcm.Open(nil, sealed.Nonce, sealed.Ciphertext, nil)
}
