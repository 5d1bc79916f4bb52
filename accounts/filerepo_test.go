package accounts_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-launcher-auth/accounts"
)

func TestFileRepo_RoundTrip(t *testing.T) {
	folder := t.TempDir()

	repo, err := accounts.NewFileRepo(folder)
	require.NoError(t, err)

	account := accounts.NewAccount("subject-1", "Main")
	account.LoginEmail = "main@example.com"
	account.CharacterCount = 3
	require.NoError(t, repo.Upsert(account))

	// A fresh repo over the same folder sees the persisted record.
	reloaded, err := accounts.NewFileRepo(folder)
	require.NoError(t, err)

	got, err := reloaded.GetByID(account.ID)
	require.NoError(t, err)
	require.Equal(t, "subject-1", got.Subject)
	require.Equal(t, "Main", got.DisplayName)
	require.Equal(t, "main@example.com", got.LoginEmail)
	require.Equal(t, 3, got.CharacterCount)
	require.WithinDuration(t, account.CreatedAt, got.CreatedAt, time.Second)
}

func TestFileRepo_MissingStoreIsEmpty(t *testing.T) {
	repo, err := accounts.NewFileRepo(t.TempDir())
	require.NoError(t, err)

	list, err := repo.List()
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestFileRepo_GetBySubject(t *testing.T) {
	repo, err := accounts.NewFileRepo(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, repo.Upsert(accounts.NewAccount("subject-1", "Main")))
	require.NoError(t, repo.Upsert(accounts.NewAccount("subject-2", "Alt")))

	got, err := repo.GetBySubject("subject-2")
	require.NoError(t, err)
	require.Equal(t, "Alt", got.DisplayName)

	_, err = repo.GetBySubject("subject-3")
	require.ErrorIs(t, err, accounts.NotFoundErr)
}

func TestFileRepo_Delete(t *testing.T) {
	folder := t.TempDir()
	repo, err := accounts.NewFileRepo(folder)
	require.NoError(t, err)

	account := accounts.NewAccount("subject-1", "Main")
	require.NoError(t, repo.Upsert(account))
	require.NoError(t, repo.Delete(account.ID))

	_, err = repo.GetByID(account.ID)
	require.ErrorIs(t, err, accounts.NotFoundErr)
	require.ErrorIs(t, repo.Delete(account.ID), accounts.NotFoundErr)

	// Deletion persists.
	reloaded, err := accounts.NewFileRepo(folder)
	require.NoError(t, err)
	list, err := reloaded.List()
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestFileRepo_ListOrderedByCreation(t *testing.T) {
	repo, err := accounts.NewFileRepo(t.TempDir())
	require.NoError(t, err)

	first := accounts.NewAccount("subject-1", "First")
	first.CreatedAt = time.Now().Add(-2 * time.Hour)
	second := accounts.NewAccount("subject-2", "Second")
	second.CreatedAt = time.Now().Add(-time.Hour)

	require.NoError(t, repo.Upsert(second))
	require.NoError(t, repo.Upsert(first))

	list, err := repo.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "First", list[0].DisplayName)
	require.Equal(t, "Second", list[1].DisplayName)
}

func TestFileRepo_GetReturnsCopy(t *testing.T) {
	repo, err := accounts.NewFileRepo(t.TempDir())
	require.NoError(t, err)

	account := accounts.NewAccount("subject-1", "Main")
	require.NoError(t, repo.Upsert(account))

	got, err := repo.GetByID(account.ID)
	require.NoError(t, err)
	got.DisplayName = "Mutated"

	again, err := repo.GetByID(account.ID)
	require.NoError(t, err)
	require.Equal(t, "Main", again.DisplayName)
}

func TestFileRepo_NoTempFileLeftBehind(t *testing.T) {
	folder := t.TempDir()
	repo, err := accounts.NewFileRepo(folder)
	require.NoError(t, err)
	require.NoError(t, repo.Upsert(accounts.NewAccount("subject-1", "Main")))

	entries, err := os.ReadDir(folder)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "accounts.json", filepath.Base(entries[0].Name()))
}

func TestAccount_RemainingSlots(t *testing.T) {
	account := accounts.NewAccount("subject-1", "Main")
	account.CharacterCount = 17
	require.Equal(t, 3, account.RemainingSlots(20))
	require.False(t, account.AtCapacity(20))

	account.CharacterCount = 20
	require.Equal(t, 0, account.RemainingSlots(20))
	require.True(t, account.AtCapacity(20))

	account.CharacterCount = 25
	require.Equal(t, 0, account.RemainingSlots(20))
}
