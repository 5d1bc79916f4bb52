// launcher-auth is the command-line front of the launcher auth pipeline. It
// lists stored accounts and tops up their character slots through the
// rate-limited creation queue, using site session tokens captured during a
// previous login and held in the sealed secret store.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-launcher-auth/accounts"
	"github.com/jrsteele09/go-launcher-auth/internal/config"
	errorsx "github.com/jrsteele09/go-launcher-auth/internal/errors"
	"github.com/jrsteele09/go-launcher-auth/provision"
	"github.com/jrsteele09/go-launcher-auth/queue"
	"github.com/jrsteele09/go-launcher-auth/secrets"
)

var (
	listAccounts = flag.Bool("list", false, "list stored accounts and exit")
	provisionID  = flag.String("provision", "", "account id to bring up to character capacity")
	provisionAll = flag.Bool("provision-all", false, "bring every stored account up to character capacity")
	batchSize    = flag.Int("batch-size", 0, "creations per batch window (0 uses the configured default)")
	batchWindow  = flag.Duration("batch-window", 0, "pause between batch windows (0 uses the configured default)")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		zlog.Fatal().Err(err).Msg("launcher-auth failed")
	}
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	cfg, err := config.New()
	if err != nil {
		return err
	}
	setupLogging(cfg)
	displayAppname(cfg.GetAppName())

	repo, err := accounts.NewFileRepo(cfg.GetDataFolder())
	if err != nil {
		return err
	}

	switch {
	case *listAccounts:
		return printAccounts(repo, cfg.GetCharacterCapacity())
	case *provisionID != "" || *provisionAll:
		return provisionAccounts(cfg, repo)
	default:
		flag.Usage()
		return nil
	}
}

func printAccounts(repo accounts.Repo, capacity int) error {
	list, err := repo.List()
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("no stored accounts, log in through the launcher first")
		return nil
	}
	for _, account := range list {
		fmt.Printf("%s  %-20s  %2d/%d characters\n", account.ID, account.DisplayName, account.CharacterCount, capacity)
	}
	return nil
}

func provisionAccounts(cfg config.Config, repo accounts.Repo) error {
	store, err := secrets.NewFileStore(cfg.GetDataFolder(), cfg.GetSecretsPassphrase())
	if err != nil {
		return errorsx.Wrapf(err, "[provisionAccounts] opening secret store, set SECRETS_PASSPHRASE")
	}

	client, err := provision.NewClient(cfg)
	if err != nil {
		return err
	}
	scheduler := queue.NewScheduler(cfg, client, consoleObservers())
	defer scheduler.Close()

	targets, err := selectTargets(repo)
	if err != nil {
		return err
	}

	queued := 0
	for _, account := range targets {
		token, ok := store.Read(secrets.SessionTokenKey(account.ID))
		if !ok {
			zlog.Warn().Str("account", account.ID).Msg("no site session token stored, skipping")
			continue
		}
		if scheduler.Enqueue(account.ID, account.DisplayName, token, account.CharacterCount, *batchSize, *batchWindow) {
			queued++
		}
	}
	if queued == 0 {
		fmt.Println("nothing to do")
		return nil
	}

	waitForDrain(scheduler)
	return nil
}

func selectTargets(repo accounts.Repo) ([]*accounts.Account, error) {
	if *provisionAll {
		return repo.List()
	}
	account, err := repo.GetByID(*provisionID)
	if err != nil {
		return nil, err
	}
	return []*accounts.Account{account}, nil
}

// waitForDrain blocks until the queue empties or a stop signal arrives, in
// which case outstanding work is cancelled cooperatively.
func waitForDrain(scheduler *queue.Scheduler) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			fmt.Println("\ncancelling queued work")
			scheduler.CancelAll()
			return
		case <-ticker.C:
			if scheduler.Pending() == 0 {
				return
			}
		}
	}
}

func consoleObservers() queue.Observers {
	return queue.Observers{
		OnCharacterCreated: func(accountID string, slots []provision.CharacterSlot) {
			zlog.Info().Str("account", accountID).Int("characters", len(slots)).Msg("character slot created")
		},
		OnBatchCompleted: func(accountID string, created, skipped int) {
			zlog.Info().Str("account", accountID).Int("created", created).Int("skipped", skipped).Msg("batch completed")
		},
		OnStatus: func(message string) {
			fmt.Println(message)
		},
	}
}

func setupLogging(cfg config.EnvConfig) {
	if cfg.GetEnv() == "DEV" {
		zlog.Logger = zlog.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
