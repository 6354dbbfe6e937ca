package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"divvy/config"
	"divvy/pkg/activity"
	"divvy/pkg/client"
	"divvy/pkg/intent"
	"divvy/pkg/logger"
	"divvy/pkg/quote"
	"divvy/pkg/wallet"
)

// app holds the clients and services a command works with
type app struct {
	cfg      *config.Config
	relay    *client.RelayClient
	rpc      *client.NearRPC
	session  *wallet.Session
	journal  *activity.Journal
	builder  *intent.Builder
	fetcher  *quote.Fetcher
	intents  *intent.Service
	keystore *wallet.Keystore
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	journal, err := activity.NewJournal(cfg.ActivityFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open activity journal: %w", err)
	}

	relay := client.NewRelayClient(cfg.RelayURL)
	rpc := client.NewNearRPC(cfg.NearRPCURL)
	keystore := wallet.NewKeystore(cfg.CredentialsDir, cfg.Network)
	session := wallet.NewSession(config.AccountStore{}, keystore, wallet.RPCDialer(rpc), cfg.SigningStandard, cfg.VerifyingContract)

	builder := intent.NewBuilder(settingsFromConfig(cfg))
	fetcher := quote.NewFetcher(relay)

	a := &app{
		cfg:      cfg,
		relay:    relay,
		rpc:      rpc,
		session:  session,
		journal:  journal,
		builder:  builder,
		fetcher:  fetcher,
		keystore: keystore,
		intents: intent.NewService(session, builder, fetcher, relay,
			intent.WithJournal(journal),
			intent.WithLogger(logger.Log),
		),
	}

	if _, err := session.Start(cmd.Context()); err != nil {
		return nil, err
	}
	return a, nil
}

func settingsFromConfig(cfg *config.Config) intent.Settings {
	return intent.Settings{
		WrapContract:      cfg.WrapContract,
		VerifyingContract: cfg.VerifyingContract,
		SwapInputAsset:    cfg.SwapInputAsset,
		SwapOutputAsset:   cfg.SwapOutputAsset,
		ReferralAccount:   cfg.ReferralAccount,
		WithdrawToken:     cfg.WithdrawToken,
		WithdrawFromAsset: cfg.WithdrawFromAsset,
		WithdrawToAsset:   cfg.WithdrawToAsset,
		WithdrawReferral:  cfg.WithdrawReferral,
		Deadline:          cfg.Deadline,
		MinDeadline:       cfg.MinDeadline,
	}
}

func (a *app) oneClick() (*client.OneClickClient, error) {
	if err := a.cfg.RequireOneClickToken(); err != nil {
		return nil, err
	}
	return client.NewOneClickClient(a.cfg.OneClickURL, a.cfg.OneClickJWT), nil
}
