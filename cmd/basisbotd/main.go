// Command basisbotd runs the delta-neutral funding-rate arbitrage engine:
// a long leg on Solana margin-lending protocols matched against a short
// leg on Hyperliquid perpetuals, scanned, sized, opened, and monitored
// continuously until an exit trigger or operator kill switch fires.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/web3guy0/basisbot/internal/bot"
	"github.com/web3guy0/basisbot/internal/config"
	"github.com/web3guy0/basisbot/internal/notify"
	"github.com/web3guy0/basisbot/internal/store"
	"github.com/web3guy0/basisbot/internal/venue"
)

const version = "1.0.0"

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	log.Info().Str("version", version).Bool("dry_run", cfg.DryRun).Msg("🤖 basisbotd starting")

	db, err := store.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open position store")
	}

	longVenue, perpVenue, err := buildVenues(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire trading venues")
	}

	bus := notify.NewBus()
	if cfg.TelegramToken != "" {
		notifier, err := notify.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			log.Error().Err(err).Msg("Failed to connect Telegram notifier, continuing without it")
		} else {
			notifier.Subscribe(bus)
		}
	}

	engine := bot.New(bot.Deps{
		Cfg:         cfg,
		Long:        longVenue,
		Perp:        perpVenue,
		Store:       db,
		Bus:         bus,
		DefaultUser: "operator",
	})

	ctx, cancel := context.WithCancel(context.Background())
	engine.Start(ctx)

	log.Info().Msg("✅ basisbotd running, scanning for opportunities")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("🛑 shutting down")
	cancel()
	engine.Stop()
	log.Info().Msg("👋 goodbye")
}

// buildVenues wires the paper simulators in dry-run mode or live adapters
// against the configured RPC/API endpoints and wallet keys otherwise.
func buildVenues(cfg *config.Config) (venue.LongVenue, venue.PerpVenue, error) {
	if cfg.DryRun {
		log.Info().Msg("💧 dry-run mode: using paper venues")
		long := venue.NewPaperLongVenue(venue.DefaultPaperLongConfig())
		perp := venue.NewPaperPerpVenue(venue.DefaultPaperPerpConfig())
		return long, perp, nil
	}

	solanaChain := venue.NewSolanaRPCChain(cfg.SolanaRPCURL)

	arbitrumChain, err := venue.NewArbitrumBridgeChain(cfg.ArbitrumRPCURL)
	if err != nil {
		return nil, nil, err
	}

	evmSigner, err := venue.NewEVMWalletSigner(cfg.EVMWalletPrivateKey)
	if err != nil {
		return nil, nil, err
	}

	long := venue.NewAsgardLiveVenue(venue.AsgardLiveConfig{RPCURL: cfg.SolanaRPCURL}, solanaChain, nil)
	perp := venue.NewHyperliquidLiveVenue(venue.HyperliquidLiveConfig{APIURL: cfg.HyperliquidAPIURL}, arbitrumChain, evmSigner)

	log.Warn().Msg("⚠️ live venues wired: order placement and account decoding are not yet implemented for any protocol")
	return long, perp, nil
}
