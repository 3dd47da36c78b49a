package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Subaskar-S/Decentralized-Identity-Management-System/attestor"
	"github.com/Subaskar-S/Decentralized-Identity-Management-System/cmd/flags"
	"github.com/Subaskar-S/Decentralized-Identity-Management-System/directory"
	"github.com/Subaskar-S/Decentralized-Identity-Management-System/httpserver"
	"github.com/Subaskar-S/Decentralized-Identity-Management-System/identity"
	"github.com/Subaskar-S/Decentralized-Identity-Management-System/interfaces"
	"github.com/Subaskar-S/Decentralized-Identity-Management-System/keyvault"
	"github.com/Subaskar-S/Decentralized-Identity-Management-System/registry"
	"github.com/Subaskar-S/Decentralized-Identity-Management-System/storage"
	"github.com/Subaskar-S/Decentralized-Identity-Management-System/threshold"
	"github.com/urfave/cli/v2"
)

var serviceLogFlag = flags.LogServiceFlagFn("attestord")

var bundleFileFlag = &cli.StringFlag{
	Name:  "bundle-file",
	Value: "share-bundle.json",
	Usage: "path to the sealed key share bundle produced by the key ceremony",
}
var attestorsFileFlag = &cli.StringFlag{
	Name:     "attestors-file",
	Required: true,
	Usage:    "JSON roster of attestors to register in the directory",
}
var unlockModeFlag = &cli.StringFlag{
	Name:  "unlock-mode",
	Value: "passphrase",
	Usage: "how to obtain the bundle passphrase: 'passphrase' or 'recovery'",
}
var passphraseFlag = &cli.StringFlag{
	Name:    "share-passphrase",
	Value:   "",
	EnvVars: []string{"ATTESTORD_SHARE_PASSPHRASE"},
	Usage:   "hex-encoded bundle passphrase (required if unlock-mode is 'passphrase')",
}
var adminKeysFileFlag = &cli.StringFlag{
	Name:  "admin-keys-file",
	Value: "",
	Usage: "JSON file with admin public keys (required if unlock-mode is 'recovery')",
}
var recoveryThresholdFlag = &cli.IntFlag{
	Name:  "recovery-threshold",
	Value: 2,
	Usage: "number of admin recovery shares required to reconstruct the passphrase",
}
var bootstrapTimeoutFlag = &cli.IntFlag{
	Name:  "bootstrap-timeout",
	Value: 300,
	Usage: "timeout in seconds for the recovery process",
}
var dnsResolverFlag = &cli.StringFlag{
	Name:  "dns-resolver",
	Value: "",
	Usage: "DNS resolver address for did:web linkage checks (disabled when empty)",
}
var archiveBackendFlag = &cli.StringSliceFlag{
	Name:  "archive-backend",
	Usage: "storage backend URI for archiving completed results, repeatable (file://, s3://, ipfs://, vault://)",
}

func main() {
	app := &cli.App{
		Name:  "attestord",
		Usage: "Serve the credential attestation API with threshold signing",
		Flags: append([]cli.Flag{
			flags.ListenAddrFlag,
			bundleFileFlag,
			attestorsFileFlag,
			unlockModeFlag,
			passphraseFlag,
			adminKeysFileFlag,
			recoveryThresholdFlag,
			bootstrapTimeoutFlag,
			dnsResolverFlag,
			archiveBackendFlag,
			serviceLogFlag,
		}, flags.CommonFlags...),
		Action: runDaemon,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runDaemon(cCtx *cli.Context) error {
	listenAddr := cCtx.String(flags.ListenAddrFlag.Name)
	unlockMode := cCtx.String(unlockModeFlag.Name)
	bootstrapTimeout := cCtx.Int(bootstrapTimeoutFlag.Name)

	logger := flags.SetupLogger(cCtx)

	// Load the sealed share bundle produced by the key ceremony. The bundle
	// fixes the scheme parameters and the master public key; the shares stay
	// sealed until the passphrase is known.
	bundleFile, err := os.Open(cCtx.String(bundleFileFlag.Name))
	if err != nil {
		logger.Error("Failed to open share bundle", "err", err)
		return err
	}
	bundle, err := keyvault.ReadShareBundle(bundleFile)
	bundleFile.Close()
	if err != nil {
		logger.Error("Failed to read share bundle", "err", err)
		return err
	}

	scheme, err := threshold.LoadScheme(bundle.Params)
	if err != nil {
		logger.Error("Failed to load signing scheme", "err", err)
		return err
	}

	logger.Info("Share bundle loaded",
		"threshold", bundle.Params.Threshold,
		"totalParties", bundle.Params.TotalParties,
		"schemeID", bundle.Params.SchemeID)

	// Register the attestor roster in the directory.
	rosterFile, err := os.Open(cCtx.String(attestorsFileFlag.Name))
	if err != nil {
		logger.Error("Failed to open attestor roster", "err", err)
		return err
	}
	roster, err := directory.LoadRoster(rosterFile)
	rosterFile.Close()
	if err != nil {
		logger.Error("Failed to load attestor roster", "err", err)
		return err
	}

	dir := directory.New(logger)
	if resolverAddr := cCtx.String(dnsResolverFlag.Name); resolverAddr != "" {
		logger.Info("Enabling did:web linkage checks", "resolver", resolverAddr)
		dir = dir.WithWebLinkageCheck(identity.NewLinkageResolver(resolverAddr))
	}
	for _, att := range roster {
		if err := dir.Register(att); err != nil {
			logger.Error("Failed to register attestor", "err", err, "attestorID", att.ID)
			return err
		}
	}
	logger.Info("Attestor roster registered", "count", len(roster))

	coordinator := attestor.New(scheme, bundle.PublicKey, dir, registry.NewLedger(logger), logger)

	// Optional result archive. Completed attestation results are stored
	// best-effort in every configured backend.
	var archive interfaces.StorageBackend
	if uris := cCtx.StringSlice(archiveBackendFlag.Name); len(uris) > 0 {
		locations := make([]interfaces.StorageBackendLocation, 0, len(uris))
		for _, uri := range uris {
			locations = append(locations, interfaces.StorageBackendLocation(uri))
		}
		archive, err = storage.NewStorageBackendFactory(logger).CreateMultiBackend(locations)
		if err != nil {
			logger.Error("Failed to create archive backend", "err", err)
			return err
		}
		logger.Info("Result archive enabled", "backends", len(locations))
	}

	newHandler := func(passphrase []byte) (*httpserver.Handler, error) {
		shares, err := bundle.OpenShares(passphrase)
		if err != nil {
			return nil, fmt.Errorf("failed to open sealed shares: %w", err)
		}
		if err := coordinator.BindShares(shares); err != nil {
			return nil, fmt.Errorf("failed to bind key shares: %w", err)
		}
		handler := httpserver.NewHandler(coordinator, logger)
		if archive != nil {
			handler = handler.WithArchive(archive)
		}
		return handler, nil
	}

	cfg := flags.ConfigureServer(cCtx, logger, listenAddr)

	var server *httpserver.Server

	switch unlockMode {
	case "passphrase":
		passphraseHex := cCtx.String(passphraseFlag.Name)
		if passphraseHex == "" {
			logger.Error("share-passphrase is required when unlock-mode is 'passphrase'")
			return errors.New("share-passphrase is required for passphrase unlock")
		}

		passphrase, err := hex.DecodeString(passphraseHex)
		if err != nil || len(passphrase) < 16 {
			logger.Error("Invalid share-passphrase - must be at least 32 hex chars (16 bytes)", "err", err)
			return fmt.Errorf("invalid share-passphrase: %v", err)
		}

		handler, err := newHandler(passphrase)
		if err != nil {
			logger.Error("Failed to unlock key shares", "err", err)
			return err
		}

		server, err = httpserver.New(cfg, handler, nil)
		if err != nil {
			logger.Error("Failed to create server", "err", err)
			return err
		}

		logger.Info("Starting server")
		server.RunInBackground()

	case "recovery":
		adminKeysFile := cCtx.String(adminKeysFileFlag.Name)
		if adminKeysFile == "" {
			logger.Error("admin-keys-file is required when unlock-mode is 'recovery'")
			return errors.New("admin-keys-file is required for recovery unlock")
		}

		logger.Info("Loading admin keys", "file", adminKeysFile)
		adminKeysData, err := os.Open(adminKeysFile)
		if err != nil {
			logger.Error("Failed to open admin keys file", "err", err)
			return err
		}
		adminKeys, err := httpserver.LoadAdminKeys(adminKeysData)
		adminKeysData.Close()
		if err != nil {
			logger.Error("Failed to load admin keys", "err", err)
			return err
		}
		logger.Info("Admin keys loaded successfully", "count", len(adminKeys))

		pubKeys := make([][]byte, 0, len(adminKeys))
		for _, pubKeyPEM := range adminKeys {
			pubKeys = append(pubKeys, pubKeyPEM)
		}
		vault, err := keyvault.NewRecoveryVaultLocked(keyvault.RecoveryConfig{
			Threshold:    cCtx.Int(recoveryThresholdFlag.Name),
			AdminPubKeys: pubKeys,
		})
		if err != nil {
			logger.Error("Failed to create recovery vault", "err", err)
			return err
		}

		admin := httpserver.NewAdminHandler(logger, adminKeys, vault)

		// The attestation handler is set after recovery completes; until
		// then only the admin and health endpoints respond.
		server, err = httpserver.New(cfg, nil, admin)
		if err != nil {
			logger.Error("Failed to create server", "err", err)
			return err
		}

		logger.Info("Starting server in recovery mode")
		server.RunInBackground()

		logger.Info("Waiting for recovery shares...", "timeout", bootstrapTimeout)
		ctx, cancel := context.WithTimeout(context.Background(),
			time.Duration(bootstrapTimeout)*time.Second)
		defer cancel()

		passphrase, err := server.WaitForUnlock(ctx)
		if err != nil {
			logger.Error("Vault recovery failed", "err", err)
			server.Shutdown()
			return err
		}

		logger.Info("Vault recovered, unlocking key shares")
		handler, err := newHandler(passphrase)
		if err != nil {
			logger.Error("Failed to unlock key shares", "err", err)
			server.Shutdown()
			return err
		}

		server.SetAttestationHandler(handler)
		logger.Info("Attestation API enabled, server is now fully operational")

	default:
		logger.Error("Invalid unlock-mode", "mode", unlockMode)
		return fmt.Errorf("invalid unlock-mode: %s", unlockMode)
	}

	// Wait for termination signal.
	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

	logger.Info("Server is running, press Ctrl+C to stop")
	<-exit
	logger.Info("Shutdown signal received")

	server.Shutdown()
	logger.Info("Server shutdown complete")

	return nil
}
