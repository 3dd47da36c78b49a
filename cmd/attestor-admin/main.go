package main

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/Subaskar-S/Decentralized-Identity-Management-System/api/clients"
	"github.com/Subaskar-S/Decentralized-Identity-Management-System/directory"
	"github.com/Subaskar-S/Decentralized-Identity-Management-System/httpserver"
	"github.com/Subaskar-S/Decentralized-Identity-Management-System/interfaces"
	"github.com/Subaskar-S/Decentralized-Identity-Management-System/keyvault"
	"github.com/Subaskar-S/Decentralized-Identity-Management-System/threshold"
	"github.com/urfave/cli/v2"
)

var flagAdminAPIAddr = &cli.StringFlag{
	Name:  "admin-api-addr",
	Value: "http://127.0.0.1:8080/api/admin",
	Usage: "Coordinator admin API address",
}
var flagAdminPrivkey = &cli.StringFlag{
	Name:  "admin-privkey-file",
	Value: "admin-private.pem",
	Usage: "Path to admin private key",
}
var flagAdminPubkey = &cli.StringFlag{
	Name:  "admin-pubkey-file",
	Value: "admin-public.pem",
	Usage: "Path to admin public key",
}
var flagAdminsFile = &cli.StringFlag{
	Name:  "admins-file",
	Value: "admins.json",
	Usage: "Path to the admin public key configuration",
}
var flagRecoveryShare = &cli.StringFlag{
	Name:  "recovery-share-file",
	Value: "recovery-share.json",
	Usage: "Path to this admin's recovery share",
}
var flagRecoveryThreshold = &cli.IntFlag{
	Name:  "recovery-threshold",
	Value: 2,
	Usage: "Number of recovery shares required to reconstruct the passphrase",
}

// recoveryShareFile is the on-disk form of one admin's recovery share.
type recoveryShareFile struct {
	AdminID    string `json:"admin_id"`
	ShareIndex int    `json:"share_index"`
	Share      string `json:"share"` // base64 encoded
}

func main() {
	app := &cli.App{
		Name:           "attestor-admin",
		Usage:          "Administer the coordinator's key ceremony and vault recovery",
		DefaultCommand: "status",
		Commands: []*cli.Command{
			{
				Name:        "status",
				Usage:       "Query the coordinator's vault unlock state",
				Description: "",
				Flags: []cli.Flag{
					flagAdminAPIAddr,
				},
				Action: func(cCtx *cli.Context) error {
					adminClient := clients.NewAdminClient(cCtx.String(flagAdminAPIAddr.Name), "", nil)
					status, err := adminClient.Status()
					if err != nil {
						return err
					}

					encoded, _ := json.Marshal(status)
					fmt.Println(string(encoded))
					return nil
				},
			},
			{
				Name:        "generate-admin",
				Usage:       "Generate an admin ECDSA keypair",
				Description: "",
				Flags: []cli.Flag{
					flagAdminPrivkey,
					flagAdminPubkey,
				},
				Action: func(cCtx *cli.Context) error {
					privateKeyPEM, publicKeyPEM, err := httpserver.GenerateAdminKeyPair()
					if err != nil {
						return err
					}

					if err := os.WriteFile(cCtx.String(flagAdminPrivkey.Name), []byte(privateKeyPEM), 0600); err != nil {
						return err
					}

					if err := os.WriteFile(cCtx.String(flagAdminPubkey.Name), []byte(publicKeyPEM), 0600); err != nil {
						return err
					}

					fingerprint := sha256.Sum256([]byte(publicKeyPEM))
					fmt.Printf("Admin ID: %s\n", hex.EncodeToString(fingerprint[:]))
					return nil
				},
			},
			{
				Name:        "generate-admins-config",
				Usage:       "Collect admin public keys into a configuration file",
				Description: "",
				Flags: []cli.Flag{
					flagAdminsFile,
					&cli.StringSliceFlag{
						Name: "admin-pubkey-files",
					},
				},
				Action: func(cCtx *cli.Context) error {
					var config adminsConfig

					for _, pubkeyFile := range cCtx.StringSlice("admin-pubkey-files") {
						publicKeyPEM, err := os.ReadFile(pubkeyFile)
						if err != nil {
							return err
						}

						pubkeyHash := sha256.Sum256(publicKeyPEM)
						config.Admins = append(config.Admins, adminEntry{
							ID:     hex.EncodeToString(pubkeyHash[:]),
							PubKey: string(publicKeyPEM),
						})
					}

					configBytes, err := json.Marshal(config)
					if err != nil {
						return err
					}

					return os.WriteFile(cCtx.String(flagAdminsFile.Name), configBytes, 0600)
				},
			},
			{
				Name:  "keygen",
				Usage: "Run the offline key ceremony",
				Description: "Generates a fresh threshold signing scheme for the given attestor " +
					"roster, seals one key share per attestor under a random passphrase, and " +
					"splits the passphrase into recovery shares for the configured admins.",
				Flags: []cli.Flag{
					flagAdminsFile,
					flagRecoveryThreshold,
					&cli.StringFlag{
						Name:     "attestors-file",
						Required: true,
						Usage:    "JSON roster of attestors, one key share is issued per entry",
					},
					&cli.IntFlag{
						Name:  "threshold",
						Value: 2,
						Usage: "Number of attestor approvals required per attestation",
					},
					&cli.StringFlag{
						Name:  "bundle-file",
						Value: "share-bundle.json",
						Usage: "Output path for the sealed share bundle",
					},
					&cli.StringFlag{
						Name:  "out-dir",
						Value: ".",
						Usage: "Directory to write per-admin recovery shares to",
					},
				},
				Action: runKeygen,
			},
			{
				Name:        "submit-share",
				Usage:       "Submit this admin's recovery share to the coordinator",
				Description: "",
				Flags: []cli.Flag{
					flagAdminAPIAddr,
					flagAdminPrivkey,
					flagAdminPubkey,
					flagRecoveryShare,
				},
				Action: func(cCtx *cli.Context) error {
					adminID, privateKey, err := loadAdminIdentity(cCtx)
					if err != nil {
						return err
					}

					shareJSON, err := os.ReadFile(cCtx.String(flagRecoveryShare.Name))
					if err != nil {
						return err
					}

					var shareData recoveryShareFile
					if err := json.Unmarshal(shareJSON, &shareData); err != nil {
						return err
					}

					share, err := base64.StdEncoding.DecodeString(shareData.Share)
					if err != nil {
						return fmt.Errorf("invalid share encoding: %w", err)
					}

					adminClient := clients.NewAdminClient(cCtx.String(flagAdminAPIAddr.Name), adminID, privateKey)
					message, err := adminClient.SubmitShare(shareData.ShareIndex, share, nil)
					if err != nil {
						return err
					}

					fmt.Println(message)
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

type adminEntry struct {
	ID     string `json:"id"`
	PubKey string `json:"pubkey"`
}

type adminsConfig struct {
	Admins []adminEntry `json:"admins"`
}

// loadAdminIdentity reads the admin's keypair from disk. The admin ID is the
// hex SHA-256 fingerprint of the public key PEM, matching what the
// coordinator registers.
func loadAdminIdentity(cCtx *cli.Context) (string, *ecdsa.PrivateKey, error) {
	publicKeyPEM, err := os.ReadFile(cCtx.String(flagAdminPubkey.Name))
	if err != nil {
		return "", nil, err
	}

	pubkeyHash := sha256.Sum256(publicKeyPEM)
	adminID := hex.EncodeToString(pubkeyHash[:])

	privateKeyPEM, err := os.ReadFile(cCtx.String(flagAdminPrivkey.Name))
	if err != nil {
		return "", nil, err
	}

	privateKey, err := httpserver.ParsePrivateKey(privateKeyPEM)
	if err != nil {
		return "", nil, err
	}

	return adminID, privateKey, nil
}

func runKeygen(cCtx *cli.Context) error {
	rosterFile, err := os.Open(cCtx.String("attestors-file"))
	if err != nil {
		return err
	}
	roster, err := directory.LoadRoster(rosterFile)
	rosterFile.Close()
	if err != nil {
		return err
	}

	scheme, err := threshold.NewScheme(cCtx.Int("threshold"), len(roster))
	if err != nil {
		return err
	}

	shares, publicKey := scheme.GenerateShares()

	byAttestor := make(map[interfaces.AttestorID]threshold.KeyShare, len(shares))
	for i, att := range roster {
		byAttestor[att.ID] = shares[i]
	}

	passphrase := make([]byte, 32)
	if _, err := rand.Read(passphrase); err != nil {
		return fmt.Errorf("failed to generate passphrase: %w", err)
	}

	bundle, err := keyvault.NewShareBundle(scheme.Params(), publicKey, byAttestor, passphrase)
	if err != nil {
		return err
	}

	bundleFile, err := os.OpenFile(cCtx.String("bundle-file"), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	err = keyvault.WriteShareBundle(bundleFile, bundle)
	bundleFile.Close()
	if err != nil {
		return err
	}

	fmt.Printf("Share bundle written to %s\n", cCtx.String("bundle-file"))
	fmt.Printf("Scheme ID: %s\n", scheme.Params().SchemeID)
	fmt.Printf("Bundle passphrase (hex): %s\n", hex.EncodeToString(passphrase))

	// Without an admins config the passphrase is the only way to unlock
	// the bundle.
	adminsFile := cCtx.String(flagAdminsFile.Name)
	adminKeysData, err := os.Open(adminsFile)
	if err != nil {
		fmt.Printf("No admins config at %s, skipping recovery shares\n", adminsFile)
		return nil
	}
	adminKeys, err := httpserver.LoadAdminKeys(adminKeysData)
	adminKeysData.Close()
	if err != nil {
		return err
	}

	// Shares are issued in a deterministic admin order so each share file
	// can name its holder.
	adminIDs := make([]string, 0, len(adminKeys))
	for adminID := range adminKeys {
		adminIDs = append(adminIDs, adminID)
	}
	sort.Strings(adminIDs)

	pubKeys := make([][]byte, 0, len(adminIDs))
	for _, adminID := range adminIDs {
		pubKeys = append(pubKeys, adminKeys[adminID])
	}

	_, recoveryShares, err := keyvault.NewRecoveryVault(passphrase, keyvault.RecoveryConfig{
		Threshold:    cCtx.Int(flagRecoveryThreshold.Name),
		AdminPubKeys: pubKeys,
	})
	if err != nil {
		return err
	}

	outDir := cCtx.String("out-dir")
	for i, share := range recoveryShares {
		shareData := recoveryShareFile{
			AdminID:    adminIDs[i],
			ShareIndex: i + 1,
			Share:      base64.StdEncoding.EncodeToString(share),
		}
		shareJSON, err := json.Marshal(shareData)
		if err != nil {
			return err
		}

		sharePath := filepath.Join(outDir, fmt.Sprintf("recovery-share-%d.json", i+1))
		if err := os.WriteFile(sharePath, shareJSON, 0600); err != nil {
			return err
		}
		fmt.Printf("Recovery share for admin %s written to %s\n", adminIDs[i], sharePath)
	}

	return nil
}
