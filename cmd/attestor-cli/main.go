package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Subaskar-S/Decentralized-Identity-Management-System/api"
	"github.com/Subaskar-S/Decentralized-Identity-Management-System/api/clients"
	"github.com/Subaskar-S/Decentralized-Identity-Management-System/identity"
	"github.com/Subaskar-S/Decentralized-Identity-Management-System/interfaces"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/urfave/cli/v2"
)

var flagCoordinatorAddr = &cli.StringFlag{
	Name:  "coordinator-addr",
	Value: "http://127.0.0.1:8080",
	Usage: "Coordinator server address to request",
}
var flagRequestID = &cli.StringFlag{
	Name:     "request-id",
	Required: true,
	Usage:    "Attestation request identifier",
}
var flagCredentialFile = &cli.StringFlag{
	Name:     "credential-file",
	Required: true,
	Usage:    "Path to the credential JSON document",
}

const usage string = "Submit, track, and verify credential attestations"

func main() {
	app := &cli.App{
		Name:  "attestor-cli",
		Usage: usage,
		Flags: []cli.Flag{
			flagCoordinatorAddr,
		},
		Commands: []*cli.Command{
			{
				Name:        "scheme",
				Usage:       "Print the coordinator's signing scheme",
				Description: "",
				Action: func(cCtx *cli.Context) error {
					return NewClientConfig(cCtx).SchemeInfo()
				},
			},
			{
				Name:        "credential",
				Usage:       "Build an unsigned credential document",
				Description: "",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "issuer", Required: true, Usage: "Issuer DID"},
					&cli.StringFlag{Name: "subject", Required: true, Usage: "Subject DID"},
					&cli.StringFlag{Name: "type", Value: "KycCredential", Usage: "Credential type"},
					&cli.StringFlag{Name: "claims-file", Required: true, Usage: "Path to a JSON object of claims"},
				},
				Action: func(cCtx *cli.Context) error {
					claims, err := readClaims(cCtx.String("claims-file"))
					if err != nil {
						return err
					}

					credential := identity.NewCredential(
						interfaces.DID(cCtx.String("issuer")),
						interfaces.DID(cCtx.String("subject")),
						cCtx.String("type"),
						claims,
					)
					if err := credential.Validate(); err != nil {
						return err
					}

					encoded, _ := json.MarshalIndent(credential, "", "  ")
					fmt.Println(string(encoded))
					return nil
				},
			},
			{
				Name:        "submit",
				Usage:       "Submit a credential for attestation",
				Description: "",
				Flags: []cli.Flag{
					flagCredentialFile,
					&cli.StringSliceFlag{
						Name:     "attestor",
						Required: true,
						Usage:    "Attestor ID allowed to respond (repeatable)",
					},
					&cli.IntFlag{
						Name:  "threshold",
						Value: 2,
						Usage: "Number of approvals required",
					},
					&cli.DurationFlag{
						Name:  "expires-in",
						Value: 15 * time.Minute,
						Usage: "How long the request stays open",
					},
				},
				Action: func(cCtx *cli.Context) error {
					return NewClientConfig(cCtx).SubmitRequest(
						cCtx.String(flagCredentialFile.Name),
						cCtx.StringSlice("attestor"),
						cCtx.Int("threshold"),
						cCtx.Duration("expires-in"),
					)
				},
			},
			{
				Name:        "status",
				Usage:       "Show the progress of an attestation request",
				Description: "",
				Flags: []cli.Flag{
					flagRequestID,
				},
				Action: func(cCtx *cli.Context) error {
					return NewClientConfig(cCtx).RequestStatus(requestID(cCtx))
				},
			},
			{
				Name:        "result",
				Usage:       "Fetch the result of a completed request",
				Description: "",
				Flags: []cli.Flag{
					flagRequestID,
				},
				Action: func(cCtx *cli.Context) error {
					return NewClientConfig(cCtx).Result(requestID(cCtx))
				},
			},
			{
				Name:        "attest",
				Usage:       "Record an attestor's decision on a request",
				Description: "",
				Flags: []cli.Flag{
					flagRequestID,
					&cli.StringFlag{
						Name:     "attestor-id",
						Required: true,
						Usage:    "Responding attestor's ID",
					},
					&cli.BoolFlag{
						Name:  "reject",
						Value: false,
						Usage: "Reject instead of approving",
					},
					&cli.StringFlag{
						Name:  "reason",
						Value: "",
						Usage: "Free-form annotation, e.g. a rejection reason",
					},
					&cli.StringFlag{
						Name:  "claims-file",
						Value: "",
						Usage: "Path to a JSON object of the claims actually checked",
					},
				},
				Action: func(cCtx *cli.Context) error {
					var verifiedClaims map[string]any
					if claimsFile := cCtx.String("claims-file"); claimsFile != "" {
						var err error
						verifiedClaims, err = readClaims(claimsFile)
						if err != nil {
							return err
						}
					}

					return NewClientConfig(cCtx).Attest(
						requestID(cCtx),
						interfaces.AttestorID(cCtx.String("attestor-id")),
						!cCtx.Bool("reject"),
						cCtx.String("reason"),
						verifiedClaims,
					)
				},
			},
			{
				Name:        "verify",
				Usage:       "Verify an attestation result against a credential",
				Description: "",
				Flags: []cli.Flag{
					flagCredentialFile,
					&cli.StringFlag{
						Name:     "result-file",
						Required: true,
						Usage:    "Path to the attestation result JSON",
					},
				},
				Action: func(cCtx *cli.Context) error {
					return NewClientConfig(cCtx).VerifyResult(
						cCtx.String(flagCredentialFile.Name),
						cCtx.String("result-file"),
					)
				},
			},
			{
				Name:        "did-keygen",
				Usage:       "Generate a DID and its controlling keypair",
				Description: "",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "method",
						Value: "key",
						Usage: "DID method: 'key' (ed25519) or 'ethr' (secp256k1)",
					},
				},
				Action: func(cCtx *cli.Context) error {
					switch method := cCtx.String("method"); method {
					case "key":
						did, privateKey, err := identity.GenerateKeyDID()
						if err != nil {
							return err
						}
						fmt.Printf("DID: %s\n", did)
						fmt.Printf("Private key (hex): %s\n", hex.EncodeToString(privateKey))
					case "ethr":
						did, privateKey, err := identity.GenerateEthrDID()
						if err != nil {
							return err
						}
						fmt.Printf("DID: %s\n", did)
						fmt.Printf("Private key (hex): %s\n", hex.EncodeToString(ethcrypto.FromECDSA(privateKey)))
					default:
						return fmt.Errorf("unsupported DID method: %s", method)
					}
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

type Client struct {
	Service api.AttestationService
}

func NewClientConfig(cCtx *cli.Context) *Client {
	return &Client{
		Service: clients.NewAttestationClient(cCtx.String(flagCoordinatorAddr.Name), 0),
	}
}

func requestID(cCtx *cli.Context) interfaces.RequestID {
	return interfaces.RequestID(cCtx.String(flagRequestID.Name))
}

func (c *Client) SubmitRequest(credentialFile string, attestors []string, threshold int, expiresIn time.Duration) error {
	credential, err := readCredential(credentialFile)
	if err != nil {
		return err
	}

	required := make([]interfaces.AttestorID, 0, len(attestors))
	for _, id := range attestors {
		required = append(required, interfaces.AttestorID(id))
	}

	parsedResponse, err := c.Service.SubmitRequest(&api.SubmitRequestRequest{
		Credential:        credential,
		RequiredAttestors: required,
		Threshold:         threshold,
		ExpiresAt:         time.Now().Add(expiresIn),
	})
	if err != nil {
		return fmt.Errorf("submit failed: %w", err)
	}

	encoded, _ := json.Marshal(parsedResponse)
	fmt.Println(string(encoded))
	return nil
}

func (c *Client) RequestStatus(requestID interfaces.RequestID) error {
	parsedResponse, err := c.Service.RequestStatus(requestID)
	if err != nil {
		return fmt.Errorf("status request failed: %w", err)
	}

	encoded, _ := json.Marshal(parsedResponse)
	fmt.Println(string(encoded))
	return nil
}

func (c *Client) Result(requestID interfaces.RequestID) error {
	result, err := c.Service.Result(requestID)
	if err != nil {
		return fmt.Errorf("result request failed: %w", err)
	}

	encoded, _ := json.Marshal(result)
	fmt.Println(string(encoded))
	return nil
}

func (c *Client) Attest(requestID interfaces.RequestID, attestorID interfaces.AttestorID, approved bool, reason string, verifiedClaims map[string]any) error {
	req := &api.AttestationDecisionRequest{
		AttestorID:     attestorID,
		Approved:       approved,
		VerifiedClaims: verifiedClaims,
	}
	if reason != "" {
		req.Metadata = map[string]string{"reason": reason}
	}

	parsedResponse, err := c.Service.SubmitDecision(requestID, req)
	if err != nil {
		return fmt.Errorf("decision failed: %w", err)
	}

	encoded, _ := json.Marshal(parsedResponse)
	fmt.Println(string(encoded))
	return nil
}

func (c *Client) VerifyResult(credentialFile, resultFile string) error {
	credential, err := readCredential(credentialFile)
	if err != nil {
		return err
	}

	resultJSON, err := os.ReadFile(resultFile)
	if err != nil {
		return err
	}

	var req api.VerifyResultRequest
	req.Credential = credential
	if err := json.Unmarshal(resultJSON, &req.Result); err != nil {
		return fmt.Errorf("could not parse result document: %w", err)
	}

	parsedResponse, err := c.Service.VerifyResult(&req)
	if err != nil {
		return fmt.Errorf("verification request failed: %w", err)
	}

	encoded, _ := json.Marshal(parsedResponse)
	fmt.Println(string(encoded))
	return nil
}

func (c *Client) SchemeInfo() error {
	parsedResponse, err := c.Service.SchemeInfo()
	if err != nil {
		return fmt.Errorf("scheme request failed: %w", err)
	}

	encoded, _ := json.Marshal(parsedResponse)
	fmt.Println(string(encoded))
	return nil
}

func readCredential(path string) (identity.Credential, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return identity.Credential{}, err
	}

	var credential identity.Credential
	if err := json.Unmarshal(data, &credential); err != nil {
		return identity.Credential{}, fmt.Errorf("could not parse credential document: %w", err)
	}
	return credential, nil
}

func readClaims(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var claims map[string]any
	if err := json.Unmarshal(data, &claims); err != nil {
		return nil, fmt.Errorf("could not parse claims object: %w", err)
	}
	return claims, nil
}
