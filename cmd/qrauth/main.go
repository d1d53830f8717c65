package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/aussiebroadwan/qrauth/internal/authenticator/app"
	"github.com/aussiebroadwan/qrauth/internal/authenticator/domain"
	"github.com/aussiebroadwan/qrauth/internal/authenticator/vault"
	"github.com/aussiebroadwan/qrauth/pkg/idx"
)

func usage() {
	fmt.Fprintln(os.Stderr, `usage: qrauth <command> [args]

commands:
  authenticate <challenge-url>   complete a scanned authentication challenge
  enroll <server> <auth-url> <suite> <username> <secret-hex>
                                 enroll an account for an identity provider
  identities                     list enrolled accounts
  token register <device-token>  exchange and store a notification token
  token migrate <device-token>   run the one-shot token migration`)
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cfg := app.LoadConfig()
	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}
	defer application.Close()

	ctx := context.Background()

	switch os.Args[1] {
	case "authenticate":
		if len(os.Args) != 3 {
			usage()
		}
		err = runAuthenticate(ctx, application, os.Args[2])
	case "enroll":
		if len(os.Args) != 7 {
			usage()
		}
		err = runEnroll(ctx, application, os.Args[2], os.Args[3], os.Args[4], os.Args[5], os.Args[6])
	case "identities":
		err = runIdentities(ctx, application)
	case "token":
		if len(os.Args) != 4 {
			usage()
		}
		switch os.Args[2] {
		case "register":
			application.Tokens().RegisterDeviceToken(ctx, os.Args[3])
		case "migrate":
			err = application.Tokens().MigrateIfNeeded(ctx, func(context.Context) (string, error) {
				return os.Args[3], nil
			})
		default:
			usage()
		}
	default:
		usage()
	}

	if err != nil {
		log.Fatalf("%s failed: %v", os.Args[1], err)
	}
}

func runAuthenticate(ctx context.Context, application *app.Application, rawChallenge string) error {
	svc := application.Authentication()

	parsed := svc.ParseChallenge(ctx, rawChallenge)
	if !parsed.OK() {
		return fmt.Errorf("%s: %s", parsed.Failure.Title, parsed.Failure.Message)
	}

	challenge := parsed.Challenge
	stdin := bufio.NewReader(os.Stdin)

	if challenge.Ambiguous() {
		identity, err := chooseIdentity(stdin, challenge.Identities)
		if err != nil {
			return err
		}
		challenge.Identity = &identity
		challenge.Identities = nil
	}

	fmt.Printf("Authenticating %s at %s\n", challenge.Identity.DisplayName, challenge.ServiceProviderDisplayName)
	fmt.Print("PIN: ")
	pin, err := readLine(stdin)
	if err != nil {
		return err
	}

	result := svc.CompleteChallenge(ctx, domain.CompleteRequest{
		Challenge:  challenge,
		Credential: domain.SecretCredential{Type: domain.SecretTypePIN, Password: pin},
	})
	if !result.OK() {
		return fmt.Errorf("%s: %s", result.Failure.Title, result.Failure.Message)
	}

	fmt.Println("Authentication successful.")
	if challenge.ReturnURL != "" {
		fmt.Printf("Return to %s to continue.\n", challenge.ReturnURL)
	}
	return nil
}

func chooseIdentity(stdin *bufio.Reader, identities []domain.Identity) (domain.Identity, error) {
	fmt.Println("Multiple accounts match this challenge:")
	for i, id := range identities {
		fmt.Printf("  [%d] %s (%s)\n", i+1, id.DisplayName, id.Identifier)
	}
	fmt.Print("Account: ")

	line, err := readLine(stdin)
	if err != nil {
		return domain.Identity{}, err
	}
	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > len(identities) {
		return domain.Identity{}, fmt.Errorf("invalid selection %q", line)
	}
	return identities[n-1], nil
}

func runEnroll(ctx context.Context, application *app.Application, server, authURL, suite, username, secretHex string) error {
	stdin := bufio.NewReader(os.Stdin)
	fmt.Print("Choose a PIN: ")
	pin, err := readLine(stdin)
	if err != nil {
		return err
	}

	store := application.Store()
	provider := domain.IdentityProvider{
		Identifier:        server,
		DisplayName:       server,
		AuthenticationURL: authURL,
		OCRASuite:         suite,
	}
	if err := store.IdentityProviders().Create(ctx, provider); err != nil {
		// A second account under a known provider is fine.
		if _, lookupErr := store.IdentityProviders().GetByIdentifier(ctx, server); lookupErr != nil {
			return fmt.Errorf("failed to enroll identity provider: %w", err)
		}
	}

	identity := domain.Identity{
		ID:                 idx.New().String(),
		Identifier:         username,
		DisplayName:        username,
		ProviderIdentifier: server,
	}
	if err := store.Identities().Create(ctx, identity); err != nil {
		return fmt.Errorf("failed to enroll identity: %w", err)
	}

	secret, err := decodeSecret(secretHex)
	if err != nil {
		return err
	}

	v := application.Vault()
	sessionKey, err := v.SessionKey(ctx, pin)
	if err != nil {
		return fmt.Errorf("failed to derive session key: %w", err)
	}
	ref := v.SecretRef(identity.ID, vault.FactorPIN)
	if err := v.Store(ctx, ref, sessionKey, secret); err != nil {
		_ = store.Identities().Delete(ctx, identity.ID)
		return fmt.Errorf("failed to store secret: %w", err)
	}

	fmt.Printf("Enrolled %s at %s.\n", username, server)
	return nil
}

func decodeSecret(s string) ([]byte, error) {
	secret, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil || len(secret) == 0 {
		return nil, fmt.Errorf("secret must be a hex string")
	}
	return secret, nil
}

func runIdentities(ctx context.Context, application *app.Application) error {
	store := application.Store()

	providers, err := store.IdentityProviders().List(ctx)
	if err != nil {
		return err
	}
	if len(providers) == 0 {
		fmt.Println("No accounts enrolled.")
		return nil
	}

	for _, p := range providers {
		fmt.Printf("%s (%s)\n", p.DisplayName, p.Identifier)
		identities, err := store.Identities().List(ctx, p.Identifier)
		if err != nil {
			return err
		}
		for _, id := range identities {
			marker := ""
			if id.Blocked {
				marker = " [blocked]"
			}
			fmt.Printf("  %s (%s)%s\n", id.DisplayName, id.Identifier, marker)
		}
	}
	return nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
