package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/holiman/uint256"

	"secureflow/config"
	"secureflow/core/ledger"
	"secureflow/crypto"
	"secureflow/native/bank"
	"secureflow/native/escrow"
	"secureflow/observability/logging"
	telemetry "secureflow/observability/otel"
	"secureflow/storage"
)

const defaultConfigPath = "secureflow.toml"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// app is the per-invocation wiring: one store, one executor, one operation.
type app struct {
	cfg      *config.Config
	db       storage.Database
	exec     *ledger.Executor
	logger   *slog.Logger
	shutdown func(context.Context) error
	caller   [20]byte
	now      uint64
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("secureflow", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprintln(stderr, usage()) }
	var (
		configPath string
		callerRaw  string
		nowRaw     uint64
	)
	fs.StringVar(&configPath, "config", defaultConfigPath, "path to the TOML or YAML configuration")
	fs.StringVar(&callerRaw, "caller", "", "acting account (bech32, 0x hex or @label)")
	fs.Uint64Var(&nowRaw, "now", 0, "logical unix time for the operation (default: wall clock)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	rest := fs.Args()
	if len(rest) < 2 {
		fmt.Fprintln(stderr, usage())
		return 1
	}

	var caller [20]byte
	if strings.TrimSpace(callerRaw) != "" {
		parsed, err := parseAccount(callerRaw)
		if err != nil {
			return printError(stderr, fmt.Sprintf("-caller: %v", err))
		}
		caller = parsed
	}

	a, err := openApp(configPath, stderr)
	if err != nil {
		return printError(stderr, err.Error())
	}
	defer a.close()
	a.caller = caller
	a.now = nowRaw

	group, command, cmdArgs := rest[0], rest[1], rest[2:]
	switch group {
	case "admin":
		return runAdminCommand(a, command, cmdArgs, stdout, stderr)
	case "escrow":
		return runEscrowCommand(a, command, cmdArgs, stdout, stderr)
	case "job":
		return runJobCommand(a, command, cmdArgs, stdout, stderr)
	case "bank":
		return runBankCommand(a, command, cmdArgs, stdout, stderr)
	case "user":
		return runUserCommand(a, command, cmdArgs, stdout, stderr)
	case "journal":
		return runJournalCommand(a, command, cmdArgs, stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown command group: %s\n", group)
		fmt.Fprintln(stderr, usage())
		return 1
	}
}

func openApp(configPath string, stderr io.Writer) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := logging.Setup(logging.Options{
		Service:    "secureflow",
		Env:        cfg.Logging.Env,
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Output:     stderr,
	})

	shutdown, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName: "secureflow",
		Environment: cfg.Logging.Env,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(cfg.Telemetry.Headers),
		Metrics:     cfg.Telemetry.Metrics,
		Traces:      cfg.Telemetry.Traces,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	limits, err := cfg.Limits()
	if err != nil {
		_ = shutdown(context.Background())
		return nil, err
	}
	var custody [20]byte
	if cfg.Custody != "" {
		custody, err = crypto.ParseAddress(cfg.Custody)
		if err != nil {
			_ = shutdown(context.Background())
			return nil, fmt.Errorf("custody: %w", err)
		}
	}

	db, err := storage.Open(cfg.Backend, cfg.DataDir)
	if err != nil {
		_ = shutdown(context.Background())
		return nil, err
	}
	exec, err := ledger.New(db, ledger.Options{
		Custody: custody,
		Limits:  &limits,
		Logger:  logger,
	})
	if err != nil {
		db.Close()
		_ = shutdown(context.Background())
		return nil, err
	}
	return &app{cfg: cfg, db: db, exec: exec, logger: logger, shutdown: shutdown}, nil
}

func (a *app) close() {
	a.db.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.shutdown(ctx); err != nil {
		a.logger.Warn("telemetry shutdown failed", slog.Any("error", err))
	}
}

// execute runs fn as one ledger operation on behalf of the -caller account and
// prints the receipt.
func (a *app) execute(name string, stdout, stderr io.Writer, fn func(*escrow.Engine, *bank.Ledger) (interface{}, error)) int {
	if a.caller == ([20]byte{}) {
		return printError(stderr, "-caller is required")
	}
	return a.executeAs(name, stdout, stderr, fn)
}

func (a *app) executeAs(name string, stdout, stderr io.Writer, fn func(*escrow.Engine, *bank.Ledger) (interface{}, error)) int {
	var result interface{}
	receipt, err := a.exec.Execute(context.Background(), ledger.Op{Name: name, Caller: a.caller, Now: a.now}, func(e *escrow.Engine, b *bank.Ledger) error {
		var err error
		result, err = fn(e, b)
		return err
	})
	if err != nil {
		return printError(stderr, err.Error())
	}
	return writeJSON(stdout, stderr, newReceiptView(receipt, result))
}

// view runs fn against committed state and prints its result.
func (a *app) view(stdout, stderr io.Writer, fn func(*escrow.Engine, *bank.Ledger) (interface{}, error)) int {
	var result interface{}
	err := a.exec.View(func(e *escrow.Engine, b *bank.Ledger) error {
		var err error
		result, err = fn(e, b)
		return err
	})
	if err != nil {
		return printError(stderr, err.Error())
	}
	return writeJSON(stdout, stderr, result)
}

func usage() string {
	return strings.TrimSpace(`Usage:
  secureflow [-config path] [-caller account] [-now unix] <group> <command> [flags]

Groups:
  admin    init, pause, unpause, pause-jobs, unpause-jobs, whitelist, blacklist,
           authorize-arbiter, revoke-arbiter, set-fee, set-collector,
           withdraw-fees, emergency-withdraw
  escrow   create, create-native, start, submit, approve, reject, resubmit,
           dispute, resolve, refund, emergency-refund, extend, get, milestones
  job      apply, accept, applications
  bank     deposit, balance
  user     show
  journal  verify, entry

Accounts are bech32 (sf1...), 0x hex, or @label for a derived local account.
`)
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, usage())
	}
	return fs
}

// parseFlags parses args and rejects positional leftovers.
func parseFlags(fs *flag.FlagSet, args []string, stderr io.Writer) bool {
	if err := fs.Parse(args); err != nil {
		return false
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(stderr, "Error: unexpected positional arguments")
		return false
	}
	return true
}

func printError(w io.Writer, msg string) int {
	fmt.Fprintf(w, "Error: %s\n", msg)
	return 1
}

func unknownCommand(stderr io.Writer, group, command string) int {
	fmt.Fprintf(stderr, "Unknown %s subcommand: %s\n", group, command)
	fmt.Fprintln(stderr, usage())
	return 1
}

func writeJSON(stdout, stderr io.Writer, v interface{}) int {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return printError(stderr, fmt.Sprintf("encode output: %v", err))
	}
	return 0
}

// parseAccount accepts bech32, 0x hex or "@label".
func parseAccount(raw string) ([20]byte, error) {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "@") {
		label := strings.TrimSpace(trimmed[1:])
		if label == "" {
			return [20]byte{}, fmt.Errorf("empty account label")
		}
		return crypto.LabelAddress(label), nil
	}
	return crypto.ParseAddress(trimmed)
}

func parseAccountList(raw string) ([][20]byte, error) {
	out := make([][20]byte, 0)
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		addr, err := parseAccount(part)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}

func parseAsset(raw string) ([20]byte, error) {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "@") {
		return parseAccount(trimmed)
	}
	return crypto.ParseAsset(trimmed)
}

// parseAmount parses a base-unit integer. Underscores are ignored and an
// exponent suffix is accepted, so 5e18 and 5_000 are both valid.
func parseAmount(raw string) (*uint256.Int, error) {
	trimmed := strings.ReplaceAll(strings.TrimSpace(raw), "_", "")
	if trimmed == "" {
		return nil, fmt.Errorf("amount required")
	}
	base, exp := trimmed, uint64(0)
	if idx := strings.IndexAny(trimmed, "eE"); idx != -1 {
		base = trimmed[:idx]
		parsed, err := strconv.ParseUint(trimmed[idx+1:], 10, 8)
		if err != nil || parsed > 77 {
			return nil, fmt.Errorf("invalid exponent in amount %q", raw)
		}
		exp = parsed
	}
	value, err := uint256.FromDecimal(base)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	if exp > 0 {
		scale := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(exp))
		if _, overflow := value.MulOverflow(value, scale); overflow {
			return nil, fmt.Errorf("amount %q overflows", raw)
		}
	}
	return value, nil
}

// parseDuration accepts plain seconds or a Go duration such as 72h.
func parseDuration(raw string) (uint64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, fmt.Errorf("duration required")
	}
	if secs, err := strconv.ParseUint(trimmed, 10, 64); err == nil {
		return secs, nil
	}
	d, err := time.ParseDuration(trimmed)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid duration %q", raw)
	}
	return uint64(d / time.Second), nil
}
