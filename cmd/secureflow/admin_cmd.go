package main

import (
	"io"
	"strconv"

	"secureflow/crypto"
	"secureflow/native/bank"
	"secureflow/native/escrow"
)

func runAdminCommand(a *app, command string, args []string, stdout, stderr io.Writer) int {
	switch command {
	case "init":
		return runAdminInit(a, args, stdout, stderr)
	case "config":
		return runAdminConfig(a, args, stdout, stderr)
	case "pause", "unpause", "pause-jobs", "unpause-jobs":
		return runAdminSwitch(a, command, args, stdout, stderr)
	case "whitelist", "blacklist":
		return runAdminAsset(a, command, args, stdout, stderr)
	case "authorize-arbiter", "revoke-arbiter":
		return runAdminArbiter(a, command, args, stdout, stderr)
	case "set-fee":
		return runAdminSetFee(a, args, stdout, stderr)
	case "set-collector":
		return runAdminSetCollector(a, args, stdout, stderr)
	case "withdraw-fees":
		return runAdminWithdrawFees(a, args, stdout, stderr)
	case "emergency-withdraw":
		return runAdminEmergencyWithdraw(a, args, stdout, stderr)
	default:
		return unknownCommand(stderr, "admin", command)
	}
}

func runAdminInit(a *app, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("admin init", stderr)
	var (
		collectorRaw string
		feeBps       uint
	)
	fs.StringVar(&collectorRaw, "collector", "", "fee collector account (default: caller)")
	fs.UintVar(&feeBps, "fee-bps", uint(a.cfg.Escrow.InitialFeeBps), "platform fee in basis points")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	collector := a.caller
	if collectorRaw != "" {
		parsed, err := parseAccount(collectorRaw)
		if err != nil {
			return printError(stderr, "--collector: "+err.Error())
		}
		collector = parsed
	}
	if feeBps > uint(^uint32(0)) {
		return printError(stderr, "--fee-bps out of range")
	}
	return a.execute("admin.init", stdout, stderr, func(e *escrow.Engine, _ *bank.Ledger) (interface{}, error) {
		return nil, e.Initialize(a.caller, collector, uint32(feeBps))
	})
}

func runAdminConfig(a *app, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("admin config", stderr)
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	return a.view(stdout, stderr, func(e *escrow.Engine, _ *bank.Ledger) (interface{}, error) {
		cfg, err := e.Config()
		if err != nil {
			return nil, err
		}
		next, err := e.NextEscrowID()
		if err != nil {
			return nil, err
		}
		return struct {
			configView
			NextEscrowID uint64 `json:"nextEscrowId"`
			Custody      string `json:"custody"`
		}{newConfigView(cfg), next, crypto.FormatAccount(a.exec.Custody())}, nil
	})
}

func runAdminSwitch(a *app, command string, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("admin "+command, stderr)
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	return a.execute("admin."+command, stdout, stderr, func(e *escrow.Engine, _ *bank.Ledger) (interface{}, error) {
		switch command {
		case "pause":
			return nil, e.Pause(a.caller)
		case "unpause":
			return nil, e.Unpause(a.caller)
		case "pause-jobs":
			return nil, e.PauseJobCreation(a.caller)
		default:
			return nil, e.UnpauseJobCreation(a.caller)
		}
	})
}

func runAdminAsset(a *app, command string, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("admin "+command, stderr)
	var assetRaw string
	fs.StringVar(&assetRaw, "asset", "", "asset identifier")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	if assetRaw == "" {
		return printError(stderr, "--asset is required")
	}
	asset, err := parseAsset(assetRaw)
	if err != nil {
		return printError(stderr, "--asset: "+err.Error())
	}
	return a.execute("admin."+command, stdout, stderr, func(e *escrow.Engine, _ *bank.Ledger) (interface{}, error) {
		if command == "whitelist" {
			return nil, e.WhitelistAsset(a.caller, asset)
		}
		return nil, e.BlacklistAsset(a.caller, asset)
	})
}

func runAdminArbiter(a *app, command string, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("admin "+command, stderr)
	var arbiterRaw string
	fs.StringVar(&arbiterRaw, "arbiter", "", "arbiter account")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	if arbiterRaw == "" {
		return printError(stderr, "--arbiter is required")
	}
	arbiter, err := parseAccount(arbiterRaw)
	if err != nil {
		return printError(stderr, "--arbiter: "+err.Error())
	}
	return a.execute("admin."+command, stdout, stderr, func(e *escrow.Engine, _ *bank.Ledger) (interface{}, error) {
		if command == "authorize-arbiter" {
			return nil, e.AuthorizeArbiter(a.caller, arbiter)
		}
		return nil, e.RevokeArbiter(a.caller, arbiter)
	})
}

func runAdminSetFee(a *app, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("admin set-fee", stderr)
	var bpsRaw string
	fs.StringVar(&bpsRaw, "bps", "", "platform fee in basis points")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	bps, err := strconv.ParseUint(bpsRaw, 10, 32)
	if err != nil {
		return printError(stderr, "--bps must be a non-negative integer")
	}
	return a.execute("admin.set-fee", stdout, stderr, func(e *escrow.Engine, _ *bank.Ledger) (interface{}, error) {
		return nil, e.SetFeeBps(a.caller, uint32(bps))
	})
}

func runAdminSetCollector(a *app, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("admin set-collector", stderr)
	var collectorRaw string
	fs.StringVar(&collectorRaw, "collector", "", "fee collector account")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	if collectorRaw == "" {
		return printError(stderr, "--collector is required")
	}
	collector, err := parseAccount(collectorRaw)
	if err != nil {
		return printError(stderr, "--collector: "+err.Error())
	}
	return a.execute("admin.set-collector", stdout, stderr, func(e *escrow.Engine, _ *bank.Ledger) (interface{}, error) {
		return nil, e.SetFeeCollector(a.caller, collector)
	})
}

func runAdminWithdrawFees(a *app, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("admin withdraw-fees", stderr)
	var assetRaw string
	fs.StringVar(&assetRaw, "asset", "native", "asset identifier")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	asset, err := parseAsset(assetRaw)
	if err != nil {
		return printError(stderr, "--asset: "+err.Error())
	}
	return a.execute("admin.withdraw-fees", stdout, stderr, func(e *escrow.Engine, _ *bank.Ledger) (interface{}, error) {
		amount, err := e.WithdrawFees(a.caller, asset)
		if err != nil {
			return nil, err
		}
		return map[string]string{"withdrawn": decimal(amount)}, nil
	})
}

func runAdminEmergencyWithdraw(a *app, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("admin emergency-withdraw", stderr)
	var assetRaw, amountRaw string
	fs.StringVar(&assetRaw, "asset", "native", "asset identifier")
	fs.StringVar(&amountRaw, "amount", "", "amount in base units")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	asset, err := parseAsset(assetRaw)
	if err != nil {
		return printError(stderr, "--asset: "+err.Error())
	}
	amount, err := parseAmount(amountRaw)
	if err != nil {
		return printError(stderr, "--amount: "+err.Error())
	}
	return a.execute("admin.emergency-withdraw", stdout, stderr, func(e *escrow.Engine, _ *bank.Ledger) (interface{}, error) {
		return nil, e.EmergencyWithdraw(a.caller, asset, amount)
	})
}
