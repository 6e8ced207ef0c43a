package main

import (
	"encoding/hex"
	"io"

	"secureflow/crypto"
	"secureflow/native/bank"
	"secureflow/native/escrow"
)

func runBankCommand(a *app, command string, args []string, stdout, stderr io.Writer) int {
	switch command {
	case "deposit":
		return runBankDeposit(a, args, stdout, stderr)
	case "balance":
		return runBankBalance(a, args, stdout, stderr)
	default:
		return unknownCommand(stderr, "bank", command)
	}
}

// runBankDeposit credits an account out of thin air. It funds local test
// accounts; it is not an escrow operation and needs no caller.
func runBankDeposit(a *app, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("bank deposit", stderr)
	accountRaw := fs.String("account", "", "account to credit")
	assetRaw := fs.String("asset", "native", "asset identifier")
	amountRaw := fs.String("amount", "", "amount in base units")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	if *accountRaw == "" {
		return printError(stderr, "--account is required")
	}
	account, err := parseAccount(*accountRaw)
	if err != nil {
		return printError(stderr, "--account: "+err.Error())
	}
	asset, err := parseAsset(*assetRaw)
	if err != nil {
		return printError(stderr, "--asset: "+err.Error())
	}
	amount, err := parseAmount(*amountRaw)
	if err != nil {
		return printError(stderr, "--amount: "+err.Error())
	}
	return a.executeAs("bank.deposit", stdout, stderr, func(_ *escrow.Engine, b *bank.Ledger) (interface{}, error) {
		if err := b.Credit(asset, account, amount); err != nil {
			return nil, err
		}
		balance, err := b.Balance(asset, account)
		if err != nil {
			return nil, err
		}
		return map[string]string{"balance": decimal(balance)}, nil
	})
}

func runBankBalance(a *app, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("bank balance", stderr)
	accountRaw := fs.String("account", "", "account to inspect (default: caller)")
	assetRaw := fs.String("asset", "native", "asset identifier")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	account, ok := accountOrCaller(a, *accountRaw, stderr)
	if !ok {
		return 1
	}
	asset, err := parseAsset(*assetRaw)
	if err != nil {
		return printError(stderr, "--asset: "+err.Error())
	}
	return a.view(stdout, stderr, func(_ *escrow.Engine, b *bank.Ledger) (interface{}, error) {
		balance, err := b.Balance(asset, account)
		if err != nil {
			return nil, err
		}
		return map[string]string{
			"account": crypto.FormatAccount(account),
			"asset":   crypto.FormatAsset(asset),
			"balance": decimal(balance),
		}, nil
	})
}

func runUserCommand(a *app, command string, args []string, stdout, stderr io.Writer) int {
	if command != "show" {
		return unknownCommand(stderr, "user", command)
	}
	fs := newFlagSet("user show", stderr)
	accountRaw := fs.String("account", "", "account to inspect (default: caller)")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	account, ok := accountOrCaller(a, *accountRaw, stderr)
	if !ok {
		return 1
	}
	return a.view(stdout, stderr, func(e *escrow.Engine, _ *bank.Ledger) (interface{}, error) {
		ids, err := e.UserEscrows(account)
		if err != nil {
			return nil, err
		}
		score, err := e.Reputation(account)
		if err != nil {
			return nil, err
		}
		completed, err := e.CompletedEscrows(account)
		if err != nil {
			return nil, err
		}
		return struct {
			Account    string   `json:"account"`
			Escrows    []uint64 `json:"escrows"`
			Reputation uint64   `json:"reputation"`
			Completed  uint64   `json:"completedEscrows"`
		}{crypto.FormatAccount(account), ids, score, completed}, nil
	})
}

func runJournalCommand(a *app, command string, args []string, stdout, stderr io.Writer) int {
	switch command {
	case "verify":
		fs := newFlagSet("journal verify", stderr)
		if !parseFlags(fs, args, stderr) {
			return 1
		}
		head, err := a.exec.Verify()
		if err != nil {
			return printError(stderr, err.Error())
		}
		return writeJSON(stdout, stderr, map[string]interface{}{
			"height": head.Seq,
			"head":   hex.EncodeToString(head.Digest[:]),
			"valid":  true,
		})
	case "entry":
		fs := newFlagSet("journal entry", stderr)
		seq := fs.Uint64("seq", 0, "journal sequence number")
		if !parseFlags(fs, args, stderr) {
			return 1
		}
		entry, err := a.exec.Entry(*seq)
		if err != nil {
			return printError(stderr, err.Error())
		}
		evts := make([]eventView, 0, len(entry.Events))
		for _, evt := range entry.Events {
			attrs := make(map[string]string, len(evt.Attributes))
			for _, attr := range evt.Attributes {
				attrs[attr.Key] = attr.Value
			}
			evts = append(evts, eventView{Type: evt.Type, Attributes: attrs})
		}
		return writeJSON(stdout, stderr, map[string]interface{}{
			"seq":    entry.Seq,
			"opId":   entry.OpID,
			"name":   entry.Name,
			"caller": crypto.FormatAccount(entry.Caller),
			"time":   entry.Time,
			"prev":   hex.EncodeToString(entry.Prev[:]),
			"events": evts,
		})
	default:
		return unknownCommand(stderr, "journal", command)
	}
}

func accountOrCaller(a *app, raw string, stderr io.Writer) ([20]byte, bool) {
	if raw == "" {
		if a.caller == ([20]byte{}) {
			printError(stderr, "--account or -caller is required")
			return [20]byte{}, false
		}
		return a.caller, true
	}
	account, err := parseAccount(raw)
	if err != nil {
		printError(stderr, "--account: "+err.Error())
		return [20]byte{}, false
	}
	return account, true
}
