package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/holiman/uint256"

	"secureflow/native/bank"
	"secureflow/native/escrow"
)

// milestoneFlags collects repeated --milestone amount:description values.
type milestoneFlags struct {
	amounts      []*uint256.Int
	descriptions []string
}

func (m *milestoneFlags) String() string { return fmt.Sprintf("%d milestones", len(m.amounts)) }

func (m *milestoneFlags) Set(raw string) error {
	amountRaw, description, found := strings.Cut(raw, ":")
	if !found {
		return fmt.Errorf("milestone must be amount:description")
	}
	amount, err := parseAmount(amountRaw)
	if err != nil {
		return err
	}
	m.amounts = append(m.amounts, amount)
	m.descriptions = append(m.descriptions, description)
	return nil
}

func runEscrowCommand(a *app, command string, args []string, stdout, stderr io.Writer) int {
	switch command {
	case "create":
		return runEscrowCreate(a, false, args, stdout, stderr)
	case "create-native":
		return runEscrowCreate(a, true, args, stdout, stderr)
	case "start", "refund", "emergency-refund":
		return runEscrowByID(a, command, args, stdout, stderr)
	case "submit", "resubmit":
		return runEscrowSubmit(a, command, args, stdout, stderr)
	case "approve":
		return runEscrowApprove(a, args, stdout, stderr)
	case "reject", "dispute":
		return runEscrowWithReason(a, command, args, stdout, stderr)
	case "resolve":
		return runEscrowResolve(a, args, stdout, stderr)
	case "extend":
		return runEscrowExtend(a, args, stdout, stderr)
	case "get":
		return runEscrowGet(a, args, stdout, stderr)
	case "milestones":
		return runEscrowMilestones(a, args, stdout, stderr)
	default:
		return unknownCommand(stderr, "escrow", command)
	}
}

func runEscrowCreate(a *app, native bool, args []string, stdout, stderr io.Writer) int {
	name := "escrow create"
	if native {
		name = "escrow create-native"
	}
	fs := newFlagSet(name, stderr)
	var (
		beneficiaryRaw string
		arbitersRaw    string
		confirmations  uint64
		assetRaw       string
		durationRaw    string
		title          string
		description    string
		valueRaw       string
		milestones     milestoneFlags
	)
	fs.StringVar(&beneficiaryRaw, "beneficiary", "", "freelancer account; omit to post an open job")
	fs.StringVar(&arbitersRaw, "arbiters", "", "comma-separated arbiter accounts")
	fs.Uint64Var(&confirmations, "confirmations", 1, "required arbiter confirmations")
	fs.StringVar(&durationRaw, "duration", "", "escrow duration as seconds or Go duration (e.g. 336h)")
	fs.StringVar(&title, "title", "", "project title")
	fs.StringVar(&description, "description", "", "project description")
	fs.Var(&milestones, "milestone", "milestone as amount:description (repeatable)")
	if native {
		fs.StringVar(&valueRaw, "value", "", "attached native value (total plus fee)")
	} else {
		fs.StringVar(&assetRaw, "asset", "", "asset identifier")
	}
	if !parseFlags(fs, args, stderr) {
		return 1
	}

	params := escrow.CreateParams{
		RequiredConfirmations: confirmations,
		MilestoneAmounts:      milestones.amounts,
		MilestoneDescriptions: milestones.descriptions,
		Title:                 title,
		Description:           description,
	}
	if beneficiaryRaw != "" {
		beneficiary, err := parseAccount(beneficiaryRaw)
		if err != nil {
			return printError(stderr, "--beneficiary: "+err.Error())
		}
		params.Beneficiary = beneficiary
	}
	arbiters, err := parseAccountList(arbitersRaw)
	if err != nil {
		return printError(stderr, "--arbiters: "+err.Error())
	}
	params.Arbiters = arbiters
	if durationRaw == "" {
		return printError(stderr, "--duration is required")
	}
	if params.Duration, err = parseDuration(durationRaw); err != nil {
		return printError(stderr, "--duration: "+err.Error())
	}

	var value *uint256.Int
	if native {
		if value, err = parseAmount(valueRaw); err != nil {
			return printError(stderr, "--value: "+err.Error())
		}
	} else {
		if assetRaw == "" {
			return printError(stderr, "--asset is required")
		}
		if params.Asset, err = parseAsset(assetRaw); err != nil {
			return printError(stderr, "--asset: "+err.Error())
		}
	}

	opName := "escrow.create"
	if native {
		opName = "escrow.create-native"
	}
	return a.execute(opName, stdout, stderr, func(e *escrow.Engine, _ *bank.Ledger) (interface{}, error) {
		var (
			id  uint64
			err error
		)
		if native {
			id, err = e.CreateNative(a.caller, params, value)
		} else {
			id, err = e.Create(a.caller, params)
		}
		if err != nil {
			return nil, err
		}
		return map[string]uint64{"escrowId": id}, nil
	})
}

func idFlag(fs *flag.FlagSet) *uint64 {
	return fs.Uint64("id", 0, "escrow id")
}

func requireID(id uint64, stderr io.Writer) bool {
	if id == 0 {
		printError(stderr, "--id is required")
		return false
	}
	return true
}

func runEscrowByID(a *app, command string, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("escrow "+command, stderr)
	id := idFlag(fs)
	if !parseFlags(fs, args, stderr) || !requireID(*id, stderr) {
		return 1
	}
	return a.execute("escrow."+command, stdout, stderr, func(e *escrow.Engine, _ *bank.Ledger) (interface{}, error) {
		switch command {
		case "start":
			return nil, e.StartWork(a.caller, *id)
		case "refund":
			return nil, e.Refund(a.caller, *id)
		default:
			return nil, e.EmergencyRefund(a.caller, *id)
		}
	})
}

func runEscrowSubmit(a *app, command string, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("escrow "+command, stderr)
	id := idFlag(fs)
	index := fs.Uint64("milestone", 0, "milestone index")
	description := fs.String("description", "", "delivery notes")
	if !parseFlags(fs, args, stderr) || !requireID(*id, stderr) {
		return 1
	}
	return a.execute("escrow."+command, stdout, stderr, func(e *escrow.Engine, _ *bank.Ledger) (interface{}, error) {
		if command == "submit" {
			return nil, e.Submit(a.caller, *id, *index, *description)
		}
		return nil, e.Resubmit(a.caller, *id, *index, *description)
	})
}

func runEscrowApprove(a *app, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("escrow approve", stderr)
	id := idFlag(fs)
	index := fs.Uint64("milestone", 0, "milestone index")
	if !parseFlags(fs, args, stderr) || !requireID(*id, stderr) {
		return 1
	}
	return a.execute("escrow.approve", stdout, stderr, func(e *escrow.Engine, _ *bank.Ledger) (interface{}, error) {
		return nil, e.Approve(a.caller, *id, *index)
	})
}

func runEscrowWithReason(a *app, command string, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("escrow "+command, stderr)
	id := idFlag(fs)
	index := fs.Uint64("milestone", 0, "milestone index")
	reason := fs.String("reason", "", "reason recorded on the milestone")
	if !parseFlags(fs, args, stderr) || !requireID(*id, stderr) {
		return 1
	}
	return a.execute("escrow."+command, stdout, stderr, func(e *escrow.Engine, _ *bank.Ledger) (interface{}, error) {
		if command == "reject" {
			return nil, e.Reject(a.caller, *id, *index, *reason)
		}
		return nil, e.Dispute(a.caller, *id, *index, *reason)
	})
}

func runEscrowResolve(a *app, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("escrow resolve", stderr)
	id := idFlag(fs)
	index := fs.Uint64("milestone", 0, "milestone index")
	shareRaw := fs.String("beneficiary-amount", "", "portion of the milestone paid to the beneficiary")
	if !parseFlags(fs, args, stderr) || !requireID(*id, stderr) {
		return 1
	}
	share, err := parseAmount(*shareRaw)
	if err != nil {
		return printError(stderr, "--beneficiary-amount: "+err.Error())
	}
	return a.execute("escrow.resolve", stdout, stderr, func(e *escrow.Engine, _ *bank.Ledger) (interface{}, error) {
		return nil, e.Resolve(a.caller, *id, *index, share)
	})
}

func runEscrowExtend(a *app, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("escrow extend", stderr)
	id := idFlag(fs)
	extraRaw := fs.String("extra", "", "extension as seconds or Go duration")
	if !parseFlags(fs, args, stderr) || !requireID(*id, stderr) {
		return 1
	}
	extra, err := parseDuration(*extraRaw)
	if err != nil {
		return printError(stderr, "--extra: "+err.Error())
	}
	return a.execute("escrow.extend", stdout, stderr, func(e *escrow.Engine, _ *bank.Ledger) (interface{}, error) {
		return nil, e.ExtendDeadline(a.caller, *id, extra)
	})
}

func runEscrowGet(a *app, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("escrow get", stderr)
	id := idFlag(fs)
	if !parseFlags(fs, args, stderr) || !requireID(*id, stderr) {
		return 1
	}
	return a.view(stdout, stderr, func(e *escrow.Engine, _ *bank.Ledger) (interface{}, error) {
		summary, err := e.Escrow(*id)
		if err != nil {
			return nil, err
		}
		return newEscrowView(summary), nil
	})
}

func runEscrowMilestones(a *app, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("escrow milestones", stderr)
	id := idFlag(fs)
	if !parseFlags(fs, args, stderr) || !requireID(*id, stderr) {
		return 1
	}
	return a.view(stdout, stderr, func(e *escrow.Engine, _ *bank.Ledger) (interface{}, error) {
		milestones, err := e.Milestones(*id)
		if err != nil {
			return nil, err
		}
		out := make([]milestoneView, 0, len(milestones))
		for _, m := range milestones {
			out = append(out, newMilestoneView(m))
		}
		return out, nil
	})
}
