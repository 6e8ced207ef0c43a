package main

import (
	"io"

	"secureflow/crypto"
	"secureflow/native/bank"
	"secureflow/native/escrow"
)

func runJobCommand(a *app, command string, args []string, stdout, stderr io.Writer) int {
	switch command {
	case "apply":
		return runJobApply(a, args, stdout, stderr)
	case "accept":
		return runJobAccept(a, args, stdout, stderr)
	case "applications":
		return runJobApplications(a, args, stdout, stderr)
	default:
		return unknownCommand(stderr, "job", command)
	}
}

func runJobApply(a *app, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("job apply", stderr)
	id := idFlag(fs)
	coverLetter := fs.String("cover-letter", "", "application text")
	timelineRaw := fs.String("timeline", "0", "proposed timeline as seconds or Go duration")
	if !parseFlags(fs, args, stderr) || !requireID(*id, stderr) {
		return 1
	}
	timeline, err := parseDuration(*timelineRaw)
	if err != nil {
		return printError(stderr, "--timeline: "+err.Error())
	}
	return a.execute("job.apply", stdout, stderr, func(e *escrow.Engine, _ *bank.Ledger) (interface{}, error) {
		return nil, e.Apply(a.caller, *id, *coverLetter, timeline)
	})
}

func runJobAccept(a *app, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("job accept", stderr)
	id := idFlag(fs)
	freelancerRaw := fs.String("freelancer", "", "applicant to hire")
	if !parseFlags(fs, args, stderr) || !requireID(*id, stderr) {
		return 1
	}
	if *freelancerRaw == "" {
		return printError(stderr, "--freelancer is required")
	}
	freelancer, err := parseAccount(*freelancerRaw)
	if err != nil {
		return printError(stderr, "--freelancer: "+err.Error())
	}
	return a.execute("job.accept", stdout, stderr, func(e *escrow.Engine, _ *bank.Ledger) (interface{}, error) {
		return nil, e.Accept(a.caller, *id, freelancer)
	})
}

func runJobApplications(a *app, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("job applications", stderr)
	id := idFlag(fs)
	offset := fs.Uint64("offset", 0, "first application to return")
	limit := fs.Uint64("limit", 0, "maximum applications to return (0 for all)")
	if !parseFlags(fs, args, stderr) || !requireID(*id, stderr) {
		return 1
	}
	return a.view(stdout, stderr, func(e *escrow.Engine, _ *bank.Ledger) (interface{}, error) {
		total, err := e.ApplicationCount(*id)
		if err != nil {
			return nil, err
		}
		apps, err := e.Applications(*id, *offset, *limit)
		if err != nil {
			return nil, err
		}
		page := make([]applicationView, 0, len(apps))
		for _, entry := range apps {
			page = append(page, applicationView{
				Freelancer:       crypto.FormatAccount(entry.Freelancer),
				CoverLetter:      entry.CoverLetter,
				ProposedTimeline: entry.ProposedTimeline,
				AppliedAt:        entry.AppliedAt,
			})
		}
		return struct {
			Total        uint64            `json:"total"`
			Applications []applicationView `json:"applications"`
		}{total, page}, nil
	})
}
