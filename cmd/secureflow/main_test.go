package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const cliNow = "1700000000"

type cli struct {
	t      *testing.T
	config string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "secureflow.yaml")
	contents := fmt.Sprintf("data_dir: %s\nbackend: leveldb\nlogging:\n  level: warn\n", filepath.Join(dir, "data"))
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cli{t: t, config: path}
}

func (c *cli) invoke(caller string, args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	full := []string{"-config", c.config, "-now", cliNow}
	if caller != "" {
		full = append(full, "-caller", caller)
	}
	full = append(full, args...)
	code := run(full, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func (c *cli) ok(caller string, args ...string) map[string]interface{} {
	c.t.Helper()
	code, stdout, stderr := c.invoke(caller, args...)
	if code != 0 {
		c.t.Fatalf("%v exited %d: %s", args, code, stderr)
	}
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(stdout), &out); err != nil {
		c.t.Fatalf("%v: decode output %q: %v", args, stdout, err)
	}
	return out
}

func TestCLIEscrowFlowPersistsAcrossInvocations(t *testing.T) {
	c := newCLI(t)

	c.ok("@owner", "admin", "init", "--fee-bps", "100")
	c.ok("@owner", "admin", "authorize-arbiter", "--arbiter", "@arbiter")
	c.ok("", "bank", "deposit", "--account", "@client", "--amount", "1_000_000")

	created := c.ok("@client", "escrow", "create-native",
		"--beneficiary", "@dev",
		"--arbiters", "@arbiter",
		"--duration", "168h",
		"--milestone", "600:design",
		"--milestone", "400:build",
		"--title", "marketing site",
		"--value", "1010",
	)
	result, ok := created["result"].(map[string]interface{})
	if !ok || result["escrowId"] != float64(1) {
		t.Fatalf("unexpected create output: %v", created)
	}
	evts, _ := created["events"].([]interface{})
	if len(evts) != 1 {
		t.Fatalf("expected one created event, got %v", created["events"])
	}

	c.ok("@dev", "escrow", "start", "--id", "1")
	c.ok("@dev", "escrow", "submit", "--id", "1", "--milestone", "0", "--description", "mockups")
	approved := c.ok("@client", "escrow", "approve", "--id", "1", "--milestone", "0")
	if approved["seq"] != float64(7) {
		t.Fatalf("expected journal seq 7, got %v", approved["seq"])
	}

	summary := c.ok("", "escrow", "get", "--id", "1")
	if summary["status"] != "in_progress" || summary["paid"] != "600" || summary["remaining"] != "400" || summary["platformFee"] != "10" {
		t.Fatalf("unexpected summary: %v", summary)
	}

	balance := c.ok("", "bank", "balance", "--account", "@dev")
	if balance["balance"] != "600" {
		t.Fatalf("unexpected freelancer balance: %v", balance)
	}

	user := c.ok("@client", "user", "show")
	if ids, _ := user["escrows"].([]interface{}); len(ids) != 1 {
		t.Fatalf("unexpected user escrows: %v", user)
	}

	code, _, stderr := c.invoke("@client", "escrow", "approve", "--id", "1", "--milestone", "0")
	if code != 1 || !strings.Contains(stderr, "Error:") {
		t.Fatalf("expected repeated approval to fail, got %d %q", code, stderr)
	}

	verified := c.ok("", "journal", "verify")
	if verified["height"] != float64(7) || verified["valid"] != true {
		t.Fatalf("unexpected journal state: %v", verified)
	}

	entry := c.ok("", "journal", "entry", "--seq", "4")
	if entry["name"] != "escrow.create-native" {
		t.Fatalf("unexpected journal entry: %v", entry)
	}
}

func TestCLIOpenJobMarketplace(t *testing.T) {
	c := newCLI(t)
	c.ok("@owner", "admin", "init", "--fee-bps", "0")
	c.ok("@owner", "admin", "authorize-arbiter", "--arbiter", "@arbiter")
	c.ok("", "bank", "deposit", "--account", "@client", "--amount", "5000")

	c.ok("@client", "escrow", "create-native",
		"--arbiters", "@arbiter",
		"--duration", "604800",
		"--milestone", "500:all",
		"--title", "logo",
		"--value", "500",
	)
	c.ok("@dev", "job", "apply", "--id", "1", "--cover-letter", "ten years of logos", "--timeline", "72h")
	c.ok("@other", "job", "apply", "--id", "1", "--cover-letter", "fast", "--timeline", "3600")

	apps := c.ok("", "job", "applications", "--id", "1", "--limit", "1")
	if apps["total"] != float64(2) {
		t.Fatalf("unexpected application total: %v", apps)
	}
	if page, _ := apps["applications"].([]interface{}); len(page) != 1 {
		t.Fatalf("limit not applied: %v", apps)
	}

	c.ok("@client", "job", "accept", "--id", "1", "--freelancer", "@dev")
	summary := c.ok("", "escrow", "get", "--id", "1")
	if summary["openJob"] != false || summary["beneficiary"] == "" {
		t.Fatalf("job not assigned: %v", summary)
	}
}

func TestCLIArgumentErrors(t *testing.T) {
	c := newCLI(t)
	cases := []struct {
		name   string
		caller string
		args   []string
		want   string
	}{
		{"missing command", "", []string{"escrow"}, "Usage:"},
		{"unknown group", "", []string{"ledger", "dump"}, "Unknown command group"},
		{"unknown subcommand", "", []string{"escrow", "teleport"}, "Unknown escrow subcommand"},
		{"missing caller", "", []string{"admin", "pause"}, "-caller is required"},
		{"missing id", "@dev", []string{"escrow", "start"}, "--id is required"},
		{"bad milestone", "@client", []string{"escrow", "create-native", "--milestone", "abc", "--duration", "1h"}, "invalid value"},
		{"bad caller", "nonsense", []string{"admin", "pause"}, "-caller"},
		{"positional leftovers", "@owner", []string{"admin", "pause", "now"}, "unexpected positional arguments"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, _, stderr := c.invoke(tc.caller, tc.args...)
			if code != 1 {
				t.Fatalf("expected exit 1, got %d", code)
			}
			if !strings.Contains(stderr, tc.want) {
				t.Fatalf("stderr %q does not mention %q", stderr, tc.want)
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	cases := map[string]string{
		"1000":  "1000",
		"1_000": "1000",
		"5e3":   "5000",
		"12E2":  "1200",
		" 7 ":   "7",
		"0":     "0",
		"1e18":  "1000000000000000000",
		"42e0":  "42",
		"3_0e1": "300",
		"99e01": "990",
		"1_0_0": "100",
		"10e00": "10",
	}
	for raw, want := range cases {
		got, err := parseAmount(raw)
		if err != nil {
			t.Fatalf("parseAmount(%q): %v", raw, err)
		}
		if got.Dec() != want {
			t.Fatalf("parseAmount(%q) = %s, want %s", raw, got.Dec(), want)
		}
	}
	for _, raw := range []string{"", "-5", "1.5", "e5", "1e", "1e99", "abc"} {
		if _, err := parseAmount(raw); err == nil {
			t.Fatalf("parseAmount(%q) should fail", raw)
		}
	}
}

func TestParseDuration(t *testing.T) {
	if got, err := parseDuration("3600"); err != nil || got != 3600 {
		t.Fatalf("seconds: %d %v", got, err)
	}
	if got, err := parseDuration("2h"); err != nil || got != 7200 {
		t.Fatalf("go duration: %d %v", got, err)
	}
	if _, err := parseDuration("-1h"); err == nil {
		t.Fatalf("negative duration accepted")
	}
}
