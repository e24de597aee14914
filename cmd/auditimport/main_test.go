package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"auditimport/internal/config"
	"auditimport/internal/letters"
	"auditimport/internal/runlock"
	"auditimport/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	lettersDir string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	t.Setenv("AUDITIMPORT_ADMIN_TOKEN", "")
	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	configPath := filepath.Join(base, "auditimport.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		lettersDir: filepath.Join(base, "letters"),
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func (e *cliTestEnv) writeLetters(t *testing.T, names ...string) {
	t.Helper()
	for _, name := range names {
		testsupport.TouchFile(t, filepath.Join(e.lettersDir, name))
	}
}

func TestImportMatchesLettersToRecords(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"records", "add", "78254", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("records add: %v", err)
	}
	if !strings.Contains(out, "Added record 1 with identifier 78254") || !strings.Contains(out, "Added record 2 with identifier 1") {
		t.Fatalf("unexpected records add output: %s", out)
	}

	env.writeLetters(t, "78254_LetterA.pdf", ".DS_Store", "99999_Other.pdf", "1_B.pdf")
	out, _, err = runCLI(t, []string{"import", "--dir", env.lettersDir, "--year", "2023-24"}, env.configPath)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	for _, want := range []string{
		"78254_LetterA.pdf imported to 1.",
		"1_B.pdf imported to 2.",
		"99999_Other.pdf could not be imported. Matching body not found.",
		"2 imported, 1 skipped (year 2023-24",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("import output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, ".DS_Store") {
		t.Fatalf("hidden file must not be reported:\n%s", out)
	}

	out, _, err = runCLI(t, []string{"records", "list", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("records list: %v", err)
	}
	var summaries []struct {
		Handle  string
		Letters int
	}
	if err := json.Unmarshal([]byte(out), &summaries); err != nil {
		t.Fatalf("decode records list: %v\n%s", err, out)
	}
	if len(summaries) != 2 || summaries[0].Letters != 1 || summaries[1].Letters != 1 {
		t.Fatalf("expected one letter per record, got %#v", summaries)
	}
}

func TestImportDryRunLeavesRecordsUntouched(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"records", "add", "5"}, env.configPath); err != nil {
		t.Fatalf("records add: %v", err)
	}
	env.writeLetters(t, "5_Letter.pdf", "noseparator.pdf")

	out, _, err := runCLI(t, []string{"import", "--dir", env.lettersDir, "--dry-run"}, env.configPath)
	if err != nil {
		t.Fatalf("import --dry-run: %v", err)
	}
	if !strings.Contains(out, "5_Letter.pdf") || !strings.Contains(out, "planned") {
		t.Fatalf("expected planned row in dry-run table:\n%s", out)
	}
	if !strings.Contains(out, "1 matched, 1 skipped") {
		t.Fatalf("unexpected dry-run summary:\n%s", out)
	}

	out, _, err = runCLI(t, []string{"records", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("records list: %v", err)
	}
	if !strings.Contains(out, "Letters") {
		t.Fatalf("expected table header:\n%s", out)
	}
	store := testsupport.MustOpenCatalog(t, env.cfg)
	entries, err := store.AuditEntries(t.Context(), "1", env.cfg.Import.FieldName)
	if err != nil {
		t.Fatalf("AuditEntries: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("dry run must not write entries, got %#v", entries)
	}
}

func TestImportJSONReport(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"records", "add", "9"}, env.configPath); err != nil {
		t.Fatalf("records add: %v", err)
	}
	env.writeLetters(t, "9_A.pdf")

	out, _, err := runCLI(t, []string{"import", "--dir", env.lettersDir, "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("import --json: %v", err)
	}
	var report struct {
		RunID    string `json:"run_id"`
		Year     string `json:"year"`
		Outcomes []struct {
			File    string `json:"file"`
			Record  string `json:"record"`
			Asset   string `json:"asset"`
			Status  string `json:"status"`
			Message string `json:"message"`
		} `json:"outcomes"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if report.RunID == "" || report.Year == "" {
		t.Fatalf("expected run id and year, got %#v", report)
	}
	if len(report.Outcomes) != 1 || report.Outcomes[0].Status != "imported" || report.Outcomes[0].Asset == "" {
		t.Fatalf("unexpected outcomes: %#v", report.Outcomes)
	}
}

func TestImportRefusesWhileBatchLockHeld(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeLetters(t, "1_A.pdf")

	held := runlock.New(env.cfg.LockPath())
	if err := held.Acquire(); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer held.Release()

	_, _, err := runCLI(t, []string{"import", "--dir", env.lettersDir}, env.configPath)
	if !errors.Is(err, letters.ErrBatchInProgress) {
		t.Fatalf("expected batch in progress, got %v", err)
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitForOutput(t *testing.T, out *syncBuffer, want string) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(out.String(), want) {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %q in output:\n%s", want, out.String())
}

func TestImportWatchImportsNewArrivals(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Watch.SettleSeconds = 1
	writeTestConfig(t, env.configPath, env.cfg)
	if _, _, err := runCLI(t, []string{"records", "add", "7"}, env.configPath); err != nil {
		t.Fatalf("records add: %v", err)
	}
	if err := os.MkdirAll(env.lettersDir, 0o755); err != nil {
		t.Fatalf("mkdir letters: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cmd := newRootCommand()
	var stdout syncBuffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", env.configPath, "import", "--watch", "--dir", env.lettersDir})
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	waitForOutput(t, &stdout, "Watching "+env.lettersDir)
	env.writeLetters(t, "7_Late.pdf")
	waitForOutput(t, &stdout, "7_Late.pdf imported to 1.")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("watch returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}

func TestImportMissingDirectoryFails(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"import", "--dir", filepath.Join(env.lettersDir, "nope")}, env.configPath); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestRecordsAddRequiresSQLiteBackend(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithBackend(config.BackendWPCLI))
	_, _, err := runCLI(t, []string{"records", "add", "1"}, env.configPath)
	if !errors.Is(err, errSQLiteOnly) {
		t.Fatalf("expected sqlite-only error, got %v", err)
	}
}

func TestCheckReportsDependencies(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"check"}, env.configPath)
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	for _, want := range []string{"WP-CLI", "Letters directory", "Catalog directory", "All required dependencies available"} {
		if !strings.Contains(out, want) {
			t.Fatalf("check output missing %q:\n%s", want, out)
		}
	}
}

func TestCheckFailsWithoutWPForWPCLIBackend(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithBackend(config.BackendWPCLI))
	env.cfg.WPCLI.Binary = "definitely-not-a-wp-binary"
	writeTestConfig(t, env.configPath, env.cfg)

	out, _, err := runCLI(t, []string{"check"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "WP-CLI") {
		t.Fatalf("expected missing WP-CLI error, got %v\n%s", err, out)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)
	target := filepath.Join(t.TempDir(), "nested", "config.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("expected target path in output: %s", out)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected error when config already exists")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}

	out, _, err = runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, "Configuration valid") || !strings.Contains(out, "Store backend: sqlite") {
		t.Fatalf("unexpected validate output: %s", out)
	}
}

func TestInvalidConfigIsRejected(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Import.DuplicatePolicy = "merge"
	writeTestConfig(t, env.configPath, env.cfg)

	if _, _, err := runCLI(t, []string{"import"}, env.configPath); err == nil {
		t.Fatal("expected configuration error")
	}
}

func TestIsLoopbackBind(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:7491": true,
		"localhost:80":   true,
		"[::1]:8080":     true,
		"0.0.0.0:7491":   false,
		":7491":          false,
		"garbage":        false,
	}
	for bind, want := range cases {
		if got := isLoopbackBind(bind); got != want {
			t.Fatalf("isLoopbackBind(%q) = %v, want %v", bind, got, want)
		}
	}
}

func TestServeRefusesUnprotectedPublicBind(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"serve", "--bind", "0.0.0.0:0"}, env.configPath)
	if !errors.Is(err, errUnprotectedBind) {
		t.Fatalf("expected unprotected bind error, got %v", err)
	}

	if err := checkBindAuth("127.0.0.1:8090", ""); err != nil {
		t.Fatalf("loopback without token should be allowed: %v", err)
	}
	if err := checkBindAuth("0.0.0.0:8090", "s3cret"); err != nil {
		t.Fatalf("public bind with token should be allowed: %v", err)
	}
}
