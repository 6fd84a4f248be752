package cli

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func TestGenerateHookScript(t *testing.T) {
	script := generateHookScript("high", false)

	if !strings.HasPrefix(script, hookMarkerStart+"\n") {
		t.Error("Script missing start marker")
	}
	if !strings.HasSuffix(script, hookMarkerEnd+"\n") {
		t.Error("Script missing end marker")
	}
	if !strings.Contains(script, "citadel diff . --base HEAD --fail-on high --quiet\n") {
		t.Error("Script missing citadel command with correct flags")
	}
	if strings.Contains(script, "--no-council") {
		t.Error("Council should run by default")
	}
	if !strings.Contains(script, "CITADEL_EXIT=$?") {
		t.Error("Script missing exit code capture")
	}
	if !strings.Contains(script, "allowing commit") {
		t.Error("Script missing warning for errors")
	}
}

func TestGenerateHookScript_NoCouncil(t *testing.T) {
	script := generateHookScript("medium", true)
	if !strings.Contains(script, "--fail-on medium --quiet --no-council") {
		t.Errorf("unexpected command in:\n%s", script)
	}
}

func TestReplaceCitadelSection_NoExisting(t *testing.T) {
	existing := "#!/bin/sh\nsome-other-hook\n"
	section := generateHookScript("high", false)

	result := replaceCitadelSection(existing, section)

	if !strings.HasPrefix(result, existing) {
		t.Error("Existing content should be preserved")
	}
	if !strings.HasSuffix(result, section) {
		t.Error("New section should be appended")
	}
}

func TestReplaceCitadelSection_ExistingSection(t *testing.T) {
	existing := "#!/bin/sh\nbefore\n" + generateHookScript("low", false) + "after\n"

	result := replaceCitadelSection(existing, generateHookScript("high", false))

	if !strings.Contains(result, "before") || !strings.Contains(result, "after") {
		t.Error("Content around the citadel section should be preserved")
	}
	if !strings.Contains(result, "--fail-on high") {
		t.Error("New section should have updated flags")
	}
	if strings.Contains(result, "--fail-on low") {
		t.Error("Old section should be replaced")
	}
	if strings.Count(result, hookMarkerStart) != 1 {
		t.Error("Exactly one citadel section expected")
	}
}

func TestReplaceCitadelSection_NoTrailingNewline(t *testing.T) {
	result := replaceCitadelSection("#!/bin/sh\nsome-hook", generateHookScript("high", false))
	if !strings.Contains(result, "some-hook\n"+hookMarkerStart) {
		t.Errorf("section should start on its own line:\n%s", result)
	}
}

func TestRemoveCitadelSection(t *testing.T) {
	existing := "#!/bin/sh\nbefore\n" + generateHookScript("high", false) + "after\n"

	result := removeCitadelSection(existing)

	if result != "#!/bin/sh\nbefore\nafter\n" {
		t.Errorf("unexpected result:\n%s", result)
	}
}

func TestRemoveCitadelSection_NoSection(t *testing.T) {
	existing := "#!/bin/sh\nsome-hook\n"
	if removeCitadelSection(existing) != existing {
		t.Error("Content without citadel section should be unchanged")
	}
}

func TestHookInstallUninstall(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	dir := t.TempDir()
	if out, err := exec.Command("git", "init", "-q", dir).CombinedOutput(); err != nil {
		t.Fatalf("git init: %v: %s", err, out)
	}
	hookPath := filepath.Join(dir, ".git", "hooks", "pre-commit")

	res := run(t, "hook", "install", "--repo", dir, "--fail-on", "critical")
	if res.code != ExitSuccess {
		t.Fatalf("install exit %d: %s", res.code, res.stderr)
	}
	data, err := os.ReadFile(hookPath)
	if err != nil {
		t.Fatalf("reading hook: %v", err)
	}
	if !strings.HasPrefix(string(data), "#!/bin/sh\n"+hookMarkerStart) {
		t.Errorf("unexpected hook:\n%s", data)
	}
	if !strings.Contains(string(data), "--fail-on critical") {
		t.Error("fail-on not applied")
	}

	res = run(t, "hook", "uninstall", "--repo", dir)
	if res.code != ExitSuccess {
		t.Fatalf("uninstall exit %d: %s", res.code, res.stderr)
	}
	if _, err := os.Stat(hookPath); !os.IsNotExist(err) {
		t.Error("hook file should be removed when only the shebang remains")
	}
}

func TestHookInstall_InvalidSeverity(t *testing.T) {
	res := run(t, "hook", "install", "--fail-on", "severe")
	if res.code != ExitUsageError {
		t.Errorf("exit = %d, want %d", res.code, ExitUsageError)
	}
}
