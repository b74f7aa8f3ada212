package utils

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestDiagnostics(level DiagnosticLevel) (*DiagnosticSystem, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	d := NewDiagnosticSystemWithWriters(level, &out, &errOut)
	d.SetColors(false)
	d.showTime = false
	return d, &out, &errOut
}

func TestDiagnosticSystem_Levels(t *testing.T) {
	testCases := []struct {
		level       DiagnosticLevel
		wantInfo    bool
		wantVerbose bool
		wantError   bool
	}{
		{DiagnosticSilent, false, false, false},
		{DiagnosticError, false, false, true},
		{DiagnosticInfo, true, false, true},
		{DiagnosticDebug, true, true, true},
	}

	for _, tc := range testCases {
		d, out, errOut := newTestDiagnostics(tc.level)
		d.Info("info %d", 1)
		d.Verbose("details")
		d.Error("broken")

		assert.Equal(t, tc.wantInfo, bytes.Contains(out.Bytes(), []byte("[INFO] info 1")), "level %d", tc.level)
		assert.Equal(t, tc.wantVerbose, bytes.Contains(out.Bytes(), []byte("[VERBOSE] details")), "level %d", tc.level)
		assert.Equal(t, tc.wantError, bytes.Contains(errOut.Bytes(), []byte("[ERROR] broken")), "level %d", tc.level)
	}
}

func TestDiagnosticSystem_WarnAndSuccessGoToOutput(t *testing.T) {
	d, out, errOut := newTestDiagnostics(DiagnosticWarn)
	d.Warn("careful")
	d.Success("hidden below info")
	assert.Equal(t, "[WARN] careful\n", out.String())
	assert.Empty(t, errOut.String())

	d, out, _ = newTestDiagnostics(DiagnosticInfo)
	d.Success("wrote %d files", 2)
	assert.Equal(t, "[SUCCESS] wrote 2 files\n", out.String())
}

func TestDiagnosticSystem_Formatting(t *testing.T) {
	d, out, _ := newTestDiagnostics(DiagnosticInfo)

	d.NimbusHeader("Generating")
	d.PhaseHeader("Scanning")
	d.PhaseItem("Scanned 2 packages")
	d.PhaseProgress("Writing templates")
	d.Summary("Done", []string{"Functions", "Stages"}, map[string]interface{}{"Stages": 2, "Functions": 3})
	d.GenerationComplete()

	assert.Equal(t, "Nimbus: Generating\n"+
		"Scanning:\n"+
		"✓ Scanned 2 packages\n"+
		"✏ Writing templates\n"+
		"\nDone\n   Functions: 3\n   Stages: 2\n\n"+
		"\nNimbus: Generation complete!\n", out.String())
}

func TestDiagnosticSystem_SilentPrintsNothing(t *testing.T) {
	d, out, errOut := newTestDiagnostics(DiagnosticSilent)
	d.NimbusHeader("Generating")
	d.Summary("Done", nil, nil)
	d.GenerationComplete()
	d.Debug("x")
	assert.Empty(t, out.String())
	assert.Empty(t, errOut.String())
}

func TestDiagnosticSystem_ColorsFromEnvironment(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.False(t, colorsEnabled())

	t.Setenv("NO_COLOR", "")
	t.Setenv("FORCE_COLOR", "1")
	assert.True(t, colorsEnabled())

	t.Setenv("FORCE_COLOR", "")
	t.Setenv("TERM", "dumb")
	assert.False(t, colorsEnabled())
}
