/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: main_test.go
Description: End to end tests of the irscope commands through the cobra root command.
*/

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kleascm/irscope/cmd/irscope/commands"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nec12_34_56 = `9024 4512 564 564 564 564 564 1692 564 1692 564 564 564 564 564 564
564 564 564 564 564 1692 564 564 564 564 564 564 564 1692 564 564 564 564 564 564
564 564 564 564 564 1692 564 1692 564 1692 564 564 564 564 564 1692 564 1692 564
1692 564 564 564 564 564 564 564 1692 564 1692 564 44268`

// run executes the command line and returns stdout, stderr and the exit code.
func run(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCommand(viper.New(), &stdout, &stderr)
	root.SetArgs(append(args, "--log-colors=false"))
	err := root.Execute()
	return stdout.String(), stderr.String(), commands.ExitCode(err)
}

func TestAnalyzeCommand(t *testing.T) {
	args := append([]string{"analyze", "--frequency", "38400", "--widths", "32"}, strings.Fields(nec12_34_56)...)
	out, _, code := run(t, args...)
	require.Equal(t, commands.ExitOK, code)
	assert.Equal(t, "#0 Pwm: {38.4k,564,msb}<1,-1|1,-3>(16,-8,A:32,1,^108m){A=0x30441ce3}\n", out)
}

func TestAnalyzeFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "captures.txt")
	content := "# two captures of the same button\n" + nec12_34_56 + "\n\n" + nec12_34_56 + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	out, _, code := run(t, "analyze", "--frequency", "38400", "--widths", "32", "--strategy", "pwm", "--all", "--file", path)
	require.Equal(t, commands.ExitOK, code)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	for i, line := range lines {
		assert.True(t, strings.HasPrefix(line, "#"+string(rune('0'+i))+" Pwm (weight "), line)
	}
}

func TestRenderAndDecode(t *testing.T) {
	pronto, _, code := run(t, "render", "NEC1", "--param", "D=12,S=34,F=56", "--pronto")
	require.Equal(t, commands.ExitOK, code)
	pronto = strings.TrimSpace(pronto)
	require.True(t, strings.HasPrefix(pronto, "0000 006C 0022 0002"), pronto)

	out, stderr, code := run(t, append([]string{"decode"}, strings.Fields(pronto)...)...)
	require.Equal(t, commands.ExitOK, code, stderr)
	assert.Equal(t, "#0 NEC1: {D=12,F=56,S=34}\n", out)
	assert.Contains(t, stderr, "Signal decoded")

	out, _, code = run(t, append([]string{"decode", "--prefer-over=false", "--log-level", "warn"}, strings.Fields(pronto)...)...)
	require.Equal(t, commands.ExitOK, code)
	assert.Equal(t, "#0 NEC1: {D=12,F=56,S=34}\n#0 NEC1-f16: {D=12,F=51000,S=34}\n", out)
}

func TestRenderIrp(t *testing.T) {
	out, _, code := run(t, "render", "{38k,500}<1,-1|1,-3>(8,-4,A:4,1,-20m)", "-p", "A=5", "--repeats", "1")
	require.Equal(t, commands.ExitOK, code)
	assert.Equal(t, "+4000 -2000 +500 -1500 +500 -500 +500 -1500 +500 -500 +500 -20000\n", out)
}

func TestCleanCommand(t *testing.T) {
	out, _, code := run(t, "clean", "9000", "4500", "560", "570", "565", "1690", "565", "40000")
	require.Equal(t, commands.ExitOK, code)
	assert.Equal(t, "#0 +9000 -4500 +565 -565 +565 -1690 +565 -40000\n", out)
}

func TestListCommand(t *testing.T) {
	out, _, code := run(t, "list")
	require.Equal(t, commands.ExitOK, code)
	assert.Contains(t, out, "NEC1 ")
	assert.Contains(t, out, "RC6 ")

	out, _, code = run(t, "list", "--strategies")
	require.Equal(t, commands.ExitOK, code)
	assert.Contains(t, out, "BiphaseWithDoubleToggle")
}

func TestExitCodes(t *testing.T) {
	_, _, code := run(t, "analyze")
	assert.Equal(t, commands.ExitUsage, code)

	_, _, code = run(t, "decode", "--no-such-flag", "1", "2")
	assert.Equal(t, commands.ExitUsage, code)

	_, _, code = run(t, "render", "{38k,500}<1,-1|1,-3>(8,-4,A:4,1,-20m)")
	assert.Equal(t, commands.ExitUsage, code)

	out, stderr, code := run(t, "decode", "100", "200", "300", "400")
	assert.Equal(t, commands.ExitNoMatch, code)
	assert.Equal(t, "#0 <no decode>\n", out)
	assert.Contains(t, stderr, "input #0: no protocol matched")

	_, _, code = run(t, "decode", "--catalogue", filepath.Join(t.TempDir(), "missing.yaml"), "100", "200")
	assert.Equal(t, commands.ExitUsage, code)
}

func TestReportDir(t *testing.T) {
	dir := t.TempDir()
	args := append([]string{"analyze", "--frequency", "38400", "--report-dir", dir, "--report-format", "yaml"}, strings.Fields(nec12_34_56)...)
	_, stderr, code := run(t, args...)
	require.Equal(t, commands.ExitOK, code)
	assert.Contains(t, stderr, "Report written")

	files, err := filepath.Glob(filepath.Join(dir, "*_analysis_*.yaml"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "strategy: Pwm")
}
