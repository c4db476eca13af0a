package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oba-ldap/propd/internal/prop"
)

// runPropctl executes propctl's root command with args and returns its
// stdout. configPath/principal are cobra package-level flag targets,
// reset here so test cases don't leak into each other.
func runPropctl(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configPath = ""
	principal = ""

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeConfigFile(t *testing.T, dir string) string {
	t.Helper()
	contextsPath := filepath.Join(dir, "property_contexts")
	require.NoError(t, os.WriteFile(contextsPath, []byte("a. ctxA\n* ctxDefault\n"), 0644))

	cfgPath := filepath.Join(dir, "propd.yaml")
	yaml := "areas:\n  rootDir: " + dir + "\nrouter:\n  mode: text\n  textIndexFiles:\n    - " + contextsPath + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0644))
	return cfgPath
}

func makeArea(t *testing.T, dir, label string) {
	t.Helper()
	a, err := prop.CreateArea(filepath.Join(dir, label), label)
	require.NoError(t, err)
	require.NoError(t, a.Close())
	require.NoError(t, os.Chmod(filepath.Join(dir, label), 0644))
}

func TestGetAndListRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfigFile(t, dir)
	makeArea(t, dir, "ctxA")
	makeArea(t, dir, "ctxDefault")

	area, err := prop.OpenReadWrite(filepath.Join(dir, "ctxA"))
	require.NoError(t, err)
	require.NoError(t, area.Add("a.b", "hello"))
	require.NoError(t, area.Close())

	out, err := runPropctl(t, "--config", cfgPath, "get", "a.b")
	require.NoError(t, err)
	require.Equal(t, "hello\n", out)

	out, err = runPropctl(t, "--config", cfgPath, "list")
	require.NoError(t, err)
	require.Contains(t, out, "a.b=hello")
}

func TestGetMissingPropertyFails(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfigFile(t, dir)
	makeArea(t, dir, "ctxA")
	makeArea(t, dir, "ctxDefault")

	_, err := runPropctl(t, "--config", cfgPath, "get", "a.missing")
	require.Error(t, err)
}

func TestRouteReportsMatchingLabel(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfigFile(t, dir)
	makeArea(t, dir, "ctxA")
	makeArea(t, dir, "ctxDefault")

	out, err := runPropctl(t, "--config", cfgPath, "route", "a.b")
	require.NoError(t, err)
	require.Equal(t, "ctxA\n", out)
}

func TestBenchCommandIsWiredWithExpectedFlags(t *testing.T) {
	// bench shells out to `go test -bench`, which would make this test
	// recursively invoke the toolchain if run end-to-end; it is enough
	// to check the subcommand is registered with its flags, the way the
	// exec call itself is exercised only by a real `propctl bench` run.
	root := newRootCmd()
	cmd, _, err := root.Find([]string{"bench"})
	require.NoError(t, err)
	require.Equal(t, "bench [packages...]", cmd.Use)
	require.NotNil(t, cmd.Flags().Lookup("run"))
	require.NotNil(t, cmd.Flags().Lookup("format"))
}

func TestDumpWalksAreaFileOffline(t *testing.T) {
	dir := t.TempDir()
	areaPath := filepath.Join(dir, "ctxA")
	a, err := prop.CreateArea(areaPath, "ctxA")
	require.NoError(t, err)
	require.NoError(t, a.Add("a.b", "v1"))
	require.NoError(t, a.Close())
	require.NoError(t, os.Chmod(areaPath, 0644))

	out, err := runPropctl(t, "dump", areaPath)
	require.NoError(t, err)
	require.Contains(t, out, "a.b=v1")
	require.Contains(t, out, "global_serial=")
}
