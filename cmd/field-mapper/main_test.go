package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"field-mapper/internal/plan"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())

	return out.String(), err
}

// setupEnv points the CLI at temp storage and the sample templates.
func setupEnv(t *testing.T, driver string) string {
	t.Helper()

	dir := t.TempDir()

	t.Setenv("DB_DRIVER", driver)
	t.Setenv("DB_DSN", filepath.Join(dir, "db", "field-mapper.db"))
	t.Setenv("TEMPLATES_PATH", filepath.Join("..", "..", "configs", "templates.yaml"))
	t.Setenv("RULES_PATH", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("LOG_LEVEL", "error")

	src := filepath.Join(dir, "source.json")
	require.NoError(t, os.WriteFile(src, []byte(`{
		"patient_first_name": "Jane",
		"patient_last_name": "Roe",
		"dob": "1990-05-02"
	}`), 0o600))

	return src
}

func TestScoreCmd(t *testing.T) {
	out, err := execute(t, "score", "patient_dob", "Patient DOB")
	require.NoError(t, err)
	assert.Equal(t, "1.0000\n", out)

	out, err = execute(t, "score", "-v", "first_name", "last_name")
	require.NoError(t, err)
	assert.Contains(t, out, "token:      0.3333")

	_, err = execute(t, "score", "only-one")
	require.Error(t, err)
}

func TestRulesCheckCmd(t *testing.T) {
	setupEnv(t, "memory")

	out, err := execute(t, "rules", "check", "--templates", filepath.Join("..", "..", "configs", "templates.yaml"))
	require.NoError(t, err)

	assert.Contains(t, out, "rules version 1.2.0")
	assert.Contains(t, out, "aurora (Aurora Therapeutics): date MM/DD/YYYY")
	assert.Contains(t, out, "submission rules: strict_dates, consent_answered")
	assert.Contains(t, out, "templates")
	assert.Contains(t, out, ": ok")
}

func TestRulesCheckCmd_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 3.0.0\nmanufacturers: {}\n"), 0o600))

	_, err := execute(t, "rules", "check", path)
	require.Error(t, err)
}

func TestResolveCmd(t *testing.T) {
	src := setupEnv(t, "memory")
	xlsx := filepath.Join(t.TempDir(), "out.xlsx")

	out, err := execute(t, "resolve", "-m", "generic", "-t", "enrollment", "-s", src, "--xlsx", xlsx)
	require.NoError(t, err)

	var res plan.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))

	name, ok := res.Field("patient_name")
	require.True(t, ok)
	assert.Equal(t, "Jane Roe", name.Value)
	assert.Equal(t, plan.StatusFallback, name.Status)

	dob, ok := res.Field("patient_dob")
	require.True(t, ok)
	assert.Equal(t, "1990-05-02", dob.Value)

	assert.FileExists(t, xlsx)
}

func TestResolveCmd_UnknownManufacturer(t *testing.T) {
	src := setupEnv(t, "memory")

	_, err := execute(t, "resolve", "-m", "nobody", "-t", "enrollment", "-s", src)
	require.Error(t, err)
	assert.True(t, plan.IsConfigurationError(err))
}

func TestResolveCmd_MissingFlags(t *testing.T) {
	_, err := execute(t, "resolve", "-m", "generic")
	require.Error(t, err)
}

func TestAuditCmd(t *testing.T) {
	src := setupEnv(t, "sqlite")

	_, err := execute(t, "resolve", "-m", "generic", "-t", "enrollment", "-s", src, "--lenient")
	require.NoError(t, err)

	out, err := execute(t, "audit", "-m", "generic", "-t", "enrollment")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "STRATEGY")
	assert.Contains(t, out, "UNMAPPABLE")
	assert.Contains(t, out, "FALLBACK")

	out, err = execute(t, "audit", "-m", "generic", "-t", "enrollment", "--learned")
	require.NoError(t, err)
	assert.Contains(t, out, "patient_dob")
}
