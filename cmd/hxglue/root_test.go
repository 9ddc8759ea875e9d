package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--env-file", ""}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCommandPresence(t *testing.T) {
	cmd := newRootCommand()
	for _, name := range []string{"serve", "morph", "token", "visit", "version"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := newRootCommand()

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)

	envFlag := cmd.PersistentFlags().Lookup("env-file")
	require.NotNil(t, envFlag)
	assert.Equal(t, defaultEnvFile, envFlag.DefValue)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "hxglue version "+version+"\n", out)
}

func TestExplicitEnvFileMustExist(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env"), "version"})
	assert.Error(t, cmd.Execute())
}

func TestConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "hxglue.yaml", "server:\n  addr: \":9999\"\npage:\n  main_id: content\n")

	opts := &rootOptions{configPath: cfgPath}
	require.NoError(t, opts.load())
	assert.Equal(t, ":9999", opts.cfg.Server.Addr)
	assert.Equal(t, "content", opts.cfg.Page.MainID)
	assert.Equal(t, "http://localhost:9999", baseURL(opts))

	opts.cfg.Server.BaseURL = "https://example.test"
	assert.Equal(t, "https://example.test", baseURL(opts))
}

func TestMorphCommand(t *testing.T) {
	dir := t.TempDir()
	live := writeFile(t, dir, "live.html", `<html><head></head><body>`+
		`<main id="main-content"><p id="a">old</p><input id="q" value="typed"></main>`+
		`<div id="footer"></div></body></html>`)

	tests := []struct {
		name     string
		markup   string
		args     []string
		contains []string
	}{
		{
			name:     "target",
			markup:   `<main id="main-content"><p id="a">new</p><input id="q" value="typed"></main>`,
			args:     []string{"--target", "main-content"},
			contains: []string{`<p id="a">new</p>`, `<div id="footer"></div>`},
		},
		{
			name:     "split",
			markup:   `<main id="main-content"><p id="a">new</p></main><!-- split --><div class="toast">hi</div>`,
			args:     []string{"--target", "main-content", "--split"},
			contains: []string{`<p id="a">new</p>`, `<div id="footer"><div class="toast">hi</div></div>`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			markup := writeFile(t, t.TempDir(), "markup.html", tt.markup)
			out, err := execute(t, append([]string{"morph", live, markup}, tt.args...)...)
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestMorphCommandMissingTarget(t *testing.T) {
	dir := t.TempDir()
	live := writeFile(t, dir, "live.html", `<html><body><p>x</p></body></html>`)
	markup := writeFile(t, dir, "markup.html", `<p>y</p>`)

	_, err := execute(t, "morph", live, markup, "--target", "nope")
	assert.Error(t, err)
}
