package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute(), out.String())
	return out.String()
}

func TestCatalogImportAndMatch(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)
	db := filepath.Join(dir, "wordmine.db")

	words := filepath.Join(dir, "words.csv")
	require.NoError(t, os.WriteFile(words, []byte("id,term,translation,difficulty\nv-casa,casa,house,2\nv-perro,perro,dog,1\n,,,\n"), 0o644))
	options := filepath.Join(dir, "options.csv")
	require.NoError(t, os.WriteFile(options, []byte("segment,option,text\nseg-1,opt-a,perro\n"), 0o644))

	run(t, "migrate", "--db", db)

	out := run(t, "catalog", "import", "--db", db, "--file", words, "--language-pair", "es-en")
	assert.Contains(t, out, "Created:   2")
	assert.Contains(t, out, "Skipped:   1")

	out = run(t, "catalog", "options", "--db", db, "--file", options)
	assert.Contains(t, out, "Created:   1")

	out = run(t, "match", "--db", db, "-l", "es-en", "casa")
	assert.Contains(t, out, "v-casa")
	assert.NotContains(t, out, "v-perro")

	out = run(t, "reviews", "due", "--db", db, "--student", "stu-1")
	assert.Contains(t, out, "Nothing due for stu-1.")

	out = run(t, "llm", "list", "--db", db)
	assert.Contains(t, out, "No LLM events found.")
}

func TestLoadConfig_FlagOverrides(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	require.NoError(t, rootCmd.ParseFlags([]string{"--driver", "postgres", "--db", "postgres://localhost/wordmine"}))
	t.Cleanup(func() { _ = rootCmd.ParseFlags([]string{"--driver=", "--db="}) })

	cfg, err := loadConfig(rootCmd)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://localhost/wordmine", cfg.Database.DSN)

	require.NoError(t, rootCmd.ParseFlags([]string{"--driver", "oracle"}))
	_, err = loadConfig(rootCmd)
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	assert.Contains(t, run(t, "version"), "wordmine (devel)")
}
