package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

const baseYAML = `version: "2"
sql:
  - engine: "postgresql"
    schema: "migrations"
    source:
      - "q/*/sql/queries.sql"
    gen:
      go:
        sql_package: "pgx/v5"
        emit_methods_with_db_argument: true
`

func TestRender(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".sqlc.base.yaml"), []byte(baseYAML), 0o644))

	b, err := loadBase(dir)
	require.NoError(t, err)
	assert.Equal(t, "2", b.version)
	assert.Equal(t, []string{"q/*/sql/queries.sql"}, b.sources)

	file := filepath.Join("q", "candles", "sql", "queries.sql")
	bs, err := b.render(file)
	require.NoError(t, err)

	var got struct {
		Version string `yaml:"version"`
		SQL     []struct {
			Engine  string `yaml:"engine"`
			Schema  string `yaml:"schema"`
			Queries string `yaml:"queries"`
			Source  any    `yaml:"source"`
			Gen     struct {
				Go struct {
					Package    string `yaml:"package"`
					Out        string `yaml:"out"`
					SQLPackage string `yaml:"sql_package"`
				} `yaml:"go"`
			} `yaml:"gen"`
		} `yaml:"sql"`
	}
	require.NoError(t, yaml.Unmarshal(bs, &got))
	require.Len(t, got.SQL, 1)

	s := got.SQL[0]
	assert.Equal(t, "2", got.Version)
	assert.Equal(t, "postgresql", s.Engine)
	assert.Equal(t, "migrations", s.Schema)
	assert.Equal(t, file, s.Queries)
	assert.Nil(t, s.Source)
	assert.Equal(t, "sql", s.Gen.Go.Package)
	assert.Equal(t, filepath.Join("q", "candles", "sql")+string(os.PathSeparator), s.Gen.Go.Out)
	assert.Equal(t, "pgx/v5", s.Gen.Go.SQLPackage)
}

func TestLoadBaseRequiresSource(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".sqlc.base.yaml"), []byte("version: \"2\"\nsql:\n  - engine: postgresql\n"), 0o644))

	_, err := loadBase(dir)
	assert.Error(t, err)
}

func TestPackageName(t *testing.T) {
	assert.Equal(t, "sql", packageName("internal/modules/postgres/service/events/sql/queries.sql"))
}
