package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

// Генератор гоняет sqlc по каждому queries.sql отдельно: у каждого пакета
// свой sqlc.yaml с out рядом с запросами и общими настройками из .sqlc.base.yaml.

type base struct {
	version string
	schema  string
	sources []string
	engine  *viper.Viper
}

func loadBase(dir string) (*base, error) {
	v := viper.New()
	v.SetConfigName(".sqlc.base")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, "read .sqlc.base.yaml")
	}

	b := &base{
		version: v.GetString("version"),
		schema:  v.GetString("sql.0.schema"),
		sources: v.GetStringSlice("sql.0.source"),
		engine:  v.Sub("sql.0"),
	}
	if len(b.sources) == 0 {
		return nil, errors.New("has no sql.0.source in config")
	}
	if b.engine == nil {
		return nil, errors.New("has no sql.0 section in config")
	}
	return b, nil
}

func (b *base) queryFiles() ([]string, error) {
	var files []string
	for _, pattern := range b.sources {
		f, err := filepath.Glob(pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "glob %q", pattern)
		}
		files = append(files, f...)
	}
	return files, nil
}

// packageName — имя каталога с запросами (".../candles/sql/queries.sql" -> "sql").
func packageName(file string) string {
	return filepath.Base(filepath.Dir(file))
}

// render собирает sqlc.yaml для одного файла запросов.
func (b *base) render(file string) ([]byte, error) {
	dir := filepath.Dir(file) + string(os.PathSeparator)

	b.engine.Set("schema", b.schema)
	b.engine.Set("queries", file)
	b.engine.Set("gen.go.package", packageName(file))
	b.engine.Set("gen.go.out", dir)

	settings := b.engine.AllSettings()
	delete(settings, "source")

	out := viper.New()
	out.Set("version", b.version)
	out.Set("sql", []interface{}{settings})

	bs, err := yaml.Marshal(out.AllSettings())
	if err != nil {
		return nil, errors.Wrap(err, "marshal config to yaml")
	}
	return bs, nil
}

func callSqlc(content []byte) error {
	tmp, err := os.CreateTemp("", "sqlc-*.yaml")
	if err != nil {
		return errors.Wrap(err, "create temp sqlc.yaml")
	}
	defer os.Remove(tmp.Name())

	if _, err = tmp.Write(content); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "write temp sqlc.yaml")
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp sqlc.yaml")
	}

	cmd := exec.Command("sqlc", "generate", "--file", tmp.Name())
	output, err := cmd.CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "call sqlc: %s", strings.TrimSpace(string(output)))
	}
	return nil
}

func run(dir string, dryRun bool) error {
	b, err := loadBase(dir)
	if err != nil {
		return err
	}
	files, err := b.queryFiles()
	if err != nil {
		return err
	}

	for _, file := range files {
		content, err := b.render(file)
		if err != nil {
			return errors.Wrapf(err, "render %s", file)
		}
		if dryRun {
			fmt.Printf("# %s\n%s\n", file, content)
			continue
		}
		if err := callSqlc(content); err != nil {
			return errors.Wrapf(err, "generate %s", file)
		}
		fmt.Printf("%s file complete\n", file)
	}
	return nil
}

func main() {
	dir := flag.String("dir", ".", "directory with .sqlc.base.yaml")
	dryRun := flag.Bool("dry-run", false, "print generated configs instead of calling sqlc")
	flag.Parse()

	if err := run(*dir, *dryRun); err != nil {
		fmt.Fprintf(os.Stderr, "sqlc: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("done")
}
