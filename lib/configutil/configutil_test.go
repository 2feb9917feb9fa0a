package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type period struct {
	StartYear int `json:"start_year" yaml:"start_year"`
	EndYear   int `json:"end_year" yaml:"end_year"`
}

type flags struct {
	Crime        bool `json:"web_scrape_crime" yaml:"web_scrape_crime"`
	Unemployment bool `json:"web_scrape_unemployment" yaml:"web_scrape_unemployment"`
}

type testConfig struct {
	Period period   `json:"data_period" yaml:"data_period"`
	Link   string   `json:"link" yaml:"link"`
	Extra  []string `json:"extra" yaml:"extra"`
	Fetch  flags    `json:"fetch" yaml:"fetch"`
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	err := os.WriteFile(path, []byte(contents), 0600)
	if err != nil {
		t.Fatal(err)
	}
}

func TestReadConfigJson5WithLocalOverride(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.json5"), `{
		// comments are allowed
		data_period: { start_year: 2015, end_year: 2019 },
		link: "mongodb://localhost:27017",
	}`)
	writeFile(t, filepath.Join(dir, "config.local.json5"), `{
		link: "mongodb://staging:27017",
	}`)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.Equal(t, 2015, cfg.Period.StartYear)
	require.Equal(t, 2019, cfg.Period.EndYear)
	require.Equal(t, "mongodb://staging:27017", cfg.Link)
}

func TestReadConfigLocalOverridesWithZeroValues(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.json5"), `{
		data_period: { start_year: 2015, end_year: 2019 },
		link: "mongodb://localhost:27017",
		extra: ["Puerto Rico"],
		fetch: { web_scrape_crime: true, web_scrape_unemployment: true },
	}`)
	writeFile(t, filepath.Join(dir, "config.local.json5"), `{
		data_period: { end_year: 0 },
		fetch: { web_scrape_crime: false },
	}`)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.False(t, cfg.Fetch.Crime)
	require.True(t, cfg.Fetch.Unemployment)
	require.Equal(t, 2015, cfg.Period.StartYear)
	require.Equal(t, 0, cfg.Period.EndYear)
	require.Equal(t, []string{"Puerto Rico"}, cfg.Extra)
	require.Equal(t, "mongodb://localhost:27017", cfg.Link)
}

func TestReadConfigYamlLocalDisablesFlag(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "input.yaml"), `
fetch:
  web_scrape_crime: true
  web_scrape_unemployment: true
`)
	writeFile(t, filepath.Join(dir, "input.local.yaml"), `
fetch:
  web_scrape_unemployment: false
`)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "input.yaml"))
	require.NoError(t, err)
	require.True(t, cfg.Fetch.Crime)
	require.False(t, cfg.Fetch.Unemployment)
}

func TestReadConfigYaml(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "input.yaml"), `
data_period:
  start_year: 2010
  end_year: 2012
extra:
  - Puerto Rico
`)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "input.yaml"))
	require.NoError(t, err)
	require.Equal(t, 2010, cfg.Period.StartYear)
	require.Equal(t, []string{"Puerto Rico"}, cfg.Extra)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "config.json5"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadConfigUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.toml"), `link = "x"`)

	_, err := ReadConfig[testConfig](filepath.Join(dir, "config.toml"))
	require.Error(t, err)
}

func TestReadConfigExpandsEnvironment(t *testing.T) {
	t.Setenv("GOVDATA_TEST_MONGO", "mongodb://secret@db:27017")
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.json5"), `{ link: "${GOVDATA_TEST_MONGO}" }`)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.Equal(t, "mongodb://secret@db:27017", cfg.Link)
}

func TestReadConfigLocalOnly(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.local.json5"), `{ link: "local" }`)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.Equal(t, "local", cfg.Link)
}

func TestLocalPath(t *testing.T) {
	require.Equal(t, "conf/config.local.json5", LocalPath("conf/config.json5"))
	require.Equal(t, "run.local.yml", LocalPath("run.yml"))
}

func TestReadRecursively(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "telemetry.json5"), `{ link: "found" }`)
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	t.Chdir(nested)

	cfg, err := ReadRecursively[testConfig]("telemetry.json5")
	require.NoError(t, err)
	require.Equal(t, "found", cfg.Link)

	_, err = ReadRecursively[testConfig]("does-not-exist.json5")
	require.ErrorIs(t, err, os.ErrNotExist)
}
