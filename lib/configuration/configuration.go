package configuration

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"govdata-etl/lib/configutil"
	"govdata-etl/lib/configutil/sqlconfig"
)

type DataPeriod struct {
	StartYear int `json:"start_year" yaml:"start_year"`
	EndYear   int `json:"end_year" yaml:"end_year"`
}

type DatasetLinks struct {
	Unemployment string `json:"unemployment_data_link" yaml:"unemployment_data_link"`
	Crime        string `json:"crime_data_link" yaml:"crime_data_link"`
	// may contain {year} (2015) and {yy} (15) placeholders
	Education string `json:"education_data_link" yaml:"education_data_link"`
}

type FetchFlags struct {
	Unemployment bool `json:"web_scrape_unemployment" yaml:"web_scrape_unemployment"`
	Education    bool `json:"extract_education" yaml:"extract_education"`
	Crime        bool `json:"web_scrape_crime" yaml:"web_scrape_crime"`
}

type Mongo struct {
	Link                 string `json:"link" yaml:"link"`
	Database             string `json:"db_name" yaml:"db_name"`
	UnemploymentCollName string `json:"unemp_collection_name" yaml:"unemp_collection_name"`
	EducationCollName    string `json:"edu_collection_name" yaml:"edu_collection_name"`
	CrimeCollName        string `json:"crime_collection_name" yaml:"crime_collection_name"`
}

type Staging struct {
	// "mongo" or "sqlite"
	Driver string `json:"driver" yaml:"driver"`
	File   string `json:"file" yaml:"file"`
}

type S3 struct {
	Bucket    string `json:"bucket" yaml:"bucket"`
	Region    string `json:"region" yaml:"region"`
	Endpoint  string `json:"endpoint" yaml:"endpoint"`
	PathStyle bool   `json:"path_style" yaml:"path_style"`
	AccessKey string `json:"access_key" yaml:"access_key"`
	SecretKey string `json:"secret_key" yaml:"secret_key"`
}

type Artifacts struct {
	Dir string `json:"dir" yaml:"dir"`
	S3  S3     `json:"s3" yaml:"s3"`
}

type HTTP struct {
	TimeoutSeconds    int     `json:"timeout_seconds" yaml:"timeout_seconds"`
	Retries           int     `json:"retries" yaml:"retries"`
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
	CloudflareBypass  bool    `json:"cloudflare_bypass" yaml:"cloudflare_bypass"`
	// directory to dump raw http exchanges into, empty disables
	DumpDir string `json:"dump_dir" yaml:"dump_dir"`
}

func (h HTTP) Timeout() time.Duration {
	return time.Duration(h.TimeoutSeconds) * time.Second
}

type StateNames struct {
	ExtraUnits []string `json:"extra_units" yaml:"extra_units"`
}

type Report struct {
	Output         string `json:"output" yaml:"output"`
	FocusState     string `json:"focus_state" yaml:"focus_state"`
	TotalCrimeExpr string `json:"total_crime_expr" yaml:"total_crime_expr"`
}

type Metrics struct {
	PushgatewayURL string `json:"pushgateway_url" yaml:"pushgateway_url"`
}

type Notify struct {
	SMTPHost string   `json:"smtp_host" yaml:"smtp_host"`
	SMTPPort int      `json:"smtp_port" yaml:"smtp_port"`
	Username string   `json:"username" yaml:"username"`
	Password string   `json:"password" yaml:"password"`
	From     string   `json:"from" yaml:"from"`
	To       []string `json:"to" yaml:"to"`
}

func (n Notify) Enabled() bool {
	return n.SMTPHost != "" && len(n.To) > 0
}

// Config is the run configuration, read once by the cli and passed by value
// into every stage.
type Config struct {
	DataPeriod   DataPeriod       `json:"data_period" yaml:"data_period"`
	DatasetLinks DatasetLinks     `json:"dataset_links" yaml:"dataset_links"`
	Fetch        FetchFlags       `json:"fetch_data_website" yaml:"fetch_data_website"`
	Mongo        Mongo            `json:"mongoDB_details" yaml:"mongoDB_details"`
	Warehouse    sqlconfig.Struct `json:"postgresqlDB_details" yaml:"postgresqlDB_details"`
	Staging      Staging          `json:"staging" yaml:"staging"`
	Artifacts    Artifacts        `json:"artifacts" yaml:"artifacts"`
	HTTP         HTTP             `json:"http" yaml:"http"`
	StateNames   StateNames       `json:"state_names" yaml:"state_names"`
	Report       Report           `json:"report" yaml:"report"`
	Metrics      Metrics          `json:"metrics" yaml:"metrics"`
	Notify       Notify           `json:"notify" yaml:"notify"`
}

// Read loads the config at path (with its .local override) and fills defaults.
func Read(path string) (Config, error) {
	cfg, err := configutil.ReadConfig[Config](path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg.Defaults()
	return cfg, nil
}

func orDefault(value *string, fallback string) {
	if strings.TrimSpace(*value) == "" {
		*value = fallback
	}
}

func (c *Config) Defaults() {
	orDefault(&c.Mongo.Link, "mongodb://localhost:27017")
	orDefault(&c.Mongo.Database, "usa")
	orDefault(&c.Mongo.UnemploymentCollName, "unemployment")
	orDefault(&c.Mongo.EducationCollName, "education")
	orDefault(&c.Mongo.CrimeCollName, "crime")

	orDefault(&c.Staging.Driver, "mongo")
	orDefault(&c.Artifacts.Dir, "result")

	if c.HTTP.TimeoutSeconds <= 0 {
		c.HTTP.TimeoutSeconds = 60
	}
	if c.HTTP.Retries < 0 {
		c.HTTP.Retries = 0
	} else if c.HTTP.Retries == 0 {
		c.HTTP.Retries = 3
	}
	if c.HTTP.RequestsPerSecond == 0 {
		c.HTTP.RequestsPerSecond = 2
	}

	orDefault(&c.Report.Output, "report.html")
	orDefault(&c.Report.FocusState, "Alabama")
	if c.Notify.SMTPPort == 0 {
		c.Notify.SMTPPort = 587
	}
}

// Validate checks the fields a run cannot start without.
func (c Config) Validate() error {
	var errs []error
	if c.DataPeriod.StartYear <= 0 || c.DataPeriod.EndYear <= 0 {
		errs = append(errs, errors.New("data_period: start_year and end_year are required"))
	} else if c.DataPeriod.StartYear > c.DataPeriod.EndYear {
		errs = append(errs, fmt.Errorf(
			"data_period: start_year %d is after end_year %d",
			c.DataPeriod.StartYear, c.DataPeriod.EndYear,
		))
	}
	if c.Fetch.Unemployment && c.DatasetLinks.Unemployment == "" {
		errs = append(errs, errors.New("dataset_links: unemployment_data_link is required when web_scrape_unemployment is set"))
	}
	if c.Fetch.Education && c.DatasetLinks.Education == "" {
		errs = append(errs, errors.New("dataset_links: education_data_link is required when extract_education is set"))
	}
	if c.Fetch.Crime && c.DatasetLinks.Crime == "" {
		errs = append(errs, errors.New("dataset_links: crime_data_link is required when web_scrape_crime is set"))
	}
	switch c.Staging.Driver {
	case "mongo":
	case "sqlite":
		if c.Staging.File == "" {
			errs = append(errs, errors.New("staging: file is required for the sqlite driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("staging: unsupported driver %q", c.Staging.Driver))
	}
	return errors.Join(errs...)
}
