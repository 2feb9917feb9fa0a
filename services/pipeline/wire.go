package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"govdata-etl/lib/artifacts"
	"govdata-etl/lib/configuration"
	"govdata-etl/lib/notify"
	"govdata-etl/lib/restyutil"
	"govdata-etl/lib/scrapers/tablepage"
	"govdata-etl/lib/sqlutil"
	"govdata-etl/lib/statekey"
	"govdata-etl/lib/telemetry"
	"govdata-etl/services/extract"
	"govdata-etl/services/loader"
	"govdata-etl/services/report"
	"govdata-etl/services/staging"
	"govdata-etl/services/staging/mongostore"
	"govdata-etl/services/staging/sqlitestore"

	"github.com/go-resty/resty/v2"
)

// CrimePage is the layout of the crime statistics results page: a POSTed
// query form answered by one table whose first four rows are headers,
// followed by one row per state and the District of Columbia.
func CrimePage(link string) tablepage.Page {
	return tablepage.Page{
		URL:         link,
		Method:      http.MethodPost,
		RowSelector: "body > div:nth-of-type(2) table tbody tr",
		Skip:        4,
		Limit:       51,
	}
}

// UnemploymentPage is the layout of the monthly state unemployment table.
// Only the 50 states and the District of Columbia are kept, rows past them
// are territories or footnotes the state normalizer would reject.
func UnemploymentPage(link string) tablepage.Page {
	return tablepage.Page{
		URL:         link,
		Method:      http.MethodGet,
		RowSelector: "#tb_data tbody tr",
		Limit:       statekey.CodeCount,
	}
}

func newHTTPClient(cfg configuration.HTTP) (*resty.Client, error) {
	client := restyutil.NewClient(restyutil.ClientOptions{
		Timeout:           cfg.Timeout(),
		Retries:           cfg.Retries,
		RequestsPerSecond: cfg.RequestsPerSecond,
		CloudflareBypass:  cfg.CloudflareBypass,
	})
	telemetry.InstrumentResty(client, "govdata.http")
	if cfg.DumpDir != "" {
		output, err := restyutil.NewFilesystemOutput(cfg.DumpDir)
		if err != nil {
			return nil, fmt.Errorf("prepare http dump directory: %w", err)
		}
		restyutil.DumpExchanges(client, output)
	}
	return client, nil
}

// Adapters builds the source adapters enabled in cfg, in dataset order.
func Adapters(cfg configuration.Config, client *resty.Client) []extract.Adapter {
	years := extract.YearRange{Start: cfg.DataPeriod.StartYear, End: cfg.DataPeriod.EndYear}

	var adapters []extract.Adapter
	if cfg.Fetch.Unemployment {
		adapters = append(adapters, extract.Unemployment{
			Years:    years,
			Provider: tablepage.New(client, UnemploymentPage(cfg.DatasetLinks.Unemployment)),
		})
	}
	if cfg.Fetch.Education {
		adapters = append(adapters, extract.Education{
			Years: years,
			Source: extract.HTTPSpreadsheetSource{
				Client:      client,
				URLTemplate: cfg.DatasetLinks.Education,
			},
		})
	}
	if cfg.Fetch.Crime {
		adapters = append(adapters, extract.Crime{
			Years:    years,
			Provider: tablepage.New(client, CrimePage(cfg.DatasetLinks.Crime)),
		})
	}
	return adapters
}

func newArtifacts(ctx context.Context, cfg configuration.Artifacts) (artifacts.Store, error) {
	if cfg.S3.Bucket == "" {
		return artifacts.NewDir(cfg.Dir)
	}
	return artifacts.NewS3(ctx, artifacts.S3Config{
		Bucket:          cfg.S3.Bucket,
		Prefix:          cfg.Dir,
		Region:          cfg.S3.Region,
		Endpoint:        cfg.S3.Endpoint,
		PathStyle:       cfg.S3.PathStyle,
		AccessKeyID:     cfg.S3.AccessKey,
		SecretAccessKey: cfg.S3.SecretKey,
	})
}

func stagingOpener(cfg configuration.Config) func(ctx context.Context) (staging.Store, error) {
	if cfg.Staging.Driver == "sqlite" {
		return func(ctx context.Context) (staging.Store, error) {
			return sqlitestore.Open(ctx, cfg.Staging.File)
		}
	}
	return func(ctx context.Context) (staging.Store, error) {
		return mongostore.Open(ctx, cfg.Mongo.Link, cfg.Mongo.Database)
	}
}

// FromConfig wires every dependency of a run from the configuration.
func FromConfig(ctx context.Context, cfg configuration.Config) (Dependencies, error) {
	err := cfg.Validate()
	if err != nil {
		return Dependencies{}, err
	}

	client, err := newHTTPClient(cfg.HTTP)
	if err != nil {
		return Dependencies{}, err
	}
	store, err := newArtifacts(ctx, cfg.Artifacts)
	if err != nil {
		return Dependencies{}, fmt.Errorf("open artifact store: %w", err)
	}

	deps := Dependencies{
		Artifacts:   store,
		Adapters:    Adapters(cfg, client),
		OpenStaging: stagingOpener(cfg),
		OpenWarehouse: func(ctx context.Context) (*sql.DB, sqlutil.Dialect, error) {
			return cfg.Warehouse.OpenDB(ctx)
		},
		Collections: loader.Collections{
			Unemployment: cfg.Mongo.UnemploymentCollName,
			Education:    cfg.Mongo.EducationCollName,
			Crime:        cfg.Mongo.CrimeCollName,
		},
		Normalizer: statekey.NewNormalizer(cfg.StateNames.ExtraUnits...),
		Report: report.Options{
			Output:         cfg.Report.Output,
			FocusState:     cfg.Report.FocusState,
			TotalCrimeExpr: cfg.Report.TotalCrimeExpr,
		},
		PushgatewayURL: cfg.Metrics.PushgatewayURL,
	}
	if cfg.Notify.Enabled() {
		deps.Notifier = notify.NewMailer(notify.SmtpConfig{
			Server:   cfg.Notify.SMTPHost,
			Port:     cfg.Notify.SMTPPort,
			Username: cfg.Notify.Username,
			Password: cfg.Notify.Password,
			From:     cfg.Notify.From,
			To:       cfg.Notify.To,
		})
	}
	return deps, nil
}
