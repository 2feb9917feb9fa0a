package tablepage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"

	"govdata-etl/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("govdata.lib.scrapers.tablepage")

// Page describes an HTML page holding one data table. The query is sent
// as a form body for POST and as the query string for GET.
type Page struct {
	URL         string
	Method      string
	RowSelector string
	// leading rows to drop (headers, notes)
	Skip int
	// maximum rows to keep after Skip, 0 keeps everything
	Limit int
}

type Scraper struct {
	client *resty.Client
	page   Page
}

func New(client *resty.Client, page Page) Scraper {
	if page.Method == "" {
		page.Method = http.MethodGet
	}
	return Scraper{client: client, page: page}
}

// Rows fetches the page and returns the text of every selected row with
// whitespace collapsed. Empty rows are dropped before Skip and Limit apply.
func (s Scraper) Rows(ctx context.Context, params url.Values) ([]string, error) {
	ctx, span := tracer.Start(ctx, "tablepage:rows")
	defer span.End()
	span.SetAttributes(
		attribute.String("url", s.page.URL),
		attribute.String("params", params.Encode()),
	)

	req := s.client.R().SetContext(ctx)
	switch s.page.Method {
	case http.MethodPost:
		req.SetFormDataFromValues(params)
	default:
		req.SetQueryParamsFromValues(params)
	}

	res, err := req.Execute(s.page.Method, s.page.URL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return nil, err
	}
	if res.IsError() {
		err = fmt.Errorf("fetch %s: unexpected status %s", s.page.URL, res.Status())
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse html")
		return nil, err
	}

	rows := htmlutil.RowTexts(doc.Find(s.page.RowSelector))
	if s.page.Skip >= len(rows) {
		rows = nil
	} else {
		rows = rows[s.page.Skip:]
	}
	if s.page.Limit > 0 && len(rows) > s.page.Limit {
		rows = rows[:s.page.Limit]
	}
	span.SetAttributes(attribute.Int("rows", len(rows)))
	return rows, nil
}
