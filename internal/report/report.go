package report

import (
	"encoding/json"
	"fmt"
	htmltemplate "html/template"
	"io"
	"net/url"
	"strings"
	"text/template"
	"time"

	"github.com/FranksOps/newsburr/internal/storage"
)

// Summary contains aggregated metrics over a run history.
type Summary struct {
	TotalRuns     int
	Successes     int
	Errors        int
	SuccessRate   float64
	TotalURLs     int
	TotalTokens   int
	BotDetections int
	ByModel       map[string]int
	ByDomain      map[string]int
	ErrorMessages map[string]int
	StartTime     time.Time
	EndTime       time.Time
	Duration      time.Duration
}

// GenerateSummary processes run records to generate summary metrics.
func GenerateSummary(results []*storage.SearchResult) Summary {
	s := Summary{
		ByModel:       make(map[string]int),
		ByDomain:      make(map[string]int),
		ErrorMessages: make(map[string]int),
	}

	if len(results) == 0 {
		return s
	}

	s.StartTime = results[0].CreatedAt
	s.EndTime = results[0].CreatedAt

	for _, r := range results {
		s.TotalRuns++
		s.ByModel[r.ModelUsed]++

		switch r.Status {
		case storage.StatusSuccess:
			s.Successes++
		case storage.StatusError:
			s.Errors++
			s.ErrorMessages[r.Error]++
		}

		s.TotalURLs += len(r.NewsURLs)
		for _, u := range r.NewsURLs {
			if d := domain(u); d != "" {
				s.ByDomain[d]++
			}
		}
		if r.Usage != nil {
			s.TotalTokens += r.Usage.TotalTokens
		}
		for _, a := range r.Articles {
			if a.DetectedBot {
				s.BotDetections++
			}
		}

		if r.CreatedAt.Before(s.StartTime) {
			s.StartTime = r.CreatedAt
		}
		if r.CreatedAt.After(s.EndTime) {
			s.EndTime = r.CreatedAt
		}
	}

	s.SuccessRate = float64(s.Successes) / float64(s.TotalRuns) * 100
	s.Duration = s.EndTime.Sub(s.StartTime)
	return s
}

func domain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return nil
}

const textTmpl = `Newsburr History Summary
------------------------
Time:          {{.StartTime.Format "2006-01-02 15:04:05"}} - {{.EndTime.Format "2006-01-02 15:04:05"}}
Duration:      {{.Duration}}
Total Runs:    {{.TotalRuns}} runs
Successes:     {{.Successes}} ({{printf "%.1f" .SuccessRate}}%)
Errors:        {{.Errors}}
URLs Found:    {{.TotalURLs}}
Tokens Used:   {{.TotalTokens}}
Bot Walls:     {{.BotDetections}}

Models:
{{- range $model, $count := .ByModel}}
  {{$model}}: {{$count}}
{{- else}}
  None
{{- end}}

Domains:
{{- range $domain, $count := .ByDomain}}
  {{$domain}}: {{$count}}
{{- else}}
  None
{{- end}}

Errors By Message:
{{- range $msg, $count := .ErrorMessages}}
  {{$count}}x {{$msg}}
{{- else}}
  None
{{- end}}
`

// WriteText writes a human-readable text summary to the provided writer.
func WriteText(w io.Writer, summary Summary) error {
	t, err := template.New("textReport").Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("parse text template: %w", err)
	}

	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("render text report: %w", err)
	}

	return nil
}

const htmlTmpl = `<!DOCTYPE html>
<html>
<head>
<title>Newsburr History Report</title>
<style>
  body { font-family: sans-serif; margin: 40px; color: #333; }
  h1 { border-bottom: 2px solid #ccc; padding-bottom: 10px; }
  .stat-card { display: inline-block; padding: 20px; margin: 10px 10px 10px 0; background: #f4f4f4; border-radius: 5px; min-width: 150px; }
  .stat-val { font-size: 24px; font-weight: bold; }
  .bad { color: red; }
  .good { color: green; }
  table { border-collapse: collapse; margin-top: 10px; }
  th, td { padding: 8px 12px; border: 1px solid #ccc; text-align: left; }
  th { background: #eaeaea; }
</style>
</head>
<body>
  <h1>Newsburr History Report</h1>
  <p><strong>Time:</strong> {{.StartTime.Format "2006-01-02 15:04:05"}} to {{.EndTime.Format "2006-01-02 15:04:05"}} ({{.Duration}})</p>

  <div class="stat-card">
    <div>Runs</div>
    <div class="stat-val">{{.TotalRuns}}</div>
  </div>
  <div class="stat-card">
    <div>Success Rate</div>
    <div class="stat-val">{{printf "%.1f" .SuccessRate}}%</div>
  </div>
  <div class="stat-card">
    <div>Errors</div>
    <div class="stat-val {{if gt .Errors 0}}bad{{else}}good{{end}}">{{.Errors}}</div>
  </div>
  <div class="stat-card">
    <div>URLs Found</div>
    <div class="stat-val">{{.TotalURLs}}</div>
  </div>

  <h3>Models</h3>
  <table>
    <tr><th>Model</th><th>Runs</th></tr>
    {{- range $model, $count := .ByModel}}
    <tr><td>{{$model}}</td><td>{{$count}}</td></tr>
    {{- else}}
    <tr><td colspan="2">None</td></tr>
    {{- end}}
  </table>

  <h3>Domains</h3>
  <table>
    <tr><th>Domain</th><th>URLs</th></tr>
    {{- range $domain, $count := .ByDomain}}
    <tr><td>{{$domain}}</td><td>{{$count}}</td></tr>
    {{- else}}
    <tr><td colspan="2">None</td></tr>
    {{- end}}
  </table>

  <h3>Errors</h3>
  <table>
    <tr><th>Message</th><th>Count</th></tr>
    {{- range $msg, $count := .ErrorMessages}}
    <tr><td>{{$msg}}</td><td>{{$count}}</td></tr>
    {{- else}}
    <tr><td colspan="2">None</td></tr>
    {{- end}}
  </table>
</body>
</html>
`

// WriteHTML writes a basic HTML report to the provided writer. Model output
// ends up in the page, so it is rendered with html/template.
func WriteHTML(w io.Writer, summary Summary) error {
	t, err := htmltemplate.New("htmlReport").Parse(htmlTmpl)
	if err != nil {
		return fmt.Errorf("parse html template: %w", err)
	}

	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("render html report: %w", err)
	}

	return nil
}

// Write renders summary in the named format: text, json or html.
func Write(w io.Writer, format string, summary Summary) error {
	switch strings.ToLower(format) {
	case "", "text":
		return WriteText(w, summary)
	case "json":
		return WriteJSON(w, summary)
	case "html":
		return WriteHTML(w, summary)
	}
	return fmt.Errorf("unknown report format %q", format)
}
