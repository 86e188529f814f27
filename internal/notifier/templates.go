package notifier

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/v-momentum/momentum/internal/models"
)

//go:embed templates/*
var templateFS embed.FS

// Templates holds parsed email templates.
type Templates struct {
	html  *template.Template
	plain *template.Template
}

// TemplateData contains data for template rendering. Metric values
// arrive pre-formatted so the templates stay free of per-rule logic.
type TemplateData struct {
	RuleName      string
	Description   string
	Severity      string
	SeverityColor string
	SiteID        string
	Metric        string
	CurrentValue  string
	PreviousValue string
	ChangeLabel   string
	Timestamp     string
	Details       []DetailRow
}

// DetailRow is an extra label/value line below the main comparison.
type DetailRow struct {
	Label string
	Value string
}

// LoadTemplates loads embedded email templates.
func LoadTemplates() (*Templates, error) {
	funcs := template.FuncMap{
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
	}

	htmlTmpl, err := template.New("alert.html").Funcs(funcs).ParseFS(templateFS, "templates/alert.html")
	if err != nil {
		return nil, err
	}

	plainTmpl, err := template.New("alert.txt").Funcs(funcs).ParseFS(templateFS, "templates/alert.txt")
	if err != nil {
		return nil, err
	}

	return &Templates{
		html:  htmlTmpl,
		plain: plainTmpl,
	}, nil
}

// RenderHTML renders the HTML email body.
func (t *Templates) RenderHTML(data *TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := t.html.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderPlain renders the plain text email body.
func (t *Templates) RenderPlain(data *TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := t.plain.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// severityColor returns the color for a severity level.
func severityColor(severity models.Severity) string {
	switch severity {
	case models.SeverityCritical:
		return "#d32f2f" // red
	case models.SeverityWarning:
		return "#f57c00" // orange
	case models.SeverityInfo:
		return "#1976d2" // blue
	default:
		return "#757575" // gray
	}
}

// EventToTemplateData formats an alert event for the templates. The
// presentation depends on the rule type: session counts for traffic
// drops, percentage rates for conversion drops, and the day-over-average
// multiplier for pageview spikes.
func EventToTemplateData(rule *models.AlertRule, event *models.AlertEvent) TemplateData {
	p := event.Payload
	data := TemplateData{
		RuleName:      rule.Name,
		Description:   rule.Description,
		Severity:      string(event.Severity),
		SeverityColor: severityColor(event.Severity),
		SiteID:        event.SiteID,
		Metric:        p.Metric,
		Timestamp:     event.TriggeredAt.Format("2006-01-02 15:04:05 MST"),
	}

	switch rule.Type {
	case models.RuleTrafficDrop:
		data.CurrentValue = fmt.Sprintf("%.0f sessions", p.CurrentValue)
		data.PreviousValue = fmt.Sprintf("%.0f sessions", p.PreviousValue)
		data.ChangeLabel = fmt.Sprintf("%.2f%%", p.ChangePercent)
		data.Details = []DetailRow{
			{Label: "Current period", Value: p.PeriodA},
			{Label: "Baseline period", Value: p.PeriodB},
		}

	case models.RuleConversionDrop:
		data.CurrentValue = fmt.Sprintf("%.2f%%", p.CurrentValue*100)
		data.PreviousValue = fmt.Sprintf("%.2f%%", p.PreviousValue*100)
		data.ChangeLabel = fmt.Sprintf("%.2f%%", p.ChangePercent)
		data.Details = []DetailRow{
			{Label: "Current period", Value: fmt.Sprintf("%d conversions / %d sessions", p.ConversionsA, p.SessionsA)},
			{Label: "Baseline period", Value: fmt.Sprintf("%d conversions / %d sessions", p.ConversionsB, p.SessionsB)},
		}

	case models.RulePageviewsSpike:
		data.CurrentValue = fmt.Sprintf("%.0f pageviews", p.CurrentValue)
		data.PreviousValue = fmt.Sprintf("%.1f daily average", p.PreviousValue)
		data.ChangeLabel = fmt.Sprintf("%.2fx the daily average", p.Multiplier)

	default:
		data.CurrentValue = fmt.Sprintf("%.2f", p.CurrentValue)
		data.PreviousValue = fmt.Sprintf("%.2f", p.PreviousValue)
		data.ChangeLabel = fmt.Sprintf("%.2f%%", p.ChangePercent)
	}

	return data
}
