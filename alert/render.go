// Copyright (c) 2025 BVK Chaitanya

package alert

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"text/template"
	"time"
)

const templateText = `
{{- define "alert" -}}
{{ .Level.Emoji }} **{{ .Title }}**{{ with .Symbol }} ` + "`{{ . }}`" + `{{ end }}
{{- with .Summary }}
{{ . }}{{ end }}
{{- range .Fields }}
• {{ .Name }}: {{ .Value }}{{ end }}
{{- with .URL }}
<{{ . }}>{{ end }}
{{- end -}}

{{- define "report" -}}
{{- with .Header }}__**{{ . }}**__
{{ end }}
{{- range $i, $a := .Alerts }}{{ if $i }}

{{ end }}{{ template "alert" $a }}{{ end }}
{{- end -}}
`

var tmpl = template.Must(template.New("alert").Parse(templateText))

// Render formats a single alert into a message.
func Render(a *Alert) (string, error) {
	var sb strings.Builder
	if err := tmpl.ExecuteTemplate(&sb, "alert", a); err != nil {
		return "", fmt.Errorf("could not render alert %q: %w", a.Title, err)
	}
	return sb.String(), nil
}

// RenderReport formats multiple alerts into one report with an optional
// header line. Alerts are ordered by decreasing level, then by time.
func RenderReport(header string, alerts []*Alert) (string, error) {
	sorted := slices.Clone(alerts)
	slices.SortStableFunc(sorted, func(a, b *Alert) int {
		if c := cmp.Compare(b.Level, a.Level); c != 0 {
			return c
		}
		return a.At.Compare(b.At)
	})

	data := struct {
		Header string
		Alerts []*Alert
	}{
		Header: header,
		Alerts: sorted,
	}

	var sb strings.Builder
	if err := tmpl.ExecuteTemplate(&sb, "report", &data); err != nil {
		return "", fmt.Errorf("could not render report with %d alerts: %w", len(alerts), err)
	}
	return sb.String(), nil
}

// ReportHeader returns the default report header summarizing the alert levels.
func ReportHeader(at time.Time, alerts []*Alert) string {
	counts := make(map[Level]int)
	for _, a := range alerts {
		counts[a.Level]++
	}
	var parts []string
	for _, l := range []Level{Critical, Warning, Info} {
		if n := counts[l]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, l))
		}
	}
	return fmt.Sprintf("%d alert(s) at %s UTC (%s)", len(alerts), at.UTC().Format("2006-01-02 15:04"), strings.Join(parts, ", "))
}
