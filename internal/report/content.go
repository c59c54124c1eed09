package report

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

// Table is a rendered-to-strings report body. All three report jobs feed
// their rows through it so the emails share one layout.
type Table struct {
	Title       string
	Intro       string
	Columns     []string
	Rows        [][]string
	SenderName  string
	SenderEmail string
}

var tablePlain = texttemplate.Must(texttemplate.New("plain").Funcs(texttemplate.FuncMap{
	"join": func(cells []string) string { return strings.Join(cells, " | ") },
}).Parse(`{{.Title}}

{{.Intro}}

{{range .Rows}}{{join .}}
{{end}}
Regards,
{{.SenderName}}
{{.SenderEmail}}
`))

var tableHTML = htmltemplate.Must(htmltemplate.New("html").Parse(`<html>
<body style="font-family: Arial, sans-serif; font-size: 13px;">
<p><b>{{.Title}}</b></p>
<p>{{.Intro}}</p>
<table border="1" cellpadding="6" cellspacing="0" style="border-collapse: collapse;">
<tr style="background-color: #1f4e79; color: #ffffff;">
{{range .Columns}}<th>{{.}}</th>{{end}}
</tr>
{{range .Rows}}<tr>
{{range .}}<td>{{.}}</td>{{end}}
</tr>
{{end}}</table>
<p>Regards,<br>{{.SenderName}}<br>{{.SenderEmail}}</p>
</body>
</html>
`))

// RenderTable produces the plain and HTML bodies for a report table. The
// plain body prefixes each row with its column labels so it stays readable
// without markup.
func RenderTable(t Table) (plain, html string, err error) {
	labelled := t
	labelled.Rows = make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		cells := make([]string, 0, len(row))
		for i, cell := range row {
			label := ""
			if i < len(t.Columns) {
				label = t.Columns[i] + ": "
			}
			cells = append(cells, label+cell)
		}
		labelled.Rows = append(labelled.Rows, cells)
	}

	var plainBuf bytes.Buffer
	if err := tablePlain.Execute(&plainBuf, labelled); err != nil {
		return "", "", fmt.Errorf("failed to render plain report body: %w", err)
	}

	var htmlBuf bytes.Buffer
	if err := tableHTML.Execute(&htmlBuf, t); err != nil {
		return "", "", fmt.Errorf("failed to render html report body: %w", err)
	}
	return plainBuf.String(), htmlBuf.String(), nil
}
