package reminder

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"text/template"

	"github.com/harborline/freight-notifier/internal/booking"
	"github.com/harborline/freight-notifier/internal/dispatch"
)

// Content is a rendered reminder message.
type Content struct {
	Subject string
	Plain   string
	HTML    string
}

const cutoffPlainTemplate = `Dear Sir / Madam,

Please note the SI cut-off for the below shipment is nearing. Kindly send us the SI on {{.SenderEmail}} without delay.

Any change in shipment planning, please notify the CS team for a timely roll-over.

DO NOT REPLY TO THIS MAIL.

Booking No: {{.BookingNo}}
SI Cutoff: {{.Cutoff}}
Volume: {{.Volume}}
POL: {{.Origin}}
FPOD: {{.Destination}}
Vessel: {{.Vessel}}
Voyage: {{.Voyage}}

Note: this is a system generated email. If the SI is already submitted, please ignore and coordinate with the doc team for the first print and further process.

Thank you for your support.

Regards,
{{.SenderName}}
{{.SenderEmail}}
`

const cutoffHTMLTemplate = `<html>
<body style="font-family: Arial, sans-serif;">
    <p>Dear Sir / Madam,</p>
    <p>Please note the SI cut-off for the below shipment is nearing. Kindly send us the SI on <a href="mailto:{{.SenderEmail}}">{{.SenderEmail}}</a> without delay.</p>
    <p>Any change in shipment planning, please notify the CS team for a timely roll-over.</p>
    <p><strong>DO NOT REPLY TO THIS MAIL.</strong></p>
    <table border="1" cellpadding="5" cellspacing="0" style="border-collapse: collapse;">
        <tr style="background-color: #f2f2f2;">
            <th>Booking No</th>
            <th>SI Cutoff</th>
            <th>Volume</th>
            <th>POL</th>
            <th>FPOD</th>
            <th>Vessel</th>
            <th>Voyage</th>
        </tr>
        <tr>
            <td>{{.BookingNo}}</td>
            <td>{{.Cutoff}}</td>
            <td>{{.Volume}}</td>
            <td>{{.Origin}}</td>
            <td>{{.Destination}}</td>
            <td>{{.Vessel}}</td>
            <td>{{.Voyage}}</td>
        </tr>
    </table>
    <p><em>Note: this is a system generated email. If the SI is already submitted, please ignore and coordinate with the doc team for the first print and further process.</em></p>
    <p>Thank you for your support.</p>
    <p>Regards,<br>
    {{.SenderName}}<br>
    <a href="mailto:{{.SenderEmail}}">{{.SenderEmail}}</a></p>
</body>
</html>
`

var (
	cutoffPlain = template.Must(template.New("cutoff_plain").Parse(cutoffPlainTemplate))
	cutoffHTML  = htmltemplate.Must(htmltemplate.New("cutoff_html").Parse(cutoffHTMLTemplate))
)

type cutoffData struct {
	BookingNo   string
	Cutoff      string
	Volume      string
	Origin      string
	Destination string
	Vessel      string
	Voyage      string
	SenderName  string
	SenderEmail string
}

// RenderCutoffReminder renders the pending-SI reminder for one record,
// signed by the sender identity picked for it.
func RenderCutoffReminder(rec booking.Record, identity dispatch.Identity) (Content, error) {
	data := cutoffData{
		BookingNo:   rec.BookingNo,
		Cutoff:      rec.Deadline.Format("02/01/2006 15:04"),
		Volume:      booking.OrNA(rec.Volume),
		Origin:      booking.OrNA(rec.Origin),
		Destination: booking.OrNA(rec.Destination),
		Vessel:      booking.OrNA(rec.Vessel),
		Voyage:      booking.OrNA(rec.Voyage),
		SenderName:  identity.FromName,
		SenderEmail: identity.FromEmail,
	}

	var plain bytes.Buffer
	if err := cutoffPlain.Execute(&plain, data); err != nil {
		return Content{}, fmt.Errorf("failed to render plain reminder body: %w", err)
	}

	var html bytes.Buffer
	if err := cutoffHTML.Execute(&html, data); err != nil {
		return Content{}, fmt.Errorf("failed to render html reminder body: %w", err)
	}

	subject := fmt.Sprintf("!! Reminder for Pending SI !! Booking No: %s // Vessel: %s // Customer Name: %s",
		rec.BookingNo, rec.Vessel, rec.CustomerName)

	return Content{Subject: subject, Plain: plain.String(), HTML: html.String()}, nil
}
