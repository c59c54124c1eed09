package events

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/harborline/freight-notifier/internal/booking"
	"github.com/harborline/freight-notifier/internal/dispatch"
)

// Content is a fully rendered notification body.
type Content struct {
	Subject string
	Plain   string
	HTML    string
}

type milestoneView struct {
	BookingNo    string
	CustomerName string
	Vessel       string
	Voyage       string
	SOBDate      string
	Origin       string
	Destination  string
	ContainerNo  string
	Line         string
	SenderName   string
	SenderEmail  string
}

var milestonePlain = texttemplate.Must(texttemplate.New("plain").Parse(`Dear {{.CustomerName}},

We are pleased to confirm that your cargo is shipped on board.

Booking No: {{.BookingNo}}
Vessel / Voyage: {{.Vessel}} / {{.Voyage}}
Shipped On Board: {{.SOBDate}}
Port of Loading: {{.Origin}}
Final Port of Discharge: {{.Destination}}
Container No: {{.ContainerNo}}
Line: {{.Line}}

The bill of lading will follow once released by the carrier.

Regards,
{{.SenderName}}
{{.SenderEmail}}
`))

var milestoneHTML = htmltemplate.Must(htmltemplate.New("html").Parse(`<html>
<body style="font-family: Arial, sans-serif; font-size: 13px;">
<p>Dear {{.CustomerName}},</p>
<p>We are pleased to confirm that your cargo is <b>shipped on board</b>.</p>
<table border="1" cellpadding="6" cellspacing="0" style="border-collapse: collapse;">
<tr><td><b>Booking No</b></td><td>{{.BookingNo}}</td></tr>
<tr><td><b>Vessel / Voyage</b></td><td>{{.Vessel}} / {{.Voyage}}</td></tr>
<tr><td><b>Shipped On Board</b></td><td>{{.SOBDate}}</td></tr>
<tr><td><b>Port of Loading</b></td><td>{{.Origin}}</td></tr>
<tr><td><b>Final Port of Discharge</b></td><td>{{.Destination}}</td></tr>
<tr><td><b>Container No</b></td><td>{{.ContainerNo}}</td></tr>
<tr><td><b>Line</b></td><td>{{.Line}}</td></tr>
</table>
<p>The bill of lading will follow once released by the carrier.</p>
<p>Regards,<br>{{.SenderName}}<br>{{.SenderEmail}}</p>
</body>
</html>
`))

// RenderMilestone renders the shipped-on-board notification.
func RenderMilestone(data *MilestoneEventData, identity dispatch.Identity) (Content, error) {
	view := milestoneView{
		BookingNo:    data.BookingNo,
		CustomerName: booking.OrNA(data.CustomerName),
		Vessel:       booking.OrNA(data.Vessel),
		Voyage:       booking.OrNA(data.Voyage),
		SOBDate:      booking.OrNA(data.SOBDate),
		Origin:       booking.OrNA(data.Origin),
		Destination:  booking.OrNA(data.Destination),
		ContainerNo:  booking.OrNA(data.ContainerNo),
		Line:         booking.OrNA(data.Line),
		SenderName:   identity.FromName,
		SenderEmail:  identity.FromEmail,
	}

	var plain bytes.Buffer
	if err := milestonePlain.Execute(&plain, view); err != nil {
		return Content{}, fmt.Errorf("failed to render plain milestone body: %w", err)
	}
	var html bytes.Buffer
	if err := milestoneHTML.Execute(&html, view); err != nil {
		return Content{}, fmt.Errorf("failed to render html milestone body: %w", err)
	}

	subject := fmt.Sprintf("!! Shipped On Board !! Booking No: %s // Vessel: %s // Customer Name: %s",
		data.BookingNo, booking.OrNA(data.Vessel), booking.OrNA(data.CustomerName))
	return Content{Subject: subject, Plain: plain.String(), HTML: html.String()}, nil
}

type rateView struct {
	BookingNo     string
	CustomerName  string
	BuyRate       string
	SellRate      string
	EquipmentType string
	Origin        string
	Destination   string
	SenderName    string
	SenderEmail   string
}

var ratePlain = texttemplate.Must(texttemplate.New("plain").Parse(`Selling rate confirmed.

Booking No: {{.BookingNo}}
Customer: {{.CustomerName}}
Buy Rate: {{.BuyRate}}
Sell Rate: {{.SellRate}}
Equipment: {{.EquipmentType}}
Route: {{.Origin}} -> {{.Destination}}

Regards,
{{.SenderName}}
{{.SenderEmail}}
`))

var rateHTML = htmltemplate.Must(htmltemplate.New("html").Parse(`<html>
<body style="font-family: Arial, sans-serif; font-size: 13px;">
<p>Selling rate confirmed.</p>
<table border="1" cellpadding="6" cellspacing="0" style="border-collapse: collapse;">
<tr><td><b>Booking No</b></td><td>{{.BookingNo}}</td></tr>
<tr><td><b>Customer</b></td><td>{{.CustomerName}}</td></tr>
<tr><td><b>Buy Rate</b></td><td>{{.BuyRate}}</td></tr>
<tr><td><b>Sell Rate</b></td><td>{{.SellRate}}</td></tr>
<tr><td><b>Equipment</b></td><td>{{.EquipmentType}}</td></tr>
<tr><td><b>Route</b></td><td>{{.Origin}} &rarr; {{.Destination}}</td></tr>
</table>
<p>Regards,<br>{{.SenderName}}<br>{{.SenderEmail}}</p>
</body>
</html>
`))

// RenderSellingRate renders the internal selling-rate notification. It goes
// to the sales desk only, never to the customer.
func RenderSellingRate(data *RateEventData, identity dispatch.Identity) (Content, error) {
	view := rateView{
		BookingNo:     data.BookingNo,
		CustomerName:  booking.OrNA(data.CustomerName),
		BuyRate:       booking.OrNA(data.BuyRate),
		SellRate:      booking.OrNA(data.SellRate),
		EquipmentType: booking.OrNA(data.EquipmentType),
		Origin:        booking.OrNA(data.Origin),
		Destination:   booking.OrNA(data.Destination),
		SenderName:    identity.FromName,
		SenderEmail:   identity.FromEmail,
	}

	var plain bytes.Buffer
	if err := ratePlain.Execute(&plain, view); err != nil {
		return Content{}, fmt.Errorf("failed to render plain rate body: %w", err)
	}
	var html bytes.Buffer
	if err := rateHTML.Execute(&html, view); err != nil {
		return Content{}, fmt.Errorf("failed to render html rate body: %w", err)
	}

	subject := fmt.Sprintf("Selling Rate Confirmed // Booking No: %s // %s", data.BookingNo, booking.OrNA(data.CustomerName))
	return Content{Subject: subject, Plain: plain.String(), HTML: html.String()}, nil
}
