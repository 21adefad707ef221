package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"net/url"
	texttemplate "text/template"
	"time"
)

type templateSet struct {
	subject *texttemplate.Template
	text    *texttemplate.Template
	html    *htmltemplate.Template
}

func newTemplateSet(name, subject, text, html string) templateSet {
	return templateSet{
		subject: texttemplate.Must(texttemplate.New(name + "_subject").Parse(subject)),
		text:    texttemplate.Must(texttemplate.New(name + "_text").Parse(text)),
		html:    htmltemplate.Must(htmltemplate.New(name + "_html").Parse(html)),
	}
}

func render(ts templateSet, data any) (Message, error) {
	var subject, text, html bytes.Buffer
	if err := ts.subject.Execute(&subject, data); err != nil {
		return Message{}, fmt.Errorf("render subject: %w", err)
	}
	if err := ts.text.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("render text body: %w", err)
	}
	if err := ts.html.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("render html body: %w", err)
	}
	return Message{Subject: subject.String(), Text: text.String(), HTML: html.String()}, nil
}

type loginView struct {
	LoginLinkEmail
	Minutes int
}

type rsvpView struct {
	RSVPConfirmationEmail
	When string
}

const layoutHead = `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
<div style="max-width: 600px; margin: 0 auto; padding: 20px;">`

const layoutFoot = `<hr style="border: none; border-top: 1px solid #ddd; margin: 30px 0;">
<p style="font-size: 12px; color: #666;">This is an automated message from the Aether Ecosystem.</p>
</div>
</body>
</html>`

const buttonStyle = `background-color: #5b21b6; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px; display: inline-block;`

var verificationTemplates = newTemplateSet("verification",
	`Activate Your Aether ID 🌍`,
	`Hi {{.Name}},

Welcome to the Aether Ecosystem! 🎉
Your unique Aether ID is: {{.MemberCode}}.

Activate your account here:
{{.Link}}

If you didn't request this, please ignore this email.
`,
	layoutHead+`
<p>Hi {{.Name}},</p>
<p>Welcome to the Aether Ecosystem! 🎉</p>
<p>Your unique Aether ID is: <strong>{{.MemberCode}}</strong>.</p>
<p style="margin: 30px 0;"><a href="{{.Link}}" style="`+buttonStyle+`">Activate My Aether ID</a></p>
<p>Or copy and paste this link into your browser:</p>
<p style="word-break: break-all;">{{.Link}}</p>
<p>If you didn't request this, please ignore this email.</p>
`+layoutFoot)

var loginTemplates = newTemplateSet("login",
	`Your Aether login link`,
	`Hi {{.Name}},

Use the link below to sign in to Aether:
{{.Link}}

The link expires in {{.Minutes}} minutes and can be used once.
If you didn't ask to sign in, you can ignore this email.
`,
	layoutHead+`
<p>Hi {{.Name}},</p>
<p>Use the button below to sign in to Aether.</p>
<p style="margin: 30px 0;"><a href="{{.Link}}" style="`+buttonStyle+`">Sign in to Aether</a></p>
<p style="word-break: break-all;">{{.Link}}</p>
<p>The link expires in {{.Minutes}} minutes and can be used once. If you didn't ask to sign in, you can ignore this email.</p>
`+layoutFoot)

var rsvpTemplates = newTemplateSet("rsvp",
	`You're registered: {{.EventTitle}}`,
	`Hi {{.Name}},

Your spot for "{{.EventTitle}}" is reserved.

When: {{.When}}
{{- if .Platform}}
Platform: {{.Platform}}{{end}}
{{- if .Location}}
Location: {{.Location}}{{end}}

Add it to your calendar:
{{.CalendarLink}}

See you there!
`,
	layoutHead+`
<p>Hi {{.Name}},</p>
<p>Your spot for <strong>{{.EventTitle}}</strong> is reserved.</p>
<ul>
<li>When: {{.When}}</li>
{{if .Platform}}<li>Platform: {{.Platform}}</li>{{end}}
{{if .Location}}<li>Location: {{.Location}}</li>{{end}}
</ul>
<p style="margin: 30px 0;"><a href="{{.CalendarLink}}" style="`+buttonStyle+`">Add to Calendar</a></p>
<p>See you there!</p>
`+layoutFoot)

// DefaultEventLength is assumed when building calendar links.
const DefaultEventLength = time.Hour

// CalendarLink returns a Google Calendar "add event" URL.
func CalendarLink(title string, start time.Time, length time.Duration, details, location string) string {
	if length <= 0 {
		length = DefaultEventLength
	}
	const layout = "20060102T150405Z"
	q := url.Values{}
	q.Set("action", "TEMPLATE")
	q.Set("text", title)
	q.Set("dates", start.UTC().Format(layout)+"/"+start.Add(length).UTC().Format(layout))
	if details != "" {
		q.Set("details", details)
	}
	if location != "" {
		q.Set("location", location)
	}
	return "https://calendar.google.com/calendar/render?" + q.Encode()
}
