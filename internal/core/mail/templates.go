package mail

import (
	"fmt"
	"html/template"
	"net/url"
	"strings"
)

func link(frontend, path, token string) string {
	return strings.TrimRight(frontend, "/") + path + "?token=" + url.QueryEscape(token)
}

func ActivationLink(frontend, token string) string { return link(frontend, "/inscription", token) }
func ResetLink(frontend, token string) string      { return link(frontend, "/reset-password", token) }

type page struct {
	Name string
	Link string
}

var (
	activationHTML = template.Must(template.New("activation").Parse(
		`<p>Hello {{.Name}},</p><p>An account was created for you. <a href="{{.Link}}">Finish your registration</a> (valid 48 hours).</p>`))
	resetHTML = template.Must(template.New("reset").Parse(
		`<p>Hello {{.Name}},</p><p><a href="{{.Link}}">Choose a new password</a> (valid 1 hour).</p>`))
)

// html 模板出错时只发纯文本
func html(t *template.Template, p page) string {
	var b strings.Builder
	if err := t.Execute(&b, p); err != nil {
		return ""
	}
	return b.String()
}

func Activation(frontend, to, firstName, token string) Message {
	l := ActivationLink(frontend, token)
	return Message{
		To:      to,
		Subject: "Activate your club account",
		Text:    fmt.Sprintf("Hello %s,\n\nAn account was created for you. Finish your registration here (valid 48 hours):\n%s\n", firstName, l),
		HTML:    html(activationHTML, page{Name: firstName, Link: l}),
	}
}

func PasswordReset(frontend, to, firstName, token string) Message {
	l := ResetLink(frontend, token)
	return Message{
		To:      to,
		Subject: "Reset your password",
		Text:    fmt.Sprintf("Hello %s,\n\nChoose a new password here (valid 1 hour):\n%s\n", firstName, l),
		HTML:    html(resetHTML, page{Name: firstName, Link: l}),
	}
}
