// Package templates renders the transactional emails the auth and audio
// flows produce. Templates are small enough to live inline; each has a
// subject, a plain-text body, and an HTML body.
package templates

import (
	"bytes"
	"fmt"
	htmpl "html/template"
	texttpl "text/template"
)

type emailTemplate struct {
	subject string
	text    *texttpl.Template
	html    *htmpl.Template
}

var registry = map[string]emailTemplate{
	"otp_code": {
		subject: "Your {{.AppName}} verification code",
		text: mustText("otp_code", "Hi {{or .Name \"there\"}},\n\n" +
			"Your {{.AppName}} verification code is {{.Code}}. " +
			"It expires in {{.ExpiresMinutes}} minutes.\n\n" +
			"If you did not request this code, you can ignore this email.\n"),
		html: mustHTML("otp_code", "<p>Hi {{or .Name \"there\"}},</p>" +
			"<p>Your {{.AppName}} verification code is <strong>{{.Code}}</strong>. " +
			"It expires in {{.ExpiresMinutes}} minutes.</p>" +
			"<p>If you did not request this code, you can ignore this email.</p>"),
	},
	"welcome": {
		subject: "Welcome to {{.AppName}}!",
		text: mustText("welcome", "Hi {{or .Name \"there\"}},\n\n" +
			"Welcome to {{.AppName}}! Your account is ready.\n\n" +
			"We generated a temporary password for you: {{.TempPassword}}\n" +
			"You can use it to log in with your email, and change it any time " +
			"from your account settings.\n"),
		html: mustHTML("welcome", "<p>Hi {{or .Name \"there\"}},</p>" +
			"<p>Welcome to {{.AppName}}! Your account is ready.</p>" +
			"<p>We generated a temporary password for you: <strong>{{.TempPassword}}</strong></p>" +
			"<p>You can use it to log in with your email, and change it any time " +
			"from your account settings.</p>"),
	},
	"welcome_federated": {
		subject: "Welcome to {{.AppName}}!",
		text: mustText("welcome_federated", "Hi {{or .Name \"there\"}},\n\n" +
			"Welcome to {{.AppName}}! Your Google account is now linked and " +
			"you can sign in with it any time.\n"),
		html: mustHTML("welcome_federated", "<p>Hi {{or .Name \"there\"}},</p>" +
			"<p>Welcome to {{.AppName}}! Your Google account is now linked and " +
			"you can sign in with it any time.</p>"),
	},
	"password_changed": {
		subject: "Your {{.AppName}} password was changed",
		text: mustText("password_changed", "Hi {{or .Name \"there\"}},\n\n" +
			"The password for your {{.AppName}} account was just changed.\n\n" +
			"If this was not you, reset your password immediately.\n"),
		html: mustHTML("password_changed", "<p>Hi {{or .Name \"there\"}},</p>" +
			"<p>The password for your {{.AppName}} account was just changed.</p>" +
			"<p>If this was not you, reset your password immediately.</p>"),
	},
}

func mustText(name, body string) *texttpl.Template {
	return texttpl.Must(texttpl.New(name).Parse(body))
}

func mustHTML(name, body string) *htmpl.Template {
	return htmpl.Must(htmpl.New(name).Parse(body))
}

// Render produces subject, text body, and HTML body for the named template.
func Render(name string, data map[string]any) (subject, text, html string, err error) {
	t, ok := registry[name]
	if !ok {
		return "", "", "", fmt.Errorf("unknown email template %q", name)
	}
	st := texttpl.Must(texttpl.New(name + "_subject").Parse(t.subject))

	var buf bytes.Buffer
	if err := st.Execute(&buf, data); err != nil {
		return "", "", "", err
	}
	subject = buf.String()

	buf.Reset()
	if err := t.text.Execute(&buf, data); err != nil {
		return "", "", "", err
	}
	text = buf.String()

	buf.Reset()
	if err := t.html.Execute(&buf, data); err != nil {
		return "", "", "", err
	}
	return subject, text, buf.String(), nil
}
