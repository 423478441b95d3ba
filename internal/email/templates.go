package email

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

// Kind identifica la plantilla de un correo.
type Kind string

const (
	KindVerification  Kind = "verification"
	KindWelcome       Kind = "welcome"
	KindPasswordReset Kind = "password_reset"
)

const layout = `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">{{template "body" .}}</div>`

var bodies = map[Kind]string{
	KindVerification: `{{define "body"}}<h2>Welcome, {{.Name}}!</h2>
<p>Your verification code is:</p>
<div style="background:#f4f4f4;padding:15px;text-align:center;margin:20px 0;"><h1>{{.Code}}</h1></div>
<p>This code expires in {{.ValidFor}}.</p>{{end}}`,
	KindWelcome: `{{define "body"}}<h2>Welcome, {{.Name}}!</h2>
<p>Your account has been successfully verified.</p>{{end}}`,
	KindPasswordReset: `{{define "body"}}<h2>Password Reset Request</h2>
<p>Hello {{.Name}}, use this OTP to reset your password:</p>
<div style="background:#f4f4f4;padding:15px;text-align:center;margin:20px 0;"><h1>{{.Code}}</h1></div>
<p>This OTP expires in {{.ValidFor}}.</p>{{end}}`,
}

var subjects = map[Kind]string{
	KindVerification:  "Verify Your Email Address",
	KindWelcome:       "Welcome to Our App!",
	KindPasswordReset: "Password Reset Request",
}

var templates = func() map[Kind]*template.Template {
	out := make(map[Kind]*template.Template, len(bodies))
	for kind, body := range bodies {
		t := template.Must(template.New(string(kind)).Parse(layout))
		out[kind] = template.Must(t.Parse(body))
	}
	return out
}()

type templateData struct {
	Name     string
	Code     string
	ValidFor string
}

// render devuelve asunto y cuerpo HTML para el tipo de correo.
func render(kind Kind, name, code string, validFor time.Duration) (string, string, error) {
	t, ok := templates[kind]
	if !ok {
		return "", "", fmt.Errorf("unknown email kind %q", kind)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, templateData{
		Name:     name,
		Code:     code,
		ValidFor: humanizeDuration(validFor),
	}); err != nil {
		return "", "", err
	}
	return subjects[kind], buf.String(), nil
}

func humanizeDuration(d time.Duration) string {
	if d <= 0 {
		return "a few minutes"
	}
	minutes := int(d.Round(time.Minute) / time.Minute)
	if minutes <= 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}
