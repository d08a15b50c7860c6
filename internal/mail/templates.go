package mail

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/eisengrid/service-api-go/internal/user/entity"
)

type Template string

const (
	TemplateWelcome   Template = "welcome"
	TemplateLoginCode Template = "login_code"
	TemplateBroadcast Template = "broadcast"
)

// RespectsPreference reports whether the template is gated on the user's
// notification preference. Login codes are transactional and always send.
func (t Template) RespectsPreference() bool {
	return t != TemplateLoginCode
}

type message struct {
	subject string
	body    *template.Template
}

var messages = map[Template]message{
	TemplateWelcome: {
		subject: "Welcome to your priority grid",
		body: template.Must(template.New("welcome").Parse(
			"Hi {{.Name}},\n\nYour account is ready. Plot what matters.\n")),
	},
	TemplateLoginCode: {
		subject: "Your login code",
		body: template.Must(template.New("login_code").Parse(
			"Hi {{.Name}},\n\nYour login code is {{.Data.code}}. It expires in 15 minutes.\n")),
	},
	TemplateBroadcast: {
		subject: "A note from the team",
		body: template.Must(template.New("broadcast").Parse(
			"Hi {{.Name}},\n\n{{.Data.body}}\n")),
	},
}

type templateContext struct {
	Name  string
	Email string
	Data  map[string]string
}

func render(t Template, u *entity.User, data map[string]string) (subject, body string, err error) {
	m, ok := messages[t]
	if !ok {
		return "", "", fmt.Errorf("unknown mail template %q", t)
	}
	name := u.Name
	if name == "" {
		name = "there"
	}
	var buf bytes.Buffer
	if err := m.body.Execute(&buf, templateContext{Name: name, Email: u.Email, Data: data}); err != nil {
		return "", "", err
	}
	if subj, ok := data["subject"]; ok && subj != "" {
		return subj, buf.String(), nil
	}
	return m.subject, buf.String(), nil
}
