package services

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/dimitrije/teamtasks-api/internal/config"
	"gopkg.in/gomail.v2"
)

var emailTemplates = template.Must(template.New("email").Parse(`
{{define "password_reset"}}<html>
<body>
	<h2>Reset your password</h2>
	<p>Hi {{.Username}},</p>
	<p>We received a request to reset your password. The link below is valid for one hour and can be used once.</p>
	<p><a href="{{.Link}}">Reset password</a></p>
	<p>If you did not ask for this, you can ignore this email.</p>
</body>
</html>{{end}}
{{define "team_invite"}}<html>
<body>
	<h2>Team Invitation</h2>
	<p>Hi,</p>
	<p><strong>{{.Inviter}}</strong> has invited you to join the team <strong>{{.Team}}</strong>.</p>
	<p><a href="{{.Link}}">Open your invitations</a></p>
</body>
</html>{{end}}
`))

type mailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type EmailService struct {
	cfg    config.SMTPConfig
	dialer mailDialer
}

func NewEmailService(cfg config.SMTPConfig) *EmailService {
	return &EmailService{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

func (s *EmailService) IsConfigured() bool {
	return s.cfg.Host != "" && s.cfg.Username != "" && s.cfg.Password != "" && s.cfg.From != ""
}

// Send delivers an HTML message. It is a no-op when SMTP is not configured.
func (s *EmailService) Send(to, subject, body string) error {
	if !s.IsConfigured() {
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (s *EmailService) SendPasswordReset(to, username, resetURL string) error {
	body, err := render("password_reset", map[string]string{
		"Username": username,
		"Link":     resetURL,
	})
	if err != nil {
		return err
	}
	return s.Send(to, "Your password reset link", body)
}

func (s *EmailService) SendTeamInvite(to, teamName, inviterName, inviteURL string) error {
	body, err := render("team_invite", map[string]string{
		"Team":    teamName,
		"Inviter": inviterName,
		"Link":    inviteURL,
	})
	if err != nil {
		return err
	}
	return s.Send(to, fmt.Sprintf("You've been invited to join %s", teamName), body)
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s email: %w", name, err)
	}
	return buf.String(), nil
}
