package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"

	"github.com/trackex/realtime-status/internal/core/domain/license"
	"github.com/trackex/realtime-status/internal/core/ports"
)

// EmailConfig holds email service configuration
type EmailConfig struct {
	SendGridAPIKey string
	FromEmail      string
	FromName       string
	CompanyName    string
	BaseURL        string
}

// EmailService sends license lifecycle notifications through SendGrid.
type EmailService struct {
	config   *EmailConfig
	logger   *logrus.Logger
	client   *sendgrid.Client
	template *template.Template
}

const licenseAlertTemplate = `<html>
<body style="font-family: sans-serif;">
	<h2>{{.CompanyName}} license alert</h2>
	<p>The monitoring license for employee <strong>{{.EmployeeID}}</strong> is no longer active.</p>
	<p>Status: <strong>{{.Status}}</strong><br>Reason: {{.Reason}}</p>
	<p><a href="{{.DashboardURL}}">Open the dashboard</a> to review or renew this seat.</p>
</body>
</html>`

// NewEmailService creates a new email service instance
func NewEmailService(config *EmailConfig, logger *logrus.Logger) (ports.EmailService, error) {
	tmpl, err := template.New("license_alert").Parse(licenseAlertTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse license alert template: %w", err)
	}

	return &EmailService{
		config:   config,
		logger:   logger,
		client:   sendgrid.NewSendClient(config.SendGridAPIKey),
		template: tmpl,
	}, nil
}

type licenseAlertData struct {
	CompanyName  string
	EmployeeID   string
	Status       string
	Reason       string
	DashboardURL string
}

// SendLicenseAlert notifies the tenant admin that a seat left the active
// state.
func (e *EmailService) SendLicenseAlert(ctx context.Context, l *license.License, reason string) error {
	if l.AdminEmail == "" {
		return fmt.Errorf("license %s has no admin email", l.ID)
	}

	data := licenseAlertData{
		CompanyName:  e.config.CompanyName,
		EmployeeID:   l.EmployeeID,
		Status:       string(l.Status),
		Reason:       reason,
		DashboardURL: fmt.Sprintf("%s/dashboard/licenses/%s", e.config.BaseURL, l.EmployeeID),
	}

	var buf bytes.Buffer
	if err := e.template.Execute(&buf, data); err != nil {
		return fmt.Errorf("failed to render license alert template: %w", err)
	}

	subject := fmt.Sprintf("License alert for employee %s - %s", l.EmployeeID, e.config.CompanyName)
	return e.sendEmail(l.AdminEmail, subject, buf.String())
}

// sendEmail sends an email using SendGrid
func (e *EmailService) sendEmail(to, subject, htmlContent string) error {
	from := mail.NewEmail(e.config.FromName, e.config.FromEmail)
	recipient := mail.NewEmail("", to)

	message := mail.NewSingleEmail(from, subject, recipient, "", htmlContent)

	response, err := e.client.Send(message)
	if err != nil {
		e.logger.WithFields(logrus.Fields{
			"to":      to,
			"subject": subject,
			"error":   err,
		}).Error("Failed to send email")
		return fmt.Errorf("failed to send email: %w", err)
	}

	e.logger.WithFields(logrus.Fields{
		"to":          to,
		"subject":     subject,
		"status_code": response.StatusCode,
	}).Info("Email sent successfully")

	return nil
}
