// Package mailer sends operator-facing email through Resend. An unconfigured
// mailer degrades to a no-op with a warning, mirroring how SMS delivery is
// optional.
package mailer

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/resend/resend-go/v2"
)

// Mailer sends import summary emails to the schedule contact address.
type Mailer struct {
	client    *resend.Client
	fromEmail string
	logger    *slog.Logger
}

// ImportSummary is the content of a post-import notification email.
type ImportSummary struct {
	ScheduleNumber string
	BranchOffice   string
	ImportedCount  int
	SkippedCount   int
	Warnings       []string
}

// New creates a mailer. An empty API key leaves the client nil and every
// send becomes a logged no-op.
func New(apiKey, fromEmail string, logger *slog.Logger) *Mailer {
	var client *resend.Client
	if apiKey != "" {
		client = resend.NewClient(apiKey)
	}

	return &Mailer{
		client:    client,
		fromEmail: fromEmail,
		logger:    logger,
	}
}

// SendImportSummary emails the import outcome to the contact address parsed
// from the schedule document.
func (m *Mailer) SendImportSummary(to string, summary ImportSummary) error {
	if m.client == nil {
		m.logger.Warn("resend client not configured, skipping import summary email")
		return nil
	}
	if to == "" {
		m.logger.Warn("schedule has no contact email, skipping import summary")
		return nil
	}

	warningBlock := ""
	if len(summary.Warnings) > 0 {
		warningBlock = fmt.Sprintf(`
    <div class="warnings">
      <p class="warningsLabel">ADVERTENCIAS</p>
      <p class="text">%s</p>
    </div>`, strings.Join(summary.Warnings, "<br>"))
	}

	html := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
  <style>
    body { background-color: #f4f5f7; font-family: Arial, sans-serif; margin: 0; padding: 40px 0; }
    .container { background-color: #ffffff; border: 1px solid #e1e4e8; border-radius: 12px; padding: 40px; max-width: 480px; margin: 0 auto; }
    .topLabel { color: #1f6feb; font-size: 12px; font-weight: 700; letter-spacing: 2px; text-align: center; }
    h1 { color: #24292f; font-size: 24px; font-weight: 900; text-align: center; margin: 20px 0; }
    .text { color: #57606a; font-size: 14px; line-height: 22px; text-align: center; }
    .counts { background: #f6f8fa; border-radius: 8px; padding: 20px; margin: 30px 0; text-align: center; }
    .countLabel { color: #8c959f; font-size: 10px; font-weight: 700; letter-spacing: 1px; }
    .countNumber { color: #24292f; font-size: 40px; font-weight: 900; margin: 10px 0; }
    .warnings { background: #fff8c5; border-radius: 8px; padding: 16px; margin: 20px 0; }
    .warningsLabel { color: #9a6700; font-size: 10px; font-weight: 700; letter-spacing: 1px; text-align: center; }
    .footer { color: #8c959f; font-size: 12px; text-align: center; margin-top: 30px; }
  </style>
</head>
<body>
  <div class="container">
    <p class="topLabel">CRONOGRAMA %s</p>
    <h1>Importacion completada</h1>
    <p class="text">Sucursal %s: se importaron las notificaciones del cronograma.</p>
    <div class="counts">
      <p class="countLabel">IMPORTADAS</p>
      <p class="countNumber">%d</p>
      <p class="countLabel">OMITIDAS (DUPLICADAS)</p>
      <p class="countNumber">%d</p>
    </div>%s
    <p class="footer">Este correo se genera automaticamente al procesar un cronograma.</p>
  </div>
</body>
</html>
`, summary.ScheduleNumber, summary.BranchOffice, summary.ImportedCount, summary.SkippedCount, warningBlock)

	_, err := m.client.Emails.Send(&resend.SendEmailRequest{
		From:    m.fromEmail,
		To:      []string{to},
		Subject: fmt.Sprintf("Cronograma %s importado", summary.ScheduleNumber),
		Html:    html,
	})
	return err
}
