package notify

import (
	"context"
	"fmt"
	"time"

	gomail "gopkg.in/mail.v2"

	"github.com/shanehull/wsbscraper/internal/config"
	"github.com/shanehull/wsbscraper/internal/logger"
	"github.com/shanehull/wsbscraper/internal/types"
)

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailSender delivers messages via SMTP.
type EmailSender struct {
	cfg      config.EmailConfig
	renderer Renderer
	scaleMax float64
	dialer   dialer
	log      *logger.Logger
}

func NewEmailSender(cfg config.EmailConfig, renderer Renderer, scaleMax float64, log *logger.Logger) *EmailSender {
	d := gomail.NewDialer(cfg.SMTPServer, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
	d.Timeout = 10 * time.Second

	return &EmailSender{
		cfg:      cfg,
		renderer: renderer,
		scaleMax: scaleMax,
		dialer:   d,
		log:      log,
	}
}

func (s *EmailSender) Name() string {
	return "email"
}

// Send delivers an email with HTML body and plain text fallback. It is a no-op when SMTP
// settings are incomplete.
func (s *EmailSender) Send(msg *RenderedMessage) error {
	if !s.cfg.Enabled() {
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.FromEmail)
	m.SetHeader("To", s.cfg.ToEmail)
	m.SetHeader("Subject", msg.Subject)

	if msg.HTML != "" && msg.Text != "" {
		m.SetBody("text/plain", msg.Text)
		m.AddAlternative("text/html", msg.HTML)
	} else if msg.HTML != "" {
		m.SetBody("text/html", msg.HTML)
	} else {
		m.SetBody("text/plain", msg.Text)
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", s.cfg.ToEmail, err)
	}

	s.log.WithField("to", s.cfg.ToEmail).Infof("Email sent: %s", msg.Subject)
	return nil
}

// Deliver renders the report and emails it, returning the number of tickers included.
func (s *EmailSender) Deliver(_ context.Context, report *types.RunReport) (int, error) {
	if !s.cfg.Enabled() {
		s.log.Debug("Email disabled, skipping notification")
		return 0, nil
	}

	data := NewNotificationData(report, s.scaleMax, s.cfg.TopN)
	msg, err := s.renderer.Render(data)
	if err != nil {
		return 0, err
	}
	if err := s.Send(msg); err != nil {
		return 0, err
	}
	return len(data.Results), nil
}
