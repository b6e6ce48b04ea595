package mail

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	htmlTemplate "html/template"
	"path/filepath"
	textTemplate "text/template"
	"time"

	"github.com/tech-arch1tect/votegate/config"
	"github.com/tech-arch1tect/votegate/services/logging"
	"github.com/tech-arch1tect/votegate/services/otp"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

const otpTemplate = "otp_code"

//go:embed templates/*.html templates/*.txt
var embeddedTemplates embed.FS

var ErrNoRecipient = errors.New("notification has no contact address")

// Sender is satisfied by *mail.Client.
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

type Service struct {
	config        *config.MailConfig
	appName       string
	sender        Sender
	htmlTemplates *htmlTemplate.Template
	textTemplates *textTemplate.Template
	logger        *logging.Service
}

func NewService(cfg *config.MailConfig, appName string, logger *logging.Service) (*Service, error) {
	if logger != nil {
		logger.Info("initializing mail service",
			zap.String("host", cfg.Host),
			zap.Int("port", cfg.Port),
			zap.String("encryption", cfg.Encryption),
			zap.String("from_address", cfg.FromAddress))
	}

	client, err := mail.NewClient(cfg.Host, clientOptions(cfg)...)
	if err != nil {
		if logger != nil {
			logger.Error("failed to create mail client",
				zap.Error(err),
				zap.String("host", cfg.Host),
				zap.Int("port", cfg.Port))
		}
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	return NewServiceWithSender(cfg, appName, logger, client)
}

func NewServiceWithSender(cfg *config.MailConfig, appName string, logger *logging.Service, sender Sender) (*Service, error) {
	if cfg.FromAddress == "" {
		return nil, fmt.Errorf("MAIL_FROM_ADDRESS is required")
	}

	service := &Service{
		config:  cfg,
		appName: appName,
		sender:  sender,
		logger:  logger,
	}

	if err := service.loadTemplates(); err != nil {
		if logger != nil {
			logger.Error("failed to load mail templates", zap.Error(err))
		}
		return nil, fmt.Errorf("failed to load mail templates: %w", err)
	}

	return service, nil
}

func clientOptions(cfg *config.MailConfig) []mail.Option {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(cfg.Timeout))
	}

	switch cfg.Encryption {
	case "ssl":
		opts = append(opts, mail.WithSSL())
	case "none":
		opts = append(opts, mail.WithTLSPortPolicy(mail.NoTLS))
	default:
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	}

	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password))
	}

	return opts
}

func (s *Service) loadTemplates() error {
	var err error
	s.htmlTemplates, err = htmlTemplate.ParseFS(embeddedTemplates, "templates/*.html")
	if err != nil {
		return fmt.Errorf("failed to parse embedded HTML templates: %w", err)
	}
	s.textTemplates, err = textTemplate.ParseFS(embeddedTemplates, "templates/*.txt")
	if err != nil {
		return fmt.Errorf("failed to parse embedded text templates: %w", err)
	}

	if s.config.TemplatesDir == "" {
		return nil
	}

	if s.logger != nil {
		s.logger.Info("loading mail template overrides", zap.String("templates_dir", s.config.TemplatesDir))
	}

	htmlFiles, err := filepath.Glob(filepath.Join(s.config.TemplatesDir, "*.html"))
	if err != nil {
		return fmt.Errorf("invalid templates directory: %w", err)
	}
	if len(htmlFiles) > 0 {
		if s.htmlTemplates, err = s.htmlTemplates.ParseFiles(htmlFiles...); err != nil {
			return fmt.Errorf("failed to parse HTML templates: %w", err)
		}
	}

	textFiles, err := filepath.Glob(filepath.Join(s.config.TemplatesDir, "*.txt"))
	if err != nil {
		return fmt.Errorf("invalid templates directory: %w", err)
	}
	if len(textFiles) > 0 {
		if s.textTemplates, err = s.textTemplates.ParseFiles(textFiles...); err != nil {
			return fmt.Errorf("failed to parse text templates: %w", err)
		}
	}

	if s.logger != nil {
		s.logger.Info("mail templates loaded",
			zap.Int("html_overrides", len(htmlFiles)),
			zap.Int("text_overrides", len(textFiles)))
	}
	return nil
}

func (s *Service) NewMessage() (*mail.Msg, error) {
	message := mail.NewMsg()

	var err error
	if s.config.FromName != "" {
		err = message.FromFormat(s.config.FromName, s.config.FromAddress)
	} else {
		err = message.From(s.config.FromAddress)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to set FROM address: %w", err)
	}

	return message, nil
}

func (s *Service) Subject() string {
	return "Voting one-time code - " + s.appName
}

type codeData struct {
	AppName       string
	VoterName     string
	ElectionName  string
	Code          string
	ExpiryMinutes int
}

// Notify delivers an issued code to the voter.
func (s *Service) Notify(ctx context.Context, n otp.Notification) error {
	if n.To == "" {
		return ErrNoRecipient
	}

	message, err := s.NewMessage()
	if err != nil {
		return err
	}
	if err := message.To(n.To); err != nil {
		return fmt.Errorf("failed to set TO address: %w", err)
	}
	message.Subject(s.Subject())

	data := codeData{
		AppName:       s.appName,
		VoterName:     n.VoterName,
		ElectionName:  n.ElectionName,
		Code:          n.Code,
		ExpiryMinutes: n.ExpiryMinutes,
	}
	if err := s.render(otpTemplate, data, message); err != nil {
		return fmt.Errorf("failed to render template: %w", err)
	}

	return s.Send(ctx, message)
}

func (s *Service) render(name string, data any, message *mail.Msg) error {
	var htmlBuf, textBuf bytes.Buffer

	if err := s.htmlTemplates.ExecuteTemplate(&htmlBuf, name+".html", data); err != nil {
		return fmt.Errorf("failed to execute HTML template: %w", err)
	}
	if err := s.textTemplates.ExecuteTemplate(&textBuf, name+".txt", data); err != nil {
		return fmt.Errorf("failed to execute text template: %w", err)
	}

	message.SetBodyString(mail.TypeTextHTML, htmlBuf.String())
	message.AddAlternativeString(mail.TypeTextPlain, textBuf.String())
	return nil
}

func (s *Service) Send(ctx context.Context, message *mail.Msg) error {
	start := time.Now()
	err := s.sender.DialAndSendWithContext(ctx, message)
	duration := time.Since(start)

	if err != nil {
		if s.logger != nil {
			s.logger.Error("failed to send email",
				zap.Error(err),
				zap.Duration("attempt_duration", duration))
		}
		return err
	}

	if s.logger != nil {
		s.logger.Debug("email sent", zap.Duration("send_duration", duration))
	}
	return nil
}
