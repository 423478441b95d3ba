package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// OAuth2Credentials se inyectan desde la configuración; el access token se
// obtiene en cada envío.
type OAuth2Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	TokenURL     string
}

// SMTPSender envia correos via SMTP.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
	fromName string
	useTLS   bool
	oauth    *OAuth2Credentials
	now      func() time.Time
	dial     func(ctx context.Context, addr string) (net.Conn, error)
}

// SMTPOption ajusta un SMTPSender.
type SMTPOption func(*SMTPSender)

// WithXOAuth2 autentica con XOAUTH2 en lugar de PLAIN.
func WithXOAuth2(creds OAuth2Credentials) SMTPOption {
	return func(s *SMTPSender) {
		s.oauth = &creds
	}
}

func NewSMTPSender(host string, port int, username, password, from, fromName string, useTLS bool, opts ...SMTPOption) (*SMTPSender, error) {
	if strings.TrimSpace(host) == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if strings.TrimSpace(from) == "" {
		return nil, fmt.Errorf("smtp from is required")
	}
	if port == 0 {
		port = 587
	}
	s := &SMTPSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		fromName: fromName,
		useTLS:   useTLS,
		now:      time.Now,
	}
	s.dial = s.defaultDial
	for _, opt := range opts {
		opt(s)
	}
	if s.oauth != nil && s.username == "" {
		return nil, fmt.Errorf("smtp user is required for xoauth2")
	}
	return s, nil
}

func (s *SMTPSender) SendVerification(ctx context.Context, toEmail, name, code string, expiresAt time.Time) error {
	return s.send(ctx, toEmail, KindVerification, name, code, expiresAt.Sub(s.now()))
}

func (s *SMTPSender) SendWelcome(ctx context.Context, toEmail, name string) error {
	return s.send(ctx, toEmail, KindWelcome, name, "", 0)
}

func (s *SMTPSender) SendPasswordReset(ctx context.Context, toEmail, name, code string, expiresAt time.Time) error {
	return s.send(ctx, toEmail, KindPasswordReset, name, code, expiresAt.Sub(s.now()))
}

func (s *SMTPSender) send(ctx context.Context, toEmail string, kind Kind, name, code string, validFor time.Duration) error {
	if strings.TrimSpace(toEmail) == "" {
		return fmt.Errorf("to email is required")
	}
	subject, body, err := render(kind, name, code, validFor)
	if err != nil {
		return err
	}
	msg := buildMessage(s.from, s.fromName, toEmail, subject, body)

	auth, err := s.auth(ctx)
	if err != nil {
		return err
	}
	return s.deliver(ctx, auth, toEmail, []byte(msg))
}

// auth construye el mecanismo de autenticación para un único envío.
func (s *SMTPSender) auth(ctx context.Context) (smtp.Auth, error) {
	if s.oauth != nil {
		token, err := s.accessToken(ctx)
		if err != nil {
			return nil, err
		}
		return &xoauth2Auth{username: s.username, accessToken: token}, nil
	}
	if s.username == "" {
		return nil, nil
	}
	return smtp.PlainAuth("", s.username, s.password, s.host), nil
}

func (s *SMTPSender) accessToken(ctx context.Context) (string, error) {
	cfg := oauth2.Config{
		ClientID:     s.oauth.ClientID,
		ClientSecret: s.oauth.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: s.oauth.TokenURL},
	}
	token, err := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: s.oauth.RefreshToken}).Token()
	if err != nil {
		return "", fmt.Errorf("oauth2 access token: %w", err)
	}
	if token.AccessToken == "" {
		return "", errors.New("oauth2 access token: empty token")
	}
	return token.AccessToken, nil
}

func (s *SMTPSender) defaultDial(ctx context.Context, addr string) (net.Conn, error) {
	if s.useTLS {
		d := tls.Dialer{Config: &tls.Config{ServerName: s.host}}
		return d.DialContext(ctx, "tcp", addr)
	}
	var d net.Dialer
	return d.DialContext(ctx, "tcp", addr)
}

func (s *SMTPSender) deliver(ctx context.Context, auth smtp.Auth, toEmail string, msg []byte) error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	conn, err := s.dial(ctx, addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		return err
	}
	defer client.Quit()

	if !s.useTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: s.host}); err != nil {
				return err
			}
		}
	}
	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return err
		}
	}
	if err := client.Mail(s.from); err != nil {
		return err
	}
	if err := client.Rcpt(toEmail); err != nil {
		return err
	}
	writer, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := writer.Write(msg); err != nil {
		_ = writer.Close()
		return err
	}
	return writer.Close()
}

type xoauth2Auth struct {
	username    string
	accessToken string
}

func (a *xoauth2Auth) Start(_ *smtp.ServerInfo) (string, []byte, error) {
	resp := "user=" + a.username + "\x01auth=Bearer " + a.accessToken + "\x01\x01"
	return "XOAUTH2", []byte(resp), nil
}

func (a *xoauth2Auth) Next(_ []byte, more bool) ([]byte, error) {
	if more {
		// el servidor envía el detalle del error; una respuesta vacía cierra el intercambio
		return []byte{}, nil
	}
	return nil, nil
}

func buildMessage(from, fromName, to, subject, body string) string {
	fromHeader := from
	if strings.TrimSpace(fromName) != "" {
		fromHeader = fmt.Sprintf("%s <%s>", fromName, from)
	}

	headers := []string{
		fmt.Sprintf("From: %s", fromHeader),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=\"UTF-8\"",
	}

	return strings.Join(headers, "\r\n") + "\r\n\r\n" + body
}
