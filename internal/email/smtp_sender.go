package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net/smtp"
	"strings"
	"time"
)

const profileLinksSubject = "Your QR profile is ready"

// deliverFunc entrega un mensaje ya armado; coincide con smtp.SendMail.
type deliverFunc func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender envia el correo de bienvenida via SMTP. Con useTLS abre TLS
// implicito (puerto 465); si no, delega en smtp.SendMail (STARTTLS si el
// servidor lo ofrece).
type SMTPSender struct {
	addr     string
	host     string
	auth     smtp.Auth
	from     string
	fromName string
	deliver  deliverFunc
	now      func() time.Time
}

func NewSMTPSender(host string, port int, username, password, from, fromName string, useTLS bool) (*SMTPSender, error) {
	host = strings.TrimSpace(host)
	from = strings.TrimSpace(from)
	if host == "" {
		return nil, errors.New("smtp host is required")
	}
	if from == "" {
		return nil, errors.New("smtp from is required")
	}
	if port == 0 {
		port = 587
	}

	s := &SMTPSender{
		addr:     fmt.Sprintf("%s:%d", host, port),
		host:     host,
		from:     from,
		fromName: strings.TrimSpace(fromName),
		deliver:  smtp.SendMail,
		now:      time.Now,
	}
	if username != "" {
		s.auth = smtp.PlainAuth("", username, password, host)
	}
	if useTLS {
		s.deliver = s.deliverImplicitTLS
	}
	return s, nil
}

func (s *SMTPSender) SendProfileLinks(_ context.Context, toEmail string, links ProfileLinks) error {
	return s.send(toEmail, profileLinksSubject, profileLinksBody(links))
}

func (s *SMTPSender) send(to, subject, body string) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return errors.New("to email is required")
	}
	if strings.ContainsAny(to, "\r\n") {
		return fmt.Errorf("invalid recipient %q", to)
	}
	msg := s.compose(to, subject, body)
	if err := s.deliver(s.addr, s.auth, s.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp deliver to %s: %w", to, err)
	}
	return nil
}

func (s *SMTPSender) compose(to, subject, body string) string {
	from := s.from
	if s.fromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", s.fromName), s.from)
	}
	var b strings.Builder
	for _, h := range [][2]string{
		{"From", from},
		{"To", to},
		{"Subject", mime.QEncoding.Encode("utf-8", subject)},
		{"Date", s.now().Format(time.RFC1123Z)},
		{"MIME-Version", "1.0"},
		{"Content-Type", `text/plain; charset="UTF-8"`},
	} {
		b.WriteString(h[0] + ": " + h[1] + "\r\n")
	}
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return b.String()
}

func (s *SMTPSender) deliverImplicitTLS(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: s.host})
	if err != nil {
		return err
	}
	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		conn.Close()
		return err
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return err
		}
	}
	if err := client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func profileLinksBody(links ProfileLinks) string {
	return fmt.Sprintf(
		"Hi %s,\n\nYour profile has been created.\n\nEdit it here: %s\nIt is reachable by QR at: %s\n\nThe profile stays hidden until you publish it.\n",
		links.Username,
		links.EditURL,
		links.ViewURL,
	)
}
