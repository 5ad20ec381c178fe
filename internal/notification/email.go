// Package notification delivers tariff events by email.
package notification

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net"
	"net/http"
	"net/smtp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/bher20/slotariff/internal/events"
)

var resendURL = "https://api.resend.com/emails"

// Config selects the mail provider and the recipients.
type Config struct {
	// Provider is smtp, gmail, sendgrid or resend. Empty disables email.
	Provider string
	// SMTP settings. Encryption is ssl (implicit TLS), tls (STARTTLS) or none.
	Host       string
	Port       int
	Encryption string
	Username   string
	Password   string
	// APIKey is used by sendgrid and resend.
	APIKey      string
	FromAddress string
	FromName    string
	To          []string
	// Types limits which events are mailed. Empty means prices_updated only.
	Types []events.Type
}

// Mailer is an events.Publisher that sends each wanted event as an email.
type Mailer struct {
	cfg    Config
	client *http.Client
	log    *zap.Logger
}

func New(cfg Config, log *zap.Logger) *Mailer {
	if log == nil {
		log = zap.NewNop()
	}
	if len(cfg.Types) == 0 {
		cfg.Types = []events.Type{events.TypePricesUpdated}
	}
	return &Mailer{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
		log:    log.Named("email"),
	}
}

func (m *Mailer) Enabled() bool {
	return m.cfg.Provider != "" && len(m.cfg.To) > 0
}

func (m *Mailer) wants(t events.Type) bool {
	for _, w := range m.cfg.Types {
		if w == t {
			return true
		}
	}
	return false
}

// Publish mails ev to every recipient. Failures are joined.
func (m *Mailer) Publish(ctx context.Context, ev events.Event) error {
	if !m.Enabled() || !m.wants(ev.Type) {
		return nil
	}
	subject := Subject(ev)
	body := Body(ev)
	var err error
	for _, to := range m.cfg.To {
		if e := m.Send(ctx, to, subject, body); e != nil {
			err = multierr.Append(err, fmt.Errorf("mail %s: %w", to, e))
		}
	}
	if err == nil {
		m.log.Debug("sent event", zap.String("type", string(ev.Type)), zap.Int("recipients", len(m.cfg.To)))
	}
	return err
}

// Send delivers one HTML message through the configured provider.
func (m *Mailer) Send(ctx context.Context, to, subject, body string) error {
	switch m.cfg.Provider {
	case "smtp", "gmail":
		return m.sendSMTP(ctx, to, subject, body)
	case "sendgrid":
		return m.sendSendgrid(ctx, to, subject, body)
	case "resend":
		return m.sendResend(ctx, to, subject, body)
	case "":
		return errors.New("email not configured")
	default:
		return fmt.Errorf("unknown provider: %s", m.cfg.Provider)
	}
}

var subjects = map[events.Type]string{
	events.TypeRefresh:        "Tariff refreshed",
	events.TypeCurrentBlock:   "Current tariff block",
	events.TypeCostCalculated: "Electricity cost calculated",
	events.TypePricesUpdated:  "Electricity prices updated",
}

func Subject(ev events.Event) string {
	if s, ok := subjects[ev.Type]; ok {
		return "slotariff: " + s
	}
	return "slotariff: " + string(ev.Type)
}

// Body renders the event data as an HTML table with sorted keys.
func Body(ev events.Event) string {
	keys := make([]string, 0, len(ev.Data))
	for k := range ev.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "<p>%s at %s</p>\n<table>\n", html.EscapeString(string(ev.Type)), ev.Timestamp.Format(time.RFC3339))
	for _, k := range keys {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td></tr>\n",
			html.EscapeString(k), html.EscapeString(fmt.Sprint(ev.Data[k])))
	}
	b.WriteString("</table>\n")
	return b.String()
}

func (m *Mailer) message(to, subject, body string) []byte {
	return []byte(fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"MIME-Version: 1.0\r\n"+
		"Content-Type: text/html; charset=\"UTF-8\"\r\n"+
		"\r\n"+
		"%s\r\n", m.cfg.FromAddress, to, subject, body))
}

// smtpTimeout bounds a whole SMTP exchange when ctx has no earlier deadline.
const smtpTimeout = 30 * time.Second

func (m *Mailer) dialSMTP(ctx context.Context, addr string) (net.Conn, error) {
	d := &net.Dialer{Timeout: smtpTimeout}
	if m.cfg.Encryption == "ssl" {
		td := &tls.Dialer{NetDialer: d, Config: &tls.Config{ServerName: m.cfg.Host}}
		return td.DialContext(ctx, "tcp", addr)
	}
	return d.DialContext(ctx, "tcp", addr)
}

func (m *Mailer) sendSMTP(ctx context.Context, to, subject, body string) error {
	cfg := m.cfg
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	msg := m.message(to, subject, body)

	conn, err := m.dialSMTP(ctx, addr)
	if err != nil {
		return err
	}
	deadline := time.Now().Add(smtpTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return err
	}

	c, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if cfg.Encryption != "ssl" {
		ok, _ := c.Extension("STARTTLS")
		switch {
		case ok:
			if err := c.StartTLS(&tls.Config{ServerName: cfg.Host}); err != nil {
				return err
			}
		case cfg.Encryption == "tls":
			return errors.New("smtp server does not support STARTTLS")
		}
	}

	if cfg.Username != "" && cfg.Password != "" {
		if err := c.Auth(smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)); err != nil {
			return err
		}
	}
	if err := c.Mail(cfg.FromAddress); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func (m *Mailer) sendSendgrid(ctx context.Context, to, subject, body string) error {
	from := mail.NewEmail(m.cfg.FromName, m.cfg.FromAddress)
	message := mail.NewSingleEmail(from, subject, mail.NewEmail("", to), body, body)
	resp, err := sendgrid.NewSendClient(m.cfg.APIKey).SendWithContext(ctx, message)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: %d %s", resp.StatusCode, resp.Body)
	}
	return nil
}

func (m *Mailer) sendResend(ctx context.Context, to, subject, body string) error {
	payload, err := json.Marshal(map[string]string{
		"from":    fmt.Sprintf("%s <%s>", m.cfg.FromName, m.cfg.FromAddress),
		"to":      to,
		"subject": subject,
		"html":    body,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, resendURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("resend error: %d %s", resp.StatusCode, string(b))
	}
	return nil
}
