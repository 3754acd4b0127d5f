// Package notify sends the security-notification email that fires when a new
// platform connection is established. Delivery is best-effort and asynchronous:
// a failed send is logged and dropped, never surfaced to the connect flow.
package notify

import (
	"crypto/tls"
	"fmt"
	"time"

	mail "github.com/go-mail/mail"

	"github.com/postloop/connect/internal/domain"
	"github.com/postloop/connect/internal/observability/logger"
)

// SMTPConfig carries the dialer settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// To receives every notification. Empty disables the notifier.
	To string
}

// Notifier emails a short notice for each new connection.
type Notifier struct {
	cfg SMTPConfig
}

// New returns a Notifier, or nil when SMTP host or recipient are not
// configured. Callers treat a nil *Notifier as disabled.
func New(cfg SMTPConfig) *Notifier {
	if cfg.Host == "" || cfg.To == "" {
		return nil
	}
	return &Notifier{cfg: cfg}
}

// ConnectionEstablished fires the notification in the background.
func (n *Notifier) ConnectionEstablished(userID string, c domain.Connection) {
	go n.send(userID, c)
}

func (n *Notifier) send(userID string, c domain.Connection) {
	log := logger.L().With(
		logger.Component("notify"),
		logger.UserID(userID),
		logger.Platform(string(c.Platform)),
	)

	subject := fmt.Sprintf("New %s connection", c.Platform)
	body := fmt.Sprintf(
		"User %s connected a %s account (%s) at %s.\r\n\r\n"+
			"If this connection was not expected, review the account's access.\r\n",
		userID, c.Platform, c.PlatformUsername, time.Now().UTC().Format(time.RFC3339),
	)

	m := mail.NewMessage()
	m.SetHeader("From", n.cfg.From)
	m.SetHeader("To", n.cfg.To)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := mail.NewDialer(n.cfg.Host, n.cfg.Port, n.cfg.Username, n.cfg.Password)
	d.TLSConfig = &tls.Config{ServerName: n.cfg.Host}

	if err := d.DialAndSend(m); err != nil {
		log.Warn("connection notification failed", logger.Err(err))
		return
	}
	log.Debug("connection notification sent")
}
