// Package mail builds account emails and hands them to a Sender.
package mail

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

type Message struct {
	From    string
	To      string
	Subject string
	Text    string
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.log.Info("mail",
		zap.String("from", msg.From),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("text", msg.Text),
	)
	return nil
}

// Composer fills in sender address and links for account emails.
type Composer struct {
	From      string
	PublicURL string
	ClientURL string
}

func (c Composer) Confirmation(to, token string) Message {
	link := fmt.Sprintf("%s/account/confirm/%s/%s",
		strings.TrimRight(c.PublicURL, "/"), url.PathEscape(token), url.PathEscape(to))
	return Message{
		From:    c.From,
		To:      to,
		Subject: "Maps Saver Email confirmation.",
		Text:    "Please confirm your email address on link: " + link,
	}
}

func (c Composer) ResetPassword(to, token string) Message {
	link := fmt.Sprintf("%s/new-password/%s", strings.TrimRight(c.ClientURL, "/"), url.PathEscape(token))
	return Message{
		From:    c.From,
		To:      to,
		Subject: "Maps Saver Reset Password Request.",
		Text:    "Link for changing your account password: " + link,
	}
}
