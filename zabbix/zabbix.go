// Package zabbix reports SMPP link state to a Zabbix server.
package zabbix

import (
	"os/exec"

	"github.com/sirupsen/logrus"
	"smppgw/session"
)

// Log sends values with zabbix_sender.
type Log struct {
	Server string
	Host   string // monitored host name
}

func (z Log) Send(key, value string) error {
	return exec.Command("zabbix_sender",
		"-z", z.Server,
		"-s", z.Host,
		"-k", key,
		"-o", value).Run()
}

// Link is a session.SessionStateListener that reports 1 when the session
// binds and 0 when it closes.
type Link struct {
	Key    string
	Send   func(key, value string) error
	Logger *logrus.Entry
}

// NewLink reports state changes under key through z.
func NewLink(z Log, key string) *Link {
	return &Link{Key: key, Send: z.Send, Logger: logrus.WithField("module", "zabbix")}
}

func (l *Link) OnStateChange(s *session.Session, from, to session.State) {
	var value string
	switch {
	case to.Bound():
		value = "1"
	case to == session.Unbound, to == session.Closed && from != session.Unbound:
		value = "0"
	default:
		return
	}
	// zabbix_sender may block; the listener runs on the session reader
	go func() {
		if err := l.Send(l.Key, value); err != nil && l.Logger != nil {
			l.Logger.WithError(err).WithField("key", l.Key).Warn("zabbix send")
		}
	}()
}

var _ session.SessionStateListener = (*Link)(nil)
