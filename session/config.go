package session

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Config holds the timers and limits of a session. Zero durations take the
// defaults below; a negative EnquireLinkInterval disables keep-alive.
type Config struct {
	ReadTimeout         time.Duration `yaml:"readTimeout,omitempty"`         // idle read tick
	FrameTimeout        time.Duration `yaml:"frameTimeout,omitempty"`        // bound on reading the rest of a started frame
	WriteTimeout        time.Duration `yaml:"writeTimeout,omitempty"`        // bound on writing one frame
	TransactionTimeout  time.Duration `yaml:"transactionTimeout,omitempty"`  // wait for a response
	EnquireLinkInterval time.Duration `yaml:"enquireLinkInterval,omitempty"` // idle time before enquire_link
	EnquireLinkTimeout  time.Duration `yaml:"enquireLinkTimeout,omitempty"`  // wait for enquire_link_resp
	InitiationTimer     time.Duration `yaml:"initiationTimer,omitempty"`     // server side: time allowed to bind
	SubmitRate          float64       `yaml:"submitRate,omitempty"`          // submits per second, 0 unlimited
	SubmitBurst         int           `yaml:"submitBurst,omitempty"`

	Logger  *logrus.Entry `yaml:"-"`
	Journal Journal       `yaml:"-"`
}

// Default timer values.
const (
	DefaultReadTimeout         = 2 * time.Second
	DefaultFrameTimeout        = 10 * time.Second
	DefaultWriteTimeout        = 5 * time.Second
	DefaultTransactionTimeout  = 10 * time.Second
	DefaultEnquireLinkInterval = 30 * time.Second
	DefaultEnquireLinkTimeout  = 5 * time.Second
	DefaultInitiationTimer     = 5 * time.Second
)

// Normalize returns a copy with defaults filled in.
func (c Config) Normalize() Config {
	set := func(d *time.Duration, def time.Duration) {
		if *d == 0 {
			*d = def
		}
	}
	set(&c.ReadTimeout, DefaultReadTimeout)
	set(&c.FrameTimeout, DefaultFrameTimeout)
	set(&c.WriteTimeout, DefaultWriteTimeout)
	set(&c.TransactionTimeout, DefaultTransactionTimeout)
	set(&c.EnquireLinkInterval, DefaultEnquireLinkInterval)
	set(&c.EnquireLinkTimeout, DefaultEnquireLinkTimeout)
	set(&c.InitiationTimer, DefaultInitiationTimer)
	if c.SubmitRate > 0 && c.SubmitBurst < 1 {
		c.SubmitBurst = 1
	}
	if c.Logger == nil {
		c.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return c
}
