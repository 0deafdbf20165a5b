package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
	"smppgw/session"
	"smppgw/sqlog"
	"smppgw/zabbix"
)

// Config is the daemon configuration.
type Config struct {
	Log     LogConfig        `yaml:"log,omitempty"`
	Metrics string           `yaml:"metrics,omitempty"` // address of the /metrics listener
	MySQL   string           `yaml:"mysql,omitempty"`   // journal DSN
	Zabbix  *zabbix.Log      `yaml:"zabbix,omitempty"`
	SMSC    *SMSC            `yaml:"smsc,omitempty"` // local SMSC service
	ESME    map[string]*ESME `yaml:"esme,omitempty"` // outgoing links by name

	db      *sqlog.DB
	metrics *metricsServer
}

// ParseConfig parses the configuration and sets initial values.
func ParseConfig(data []byte) (*Config, error) {
	config := new(Config)
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, err
	}
	if config.Zabbix != nil && (config.Zabbix.Server == "" || config.Zabbix.Host == "") {
		return nil, fmt.Errorf("zabbix: server and host are required")
	}
	if smsc := config.SMSC; smsc != nil {
		if smsc.Addr == "" {
			return nil, fmt.Errorf("smsc: addr is required")
		}
		if smsc.SystemID == "" {
			smsc.SystemID = "smppgw"
		}
		smsc.Logger = logrus.StandardLogger().WithField("smsc", smsc.Addr)
	}
	for name, esme := range config.ESME {
		if esme.Disabled {
			delete(config.ESME, name) // blocked links are removed at once
			continue
		}
		if esme.Addr == "" || esme.SystemID == "" {
			return nil, fmt.Errorf("esme %s: addr and systemId are required", name)
		}
		esme.name = name
		esme.Logger = logrus.StandardLogger().WithField("esme", name)
	}
	return config, nil
}

// LoadConfig loads and parses the configuration from a file.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return ParseConfig(data)
}

// Start runs every configured service.
func (c *Config) Start() error {
	var journal session.Journal
	if c.MySQL != "" {
		db, err := sqlog.Connect(c.MySQL)
		if err != nil {
			return fmt.Errorf("mysql: %w", err)
		}
		c.db = db
		journal = db
	}
	if c.Metrics != "" {
		m, err := startMetrics(c.Metrics)
		if err != nil {
			c.Stop()
			return err
		}
		c.metrics = m
	}
	if c.SMSC != nil {
		c.SMSC.Session.Journal = journal
		if err := c.SMSC.Start(); err != nil {
			c.Stop()
			return err
		}
	}
	for _, esme := range c.ESME {
		esme.Session.Journal = journal
		if c.db != nil {
			esme.Messages = c.db
		}
		esme.Zabbix = c.Zabbix
		esme.Start()
	}
	return nil
}

// Stop stops the services started by Start.
func (c *Config) Stop() {
	for _, esme := range c.ESME {
		esme.Close()
	}
	if c.SMSC != nil {
		c.SMSC.Close()
	}
	if c.metrics != nil {
		c.metrics.Close()
		c.metrics = nil
	}
	if c.db != nil {
		c.db.Close()
		c.db = nil
	}
}
