package main

import (
	"testing"
	"time"

	"github.com/kr/pretty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigYAML = `
log:
  level: debug
metrics: 127.0.0.1:0
zabbix:
  server: zabbix.local
  host: smppgw
smsc:
  addr: 127.0.0.1:2775
  accounts:
    client: secret
  receiptDelay: 2s
  session:
    enquireLinkInterval: 45s
    initiationTimer: 3s
esme:
  east:
    addr: smsc.example.com:2775
    systemId: east
    password: pw
    reconnectDelay: 10s
    maxParts: 4
    zabbixKey: east.sms.link
    session:
      transactionTimeout: 20s
      submitRate: 5
  west:
    addr: smsc2.example.com:2775
    systemId: west
    disabled: true
`

func TestParseConfig(t *testing.T) {
	config, err := ParseConfig([]byte(testConfigYAML))
	require.NoError(t, err, pretty.Sprint(config))
	assert.Equal(t, "debug", config.Log.Level)
	require.NotNil(t, config.SMSC)
	assert.Equal(t, "smppgw", config.SMSC.SystemID)
	assert.Equal(t, map[string]string{"client": "secret"}, config.SMSC.Accounts)
	assert.Equal(t, 2*time.Second, config.SMSC.ReceiptDelay)
	assert.Equal(t, 45*time.Second, config.SMSC.Session.EnquireLinkInterval)
	assert.Equal(t, 3*time.Second, config.SMSC.Session.InitiationTimer)

	require.Len(t, config.ESME, 1, "disabled links are dropped")
	east := config.ESME["east"]
	require.NotNil(t, east)
	assert.Equal(t, "east", east.name)
	assert.Equal(t, 10*time.Second, east.ReconnectDelay)
	assert.Equal(t, 4, east.MaxParts)
	assert.Equal(t, 20*time.Second, east.Session.TransactionTimeout)
	assert.Equal(t, 5.0, east.Session.SubmitRate)
	assert.NotNil(t, east.Logger)
}

func TestParseConfigErrors(t *testing.T) {
	for _, data := range []string{
		"smsc: {accounts: {a: b}}",
		"esme: {x: {addr: host:1}}",
		"zabbix: {server: z}",
		"smsc: [",
	} {
		_, err := ParseConfig([]byte(data))
		assert.Error(t, err, data)
	}
}
