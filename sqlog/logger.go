// Package sqlog stores the SMPP transaction journal and the message log in
// MySQL.
package sqlog

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	"smppgw/session"
)

const schema = `CREATE TABLE IF NOT EXISTS smpp_transactions (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	session CHAR(36) NOT NULL,
	system_id VARCHAR(16) NOT NULL,
	command VARCHAR(32) NOT NULL,
	sequence INT UNSIGNED NOT NULL,
	status INT UNSIGNED NOT NULL,
	error TEXT NOT NULL,
	started DATETIME(3) NOT NULL,
	duration_ms INT NOT NULL
)`

const messageSchema = `CREATE TABLE IF NOT EXISTS smpp_messages (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	link VARCHAR(64) NOT NULL,
	calling VARCHAR(21) NOT NULL,
	called VARCHAR(21) NOT NULL,
	inbound BOOL NOT NULL,
	text TEXT NOT NULL,
	message_id VARCHAR(65) NOT NULL,
	created DATETIME(3) NOT NULL
)`

// DB is a MySQL backed session.Journal.
type DB struct {
	db     *sql.DB
	insert *sql.Stmt
	Logger *logrus.Entry
}

// Connect opens the database at url and creates the tables when missing.
func Connect(url string) (*DB, error) {
	db, err := sql.Open("mysql", url) // "user@/smppgw?parseTime=true"
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	for _, q := range []string{schema, messageSchema} {
		if _, err = db.ExecContext(ctx, q); err != nil {
			db.Close()
			return nil, err
		}
	}
	insert, err := db.PrepareContext(ctx, `INSERT smpp_transactions SET session=?,system_id=?,command=?,sequence=?,status=?,error=?,started=?,duration_ms=?`)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &DB{db: db, insert: insert, Logger: logrus.WithField("module", "sqlog")}, nil
}

// Close closes the database.
func (db *DB) Close() error {
	db.insert.Close()
	return db.db.Close()
}

// Record implements session.Journal. Insert failures are logged.
func (db *DB) Record(r session.TransactionRecord) {
	_, err := db.insert.Exec(r.SessionID, r.SystemID, r.Command.String(), r.Sequence,
		uint32(r.Status), r.Err, r.Started.UTC(), r.Duration.Milliseconds())
	if err != nil {
		db.Logger.WithError(err).WithField("seq", r.Sequence).Error("journal insert")
	}
}

// Insert logs a message sent or received on link.
func (db *DB) Insert(link, calling, called, text string, inbound bool, messageID string) error {
	_, err := db.db.Exec(`INSERT smpp_messages SET link=?,calling=?,called=?,inbound=?,text=?,message_id=?,created=?`,
		link, calling, called, inbound, text, messageID, time.Now().UTC())
	return err
}

var _ session.Journal = (*DB)(nil)
