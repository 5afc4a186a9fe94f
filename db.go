package main

import (
	"crypto/tls"
	"crypto/x509"
	"database/sql"
	"fmt"
	"os"
	"strings"

	mysql "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
)

// openDB connects to the backup ledger database and makes sure its table
// exists.
func openDB(dsn, caPath string, log *logrus.Logger) (*sql.DB, error) {
	// DSNs with tls=tidb need a TLS config registered under that name.
	if strings.Contains(dsn, "tls=tidb") {
		registerTiDBTLS(caPath, log)
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := ensureTable(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure table: %w", err)
	}
	return db, nil
}

func registerTiDBTLS(caPath string, log *logrus.Logger) {
	if caPath == "" {
		caPath = "/etc/ssl/certs/ca-certificates.crt"
	}
	pool := x509.NewCertPool()
	b, err := os.ReadFile(caPath)
	if err != nil {
		log.WithError(err).Warnf("could not read CA file %s, falling back to InsecureSkipVerify", caPath)
		_ = mysql.RegisterTLSConfig("tidb", &tls.Config{InsecureSkipVerify: true})
		return
	}
	if !pool.AppendCertsFromPEM(b) {
		log.Warnf("could not parse CA file %s, falling back to InsecureSkipVerify", caPath)
		_ = mysql.RegisterTLSConfig("tidb", &tls.Config{InsecureSkipVerify: true})
		return
	}
	_ = mysql.RegisterTLSConfig("tidb", &tls.Config{RootCAs: pool})
}

// ensureTable creates the backups table if it doesn't exist.
func ensureTable(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS backups (
        id BIGINT AUTO_INCREMENT PRIMARY KEY,
        object_key VARCHAR(255) NOT NULL,
        url TEXT,
        size_bytes BIGINT DEFAULT 0,
        created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
        INDEX idx_backups_created (created_at)
    )`); err != nil {
		return err
	}
	return nil
}
