package tls

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

type TLSConfig struct {
	Enabled  bool   `envconfig:"TLS_ENABLED" default:"false"`
	CertFile string `envconfig:"TLS_CERT_FILE" default:"/etc/certs/tls.crt"`
	KeyFile  string `envconfig:"TLS_KEY_FILE" default:"/etc/certs/tls.key"`
	CAFile   string `envconfig:"TLS_CA_FILE" default:"/etc/certs/ca.crt"`
}

// LoadTLSConfig builds an mTLS server config: service certificate plus
// required client certificates signed by the internal CA.
func LoadTLSConfig(cfg *TLSConfig, logger *zap.Logger) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load key pair: %w", err)
	}

	caBytes, err := os.ReadFile(cfg.CAFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caBytes) {
		return nil, fmt.Errorf("failed to parse CA certificate")
	}

	logger.Info("TLS configuration loaded",
		zap.String("cert_file", cfg.CertFile),
		zap.String("ca_file", cfg.CAFile))

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		ClientCAs:    pool,
		ClientAuth:   tls.RequireAndVerifyClientCert,
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// WatchCertificates polls the certificate file and reloads the config
// when it changes, for cert-manager style rotation.
func WatchCertificates(cfg *TLSConfig, apply func(*tls.Config) error, logger *zap.Logger) {
	var lastMod time.Time
	if info, err := os.Stat(cfg.CertFile); err == nil {
		lastMod = info.ModTime()
	}

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		info, err := os.Stat(cfg.CertFile)
		if err != nil {
			logger.Warn("Failed to stat certificate file", zap.Error(err))
			continue
		}
		if !info.ModTime().After(lastMod) {
			continue
		}
		lastMod = info.ModTime()

		newCfg, err := LoadTLSConfig(cfg, logger)
		if err != nil {
			logger.Error("Failed to reload TLS config", zap.Error(err))
			continue
		}
		if err := apply(newCfg); err != nil {
			logger.Error("Failed to apply TLS config", zap.Error(err))
		}
	}
}
