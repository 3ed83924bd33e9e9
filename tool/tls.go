package tool

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"time"

	"github.com/moyoez/localshare-go/types"
)

// GetOrCreateTLSCertificate loads the client listener certificate from the
// boot config, or generates a self-signed one held in memory for this run.
func GetOrCreateTLSCertificate(cfg *types.AppConfig) (tls.Certificate, error) {
	if cfg.CertPEM != "" && cfg.KeyPEM != "" {
		if err := checkCertPEM(cfg.CertPEM); err == nil {
			cert, err := tls.X509KeyPair([]byte(cfg.CertPEM), []byte(cfg.KeyPEM))
			if err == nil {
				DefaultLogger.Infof("Loaded existing TLS certificate from config")
				return cert, nil
			}
			DefaultLogger.Warnf("Certificate in config does not match its key: %v, regenerating...", err)
		} else {
			// Certificate expired or invalid, will regenerate
			DefaultLogger.Warnf("Certificate in config is invalid or expired: %v, regenerating...", err)
		}
	}

	certDER, keyDER, err := generateTLSCert()
	if err != nil {
		return tls.Certificate{}, err
	}
	cfg.CertPEM = string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER}))
	cfg.KeyPEM = string(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}))

	cert, err := tls.X509KeyPair([]byte(cfg.CertPEM), []byte(cfg.KeyPEM))
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to load generated TLS certificate: %w", err)
	}
	DefaultLogger.Infof("Generated self-signed TLS certificate for this run")
	return cert, nil
}

// checkCertPEM fails when the certificate cannot be parsed or has expired.
func checkCertPEM(certPEMStr string) error {
	certBlock, _ := pem.Decode([]byte(certPEMStr))
	if certBlock == nil {
		return fmt.Errorf("failed to decode certificate PEM")
	}
	cert, err := x509.ParseCertificate(certBlock.Bytes)
	if err != nil {
		return fmt.Errorf("failed to parse certificate: %w", err)
	}
	if time.Now().After(cert.NotAfter) {
		return fmt.Errorf("certificate has expired")
	}
	return nil
}

// generateTLSCert generates a new self-signed TLS certificate and private key.
func generateTLSCert() (certDER []byte, keyDER []byte, err error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate ECDSA private key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	cert := x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   "localshare-localCert",
			Organization: []string{"localshare-localCert"},
		},
		NotBefore:   time.Now().Add(-time.Minute),
		NotAfter:    time.Now().Add(time.Hour * 24 * 365), // 1 year validity
		KeyUsage:    x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}

	certDER, err = x509.CreateCertificate(rand.Reader, &cert, &cert, &privateKey.PublicKey, privateKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create certificate: %w", err)
	}

	keyDER, err = x509.MarshalECPrivateKey(privateKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal ECDSA private key: %w", err)
	}
	return certDER, keyDER, nil
}
