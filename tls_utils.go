// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/google/uuid"
)

// randomClientID generates a client ID for use when the caller does not
// provide one explicitly. Collisions are astronomically unlikely, which is
// the most a client ID generator can promise without server coordination.
func randomClientID() string {
	return uuid.New().String()
}

// loadX509KeyPairWithPassword loads an X.509 key pair where the private key
// PEM block is encrypted with a password (as produced by, e.g., openssl's
// legacy -des3/-aes256 PEM encryption). This only covers the classic
// RFC 1421 "Proc-Type: 4,ENCRYPTED" PEM format; PKCS#8-encrypted keys are not
// supported since Go's standard library has no decoder for them.
func loadX509KeyPairWithPassword(
	certFile, keyFile, password string,
) (tls.Certificate, error) {
	certPEM, err := os.ReadFile(certFile)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("reading cert file: %w", err)
	}

	keyPEM, err := os.ReadFile(keyFile)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("reading key file: %w", err)
	}

	block, _ := pem.Decode(keyPEM)
	if block == nil {
		return tls.Certificate{}, fmt.Errorf("no PEM block found in key file %s", keyFile)
	}

	//nolint:staticcheck // legacy encrypted PEM has no replacement in the
	// standard library; x509.IsEncryptedPEMBlock/DecryptPEMBlock remain the
	// only way to decode this format without a hand-rolled PKCS#1 parser.
	if !x509.IsEncryptedPEMBlock(block) { //nolint:staticcheck
		return tls.X509KeyPair(certPEM, keyPEM)
	}

	decrypted, err := x509.DecryptPEMBlock(block, []byte(password)) //nolint:staticcheck
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("decrypting private key: %w", err)
	}

	decryptedPEM := pem.EncodeToMemory(&pem.Block{
		Type:  block.Type,
		Bytes: decrypted,
	})

	return tls.X509KeyPair(certPEM, decryptedPEM)
}

// loadCACertPool reads a PEM-encoded CA certificate bundle from caFile and
// returns a pool suitable for tls.Config.RootCAs.
func loadCACertPool(caFile string) (*x509.CertPool, error) {
	caPEM, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("reading CA file: %w", err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, fmt.Errorf("no certificates found in %s", caFile)
	}

	return pool, nil
}
