// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x509certs

import (
	"crypto"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"golang.org/x/crypto/ssh"
)

var (
	// ErrNoPEMKeyBlock indicates that no PEM block was found in private key data.
	ErrNoPEMKeyBlock = errors.New("x509certs: no PEM block found in private key data")

	// ErrUnsupportedKeyBlock indicates an unrecognized private key PEM block type.
	ErrUnsupportedKeyBlock = errors.New("x509certs: unsupported private key block type")
)

// DecodePrivateKey parses a PEM-encoded private key. PKCS#1, PKCS#8, SEC 1
// (EC), and OpenSSH encodings are recognized. "PRIVATE KEY" blocks try
// PKCS#8 first and fall back to PKCS#1 and EC parsers for key material
// mislabeled by conversion tools.
func DecodePrivateKey(data []byte) (crypto.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrNoPEMKeyBlock
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		return x509.ParseECPrivateKey(block.Bytes)
	case "PRIVATE KEY":
		if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
			return key, nil
		}
		if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
			return key, nil
		}
		if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
			return key, nil
		}
		return nil, fmt.Errorf("x509certs: parsing PRIVATE KEY block with any known format")
	case "OPENSSH PRIVATE KEY":
		// OpenSSH uses a proprietary encoding; delegate to x/crypto/ssh.
		key, err := ssh.ParseRawPrivateKey(data)
		if err != nil {
			return nil, fmt.Errorf("x509certs: parsing OpenSSH private key: %w", err)
		}
		return key, nil
	default:
		return nil, ErrUnsupportedKeyBlock
	}
}

// KeyMatchesCertificate reports whether the private key's RSA public modulus
// equals the certificate's embedded public-key modulus. The result is
// tri-state: nil when either side is not RSA, since the modulus comparison
// is only defined for RSA material.
func KeyMatchesCertificate(key crypto.PrivateKey, cert *x509.Certificate) *bool {
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil
	}
	certKey, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil
	}

	match := rsaKey.N.Cmp(certKey.N) == 0
	return &match
}
