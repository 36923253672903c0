// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x509chain

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
)

// row is one renderable chain position: the leaf, then each link.
type row struct {
	cert *x509.Certificate
	link *Link // nil for the leaf
}

// rows flattens the chain into renderable positions. Links whose download
// failed carry no certificate and render as placeholders.
func (ch *Chain) rows() []row {
	ch.mu.RLock()
	defer ch.mu.RUnlock()

	out := make([]row, 0, len(ch.Links)+1)
	out = append(out, row{cert: ch.Leaf.Certificate()})
	for _, link := range ch.Links {
		r := row{link: link}
		if link.Record != nil {
			r.cert = link.Record.Certificate()
		}
		out = append(out, r)
	}
	return out
}

// RenderASCIITree renders the certificate chain as an ASCII tree diagram.
//
// It displays the hierarchy from leaf to root with visual connectors, a
// broken-link marker for links whose signature did not verify, and a
// provenance tag for each link.
//
// Thread Safety: Safe for concurrent use.
func (ch *Chain) RenderASCIITree() string {
	rows := ch.rows()

	var result strings.Builder
	for i, r := range rows {
		connector := "├── "
		if i == len(rows)-1 {
			connector = "└── "
		}

		statusIcon := "✓"
		if r.link != nil && (!r.link.SignsChild || r.link.Status == StatusFailed) {
			statusIcon = "✗"
		}

		name := "(download failed)"
		if r.cert != nil {
			name = r.cert.Subject.CommonName
		}

		certInfo := fmt.Sprintf("[%s] %s (%s)", statusIcon, name, ch.roleAt(i, len(rows)))
		if r.link != nil {
			certInfo += fmt.Sprintf(" <%s>", r.link.Source)
			if r.link.LooseMatch {
				certInfo += " [DN fallback]"
			}
		}

		result.WriteString(connector + certInfo + "\n")
	}

	return result.String()
}

// RenderTable renders the certificate chain as a formatted markdown table.
//
// It displays role, subject, issuer, validity, key size, link status, and
// whether each link verifies its child, using tablewriter.
//
// Thread Safety: Safe for concurrent use.
func (ch *Chain) RenderTable() string {
	rows := ch.rows()

	var buf strings.Builder
	table := tablewriter.NewTable(&buf,
		tablewriter.WithRenderer(renderer.NewMarkdown(tw.Rendition{Streaming: true})),
	)

	headers := []string{"#", "Role", "Subject", "Issuer", "Valid Until", "Key", "Status", "Signs Child"}
	table.Header(headers)

	var data [][]string
	for i, r := range rows {
		subject, issuer, validUntil, keySize := "-", "-", "-", "-"
		if r.cert != nil {
			subject = r.cert.Subject.CommonName
			issuer = r.cert.Issuer.CommonName
			validUntil = r.cert.NotAfter.Format("2006-01-02")
			keySize = describeKey(r.cert)
		}

		status, signs := "leaf", "-"
		if r.link != nil {
			status = string(r.link.Status)
			signs = fmt.Sprintf("%t", r.link.SignsChild)
			if r.link.LooseMatch {
				signs += " (DN fallback)"
			}
		}

		data = append(data, []string{
			fmt.Sprintf("%d", i+1),
			ch.roleAt(i, len(rows)),
			subject,
			issuer,
			validUntil,
			keySize,
			status,
			signs,
		})
	}

	table.Bulk(data)
	table.Render()
	return buf.String()
}

// ToVisualizationJSON converts the certificate chain to structured JSON for
// external tools: per-position certificate details plus link status,
// provenance, and the signed_by relationships.
//
// Thread Safety: Safe for concurrent use.
func (ch *Chain) ToVisualizationJSON() ([]byte, error) {
	rows := ch.rows()

	type CertificateVizData struct {
		Index              int        `json:"index"`
		Role               string     `json:"role"`
		Subject            string     `json:"subject"`
		Issuer             string     `json:"issuer"`
		SerialNumber       string     `json:"serialNumber"`
		Fingerprint        string     `json:"fingerprint"`
		SignatureAlgorithm string     `json:"signatureAlgorithm"`
		NotBefore          *time.Time `json:"notBefore,omitempty"`
		NotAfter           *time.Time `json:"notAfter,omitempty"`
		Status             string     `json:"status"`
		Source             string     `json:"source,omitempty"`
		SignsChild         *bool      `json:"signsChild,omitempty"`
		LooseMatch         bool       `json:"looseMatch,omitempty"`
		IsRoot             bool       `json:"isRoot"`
	}

	type RelationshipData struct {
		FromIndex int    `json:"fromIndex"`
		ToIndex   int    `json:"toIndex"`
		Type      string `json:"type"`
	}

	type VisualizationData struct {
		Timestamp     string               `json:"timestamp"`
		ChainLength   int                  `json:"chainLength"`
		Complete      bool                 `json:"complete"`
		Certificates  []CertificateVizData `json:"certificates"`
		Relationships []RelationshipData   `json:"relationships"`
	}

	data := VisualizationData{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		ChainLength:   len(rows),
		Complete:      ch.Complete(),
		Certificates:  make([]CertificateVizData, len(rows)),
		Relationships: make([]RelationshipData, 0, len(rows)-1),
	}

	for i, r := range rows {
		viz := CertificateVizData{
			Index:  i,
			Role:   ch.roleAt(i, len(rows)),
			Status: "leaf",
		}

		if r.cert != nil {
			notBefore, notAfter := r.cert.NotBefore, r.cert.NotAfter
			viz.Subject = r.cert.Subject.CommonName
			viz.Issuer = r.cert.Issuer.CommonName
			viz.SerialNumber = r.cert.SerialNumber.String()
			viz.SignatureAlgorithm = r.cert.SignatureAlgorithm.String()
			viz.NotBefore = &notBefore
			viz.NotAfter = &notAfter
		}

		if r.link != nil {
			signs := r.link.SignsChild
			viz.Status = string(r.link.Status)
			viz.Source = string(r.link.Source)
			viz.SignsChild = &signs
			viz.LooseMatch = r.link.LooseMatch
			viz.IsRoot = r.link.IsRoot
			if r.link.Record != nil {
				viz.Fingerprint = r.link.Record.Fingerprint
			}
		} else {
			viz.Fingerprint = ch.Leaf.Fingerprint
		}

		data.Certificates[i] = viz
	}

	for i := 0; i < len(rows)-1; i++ {
		data.Relationships = append(data.Relationships, RelationshipData{
			FromIndex: i,
			ToIndex:   i + 1,
			Type:      "signed_by",
		})
	}

	return json.MarshalIndent(data, "", "  ")
}

// roleAt describes the position's role within the chain.
func (ch *Chain) roleAt(index, total int) string {
	switch {
	case total == 1:
		return "Self-Contained Certificate"
	case index == 0:
		return "End-Entity (Server/Leaf) Certificate"
	case index == total-1 && ch.Complete():
		return "Root CA Certificate"
	default:
		return "Intermediate CA Certificate"
	}
}

// describeKey formats the public key algorithm and size for display.
func describeKey(cert *x509.Certificate) string {
	switch pubKey := cert.PublicKey.(type) {
	case *rsa.PublicKey:
		return fmt.Sprintf("%d-bit RSA", pubKey.Size()*8)
	case *ecdsa.PublicKey:
		return fmt.Sprintf("%d-bit ECDSA", pubKey.Curve.Params().BitSize)
	}
	return "unknown"
}
