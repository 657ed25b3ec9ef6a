package sra

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"strings"
)

// FailureCategory classifies why a single upstream host attempt failed.
type FailureCategory string

const (
	// FailureHTTP is a completed HTTP exchange with a non-2xx status.
	FailureHTTP FailureCategory = "http_error"
	// FailureTLS covers certificate and handshake failures.
	FailureTLS FailureCategory = "tls_error"
	// FailureNetwork covers everything else: timeout, DNS, connection refused,
	// or an unreadable/undecodable response body.
	FailureNetwork FailureCategory = "network_error"
)

// UpstreamError is returned when every candidate host has failed. It carries
// the diagnostic detail of the most recent failure so a 502 response can tell
// the operator which host broke and how. It never wraps a partial result.
type UpstreamError struct {
	Host     string
	Category FailureCategory
	Message  string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s on %s: %s", e.Category, e.Host, e.Message)
}

// classifyTransportError maps a transport-level error from http.Client.Do to a
// failure category. TLS problems are recognised either as typed crypto/tls and
// crypto/x509 errors unwrapped from the url.Error, or by the "tls:"/"x509:"
// prefixes the handshake uses for its plain-error conditions.
func classifyTransportError(err error) FailureCategory {
	var recordErr tls.RecordHeaderError
	var verifyErr *tls.CertificateVerificationError
	var unknownAuthority x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	var invalidCert x509.CertificateInvalidError
	if errors.As(err, &recordErr) ||
		errors.As(err, &verifyErr) ||
		errors.As(err, &unknownAuthority) ||
		errors.As(err, &hostnameErr) ||
		errors.As(err, &invalidCert) {
		return FailureTLS
	}
	msg := err.Error()
	if strings.Contains(msg, "tls:") || strings.Contains(msg, "x509:") {
		return FailureTLS
	}
	return FailureNetwork
}

// snippet truncates a response body for inclusion in error messages and probe
// reports, so a misbehaving upstream cannot balloon our logs.
func snippet(body []byte, max int) string {
	if len(body) > max {
		body = body[:max]
	}
	return string(body)
}
