package client

import (
	"crypto/tls"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/antonio-alexander/go-employee-dashboard/internal"
	"github.com/antonio-alexander/go-employee-dashboard/internal/data"

	"github.com/pkg/errors"
)

// getTransport trusts the given ca and presents a client certificate when
// both the certificate and key are provided.
func getTransport(sslCaFile, sslCrtFile, sslKeyFile string) (*http.Transport, error) {
	if sslCaFile == "" && (sslCrtFile == "" || sslKeyFile == "") {
		return &http.Transport{}, nil
	}
	caCertPool, err := internal.GetCaCert(sslCaFile)
	if err != nil {
		return nil, err
	}
	tlsConfig := &tls.Config{
		// TLS versions below 1.2 are considered insecure
		// see https://www.rfc-editor.org/rfc/rfc7525.txt for details
		MinVersion: tls.VersionTLS12,
		RootCAs:    caCertPool,
	}
	if sslCrtFile != "" && sslKeyFile != "" {
		certificate, err := internal.GetCertificate(sslCrtFile, sslKeyFile)
		if err != nil {
			return nil, err
		}
		tlsConfig.Certificates = []tls.Certificate{certificate}
	}
	return &http.Transport{TLSClientConfig: tlsConfig}, nil
}

// errorFromResponse rebuilds the typed error the service responded with.
func errorFromResponse(statusCode int, bytes []byte) error {
	var message data.Message

	if err := json.Unmarshal(bytes, &message); err != nil || message.Message == "" {
		return data.ErrorFromStatus(statusCode, errors.Errorf("status code: %d; %s",
			statusCode, strings.TrimSpace(string(bytes))).Error())
	}
	return data.ErrorFromStatus(statusCode, message.Message)
}
