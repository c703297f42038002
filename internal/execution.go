package internal

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func GenerateId() string {
	return uuid.Must(uuid.NewRandom()).String()
}

// Envs reads the given dotenv files (missing files are skipped) and
// overlays the process environment on top of them.
func Envs(files ...string) (map[string]string, error) {
	envs := make(map[string]string)
	for _, file := range files {
		values, err := godotenv.Read(file)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		for key, value := range values {
			envs[key] = value
		}
	}
	for _, env := range os.Environ() {
		if s := strings.Split(env, "="); len(s) > 1 {
			envs[s[0]] = strings.Join(s[1:], "=")
		}
	}
	return envs, nil
}

func GetCertificate(certFile, keyFile string) (tls.Certificate, error) {
	bytesCert, err := os.ReadFile(certFile)
	if err != nil {
		return tls.Certificate{}, err
	}
	bytesKey, err := os.ReadFile(keyFile)
	if err != nil {
		return tls.Certificate{}, err
	}
	return tls.X509KeyPair(bytesCert, bytesKey)
}

func GetCaCert(caCertFile string) (*x509.CertPool, error) {
	caCertPool := x509.NewCertPool()
	if caCertFile == "" {
		return caCertPool, nil
	}
	bytes, err := os.ReadFile(caCertFile)
	if err != nil {
		return nil, err
	}
	caCertPool.AppendCertsFromPEM(bytes)
	return caCertPool, nil
}

func GetTlsConfig(certFile, keyFile, caCertFile string) (*tls.Config, error) {
	caCertPool, err := GetCaCert(caCertFile)
	if err != nil {
		return nil, err
	}
	certificate, err := GetCertificate(certFile, keyFile)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		// TLS versions below 1.2 are considered insecure
		// see https://www.rfc-editor.org/rfc/rfc7525.txt for details
		MinVersion:   tls.VersionTLS12,
		RootCAs:      caCertPool,
		Certificates: []tls.Certificate{certificate},
	}, nil
}
