package main

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"io/ioutil"
	"math/big"

	"gopkg.in/yaml.v2"

	"github.com/rsaacc/accumulator/accumulator"
	"github.com/rsaacc/accumulator/digest"
	"github.com/rsaacc/accumulator/primegen"
)

// Config specifies the file format of accumulator-server config files.
type Config struct {
	ServerAddr  string     `yaml:"addr"`
	MetricsAddr string     `yaml:"metrics-addr"`
	TLSConfig   *TLSConfig `yaml:"tls"`
	tlsConfig   *tls.Config

	Digest    string `yaml:"digest"`     // One of "SHA-256", "SHA-384", "SHA-512", "BLAKE3".
	PrimeBits int    `yaml:"prime-bits"` // Defaults to accumulator.DefaultPrimeBits.
	MRRounds  int    `yaml:"mr-rounds"`  // Defaults to accumulator.DefaultMRRounds.

	// KeyFile, if set, points to a file with two hex-encoded lines, p and q:
	// the server runs as the holder. If unset, InitialN/InitialZ must be
	// set instead and the server runs as a public verifier.
	KeyFile   string `yaml:"key-file"`
	InitialN  string `yaml:"initial-n"`
	InitialZ  string `yaml:"initial-z"`

	StoreFile string `yaml:"store-file"` // LevelDB directory. Empty means in-memory.

	digestProvider digest.Provider
}

// TLSConfig specifies the API server's TLS config; a client certificate is
// required whenever TLS is enabled.
type TLSConfig struct {
	Cert     string `yaml:"cert"`
	Key      string `yaml:"key"`
	ClientCA string `yaml:"client-ca"`
}

func ReadConfig(filename string) (*Config, error) {
	raw, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var parsed Config
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, err
	}

	if parsed.ServerAddr == "" {
		return nil, fmt.Errorf("field not provided: addr")
	}
	if parsed.KeyFile == "" && (parsed.InitialN == "" || parsed.InitialZ == "") {
		return nil, fmt.Errorf("either key-file, or both initial-n and initial-z, must be provided")
	}

	if parsed.Digest == "" {
		parsed.Digest = "SHA-256"
	}
	d, err := digest.Resolve(parsed.Digest)
	if err != nil {
		return nil, fmt.Errorf("failed to parse digest: %v", err)
	}
	parsed.digestProvider = d

	if parsed.TLSConfig != nil {
		cert, err := tls.LoadX509KeyPair(parsed.TLSConfig.Cert, parsed.TLSConfig.Key)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS certificate/key: %v", err)
		}
		certPool := x509.NewCertPool()
		caCerts, err := ioutil.ReadFile(parsed.TLSConfig.ClientCA)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS client CA: %v", err)
		} else if ok := certPool.AppendCertsFromPEM(caCerts); !ok {
			return nil, fmt.Errorf("no client CA certificates successfully parsed from file")
		}
		parsed.tlsConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			ClientAuth:   tls.RequireAndVerifyClientCert,
			ClientCAs:    certPool,
		}
	}

	return &parsed, nil
}

func (c *Config) accumulatorConfig() accumulator.Config {
	return accumulator.Config{Digest: c.digestProvider, PrimeBits: c.PrimeBits, MRRounds: c.MRRounds}
}

// newAccumulator constructs the Accumulator this server holds or verifies
// against, per the config's key-file/initial-n/initial-z fields.
func (c *Config) newAccumulator() (*accumulator.Accumulator, error) {
	if c.KeyFile != "" {
		primes, err := readKeyFile(c.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load key file: %v", err)
		}
		return accumulator.NewHolder(c.accumulatorConfig(), primes), nil
	}

	n, ok := new(big.Int).SetString(c.InitialN, 16)
	if !ok {
		return nil, fmt.Errorf("failed to parse initial-n as hex")
	}
	z, ok := new(big.Int).SetString(c.InitialZ, 16)
	if !ok {
		return nil, fmt.Errorf("failed to parse initial-z as hex")
	}
	return accumulator.NewPublic(c.accumulatorConfig(), n, z), nil
}

func readKeyFile(filename string) (*primegen.Primes, error) {
	raw, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var pHex, qHex string
	if n, err := fmt.Sscanf(string(raw), "%s\n%s", &pHex, &qHex); err != nil || n != 2 {
		return nil, fmt.Errorf("expected two hex-encoded lines (p, q)")
	}
	pRaw, err := hex.DecodeString(pHex)
	if err != nil {
		return nil, fmt.Errorf("failed to parse p: %v", err)
	}
	qRaw, err := hex.DecodeString(qHex)
	if err != nil {
		return nil, fmt.Errorf("failed to parse q: %v", err)
	}
	return &primegen.Primes{P: new(big.Int).SetBytes(pRaw), Q: new(big.Int).SetBytes(qRaw)}, nil
}
