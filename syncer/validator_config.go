package syncer

import (
	"encoding/json"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/validatorops/keysync/db"
)

const (
	// LighthouseConfigFileName is the Lighthouse validator definitions file.
	LighthouseConfigFileName = "validator_definitions.yml"
	// SignerKeysFileName is the Teku/Prysm external signer public key list.
	SignerKeysFileName = "signer_keys.yml"
	// ProposerConfigFileName is the web3signer proposer configuration.
	ProposerConfigFileName = "proposerConfig.json"
)

type lighthouseDefinition struct {
	Enabled               bool   `yaml:"enabled"`
	VotingPublicKey       string `yaml:"voting_public_key"`
	Type                  string `yaml:"type"`
	URL                   string `yaml:"url"`
	SuggestedFeeRecipient string `yaml:"suggested_fee_recipient"`
}

type signerKeysConfig struct {
	PublicKeys []string `yaml:"validators-external-signer-public-keys,flow"`
}

type proposerFeeRecipient struct {
	FeeRecipient string `json:"fee_recipient"`
}

type proposerConfig struct {
	ProposerConfig map[string]proposerFeeRecipient `json:"proposer_config"`
	DefaultConfig  proposerFeeRecipient            `json:"default_config"`
}

// RenderLighthouseDefinitions produces the Lighthouse validator definitions
// document: one web3signer-delegating entry per key, each with its fee
// recipient or the default when the record carries none.
func RenderLighthouseDefinitions(records []db.Record, web3signerURL, defaultFeeRecipient string) ([]byte, error) {
	items := make([]lighthouseDefinition, 0, len(records))
	for _, r := range records {
		items = append(items, lighthouseDefinition{
			Enabled:               true,
			VotingPublicKey:       r.PublicKey,
			Type:                  "web3signer",
			URL:                   web3signerURL,
			SuggestedFeeRecipient: feeRecipientOrDefault(r, defaultFeeRecipient),
		})
	}
	encoded, err := yaml.Marshal(items)
	if err != nil {
		return nil, errors.Wrap(err, "could not marshal lighthouse definitions")
	}
	return append([]byte("---\n"), encoded...), nil
}

// RenderSignerKeys produces the external signer public key list consumed by
// Teku and Prysm clients.
func RenderSignerKeys(records []db.Record) ([]byte, error) {
	cfg := signerKeysConfig{PublicKeys: make([]string, 0, len(records))}
	for _, r := range records {
		cfg.PublicKeys = append(cfg.PublicKeys, r.PublicKey)
	}
	encoded, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "could not marshal signer keys config")
	}
	return encoded, nil
}

// RenderProposerConfig produces the web3signer proposer configuration with a
// per-key fee recipient entry for keys that declare one and a default for
// the rest.
func RenderProposerConfig(records []db.Record, defaultFeeRecipient string) ([]byte, error) {
	cfg := proposerConfig{
		ProposerConfig: make(map[string]proposerFeeRecipient),
		DefaultConfig:  proposerFeeRecipient{FeeRecipient: defaultFeeRecipient},
	}
	for _, r := range records {
		if r.FeeRecipient == "" {
			continue
		}
		cfg.ProposerConfig[r.PublicKey] = proposerFeeRecipient{FeeRecipient: r.FeeRecipient}
	}
	encoded, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "could not marshal proposer config")
	}
	return append(encoded, '\n'), nil
}

// EmitValidatorConfigs renders the three validator-client artifacts for a
// shard's records into outputDir, writing only files whose content changed.
// It returns the names of the files it rewrote.
func EmitValidatorConfigs(records []db.Record, outputDir, web3signerURL, defaultFeeRecipient string) ([]string, error) {
	lighthouse, err := RenderLighthouseDefinitions(records, web3signerURL, defaultFeeRecipient)
	if err != nil {
		return nil, err
	}
	signerKeys, err := RenderSignerKeys(records)
	if err != nil {
		return nil, err
	}
	proposer, err := RenderProposerConfig(records, defaultFeeRecipient)
	if err != nil {
		return nil, err
	}

	artifacts := []struct {
		name    string
		content []byte
	}{
		{LighthouseConfigFileName, lighthouse},
		{SignerKeysFileName, signerKeys},
		{ProposerConfigFileName, proposer},
	}
	var updated []string
	for _, artifact := range artifacts {
		written, err := WriteIfChanged(filepath.Join(outputDir, artifact.name), artifact.content)
		if err != nil {
			return nil, err
		}
		if written {
			updated = append(updated, artifact.name)
		}
	}
	return updated, nil
}

func feeRecipientOrDefault(r db.Record, defaultFeeRecipient string) string {
	if r.FeeRecipient != "" {
		return r.FeeRecipient
	}
	return defaultFeeRecipient
}
