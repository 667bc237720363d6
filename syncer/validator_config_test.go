package syncer

import (
	"encoding/json"
	"io/ioutil"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v2"

	"github.com/validatorops/keysync/db"
	"github.com/validatorops/keysync/testing/assert"
	"github.com/validatorops/keysync/testing/require"
)

const (
	testSignerURL        = "http://web3signer:6174"
	testDefaultRecipient = "0x1111111111111111111111111111111111111111"
	testRecipient        = "0xabcdef0123456789abcdef0123456789abcdef01"
)

func shardRecords() []db.Record {
	return []db.Record{
		{PublicKey: "0xaaaa", ValidatorIndex: 0},
		{PublicKey: "0xbbbb", ValidatorIndex: 0, FeeRecipient: testRecipient},
	}
}

func TestRenderLighthouseDefinitions(t *testing.T) {
	content, err := RenderLighthouseDefinitions(shardRecords(), testSignerURL, testDefaultRecipient)
	require.NoError(t, err)

	var items []map[string]interface{}
	require.NoError(t, yaml.Unmarshal(content, &items))
	require.Equal(t, 2, len(items))

	assert.Equal(t, true, items[0]["enabled"])
	assert.Equal(t, "0xaaaa", items[0]["voting_public_key"])
	assert.Equal(t, "web3signer", items[0]["type"])
	assert.Equal(t, testSignerURL, items[0]["url"])
	// Record without its own recipient falls back to the default.
	assert.Equal(t, testDefaultRecipient, items[0]["suggested_fee_recipient"])
	assert.Equal(t, testRecipient, items[1]["suggested_fee_recipient"])
}

func TestRenderSignerKeys(t *testing.T) {
	content, err := RenderSignerKeys(shardRecords())
	require.NoError(t, err)

	var cfg struct {
		PublicKeys []string `yaml:"validators-external-signer-public-keys"`
	}
	require.NoError(t, yaml.Unmarshal(content, &cfg))
	require.DeepEqual(t, []string{"0xaaaa", "0xbbbb"}, cfg.PublicKeys)
}

func TestRenderProposerConfig(t *testing.T) {
	content, err := RenderProposerConfig(shardRecords(), testDefaultRecipient)
	require.NoError(t, err)

	var cfg struct {
		ProposerConfig map[string]struct {
			FeeRecipient string `json:"fee_recipient"`
		} `json:"proposer_config"`
		DefaultConfig struct {
			FeeRecipient string `json:"fee_recipient"`
		} `json:"default_config"`
	}
	require.NoError(t, json.Unmarshal(content, &cfg))
	assert.Equal(t, testDefaultRecipient, cfg.DefaultConfig.FeeRecipient)
	// Only keys with their own recipient get an explicit entry.
	require.Equal(t, 1, len(cfg.ProposerConfig))
	assert.Equal(t, testRecipient, cfg.ProposerConfig["0xbbbb"].FeeRecipient)
}

func TestEmitValidatorConfigs_Idempotent(t *testing.T) {
	outputDir := t.TempDir()
	records := shardRecords()

	updated, err := EmitValidatorConfigs(records, outputDir, testSignerURL, testDefaultRecipient)
	require.NoError(t, err)
	require.Equal(t, 3, len(updated))

	// Unchanged input produces zero writes on the second run.
	updated, err = EmitValidatorConfigs(records, outputDir, testSignerURL, testDefaultRecipient)
	require.NoError(t, err)
	assert.Equal(t, 0, len(updated))

	// Changing one key's fee recipient updates exactly the artifacts that
	// reference recipients: the lighthouse definitions and the proposer
	// config, but not the public key list.
	records[0].FeeRecipient = "0x2222222222222222222222222222222222222222"
	updated, err = EmitValidatorConfigs(records, outputDir, testSignerURL, testDefaultRecipient)
	require.NoError(t, err)
	require.DeepEqual(t, []string{LighthouseConfigFileName, ProposerConfigFileName}, updated)
}

func TestEmitValidatorConfigs_WritesAllArtifacts(t *testing.T) {
	outputDir := t.TempDir()
	_, err := EmitValidatorConfigs(shardRecords(), outputDir, testSignerURL, testDefaultRecipient)
	require.NoError(t, err)

	for _, name := range []string{LighthouseConfigFileName, SignerKeysFileName, ProposerConfigFileName} {
		content, err := ioutil.ReadFile(filepath.Join(outputDir, name))
		require.NoError(t, err, "artifact %s", name)
		require.NotEqual(t, 0, len(content), "artifact %s", name)
	}
}
