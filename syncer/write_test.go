package syncer

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/validatorops/keysync/testing/assert"
	"github.com/validatorops/keysync/testing/require"
)

func TestWriteIfChanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifact.yml")

	written, err := WriteIfChanged(path, []byte("first\n"))
	require.NoError(t, err)
	assert.Equal(t, true, written)

	written, err = WriteIfChanged(path, []byte("first\n"))
	require.NoError(t, err)
	assert.Equal(t, false, written)

	written, err = WriteIfChanged(path, []byte("second\n"))
	require.NoError(t, err)
	assert.Equal(t, true, written)

	content, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second\n", string(content))
}
