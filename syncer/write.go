package syncer

import (
	"bytes"
	"io/ioutil"

	"github.com/pkg/errors"

	"github.com/validatorops/keysync/io/file"
)

// WriteIfChanged writes content to path unless the file already holds exactly
// that content, reporting whether a write happened. Skipping identical writes
// keeps dependent processes that watch these files from restarting for
// nothing.
func WriteIfChanged(path string, content []byte) (bool, error) {
	if file.FileExists(path) {
		existing, err := ioutil.ReadFile(path)
		if err != nil {
			return false, errors.Wrapf(err, "could not read existing file %s", path)
		}
		if bytes.Equal(existing, content) {
			return false, nil
		}
	}
	if err := file.WriteFile(path, content); err != nil {
		return false, errors.Wrapf(err, "could not write %s", path)
	}
	return true, nil
}
