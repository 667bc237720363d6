package keystores

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/validatorops/keysync/io/file"
)

// Group is a set of keystore files sharing one fee recipient and one
// password. The group at the scan root carries no fee recipient; each
// address-named subdirectory forms its own group.
type Group struct {
	// FeeRecipient is a 0x-prefixed Ethereum address, or empty for the
	// root group.
	FeeRecipient string
	// Dir is the directory the group was discovered in.
	Dir string
	// Files holds the keystore file paths in lexicographic order.
	Files []string
}

// Locate scans a root directory for keystore files and returns the discovered
// groups in their deterministic order: the root group first when non-empty,
// then address-named subdirectories lexicographically. Subdirectories whose
// names are not valid Ethereum addresses are ignored. The resulting flattened
// file order is the contract validator index assignment depends on, so it
// must be reproducible for identical directory contents.
func Locate(root string) ([]Group, error) {
	expanded, err := file.ExpandPath(root)
	if err != nil {
		return nil, errors.Wrapf(err, "could not expand path %s", root)
	}
	entries, err := os.ReadDir(expanded)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read keystores directory %s", expanded)
	}

	var groups []Group
	// os.ReadDir returns entries sorted by name, which gives the
	// lexicographic order the index assignment contract requires.
	var rootFiles []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if isKeystoreFile(entry.Name()) {
			rootFiles = append(rootFiles, filepath.Join(expanded, entry.Name()))
		}
	}
	if len(rootFiles) > 0 {
		groups = append(groups, Group{Dir: expanded, Files: rootFiles})
	}

	for _, entry := range entries {
		if !entry.IsDir() || !isFeeRecipientDir(entry.Name()) {
			continue
		}
		dirPath := filepath.Join(expanded, entry.Name())
		subEntries, err := os.ReadDir(dirPath)
		if err != nil {
			return nil, errors.Wrapf(err, "could not read fee recipient directory %s", dirPath)
		}
		var files []string
		for _, sub := range subEntries {
			if sub.IsDir() || !isKeystoreFile(sub.Name()) {
				continue
			}
			files = append(files, filepath.Join(dirPath, sub.Name()))
		}
		if len(files) == 0 {
			continue
		}
		groups = append(groups, Group{
			FeeRecipient: entry.Name(),
			Dir:          dirPath,
			Files:        files,
		})
	}
	return groups, nil
}

// NumKeystores reports the total file count across groups.
func NumKeystores(groups []Group) int {
	total := 0
	for _, g := range groups {
		total += len(g.Files)
	}
	return total
}

func isKeystoreFile(name string) bool {
	return strings.HasPrefix(name, "keystore") && strings.HasSuffix(name, ".json")
}

// isFeeRecipientDir reports whether a directory name encodes a fee recipient:
// 0x followed by 40 hex characters, case-insensitive. Anything else is
// skipped entirely rather than treated as an error.
func isFeeRecipientDir(name string) bool {
	return strings.HasPrefix(name, "0x") && common.IsHexAddress(name)
}
