// Copyright 2015 The go-ethereum Authors
// This file is part of go-ethereum.
//
// go-ethereum is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-ethereum is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-ethereum. If not, see <http://www.gnu.org/licenses/>.

// Package file provides filesystem helpers with strict permission handling
// for directories and files that hold key material.
package file

import (
	"io/ioutil"
	"os"
	"os/user"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

const (
	// DirPermissions for directories created by keysync.
	DirPermissions = os.FileMode(0700)
	// FilePermissions for files written by keysync.
	FilePermissions = os.FileMode(0600)
)

// ExpandPath expands a file path:
// 1. replaces tilde with the user's home directory
// 2. expands embedded environment variables
// 3. cleans the path, e.g. /a/b/../c -> /a/c
// It has limitations, e.g. ~someuser/tmp will not be expanded.
func ExpandPath(p string) (string, error) {
	if strings.HasPrefix(p, "~/") || strings.HasPrefix(p, "~\\") {
		if home := HomeDir(); home != "" {
			p = home + p[1:]
		}
	}
	return filepath.Abs(path.Clean(os.ExpandEnv(p)))
}

// HomeDir returns the home directory of the current user.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// HasDir checks if a directory exists at the specified path.
func HasDir(dirPath string) (bool, error) {
	fullPath, err := ExpandPath(dirPath)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(fullPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if info == nil {
		return false, err
	}
	return info.IsDir(), err
}

// FileExists returns true if a file is not a directory and exists
// at the specified path.
func FileExists(filename string) bool {
	filePath, err := ExpandPath(filename)
	if err != nil {
		return false
	}
	info, err := os.Stat(filePath)
	if err != nil {
		return false
	}
	return info != nil && !info.IsDir()
}

// MkdirAll takes in a path, expands it if necessary, and creates the directory
// accordingly with standardized, restrictive permissions. If a directory
// already exists as this path but with looser permissions, it returns an error.
func MkdirAll(dirPath string) error {
	expanded, err := ExpandPath(dirPath)
	if err != nil {
		return err
	}
	exists, err := HasDir(expanded)
	if err != nil {
		return err
	}
	if exists {
		info, err := os.Stat(expanded)
		if err != nil {
			return err
		}
		if info.Mode().Perm() != DirPermissions {
			return errors.Errorf("dir already exists without proper 0700 permissions: %s", expanded)
		}
	}
	return os.MkdirAll(expanded, DirPermissions)
}

// WriteFile is the static-permission version of ioutil.WriteFile. If a file
// already exists at this path but with looser permissions, it returns an error.
func WriteFile(filename string, data []byte) error {
	expanded, err := ExpandPath(filename)
	if err != nil {
		return err
	}
	if FileExists(expanded) {
		info, err := os.Stat(expanded)
		if err != nil {
			return err
		}
		if info.Mode() != FilePermissions {
			return errors.Errorf("file already exists without proper 0600 permissions: %s", expanded)
		}
	}
	return ioutil.WriteFile(expanded, data, FilePermissions)
}
