// Copyright (c) 2025 BVK Chaitanya

package envfile

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

type options struct {
	variableNamePrefix string

	searchCurrentDirectory bool

	scanParentDirectories bool

	overwriteIfExists bool

	dirs []string
}

// UpdateEnv updates current process's environment with the values read from
// the env filename found in the user's home directory. The location of the env
// file search path and other behaviors can be changed by the input options.
//
// Env files use the dotenv syntax: comments, quoted values and variable
// expansion are supported.
func UpdateEnv(filename string, opts ...Option) error {
	if strings.ContainsRune(filename, os.PathSeparator) {
		return fmt.Errorf("file name contains path separator: %w", os.ErrInvalid)
	}
	var fopts options
	for _, v := range opts {
		if err := v.apply(&fopts); err != nil {
			return err
		}
	}
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	var fpaths []string
	for _, dir := range fopts.dirs {
		fpaths = append(fpaths, filepath.Join(dir, filename))
	}
	if fopts.searchCurrentDirectory {
		fpaths = append(fpaths, filepath.Join(cwd, filename))
	}
	if fopts.scanParentDirectories {
		last, dir := "", filepath.Dir(cwd)
		for dir != last {
			fpaths = append(fpaths, filepath.Join(dir, filename))
			last, dir = dir, filepath.Dir(dir)
		}
	}
	if len(fpaths) == 0 {
		user, err := user.Current()
		if err != nil {
			return err
		}
		if len(user.HomeDir) == 0 {
			return fmt.Errorf("could not determine current user's home directory")
		}
		fpaths = []string{filepath.Join(user.HomeDir, filename)}
	}
	for _, fpath := range fpaths {
		fp, err := os.Open(fpath)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return err
			}
			continue
		}
		defer fp.Close()

		vars, err := godotenv.Parse(fp)
		if err != nil {
			return fmt.Errorf("could not parse env file %q: %w", fpath, err)
		}
		for key, value := range vars {
			if !prefixRe.MatchString(key) {
				return fmt.Errorf("invalid environment variable name %q in %q: %w", key, fpath, os.ErrInvalid)
			}
			key = fopts.variableNamePrefix + key
			if len(os.Getenv(key)) != 0 && !fopts.overwriteIfExists {
				continue
			}
			os.Setenv(key, value)
		}
		break
	}
	return nil
}
