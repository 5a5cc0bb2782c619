package utils

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// ResolveFile returns fn joined to the root of this module, so tests can name fixtures like
// "referenceframe/testjson/threelink.json" wherever they run from.
func ResolveFile(fn string) string {
	//nolint:dogsled
	_, thisFile, _, _ := runtime.Caller(0)
	root, err := filepath.Abs(filepath.Join(filepath.Dir(thisFile), ".."))
	if err != nil {
		panic(err)
	}
	return filepath.Join(root, fn)
}

// RemoveFiles removes every path. Paths that do not exist are skipped; other failures are combined.
func RemoveFiles(paths ...string) error {
	var err error
	for _, path := range paths {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			err = multierr.Append(err, rmErr)
		}
	}
	return err
}

// RemoveFilesNoError is RemoveFiles for cleanup paths where failures are not actionable.
func RemoveFilesNoError(paths ...string) {
	utils.UncheckedErrorFunc(func() error { return RemoveFiles(paths...) })
}
