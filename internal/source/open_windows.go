//go:build windows

package source

import (
	"os"

	"github.com/hpungsan/advdiff/internal/errors"
)

// openNoFollow opens path read-only. O_NOFOLLOW does not exist on Windows;
// ops.ValidateRecordPath still rejects symlinks before we get here.
func openNoFollow(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound(path)
		}
		return nil, errors.NewFetchFailed(path, err)
	}
	return f, nil
}
