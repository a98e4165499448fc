//go:build !windows

package source

import (
	stderrors "errors"
	"os"
	"syscall"

	"github.com/hpungsan/advdiff/internal/errors"
)

// openNoFollow opens path read-only and refuses a symlinked final component.
// Directory components are covered by ops.ValidateRecordPath, which only
// admits files directly inside an allowed directory.
func openNoFollow(path string) (*os.File, error) {
	fd, err := syscall.Open(path, syscall.O_RDONLY|syscall.O_NOFOLLOW|syscall.O_CLOEXEC, 0)
	if err != nil {
		if stderrors.Is(err, syscall.ELOOP) {
			return nil, errors.NewInvalidRequest("cannot read records from a symlink")
		}
		if stderrors.Is(err, syscall.ENOENT) {
			return nil, errors.NewNotFound(path)
		}
		return nil, errors.NewFetchFailed(path, err)
	}
	return os.NewFile(uintptr(fd), path), nil
}
