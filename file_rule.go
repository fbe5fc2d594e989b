package upxfer

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/derektruong/upxfer/internal/xferfile"
	"github.com/docker/go-units"
	"github.com/samber/lo"
)

var (
	ErrFileTooLarge            = errors.New("file size exceeds the maximum allowed size")
	ErrFileTooSmall            = errors.New("file size does not meet the minimum required size")
	ErrExtensionNotAllowed     = errors.New("file extension is not allowed")
	ErrExtensionBlocked        = errors.New("file extension is blocked")
	ErrModifiedTooEarly        = errors.New("file was modified before the required time")
	ErrModifiedTooLate         = errors.New("file was modified after the required time")
	ErrFileNamePatternMismatch = errors.New("file name does not match the required pattern")
)

// fileRule holds the conditions a file must meet to be enqueued.
// Zero values disable a condition.
type fileRule struct {
	MaxFileSize        int64
	MinFileSize        int64
	ExtensionWhitelist []string
	ExtensionBlacklist []string
	ModifiedAfter      time.Time
	ModifiedBefore     time.Time
	FileNamePattern    *regexp.Regexp
}

// Check returns the first condition the file breaks.
func (r *fileRule) Check(info xferfile.Info) error {
	switch {
	case r.MaxFileSize > 0 && info.Size > r.MaxFileSize:
		return fmt.Errorf("%w: %s > %s",
			ErrFileTooLarge, units.BytesSize(float64(info.Size)), units.BytesSize(float64(r.MaxFileSize)))
	case r.MinFileSize > 0 && info.Size < r.MinFileSize:
		return fmt.Errorf("%w: %s < %s",
			ErrFileTooSmall, units.BytesSize(float64(info.Size)), units.BytesSize(float64(r.MinFileSize)))
	case len(r.ExtensionWhitelist) > 0 && !hasExtension(r.ExtensionWhitelist, info.Extension):
		return fmt.Errorf("%w: %q", ErrExtensionNotAllowed, info.Extension)
	case hasExtension(r.ExtensionBlacklist, info.Extension):
		return fmt.Errorf("%w: %q", ErrExtensionBlocked, info.Extension)
	case !r.ModifiedAfter.IsZero() && info.ModTime.Before(r.ModifiedAfter):
		return fmt.Errorf("%w: %s", ErrModifiedTooEarly, r.ModifiedAfter.Format(time.RFC3339))
	case !r.ModifiedBefore.IsZero() && info.ModTime.After(r.ModifiedBefore):
		return fmt.Errorf("%w: %s", ErrModifiedTooLate, r.ModifiedBefore.Format(time.RFC3339))
	case r.FileNamePattern != nil && !r.FileNamePattern.MatchString(info.Name):
		return fmt.Errorf("%w: %s", ErrFileNamePatternMismatch, r.FileNamePattern)
	}
	return nil
}

// hasExtension matches ext case-insensitively, a leading dot in the list is ignored.
func hasExtension(extensions []string, ext string) bool {
	return lo.ContainsBy(extensions, func(item string) bool {
		return strings.EqualFold(strings.TrimPrefix(item, "."), ext)
	})
}
