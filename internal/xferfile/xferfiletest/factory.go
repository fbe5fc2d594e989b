package xferfiletest

import (
	"fmt"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/derektruong/upxfer/internal/xferfile"
)

// InfoFactory creates a fake Info with editFn applied.
func InfoFactory(editFn func(info *xferfile.Info)) xferfile.Info {
	ext := gofakeit.FileExtension()
	name := fmt.Sprintf("%s.%s", gofakeit.Word(), ext)
	info := xferfile.Info{
		Path:        fmt.Sprintf("/%s/%s", gofakeit.Word(), name),
		Name:        name,
		Extension:   ext,
		Size:        int64(gofakeit.Number(1, 1000000)),
		ModTime:     gofakeit.PastDate(),
		ContentType: gofakeit.FileMimeType(),
	}
	if editFn != nil {
		editFn(&info)
	}
	return info
}
