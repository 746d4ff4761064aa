package echoapi

import (
	"mime/multipart"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/rahmanfaisal0414/backend-bimbel/core"
	"github.com/rahmanfaisal0414/backend-bimbel/storage/files"
)

func intParam(ctx echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(ctx.Param(name))
	if err != nil || id < 1 {
		return 0, errHTTPNotFound
	}
	return id, nil
}

func keywordQuery(ctx echo.Context) string {
	return core.CleanString(ctx.QueryParam("q"))
}

// saveUpload stores a multipart upload under subdir and returns its public URL.
func saveUpload(store *files.Store, fh *multipart.FileHeader, subdir string) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", errors.Wrap(err, "opening upload")
	}
	defer func() { _ = src.Close() }()
	return store.Save(src, fh.Filename, subdir)
}

// weekBounds returns [Monday 00:00, next Monday 00:00) around now.
func weekBounds(now time.Time) (time.Time, time.Time) {
	weekday := (int(now.Weekday()) + 6) % 7 // Monday = 0
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -weekday)
	return start, start.AddDate(0, 0, 7)
}

type (
	SuccessResponse struct {
		Success string `json:"success"`
	}

	UserInfoResponse struct {
		ID       int    `json:"id"`
		Username string `json:"username"`
		FullName string `json:"full_name"`
		Email    string `json:"email"`
		Role     string `json:"role"`
		PhotoURL string `json:"photo_url,omitempty"`
	}
)
