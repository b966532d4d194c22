package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/joseph-ayodele/counterparty-analyzer/constants"
	"github.com/joseph-ayodele/counterparty-analyzer/internal/common"
)

// Upload is one file part of a request. Open is called once, during ReadFiles.
type Upload struct {
	Filename string
	Open     func() (io.ReadCloser, error)
}

// BytesUpload wraps in-memory content as an Upload.
func BytesUpload(filename string, data []byte) Upload {
	return Upload{
		Filename: filename,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// Request is the input of one analysis run.
type Request struct {
	Files        []Upload
	Instructions string
}

type fileData struct {
	name string
	data []byte
}

func (c *Controller) validate(files []Upload) error {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Filename
	}
	return common.NewValidator().
		Field("files", names,
			common.CountBetween(1, c.opts.MaxFiles),
			common.EachAllowed(constants.IsAllowedFile, constants.AllowedExtensionList()),
		).
		Err()
}

// readFiles reads uploads in order and stops as soon as the running total
// passes the limit, without reading the rest.
func (c *Controller) readFiles(ctx context.Context, files []Upload) ([]fileData, error) {
	limit := c.opts.maxUploadBytes()
	out := make([]fileData, 0, len(files))
	var total int64

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := readAtMost(f, limit-total+1)
		if err != nil {
			ae := common.NewAppError(common.KindValidation, fmt.Sprintf("cannot read file %q", f.Filename), err)
			ae.Filename = f.Filename
			return nil, ae
		}
		total += int64(len(data))
		if total > limit {
			ae := common.NewAppError(common.KindSizeLimit,
				fmt.Sprintf("total upload size exceeds %d MB limit", c.opts.MaxUploadSizeMB), common.ErrInvalidInput)
			ae.Filename = f.Filename
			return nil, ae
		}
		out = append(out, fileData{name: f.Filename, data: data})
	}
	return out, nil
}

func readAtMost(f Upload, n int64) ([]byte, error) {
	if f.Open == nil {
		return nil, common.ErrInvalidInput
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(io.LimitReader(rc, n))
}
