package freedcamp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sync/atomic"
)

// DefaultMaxUploadBytes предел размера загружаемого файла.
const DefaultMaxUploadBytes int64 = 100 << 20

// ErrUploadTooLarge файл больше max_upload_bytes.
var ErrUploadTooLarge = errors.New("upload exceeds size limit")

// Upload загружает файл multipart-запросом: часть file с содержимым и поле
// data с JSON метаданными. Подпись, как и везде, уходит в query string.
// Тело пишется в запрос потоком, поэтому upload_timeout и отмена ctx
// прерывают и чтение источника, и отправку.
func (c *Client) Upload(ctx context.Context, path string, meta any, fileName string, content io.Reader, out any) error {
	encoded, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode upload metadata: %w", err)
	}

	limit := c.opts.MaxUploadBytes
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	contentType := mw.FormDataContentType()

	var tooLarge atomic.Bool
	go func() {
		pw.CloseWithError(writeMultipart(mw, encoded, fileName, content, limit, &tooLarge))
	}()
	// если запрос не дочитал тело, пишущая горутина получит ErrClosedPipe
	defer pr.Close()

	c.logger.Info("Uploading file", "path", path, "name", fileName, "max_bytes", limit)
	err = c.do(ctx, http.MethodPost, path, nil, contentType, pr, c.opts.UploadTimeout, out)
	if tooLarge.Load() {
		return fmt.Errorf("%w: %s is larger than %d bytes", ErrUploadTooLarge, fileName, limit)
	}
	return err
}

func writeMultipart(mw *multipart.Writer, meta []byte, fileName string, content io.Reader, limit int64, tooLarge *atomic.Bool) error {
	if err := mw.WriteField(dataField, string(meta)); err != nil {
		return fmt.Errorf("write upload metadata: %w", err)
	}
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return fmt.Errorf("create upload part: %w", err)
	}
	n, err := io.Copy(part, io.LimitReader(content, limit+1))
	if err != nil {
		return fmt.Errorf("copy upload content: %w", err)
	}
	if n > limit {
		tooLarge.Store(true)
		return ErrUploadTooLarge
	}
	return mw.Close()
}
