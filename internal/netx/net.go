// Package netx holds the HTTP plumbing shared by the remote service client and
// the object storage uploader.
package netx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// Part is one field of a multipart/form-data body. Parts with a FileName are
// sent as file uploads; the rest as plain form values.
type Part struct {
	Field    string
	FileName string
	Data     []byte
}

// FilePart is a file upload part.
func FilePart(field, fileName string, data []byte) Part {
	return Part{Field: field, FileName: fileName, Data: data}
}

// ValuePart is a plain form value part.
func ValuePart(field, value string) Part {
	return Part{Field: field, Data: []byte(value)}
}

// EncodeMultipart renders parts, in order, into a multipart body and returns
// it with the matching Content-Type header value.
func EncodeMultipart(parts ...Part) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	for _, p := range parts {
		if p.FileName != "" {
			fw, err := w.CreateFormFile(p.Field, p.FileName)
			if err != nil {
				return nil, "", fmt.Errorf("create form file %s: %w", p.Field, err)
			}
			if _, err := fw.Write(p.Data); err != nil {
				return nil, "", fmt.Errorf("write form file %s: %w", p.Field, err)
			}
			continue
		}
		if err := w.WriteField(p.Field, string(p.Data)); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", p.Field, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return body, w.FormDataContentType(), nil
}

// UploadToPresignedURL PUTs data to a presigned object storage URL.
// Any status other than 200 is an error carrying the response body.
func UploadToPresignedURL(ctx context.Context, c *http.Client, url string, contentType string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)

	if c == nil {
		c = http.DefaultClient
	}
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("upload failed: %s; body: %s", resp.Status, string(b))
	}
	return nil
}
