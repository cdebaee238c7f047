// Package netx talks to presigned object store URLs over plain HTTP.
package netx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"sort"

	"github.com/dmitrijs2005/imagevault/internal/models"
)

// PostPresigned uploads body with an S3 POST policy credential. The policy
// fields are written first and the file part last, as S3 ignores anything
// after the file. contentType must match the policy's Content-Type.
func PostPresigned(ctx context.Context, client *http.Client, cred *models.UploadCredential, filename, contentType string, body io.Reader) error {
	if client == nil {
		client = http.DefaultClient
	}

	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)

	names := make([]string, 0, len(cred.Fields))
	for name := range cred.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := mw.WriteField(name, cred.Fields[name]); err != nil {
			return err
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, body); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cred.URL, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("upload failed: %s; body: %s", resp.Status, string(b))
	}
	return nil
}

// Download copies the object behind a presigned GET URL into w.
func Download(ctx context.Context, client *http.Client, url string, w io.Writer) (int64, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, fmt.Errorf("download failed: %s; body: %s", resp.Status, string(b))
	}
	return io.Copy(w, resp.Body)
}
