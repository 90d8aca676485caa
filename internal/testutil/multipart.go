package testutil

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"testing"
)

// FormPart is one part of a multipart/form-data body. A part with an empty
// FileName is written as a plain form value.
type FormPart struct {
	Field       string
	FileName    string
	ContentType string
	Data        []byte
}

// ImagePart is a file part under the given field declared as image/png
func ImagePart(field, name string, data []byte) FormPart {
	return FormPart{Field: field, FileName: name, ContentType: "image/png", Data: data}
}

// MultipartBody encodes parts and returns the body with its Content-Type header value
func MultipartBody(t testing.TB, parts ...FormPart) (*bytes.Buffer, string) {
	t.Helper()

	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		if p.FileName == "" {
			h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q`, p.Field))
		} else {
			h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, p.Field, p.FileName))
			if p.ContentType != "" {
				h.Set("Content-Type", p.ContentType)
			}
		}
		w, err := writer.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := w.Write(p.Data); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

// MultipartReader encodes parts and returns a reader over them
func MultipartReader(t testing.TB, parts ...FormPart) *multipart.Reader {
	t.Helper()
	body, contentType := MultipartBody(t, parts...)
	boundary := contentType[len("multipart/form-data; boundary="):]
	return multipart.NewReader(body, boundary)
}
