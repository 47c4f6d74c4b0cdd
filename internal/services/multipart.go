package services

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
)

// FilePart is one file field of a multipart request.
type FilePart struct {
	Filename    string
	ContentType string
	Reader      io.Reader
}

// formField is one text or file field in submission order.
type formField struct {
	name  string
	value string
	file  *FilePart
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// streamMultipart encodes fields on a goroutine and returns the reading end of the pipe with its content type.
//
// Files are copied straight from their readers so large media is never buffered in memory.
func streamMultipart(fields []formField) (*io.PipeReader, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := writeFields(mw, fields)
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	return pr, mw.FormDataContentType()
}

func writeFields(mw *multipart.Writer, fields []formField) error {
	for _, f := range fields {
		if f.file == nil {
			if err := mw.WriteField(f.name, f.value); err != nil {
				return fmt.Errorf("failed to write field %s: %w", f.name, err)
			}
			continue
		}

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(f.name), quoteEscaper.Replace(f.file.Filename)))
		contentType := f.file.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h.Set("Content-Type", contentType)

		part, err := mw.CreatePart(h)
		if err != nil {
			return fmt.Errorf("failed to create part %s: %w", f.name, err)
		}
		if _, err := io.Copy(part, f.file.Reader); err != nil {
			return fmt.Errorf("failed to copy %s: %w", f.name, err)
		}
	}
	return nil
}
