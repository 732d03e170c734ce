package httpcore

import (
	"bytes"
	"mime"
	"mime/multipart"

	"github.com/corehttpd/corehttpd/internal/httperr"
)

// IsMultipartFormData reports whether contentType names
// multipart/form-data, and if so returns its boundary parameter.
func IsMultipartFormData(contentType string) (boundary string, ok bool) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != "multipart/form-data" {
		return "", false
	}
	b, ok := params["boundary"]
	return b, ok
}

// ParseMultipart parses a multipart/form-data body fully in memory, up
// to maxSize, rejecting requests with more than maxParts parts. Callers
// must check IsMultipartFormData first; a non-multipart content type
// here is treated as a malformed call, not a routing decision.
func ParseMultipart(contentType string, body []byte, maxSize int64, maxParts int) (form map[string]string, uploads []Upload, err error) {
	boundary, ok := IsMultipartFormData(contentType)
	if !ok {
		return nil, nil, httperr.New(httperr.Malformed, "not a multipart/form-data body")
	}
	if int64(len(body)) > maxSize {
		return nil, nil, httperr.New(httperr.LimitExceeded, "multipart body exceeds MaxFormDataUploadSize").WithStatus(413)
	}

	form = make(map[string]string)
	reader := multipart.NewReader(bytes.NewReader(body), boundary)
	count := 0
	for {
		part, perr := reader.NextPart()
		if perr != nil {
			break
		}
		count++
		if count > maxParts {
			return nil, nil, httperr.New(httperr.Malformed, "too many multipart parts")
		}
		data, rerr := readAllLimited(part, maxSize)
		_ = part.Close()
		if rerr != nil {
			return nil, nil, rerr
		}
		if fname := part.FileName(); fname != "" {
			ct := part.Header.Get("Content-Type")
			if ct == "" {
				ct = "application/octet-stream"
			}
			uploads = append(uploads, Upload{
				FieldName:   part.FormName(),
				FileName:    fname,
				ContentType: ct,
				Data:        data,
			})
		} else {
			form[part.FormName()] = string(data)
		}
	}
	return form, uploads, nil
}

func readAllLimited(p *multipart.Part, maxSize int64) ([]byte, error) {
	buf := make([]byte, 0, 512)
	chunk := make([]byte, 4096)
	for {
		n, err := p.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			if int64(len(buf)) > maxSize {
				return nil, httperr.New(httperr.LimitExceeded, "multipart part exceeds MaxFormDataUploadSize").WithStatus(413)
			}
		}
		if err != nil {
			break
		}
	}
	return buf, nil
}
