package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/job-portal-api/internal/dto"
	"github.com/noah-isme/job-portal-api/internal/middleware"
	"github.com/noah-isme/job-portal-api/internal/models"
	"github.com/noah-isme/job-portal-api/internal/pipeline"
	appErrors "github.com/noah-isme/job-portal-api/pkg/errors"
)

// multipartMemory is the in-memory part of a parsed multipart body; larger
// files spill to temporary files.
const multipartMemory = 8 << 20

// maxMultipartBody caps a whole multipart request, all uploads included.
var maxMultipartBody int64 = 16 << 20

func actorFromContext(c *gin.Context) *models.Actor {
	return middleware.ActorFromContext(c)
}

func requestMeta(c *gin.Context) dto.RequestMeta {
	return dto.RequestMeta{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}

// requestContext builds the pipeline input from a JSON or multipart body.
// Repeated form fields and `name[]` fields become string lists; only the
// first file of each file field is used.
func requestContext(c *gin.Context) (pipeline.RequestContext, error) {
	rc := pipeline.RequestContext{Actor: actorFromContext(c), Fields: pipeline.RawFields{}}

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxMultipartBody)
		form, err := c.MultipartForm()
		if err != nil {
			if isBodyTooLarge(err) {
				return rc, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("Request body must not exceed %dMB", maxMultipartBody>>20))
			}
			return rc, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid multipart payload")
		}
		rc.Fields = formFields(form.Value)
		if len(form.File) > 0 {
			rc.Files = make(map[string]pipeline.FileDescriptor, len(form.File))
			for name, headers := range form.File {
				if len(headers) > 0 {
					rc.Files[strings.TrimSuffix(name, "[]")] = pipeline.FromMultipart(headers[0])
				}
			}
		}
		return rc, nil
	}

	fields, err := decodeFields(c.Request.Body)
	if err != nil {
		return rc, err
	}
	rc.Fields = fields
	return rc, nil
}

// formFields normalises form values into the JSON shape: a single plain
// value stays a string, repeated values and `name[]` keys become []string.
func formFields(values map[string][]string) pipeline.RawFields {
	singles := make(map[string]string, len(values))
	lists := make(map[string][]string)
	for name, vals := range values {
		key := strings.TrimSuffix(name, "[]")
		if key == name && len(vals) == 1 {
			singles[key] = vals[0]
			continue
		}
		lists[key] = append(lists[key], vals...)
	}

	fields := make(pipeline.RawFields, len(values))
	for key, v := range singles {
		if list, ok := lists[key]; ok {
			lists[key] = append([]string{v}, list...)
			continue
		}
		fields[key] = v
	}
	for key, list := range lists {
		fields[key] = list
	}
	return fields
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large")
}

func decodeFields(body io.Reader) (pipeline.RawFields, error) {
	if body == nil {
		return pipeline.RawFields{}, nil
	}
	payload, err := io.ReadAll(body)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body")
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return pipeline.RawFields{}, nil
	}
	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.UseNumber()
	fields := pipeline.RawFields{}
	if err := decoder.Decode(&fields); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid JSON payload")
	}
	return fields, nil
}
