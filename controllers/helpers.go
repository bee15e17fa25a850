package controllers

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dailychallenge/server/errs"
	"github.com/dailychallenge/server/middleware"
	"github.com/dailychallenge/server/services"
	"github.com/dailychallenge/server/storage"
	"github.com/dailychallenge/server/utils"
)

// maxMultipartMemory bounds what ParseMultipartForm keeps in memory; the rest spills to temp files.
const maxMultipartMemory = 32 << 20

func parsePagination(ctx *gin.Context) services.PageRequest {
	req := services.PageRequest{Sort: strings.TrimSpace(ctx.Query("sort"))}
	if p, err := strconv.Atoi(ctx.Query("page")); err == nil && p > 0 {
		req.Page = p
	}
	for _, name := range []string{"page_size", "size", "pageSize"} {
		if s, err := strconv.Atoi(ctx.Query(name)); err == nil && s > 0 {
			req.Size = s
			break
		}
	}
	return req
}

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		return uint(v), true
	case int64:
		return uint(v), true
	case float64:
		return uint(v), true
	default:
		return 0, false
	}
}

// actor builds the caller identity for ownership checks; it answers 401 when there is none.
func actor(ctx *gin.Context) (services.Actor, bool) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return services.Actor{}, false
	}
	return services.Actor{UserID: userID, Admin: ctx.GetBool(middleware.ContextAdminKey)}, true
}

// parseID reads a positive numeric path parameter, answering 400 otherwise.
func parseID(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(ctx.Param(name)), 10, 64)
	if err != nil || id == 0 {
		utils.Fail(ctx, errs.Validation(name, "invalid "+name))
		return 0, false
	}
	return uint(id), true
}

func isMultipart(ctx *gin.Context) bool {
	return strings.HasPrefix(ctx.ContentType(), "multipart/form-data")
}

// bindPayload decodes the request into dst. Multipart requests carry the JSON document in the
// part named part (as a form value or a file) and the images in the file parts named files.
// Plain JSON requests have no images.
func bindPayload(ctx *gin.Context, dst interface{}, part, files string) ([]storage.Upload, bool) {
	if !isMultipart(ctx) {
		if err := ctx.ShouldBindJSON(dst); err != nil {
			utils.Fail(ctx, errs.Validation(part, "invalid request payload"))
			return nil, false
		}
		return nil, true
	}

	if err := ctx.Request.ParseMultipartForm(maxMultipartMemory); err != nil {
		utils.Fail(ctx, errs.Validation(part, "invalid multipart body"))
		return nil, false
	}
	form := ctx.Request.MultipartForm

	raw, err := multipartValue(form, part)
	if err != nil || len(raw) == 0 {
		utils.Fail(ctx, errs.Validation(part, "missing part "+part))
		return nil, false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		utils.Fail(ctx, errs.Validation(part, "invalid "+part))
		return nil, false
	}

	var uploads []storage.Upload
	for _, fh := range form.File[files] {
		uploads = append(uploads, toUpload(fh))
	}
	return uploads, true
}

func firstUpload(ups []storage.Upload) *storage.Upload {
	if len(ups) == 0 {
		return nil
	}
	return &ups[0]
}

func multipartValue(form *multipart.Form, name string) ([]byte, error) {
	if vs := form.Value[name]; len(vs) > 0 {
		return []byte(vs[0]), nil
	}
	fhs := form.File[name]
	if len(fhs) == 0 {
		return nil, nil
	}
	f, err := fhs[0].Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func toUpload(fh *multipart.FileHeader) storage.Upload {
	return storage.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}
