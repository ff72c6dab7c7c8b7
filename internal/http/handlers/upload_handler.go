// Upload batch endpoints.
//
//   - GET    /upload                (pending files, capacity, ETag)
//   - POST   /upload/files          (multipart "files", appended to the batch)
//   - DELETE /upload/files/{index}
//   - POST   /upload/submit
package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-docchat-client/internal/domain"
	"github.com/tbourn/go-docchat-client/internal/services"
	"github.com/tbourn/go-docchat-client/internal/utils"
)

// AddFilesResponse reports how many of the posted files fit in the batch.
type AddFilesResponse struct {
	Accepted int `json:"accepted" example:"2"`
	Rejected int `json:"rejected" example:"0"`
}

// GetUpload godoc
// @ID          getUpload
// @Summary     Upload batch
// @Tags        Upload
// @Produce     json
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Success     200  {object}  services.UploadState
// @Success     304  {string}  string  "Not Modified"
// @Router      /upload [get]
func (h *Handlers) GetUpload(c *gin.Context) {
	st := h.upload.State()
	state(c, services.ComponentUpload, st.Version, st)
}

// AddFiles godoc
// @ID          addFiles
// @Summary     Add files to the batch
// @Description Files beyond the remaining capacity are dropped; the response says how many.
// @Tags        Upload
// @Accept      multipart/form-data
// @Produce     json
// @Param       files  formData  file  true  "One or more files"
// @Success     200    {object}  handlers.AddFilesResponse
// @Failure     400    {object}  handlers.ErrorResponse
// @Failure     413    {object}  handlers.ErrorResponse  "Request too large"
// @Router      /upload/files [post]
func (h *Handlers) AddFiles(c *gin.Context) {
	if h.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)
	}
	form, err := c.MultipartForm()
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			fail(c, http.StatusRequestEntityTooLarge, ErrCodeBadRequest, "upload too large")
			return
		}
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "expected multipart form with files")
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "no files in form field \"files\"")
		return
	}
	// Parts that cannot fit are counted, not read.
	take := min(len(headers), max(h.upload.State().Remaining, 0))
	files := make([]domain.PendingFile, 0, take)
	for _, fh := range headers[:take] {
		f, err := readPart(fh)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "cannot read "+fh.Filename)
			return
		}
		files = append(files, f)
	}
	n := h.upload.AddFiles(files)
	ok(c, http.StatusOK, AddFilesResponse{Accepted: n, Rejected: len(headers) - n})
}

// openPart is swapped in tests.
var openPart = func(fh *multipart.FileHeader) (multipart.File, error) { return fh.Open() }

func readPart(fh *multipart.FileHeader) (domain.PendingFile, error) {
	rc, err := openPart(fh)
	if err != nil {
		return domain.PendingFile{}, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return domain.PendingFile{}, err
	}
	return domain.PendingFile{
		Name:        fh.Filename,
		Size:        int64(len(data)),
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// RemoveFile godoc
// @ID          removeFile
// @Summary     Remove a pending file
// @Tags        Upload
// @Param       index  path  int  true  "Position in the batch (0-based)"
// @Success     204
// @Failure     400  {object}  handlers.ErrorResponse
// @Router      /upload/files/{index} [delete]
func (h *Handlers) RemoveFile(c *gin.Context) {
	if err := h.upload.RemoveFile(utils.ParseIndex(c.Param("index"))); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// SubmitUpload godoc
// @ID          submitUpload
// @Summary     Upload the batch
// @Description Sends every pending file in one request. On success the batch is cleared and a document refresh is scheduled; on failure the batch is kept.
// @Tags        Upload
// @Produce     json
// @Success     200  {object}  domain.UploadResult
// @Success     204  "Nothing to upload"
// @Failure     409  {object}  handlers.ErrorResponse  "An upload is already in progress"
// @Failure     502  {object}  handlers.ErrorResponse
// @Router      /upload/submit [post]
func (h *Handlers) SubmitUpload(c *gin.Context) {
	res, err := h.upload.Submit(c.Request.Context())
	switch {
	case err != nil:
		failErr(c, err)
	case res == nil:
		noContent(c)
	default:
		ok(c, http.StatusOK, res)
	}
}
