package handler

import (
	"io"
	"net/http"
	"strings"

	"ucsattendance/internal/apierror"
	"ucsattendance/internal/service"

	"github.com/gin-gonic/gin"
)

// maxImportBytes caps the CSV body accepted by Import.
const maxImportBytes = 5 << 20

type RosterHandler struct{ svc service.RosterService }

func NewRosterHandler(svc service.RosterService) *RosterHandler { return &RosterHandler{svc: svc} }

// List godoc
// @Summary Lists the roster, most recently active first
// @Tags roster
// @Produce json
// @Success 200 {array} dto.PersonResponse
// @Failure 500 {object} apierror.APIError
// @Router /v1/roster [get]
func (h *RosterHandler) List(c *gin.Context) {
	resp, err := h.svc.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Import godoc
// @Summary Upserts roster entries from CSV
// @Description Rows: external_id,display_name[,biometric_token]. Raw text/csv body or multipart field "file".
// @Tags roster
// @Accept text/csv
// @Produce json
// @Success 200 {object} dto.RosterImportResponse
// @Failure 400 {object} apierror.APIError
// @Router /v1/roster/import [post]
func (h *RosterHandler) Import(c *gin.Context) {
	data, err := readCSVBody(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	resp, err := h.svc.Import(c.Request.Context(), data)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func readCSVBody(c *gin.Context) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes)
	if strings.Contains(c.ContentType(), "multipart/form-data") {
		fh, err := c.FormFile("file")
		if err != nil {
			return nil, err
		}
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(f)
	}
	return io.ReadAll(c.Request.Body)
}
