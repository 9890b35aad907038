package handler

import (
	"bytes"
	"net/http"

	"ucsattendance/internal/apierror"
	"ucsattendance/internal/dto"
	"ucsattendance/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

type AttendanceHandler struct{ svc service.AttendanceService }

func NewAttendanceHandler(svc service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{svc: svc}
}

// CheckIn godoc
// @Summary Opens attendance sessions
// @Description Accepts a JSON array (batch, always 200 with per-element results, invalid elements included) or a single object (422 on field validation failure).
// @Tags attendance
// @Accept json
// @Produce json
// @Param body body []dto.CheckInRequest true "Check-in requests"
// @Success 200 {array} dto.CheckInSuccess
// @Failure 400 {object} dto.ResultError
// @Failure 404 {object} dto.ResultError
// @Failure 500 {object} apierror.APIError
// @Router /v1/attendance/checkin [post]
func (h *AttendanceHandler) CheckIn(c *gin.Context) {
	reqs, single, ok := decodeBatch[dto.CheckInRequest](c)
	if !ok || (single && !validateAll(c, reqs)) {
		return
	}
	results, err := h.svc.CheckIn(c.Request.Context(), reqs)
	if err != nil {
		fail(c, err)
		return
	}
	if single {
		writeSingle(c, results[0])
		return
	}
	c.JSON(http.StatusOK, results)
}

// CheckOut godoc
// @Summary Closes attendance sessions
// @Description Accepts a JSON array (batch, always 200 with per-element results, invalid elements included) or a single object (422 on field validation failure).
// @Tags attendance
// @Accept json
// @Produce json
// @Param body body []dto.CheckOutRequest true "Check-out requests"
// @Success 200 {array} dto.CheckOutSuccess
// @Failure 400 {object} dto.ResultError
// @Failure 404 {object} dto.ResultError
// @Failure 500 {object} apierror.APIError
// @Router /v1/attendance/checkout [post]
func (h *AttendanceHandler) CheckOut(c *gin.Context) {
	reqs, single, ok := decodeBatch[dto.CheckOutRequest](c)
	if !ok || (single && !validateAll(c, reqs)) {
		return
	}
	results, err := h.svc.CheckOut(c.Request.Context(), reqs)
	if err != nil {
		fail(c, err)
		return
	}
	if single {
		writeSingle(c, results[0])
		return
	}
	c.JSON(http.StatusOK, results)
}

// ListActive godoc
// @Summary Lists open attendance sessions
// @Tags attendance
// @Produce json
// @Success 200 {array} dto.ActiveSessionResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/attendance/active [get]
func (h *AttendanceHandler) ListActive(c *gin.Context) {
	resp, err := h.svc.ListActive(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	if len(resp) == 0 {
		c.JSON(http.StatusNotFound, apierror.New("No active check-ins found"))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// decodeBatch accepts either a JSON array of T or a single T object and
// reports which form was sent. It writes the 400 response itself on failure.
func decodeBatch[T any](c *gin.Context) (reqs []T, single bool, ok bool) {
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Could not read request body"))
		return nil, false, false
	}
	body := bytes.TrimSpace(raw)
	if len(body) == 0 {
		fail(c, service.ErrEmptyBatch)
		return nil, false, false
	}

	if body[0] == '[' {
		if err := binding.JSON.BindBody(body, &reqs); err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("Invalid JSON: "+err.Error()))
			return nil, false, false
		}
		if len(reqs) == 0 {
			fail(c, service.ErrEmptyBatch)
			return nil, false, false
		}
		return reqs, false, true
	}

	var one T
	if err := binding.JSON.BindBody(body, &one); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Invalid JSON: "+err.Error()))
		return nil, false, false
	}
	return []T{one}, true, true
}

// writeSingle renders the single-item form: the success payload with 200, or
// the failure payload with the status its domain error maps to.
func writeSingle(c *gin.Context, result any) {
	if re, ok := result.(*dto.ResultError); ok {
		c.JSON(statusFor(re.Err), re)
		return
	}
	c.JSON(http.StatusOK, result)
}
