package httpapi

import (
	"fmt"
	"net/http"

	"github.com/Freeeeeet/studio_manager/internal/model"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type attendanceRequest struct {
	Marks []model.AttendanceMark `json:"marks"`
}

func (s *Server) roster(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	sheet, err := s.svc.Attendance.GetRoster(c.Request.Context(), currentSession(c), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sheet)
}

// saveAttendance stores the marks and answers with the re-read roster.
func (s *Server) saveAttendance(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req attendanceRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, sess := c.Request.Context(), currentSession(c)
	if err := s.svc.Attendance.SaveAttendance(ctx, sess, id, req.Marks); err != nil {
		s.fail(c, err)
		return
	}
	sheet, err := s.svc.Attendance.GetRoster(ctx, sess, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sheet)
}

func (s *Server) exportAttendance(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	data, err := s.svc.Attendance.ExportAttendance(c.Request.Context(), currentSession(c), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	attachment(c, fmt.Sprintf("attendance-%s.xlsx", id), data)
}

func attachment(c *gin.Context, filename string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}
