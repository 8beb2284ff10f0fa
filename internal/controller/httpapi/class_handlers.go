package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Freeeeeet/studio_manager/internal/model"
	"github.com/Freeeeeet/studio_manager/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// classChangesRequest is the wire form of model.ClassChanges with the end
// date as YYYY-MM-DD.
type classChangesRequest struct {
	Name       *string          `json:"name"`
	TeacherID  *uuid.UUID       `json:"teacher_id"`
	LocationID *uuid.UUID       `json:"location_id"`
	StartTime  *model.TimeOfDay `json:"start_time"`
	EndTime    *model.TimeOfDay `json:"end_time"`
	StudentIDs *[]uuid.UUID     `json:"student_ids"`
	DayOfWeek  *time.Weekday    `json:"day_of_week"`
	EndDate    *string          `json:"end_date"`
}

func (r classChangesRequest) changes() (model.ClassChanges, error) {
	ch := model.ClassChanges{
		Name:       r.Name,
		TeacherID:  r.TeacherID,
		LocationID: r.LocationID,
		StartTime:  r.StartTime,
		EndTime:    r.EndTime,
		StudentIDs: r.StudentIDs,
		DayOfWeek:  r.DayOfWeek,
	}
	if r.DayOfWeek != nil && (*r.DayOfWeek < time.Sunday || *r.DayOfWeek > time.Saturday) {
		return ch, &service.ValidationError{Field: "day_of_week", Message: "day of week must be between 0 (Sunday) and 6 (Saturday)"}
	}
	if r.EndDate != nil {
		end, err := service.ParseDate("end_date", *r.EndDate)
		if err != nil {
			return ch, err
		}
		ch.EndDate = &end
	}
	return ch, nil
}

// dayQuery reads a YYYY-MM-DD query parameter, defaulting to today.
func dayQuery(c *gin.Context, name string) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return time.Now().UTC(), nil
	}
	return service.ParseDate(name, raw)
}

func (s *Server) listClasses(c *gin.Context) {
	classes, err := s.svc.Classes.ListClasses(c.Request.Context(), currentSession(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list(classes))
}

func (s *Server) weekCalendar(c *gin.Context) {
	day, err := dayQuery(c, "start")
	if err != nil {
		s.fail(c, err)
		return
	}
	week, err := s.svc.Classes.WeekCalendar(c.Request.Context(), currentSession(c), day)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, week)
}

func (s *Server) weekImage(c *gin.Context) {
	day, err := dayQuery(c, "start")
	if err != nil {
		s.fail(c, err)
		return
	}
	img, err := s.svc.Classes.RenderWeek(c.Request.Context(), currentSession(c), day)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", img)
}

func (s *Server) previewWeek(c *gin.Context) {
	day, err := dayQuery(c, "start")
	if err != nil {
		s.fail(c, err)
		return
	}
	week, err := s.svc.Classes.PreviewWeek(c.Request.Context(), currentSession(c), day)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, week)
}

func (s *Server) instancesOn(c *gin.Context) {
	day, err := dayQuery(c, "date")
	if err != nil {
		s.fail(c, err)
		return
	}
	instances, err := s.svc.Classes.InstancesOn(c.Request.Context(), currentSession(c), day)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list(instances))
}

func (s *Server) createClass(c *gin.Context) {
	var in service.ClassInput
	if !bindJSON(c, &in) {
		return
	}
	class, err := s.svc.Classes.CreateClass(c.Request.Context(), currentSession(c), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, class)
}

func (s *Server) editClass(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	date, err := service.ParseDate("date", c.Query("date"))
	if err != nil {
		s.fail(c, err)
		return
	}
	var req classChangesRequest
	if !bindJSON(c, &req) {
		return
	}
	ch, err := req.changes()
	if err != nil {
		s.fail(c, err)
		return
	}

	affected, err := s.svc.Classes.EditClass(c.Request.Context(), currentSession(c), id, date, c.Query("scope"), ch)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"affected": affected})
}

func (s *Server) deleteClass(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	date, err := service.ParseDate("date", c.Query("date"))
	if err != nil {
		s.fail(c, err)
		return
	}
	keep := false
	if raw := c.Query("keep_template"); raw != "" {
		keep, err = strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, "keep_template must be true or false")
			return
		}
	}

	removed, err := s.svc.Classes.DeleteClass(c.Request.Context(), currentSession(c), id, date, c.Query("scope"), keep)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}
