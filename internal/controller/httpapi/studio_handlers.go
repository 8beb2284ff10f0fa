package httpapi

import (
	"net/http"

	"github.com/Freeeeeet/studio_manager/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type studentRequest struct {
	Name        string     `json:"name"`
	DateOfBirth string     `json:"date_of_birth"`
	ParentID    *uuid.UUID `json:"parent_id"`
}

type postRequest struct {
	Content string `json:"content"`
}

func (s *Server) updateStudio(c *gin.Context) {
	var in service.StudioInput
	if !bindJSON(c, &in) {
		return
	}
	studio, err := s.svc.Studio.UpdateStudio(c.Request.Context(), currentSession(c), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, studio)
}

func (s *Server) createLocation(c *gin.Context) {
	var in service.LocationInput
	if !bindJSON(c, &in) {
		return
	}
	loc, err := s.svc.Studio.CreateLocation(c.Request.Context(), currentSession(c), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, loc)
}

func (s *Server) deleteLocation(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := s.svc.Studio.DeleteLocation(c.Request.Context(), currentSession(c), id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listTeachers(c *gin.Context) {
	teachers, err := s.svc.Studio.ListTeachers(c.Request.Context(), currentSession(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list(teachers))
}

func (s *Server) listParents(c *gin.Context) {
	parents, err := s.svc.Studio.ListParents(c.Request.Context(), currentSession(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list(parents))
}

func (s *Server) listStudents(c *gin.Context) {
	students, err := s.svc.Studio.ListStudents(c.Request.Context(), currentSession(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list(students))
}

func (s *Server) addStudent(c *gin.Context) {
	var req studentRequest
	if !bindJSON(c, &req) {
		return
	}
	in := service.StudentInput{Name: req.Name, ParentID: req.ParentID}
	if req.DateOfBirth != "" {
		dob, err := service.ParseDate("date_of_birth", req.DateOfBirth)
		if err != nil {
			s.fail(c, err)
			return
		}
		in.DateOfBirth = &dob
	}

	student, err := s.svc.Studio.AddStudent(c.Request.Context(), currentSession(c), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, student)
}

func (s *Server) listChannels(c *gin.Context) {
	chs, err := s.svc.Channels.ListChannels(c.Request.Context(), currentSession(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list(chs))
}

func (s *Server) createChannel(c *gin.Context) {
	var in service.ChannelInput
	if !bindJSON(c, &in) {
		return
	}
	ch, err := s.svc.Channels.CreateChannel(c.Request.Context(), currentSession(c), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, ch)
}

func (s *Server) listPosts(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	posts, err := s.svc.Channels.ListPosts(c.Request.Context(), currentSession(c), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list(posts))
}

func (s *Server) createPost(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req postRequest
	if !bindJSON(c, &req) {
		return
	}
	post, err := s.svc.Channels.CreatePost(c.Request.Context(), currentSession(c), id, req.Content)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}
