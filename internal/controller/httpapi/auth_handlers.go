package httpapi

import (
	"net/http"

	"github.com/Freeeeeet/studio_manager/internal/model"
	"github.com/Freeeeeet/studio_manager/internal/service"
	"github.com/Freeeeeet/studio_manager/internal/session"
	"github.com/gin-gonic/gin"
)

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token    string           `json:"token,omitempty"`
	Session  *session.Session `json:"session"`
	Sections []model.Section  `json:"sections"`
}

func (s *Server) signUp(c *gin.Context) {
	var in service.SignUpInput
	if !bindJSON(c, &in) {
		return
	}
	profile, err := s.svc.Auth.SignUp(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, profile)
}

func (s *Server) signIn(c *gin.Context) {
	var in signInRequest
	if !bindJSON(c, &in) {
		return
	}
	token, sess, err := s.svc.Auth.SignIn(c.Request.Context(), in.Email, in.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse{
		Token:    token,
		Session:  sess,
		Sections: model.SectionsFor(sess.Role),
	})
}

func (s *Server) signOut(c *gin.Context) {
	if err := s.svc.Auth.SignOut(c.Request.Context(), currentSession(c)); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listStudios(c *gin.Context) {
	studios, err := s.svc.Auth.ListStudios(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list(studios))
}

func (s *Server) me(c *gin.Context) {
	sess := currentSession(c)
	c.JSON(http.StatusOK, sessionResponse{Session: sess, Sections: model.SectionsFor(sess.Role)})
}

func (s *Server) telegramLink(c *gin.Context) {
	code, err := s.svc.Auth.CreateTelegramLink(c.Request.Context(), currentSession(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"code": code, "command": "/start " + code})
}

func (s *Server) reference(c *gin.Context) {
	data, err := s.svc.Studio.ReferenceData(c.Request.Context(), currentSession(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}
