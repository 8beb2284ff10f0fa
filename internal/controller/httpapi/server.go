// Package httpapi exposes the studio services as a role-gated JSON API with
// server-sent event streams for messaging.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/Freeeeeet/studio_manager/internal/model"
	"github.com/Freeeeeet/studio_manager/internal/service"
	"github.com/Freeeeeet/studio_manager/internal/session"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Authenticator is the auth surface the API needs.
type Authenticator interface {
	SignUp(ctx context.Context, in service.SignUpInput) (*model.Profile, error)
	SignIn(ctx context.Context, email, password string) (string, *session.Session, error)
	Authenticate(ctx context.Context, token string) (*session.Session, error)
	SignOut(ctx context.Context, sess *session.Session) error
	ListStudios(ctx context.Context) ([]model.Studio, error)
	CreateTelegramLink(ctx context.Context, sess *session.Session) (string, error)
}

// Services bundles what the handlers call into.
type Services struct {
	Auth       Authenticator
	Studio     *service.StudioService
	Classes    *service.ClassService
	Attendance *service.AttendanceService
	Messaging  *service.MessagingService
	Invoices   *service.InvoiceService
	Channels   *service.ChannelService
}

type Options struct {
	// SignInPerMinute bounds sign-in attempts per client address.
	SignInPerMinute int
	// RequestTimeout bounds every non-streaming request.
	RequestTimeout time.Duration
	// Debug switches gin into debug mode.
	Debug bool
}

type Server struct {
	svc     Services
	opts    Options
	limiter *ipLimiter
	logger  *zap.Logger
	engine  *gin.Engine
}

func NewServer(svc Services, opts Options, logger *zap.Logger) *Server {
	if opts.SignInPerMinute <= 0 {
		opts.SignInPerMinute = 10
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	if opts.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		svc:     svc,
		opts:    opts,
		limiter: newIPLimiter(opts.SignInPerMinute),
		logger:  logger,
		engine:  gin.New(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	r := s.engine
	r.Use(requestID(), s.recovery(), s.accessLog())
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	api := r.Group("/api")

	public := api.Group("", s.timeout())
	{
		public.POST("/auth/signup", s.signUp)
		public.POST("/auth/signin", s.signInLimit(), s.signIn)
		public.GET("/studios", s.listStudios)
	}

	authed := api.Group("", s.authRequired())

	account := authed.Group("", s.timeout())
	{
		account.POST("/auth/signout", s.signOut)
		account.GET("/me", s.me)
		account.POST("/me/telegram-link", s.telegramLink)
		account.GET("/reference", s.reference)
	}

	classes := authed.Group("", s.timeout(), requireSection(model.SectionClasses))
	{
		classes.GET("/classes", s.listClasses)
		classes.GET("/classes/week", s.weekCalendar)
		classes.GET("/classes/week.png", s.weekImage)
		classes.GET("/classes/preview", s.previewWeek)
		classes.GET("/classes/day", s.instancesOn)
		classes.POST("/classes", s.createClass)
		classes.PATCH("/classes/:id", s.editClass)
		classes.DELETE("/classes/:id", s.deleteClass)

		classes.GET("/instances/:id/attendance", s.roster)
		classes.PUT("/instances/:id/attendance", s.saveAttendance)
		classes.GET("/instances/:id/attendance.xlsx", s.exportAttendance)
	}

	messages := authed.Group("", s.timeout(), requireSection(model.SectionMessages))
	{
		messages.GET("/conversations", s.listConversations)
		messages.POST("/conversations", s.createConversation)
		messages.GET("/conversations/:id/messages", s.listMessages)
		messages.POST("/conversations/:id/messages", s.sendMessage)
		messages.POST("/conversations/:id/read", s.markRead)
		messages.GET("/contacts", s.contacts)
	}

	// Streams stay open for as long as the client listens.
	streams := authed.Group("/realtime", requireSection(model.SectionMessages))
	{
		streams.GET("/conversations", s.streamConversations)
		streams.GET("/conversations/:id", s.streamMessages)
	}

	channels := authed.Group("", s.timeout(), requireSection(model.SectionChannels))
	{
		channels.GET("/channels", s.listChannels)
		channels.POST("/channels", s.createChannel)
		channels.GET("/channels/:id/posts", s.listPosts)
		channels.POST("/channels/:id/posts", s.createPost)
	}

	studio := authed.Group("", s.timeout(), requireSection(model.SectionStudio))
	{
		studio.PUT("/studio", s.updateStudio)
		studio.GET("/parents", s.listParents)
		studio.POST("/locations", s.createLocation)
		studio.DELETE("/locations/:id", s.deleteLocation)
	}

	authed.GET("/teachers", s.timeout(), requireSection(model.SectionTeachers), s.listTeachers)

	students := authed.Group("/students", s.timeout(), requireSection(model.SectionStudents))
	{
		students.GET("", s.listStudents)
		students.POST("", s.addStudent)
	}

	myStudents := authed.Group("/my-students", s.timeout(), requireSection(model.SectionMyStudents))
	{
		myStudents.GET("", s.listStudents)
		myStudents.POST("", s.addStudent)
	}

	invoices := authed.Group("/invoices", s.timeout(), requireSection(model.SectionInvoices))
	{
		invoices.GET("", s.listInvoices)
		invoices.POST("", s.createInvoice)
		invoices.GET("/counts", s.invoiceCounts)
		invoices.GET("/suggestions", s.suggestItems)
		invoices.GET("/:id", s.getInvoice)
		invoices.PATCH("/:id/status", s.updateInvoiceStatus)
		invoices.GET("/:id/export.xlsx", s.exportInvoice)
	}

	authed.GET("/payments", s.timeout(), requireSection(model.SectionPayments), s.listPayments)
}
