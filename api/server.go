package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"linkhub.app/breaker"
	"linkhub.app/cache"
	"linkhub.app/config"
	linkerr "linkhub.app/errors"
	"linkhub.app/metrics"
	"linkhub.app/models"
	"linkhub.app/pkg/logger"
	"linkhub.app/ratelimit"
	"linkhub.app/service"
	"linkhub.app/shutdown"
)

// Limiters groups the per-policy limiter instances used by middleware.
// The login policy lives inside AuthService, keyed separately.
type Limiters struct {
	API    *ratelimit.Limiter
	Signup *ratelimit.Limiter
	Click  *ratelimit.Limiter
}

// ServerOptions carries everything the server needs; built once in app.
type ServerOptions struct {
	DB             *gorm.DB
	Config         *config.Config
	ProfileService service.ProfileServiceInterface
	AuthService    service.AuthServiceInterface
	AIService      service.AIServiceInterface
	Cache          cache.Store
	Breaker        *breaker.Breaker
	Limiters       Limiters
	Registry       *metrics.Registry
	Logger         *logger.Logger
	Inflight       *shutdown.InflightTracker
}

// Server represents the HTTP server and API handler
type Server struct {
	router         *gin.Engine
	db             *gorm.DB
	config         *config.Config
	profileService service.ProfileServiceInterface
	authService    service.AuthServiceInterface
	aiService      service.AIServiceInterface
	cache          cache.Store
	breaker        *breaker.Breaker
	limiters       Limiters
	registry       *metrics.Registry
	log            *logger.Logger
	inflight       *shutdown.InflightTracker
	httpServer     *http.Server
	startTime      time.Time
}

// NewServer creates and configures a new HTTP server
func NewServer(opts ServerOptions) *Server {
	router := gin.New()

	server := &Server{
		router:         router,
		db:             opts.DB,
		config:         opts.Config,
		profileService: opts.ProfileService,
		authService:    opts.AuthService,
		aiService:      opts.AIService,
		cache:          opts.Cache,
		breaker:        opts.Breaker,
		limiters:       opts.Limiters,
		registry:       opts.Registry,
		log:            opts.Logger,
		inflight:       opts.Inflight,
		startTime:      time.Now(),
	}

	router.Use(server.correlationMiddleware())
	router.Use(server.inflightMiddleware())
	router.Use(server.metricsMiddleware())
	router.Use(server.recoveryMiddleware())

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.health)
	s.router.GET("/health/ready", s.healthReady)
	s.router.GET("/health/live", s.healthLive)
	s.router.GET("/metrics", s.metricsEndpoint)

	s.router.GET("/r/:linkID", s.rateLimitMiddleware(s.limiters.Click), s.redirectLink)

	api := s.router.Group("/api", s.rateLimitMiddleware(s.limiters.API))
	{
		api.GET("/profiles/:handle", s.getProfile)
		api.POST("/profiles", s.createProfile)
		api.POST("/profiles/:handle/links", s.addLink)
		api.POST("/profiles/:handle/bio/suggest", s.suggestBio)
		api.POST("/auth/login", s.login)
		api.POST("/auth/signup", s.rateLimitMiddleware(s.limiters.Signup), s.signup)
	}
}

// Start begins the HTTP server
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.Server.Port),
		Handler: s.router,
	}
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close stops accepting new connections. In-flight requests are drained by
// the shutdown coordinator through the inflight tracker.
func (s *Server) Close() error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Close()
}

// GetRouter returns the router for testing purposes
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

func (s *Server) getProfile(c *gin.Context) {
	handle := c.Param("handle")

	profile, err := s.profileService.GetProfile(handle)
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (s *Server) createProfile(c *gin.Context) {
	var req models.CreateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.handleError(c, linkerr.NewValidationError("invalid request format"))
		return
	}

	profile, err := s.profileService.CreateProfile(&req)
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, profile)
}

func (s *Server) addLink(c *gin.Context) {
	handle := c.Param("handle")

	var req models.CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.handleError(c, linkerr.NewValidationError("invalid request format"))
		return
	}

	link, err := s.profileService.AddLink(handle, &req)
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, link)
}

func (s *Server) redirectLink(c *gin.Context) {
	linkID := c.Param("linkID")

	url, err := s.profileService.RecordClick(linkID)
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.Redirect(http.StatusFound, url)
}

func (s *Server) login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.handleError(c, linkerr.NewValidationError("invalid request format"))
		return
	}

	user, err := s.authService.Login(&req, c.ClientIP())
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "login successful", "user_id": user.ID})
}

func (s *Server) signup(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.handleError(c, linkerr.NewValidationError("invalid request format"))
		return
	}

	user, err := s.authService.Signup(&req)
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "account created", "user_id": user.ID})
}

func (s *Server) suggestBio(c *gin.Context) {
	var req models.BioSuggestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.handleError(c, linkerr.NewValidationError("invalid request format"))
		return
	}

	suggestion, err := s.aiService.SuggestBio(c.Request.Context(), req.Keywords)
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, suggestion)
}

// handleError maps application errors to HTTP responses. Internal detail
// is logged server-side and never reaches the client.
func (s *Server) handleError(c *gin.Context, err error) {
	var appErr *linkerr.AppError
	var statusCode int
	var message string

	if errors.As(err, &appErr) {
		s.registry.RecordError(string(appErr.Type))

		switch appErr.Type {
		case linkerr.ValidationError:
			statusCode = http.StatusBadRequest
			message = appErr.Message
		case linkerr.NotFoundError:
			statusCode = http.StatusNotFound
			message = appErr.Message
		case linkerr.AlreadyExistsError:
			statusCode = http.StatusConflict
			message = appErr.Message
		case linkerr.UnauthorizedError:
			statusCode = http.StatusUnauthorized
			message = appErr.Message
		case linkerr.RateLimitError:
			statusCode = http.StatusTooManyRequests
			message = appErr.Message
			c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(appErr.RetryAfter)))
		case linkerr.AccountLockedError:
			statusCode = http.StatusLocked
			message = appErr.Message
		case linkerr.CircuitOpenError, linkerr.UpstreamTimeoutError, linkerr.UpstreamFailureError:
			statusCode = http.StatusServiceUnavailable
			message = "Service temporarily degraded, please try again later"
		case linkerr.DatabaseError:
			statusCode = http.StatusInternalServerError
			message = "Internal server error"
		default:
			statusCode = http.StatusInternalServerError
			message = "Internal server error"
		}

		if statusCode >= http.StatusInternalServerError {
			s.requestLogger(c).Error("request failed", map[string]interface{}{
				"type":  string(appErr.Type),
				"error": appErr.Error(),
			})
		}
	} else {
		s.registry.RecordError(string(linkerr.InternalError))
		statusCode = http.StatusInternalServerError
		message = "Internal server error"
		s.requestLogger(c).Error("request failed with unclassified error", map[string]interface{}{
			"error": err.Error(),
		})
	}

	c.JSON(statusCode, models.ErrorResponse{Error: message})
}

func retryAfterSeconds(d time.Duration) int {
	secs := int(d.Round(time.Second).Seconds())
	if secs < 1 {
		secs = 1
	}
	return secs
}
