package api

import (
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

//go:embed templates/*.html
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"timestamp": func(t time.Time) string { return t.Format("2006-01-02 15:04") },
}

// Templates parses the embedded HTML templates.
func Templates() *template.Template {
	return template.Must(template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html"))
}

// NewRouter registers every route on a fresh engine. pageCache wraps the
// HTML conversation view; extra middleware runs on every route.
func NewRouter(h *Handler, pageCache gin.HandlerFunc, middleware ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware...)
	r.SetHTMLTemplate(Templates())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/conversation", pageCache, h.ConversationView)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/users", h.CreateUser)
		v1.GET("/users/:id/notifications", h.ListNotifications)
		v1.POST("/users/:id/notifications/:nid/read", h.MarkNotificationRead)

		v1.POST("/messages", h.SendMessage)
		v1.GET("/messages/:id", h.GetMessage)
		v1.PATCH("/messages/:id", h.EditMessage)
		v1.DELETE("/messages/:id", h.DeleteMessage)
		v1.GET("/messages/:id/history", h.MessageHistory)

		v1.GET("/conversation", h.Conversation)

		v1.POST("/dispatcher/start", h.StartDispatcher)
		v1.POST("/dispatcher/stop", h.StopDispatcher)
	}
	return r
}
