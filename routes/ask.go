package routes

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	"medical-rag-chatbot/internal/ai"
	"medical-rag-chatbot/internal/config"
	"medical-rag-chatbot/internal/logger"
	"medical-rag-chatbot/middleware"
	"medical-rag-chatbot/models"
	"medical-rag-chatbot/services"
	"medical-rag-chatbot/utils"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	emptyQuestionMessage = "Please enter a question."
	upstreamErrorMessage = "Sorry, the answer service is unavailable right now. Please try again later."
)

// Asker answers one question. *services.Retriever implements it.
type Asker interface {
	Ask(ctx context.Context, question string) (*models.Answer, error)
	IndexSize() int
}

// LoadTemplates installs the embedded HTML templates on router.
func LoadTemplates(router *gin.Engine) error {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return err
	}
	router.SetHTMLTemplate(tmpl)
	return nil
}

// SetupAskRoutes registers the form, its JSON variant and the health check.
func SetupAskRoutes(router *gin.Engine, cfg *config.Config, asker Asker) {
	limit := middleware.RequestSizeLimit(cfg.MaxFormSize)

	// Question form
	router.GET("/", func(c *gin.Context) {
		c.HTML(http.StatusOK, "index.html", gin.H{})
	})

	router.POST("/", limit, func(c *gin.Context) {
		question := c.PostForm("question")

		answer, err := asker.Ask(c.Request.Context(), question)
		if err != nil {
			status, message := formError(err)
			logger.Warn("Question failed",
				"request_id", middleware.GetRequestID(c),
				"status", status,
				"error", err,
			)
			c.HTML(status, "index.html", gin.H{
				"Question": question,
				"Error":    message,
			})
			return
		}

		c.HTML(http.StatusOK, "index.html", gin.H{
			"Question":  answer.Question,
			"Answer":    answer.Text,
			"NoContext": answer.NoContext,
			"Sources":   answer.Sources,
		})
	})

	// JSON variant of the form
	router.POST("/api/ask", limit, func(c *gin.Context) {
		var req models.AskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "invalid_input", "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		answer, err := asker.Ask(c.Request.Context(), req.Question)
		if err != nil {
			logger.Warn("Question failed", "request_id", middleware.GetRequestID(c), "error", err)
			switch {
			case errors.Is(err, services.ErrEmptyQuestion):
				utils.RespondWithError(c, http.StatusBadRequest, "empty_question", emptyQuestionMessage, nil)
			case errors.Is(err, ai.ErrServiceUnavailable):
				utils.RespondWithError(c, http.StatusServiceUnavailable, "service_unavailable", upstreamErrorMessage, nil)
			default:
				utils.RespondWithBadGateway(c, upstreamErrorMessage)
			}
			return
		}

		c.JSON(http.StatusOK, models.AskResponse{
			Answer:    answer.Text,
			NoContext: answer.NoContext,
			Sources:   answer.Sources,
			LatencyMS: answer.Latency.Milliseconds(),
			RequestID: middleware.GetRequestID(c),
		})
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":        "healthy",
			"timestamp":     time.Now(),
			"index_entries": asker.IndexSize(),
		})
	})

	router.NoRoute(func(c *gin.Context) {
		utils.RespondWithNotFound(c, "Page not found")
	})
}

// formError maps an Ask failure to a status and a message safe to show.
func formError(err error) (int, string) {
	if errors.Is(err, services.ErrEmptyQuestion) {
		return http.StatusBadRequest, emptyQuestionMessage
	}
	return http.StatusBadGateway, upstreamErrorMessage
}
