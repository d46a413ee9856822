package server

import "github.com/gin-gonic/gin"

func (s *Server) routes() *gin.Engine {
	router := gin.New()

	router.Use(
		RequestID(),
		Logger(s.log),
		Recovery(s.log),
		CORS(),
		Timeout(s.cfg.RequestTimeout),
		BodyLimit(s.cfg.MaxBodyBytes),
	)

	router.POST("/enhance", s.handleEnhance)
	router.GET("/health", s.handleHealth)
	router.GET("/status", s.handleStatus)

	api := router.Group("/api")
	api.GET("/status", s.handleStatus)
	api.POST("/replicate/predictions", s.handleCreatePrediction)
	api.GET("/replicate/predictions/:id", s.handleGetPrediction)
	api.GET("/replicate/deployments/:owner/:name", s.handleGetDeployment)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(404, errorBody{Error: "Not found"})
	})

	return router
}
