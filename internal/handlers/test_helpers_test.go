package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/pnp-remodeling/pnp-remodeling-api/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)

	if err := logger.Initialize(logger.Config{
		Level:       "error",
		Environment: "development",
	}); err != nil {
		panic(err)
	}
}
