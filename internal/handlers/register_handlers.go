package handlers

import (
	portssvc "github.com/accountly/bank_ledger_app/internal/core/ports/services"
	"github.com/accountly/bank_ledger_app/internal/middleware"
	"github.com/accountly/bank_ledger_app/internal/platform/config"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ulule/limiter/v3"
)

// RegisterRoutes sets up all application routes, injecting dependencies using interfaces
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	limiterInstance *limiter.Limiter,
) {
	registerCustomValidators()

	// Health and metrics endpoints stay outside the rate-limited API group.
	r.GET("/health", func(c *gin.Context) {
		c.String(200, "OK")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	setupAPIV1Routes(r, services, limiterInstance)
}

// setupAPIV1Routes configures the /api/v1 group and delegates to specific entity route registrations
func setupAPIV1Routes(
	r *gin.Engine,
	services *portssvc.ServiceContainer,
	limiterInstance *limiter.Limiter,
) {
	v1 := r.Group("/api/v1", cors.Default(), middleware.RateLimit(limiterInstance))

	registerClientRoutes(v1, services.Client, services.Account)
	registerAccountRoutes(v1, services.Account, services.Block)
	registerTransactionRoutes(v1, services.Transaction, services.Reversal)
}

// registerCustomValidators installs binding-level validators used by the DTOs.
func registerCustomValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	// accountnumber: exactly 20 decimal digits.
	_ = v.RegisterValidation("accountnumber", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if len(s) != 20 {
			return false
		}
		for _, r := range s {
			if r < '0' || r > '9' {
				return false
			}
		}
		return true
	})
}
