package routes

import (
	"github.com/gin-gonic/gin"

	authmw "github.com/fixitnow/fixitnow-backend/internal/auth/middleware"
	diaghttp "github.com/fixitnow/fixitnow-backend/internal/diagnosis/http"
)

type V1Deps struct {
	Diagnosis *diaghttp.Handler
	// Verifier enables Firebase token checks when set.
	Verifier     authmw.TokenVerifier
	AuthRequired bool
}

func RegisterV1(api *gin.RouterGroup, dep V1Deps) {
	diagnosis := api.Group("/diagnosis")
	if dep.Verifier != nil {
		diagnosis.Use(authmw.FirebaseAuthMiddleware(dep.Verifier, dep.AuthRequired))
	}
	dep.Diagnosis.Register(diagnosis)
}
