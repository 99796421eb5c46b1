package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	CtxFirebaseUID = "firebase_uid"
	CtxEmail       = "email"

	HeaderClientID = "X-Client-Id"
	AnonymousOwner = "anonymous"
)

// UserFirebaseUID extracts the Firebase UID from the Gin context
// This is set by FirebaseAuthMiddleware
func UserFirebaseUID(c *gin.Context) string {
	return strings.TrimSpace(c.GetString(CtxFirebaseUID))
}

// Owner scopes sessions and history: the verified Firebase UID, else the
// browser-generated client id, else AnonymousOwner.
func Owner(c *gin.Context) string {
	if uid := UserFirebaseUID(c); uid != "" {
		return "uid:" + uid
	}
	if cid := strings.TrimSpace(c.GetHeader(HeaderClientID)); cid != "" && len(cid) <= 128 {
		return "client:" + cid
	}
	return AnonymousOwner
}
