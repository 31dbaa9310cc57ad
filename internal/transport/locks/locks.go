package locks

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	lockstatussvc "github.com/alanyang/xactlock/internal/service/lockstatus"
)

func Register(rg *gin.RouterGroup, svc *lockstatussvc.Service) {
	rg.GET("", listLocks(svc))
	rg.GET("/:discriminator", getLock(svc))
}

func listLocks(svc *lockstatussvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		holders, err := svc.List(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"namespace": int64(svc.Namespace()),
			"locks":     holders,
		})
	}
}

func getLock(svc *lockstatussvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		d, err := strconv.ParseInt(c.Param("discriminator"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid discriminator"})
			return
		}

		st, err := svc.Get(c.Request.Context(), int32(d))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, st)
	}
}
