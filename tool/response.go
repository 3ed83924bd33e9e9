package tool

import (
	"maps"

	"github.com/gin-gonic/gin"
)

func FastReturnError(msg string) gin.H {
	return gin.H{
		"error": msg,
	}
}

func FastReturnSuccess() gin.H {
	return gin.H{
		"status": "ok",
	}
}

// FastReturnStatus returns a body carrying only a status word, e.g. {"status":"cancelled"}.
func FastReturnStatus(status string) gin.H {
	return gin.H{
		"status": status,
	}
}

func FastReturnErrorWithData(msg string, data map[string]any) gin.H {
	resp := gin.H{
		"error": msg,
	}
	maps.Copy(resp, data)
	return resp
}

// FastReturnRedirect tells the web UI to navigate to target.
func FastReturnRedirect(msg, target string) gin.H {
	return gin.H{
		"error":    msg,
		"redirect": target,
	}
}
