package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dormitory-forms/internal/prefs"
)

// SetupPreferenceRoutes 界面偏好（如侧边栏展开状态）
func SetupPreferenceRoutes(rg *gin.RouterGroup, store prefs.Store) {
	g := rg.Group("/preferences")
	g.GET("/:key", GetPreference(store))
	g.PUT("/:key", PutPreference(store))
}

type preferenceBody struct {
	Value string `json:"value"`
}

type preferenceResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// GetPreference godoc
// @Summary Read a preference
// @Tags preferences
// @Produce json
// @Param key path string true "Preference key"
// @Param default query string false "Value returned when the key is not stored"
// @Success 200 {object} preferenceResponse
// @Failure 400 {object} ErrorResponse
// @Router /preferences/{key} [get]
func GetPreference(store prefs.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Param("key")
		value, err := store.Get(c.Request.Context(), key, c.Query("default"))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, preferenceResponse{Key: key, Value: value})
	}
}

// PutPreference godoc
// @Summary Store a preference
// @Tags preferences
// @Accept json
// @Produce json
// @Param key path string true "Preference key"
// @Param body body preferenceBody true "Value"
// @Success 200 {object} preferenceResponse
// @Failure 400 {object} ErrorResponse
// @Router /preferences/{key} [put]
func PutPreference(store prefs.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Param("key")
		var body preferenceBody
		if err := c.ShouldBindJSON(&body); err != nil {
			writeError(c, http.StatusBadRequest, err.Error())
			return
		}
		if err := store.Set(c.Request.Context(), key, body.Value); err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, preferenceResponse{Key: key, Value: body.Value})
	}
}
