package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dormitory-forms/internal/forms"
	"dormitory-forms/internal/wizard"
	"dormitory-forms/pkg/types"
	"dormitory-forms/pkg/validator"
)

// SetupContractRoutes 合同向导：无状态的完成度、翻页和验证
func SetupContractRoutes(rg *gin.RouterGroup, v *validator.Validator, centuryPrefix string, logger *zap.Logger) {
	g := rg.Group("/contract")
	g.POST("/progress", ContractProgress())
	g.POST("/spread", ContractSpread())
	g.POST("/validate", ContractValidate(v, centuryPrefix, logger))
}

type valuesRequest struct {
	Values types.Values `json:"values"`
}

type spreadRequest struct {
	Index  int    `json:"index" binding:"min=0"`
	Action string `json:"action" binding:"required,oneof=advance retreat seek"`
}

type spreadResponse struct {
	Moved    bool            `json:"moved"`
	Spread   wizard.Spread   `json:"spread"`
	Position wizard.Position `json:"position"`
}

// ContractProgress godoc
// @Summary Completion ratio of the contract wizard
// @Description Required fields depend on the values; bedCount is required for shared rooms.
// @Tags contract
// @Accept json
// @Produce json
// @Param body body valuesRequest true "Current values"
// @Success 200 {object} wizard.Progress
// @Failure 400 {object} ErrorResponse
// @Router /contract/progress [post]
func ContractProgress() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req valuesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, err.Error())
			return
		}
		tracker := wizard.NewTracker(forms.ContractRequired(), req.Values)
		c.JSON(http.StatusOK, tracker.Progress())
	}
}

// ContractSpread godoc
// @Summary Move between two-page spreads
// @Description Seek clamps the index; advance and retreat report whether the spread changed.
// @Tags contract
// @Accept json
// @Produce json
// @Param body body spreadRequest true "Current spread and action"
// @Success 200 {object} spreadResponse
// @Failure 400 {object} ErrorResponse
// @Router /contract/spread [post]
func ContractSpread() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req spreadRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, err.Error())
			return
		}
		ctl, err := wizard.NewController(forms.ContractPages)
		if err != nil {
			abortWithError(c, err)
			return
		}
		ctl.Seek(req.Index)

		moved := false
		switch req.Action {
		case "advance":
			moved = ctl.Advance()
		case "retreat":
			moved = ctl.Retreat()
		}
		c.JSON(http.StatusOK, spreadResponse{
			Moved:    moved,
			Spread:   ctl.Current(),
			Position: ctl.Position(),
		})
	}
}

// ContractValidate godoc
// @Summary Validate contract values
// @Tags contract
// @Accept json
// @Produce json
// @Param body body valuesRequest true "Values"
// @Success 200 {object} validator.Result
// @Failure 400 {object} ErrorResponse
// @Router /contract/validate [post]
func ContractValidate(v *validator.Validator, centuryPrefix string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req valuesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, err.Error())
			return
		}
		schema, err := forms.BuildContractSchema(v, centuryPrefix)
		if err != nil {
			logger.Error("build contract schema", zap.Error(err))
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, schema.Validate(req.Values))
	}
}
