// Profile endpoints.
//
//   - GET  /profile          (identity + backend status, ETag)
//   - POST /profile/reload
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-docchat-client/internal/services"
)

// GetProfile godoc
// @ID          getProfile
// @Summary     Identity and system status
// @Tags        Profile
// @Produce     json
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Success     200  {object}  services.ProfileState
// @Success     304  {string}  string  "Not Modified"
// @Router      /profile [get]
func (h *Handlers) GetProfile(c *gin.Context) {
	st := h.profile.State()
	state(c, services.ComponentProfile, st.Version, st)
}

// ReloadProfile godoc
// @ID          reloadProfile
// @Summary     Fetch the system status again
// @Tags        Profile
// @Produce     json
// @Success     200  {object}  services.ProfileState
// @Failure     401  {object}  handlers.ErrorResponse
// @Failure     502  {object}  handlers.ErrorResponse
// @Router      /profile/reload [post]
func (h *Handlers) ReloadProfile(c *gin.Context) {
	if err := h.profile.Load(c.Request.Context()); err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, h.profile.State())
}
