package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/skillswap/store"
)

type upsertUserRequest struct {
	ID            string        `json:"id"`
	Username      string        `json:"username"`
	SkillsOffered []store.Skill `json:"skills_offered"`
	SkillsNeeded  []store.Skill `json:"skills_needed"`
	IsActive      *bool         `json:"is_active"`
}

type userResponse struct {
	ID            string        `json:"id"`
	Username      string        `json:"username"`
	SkillsOffered []store.Skill `json:"skills_offered"`
	SkillsNeeded  []store.Skill `json:"skills_needed"`
	IsActive      bool          `json:"is_active"`
	CreatedTs     int64         `json:"created_ts"`
	UpdatedTs     int64         `json:"updated_ts"`
}

func convertUser(user *store.User) *userResponse {
	return &userResponse{
		ID:            user.ID,
		Username:      user.Username,
		SkillsOffered: user.SkillsOffered,
		SkillsNeeded:  user.SkillsNeeded,
		IsActive:      user.IsActive,
		CreatedTs:     user.CreatedTs,
		UpdatedTs:     user.UpdatedTs,
	}
}

// UpsertUser creates or updates a user with their declared skills.
func (s *APIV1Service) UpsertUser(c echo.Context) error {
	ctx := c.Request().Context()

	var req upsertUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body").SetInternal(err)
	}
	if req.Username == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username is required")
	}
	for _, skill := range append(append([]store.Skill{}, req.SkillsOffered...), req.SkillsNeeded...) {
		if skill.Name == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "every skill requires a name")
		}
	}

	user := &store.User{
		ID:            req.ID,
		Username:      req.Username,
		SkillsOffered: req.SkillsOffered,
		SkillsNeeded:  req.SkillsNeeded,
		IsActive:      true,
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	user, err := s.Store.UpsertUser(ctx, user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to upsert user").SetInternal(err)
	}
	return c.JSON(http.StatusOK, convertUser(user))
}

// GetUser returns one user by id.
func (s *APIV1Service) GetUser(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := s.Store.GetUserByID(ctx, c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to get user").SetInternal(err)
	}
	if user == nil {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	}
	return c.JSON(http.StatusOK, convertUser(user))
}
