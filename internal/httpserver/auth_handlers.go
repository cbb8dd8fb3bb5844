package httpserver

import (
	"net/http"

	"teamhub/internal/domain"
	"teamhub/internal/service"
)

type registerRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type meResponse struct {
	*domain.User
	Permissions []string `json:"permissions"`
}

// @Summary      Register a new user
// @Description  Register a new user and return an access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body registerRequest true "Register input"
// @Success      201  {object}  service.TokenResponse
// @Failure      409  {object}  errorResponse
// @Failure      422  {object}  errorResponse
// @Router       /auth/register [post]
func handleRegister(authSvc *service.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		if _, err := authSvc.Register(r.Context(), service.RegisterInput{
			Email:       req.Email,
			DisplayName: req.DisplayName,
			Password:    req.Password,
		}); err != nil {
			writeError(w, r, err)
			return
		}

		// Auto-login after registration
		resp, err := authSvc.Login(r.Context(), service.LoginInput{Email: req.Email, Password: req.Password})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusCreated, resp)
	}
}

// @Summary      Login
// @Description  Login with email and password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body loginRequest true "Login input"
// @Success      200  {object}  service.TokenResponse
// @Failure      401  {object}  errorResponse
// @Router       /auth/login [post]
func handleLogin(authSvc *service.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		resp, err := authSvc.Login(r.Context(), service.LoginInput{Email: req.Email, Password: req.Password})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, resp)
	}
}

// @Summary      Logout
// @Tags         auth
// @Security     BearerAuth
// @Success      204
// @Failure      401  {object}  errorResponse
// @Router       /auth/logout [post]
func handleLogout(authSvc *service.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := authSvc.Logout(r.Context(), session(r)); err != nil {
			writeError(w, r, err)
			return
		}
		writeNoContent(w)
	}
}

// @Summary      Get Current User
// @Description  Get currently logged in user details and permissions
// @Tags         auth
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  meResponse
// @Failure      401  {object}  errorResponse
// @Router       /auth/me [get]
func handleMe(userSvc *service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := session(r)
		user, err := userSvc.Me(r.Context(), sess)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, meResponse{User: user, Permissions: sess.Permissions})
	}
}
