package v1

import (
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Xunop/bookshelf/internal/api/auth"
	"github.com/Xunop/bookshelf/internal/bookshelf"
	"github.com/Xunop/bookshelf/internal/http/request"
	"github.com/Xunop/bookshelf/internal/http/response"
	"github.com/Xunop/bookshelf/internal/log"
	"github.com/Xunop/bookshelf/internal/model"
	"github.com/Xunop/bookshelf/internal/store"
	"github.com/Xunop/bookshelf/internal/validator"
)

var errBadCredentials = &bookshelf.Error{Status: http.StatusBadRequest, Message: "Username or password is incorrect."}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var login model.UserLoginRequest
	if err := decodeJSON(r, &login); err != nil {
		h.handleError(w, r, err)
		return
	}
	if err := validator.ValidateLoginRequest(&login); err != nil {
		h.handleError(w, r, err)
		return
	}

	username := strings.TrimSpace(login.Username)
	user, err := h.store.GetUser(r.Context(), &model.FindUser{Username: &username})
	if err != nil {
		log.Error("Failed to get user", zap.Error(err))
		h.handleError(w, r, err)
		return
	}
	if user == nil {
		log.Debug("Login for unknown user", zap.String("username", username))
		h.handleError(w, r, errBadCredentials)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(login.Password)); err != nil {
		log.Debug("Login with wrong password", zap.String("username", username))
		h.handleError(w, r, errBadCredentials)
		return
	}

	token, err := auth.GenerateAccessToken(user, time.Now().Add(h.expiration), []byte(h.secret))
	if err != nil {
		log.Error("Failed to generate access token", zap.Error(err))
		h.handleError(w, r, err)
		return
	}

	response.OK(w, r, &model.TokenResponse{
		Token:     token,
		ExpiresIn: int(h.expiration.Seconds()),
	})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var register model.UserRegisterRequest
	if err := decodeJSON(r, &register); err != nil {
		h.handleError(w, r, err)
		return
	}
	if err := validator.ValidateRegisterRequest(r.Context(), h.store, &register); err != nil {
		h.handleError(w, r, err)
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(register.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to generate password hash", zap.Error(err))
		h.handleError(w, r, err)
		return
	}

	user, err := h.store.CreateUser(r.Context(), &model.User{
		Username:     strings.TrimSpace(register.Username),
		Email:        strings.TrimSpace(register.Email),
		PasswordHash: string(passwordHash),
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			// Lost a race with another registration of the same name.
			h.handleError(w, r, validator.Errors{{Field: "username", Message: "User with username already exists.", Location: "body"}})
			return
		}
		log.Error("Failed to create user", zap.Error(err))
		h.handleError(w, r, err)
		return
	}

	log.Info("User registered", zap.Int32("id", user.ID), zap.String("username", user.Username))
	response.Created(w, r, nil)
}

func (h *Handler) validateUsername(w http.ResponseWriter, r *http.Request) {
	h.validateField(w, r, func(req *model.UserRegisterRequest) error {
		return validator.ValidateUsername(r.Context(), h.store, req.Username, 0)
	})
}

func (h *Handler) validateEmail(w http.ResponseWriter, r *http.Request) {
	h.validateField(w, r, func(req *model.UserRegisterRequest) error {
		return validator.ValidateEmail(r.Context(), h.store, req.Email, 0)
	})
}

func (h *Handler) validatePassword(w http.ResponseWriter, r *http.Request) {
	h.validateField(w, r, func(req *model.UserRegisterRequest) error {
		return validator.ValidatePassword("password", req.Password)
	})
}

// validateField lets the registration form check one field at a time.
func (h *Handler) validateField(w http.ResponseWriter, r *http.Request, validate func(*model.UserRegisterRequest) error) {
	var req model.UserRegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}
	if err := validate(&req); err != nil {
		h.handleError(w, r, err)
		return
	}
	response.NoContent(w, r)
}

func (h *Handler) currentUser(r *http.Request) (*model.User, error) {
	identity := request.GetIdentity(r)
	if identity == nil {
		return nil, bookshelf.ErrUnauthorized
	}
	user, err := h.store.GetUser(r.Context(), &model.FindUser{ID: &identity.UserID})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, bookshelf.ErrNotFound
	}
	return user, nil
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	response.OK(w, r, &model.UserProfileResponse{Username: user.Username, Email: user.Email})
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	var req model.UserUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}
	if err := validator.ValidateUpdateRequest(r.Context(), h.store, user.ID, &req); err != nil {
		h.handleError(w, r, err)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		h.handleError(w, r, validator.Errors{{Field: "oldPassword", Message: "Password doesn't match current password.", Location: "body"}})
		return
	}

	username, email := strings.TrimSpace(req.Username), strings.TrimSpace(req.Email)
	update := &model.UpdateUser{ID: user.ID, Username: &username, Email: &email}
	if req.NewPassword != nil {
		passwordHash, err := bcrypt.GenerateFromPassword([]byte(*req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			log.Error("Failed to generate password hash", zap.Error(err))
			h.handleError(w, r, err)
			return
		}
		hash := string(passwordHash)
		update.PasswordHash = &hash
	}

	updated, err := h.store.UpdateUser(r.Context(), update)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			h.handleError(w, r, validator.Errors{{Field: "username", Message: "User with username already exists.", Location: "body"}})
			return
		}
		log.Error("Failed to update user", zap.Error(err))
		h.handleError(w, r, err)
		return
	}
	response.OK(w, r, &model.UserProfileResponse{Username: updated.Username, Email: updated.Email})
}

func (h *Handler) deleteProfile(w http.ResponseWriter, r *http.Request) {
	identity := request.GetIdentity(r)
	if identity == nil {
		h.handleError(w, r, bookshelf.ErrUnauthorized)
		return
	}
	if err := h.store.DeleteUser(r.Context(), &model.DeleteUser{ID: identity.UserID}); err != nil {
		log.Warn("Failed to delete user", zap.Int32("id", identity.UserID), zap.Error(err))
		h.handleError(w, r, bookshelf.ErrNotFound)
		return
	}
	log.Info("User deleted", zap.Int32("id", identity.UserID))
	response.NoContent(w, r)
}
