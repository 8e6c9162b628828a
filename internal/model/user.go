package model

type User struct {
	ID int32 `json:"id"`

	CreatedTs int64 `json:"created_ts"`
	UpdatedTs int64 `json:"updated_ts"`

	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Admin        bool   `json:"admin"`
}

type FindUser struct {
	ID       *int32
	Username *string
	Email    *string

	// The maximum number of users to return.
	Limit *int
}

type UpdateUser struct {
	ID int32

	Username     *string
	Email        *string
	PasswordHash *string
}

type DeleteUser struct {
	ID int32
}

// Identity is the verified caller attached to a request by the auth
// interceptor.
type Identity struct {
	UserID int32
	Admin  bool
}

type UserRegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserUpdateRequest replaces username and email. The current password is
// always required, a new one only when it changes.
type UserUpdateRequest struct {
	Username    string  `json:"username"`
	Email       string  `json:"email"`
	OldPassword string  `json:"oldPassword"`
	NewPassword *string `json:"newPassword"`
}

type UserProfileResponse struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expiresIn"`
}
