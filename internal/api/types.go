package api

// FileEntry is a single row of a directory listing as returned by the server.
// Size is only meaningful for files; the server reports 0 for directories.
// FullPath is the server-side location and is informational only.
type FileEntry struct {
	Name     string `json:"name"`
	IsDir    bool   `json:"is_dir"`
	Size     int64  `json:"size"`
	Modified string `json:"modified,omitempty"`
	FullPath string `json:"full_path,omitempty"`
}

// UserInfo is the identity returned by /api/user/info. The server omits
// Username for most accounts, so callers use DisplayName.
type UserInfo struct {
	Username   string `json:"username,omitempty"`
	UserDir    string `json:"user_dir,omitempty"`
	Email      string `json:"email,omitempty"`
	CreatedAt  string `json:"created_at,omitempty"`
	LastLogin  string `json:"last_login,omitempty"`
	IsVerified bool   `json:"is_verified,omitempty"`
}

// DisplayName returns the username, falling back to the user directory name.
func (u *UserInfo) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}

	return u.UserDir
}

// Request bodies. Field names follow the server's JSON contract.
type listRequest struct {
	Path string `json:"path"`
}

type deleteRequest struct {
	Path  string `json:"path"`
	Name  string `json:"name"`
	IsDir bool   `json:"is_dir"`
}

type createFolderRequest struct {
	Path string `json:"path"`
	Name string `json:"name"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// messageResponse is the success/error envelope used by mutating endpoints.
type messageResponse struct {
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
	Username string `json:"username,omitempty"`
}
