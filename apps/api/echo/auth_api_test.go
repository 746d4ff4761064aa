package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/volatiletech/null/v8"

	"github.com/rahmanfaisal0414/backend-bimbel/core/class"
	"github.com/rahmanfaisal0414/backend-bimbel/core/user"
	emailsvc "github.com/rahmanfaisal0414/backend-bimbel/services/email"
)

func authSetup() (*echo.Echo, *fakeUserRepo, *fakeClassRepo) {
	usrRepo := newFakeUserRepo()
	clsRepo := &fakeClassRepo{classes: make(map[int]class.Class)}

	opts := &Options{
		UserSvc:  user.NewService(usrRepo, emailsvc.NewConsoleServiceMock()),
		ClassSvc: class.NewService(clsRepo),
	}
	app, v1, jwt := initApp()
	registerAuthAPI(v1, jwt, opts)
	return app, usrRepo, clsRepo
}

func Test_authApi_signup(t *testing.T) {
	app, usrRepo, _ := authSetup()

	tok := usrRepo.addToken(user.SignupToken{
		Token:    "stud3nt-t0k3n",
		Role:     user.RoleStudent,
		FullName: "Rani Putri",
		ClassID:  null.IntFrom(1),
	})
	usedTok := usrRepo.addToken(user.SignupToken{
		Token:    "us3d-t0k3n",
		Role:     user.RoleTutor,
		FullName: "Pak Budi",
		IsUsed:   true,
	})

	body := func(uname, email, pwd, confirm, token string) []byte {
		return marchallObj(t, user.NewUser{
			Username:        uname,
			Email:           email,
			Password:        pwd,
			PasswordConfirm: confirm,
			Token:           token,
		})
	}

	tests := []httpTest{
		{
			name:     "signup ok",
			body:     body("rani01", "rani@test.id", "LePass", "LePass", tok.Token),
			wantCode: http.StatusCreated,
		},
		{
			name:     "unknown token",
			body:     body("dodo01", "dodo@test.id", "LePass", "LePass", "lol"),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echo.Map{"token": user.ErrTokenNotFound.Error()}),
		},
		{
			name:     "used token",
			body:     body("dodo01", "dodo@test.id", "LePass", "LePass", usedTok.Token),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echo.Map{"token": user.ErrTokenUsed.Error()}),
		},
		{
			name:     "password mismatch",
			body:     body("dodo01", "dodo@test.id", "LePass", "NotLePass", tok.Token),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echo.Map{"password_confirm": "password_confirm must be equal to Password"}),
		},
		{
			name:     "username taken",
			body:     body("rani01", "other@test.id", "LePass", "LePass", tok.Token),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echo.Map{"username": user.ErrUsernameExists.Error()}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/auth/signup", tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
				return
			}
			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			var resp AuthResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshalling AuthResponse: %v", err)
			}
			if resp.Token == "" {
				t.Error("token is empty")
			}
			if resp.User.Username != "rani01" {
				t.Errorf("username = %s, want rani01", resp.User.Username)
			}
			if resp.User.Role != user.RoleStudent {
				t.Errorf("role = %s, want %s", resp.User.Role, user.RoleStudent)
			}
			refreshed, err := usrRepo.GetSignupToken(req.Context(), tok.Token)
			if err != nil {
				t.Fatalf("GetSignupToken() failed: %v", err)
			}
			if !refreshed.IsUsed {
				t.Error("signup token should be marked used")
			}
		})
	}
}

func Test_authApi_signin(t *testing.T) {
	app, usrRepo, _ := authSetup()

	usr := usrRepo.addUser(t, user.User{
		Username: "awe",
		Email:    "awe@test.id",
		Role:     user.RoleTutor,
		FullName: "Pak Awe",
		IsActive: true,
	}, "LeP@ss")
	usrRepo.addUser(t, user.User{
		Username: "gone",
		Email:    "gone@test.id",
		Role:     user.RoleStudent,
	}, "LeP@ss")

	body := func(uname, pwd string) []byte {
		return marchallObj(t, LoginRequest{Username: uname, Password: pwd})
	}

	tests := []httpTest{
		{name: "signin with username", body: body(usr.Username, "LeP@ss"), wantCode: http.StatusOK},
		{name: "signin with email", body: body(usr.Email, "LeP@ss"), wantCode: http.StatusOK},
		{name: "username is case-insensitive", body: body("AWE", "LeP@ss"), wantCode: http.StatusOK},
		{
			name:     "unknown user",
			body:     body("lol", "LeP@ss"),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "wrong password",
			body:     body(usr.Username, "lol"),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "deactivated account",
			body:     body("gone", "LeP@ss"),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name:     "missing fields",
			body:     body("", ""),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echo.Map{"username": "this field is required", "password": "this field is required"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/auth/signin", tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
				return
			}
			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			var resp AuthResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshalling AuthResponse: %v", err)
			}
			if resp.Token == "" {
				t.Error("token is empty")
			}
			if resp.User.ID != usr.ID {
				t.Errorf("user ID = %d, want %d", resp.User.ID, usr.ID)
			}
		})
	}
}

func Test_authApi_refreshToken(t *testing.T) {
	app, usrRepo, _ := authSetup()

	usr := usrRepo.addUser(t, user.User{
		Username: "awe",
		Email:    "awe@test.id",
		Role:     user.RoleStudent,
		IsActive: true,
	}, "LeP@ss")
	gone := usrRepo.addUser(t, user.User{
		Username: "gone",
		Email:    "gone@test.id",
		Role:     user.RoleStudent,
	}, "LeP@ss")

	tests := []httpTest{
		{name: "refresh ok", token: getToken(t, usr), wantCode: http.StatusOK},
		{
			name:     "no token",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "deactivated account",
			token:    getToken(t, gone),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/auth/token-refresh", tt.token)
			app.ServeHTTP(rec, req)

			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
				return
			}
			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			var resp TokenResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshalling TokenResponse: %v", err)
			}
			if resp.Token == "" {
				t.Error("token is empty")
			}
		})
	}
}

func Test_authApi_createSignupToken(t *testing.T) {
	app, usrRepo, clsRepo := authSetup()

	admin := usrRepo.addUser(t, user.User{
		Username: "boss",
		Email:    "boss@test.id",
		Role:     user.RoleAdmin,
		IsActive: true,
	}, "LeP@ss")
	student := usrRepo.addUser(t, user.User{
		Username: "rani01",
		Email:    "rani@test.id",
		Role:     user.RoleStudent,
		IsActive: true,
	}, "LeP@ss")

	cls, _ := clsRepo.CreateClass(nil, class.Class{ClassName: "SMA 12 IPA", Capacity: 2})
	fullCls, _ := clsRepo.CreateClass(nil, class.Class{ClassName: "SMA 12 IPS", Capacity: 1, CurrentStudentCount: 1})

	tests := []httpTest{
		{
			name:  "tutor token ok",
			token: getToken(t, admin),
			body: marchallObj(t, user.NewSignupToken{
				Role: user.RoleTutor, FullName: "Pak Budi", Expertise: []string{"math", "physics"},
			}),
			wantCode: http.StatusCreated,
		},
		{
			name:  "student token ok",
			token: getToken(t, admin),
			body: marchallObj(t, user.NewSignupToken{
				Role: user.RoleStudent, FullName: "Rani Putri", ClassID: cls.ID, ParentContact: "+62812000111",
			}),
			wantCode: http.StatusCreated,
		},
		{
			name:     "no token",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:  "not an admin",
			token: getToken(t, student),
			body: marchallObj(t, user.NewSignupToken{
				Role: user.RoleTutor, FullName: "Pak Budi", Expertise: []string{"math"},
			}),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:  "unknown class",
			token: getToken(t, admin),
			body: marchallObj(t, user.NewSignupToken{
				Role: user.RoleStudent, FullName: "Rani Putri", ClassID: 99, ParentContact: "+62812000111",
			}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echo.Map{"class_id": class.ErrNotFound.Error()}),
		},
		{
			name:  "full class",
			token: getToken(t, admin),
			body: marchallObj(t, user.NewSignupToken{
				Role: user.RoleStudent, FullName: "Rani Putri", ClassID: fullCls.ID, ParentContact: "+62812000111",
			}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, echo.Map{"class_id": class.ErrClassFull.Error()}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/auth/signup-tokens", tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
				return
			}
			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			var tok user.SignupToken
			if err := json.Unmarshal(rec.Body.Bytes(), &tok); err != nil {
				t.Fatalf("unmarshalling SignupToken: %v", err)
			}
			if tok.Token == "" {
				t.Error("token is empty")
			}
			if tok.IsUsed {
				t.Error("token should not be used")
			}
		})
	}
}
