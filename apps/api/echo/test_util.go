package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"

	"github.com/rahmanfaisal0414/backend-bimbel/core/class"
	"github.com/rahmanfaisal0414/backend-bimbel/core/user"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

// nopLogger drops everything; test failures come from assertions, not logs.
type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...interface{}) {}
func (nopLogger) Info(msg string, args ...interface{})  {}
func (nopLogger) Warn(msg string, args ...interface{})  {}
func (nopLogger) Error(msg string, args ...interface{}) {}
func (nopLogger) Fatal(msg string, args ...interface{}) {}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func initApp() (*echo.Echo, *echo.Group, echo.MiddlewareFunc) {
	app := echo.New()
	app.Pre(middleware.RemoveTrailingSlash())
	app.HTTPErrorHandler = newAppHTTPErrorHandler(nopLogger{}, func() {})
	v1 := app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)
	return app, v1, jwt
}

func getToken(t *testing.T, usr user.User) string {
	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

// in-memory repositories

type fakeUserRepo struct {
	nextID int
	users  map[int]user.User
	tokens map[string]user.SignupToken
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:  make(map[int]user.User),
		tokens: make(map[string]user.SignupToken),
	}
}

var _ user.Repository = (*fakeUserRepo)(nil) // interface compliance check

func (repo *fakeUserRepo) addUser(t *testing.T, usr user.User, pwd string) user.User {
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("addUser() failed: %v", err)
		}
	}
	repo.nextID++
	usr.ID = repo.nextID
	repo.users[usr.ID] = usr
	return usr
}

func (repo *fakeUserRepo) addToken(tok user.SignupToken) user.SignupToken {
	tok.ID = len(repo.tokens) + 1
	repo.tokens[tok.Token] = tok
	return tok
}

func (repo *fakeUserRepo) CheckUsernameUniqueness(ctx context.Context, username, email string, excl ...user.User) error {
	for _, usr := range repo.users {
		if usr.Username == username {
			return user.ErrUsernameExists
		}
		if usr.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *fakeUserRepo) RegisterUser(ctx context.Context, usr user.User, tok user.SignupToken) (user.User, error) {
	repo.nextID++
	usr.ID = repo.nextID
	repo.users[usr.ID] = usr
	tok.IsUsed = true
	repo.tokens[tok.Token] = tok
	return usr, nil
}

func (repo *fakeUserRepo) GetUserByID(ctx context.Context, id int) (user.User, error) {
	if usr, ok := repo.users[id]; ok {
		return usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *fakeUserRepo) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	for _, usr := range repo.users {
		if usr.Email == email {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *fakeUserRepo) GetUserByUsernameOrEmail(ctx context.Context, uname string) (user.User, error) {
	for _, usr := range repo.users {
		if usr.Username == uname || usr.Email == uname {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *fakeUserRepo) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.users[usr.ID] = usr
	return usr, nil
}

func (repo *fakeUserRepo) SetUserActive(ctx context.Context, id int, active bool) error {
	usr, ok := repo.users[id]
	if !ok {
		return user.ErrNotFound
	}
	usr.IsActive = active
	repo.users[id] = usr
	return nil
}

func (repo *fakeUserRepo) SetResetOTP(ctx context.Context, id int, otp null.String, createdAt null.Time) error {
	usr, ok := repo.users[id]
	if !ok {
		return user.ErrNotFound
	}
	usr.ResetOTP = otp
	usr.ResetOTPCreatedAt = createdAt
	repo.users[id] = usr
	return nil
}

func (repo *fakeUserRepo) DeleteUser(ctx context.Context, id int) error {
	delete(repo.users, id)
	return nil
}

func (repo *fakeUserRepo) CreateSignupToken(ctx context.Context, tok user.SignupToken) (user.SignupToken, error) {
	return repo.addToken(tok), nil
}

func (repo *fakeUserRepo) GetSignupToken(ctx context.Context, token string) (user.SignupToken, error) {
	if tok, ok := repo.tokens[token]; ok {
		return tok, nil
	}
	return user.SignupToken{}, user.ErrTokenNotFound
}

func (repo *fakeUserRepo) QuerySignupTokens(ctx context.Context) ([]user.SignupToken, error) {
	toks := make([]user.SignupToken, 0, len(repo.tokens))
	for _, tok := range repo.tokens {
		toks = append(toks, tok)
	}
	return toks, nil
}

type fakeClassRepo struct {
	classes map[int]class.Class
}

var _ class.Repository = (*fakeClassRepo)(nil) // interface compliance check

func (repo *fakeClassRepo) CreateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	cls.ID = len(repo.classes) + 1
	repo.classes[cls.ID] = cls
	return cls, nil
}

func (repo *fakeClassRepo) GetClassByID(ctx context.Context, id int) (class.Class, error) {
	if cls, ok := repo.classes[id]; ok {
		return cls, nil
	}
	return class.Class{}, class.ErrNotFound
}

func (repo *fakeClassRepo) QueryClasses(ctx context.Context) ([]class.Class, error) {
	classes := make([]class.Class, 0, len(repo.classes))
	for _, cls := range repo.classes {
		classes = append(classes, cls)
	}
	return classes, nil
}

func (repo *fakeClassRepo) TransferStudent(ctx context.Context, studentID, newClassID int) error {
	cls, ok := repo.classes[newClassID]
	if !ok {
		return class.ErrNotFound
	}
	if cls.IsFull() {
		return class.ErrClassFull
	}
	cls.CurrentStudentCount++
	repo.classes[newClassID] = cls
	return nil
}

func (repo *fakeClassRepo) CountClasses(ctx context.Context) (int, error) {
	return len(repo.classes), nil
}
