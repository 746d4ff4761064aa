package user

import (
	"time"

	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/rahmanfaisal0414/backend-bimbel/core"
)

// Roles
const (
	RoleAdmin   = "admin"   // -> ADMIN PANEL
	RoleTutor   = "tutor"   // -> TUTOR PANEL
	RoleStudent = "student" // -> STUDENT PANEL
)

var AllRoles = []string{RoleAdmin, RoleTutor, RoleStudent}

type User struct {
	ID           int         `json:"id"`
	Username     string      `json:"username"`
	Email        string      `json:"email"`
	Role         string      `json:"role"`
	FullName     string      `json:"full_name"`
	Phone        null.String `json:"phone"`
	Address      null.String `json:"address"`
	Bio          null.String `json:"bio"`
	PhotoURL     null.String `json:"photo_url"`
	IsActive     bool        `json:"is_active"`
	PasswordHash []byte      `json:"-"`
	DateJoined   time.Time   `json:"date_joined"` // UTC

	ResetOTP          null.String `json:"-"`
	ResetOTPCreatedAt null.Time   `json:"-"`
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsAdmin() bool   { return u.Role == RoleAdmin }
func (u *User) IsTutor() bool   { return u.Role == RoleTutor }
func (u *User) IsStudent() bool { return u.Role == RoleStudent }

// SignupToken is an admin-issued, single-use token that pre-fills the profile
// of the person it is handed to and gates registration.
type SignupToken struct {
	ID            int         `json:"id"`
	Token         string      `json:"token"`
	Role          string      `json:"role"`
	FullName      string      `json:"full_name"`
	Phone         null.String `json:"phone"`
	Address       null.String `json:"address"`
	ClassID       null.Int    `json:"class_id"`
	Gender        null.String `json:"gender"`
	Birthdate     null.Time   `json:"birthdate"`
	ParentContact null.String `json:"parent_contact"`
	Expertise     []string    `json:"expertise,omitempty"`
	IsUsed        bool        `json:"is_used"`
	CreatedAt     time.Time   `json:"created_at"`
}

// NewUser contains information needed to register a new account against a
// signup token.
type NewUser struct {
	Username        string `json:"username" validate:"required,min=4,alphanum_"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	Token           string `json:"token" validate:"required"`
}

func (nu *NewUser) Validate(svc *Service) error {
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Token = core.CleanString(nu.Token)

	if err := core.Validate.Struct(nu); err != nil {
		return err
	}
	return svc.checkUniqueness(nu.Username, nu.Email)
}

// NewSignupToken defines what an admin provides to issue a SignupToken.
type NewSignupToken struct {
	Role          string   `json:"role" validate:"required,oneof=student tutor"`
	FullName      string   `json:"full_name" validate:"required"`
	Phone         string   `json:"phone"`
	Address       string   `json:"address"`
	ClassID       int      `json:"class_id" validate:"required_if=Role student"`
	Gender        string   `json:"gender" validate:"omitempty,oneof=male female"`
	Birthdate     string   `json:"birthdate" validate:"omitempty,datetime=2006-01-02"`
	ParentContact string   `json:"parent_contact" validate:"required_if=Role student"`
	Expertise     []string `json:"expertise" validate:"required_if=Role tutor,omitempty,min=1,dive,required"`
}

func (nt *NewSignupToken) Validate() error {
	nt.FullName = core.CleanString(nt.FullName)
	nt.Role = core.CleanString(nt.Role, true /* lower */)
	return core.Validate.Struct(nt)
}

// UpdateProfile defines the self-service profile fields any signed-in user may edit.
type UpdateProfile struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Bio      string `json:"bio"`
}

func (up *UpdateProfile) Validate() error {
	up.FullName = core.CleanString(up.FullName)
	return core.Validate.Struct(up)
}

type ChangePassword struct {
	OldPassword     string `json:"old_password" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (cp ChangePassword) Validate() error { return core.Validate.Struct(cp) }

type ResetPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (rp *ResetPasswordRequest) Validate() error {
	rp.Email = core.CleanString(rp.Email, true /* lower */)
	return core.Validate.Struct(rp)
}

type VerifyPasswordReset struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

func (vp *VerifyPasswordReset) Validate() error {
	vp.Email = core.CleanString(vp.Email, true /* lower */)
	vp.OTP = core.CleanString(vp.OTP)
	return core.Validate.Struct(vp)
}

type ConfirmPasswordReset struct {
	Email           string `json:"email" validate:"required,email"`
	OTP             string `json:"otp" validate:"required,len=6,numeric"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (cp *ConfirmPasswordReset) Validate() error {
	cp.Email = core.CleanString(cp.Email, true /* lower */)
	cp.OTP = core.CleanString(cp.OTP)
	return core.Validate.Struct(cp)
}
