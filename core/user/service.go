package user

import (
	"context"
	"errors"
	"net/mail"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/rahmanfaisal0414/backend-bimbel/core"
)

var (
	// errors
	ErrNotFound       = errors.New("user not found")
	ErrEmailExists    = errors.New("a user with this email already exists")
	ErrUsernameExists = errors.New("a user with this username already exists")

	ErrTokenNotFound = errors.New("signup token not found")
	ErrTokenUsed     = errors.New("signup token has already been used")

	ErrOTPInvalid = errors.New("invalid or unknown verification code")
	ErrOTPExpired = errors.New("verification code has expired")
)

type (
	Repository interface {
		CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...User) error
		// RegisterUser creates the user, its student/tutor profile pre-filled
		// from the signup token, the class enrollment (capacity-checked) and
		// marks the token used, all in one transaction.
		RegisterUser(ctx context.Context, usr User, tok SignupToken) (User, error)
		GetUserByID(ctx context.Context, id int) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		GetUserByUsernameOrEmail(ctx context.Context, username string) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		SetUserActive(ctx context.Context, id int, active bool) error
		SetResetOTP(ctx context.Context, id int, otp null.String, createdAt null.Time) error
		DeleteUser(ctx context.Context, id int) error

		CreateSignupToken(ctx context.Context, tok SignupToken) (SignupToken, error)
		GetSignupToken(ctx context.Context, token string) (SignupToken, error)
		QuerySignupTokens(ctx context.Context) ([]SignupToken, error)
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
	}
)

func NewService(repo Repository, mailSvc core.EmailService) *Service {
	return &Service{repo: repo, mailSvc: mailSvc}
}

func (svc *Service) checkUniqueness(uname, email string, exclUsers ...User) error {
	if err := svc.repo.CheckUsernameUniqueness(context.Background(), uname, email, exclUsers...); err != nil {
		switch err {
		case ErrUsernameExists:
			return core.NewValidationError(err, core.FieldError{Field: "username", Error: err.Error()})
		case ErrEmailExists:
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		default:
			return err
		}
	}
	return nil
}

// Register creates an account for the holder of a valid signup token.
// A used token and an unknown token surface as distinct errors.
func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	tok, err := svc.repo.GetSignupToken(ctx, nu.Token)
	if err != nil {
		if err == ErrTokenNotFound {
			return User{}, core.NewValidationError(err, core.FieldError{Field: "token", Error: err.Error()})
		}
		return User{}, err
	}
	if tok.IsUsed {
		return User{}, core.NewValidationError(ErrTokenUsed, core.FieldError{Field: "token", Error: ErrTokenUsed.Error()})
	}

	usr := User{
		Username:   nu.Username,
		Email:      nu.Email,
		Role:       tok.Role,
		FullName:   tok.FullName,
		Phone:      tok.Phone,
		Address:    tok.Address,
		IsActive:   true,
		DateJoined: time.Now().UTC(),
	}
	if err = usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}

	usr, err = svc.repo.RegisterUser(ctx, usr, tok)
	if err != nil {
		return User{}, err
	}

	// the account is useless if the welcome email cannot be rendered; roll it back
	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: usr.FullName, Address: usr.Email}},
		Subject:      "Welcome to " + core.Conf.AppName,
		TemplateName: "welcome",
		TemplateData: struct{ FullName, Username string }{usr.FullName, usr.Username},
	}
	if err = msg.Render(); err != nil {
		_ = svc.repo.DeleteUser(ctx, usr.ID)
		return User{}, err
	}
	svc.mailSvc.SendMessages(msg)
	return usr, nil
}

func (svc *Service) GetByID(ctx context.Context, id int) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUserByUsernameOrEmail(ctx, core.CleanString(uname, true /* lower */))
}

func (svc *Service) UpdateProfile(ctx context.Context, usr User, up UpdateProfile) (User, error) {
	if up.FullName != "" {
		usr.FullName = up.FullName
	}
	if up.Phone != "" {
		usr.Phone = null.StringFrom(up.Phone)
	}
	if up.Address != "" {
		usr.Address = null.StringFrom(up.Address)
	}
	if up.Bio != "" {
		usr.Bio = null.StringFrom(up.Bio)
	}
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) SetPhotoURL(ctx context.Context, usr User, url string) (User, error) {
	usr.PhotoURL = null.StringFrom(url)
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) ChangePassword(ctx context.Context, usr User, cp ChangePassword) error {
	if err := usr.CheckPassword(cp.OldPassword); err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "old_password", Error: "old password is incorrect"})
	}
	if err := usr.SetPassword(cp.Password); err != nil {
		return err
	}
	_, err := svc.repo.UpdateUser(ctx, usr)
	return err
}

func (svc *Service) SetActive(ctx context.Context, id int, active bool) error {
	return svc.repo.SetUserActive(ctx, id, active)
}

// RequestPasswordReset generates and emails a 6-digit OTP. An unknown email is
// not an error; it is silently ignored so addresses cannot be probed.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if err == ErrNotFound {
			return nil
		}
		return err
	}

	otp, err := GenerateOTP()
	if err != nil {
		return err
	}
	now := NowFunc().UTC()
	if err = svc.repo.SetResetOTP(ctx, usr.ID, null.StringFrom(otp), null.TimeFrom(now)); err != nil {
		return err
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.FullName, Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: struct {
			FullName, OTP string
			ValidMinutes  int
		}{usr.FullName, otp, int(core.Conf.PasswordResetOTPTimeout / time.Minute)},
	})
	return nil
}

func (svc *Service) VerifyPasswordReset(ctx context.Context, vp VerifyPasswordReset) error {
	usr, err := svc.repo.GetUserByEmail(ctx, vp.Email)
	if err != nil {
		if err == ErrNotFound {
			return ErrOTPInvalid
		}
		return err
	}
	return verifyOTP(usr, vp.OTP)
}

func (svc *Service) ConfirmPasswordReset(ctx context.Context, cp ConfirmPasswordReset) error {
	usr, err := svc.repo.GetUserByEmail(ctx, cp.Email)
	if err != nil {
		if err == ErrNotFound {
			return ErrOTPInvalid
		}
		return err
	}
	if err = verifyOTP(usr, cp.OTP); err != nil {
		return err
	}
	if err = usr.SetPassword(cp.Password); err != nil {
		return err
	}
	if _, err = svc.repo.UpdateUser(ctx, usr); err != nil {
		return err
	}
	// the OTP is single-use
	return svc.repo.SetResetOTP(ctx, usr.ID, null.String{}, null.Time{})
}

// CreateSignupToken issues a unique signup token; retried on the (unlikely)
// token collision.
func (svc *Service) CreateSignupToken(ctx context.Context, nt NewSignupToken) (SignupToken, error) {
	tok := SignupToken{
		Role:          nt.Role,
		FullName:      nt.FullName,
		Phone:         null.NewString(nt.Phone, nt.Phone != ""),
		Address:       null.NewString(nt.Address, nt.Address != ""),
		Gender:        null.NewString(nt.Gender, nt.Gender != ""),
		ParentContact: null.NewString(nt.ParentContact, nt.ParentContact != ""),
		Expertise:     nt.Expertise,
		CreatedAt:     time.Now().UTC(),
	}
	if nt.Role == RoleStudent {
		tok.ClassID = null.IntFrom(nt.ClassID)
	}
	if nt.Birthdate != "" {
		bd, err := time.Parse("2006-01-02", nt.Birthdate)
		if err != nil {
			return SignupToken{}, core.NewValidationError(err, core.FieldError{Field: "birthdate", Error: "invalid date"})
		}
		tok.Birthdate = null.TimeFrom(bd)
	}

	for attempts := 0; attempts < 5; attempts++ {
		t, err := GenerateSignupToken()
		if err != nil {
			return SignupToken{}, err
		}
		tok.Token = t
		created, err := svc.repo.CreateSignupToken(ctx, tok)
		if err == nil {
			return created, nil
		}
		if attempts == 4 {
			return SignupToken{}, err
		}
	}
	return SignupToken{}, errors.New("generating signup token")
}

func (svc *Service) QuerySignupTokens(ctx context.Context) ([]SignupToken, error) {
	return svc.repo.QuerySignupTokens(ctx)
}
