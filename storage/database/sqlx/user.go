package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/rahmanfaisal0414/backend-bimbel/core/class"
	"github.com/rahmanfaisal0414/backend-bimbel/core/user"
)

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

type userRow struct {
	ID                int         `db:"id"`
	Username          string      `db:"username"`
	Email             string      `db:"email"`
	Role              string      `db:"role"`
	FullName          string      `db:"full_name"`
	Phone             null.String `db:"phone"`
	Address           null.String `db:"address"`
	Bio               null.String `db:"bio"`
	PhotoURL          null.String `db:"photo_url"`
	IsActive          bool        `db:"is_active"`
	PasswordHash      []byte      `db:"password_hash"`
	DateJoined        time.Time   `db:"date_joined"`
	ResetOTP          null.String `db:"reset_otp"`
	ResetOTPCreatedAt null.Time   `db:"reset_otp_created_at"`
}

func (r userRow) unpack() user.User {
	return user.User{
		ID:                r.ID,
		Username:          r.Username,
		Email:             r.Email,
		Role:              r.Role,
		FullName:          r.FullName,
		Phone:             r.Phone,
		Address:           r.Address,
		Bio:               r.Bio,
		PhotoURL:          r.PhotoURL,
		IsActive:          r.IsActive,
		PasswordHash:      r.PasswordHash,
		DateJoined:        r.DateJoined,
		ResetOTP:          r.ResetOTP,
		ResetOTPCreatedAt: r.ResetOTPCreatedAt,
	}
}

type signupTokenRow struct {
	ID            int            `db:"id"`
	Token         string         `db:"token"`
	Role          string         `db:"role"`
	FullName      string         `db:"full_name"`
	Phone         null.String    `db:"phone"`
	Address       null.String    `db:"address"`
	ClassID       null.Int       `db:"class_id"`
	Gender        null.String    `db:"gender"`
	Birthdate     null.Time      `db:"birthdate"`
	ParentContact null.String    `db:"parent_contact"`
	Expertise     pq.StringArray `db:"expertise"`
	IsUsed        bool           `db:"is_used"`
	CreatedAt     time.Time      `db:"created_at"`
}

func (r signupTokenRow) unpack() user.SignupToken {
	return user.SignupToken{
		ID:            r.ID,
		Token:         r.Token,
		Role:          r.Role,
		FullName:      r.FullName,
		Phone:         r.Phone,
		Address:       r.Address,
		ClassID:       r.ClassID,
		Gender:        r.Gender,
		Birthdate:     r.Birthdate,
		ParentContact: r.ParentContact,
		Expertise:     r.Expertise,
		IsUsed:        r.IsUsed,
		CreatedAt:     r.CreatedAt,
	}
}

// trapNoRowsErr maps psql "no rows" err to the given sentinel
func trapNoRowsErr(err, sentinel error, msg string) error {
	if err == sql.ErrNoRows {
		return sentinel
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	excluded := make([]int, 0, len(excludedUsers))
	for _, u := range excludedUsers {
		excluded = append(excluded, u.ID)
	}

	var unameExists, emailExists bool
	err := repo.db.QueryRowxContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM users WHERE username = $1 AND NOT (id = ANY($3))),
		       EXISTS(SELECT 1 FROM users WHERE email = $2 AND NOT (id = ANY($3)))`,
		username, email, pq.Array(excluded),
	).Scan(&unameExists, &emailExists)
	if err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	if unameExists {
		return user.ErrUsernameExists
	}
	if emailExists {
		return user.ErrEmailExists
	}
	return nil
}

// RegisterUser creates the account, the role profile pre-filled from the
// signup token, the class enrollment and flips the token, all in one
// transaction.
func (repo userRepository) RegisterUser(ctx context.Context, usr user.User, tok user.SignupToken) (user.User, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return user.User{}, errors.Wrap(err, "beginning tx")
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowxContext(ctx, `
		INSERT INTO users (username, email, role, full_name, phone, address, is_active, password_hash, date_joined)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		usr.Username, usr.Email, usr.Role, usr.FullName, usr.Phone, usr.Address, usr.IsActive, usr.PasswordHash, usr.DateJoined,
	).Scan(&usr.ID)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}

	switch tok.Role {
	case user.RoleStudent:
		var studentID int
		err = tx.QueryRowxContext(ctx, `
			INSERT INTO students (user_id, full_name, phone, address, gender, birthdate, parent_contact)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id`,
			usr.ID, tok.FullName, tok.Phone, tok.Address, tok.Gender, tok.Birthdate, tok.ParentContact,
		).Scan(&studentID)
		if err != nil {
			return user.User{}, errors.Wrap(err, "inserting student profile")
		}
		if tok.ClassID.Valid {
			if err = enrollStudent(ctx, tx, studentID, int(tok.ClassID.Int)); err != nil {
				return user.User{}, err
			}
		}
	case user.RoleTutor:
		var tutorID int
		err = tx.QueryRowxContext(ctx, `
			INSERT INTO tutors (user_id, full_name, phone, address)
			VALUES ($1, $2, $3, $4)
			RETURNING id`,
			usr.ID, tok.FullName, tok.Phone, tok.Address,
		).Scan(&tutorID)
		if err != nil {
			return user.User{}, errors.Wrap(err, "inserting tutor profile")
		}
		for _, name := range tok.Expertise {
			var subjectID int
			err = tx.QueryRowxContext(ctx, `
				INSERT INTO subjects (name) VALUES ($1)
				ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
				RETURNING id`, name,
			).Scan(&subjectID)
			if err != nil {
				return user.User{}, errors.Wrap(err, "ensuring subject")
			}
			if _, err = tx.ExecContext(ctx, `
				INSERT INTO tutor_expertise (tutor_id, subject_id) VALUES ($1, $2)
				ON CONFLICT DO NOTHING`, tutorID, subjectID); err != nil {
				return user.User{}, errors.Wrap(err, "inserting tutor expertise")
			}
		}
	}

	res, err := tx.ExecContext(ctx, `UPDATE signup_tokens SET is_used = true WHERE id = $1 AND NOT is_used`, tok.ID)
	if err != nil {
		return user.User{}, errors.Wrap(err, "marking token used")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.User{}, user.ErrTokenUsed
	}

	if err = tx.Commit(); err != nil {
		return user.User{}, errors.Wrap(err, "committing tx")
	}
	return usr, nil
}

// enrollStudent appends the enrollment row and bumps the class counter; the
// class row is locked so the capacity check holds under concurrency.
func enrollStudent(ctx context.Context, tx *sqlx.Tx, studentID, classID int) error {
	var capacity, count int
	err := tx.QueryRowxContext(ctx,
		`SELECT capacity, current_student_count FROM classes WHERE id = $1 AND NOT is_deleted FOR UPDATE`, classID,
	).Scan(&capacity, &count)
	if err != nil {
		return trapNoRowsErr(err, class.ErrNotFound, "locking class")
	}
	if count >= capacity {
		return class.ErrClassFull
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO student_classes (student_id, class_id) VALUES ($1, $2)`, studentID, classID); err != nil {
		return errors.Wrap(err, "inserting enrollment")
	}
	if _, err = tx.ExecContext(ctx,
		`UPDATE classes SET current_student_count = current_student_count + 1 WHERE id = $1`, classID); err != nil {
		return errors.Wrap(err, "bumping class counter")
	}
	return nil
}

const selectUser = `
	SELECT id, username, email, role, full_name, phone, address, bio, photo_url,
	       is_active, password_hash, date_joined, reset_otp, reset_otp_created_at
	FROM users`

func (repo userRepository) GetUserByID(ctx context.Context, id int) (user.User, error) {
	var row userRow
	if err := repo.db.GetContext(ctx, &row, selectUser+` WHERE id = $1`, id); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user by ID")
	}
	return row.unpack(), nil
}

func (repo userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var row userRow
	if err := repo.db.GetContext(ctx, &row, selectUser+` WHERE email = $1`, email); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user by email")
	}
	return row.unpack(), nil
}

func (repo userRepository) GetUserByUsernameOrEmail(ctx context.Context, username string) (user.User, error) {
	var row userRow
	if err := repo.db.GetContext(ctx, &row, selectUser+` WHERE username = $1 OR email = $1`, username); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return row.unpack(), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	res, err := repo.db.ExecContext(ctx, `
		UPDATE users
		SET full_name = $2, phone = $3, address = $4, bio = $5, photo_url = $6, password_hash = $7
		WHERE id = $1`,
		usr.ID, usr.FullName, usr.Phone, usr.Address, usr.Bio, usr.PhotoURL, usr.PasswordHash)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo userRepository) SetUserActive(ctx context.Context, id int, active bool) error {
	res, err := repo.db.ExecContext(ctx, `UPDATE users SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return errors.Wrap(err, "setting user active")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (repo userRepository) SetResetOTP(ctx context.Context, id int, otp null.String, createdAt null.Time) error {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE users SET reset_otp = $2, reset_otp_created_at = $3 WHERE id = $1`, id, otp, createdAt)
	if err != nil {
		return errors.Wrap(err, "setting reset OTP")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (repo userRepository) DeleteUser(ctx context.Context, id int) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return nil
}

// UpsertAdmin creates or reactivates an admin account by username. CLI only;
// regular accounts go through RegisterUser.
func (repo userRepository) UpsertAdmin(ctx context.Context, usr user.User) (user.User, error) {
	err := repo.db.QueryRowxContext(ctx, `
		INSERT INTO users (username, email, role, full_name, is_active, password_hash, date_joined)
		VALUES ($1, $2, $3, $4, true, $5, $6)
		ON CONFLICT (username) DO UPDATE
		SET email = EXCLUDED.email, role = EXCLUDED.role, is_active = true, password_hash = EXCLUDED.password_hash
		RETURNING id`,
		usr.Username, usr.Email, user.RoleAdmin, usr.FullName, usr.PasswordHash, usr.DateJoined,
	).Scan(&usr.ID)
	if err != nil {
		return user.User{}, errors.Wrap(err, "upserting admin")
	}
	return usr, nil
}

func (repo userRepository) CreateSignupToken(ctx context.Context, tok user.SignupToken) (user.SignupToken, error) {
	err := repo.db.QueryRowxContext(ctx, `
		INSERT INTO signup_tokens (token, role, full_name, phone, address, class_id, gender, birthdate, parent_contact, expertise, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		tok.Token, tok.Role, tok.FullName, tok.Phone, tok.Address, tok.ClassID, tok.Gender,
		tok.Birthdate, tok.ParentContact, pq.Array(tok.Expertise), tok.CreatedAt,
	).Scan(&tok.ID)
	if err != nil {
		return user.SignupToken{}, errors.Wrap(err, "inserting signup token")
	}
	return tok, nil
}

const selectSignupToken = `
	SELECT id, token, role, full_name, phone, address, class_id, gender, birthdate,
	       parent_contact, expertise, is_used, created_at
	FROM signup_tokens`

func (repo userRepository) GetSignupToken(ctx context.Context, token string) (user.SignupToken, error) {
	var row signupTokenRow
	if err := repo.db.GetContext(ctx, &row, selectSignupToken+` WHERE token = $1`, token); err != nil {
		return user.SignupToken{}, trapNoRowsErr(err, user.ErrTokenNotFound, "finding signup token")
	}
	return row.unpack(), nil
}

func (repo userRepository) QuerySignupTokens(ctx context.Context) ([]user.SignupToken, error) {
	var rows []signupTokenRow
	if err := repo.db.SelectContext(ctx, &rows, selectSignupToken+` ORDER BY created_at DESC`); err != nil {
		return nil, errors.Wrap(err, "querying signup tokens")
	}
	toks := make([]user.SignupToken, 0, len(rows))
	for _, row := range rows {
		toks = append(toks, row.unpack())
	}
	return toks, nil
}
