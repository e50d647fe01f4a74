package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"club-api/internal/core/apperr"
	coreauth "club-api/internal/core/auth"
	"club-api/internal/core/database"
	"club-api/internal/core/mail"
	"club-api/internal/domain"
	"club-api/internal/repo"
	"club-api/pkg/utils"
)

// 登录失败统一文案，避免泄露账号是否存在/是否激活
const msgBadCredentials = "invalid email or password"

type Service struct {
	DB          *gorm.DB
	Users       *repo.UserRepo
	Members     *repo.Memberships
	JWT         *coreauth.JWTer
	Hasher      *utils.Hasher
	Outbox      mail.Outbox
	FrontendURL string
	Log         *zap.Logger
}

type RegisterInput struct {
	FirstName string                  `json:"firstName" binding:"required,max=30"`
	LastName  string                  `json:"lastName" binding:"required,max=50"`
	Email     string                  `json:"email" binding:"required,email"`
	Phone     *string                 `json:"phone" binding:"omitempty,phone10"`
	Roles     []domain.RoleAssignment `json:"roles" binding:"required,min=1,dive"`
}

// Register 建用户 + 授予角色在同一事务；提交后再签激活令牌、发邮件
func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.User, string, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = repo.NormalizeEmail(in.Email)
	if in.FirstName == "" || in.LastName == "" || in.Email == "" {
		return nil, "", apperr.Validation("firstName, lastName and email are required")
	}
	if len(in.Roles) == 0 {
		return nil, "", apperr.Validation("at least one role is required")
	}

	u := &domain.User{FirstName: in.FirstName, LastName: in.LastName, Email: in.Email, Phone: in.Phone}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := s.Users.WithTx(tx)
		taken, err := users.EmailTaken(ctx, in.Email, 0)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Conflict("email already registered")
		}
		if err := users.Create(ctx, u); err != nil {
			if database.IsDuplicate(err) {
				return apperr.Conflict("email already registered")
			}
			return err
		}
		_, err = s.Members.Assign(tx, u.ID, in.Roles)
		return err
	})
	if err != nil {
		return nil, "", err
	}

	token, err := s.JWT.IssueSignup(u.ID)
	if err != nil {
		return nil, "", apperr.Internal("issue activation token failed", err)
	}
	mail.Deliver(ctx, s.Outbox, s.Log, mail.Activation(s.FrontendURL, u.Email, u.FirstName, token))
	return u, token, nil
}

// ResendActivation 未激活用户重新签发激活令牌
func (s *Service) ResendActivation(ctx context.Context, userID uint) (string, error) {
	u, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", apperr.NotFound("user not found")
	}
	if u.IsActive {
		return "", apperr.Conflict("account already activated")
	}
	token, err := s.JWT.IssueSignup(u.ID)
	if err != nil {
		return "", apperr.Internal("issue activation token failed", err)
	}
	mail.Deliver(ctx, s.Outbox, s.Log, mail.Activation(s.FrontendURL, u.Email, u.FirstName, token))
	return token, nil
}

type PasswordInput struct {
	Token           string `json:"token" binding:"required"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

func checkNewPassword(pw, confirm string) error {
	if pw != confirm {
		return apperr.Validation("passwords do not match")
	}
	if !utils.StrongPassword(pw) {
		return apperr.Validation("password must be 8 to 72 bytes with upper, lower, digit and symbol")
	}
	return nil
}

func tokenError(err error) error {
	if errors.Is(err, coreauth.ErrTokenExpired) {
		return &apperr.Error{Kind: apperr.KindUnauthorized, Msg: "token expired", Err: err}
	}
	return &apperr.Error{Kind: apperr.KindUnauthorized, Msg: "invalid token", Err: err}
}

// Activate 设置密码并激活；重复激活返回 Conflict 且不改密码
func (s *Service) Activate(ctx context.Context, in PasswordInput) error {
	if err := checkNewPassword(in.Password, in.ConfirmPassword); err != nil {
		return err
	}
	claims, err := s.JWT.Parse(coreauth.KindSignup, in.Token)
	if err != nil {
		return tokenError(err)
	}
	u, err := s.Users.FindByID(ctx, claims.UserID)
	if err != nil {
		return err
	}
	if u == nil {
		return apperr.NotFound("user not found")
	}
	if u.IsActive {
		return apperr.Conflict("account already activated")
	}
	if repo.NormalizeEmail(in.Email) != u.Email {
		return apperr.Validation("email does not match this invitation")
	}
	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return apperr.Internal("hash password failed", err)
	}
	res := s.DB.WithContext(ctx).Model(&domain.User{}).
		Where("id = ? AND is_active = ?", u.ID, false).
		Updates(map[string]any{"password": hash, "is_active": true})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.Conflict("account already activated")
	}
	return nil
}

// RoleClaims 用户当前的角色声明
func RoleClaims(ctx context.Context, db *gorm.DB, userID uint) ([]coreauth.RoleClaim, error) {
	var rows []domain.UserRoleCategory
	if err := db.WithContext(ctx).Where("user_id = ?", userID).Order("role_id, category_id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]coreauth.RoleClaim, 0, len(rows))
	for _, r := range rows {
		out = append(out, coreauth.RoleClaim{RoleID: r.RoleID, CategoryID: r.CategoryID})
	}
	return out, nil
}

func (s *Service) issuePair(ctx context.Context, userID uint) (coreauth.TokenPair, coreauth.Identity, error) {
	roles, err := RoleClaims(ctx, s.DB, userID)
	if err != nil {
		return coreauth.TokenPair{}, coreauth.Identity{}, err
	}
	access, err := s.JWT.IssueAccess(userID, roles)
	if err != nil {
		return coreauth.TokenPair{}, coreauth.Identity{}, apperr.Internal("issue token failed", err)
	}
	refresh, err := s.JWT.IssueRefresh(userID)
	if err != nil {
		return coreauth.TokenPair{}, coreauth.Identity{}, apperr.Internal("issue token failed", err)
	}
	return coreauth.TokenPair{Access: access, Refresh: refresh}, coreauth.Identity{UserID: userID, Roles: roles}, nil
}

// Login 新登录覆盖旧的刷新令牌（单会话）
func (s *Service) Login(ctx context.Context, email, password string) (coreauth.TokenPair, *domain.User, error) {
	u, err := s.Users.FindByEmail(ctx, email)
	if err != nil {
		return coreauth.TokenPair{}, nil, err
	}
	if u == nil || !u.IsActive || u.PasswordHash == nil || !s.Hasher.Verify(password, *u.PasswordHash) {
		return coreauth.TokenPair{}, nil, apperr.Unauthorized(msgBadCredentials)
	}
	pair, _, err := s.issuePair(ctx, u.ID)
	if err != nil {
		return coreauth.TokenPair{}, nil, err
	}
	if err := s.Users.SetRefreshToken(ctx, u.ID, &pair.Refresh); err != nil {
		return coreauth.TokenPair{}, nil, err
	}
	return pair, u, nil
}

// Refresh 先验签再查库；库中令牌必须逐字节一致，随后轮换
func (s *Service) Refresh(ctx context.Context, presented string) (coreauth.TokenPair, coreauth.Identity, error) {
	claims, err := s.JWT.Parse(coreauth.KindRefresh, presented)
	if err != nil {
		if errors.Is(err, coreauth.ErrTokenExpired) {
			return coreauth.TokenPair{}, coreauth.Identity{}, &apperr.Error{Kind: apperr.KindUnauthorized, Msg: "session expired, please log in again", Err: err}
		}
		return coreauth.TokenPair{}, coreauth.Identity{}, tokenError(err)
	}
	u, err := s.Users.FindByID(ctx, claims.UserID)
	if err != nil {
		return coreauth.TokenPair{}, coreauth.Identity{}, err
	}
	if u == nil || !u.IsActive || u.RefreshToken == nil ||
		subtle.ConstantTimeCompare([]byte(*u.RefreshToken), []byte(presented)) != 1 {
		return coreauth.TokenPair{}, coreauth.Identity{}, apperr.Unauthorized("refresh token revoked")
	}
	pair, id, err := s.issuePair(ctx, u.ID)
	if err != nil {
		return coreauth.TokenPair{}, coreauth.Identity{}, err
	}
	ok, err := s.Users.RotateRefreshToken(ctx, u.ID, presented, pair.Refresh)
	if err != nil {
		return coreauth.TokenPair{}, coreauth.Identity{}, err
	}
	if !ok {
		return coreauth.TokenPair{}, coreauth.Identity{}, apperr.Unauthorized("refresh token revoked")
	}
	return pair, id, nil
}

func (s *Service) Logout(ctx context.Context, userID uint) error {
	return s.Users.SetRefreshToken(ctx, userID, nil)
}

// ForgotPassword 只对已激活账号签发；其它情况静默返回空
func (s *Service) ForgotPassword(ctx context.Context, email string) (string, error) {
	u, err := s.Users.FindByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if u == nil || !u.IsActive {
		s.Log.Info("password reset requested for unknown or inactive account")
		return "", nil
	}
	token, err := s.JWT.IssueReset(u.ID)
	if err != nil {
		return "", apperr.Internal("issue reset token failed", err)
	}
	mail.Deliver(ctx, s.Outbox, s.Log, mail.PasswordReset(s.FrontendURL, u.Email, u.FirstName, token))
	return token, nil
}

func (s *Service) ResetPassword(ctx context.Context, in PasswordInput) error {
	if err := checkNewPassword(in.Password, in.ConfirmPassword); err != nil {
		return err
	}
	claims, err := s.JWT.Parse(coreauth.KindReset, in.Token)
	if err != nil {
		return tokenError(err)
	}
	u, err := s.Users.FindByID(ctx, claims.UserID)
	if err != nil {
		return err
	}
	if u == nil {
		return apperr.NotFound("user not found")
	}
	if repo.NormalizeEmail(in.Email) != u.Email {
		return apperr.Validation("email does not match this reset link")
	}
	return s.setPassword(ctx, u, in.Password, true)
}

// ChangePassword 登录态改密，需要旧密码
func (s *Service) ChangePassword(ctx context.Context, userID uint, oldPw, newPw, confirm string) error {
	if err := checkNewPassword(newPw, confirm); err != nil {
		return err
	}
	u, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if u == nil {
		return apperr.NotFound("user not found")
	}
	if u.PasswordHash == nil || !s.Hasher.Verify(oldPw, *u.PasswordHash) {
		return apperr.Unauthorized("current password is incorrect")
	}
	return s.setPassword(ctx, u, newPw, false)
}

// setPassword revoke 为 true 时同时作废刷新令牌（重置密码场景）
func (s *Service) setPassword(ctx context.Context, u *domain.User, pw string, revoke bool) error {
	hash, err := s.Hasher.Hash(pw)
	if err != nil {
		return apperr.Internal("hash password failed", err)
	}
	fields := map[string]any{"password": hash}
	if revoke {
		fields["refresh_token"] = nil
	}
	return s.DB.WithContext(ctx).Model(&domain.User{}).Where("id = ?", u.ID).Updates(fields).Error
}

func NewService(db *gorm.DB, members *repo.Memberships, j *coreauth.JWTer, h *utils.Hasher, outbox mail.Outbox, frontendURL string, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		DB:          db,
		Users:       repo.NewUserRepo(db),
		Members:     members,
		JWT:         j,
		Hasher:      h,
		Outbox:      outbox,
		FrontendURL: frontendURL,
		Log:         log,
	}
}
