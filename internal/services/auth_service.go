package services

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/slotline/booking-backend/internal/database"
	"github.com/slotline/booking-backend/internal/models"
	"github.com/slotline/booking-backend/pkg/jwt"
	"github.com/slotline/booking-backend/pkg/mail"
	"github.com/slotline/booking-backend/pkg/validator"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials indicates a wrong email or password
	ErrInvalidCredentials = fmt.Errorf("invalid email or password")

	// ErrEmailNotVerified indicates the user has not completed OTP verification
	ErrEmailNotVerified = fmt.Errorf("email address not verified")

	// ErrAccountDisabled indicates the account is suspended or deleted
	ErrAccountDisabled = fmt.Errorf("account is disabled")

	// ErrRefreshTokenInvalid indicates a revoked, expired or unknown refresh token
	ErrRefreshTokenInvalid = fmt.Errorf("refresh token is invalid")
)

// AuthService orchestrates registration, sign-in, OTP verification,
// password recovery and token rotation. Each email's position in the auth
// flow is tracked through the auth state machine so out-of-order requests
// are rejected before touching the database.
type AuthService struct {
	users      *database.UserRepository
	tokens     *database.RefreshTokenRepository
	otp        *OTPService
	rateLimits *RateLimitService
	audit      *AuditService
	jwt        *jwt.Service
	gateway    MailSender
	validator  *validator.EmailValidator
	bcryptCost int

	mu     sync.Mutex
	states map[string]AuthState // keyed by lowercase email
}

// NewAuthService creates a new auth service
func NewAuthService(
	users *database.UserRepository,
	tokens *database.RefreshTokenRepository,
	otp *OTPService,
	rateLimits *RateLimitService,
	audit *AuditService,
	jwtService *jwt.Service,
	gateway MailSender,
	emailValidator *validator.EmailValidator,
	bcryptCost int,
) *AuthService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{
		users:      users,
		tokens:     tokens,
		otp:        otp,
		rateLimits: rateLimits,
		audit:      audit,
		jwt:        jwtService,
		gateway:    gateway,
		validator:  emailValidator,
		bcryptCost: bcryptCost,
		states:     make(map[string]AuthState),
	}
}

// advance moves the email's auth flow through the state machine. The
// error carries the legal events so callers can report what was expected.
func (s *AuthService) advance(email string, event AuthEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.states[email]
	if !ok {
		current = AuthStateIdle
	}

	next, err := NextAuthState(current, event)
	if err != nil {
		return err
	}

	if next == AuthStateIdle {
		delete(s.states, email)
	} else {
		s.states[email] = next
	}
	return nil
}

// SignUp registers a new user and mails a verification OTP
func (s *AuthService) SignUp(req *models.SignUpRequest, ipAddress, userAgent string) (*models.User, error) {
	email, err := s.validator.Validate(req.Email)
	if err != nil {
		return nil, fmt.Errorf("invalid email: %w", err)
	}

	if err := s.rateLimits.CheckOTPRateLimit(email, ipAddress); err != nil {
		var rateLimitErr *RateLimitError
		if errors.As(err, &rateLimitErr) {
			s.audit.LogRateLimitViolation(email, ipAddress, userAgent, rateLimitErr.Type, rateLimitErr.RetryAfter)
		}
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.CreateUser(email, string(hash), req.FirstName, req.LastName, req.Phone)
	if err != nil {
		return nil, err
	}

	if err := s.advance(email, AuthEventRequestOTP); err != nil {
		return nil, err
	}

	if err := s.sendOTP(email, OTPPurposeVerifyEmail, ipAddress, userAgent); err != nil {
		return nil, err
	}

	return user, nil
}

// ResendOTP issues a fresh verification code for an email mid-flow
func (s *AuthService) ResendOTP(email, ipAddress, userAgent string) error {
	email, err := s.validator.Validate(email)
	if err != nil {
		return fmt.Errorf("invalid email: %w", err)
	}

	if err := s.rateLimits.CheckOTPRateLimit(email, ipAddress); err != nil {
		var rateLimitErr *RateLimitError
		if errors.As(err, &rateLimitErr) {
			s.audit.LogRateLimitViolation(email, ipAddress, userAgent, rateLimitErr.Type, rateLimitErr.RetryAfter)
		}
		return err
	}

	if err := s.advance(email, AuthEventRequestOTP); err != nil {
		return err
	}

	purpose, err := s.otp.GetOTPPurpose(email)
	if err != nil {
		purpose = OTPPurposeVerifyEmail
	}

	return s.sendOTP(email, purpose, ipAddress, userAgent)
}

// VerifyEmail checks the OTP, marks the account verified and signs the
// user in
func (s *AuthService) VerifyEmail(req *models.VerifyOTPRequest, ipAddress, userAgent string) (*models.AuthResponse, error) {
	email := s.validator.Sanitize(req.Email)

	if err := s.advance(email, AuthEventSubmitOTP); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByEmail(email)
	if err != nil {
		s.advance(email, AuthEventOTPRejected)
		return nil, ErrInvalidCredentials
	}

	valid, err := s.otp.ValidateOTP(email, req.Code)
	if err != nil || !valid {
		s.advance(email, AuthEventOTPRejected)
		s.audit.LogOTPVerification(&user.ID, email, false, 0, ipAddress, userAgent, errString(err))
		if err != nil {
			return nil, err
		}
		return nil, ErrOTPInvalid
	}

	if err := s.users.MarkEmailVerified(user.ID); err != nil {
		s.advance(email, AuthEventOTPRejected)
		return nil, fmt.Errorf("failed to mark email verified: %w", err)
	}
	user.EmailVerified = true

	if err := s.advance(email, AuthEventOTPAccepted); err != nil {
		return nil, err
	}

	s.audit.LogOTPVerification(&user.ID, email, true, 0, ipAddress, userAgent, "")

	tokens, err := s.issueTokens(user, ipAddress, userAgent)
	if err != nil {
		return nil, err
	}

	return &models.AuthResponse{User: user, Tokens: tokens}, nil
}

// SignIn authenticates with email and password. Unverified accounts are
// rejected until they complete OTP verification.
func (s *AuthService) SignIn(req *models.SignInRequest, ipAddress, userAgent string) (*models.AuthResponse, error) {
	email := s.validator.Sanitize(req.Email)

	user, err := s.users.GetUserByEmail(email)
	if err != nil {
		// Burn a comparison so unknown emails take as long as wrong passwords
		bcrypt.CompareHashAndPassword([]byte("$2a$12$000000000000000000000uGyyRjbC0hrRVN35XhtWKmcWRC8/9C2"), []byte(req.Password))
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if user.Status != "active" {
		return nil, ErrAccountDisabled
	}

	if !user.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	if err := s.advance(email, AuthEventPasswordSignIn); err != nil {
		return nil, err
	}

	if err := s.users.UpdateLastLogin(user.ID); err != nil {
		logrus.WithField("user_id", user.ID).Warn("Failed to update last login time")
	}

	s.audit.LogSignIn(user.ID, email, ipAddress, userAgent)

	tokens, err := s.issueTokens(user, ipAddress, userAgent)
	if err != nil {
		return nil, err
	}

	return &models.AuthResponse{User: user, Tokens: tokens}, nil
}

// RequestRecovery mails a recovery OTP. Unknown emails are reported as
// success so the endpoint cannot be used to probe for accounts.
func (s *AuthService) RequestRecovery(email, ipAddress, userAgent string) error {
	email, err := s.validator.Validate(email)
	if err != nil {
		return fmt.Errorf("invalid email: %w", err)
	}

	if err := s.rateLimits.CheckOTPRateLimit(email, ipAddress); err != nil {
		var rateLimitErr *RateLimitError
		if errors.As(err, &rateLimitErr) {
			s.audit.LogRateLimitViolation(email, ipAddress, userAgent, rateLimitErr.Type, rateLimitErr.RetryAfter)
		}
		return err
	}

	if _, err := s.users.GetUserByEmail(email); err != nil {
		logrus.WithField("email", email).Info("Recovery requested for unknown email")
		return nil
	}

	if err := s.advance(email, AuthEventRequestRecovery); err != nil {
		return err
	}

	return s.sendOTP(email, OTPPurposeRecovery, ipAddress, userAgent)
}

// ResetPassword completes a recovery: the OTP must validate and carry the
// recovery purpose. All refresh tokens are revoked afterwards.
func (s *AuthService) ResetPassword(req *models.ResetPasswordRequest, ipAddress, userAgent string) error {
	email := s.validator.Sanitize(req.Email)

	user, err := s.users.GetUserByEmail(email)
	if err != nil {
		return ErrInvalidCredentials
	}

	purpose, err := s.otp.GetOTPPurpose(email)
	if err != nil {
		return err
	}
	if purpose != OTPPurposeRecovery {
		return ErrOTPInvalid
	}

	valid, err := s.otp.ValidateOTP(email, req.Code)
	if err != nil {
		return err
	}
	if !valid {
		return ErrOTPInvalid
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.SetPassword(user.ID, string(hash)); err != nil {
		return err
	}

	if err := s.tokens.RevokeAllUserTokens(user.ID); err != nil {
		logrus.WithField("user_id", user.ID).Warn("Failed to revoke tokens after password reset")
	}

	s.advance(email, AuthEventResetPassword)
	return nil
}

// Refresh validates and rotates a refresh token, returning a fresh pair
func (s *AuthService) Refresh(refreshToken, ipAddress, userAgent string) (*models.TokenPair, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrRefreshTokenInvalid
	}

	revoked, err := s.tokens.IsTokenRevoked(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to check token: %w", err)
	}
	expired, err := s.tokens.IsTokenExpired(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to check token: %w", err)
	}
	if revoked || expired {
		s.audit.LogTokenRefresh(claims.UserID, ipAddress, userAgent, false)
		return nil, ErrRefreshTokenInvalid
	}

	user, err := s.users.GetUserByID(claims.UserID)
	if err != nil {
		return nil, ErrRefreshTokenInvalid
	}
	if user.Status != "active" {
		return nil, ErrAccountDisabled
	}

	// Rotation: the presented token is spent either way
	if err := s.tokens.RevokeToken(refreshToken); err != nil {
		return nil, fmt.Errorf("failed to rotate token: %w", err)
	}

	tokens, err := s.issueTokens(user, ipAddress, userAgent)
	if err != nil {
		return nil, err
	}

	s.audit.LogTokenRefresh(user.ID, ipAddress, userAgent, true)
	return tokens, nil
}

// SignOut revokes the presented refresh token, or every token for the
// user when all is set
func (s *AuthService) SignOut(userID uuid.UUID, refreshToken string, all bool, ipAddress, userAgent string) error {
	if all {
		if err := s.tokens.RevokeAllUserTokens(userID); err != nil {
			return err
		}
	} else if refreshToken != "" {
		if err := s.tokens.RevokeToken(refreshToken); err != nil {
			return err
		}
	}

	if user, err := s.users.GetUserByID(userID); err == nil {
		s.advance(s.validator.Sanitize(user.Email), AuthEventSignOut)
	}

	s.audit.LogSignOut(userID, ipAddress, userAgent, all)
	return nil
}

// FlowState reports where an email currently is in the auth flow
func (s *AuthService) FlowState(email string) AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[s.validator.Sanitize(email)]
	if !ok {
		return AuthStateIdle
	}
	return state
}

// issueTokens builds a signed token pair and persists the refresh half
func (s *AuthService) issueTokens(user *models.User, ipAddress, userAgent string) (*models.TokenPair, error) {
	access, err := s.jwt.GenerateAccessToken(user.ID, user.Email, user.Roles, user.EmailVerified)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refresh, err := s.jwt.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	refreshExpiry, err := s.jwt.GetTokenExpiry(refresh)
	if err != nil {
		return nil, fmt.Errorf("failed to read token expiry: %w", err)
	}

	if err := s.tokens.StoreRefreshToken(user.ID, refresh, ipAddress, userAgent, refreshExpiry); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	accessExpiry, err := s.jwt.GetTokenExpiry(access)
	if err != nil {
		return nil, fmt.Errorf("failed to read token expiry: %w", err)
	}

	return &models.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(time.Until(accessExpiry).Seconds()),
	}, nil
}

// sendOTP generates, records and mails a one-time code
func (s *AuthService) sendOTP(email, purpose, ipAddress, userAgent string) error {
	code, err := s.otp.GenerateOTP(email, purpose, ipAddress, userAgent)
	if err != nil {
		s.audit.LogOTPRequest(email, ipAddress, userAgent, false, err.Error())
		return err
	}

	if err := s.rateLimits.RecordOTPRequest(email, ipAddress); err != nil {
		logrus.WithField("email", email).Warn("Failed to record OTP request")
	}

	subject := "Your verification code"
	body := fmt.Sprintf("Your verification code is %s. It expires in 5 minutes.", code)
	if purpose == OTPPurposeRecovery {
		subject = "Your password recovery code"
		body = fmt.Sprintf("Use code %s to reset your password. It expires in 5 minutes.", code)
	}

	if err := s.gateway.Send(mail.Message{To: []string{email}, Subject: subject, Body: body}); err != nil {
		s.audit.LogOTPRequest(email, ipAddress, userAgent, false, err.Error())
		return fmt.Errorf("failed to send verification mail: %w", err)
	}

	s.audit.LogOTPRequest(email, ipAddress, userAgent, true, "")
	return nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
