package directory

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"sandboxsignup/internal/pkg/jwt"
)

const (
	maxCodeAttempts = 5

	purposeSignup = "signup"
	purposePhone  = "phone_number"
)

var codeRegex = regexp.MustCompile(`^\d{6}$`)

// CodeSender delivers one-time codes for the dev pool. Production code
// delivery belongs to the hosted directory, so the only real implementation
// here writes to the log.
type CodeSender interface {
	SendCode(ctx context.Context, username, phone, code string) error
}

type DevConsoleSender struct {
	enabled bool
}

func NewDevConsoleSender(enabled bool) *DevConsoleSender {
	return &DevConsoleSender{enabled: enabled}
}

func (s *DevConsoleSender) SendCode(_ context.Context, username, phone, code string) error {
	if s.enabled {
		log.Printf("[DEV-SMS] verification code username=%s phone=%s code=%s", username, phone, code)
	}
	return nil
}

type accountModel struct {
	ID              int64      `gorm:"column:id;primaryKey"`
	Username        string     `gorm:"column:username;uniqueIndex"`
	Sub             string     `gorm:"column:sub"`
	PasswordHash    string     `gorm:"column:password_hash"`
	Confirmed       bool       `gorm:"column:confirmed"`
	ConfirmedAt     *time.Time `gorm:"column:confirmed_at"`
	PhoneVerified   bool       `gorm:"column:phone_verified"`
	PhoneVerifiedAt *time.Time `gorm:"column:phone_verified_at"`
	CreatedAt       time.Time  `gorm:"column:created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at"`
}

func (accountModel) TableName() string { return "pool_accounts" }

type attributeModel struct {
	ID        int64  `gorm:"column:id;primaryKey"`
	AccountID int64  `gorm:"column:account_id;index"`
	Name      string `gorm:"column:name"`
	Value     string `gorm:"column:value"`
}

func (attributeModel) TableName() string { return "pool_account_attributes" }

type codeModel struct {
	ID          int64      `gorm:"column:id;primaryKey"`
	AccountID   int64      `gorm:"column:account_id;index"`
	Purpose     string     `gorm:"column:purpose"`
	CodeHash    string     `gorm:"column:code_hash"`
	Attempts    int        `gorm:"column:attempts"`
	ResendCount int        `gorm:"column:resend_count"`
	LastSentAt  time.Time  `gorm:"column:last_sent_at"`
	ExpiresAt   time.Time  `gorm:"column:expires_at"`
	UsedAt      *time.Time `gorm:"column:used_at"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
}

func (codeModel) TableName() string { return "pool_verification_codes" }

// DevPool is a database-backed user pool implementing the directory contract
// for local development and end-to-end tests. Codes are 6-digit, stored as
// sha256(code+pepper), with a TTL, an attempt cap and a resend cooldown —
// the same policies the hosted directory applies externally.
type DevPool struct {
	db             *gorm.DB
	sender         CodeSender
	jwt            *jwt.Service
	pepper         string
	codeTTL        time.Duration
	resendCooldown time.Duration
}

func NewDevPool(db *gorm.DB, sender CodeSender, jwtSvc *jwt.Service, pepper string, codeTTL, resendCooldown time.Duration) *DevPool {
	return &DevPool{
		db:             db,
		sender:         sender,
		jwt:            jwtSvc,
		pepper:         pepper,
		codeTTL:        codeTTL,
		resendCooldown: resendCooldown,
	}
}

func (p *DevPool) AutoMigrate() error {
	return p.db.AutoMigrate(&accountModel{}, &attributeModel{}, &codeModel{})
}

func (p *DevPool) CreateAccount(ctx context.Context, in CreateAccountInput) (*Account, error) {
	username := normalizeUsername(in.Username)

	var count int64
	if err := p.db.WithContext(ctx).Model(&accountModel{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrAccountExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	account := accountModel{
		Username:     username,
		Sub:          uuid.NewString(),
		PasswordHash: string(hash),
	}

	err = p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&account).Error; err != nil {
			return err
		}
		for _, a := range in.Attributes {
			row := attributeModel{AccountID: account.ID, Name: a.Name, Value: a.Value}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		// Concurrent create can still lose the race on postgres.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrAccountExists
		}
		return nil, err
	}

	if err := p.issueCode(ctx, &account, purposeSignup, attributeValue(in.Attributes, "phone_number")); err != nil {
		return nil, err
	}

	return &Account{Username: username, Sub: account.Sub, Confirmed: false}, nil
}

func (p *DevPool) ConfirmRegistration(ctx context.Context, username, code string) error {
	return p.redeemCode(ctx, username, code, purposeSignup, func(tx *gorm.DB, account *accountModel, now time.Time) error {
		return tx.Model(&accountModel{}).Where("id = ?", account.ID).Updates(map[string]any{
			"confirmed":    true,
			"confirmed_at": now,
			"updated_at":   now,
		}).Error
	})
}

func (p *DevPool) ResendConfirmationCode(ctx context.Context, username string) error {
	account, err := p.getAccount(ctx, username)
	if err != nil {
		return err
	}
	if account.Confirmed {
		return ErrAlreadyConfirmed
	}

	now := time.Now()
	var current codeModel
	err = p.db.WithContext(ctx).Where("account_id = ? AND purpose = ?", account.ID, purposeSignup).First(&current).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if err == nil && current.LastSentAt.Add(p.resendCooldown).After(now) {
		return ErrResendCooldown
	}

	return p.issueCode(ctx, account, purposeSignup, p.phoneFor(ctx, account.ID))
}

func (p *DevPool) VerifyAttribute(ctx context.Context, username, attribute, code string) error {
	if attribute != purposePhone {
		return fmt.Errorf("%w: attribute %q", ErrUnsupportedVerify, attribute)
	}
	return p.redeemCode(ctx, username, code, purposeSignup, func(tx *gorm.DB, account *accountModel, now time.Time) error {
		return tx.Model(&accountModel{}).Where("id = ?", account.ID).Updates(map[string]any{
			"phone_verified":    true,
			"phone_verified_at": now,
			"updated_at":        now,
		}).Error
	})
}

type LoginResult struct {
	Token   string
	Account *Account
}

// Login is the dev stand-in for the hosted login page. Unconfirmed accounts
// cannot authenticate, matching the hosted directory's behavior.
func (p *DevPool) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	account, err := p.getAccount(ctx, username)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !account.Confirmed {
		return nil, ErrNotConfirmed
	}

	token, err := p.jwt.GenerateToken(account.Username, account.Sub)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		Token:   token,
		Account: &Account{Username: account.Username, Sub: account.Sub, Confirmed: true},
	}, nil
}

func (p *DevPool) getAccount(ctx context.Context, username string) (*accountModel, error) {
	var account accountModel
	err := p.db.WithContext(ctx).Where("username = ?", normalizeUsername(username)).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (p *DevPool) issueCode(ctx context.Context, account *accountModel, purpose, phone string) error {
	code, err := generateCode()
	if err != nil {
		return err
	}

	now := time.Now()
	codeHash := hashCode(code, p.pepper)
	expiresAt := now.Add(p.codeTTL)

	var current codeModel
	err = p.db.WithContext(ctx).Where("account_id = ? AND purpose = ?", account.ID, purpose).First(&current).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row := codeModel{
			AccountID:   account.ID,
			Purpose:     purpose,
			CodeHash:    codeHash,
			ResendCount: 1,
			LastSentAt:  now,
			ExpiresAt:   expiresAt,
		}
		if createErr := p.db.WithContext(ctx).Create(&row).Error; createErr != nil {
			return createErr
		}
	} else if err != nil {
		return err
	} else {
		if updateErr := p.db.WithContext(ctx).
			Model(&codeModel{}).
			Where("account_id = ? AND purpose = ?", account.ID, purpose).
			Updates(map[string]any{
				"code_hash":    codeHash,
				"attempts":     0,
				"last_sent_at": now,
				"expires_at":   expiresAt,
				"resend_count": gorm.Expr("resend_count + 1"),
				"used_at":      nil,
			}).Error; updateErr != nil {
			return updateErr
		}
	}

	return p.sender.SendCode(ctx, account.Username, phone, code)
}

func (p *DevPool) redeemCode(ctx context.Context, username, code, purpose string, onSuccess func(tx *gorm.DB, account *accountModel, now time.Time) error) error {
	if !codeRegex.MatchString(code) {
		return ErrCodeMismatch
	}

	account, err := p.getAccount(ctx, username)
	if err != nil {
		return err
	}

	now := time.Now()
	var row codeModel
	if err := p.db.WithContext(ctx).Where("account_id = ? AND purpose = ?", account.ID, purpose).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCodeMismatch
		}
		return err
	}

	if row.UsedAt != nil || !row.ExpiresAt.After(now) {
		return ErrCodeExpired
	}

	if hashCode(code, p.pepper) != row.CodeHash {
		attempts := row.Attempts + 1
		if updateErr := p.db.WithContext(ctx).
			Model(&codeModel{}).
			Where("id = ?", row.ID).
			Update("attempts", attempts).Error; updateErr != nil {
			return updateErr
		}
		if attempts >= maxCodeAttempts {
			return ErrTooManyAttempts
		}
		return ErrCodeMismatch
	}

	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := onSuccess(tx, account, now); err != nil {
			return err
		}
		return tx.Model(&codeModel{}).Where("id = ?", row.ID).Update("used_at", now).Error
	})
}

func (p *DevPool) phoneFor(ctx context.Context, accountID int64) string {
	var attr attributeModel
	if err := p.db.WithContext(ctx).Where("account_id = ? AND name = ?", accountID, purposePhone).First(&attr).Error; err != nil {
		return ""
	}
	return attr.Value
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func attributeValue(attrs []Attribute, name string) string {
	for _, a := range attrs {
		if a.Name == name {
			return a.Value
		}
	}
	return ""
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func hashCode(code, pepper string) string {
	sum := sha256.Sum256([]byte(code + pepper))
	return hex.EncodeToString(sum[:])
}
