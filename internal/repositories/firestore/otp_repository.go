package firestore

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	domain "github.com/primemart/api/internal/domain"
	pfirestore "github.com/primemart/api/internal/platform/firestore"
)

const otpCollection = "registration_otps"

// OTPRepository keeps one registration code document per email. The document
// ID is derived from the email so a fresh request overwrites the previous code.
type OTPRepository struct {
	base *pfirestore.BaseRepository[otpDocument]
}

// NewOTPRepository constructs a Firestore-backed OTP repository.
func NewOTPRepository(provider *pfirestore.Provider) (*OTPRepository, error) {
	if provider == nil {
		return nil, errors.New("otp repository requires firestore provider")
	}

	base := pfirestore.NewBaseRepository[otpDocument](provider, otpCollection, nil, nil)
	return &OTPRepository{base: base}, nil
}

// Put stores the code, replacing any previous code for the same email.
func (r *OTPRepository) Put(ctx context.Context, otp domain.RegistrationOTP) error {
	if r == nil || r.base == nil {
		return errors.New("otp repository not initialised")
	}
	email := strings.ToLower(strings.TrimSpace(otp.Email))
	if email == "" {
		return errors.New("otp repository: email is required")
	}
	if strings.TrimSpace(otp.Code) == "" {
		return errors.New("otp repository: code is required")
	}

	_, err := r.base.Set(ctx, otpDocID(email), otpDocument{
		Email:     email,
		Code:      otp.Code,
		ExpiresAt: otp.ExpiresAt,
		CreatedAt: otp.CreatedAt,
	})
	return err
}

// Get loads the current code for the email. Missing codes surface as not found.
func (r *OTPRepository) Get(ctx context.Context, email string) (domain.RegistrationOTP, error) {
	if r == nil || r.base == nil {
		return domain.RegistrationOTP{}, errors.New("otp repository not initialised")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return domain.RegistrationOTP{}, errors.New("otp repository: email is required")
	}

	doc, err := r.base.Get(ctx, otpDocID(email))
	if err != nil {
		return domain.RegistrationOTP{}, err
	}
	return domain.RegistrationOTP{
		Email:     doc.Data.Email,
		Code:      doc.Data.Code,
		ExpiresAt: doc.Data.ExpiresAt,
		CreatedAt: doc.Data.CreatedAt,
	}, nil
}

// Delete removes the code once it has been consumed.
func (r *OTPRepository) Delete(ctx context.Context, email string) error {
	if r == nil || r.base == nil {
		return errors.New("otp repository not initialised")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return errors.New("otp repository: email is required")
	}

	ref, err := r.base.DocumentRef(ctx, otpDocID(email))
	if err != nil {
		return err
	}
	if _, err := ref.Delete(ctx); err != nil {
		return pfirestore.WrapError("registration_otps.delete", err)
	}
	return nil
}

// otpDocID encodes the email so it is safe as a Firestore document ID.
func otpDocID(email string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(email))
}

type otpDocument struct {
	Email     string    `firestore:"email"`
	Code      string    `firestore:"code"`
	ExpiresAt time.Time `firestore:"expiresAt"`
	CreatedAt time.Time `firestore:"createdAt"`
}
