package identity

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"log/slog"
	"regexp"

	"vocalis/internal/crypto"
	"vocalis/internal/logging"
	"vocalis/internal/services"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9-]+(?:\.[a-zA-Z0-9-]+)*$`)

const (
	minPasswordLen = 8
	maxUsernameLen = 30
)

// KeyCustodian stores per-user encryption keys with an external service.
type KeyCustodian interface {
	StoreKey(ctx context.Context, userID string, key []byte) (string, error)
}

// RegisterRequest carries the fields a new account must provide.
type RegisterRequest struct {
	Username  string
	FirstName string
	LastName  string
	Email     string
	Password  string
	Gender    string
	Country   string
}

// Registrar creates new accounts: it hashes the username, parks a fresh
// encryption key with the key custodian, and hands the verification token
// back encrypted under the client's public key.
type Registrar struct {
	store     *Store
	custodian KeyCustodian
	logger    *slog.Logger
}

// NewRegistrar builds a registration service.
func NewRegistrar(store *Store, custodian KeyCustodian, logger *slog.Logger) *Registrar {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Registrar{
		store:     store,
		custodian: custodian,
		logger:    logger.With(logging.String(logging.FieldComponent, "identity")),
	}
}

// Register validates and creates the account, returning the verification
// token encrypted under clientKey.
func (r *Registrar) Register(ctx context.Context, req RegisterRequest, clientKey *rsa.PublicKey) (string, error) {
	if err := validateRegistration(req); err != nil {
		return "", err
	}
	if clientKey == nil {
		return "", services.Wrap(services.ErrValidation, "identity", "register", "No public key on file", nil)
	}

	exists, err := r.store.UsernameExists(ctx, req.Username)
	if err != nil {
		return "", services.Wrap(services.ErrResource, "identity", "register", "Could not check username", err)
	}
	if exists {
		return "", services.Wrap(services.ErrValidation, "identity", "register", "Username already taken", nil)
	}

	salt, err := GenerateSalt()
	if err != nil {
		return "", services.Wrap(services.ErrResource, "identity", "register", "Could not generate salt", err)
	}
	token, err := NewVerificationToken(req.Username)
	if err != nil {
		return "", services.Wrap(services.ErrResource, "identity", "register", "Could not generate token", err)
	}
	passwordHash, err := HashPassword(req.Password)
	if err != nil {
		return "", services.Wrap(services.ErrResource, "identity", "register", "Could not hash password", err)
	}

	encryptionKey := make([]byte, 32)
	if _, err := rand.Read(encryptionKey); err != nil {
		return "", services.Wrap(services.ErrResource, "identity", "register", "Could not generate key", err)
	}
	kmsKeyID, err := r.custodian.StoreKey(ctx, HashUsername(req.Username, salt), encryptionKey)
	if err != nil {
		return "", services.Wrap(services.ErrUpstream, "identity", "register", "Could not store encryption key", err)
	}

	gender := req.Gender
	if gender == "" {
		gender = "not provided"
	}
	country := req.Country
	if country == "" {
		country = "not provided"
	}

	user := &User{
		UsernameHash: HashUsername(req.Username, salt),
		Salt:         salt,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: passwordHash,
		Gender:       gender,
		Country:      country,
		Token:        token,
		KMSKeyID:     kmsKeyID,
	}
	created, err := r.store.CreateUser(ctx, user)
	if err != nil {
		return "", services.Wrap(services.ErrResource, "identity", "register", "Could not create user", err)
	}

	encryptedToken, err := crypto.EncryptMessage(token, clientKey)
	if err != nil {
		return "", services.Wrap(services.ErrEncoding, "identity", "register", "Could not encrypt token", err)
	}

	r.logger.InfoContext(ctx, "user registered", logging.Int64("user_id", created.ID))
	return encryptedToken, nil
}

func validateRegistration(req RegisterRequest) error {
	if req.Username == "" || req.FirstName == "" || req.LastName == "" || req.Email == "" || req.Password == "" {
		return services.Wrap(services.ErrValidation, "identity", "register", "Missing Parameters or invalid field lengths", nil)
	}
	if len(req.Password) < minPasswordLen {
		return services.Wrap(services.ErrValidation, "identity", "register", "Missing Parameters or invalid field lengths", nil)
	}
	if len(req.Username) > maxUsernameLen {
		return services.Wrap(services.ErrValidation, "identity", "register", "Missing Parameters or invalid field lengths", nil)
	}
	if !emailPattern.MatchString(req.Email) {
		return services.Wrap(services.ErrValidation, "identity", "register", "Missing Parameters or invalid field lengths", nil)
	}
	return nil
}
