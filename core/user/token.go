package user

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"
)

var (
	// token settings; set once at startup via ConfigureTokens
	tokenIssuer                 = "EasyStudy"
	tokenSigningKey             []byte
	tokenExpirationDelta        = 24 * time.Hour
	tokenRefreshExpirationDelta = 7 * 24 * time.Hour

	nowFunc = time.Now // mockable

	// errors
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Email        string `json:"email,omitempty"`
	UserType     string `json:"user_type,omitempty"`
	IsStudent    bool   `json:"is_student,omitempty"` // -> STUDENT PORTAL
	IsTutor      bool   `json:"is_tutor,omitempty"`   // -> TUTOR PORTAL
}

// ConfigureTokens sets the signing key and lifetimes used for session tokens.
func ConfigureTokens(issuer string, key []byte, expirationDelta, refreshExpirationDelta time.Duration) {
	tokenIssuer = issuer
	tokenSigningKey = key
	tokenExpirationDelta = expirationDelta
	tokenRefreshExpirationDelta = refreshExpirationDelta
}

func GetUserClaims(usr User, origIat ...int64) *Claims {
	now := nowFunc()
	nownix := now.Unix()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = nownix
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    tokenIssuer,
			Subject:   usr.ID,
			ExpiresAt: now.Add(tokenExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Email:        usr.Email,
		UserType:     usr.Role,
		IsStudent:    usr.IsStudent(),
		IsTutor:      usr.IsTutor(),
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString(tokenSigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// VerifyToken checks the signature and expiry of a token string and returns
// its claims.
func VerifyToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, new(Claims), func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return tokenSigningKey, nil
	})
	if err != nil {
		if vErr, ok := err.(*jwt.ValidationError); ok && (vErr.Errors&jwt.ValidationErrorExpired != 0) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// RefreshExpired reports whether the refresh window opened at origIat has closed.
func RefreshExpired(origIat int64) bool {
	return nowFunc().After(time.Unix(origIat, 0).Add(tokenRefreshExpirationDelta))
}
