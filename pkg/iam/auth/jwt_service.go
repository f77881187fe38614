package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/Abraxas-365/filesmile/pkg/iam"
	"github.com/Abraxas-365/filesmile/pkg/kernel"
	"github.com/golang-jwt/jwt/v5"
)

// JWTService implementación del TokenService usando JWT HS256.
// Los tokens de usuario y de operador se firman con claves distintas y
// llevan el claim "kind", que cada ruta de verificación exige.
type JWTService struct {
	userKey  []byte
	adminKey []byte
	userTTL  time.Duration
	adminTTL time.Duration
	issuer   string
	now      func() time.Time
}

// JWTOptions agrupa los parámetros del servicio
type JWTOptions struct {
	UserSecret  string
	AdminSecret string
	UserTTL     time.Duration
	AdminTTL    time.Duration
	Issuer      string
	// Now permite fijar el reloj en pruebas
	Now func() time.Time
}

// NewJWTService crea una nueva instancia del servicio JWT
func NewJWTService(opts JWTOptions) *JWTService {
	if opts.UserTTL <= 0 {
		opts.UserTTL = 24 * time.Hour // Por defecto 24 horas
	}
	if opts.AdminTTL <= 0 {
		opts.AdminTTL = 8 * time.Hour
	}
	if opts.Issuer == "" {
		opts.Issuer = "filesmile"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &JWTService{
		userKey:  []byte(opts.UserSecret),
		adminKey: []byte(opts.AdminSecret),
		userTTL:  opts.UserTTL,
		adminTTL: opts.AdminTTL,
		issuer:   opts.Issuer,
		now:      opts.Now,
	}
}

// Claims personalizados para JWT
type jwtClaims struct {
	Kind     TokenKind `json:"kind"`
	TenantID int64     `json:"tenant_id,omitempty"`
	Email    string    `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// IssueUserToken genera un token de usuario ligado a (usuario, tenant, email)
func (j *JWTService) IssueUserToken(userID kernel.UserID, tenantID kernel.TenantID, email string) (IssuedToken, error) {
	return j.sign(j.userKey, j.userTTL, jwtClaims{
		Kind:     KindUser,
		TenantID: tenantID.Int64(),
		Email:    email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: userID.String(),
		},
	})
}

// IssueAdminToken genera un token de operador
func (j *JWTService) IssueAdminToken(username string) (IssuedToken, error) {
	return j.sign(j.adminKey, j.adminTTL, jwtClaims{
		Kind: KindAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: username,
		},
	})
}

func (j *JWTService) sign(key []byte, ttl time.Duration, claims jwtClaims) (IssuedToken, error) {
	now := j.now()
	expires := now.Add(ttl)
	claims.Issuer = j.issuer
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.NotBefore = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(expires)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(key)
	if err != nil {
		return IssuedToken{}, ErrTokenGenerationFailed().WithCause(err)
	}

	return IssuedToken{Token: tokenString, ExpiresAt: expires, TTL: ttl}, nil
}

// VerifyUser valida un token de usuario. Un token de operador falla aquí.
func (j *JWTService) VerifyUser(tokenString string) (*Claims, error) {
	c, err := j.parse(tokenString, j.userKey)
	if err != nil {
		return nil, err
	}
	if c.Kind != KindUser || c.TenantID <= 0 || c.Email == "" {
		return nil, iam.ErrInvalidToken()
	}
	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return nil, iam.ErrInvalidToken()
	}

	return &Claims{
		Kind:      KindUser,
		UserID:    kernel.UserID(userID),
		TenantID:  kernel.TenantID(c.TenantID),
		Email:     c.Email,
		IssuedAt:  c.IssuedAt.Time,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}

// VerifyAdmin valida un token de operador. Un token de usuario falla aquí.
func (j *JWTService) VerifyAdmin(tokenString string) (*Claims, error) {
	c, err := j.parse(tokenString, j.adminKey)
	if err != nil {
		return nil, err
	}
	if c.Kind != KindAdmin || c.Subject == "" {
		return nil, iam.ErrInvalidToken()
	}

	return &Claims{
		Kind:      KindAdmin,
		AdminName: c.Subject,
		IssuedAt:  c.IssuedAt.Time,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}

// UserTTL devuelve la vigencia de los tokens de usuario
func (j *JWTService) UserTTL() time.Duration { return j.userTTL }

// AdminTTL devuelve la vigencia de los tokens de operador
func (j *JWTService) AdminTTL() time.Duration { return j.adminTTL }

// parse verifica firma, algoritmo, emisor y fechas. Los detalles del fallo
// no se exponen al cliente.
func (j *JWTService) parse(tokenString string, key []byte) (*jwtClaims, error) {
	claims := &jwtClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithIssuer(j.issuer),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, iam.ErrTokenExpired()
		}
		return nil, iam.ErrInvalidToken()
	}
	if !token.Valid || claims.IssuedAt == nil {
		return nil, iam.ErrInvalidToken()
	}
	return claims, nil
}
