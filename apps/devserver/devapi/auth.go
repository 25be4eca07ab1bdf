package devapi

import (
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/elimucloud/dawati/core"
	"github.com/elimucloud/dawati/core/session"
)

const contextClaimsKey = "claims"

// Account is a back-office sign-in account; accounts are a fixture concern
// of the devserver, distinct from the records it manages.
type Account struct {
	Username     string
	Email        string
	Roles        []string
	PasswordHash []byte
}

func (a *Account) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	return nil
}

func (a *Account) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(pwd))
}

type Authenticator struct {
	mutex      sync.RWMutex
	accounts   map[string]*Account
	secret     []byte
	appName    string
	expiration time.Duration
}

func NewAuthenticator(conf *core.Config) *Authenticator {
	return &Authenticator{
		accounts:   make(map[string]*Account),
		secret:     []byte(conf.SecretKey),
		appName:    conf.AppName,
		expiration: conf.Server.JWTExpirationDelta,
	}
}

func (a *Authenticator) Register(username, email, password string, roles []string) error {
	acct := &Account{Username: username, Email: email, Roles: roles}
	if err := acct.SetPassword(password); err != nil {
		return err
	}
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.accounts[username] = acct
	return nil
}

func (a *Authenticator) authenticate(username, password string) (*session.Claims, error) {
	a.mutex.RLock()
	acct, ok := a.accounts[username]
	a.mutex.RUnlock()
	if !ok {
		return nil, errAuthenticationFailed
	}
	if err := acct.CheckPassword(password); err != nil {
		return nil, errAuthenticationFailed
	}
	return a.claims(acct), nil
}

func (a *Authenticator) claims(acct *Account) *session.Claims {
	now := time.Now()
	return &session.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.appName,
			Subject:   acct.Username,
			ExpiresAt: jwt.NewNumericDate(now.Add(a.expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Username: acct.Username,
		Email:    acct.Email,
		Roles:    acct.Roles,
	}
}

// GenerateToken generates a signed JWT token string representing the claims.
func (a *Authenticator) GenerateToken(claims *session.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// Middleware parses and verifies the bearer token and stashes the claims in
// the request context.
func (a *Authenticator) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			header := ctx.Request().Header.Get(echo.HeaderAuthorization)
			tokenStr, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || tokenStr == "" {
				return errUnauthenticated
			}

			claims := new(session.Claims)
			token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
				return a.secret, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !token.Valid {
				return errUnauthenticated
			}

			ctx.Set(contextClaimsKey, claims)
			return next(ctx)
		}
	}
}

func getContextClaims(ctx echo.Context) (*session.Claims, error) {
	if claims, ok := ctx.Get(contextClaimsKey).(*session.Claims); ok {
		return claims, nil
	}
	return nil, errUnauthenticated
}

// managerMiddleware rejects sessions without a privileged role; it guards
// every mutating endpoint.
func managerMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			if !claims.HasPrivilege() {
				return errHTTPForbidden
			}
			return next(ctx)
		}
	}
}
