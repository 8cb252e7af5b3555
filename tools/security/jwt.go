package security

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"FlashChat/tools/errs"

	"github.com/benbjohnson/clock"
	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Options 控制签名与TTL等参数。
type Options struct {
	Secret []byte        // HMAC 密钥（生产用ENV/KMS）
	Alg    string        // HS256/HS384/HS512（默认 HS256）
	TTL    time.Duration // 令牌有效期（默认 2h）
	Clock  clock.Clock   // 为空时用系统时间
}

type JWTClaims struct {
	jwtlib.MapClaims
}

// UserID sub 声明即用户 ID
func (c *JWTClaims) UserID() string {
	sub, _ := c.GetSubject()
	return sub
}

func DefaultOptions(secret []byte) Options {
	return Options{Secret: secret, Alg: "HS256", TTL: 2 * time.Hour}
}

func (o Options) now() time.Time {
	if o.Clock == nil {
		return time.Now()
	}
	return o.Clock.Now()
}

func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "sha256:" + hex.EncodeToString(sum[:])
}

func Generate(opts Options, userID string, scopes []string) (token string, expireAt time.Time, err error) {
	if userID == "" {
		return "", time.Time{}, errs.ErrValidation.WrapMsg("token subject required")
	}
	method, err := signingMethod(opts.Alg)
	if err != nil {
		return "", time.Time{}, err
	}
	if len(opts.Secret) == 0 {
		return "", time.Time{}, errs.ErrValidation.WrapMsg("jwt secret not configured")
	}
	if opts.TTL <= 0 {
		opts.TTL = 2 * time.Hour
	}
	now := opts.now()
	exp := now.Add(opts.TTL)

	claims := jwtlib.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"exp": exp.Unix(),
	}
	if len(scopes) > 0 {
		claims["scope"] = scopes
	}

	signed, err := jwtlib.NewWithClaims(method, claims).SignedString(opts.Secret)
	if err != nil {
		return "", time.Time{}, errs.WrapMsg(err, "sign token")
	}
	return signed, exp, nil
}

// Verify 校验签名和有效期；expectedHash 非空时还要求 token 哈希一致
func Verify(opts Options, token string, expectedHash string) (*JWTClaims, error) {
	method, err := signingMethod(opts.Alg) // 校验 alg 合法
	if err != nil {
		return nil, err
	}
	parsed, err := jwtlib.Parse(token, func(t *jwtlib.Token) (interface{}, error) {
		return opts.Secret, nil
	},
		jwtlib.WithValidMethods([]string{method.Alg()}),
		jwtlib.WithTimeFunc(opts.now),
		jwtlib.WithExpirationRequired(),
	)
	if err != nil {
		return nil, errs.ErrUnauthenticated.WrapMsg(err.Error())
	}
	if !parsed.Valid {
		return nil, errs.ErrUnauthenticated.WrapMsg("invalid token")
	}
	if expectedHash != "" && HashToken(token) != expectedHash {
		return nil, errs.ErrUnauthenticated.WrapMsg("access token hash mismatch")
	}
	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, errs.ErrUnauthenticated.WrapMsg("claims type mismatch")
	}
	out := &JWTClaims{claims}
	if out.UserID() == "" {
		return nil, errs.ErrUnauthenticated.WrapMsg("token has no subject")
	}
	return out, nil
}

func signingMethod(alg string) (jwtlib.SigningMethod, error) {
	switch strings.ToUpper(strings.TrimSpace(alg)) {
	case "", "HS256":
		return jwtlib.SigningMethodHS256, nil
	case "HS384":
		return jwtlib.SigningMethodHS384, nil
	case "HS512":
		return jwtlib.SigningMethodHS512, nil
	default:
		return nil, errs.ErrValidation.WrapMsg("unsupported alg (use HS256/HS384/HS512)", "alg", alg)
	}
}
