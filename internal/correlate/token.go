// Package correlate is the single encode/decode point for the references we
// embed in gateway charges. Every adapter uses it; nobody parses charge
// references by hand anywhere else.
package correlate

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"freight-app/internal/domain/plans"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const prefix = "frete"

var (
	ErrMalformed = errors.New("correlate: malformed reference")
	ErrExpired   = errors.New("correlate: token expired")
	ErrBadToken  = errors.New("correlate: invalid session token")
)

// Ref is what a charge reference decodes back to.
type Ref struct {
	UserID   uint
	PlanType string
	IssuedAt time.Time
}

// NewChargeRef builds the external reference for a new gateway charge:
// frete-<userID>-<plan>-<epoch>-<nonce>. The nonce keeps references unique
// per attempt (OpenPix rejects duplicate correlation IDs).
func NewChargeRef(userID uint, planType string, now time.Time) string {
	nonce := strings.Split(uuid.NewString(), "-")[0]
	return fmt.Sprintf("%s-%d-%s-%d-%s", prefix, userID, planType, now.Unix(), nonce)
}

// ParseChargeRef decodes a reference produced by NewChargeRef. The trailing
// nonce is optional so references issued before it existed still parse.
func ParseChargeRef(ref string) (Ref, error) {
	parts := strings.Split(strings.TrimSpace(ref), "-")
	if len(parts) < 4 || parts[0] != prefix {
		return Ref{}, ErrMalformed
	}

	uid, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil || uid == 0 {
		return Ref{}, ErrMalformed
	}
	planType := plans.NormalizeType(parts[2])
	if !plans.IsValidType(planType) {
		return Ref{}, ErrMalformed
	}
	epoch, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil || epoch <= 0 {
		return Ref{}, ErrMalformed
	}

	return Ref{
		UserID:   uint(uid),
		PlanType: planType,
		IssuedAt: time.Unix(epoch, 0),
	}, nil
}

// SameAttempt reports whether two references identify the same charge
// attempt: same user and same issuance second. Two gateway charge ids that
// decode equal are duplicate notification channels, not two charges.
func SameAttempt(a, b Ref) bool {
	return a.UserID == b.UserID && a.IssuedAt.Equal(b.IssuedAt)
}

// NewSessionToken signs a short-lived payment-session token carrying the
// user and plan. Issue it with the same clock reading as the charge
// reference so the two decode to the same attempt.
func NewSessionToken(secret string, userID uint, planType string, now time.Time, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"plan":    planType,
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseSessionToken validates integrity and expiry before trusting the
// embedded fields.
func ParseSessionToken(secret string, tokenString string) (Ref, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Ref{}, ErrExpired
		}
		return Ref{}, ErrBadToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Ref{}, ErrBadToken
	}

	uidFloat, ok := claims["user_id"].(float64)
	if !ok || uidFloat <= 0 {
		return Ref{}, ErrBadToken
	}
	raw, _ := claims["plan"].(string)
	planType := plans.NormalizeType(raw)
	if !plans.IsValidType(planType) {
		return Ref{}, ErrBadToken
	}
	issued := time.Time{}
	if iat, ok := claims["iat"].(float64); ok {
		issued = time.Unix(int64(iat), 0)
	}

	return Ref{UserID: uint(uidFloat), PlanType: planType, IssuedAt: issued}, nil
}
