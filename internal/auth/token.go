package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Seat tokens prove that a reconnecting socket owns a seat. They are minted
// when a player first takes a seat and presented on reconnect; possession of
// the token is the only credential, there are no user accounts.

var ErrInvalidToken = errors.New("invalid or expired seat token")

// SeatClaims is what a seat token carries.
type SeatClaims struct {
	RoomID   string
	Identity string
}

// NewSeatToken mints an HS256 token binding identity to a room seat.
func NewSeatToken(secret, roomID, identity string, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"room_id":  roomID,
		"identity": identity,
		"exp":      time.Now().Add(ttl).Unix(),
		"iat":      time.Now().Unix(),
	})
	return token.SignedString([]byte(secret))
}

// ParseSeatToken validates a seat token and returns its claims.
func ParseSeatToken(secret, tokenString string) (*SeatClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	roomID, _ := claims["room_id"].(string)
	identity, _ := claims["identity"].(string)
	if roomID == "" || identity == "" {
		return nil, ErrInvalidToken
	}
	return &SeatClaims{RoomID: roomID, Identity: identity}, nil
}
