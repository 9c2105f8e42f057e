package middleware

import (
	"fmt"
	"strings"

	"fulfillment/internal/models"

	"github.com/dgrijalva/jwt-go"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

const actorLocalsKey = "actor"

// ActorRequired is a Fiber middleware that checks for a valid JWT token
// and stores the decoded actor in the request context. The engine itself
// never reads identity from ambient state; handlers pull the actor from
// here and pass it into every service call explicitly.
func ActorRequired(jwtSecret string) fiber.Handler {
	secret := []byte(jwtSecret)
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header is required",
			})
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header format must be 'Bearer <token>'",
			})
		}

		claims, err := parseToken(parts[1], secret)
		if err != nil {
			log.Warn().Err(err).Msg("JWT validation failed")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token",
			})
		}

		actor := models.Actor{}
		if id, ok := claims["user_id"].(string); ok {
			actor.ID = id
		}
		if role, ok := claims["role"].(string); ok {
			actor.Role = models.Role(role)
		}
		if actor.ID == "" || !actor.Role.Valid() {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Token is missing actor identity",
			})
		}

		c.Locals(actorLocalsKey, actor)
		return c.Next()
	}
}

// ActorFromCtx returns the actor stored by ActorRequired, or a zero actor
// when the middleware did not run (the zero actor fails every guard).
func ActorFromCtx(c *fiber.Ctx) models.Actor {
	actor, _ := c.Locals(actorLocalsKey).(models.Actor)
	return actor
}

func parseToken(tokenString string, secret []byte) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}
